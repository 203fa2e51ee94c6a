package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	assemblyModels "asamblea/internal/assembly/models"
	"asamblea/internal/blobstore"
	"asamblea/internal/changefeed"
	"asamblea/internal/registration/metrics"
	"asamblea/internal/registration/models"
	"asamblea/internal/registration/resolver"
	"asamblea/internal/registration/wizard"
	registryModels "asamblea/internal/registry/models"
	"asamblea/internal/session"
	audit "asamblea/pkg/platform/audit"
	dErrors "asamblea/pkg/domain-errors"
	"asamblea/pkg/platform/sentinel"
	"asamblea/pkg/requestcontext"
)

var tracer = otel.Tracer("asamblea/registration")

type AssemblyStore interface {
	FindByID(ctx context.Context, id string) (*assemblyModels.Assembly, error)
}

type RegistryStore interface {
	ListByOwner(ctx context.Context, listID, document string) (registryModels.Registry, error)
	// StampIfUnclaimed fails with sentinel.ErrInvalidState for deleted
	// records and sentinel.ErrConflict for records another attendee claimed.
	StampIfUnclaimed(ctx context.Context, listID, id string, stamp registryModels.RegistrationStamp) (*registryModels.PropertyRecord, error)
}

type AttendeeStore interface {
	Create(ctx context.Context, attendee *models.Attendee) error
	FindByID(ctx context.Context, id string) (*models.Attendee, error)
	FindByDocument(ctx context.Context, assemblyID, document string) (*models.Attendee, error)
}

type SessionStore interface {
	Save(ctx context.Context, sess *session.Session) error
	FindByID(ctx context.Context, id string) (*session.Session, error)
}

type BlobStore interface {
	Put(ctx context.Context, key string, blob blobstore.Blob) (string, error)
}

type TokenIssuer interface {
	GenerateSessionToken(sessionID, assemblyID string, expiresIn time.Duration) (string, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type ChangePublisher interface {
	Publish(ctx context.Context, change changefeed.Change) error
}

const (
	defaultSessionTTL  = 12 * time.Hour
	defaultConcurrency = 8
)

// Service runs attendee registration: document resolution, the wizard
// steps persisted in the session, and the final commit.
type Service struct {
	assemblies AssemblyStore
	registry   RegistryStore
	attendees  AttendeeStore
	sessions   SessionStore
	blobs      BlobStore
	tokens     TokenIssuer

	logger         *slog.Logger
	auditPublisher AuditPublisher
	changes        ChangePublisher
	metrics        *metrics.Metrics
	sessionTTL     time.Duration
	concurrency    int
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithChangePublisher(changes ChangePublisher) Option {
	return func(s *Service) {
		s.changes = changes
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithSessionTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.sessionTTL = ttl
		}
	}
}

// WithConcurrency bounds parallel uploads and stamps within one commit.
func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// Stores groups the persistence collaborators.
type Stores struct {
	Assemblies AssemblyStore
	Registry   RegistryStore
	Attendees  AttendeeStore
	Sessions   SessionStore
	Blobs      BlobStore
}

func New(stores Stores, tokens TokenIssuer, opts ...Option) (*Service, error) {
	switch {
	case stores.Assemblies == nil:
		return nil, errors.New("assembly store is required")
	case stores.Registry == nil:
		return nil, errors.New("registry store is required")
	case stores.Attendees == nil:
		return nil, errors.New("attendee store is required")
	case stores.Sessions == nil:
		return nil, errors.New("session store is required")
	case stores.Blobs == nil:
		return nil, errors.New("blob store is required")
	case tokens == nil:
		return nil, errors.New("token issuer is required")
	}
	s := &Service{
		assemblies:  stores.Assemblies,
		registry:    stores.Registry,
		attendees:   stores.Attendees,
		sessions:    stores.Sessions,
		blobs:       stores.Blobs,
		tokens:      tokens,
		logger:      slog.Default(),
		sessionTTL:  defaultSessionTTL,
		concurrency: defaultConcurrency,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// ResolveResult is a successful resolution plus the session that continues
// from it.
type ResolveResult struct {
	Kind         resolver.Kind
	Attendee     *models.Attendee
	MatchedCount int
	Session      *session.Session
	Token        string
}

// Resolve looks up the document against the assembly and starts a session.
// An already registered attendee gets a session bound to the existing
// registration; everyone else gets a session positioned at the wizard's
// first step.
func (s *Service) Resolve(ctx context.Context, assemblyID, document string) (*ResolveResult, error) {
	ctx, span := tracer.Start(ctx, "registration.resolve",
		trace.WithAttributes(attribute.String("assembly_id", assemblyID)))
	defer span.End()

	outcome, asm, err := s.resolve(ctx, assemblyID, document)
	if err != nil {
		s.metrics.IncrementResolveOutcome(string(dErrors.CodeOf(err)))
		if !dErrors.HasCode(err, dErrors.CodeUnavailable) && !dErrors.HasCode(err, dErrors.CodeValidation) {
			s.logAudit(ctx, audit.EventResolveRejected, auditEntry{
				AssemblyID: assemblyID,
				Document:   document,
				Reason:     string(dErrors.CodeOf(err)),
			})
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, dErrors.MessageOf(err))
		return nil, err
	}
	s.metrics.IncrementResolveOutcome(string(outcome.Kind))
	span.SetAttributes(attribute.String("outcome", string(outcome.Kind)))

	now := requestcontext.Now(ctx)
	sess := &session.Session{
		ID:         uuid.NewString(),
		AssemblyID: assemblyID,
		Document:   strings.TrimSpace(document),
		CreatedAt:  now,
		ExpiresAt:  now.Add(s.sessionTTL),
	}
	if outcome.Kind == resolver.KindAlreadyRegistered {
		sess.AttendeeID = outcome.Attendee.ID
		sess.Wizard = wizard.State{Step: wizard.StepDone, AttendeeID: outcome.Attendee.ID, Entries: outcome.Attendee.Entries}
	} else {
		state, err := wizard.Transition(wizard.New(), wizard.DocumentResolved{Pending: outcome.Pending, Config: asm.Config})
		if err != nil {
			return nil, err
		}
		sess.Wizard = state
	}
	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to start session")
	}
	token, err := s.tokens.GenerateSessionToken(sess.ID, assemblyID, s.sessionTTL)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue session token")
	}

	s.logger.InfoContext(ctx, "document resolved",
		"assembly_id", assemblyID,
		"session_id", sess.ID,
		"outcome", string(outcome.Kind),
		"matched", outcome.MatchedCount,
		"pending", len(outcome.Pending),
		"request_id", requestcontext.RequestID(ctx),
	)
	return &ResolveResult{
		Kind:         outcome.Kind,
		Attendee:     outcome.Attendee,
		MatchedCount: outcome.MatchedCount,
		Session:      sess,
		Token:        token,
	}, nil
}

// resolve reads every input fresh and hands them to the pure resolver.
func (s *Service) resolve(ctx context.Context, assemblyID, document string) (resolver.Outcome, *assemblyModels.Assembly, error) {
	if strings.TrimSpace(document) == "" {
		return resolver.Outcome{}, nil, dErrors.New(dErrors.CodeValidation, "document is required")
	}
	existing, err := s.attendees.FindByDocument(ctx, assemblyID, document)
	if err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) {
			return resolver.Outcome{}, nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to look up registration")
		}
		existing = nil
	}

	var (
		asm      *assemblyModels.Assembly
		registry registryModels.Registry
	)
	if existing == nil {
		asm, err = s.assemblies.FindByID(ctx, assemblyID)
		if err != nil {
			if !errors.Is(err, sentinel.ErrNotFound) {
				return resolver.Outcome{}, nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to load assembly")
			}
			asm = nil
		}
		if asm != nil && asm.Status.AcceptsRegistrations() {
			registry, err = s.registry.ListByOwner(ctx, asm.EntityID, document)
			if err != nil {
				return resolver.Outcome{}, nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to load registry")
			}
		}
	}

	outcome, err := resolver.Resolve(document, asm, existing, registry)
	return outcome, asm, err
}

// Session returns the caller's session.
func (s *Service) Session(ctx context.Context, sessionID string) (*session.Session, error) {
	sess, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "session not found or expired")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to load session")
	}
	return sess, nil
}

func (s *Service) SubmitContact(ctx context.Context, sessionID string, contact models.ContactInfo) (*session.Session, error) {
	return s.step(ctx, sessionID, wizard.ContactSubmitted{Contact: contact})
}

// Verify confirms the property currently awaiting verification.
func (s *Service) Verify(ctx context.Context, sessionID string, role registryModels.Role, attachment *models.Attachment) (*session.Session, error) {
	return s.step(ctx, sessionID, wizard.PropertyVerified{Role: role, Attachment: attachment})
}

type Choice string

const (
	ChoiceFinish Choice = "finish"
	ChoiceAdd    Choice = "add"
)

func (s *Service) Choose(ctx context.Context, sessionID string, choice Choice) (*session.Session, error) {
	switch choice {
	case ChoiceFinish:
		return s.step(ctx, sessionID, wizard.FinishChosen{})
	case ChoiceAdd:
		return s.step(ctx, sessionID, wizard.AddAnotherChosen{})
	default:
		return nil, dErrors.New(dErrors.CodeValidation, "choice must be finish or add")
	}
}

// ManualInput describes a property that is not in the registry.
type ManualInput struct {
	Group       string
	Property    string
	Coefficient float64
	Role        registryModels.Role
	Attachment  *models.Attachment
}

func (s *Service) SubmitManual(ctx context.Context, sessionID string, in ManualInput) (*session.Session, error) {
	return s.step(ctx, sessionID, wizard.ManualSubmitted{
		Token:       strings.ToLower(ulid.Make().String()),
		Group:       in.Group,
		Property:    in.Property,
		Coefficient: in.Coefficient,
		Role:        in.Role,
		Attachment:  in.Attachment,
	})
}

func (s *Service) RemoveEntry(ctx context.Context, sessionID, key string) (*session.Session, error) {
	return s.step(ctx, sessionID, wizard.EntryRemoved{Key: key})
}

// step applies one wizard event to the stored session.
func (s *Service) step(ctx context.Context, sessionID string, ev wizard.Event) (*session.Session, error) {
	sess, err := s.Session(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.IsRegistered() {
		return nil, dErrors.New(dErrors.CodeInvalidState, "registration is already complete")
	}
	next, err := wizard.Transition(sess.Wizard, ev)
	if err != nil {
		return nil, err
	}
	sess.Wizard = next
	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to save session")
	}
	return sess, nil
}

func (s *Service) publish(ctx context.Context, entityType changefeed.EntityType, id, action string) {
	if s.changes == nil {
		return
	}
	if err := s.changes.Publish(ctx, changefeed.Change{EntityType: entityType, EntityID: id, Action: action}); err != nil {
		s.logger.WarnContext(ctx, "failed to publish registration change", "entity_id", id, "error", err)
	}
}

// auditEntry identifies what an audit event is about. Document is hashed
// before it leaves the service.
type auditEntry struct {
	AssemblyID string
	AttendeeID string
	Document   string
	PropertyID string
	Reason     string
}

func (s *Service) logAudit(ctx context.Context, event audit.AuditEvent, entry auditEntry) {
	args := []any{"assembly_id", entry.AssemblyID, "request_id", requestcontext.RequestID(ctx)}
	if entry.AttendeeID != "" {
		args = append(args, "attendee_id", entry.AttendeeID)
	}
	if entry.PropertyID != "" {
		args = append(args, "property_id", entry.PropertyID)
	}
	if entry.Reason != "" {
		args = append(args, "reason", entry.Reason)
	}
	s.logger.InfoContext(ctx, string(event), args...)
	if s.auditPublisher == nil {
		return
	}
	if err := s.auditPublisher.Emit(ctx, audit.Event{
		AssemblyID:   entry.AssemblyID,
		AttendeeID:   entry.AttendeeID,
		Subject:      entry.PropertyID,
		Action:       string(event),
		Reason:       entry.Reason,
		DocumentHash: audit.HashDocument(entry.Document),
	}); err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event", "action", string(event), "error", err)
	}
}
