package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"

	assemblyModels "asamblea/internal/assembly/models"
	"asamblea/internal/changefeed"
	registrationModels "asamblea/internal/registration/models"
	registryModels "asamblea/internal/registry/models"
	"asamblea/internal/session"
	"asamblea/internal/voting/ballot"
	"asamblea/internal/voting/metrics"
	"asamblea/internal/voting/models"
	"asamblea/internal/voting/rights"
	dErrors "asamblea/pkg/domain-errors"
	audit "asamblea/pkg/platform/audit"
	"asamblea/pkg/platform/sentinel"
	"asamblea/pkg/requestcontext"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks

var tracer = otel.Tracer("asamblea/voting")

type QuestionStore interface {
	Create(ctx context.Context, q *models.Question) error
	FindByID(ctx context.Context, id string) (*models.Question, error)
	ListByAssembly(ctx context.Context, assemblyID string) ([]*models.Question, error)
	Execute(ctx context.Context, id string, mutate func(*models.Question) error) (*models.Question, error)
	// SubmitAnswers inserts the whole batch or nothing. It never overwrites:
	// a key that already has an answer fails the batch with ErrConflict.
	SubmitAnswers(ctx context.Context, id string, answers map[string]models.Answer, now time.Time) error
}

type AssemblyStore interface {
	FindByID(ctx context.Context, id string) (*assemblyModels.Assembly, error)
}

type RegistryStore interface {
	List(ctx context.Context, listID string) (registryModels.Registry, error)
}

type AttendeeStore interface {
	FindByID(ctx context.Context, id string) (*registrationModels.Attendee, error)
}

type SessionStore interface {
	Save(ctx context.Context, sess *session.Session) error
	FindByID(ctx context.Context, id string) (*session.Session, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type ChangePublisher interface {
	Publish(ctx context.Context, change changefeed.Change) error
}

type Stores struct {
	Questions  QuestionStore
	Assemblies AssemblyStore
	Registry   RegistryStore
	Attendees  AttendeeStore
	Sessions   SessionStore
}

// Service runs questions and ballots. Voting rights are recomputed from
// fresh reads on every call.
type Service struct {
	questions      QuestionStore
	assemblies     AssemblyStore
	registry       RegistryStore
	attendees      AttendeeStore
	sessions       SessionStore
	logger         *slog.Logger
	auditPublisher AuditPublisher
	changes        ChangePublisher
	metrics        *metrics.Metrics
	newID          func() string
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

// WithIDGenerator overrides question id generation.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) {
		s.newID = fn
	}
}

func New(stores Stores, opts ...Option) (*Service, error) {
	switch {
	case stores.Questions == nil:
		return nil, errors.New("question store is required")
	case stores.Assemblies == nil:
		return nil, errors.New("assembly store is required")
	case stores.Registry == nil:
		return nil, errors.New("registry store is required")
	case stores.Attendees == nil:
		return nil, errors.New("attendee store is required")
	case stores.Sessions == nil:
		return nil, errors.New("session store is required")
	}
	s := &Service{
		questions:  stores.Questions,
		assemblies: stores.Assemblies,
		registry:   stores.Registry,
		attendees:  stores.Attendees,
		sessions:   stores.Sessions,
		logger:     slog.Default(),
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// voter is a registered caller with its rights computed for this request.
type voter struct {
	session  *session.Session
	attendee *registrationModels.Attendee
	assembly *assemblyModels.Assembly
	active   []registryModels.PropertyRecord
}

func (v *voter) keys() []string {
	return rights.Keys(v.active)
}

func (s *Service) loadVoter(ctx context.Context, sessionID string) (*voter, error) {
	sess, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "session not found or expired")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to load session")
	}
	if !sess.IsRegistered() {
		return nil, dErrors.New(dErrors.CodeInvalidState, "registration is not complete")
	}
	attendee, err := s.attendees.FindByID(ctx, sess.AttendeeID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "attendee not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to load attendee")
	}
	asm, err := s.assembly(ctx, sess.AssemblyID)
	if err != nil {
		return nil, err
	}
	reg, err := s.registry.List(ctx, asm.EntityID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to load registry")
	}
	return &voter{
		session:  sess,
		attendee: attendee,
		assembly: asm,
		active:   rights.ActiveProperties(attendee, reg, asm),
	}, nil
}

func (s *Service) assembly(ctx context.Context, id string) (*assemblyModels.Assembly, error) {
	asm, err := s.assemblies.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "assembly not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to load assembly")
	}
	return asm, nil
}

func (s *Service) question(ctx context.Context, id string) (*models.Question, error) {
	q, err := s.questions.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "question not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to load question")
	}
	return q, nil
}

// ActiveProperties lists the properties the caller can vote through right now.
func (s *Service) ActiveProperties(ctx context.Context, sessionID string) ([]registryModels.PropertyRecord, error) {
	v, err := s.loadVoter(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return v.active, nil
}

// QuestionView is a question as one attendee sees it: only the caller's own
// answers are included.
type QuestionView struct {
	ID       string                   `json:"id"`
	Title    string                   `json:"title"`
	Type     models.QuestionType      `json:"type"`
	Options  []string                 `json:"options"`
	Status   models.Status            `json:"status"`
	Answers  map[string]models.Answer `json:"answers"`
	Pending  []string                 `json:"pending"`
	CanVote  bool                     `json:"can_vote"`
	Finished bool                     `json:"finished"`
}

// ListForAttendee returns the assembly's questions visible to the caller.
// Finished questions the caller never answered are hidden.
func (s *Service) ListForAttendee(ctx context.Context, sessionID string) ([]QuestionView, error) {
	v, err := s.loadVoter(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	qs, err := s.questions.ListByAssembly(ctx, v.assembly.ID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to list questions")
	}
	keys := v.keys()
	views := make([]QuestionView, 0, len(qs))
	for _, q := range qs {
		if q.Status == models.StatusCreated || q.Status == models.StatusCanceled {
			continue
		}
		if !q.VisibleTo(keys) {
			continue
		}
		views = append(views, viewFor(q, v.active))
	}
	return views, nil
}

func viewFor(q *models.Question, active []registryModels.PropertyRecord) QuestionView {
	pending, voted := ballot.Partition(q, active)
	view := QuestionView{
		ID:       q.ID,
		Title:    q.Title,
		Type:     q.Type,
		Options:  q.Options,
		Status:   q.Status,
		Answers:  make(map[string]models.Answer, len(voted)),
		Pending:  rights.Keys(pending),
		Finished: q.Status == models.StatusFinished,
	}
	for _, rec := range voted {
		view.Answers[rec.ID] = q.Answers[rec.ID]
	}
	view.CanVote = q.Status == models.StatusLive && len(pending) > 0
	return view
}

// Mode reports how the caller's next ballot will be cast.
func (s *Service) Mode(ctx context.Context, sessionID string) (ballot.ModeResolution, error) {
	v, err := s.loadVoter(ctx, sessionID)
	if err != nil {
		return ballot.ModeResolution{}, err
	}
	return ballot.ResolveMode(v.assembly.Config, len(v.active), v.session.VotingMode), nil
}

// SetMode remembers the caller's preference for the rest of the session.
// An assembly-fixed mode or a single property still take precedence.
func (s *Service) SetMode(ctx context.Context, sessionID string, mode assemblyModels.VotingMode) (ballot.ModeResolution, error) {
	if !mode.IsValid() {
		return ballot.ModeResolution{}, dErrors.New(dErrors.CodeValidation, "mode must be block or individual")
	}
	v, err := s.loadVoter(ctx, sessionID)
	if err != nil {
		return ballot.ModeResolution{}, err
	}
	if err := s.remember(ctx, v.session, mode); err != nil {
		return ballot.ModeResolution{}, err
	}
	return ballot.ResolveMode(v.assembly.Config, len(v.active), mode), nil
}

func (s *Service) remember(ctx context.Context, sess *session.Session, mode assemblyModels.VotingMode) error {
	if sess.VotingMode == mode {
		return nil
	}
	sess.VotingMode = mode
	if err := s.sessions.Save(ctx, sess); err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to save session")
	}
	return nil
}

func (s *Service) publish(ctx context.Context, questionID, action string) {
	if s.changes == nil {
		return
	}
	if err := s.changes.Publish(ctx, changefeed.Change{EntityType: changefeed.EntityQuestion, EntityID: questionID, Action: action}); err != nil {
		s.logger.WarnContext(ctx, "failed to publish question change", "question_id", questionID, "error", err)
	}
}

type auditEntry struct {
	AssemblyID string
	AttendeeID string
	QuestionID string
	Reason     string
}

func (s *Service) logAudit(ctx context.Context, event audit.AuditEvent, entry auditEntry, attrs ...any) {
	args := append(attrs, "assembly_id", entry.AssemblyID, "question_id", entry.QuestionID,
		"request_id", requestcontext.RequestID(ctx))
	if entry.AttendeeID != "" {
		args = append(args, "attendee_id", entry.AttendeeID)
	}
	s.logger.InfoContext(ctx, string(event), args...)
	if s.auditPublisher == nil {
		return
	}
	if err := s.auditPublisher.Emit(ctx, audit.Event{
		AssemblyID: entry.AssemblyID,
		AttendeeID: entry.AttendeeID,
		Subject:    entry.QuestionID,
		Action:     string(event),
		Reason:     entry.Reason,
		RequestID:  requestcontext.RequestID(ctx),
	}); err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event", "action", string(event), "error", err)
	}
}
