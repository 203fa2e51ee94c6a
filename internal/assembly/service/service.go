package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"asamblea/internal/assembly/models"
	"asamblea/internal/changefeed"
	audit "asamblea/pkg/platform/audit"
	dErrors "asamblea/pkg/domain-errors"
	"asamblea/pkg/platform/sentinel"
	"asamblea/pkg/requestcontext"
)

type Store interface {
	Create(ctx context.Context, asm *models.Assembly) error
	FindByID(ctx context.Context, id string) (*models.Assembly, error)
	Execute(ctx context.Context, id string, mutate func(*models.Assembly) error) (*models.Assembly, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type ChangePublisher interface {
	Publish(ctx context.Context, change changefeed.Change) error
}

// Service owns the assembly lifecycle, its configuration and the
// assembly-scoped blocked voter list.
type Service struct {
	store          Store
	logger         *slog.Logger
	auditPublisher AuditPublisher
	changes        ChangePublisher
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

func New(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("assembly store is required")
	}
	s := &Service{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Service) Create(ctx context.Context, name, entityID string, cfg models.Config) (*models.Assembly, error) {
	asm, err := models.NewAssembly(uuid.NewString(), entityID, name, cfg, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, asm); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "assembly already exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create assembly")
	}
	s.logAudit(ctx, audit.EventAssemblyCreated, asm.ID, "entity_id", asm.EntityID)
	s.publish(ctx, asm.ID, "created")
	return asm, nil
}

func (s *Service) Get(ctx context.Context, id string) (*models.Assembly, error) {
	asm, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, translate(err, "failed to load assembly")
	}
	return asm, nil
}

// Transition moves the assembly to status, enforcing the lifecycle graph.
func (s *Service) Transition(ctx context.Context, id string, status models.Status) (*models.Assembly, error) {
	var from models.Status
	asm, err := s.store.Execute(ctx, id, func(a *models.Assembly) error {
		from = a.Status
		return a.TransitionTo(status, requestcontext.Now(ctx))
	})
	if err != nil {
		return nil, translate(err, "failed to update assembly status")
	}
	s.logAudit(ctx, audit.EventAssemblyStatusChanged, id, "from", string(from), "to", string(status))
	s.publish(ctx, id, "status_changed")
	return asm, nil
}

// SetVoterBlocked locks or unlocks one property key for this assembly only.
func (s *Service) SetVoterBlocked(ctx context.Context, id, propertyKey string, blocked bool) (*models.Assembly, error) {
	if propertyKey == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "property id is required")
	}
	changed := false
	asm, err := s.store.Execute(ctx, id, func(a *models.Assembly) error {
		changed = a.SetVoterBlocked(propertyKey, blocked, requestcontext.Now(ctx))
		return nil
	})
	if err != nil {
		return nil, translate(err, "failed to update blocked voters")
	}
	if changed {
		s.logAudit(ctx, audit.EventVoterBlocked, id, "property_id", propertyKey, "blocked", blocked)
		s.publish(ctx, id, "blocked_voters_changed")
	}
	return asm, nil
}

func (s *Service) UpdateConfig(ctx context.Context, id string, cfg models.Config) (*models.Assembly, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	asm, err := s.store.Execute(ctx, id, func(a *models.Assembly) error {
		a.Config = cfg
		a.UpdatedAt = requestcontext.Now(ctx)
		return nil
	})
	if err != nil {
		return nil, translate(err, "failed to update assembly config")
	}
	s.publish(ctx, id, "config_changed")
	return asm, nil
}

func translate(err error, msg string) error {
	var de *dErrors.Error
	switch {
	case errors.As(err, &de):
		return err
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "assembly not found")
	case errors.Is(err, sentinel.ErrInvalidState):
		return dErrors.New(dErrors.CodeInvalidState, msg)
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, msg)
	}
}

func (s *Service) publish(ctx context.Context, id, action string) {
	if s.changes == nil {
		return
	}
	if err := s.changes.Publish(ctx, changefeed.Change{EntityType: changefeed.EntityAssembly, EntityID: id, Action: action}); err != nil {
		s.logger.WarnContext(ctx, "failed to publish assembly change", "assembly_id", id, "error", err)
	}
}

func (s *Service) logAudit(ctx context.Context, event audit.AuditEvent, assemblyID string, attrs ...any) {
	args := append(attrs, "assembly_id", assemblyID, "request_id", requestcontext.RequestID(ctx))
	s.logger.InfoContext(ctx, string(event), args...)
	if s.auditPublisher == nil {
		return
	}
	if err := s.auditPublisher.Emit(ctx, audit.Event{
		AssemblyID: assemblyID,
		Action:     string(event),
	}); err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event", "action", string(event), "error", err)
	}
}
