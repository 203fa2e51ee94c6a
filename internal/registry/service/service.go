package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"asamblea/internal/changefeed"
	"asamblea/internal/registry/models"
	audit "asamblea/pkg/platform/audit"
	dErrors "asamblea/pkg/domain-errors"
	"asamblea/pkg/platform/sentinel"
	"asamblea/pkg/requestcontext"
)

type Store interface {
	Import(ctx context.Context, listID string, records []models.PropertyRecord) error
	List(ctx context.Context, listID string) (models.Registry, error)
	FindByID(ctx context.Context, listID, id string) (*models.PropertyRecord, error)
	Update(ctx context.Context, listID, id string, patch models.Patch) (*models.PropertyRecord, error)
	SoftDeleteIfUnregistered(ctx context.Context, listID, id string) (*models.PropertyRecord, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type ChangePublisher interface {
	Publish(ctx context.Context, change changefeed.Change) error
}

// Service administers property registries: bulk import, soft deletion,
// global vote blocking and quorum.
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
		return nil, errors.New("registry store is required")
	}
	s := &Service{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Import validates and inserts a batch of records. Ids must be unique within
// the batch and must not already exist in the list.
func (s *Service) Import(ctx context.Context, listID string, records []models.PropertyRecord) (int, error) {
	if listID == "" {
		return 0, dErrors.New(dErrors.CodeValidation, "list id is required")
	}
	if len(records) == 0 {
		return 0, dErrors.New(dErrors.CodeValidation, "at least one property is required")
	}
	seen := make(map[string]struct{}, len(records))
	clean := make([]models.PropertyRecord, 0, len(records))
	for _, rec := range records {
		if err := rec.Validate(); err != nil {
			return 0, err
		}
		if _, dup := seen[rec.ID]; dup {
			return 0, dErrors.New(dErrors.CodeValidation, fmt.Sprintf("duplicate property id %s", rec.ID))
		}
		seen[rec.ID] = struct{}{}
		// Imported rows never arrive claimed.
		rec.RegisteredInAssembly = false
		rec.Registration = nil
		clean = append(clean, rec)
	}
	if err := s.store.Import(ctx, listID, clean); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return 0, dErrors.New(dErrors.CodeConflict, "one or more properties already exist")
		}
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to import registry")
	}
	s.logAudit(ctx, audit.EventRegistryImported, listID, "", "count", len(clean))
	s.publish(ctx, listID, "imported")
	return len(clean), nil
}

func (s *Service) List(ctx context.Context, listID string) (models.Registry, error) {
	reg, err := s.store.List(ctx, listID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load registry")
	}
	return reg, nil
}

// SoftDelete hides a record from matching and voting. Registered records
// cannot be deleted.
func (s *Service) SoftDelete(ctx context.Context, listID, id string) (*models.PropertyRecord, error) {
	rec, err := s.store.SoftDeleteIfUnregistered(ctx, listID, id)
	if err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, dErrors.New(dErrors.CodeNotFound, "property not found")
		case errors.Is(err, sentinel.ErrInvalidState):
			return nil, dErrors.New(dErrors.CodeInvalidState, "property is registered and cannot be deleted")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete property")
	}
	s.logAudit(ctx, audit.EventPropertyDeleted, listID, id)
	s.publish(ctx, listID, "property_deleted")
	return rec, nil
}

// SetVoteBlocked sets the global lock that removes a property from every
// attendee's active set.
func (s *Service) SetVoteBlocked(ctx context.Context, listID, id string, blocked bool) (*models.PropertyRecord, error) {
	rec, err := s.store.Update(ctx, listID, id, models.Patch{VoteBlocked: &blocked})
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "property not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update property")
	}
	s.logAudit(ctx, audit.EventPropertyVoteBlocked, listID, id, "blocked", blocked)
	s.publish(ctx, listID, "property_vote_blocked")
	return rec, nil
}

func (s *Service) Quorum(ctx context.Context, listID string) (models.Quorum, error) {
	reg, err := s.store.List(ctx, listID)
	if err != nil {
		return models.Quorum{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load registry")
	}
	return models.ComputeQuorum(reg), nil
}

func (s *Service) publish(ctx context.Context, listID, action string) {
	if s.changes == nil {
		return
	}
	if err := s.changes.Publish(ctx, changefeed.Change{EntityType: changefeed.EntityRegistry, EntityID: listID, Action: action}); err != nil {
		s.logger.WarnContext(ctx, "failed to publish registry change", "list_id", listID, "error", err)
	}
}

func (s *Service) logAudit(ctx context.Context, event audit.AuditEvent, listID, propertyID string, attrs ...any) {
	args := append(attrs, "list_id", listID, "request_id", requestcontext.RequestID(ctx))
	subject := listID
	if propertyID != "" {
		args = append(args, "property_id", propertyID)
		subject += "/" + propertyID
	}
	s.logger.InfoContext(ctx, string(event), args...)
	if s.auditPublisher == nil {
		return
	}
	if err := s.auditPublisher.Emit(ctx, audit.Event{
		Subject: subject,
		Action:  string(event),
	}); err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event", "action", string(event), "error", err)
	}
}
