package service

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"asamblea/internal/blobstore"
	"asamblea/internal/changefeed"
	"asamblea/internal/registration/models"
	"asamblea/internal/registration/wizard"
	registryModels "asamblea/internal/registry/models"
	audit "asamblea/pkg/platform/audit"
	dErrors "asamblea/pkg/domain-errors"
	"asamblea/pkg/platform/sentinel"
	"asamblea/pkg/requestcontext"
)

// CommitRequest is everything needed to write a registration.
type CommitRequest struct {
	AssemblyID string
	Document   string
	Contact    models.ContactInfo
	Entries    []models.RegistrationEntry
}

// StampFailure is a registry record left unstamped after the attendee was
// created.
type StampFailure struct {
	PropertyID string `json:"property_id"`
	Reason     string `json:"reason"`
}

// CommitResult is a written registration. FailedStamps and FailedUploads
// are non-fatal: the attendee exists either way.
type CommitResult struct {
	Attendee      *models.Attendee `json:"attendee"`
	FailedStamps  []StampFailure   `json:"failed_stamps,omitempty"`
	FailedUploads []string         `json:"failed_uploads,omitempty"`
}

// Partial reports whether some registry records were not stamped.
func (r *CommitResult) Partial() bool {
	return len(r.FailedStamps) > 0
}

func (r *CommitResult) FailedPropertyIDs() []string {
	ids := make([]string, 0, len(r.FailedStamps))
	for _, f := range r.FailedStamps {
		ids = append(ids, f.PropertyID)
	}
	return ids
}

// Commit writes the registration collected by the session's wizard and binds
// the session to the new attendee.
func (s *Service) Commit(ctx context.Context, sessionID string) (*CommitResult, error) {
	sess, err := s.Session(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.IsRegistered() {
		return nil, dErrors.New(dErrors.CodeInvalidState, "registration is already complete")
	}
	if sess.Wizard.Step != wizard.StepCommitting {
		return nil, dErrors.New(dErrors.CodeInvalidState, "registration is not ready to commit")
	}

	result, err := s.CommitEntries(ctx, CommitRequest{
		AssemblyID: sess.AssemblyID,
		Document:   sess.Document,
		Contact:    sess.Wizard.Contact,
		Entries:    sess.Wizard.Entries,
	})
	if err != nil {
		return nil, err
	}

	next, err := wizard.Transition(sess.Wizard, wizard.Committed{AttendeeID: result.Attendee.ID})
	if err != nil {
		return nil, err
	}
	next.Entries = result.Attendee.Entries
	sess.Wizard = next
	sess.AttendeeID = result.Attendee.ID
	if err := s.sessions.Save(ctx, sess); err != nil {
		// The registration stands; resolving again yields the attendee.
		s.logger.WarnContext(ctx, "failed to bind session to attendee",
			"session_id", sess.ID,
			"attendee_id", result.Attendee.ID,
			"error", err,
		)
	}
	return result, nil
}

// CommitEntries uploads attachments, creates the attendee and then stamps
// every registry-backed entry. Errors returned before the attendee write are
// safe to retry; failures after it are reported in the result.
func (s *Service) CommitEntries(ctx context.Context, req CommitRequest) (*CommitResult, error) {
	start := time.Now()
	defer func() { s.metrics.ObserveCommitLatency(time.Since(start)) }()

	ctx, span := tracer.Start(ctx, "registration.commit",
		trace.WithAttributes(
			attribute.String("assembly_id", req.AssemblyID),
			attribute.Int("entries", len(req.Entries)),
		))
	defer span.End()

	result, err := s.commit(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, dErrors.MessageOf(err))
		return nil, err
	}
	span.SetAttributes(
		attribute.String("attendee_id", result.Attendee.ID),
		attribute.Int("failed_stamps", len(result.FailedStamps)),
	)
	return result, nil
}

func (s *Service) commit(ctx context.Context, req CommitRequest) (*CommitResult, error) {
	if err := validateCommit(req); err != nil {
		return nil, err
	}
	asm, err := s.assemblies.FindByID(ctx, req.AssemblyID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "assembly not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to load assembly, retry")
	}

	entries, failedUploads := s.uploadAttachments(ctx, req)

	attendee := &models.Attendee{
		ID:         uuid.NewString(),
		AssemblyID: req.AssemblyID,
		Document:   strings.TrimSpace(req.Document),
		Contact:    req.Contact.Normalize(),
		Entries:    entries,
		CreatedAt:  requestcontext.Now(ctx),
	}
	if err := s.attendees.Create(ctx, attendee); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "document is already registered for this assembly")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to save registration, retry")
	}
	s.logAudit(ctx, audit.EventAttendeeRegistered, auditEntry{
		AssemblyID: attendee.AssemblyID,
		AttendeeID: attendee.ID,
		Document:   attendee.Document,
	})

	// The attendee exists now; stamping continues even if the caller goes away.
	failures := s.stampRecords(context.WithoutCancel(ctx), asm.EntityID, attendee)
	s.metrics.AddStampFailures(len(failures))
	if len(failures) > 0 {
		s.logger.ErrorContext(ctx, "registration committed with unstamped properties",
			"assembly_id", attendee.AssemblyID,
			"attendee_id", attendee.ID,
			"failed", len(failures),
		)
	}
	s.publish(ctx, changefeed.EntityRegistry, asm.EntityID, "registered")

	return &CommitResult{
		Attendee:      attendee,
		FailedStamps:  failures,
		FailedUploads: failedUploads,
	}, nil
}

func validateCommit(req CommitRequest) error {
	if strings.TrimSpace(req.AssemblyID) == "" {
		return dErrors.New(dErrors.CodeValidation, "assembly id is required")
	}
	if strings.TrimSpace(req.Document) == "" {
		return dErrors.New(dErrors.CodeValidation, "document is required")
	}
	if len(req.Entries) == 0 {
		return dErrors.New(dErrors.CodeValidation, "at least one property is required")
	}
	seen := make(map[string]struct{}, len(req.Entries))
	for _, e := range req.Entries {
		if err := e.Ref.Validate(); err != nil {
			return dErrors.Wrap(err, dErrors.CodeValidation, "invalid property reference")
		}
		if !e.Role.IsValid() {
			return dErrors.New(dErrors.CodeValidation, "every property needs a role")
		}
		if _, dup := seen[e.Ref.Key()]; dup {
			return dErrors.New(dErrors.CodeValidation, "property listed twice: "+e.Ref.Key())
		}
		seen[e.Ref.Key()] = struct{}{}
	}
	return nil
}

// UploadKey is the storage path of an authorization file.
func UploadKey(assemblyID, document, propertyKey, token, filename string) string {
	return strings.Join([]string{
		"assemblies",
		blobstore.SafeSegment(assemblyID),
		blobstore.SafeSegment(document),
		blobstore.SafeSegment(propertyKey),
		token + "-" + blobstore.SafeSegment(filename),
	}, "/")
}

// uploadAttachments stores every attached file in parallel. A failed upload
// leaves its entry without a URL.
func (s *Service) uploadAttachments(ctx context.Context, req CommitRequest) ([]models.RegistrationEntry, []string) {
	entries := slices.Clone(req.Entries)
	var (
		mu     sync.Mutex
		failed []string
		g      errgroup.Group
	)
	g.SetLimit(s.concurrency)
	for i := range entries {
		attachment := entries[i].Attachment
		entries[i].Attachment = nil
		if attachment.IsEmpty() {
			continue
		}
		g.Go(func() error {
			key := UploadKey(req.AssemblyID, req.Document, entries[i].Ref.Key(),
				strings.ToLower(ulid.Make().String()), attachment.Filename)
			url, err := s.blobs.Put(ctx, key, blobstore.Blob{
				ContentType: attachment.ContentType,
				Data:        attachment.Data,
			})
			if err != nil {
				s.metrics.IncrementUploadFailures()
				s.logger.WarnContext(ctx, "authorization upload failed",
					"assembly_id", req.AssemblyID,
					"property_id", entries[i].Ref.Key(),
					"error", err,
				)
				mu.Lock()
				failed = append(failed, entries[i].Ref.Key())
				mu.Unlock()
				return nil
			}
			entries[i].PowerURL = url
			return nil
		})
	}
	_ = g.Wait()
	slices.Sort(failed)
	return entries, failed
}

func stampFailureReason(err error) string {
	switch {
	case errors.Is(err, sentinel.ErrInvalidState):
		return "property was removed from the registry"
	case errors.Is(err, sentinel.ErrConflict):
		return "property is already registered by another attendee"
	case errors.Is(err, sentinel.ErrNotFound):
		return "property not found in the registry"
	}
	return err.Error()
}

// stampRecords marks every registry-backed entry as registered. Manual
// entries have no record and are skipped. Records deleted or claimed by
// someone else since resolve are not overwritten and come back as failures.
func (s *Service) stampRecords(ctx context.Context, listID string, attendee *models.Attendee) []StampFailure {
	var (
		mu       sync.Mutex
		failures []StampFailure
		g        errgroup.Group
	)
	g.SetLimit(s.concurrency)
	now := requestcontext.Now(ctx)
	for _, entry := range attendee.Entries {
		if entry.Ref.IsManual() {
			continue
		}
		g.Go(func() error {
			stamp := registryModels.RegistrationStamp{
				Document:     attendee.Document,
				FirstName:    attendee.Contact.FirstName,
				LastName:     attendee.Contact.LastName,
				Email:        attendee.Contact.Email,
				Phone:        attendee.Contact.Phone,
				Role:         entry.Role,
				PowerURL:     entry.PowerURL,
				AttendeeID:   attendee.ID,
				RegisteredAt: now,
			}
			event := audit.EventPropertyStamped
			reason := ""
			if _, err := s.registry.StampIfUnclaimed(ctx, listID, entry.Ref.ID, stamp); err != nil {
				event = audit.EventStampFailed
				reason = stampFailureReason(err)
				mu.Lock()
				failures = append(failures, StampFailure{PropertyID: entry.Ref.ID, Reason: reason})
				mu.Unlock()
			}
			s.logAudit(ctx, event, auditEntry{
				AssemblyID: attendee.AssemblyID,
				AttendeeID: attendee.ID,
				PropertyID: entry.Ref.ID,
				Reason:     reason,
			})
			return nil
		})
	}
	_ = g.Wait()
	slices.SortFunc(failures, func(a, b StampFailure) int { return strings.Compare(a.PropertyID, b.PropertyID) })
	return failures
}
