package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"asamblea/internal/registration/models"
	"asamblea/internal/registration/resolver"
	"asamblea/internal/registration/service"
	registryModels "asamblea/internal/registry/models"
	"asamblea/internal/session"
	dErrors "asamblea/pkg/domain-errors"
	"asamblea/pkg/platform/httputil"
	"asamblea/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks

// Service is the registration surface the handler needs.
type Service interface {
	Resolve(ctx context.Context, assemblyID, document string) (*service.ResolveResult, error)
	Session(ctx context.Context, sessionID string) (*session.Session, error)
	SubmitContact(ctx context.Context, sessionID string, contact models.ContactInfo) (*session.Session, error)
	Verify(ctx context.Context, sessionID string, role registryModels.Role, attachment *models.Attachment) (*session.Session, error)
	Choose(ctx context.Context, sessionID string, choice service.Choice) (*session.Session, error)
	SubmitManual(ctx context.Context, sessionID string, in service.ManualInput) (*session.Session, error)
	RemoveEntry(ctx context.Context, sessionID, key string) (*session.Session, error)
	Commit(ctx context.Context, sessionID string) (*service.CommitResult, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(svc Service, logger *slog.Logger) *Handler {
	return &Handler{service: svc, logger: logger}
}

// RegisterPublic mounts the unauthenticated resolve route. The caller wraps
// it with rate limiting.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Post("/assemblies/{assemblyID}/registration/resolve", h.handleResolve)
}

// RegisterSession mounts the wizard routes. The router must already carry
// the session middleware.
func (h *Handler) RegisterSession(r chi.Router) {
	r.Get("/registration/session", h.handleSession)
	r.Post("/registration/contact", h.handleContact)
	r.Post("/registration/verify", h.handleVerify)
	r.Post("/registration/choice", h.handleChoice)
	r.Post("/registration/manual", h.handleManual)
	r.Post("/registration/remove", h.handleRemove)
	r.Post("/registration/commit", h.handleCommit)
}

type resolveRequest struct {
	Document string `json:"document"`
}

type resolveResponse struct {
	Kind         resolver.Kind    `json:"kind"`
	MatchedCount int              `json:"matched_count"`
	Token        string           `json:"token"`
	Session      *session.Session `json:"session"`
	Attendee     *models.Attendee `json:"attendee,omitempty"`
}

func (h *Handler) handleResolve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req resolveRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	res, err := h.service.Resolve(ctx, chi.URLParam(r, "assemblyID"), req.Document)
	if err != nil {
		h.fail(ctx, w, "resolve", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, resolveResponse{
		Kind:         res.Kind,
		MatchedCount: res.MatchedCount,
		Token:        res.Token,
		Session:      res.Session,
		Attendee:     res.Attendee,
	})
}

func (h *Handler) handleSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.service.Session(r.Context(), requestcontext.SessionID(r.Context()))
	h.writeSession(w, r, "session", sess, err)
}

func (h *Handler) handleContact(w http.ResponseWriter, r *http.Request) {
	var contact models.ContactInfo
	if err := httputil.DecodeJSON(r, &contact); err != nil {
		httputil.WriteError(w, err)
		return
	}
	sess, err := h.service.SubmitContact(r.Context(), requestcontext.SessionID(r.Context()), contact)
	h.writeSession(w, r, "contact", sess, err)
}

type verifyRequest struct {
	Role       registryModels.Role `json:"role"`
	Attachment *models.Attachment  `json:"attachment,omitempty"`
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	sess, err := h.service.Verify(r.Context(), requestcontext.SessionID(r.Context()), req.Role, req.Attachment)
	h.writeSession(w, r, "verify", sess, err)
}

type choiceRequest struct {
	Choice service.Choice `json:"choice"`
}

func (h *Handler) handleChoice(w http.ResponseWriter, r *http.Request) {
	var req choiceRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	sess, err := h.service.Choose(r.Context(), requestcontext.SessionID(r.Context()), req.Choice)
	h.writeSession(w, r, "choice", sess, err)
}

type manualRequest struct {
	Group       string              `json:"group"`
	Property    string              `json:"property"`
	Coefficient float64             `json:"coefficient"`
	Role        registryModels.Role `json:"role"`
	Attachment  *models.Attachment  `json:"attachment,omitempty"`
}

func (h *Handler) handleManual(w http.ResponseWriter, r *http.Request) {
	var req manualRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	sess, err := h.service.SubmitManual(r.Context(), requestcontext.SessionID(r.Context()), service.ManualInput{
		Group:       req.Group,
		Property:    req.Property,
		Coefficient: req.Coefficient,
		Role:        req.Role,
		Attachment:  req.Attachment,
	})
	h.writeSession(w, r, "manual", sess, err)
}

type removeRequest struct {
	PropertyKey string `json:"property_key"`
}

func (h *Handler) handleRemove(w http.ResponseWriter, r *http.Request) {
	var req removeRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if req.PropertyKey == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "property_key is required"))
		return
	}
	sess, err := h.service.RemoveEntry(r.Context(), requestcontext.SessionID(r.Context()), req.PropertyKey)
	h.writeSession(w, r, "remove", sess, err)
}

type commitResponse struct {
	Attendee      *models.Attendee       `json:"attendee"`
	Partial       bool                   `json:"partial"`
	FailedStamps  []service.StampFailure `json:"failed_stamps,omitempty"`
	FailedUploads []string               `json:"failed_uploads,omitempty"`
}

// handleCommit answers 200 even when some stamps failed; the body carries
// the failed property ids so the client can show them.
func (h *Handler) handleCommit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	res, err := h.service.Commit(ctx, requestcontext.SessionID(ctx))
	if err != nil {
		h.fail(ctx, w, "commit", err)
		return
	}
	if res.Partial() {
		h.logger.WarnContext(ctx, "registration committed with failures",
			"request_id", requestcontext.RequestID(ctx),
			"failed_properties", res.FailedPropertyIDs(),
		)
	}
	httputil.WriteJSON(w, http.StatusOK, commitResponse{
		Attendee:      res.Attendee,
		Partial:       res.Partial(),
		FailedStamps:  res.FailedStamps,
		FailedUploads: res.FailedUploads,
	})
}

func (h *Handler) writeSession(w http.ResponseWriter, r *http.Request, op string, sess *session.Session, err error) {
	if err != nil {
		h.fail(r.Context(), w, op, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sess)
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, op string, err error) {
	level := slog.LevelWarn
	switch dErrors.CodeOf(err) {
	case dErrors.CodeInternal, dErrors.CodeUnavailable:
		level = slog.LevelError
	}
	h.logger.Log(ctx, level, "registration request failed",
		"op", op,
		"request_id", requestcontext.RequestID(ctx),
		"error", err,
	)
	httputil.WriteError(w, err)
}
