package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	assemblyModels "asamblea/internal/assembly/models"
	registryModels "asamblea/internal/registry/models"
	"asamblea/internal/voting/ballot"
	"asamblea/internal/voting/service"
	dErrors "asamblea/pkg/domain-errors"
	"asamblea/pkg/platform/httputil"
	"asamblea/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks

type Service interface {
	ActiveProperties(ctx context.Context, sessionID string) ([]registryModels.PropertyRecord, error)
	ListForAttendee(ctx context.Context, sessionID string) ([]service.QuestionView, error)
	Mode(ctx context.Context, sessionID string) (ballot.ModeResolution, error)
	SetMode(ctx context.Context, sessionID string, mode assemblyModels.VotingMode) (ballot.ModeResolution, error)
	Submit(ctx context.Context, sessionID, questionID string, req service.BallotRequest) (*service.BallotResult, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(svc Service, logger *slog.Logger) *Handler {
	return &Handler{service: svc, logger: logger}
}

// Register mounts the attendee voting routes; the router must carry the
// session middleware.
func (h *Handler) Register(r chi.Router) {
	r.Get("/voting/properties", h.handleProperties)
	r.Get("/voting/questions", h.handleQuestions)
	r.Get("/voting/mode", h.handleMode)
	r.Post("/voting/mode", h.handleSetMode)
	r.Post("/voting/questions/{questionID}/ballots", h.handleSubmit)
}

type propertiesResponse struct {
	Properties []registryModels.PropertyRecord `json:"properties"`
}

func (h *Handler) handleProperties(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	active, err := h.service.ActiveProperties(ctx, requestcontext.SessionID(ctx))
	if err != nil {
		h.fail(ctx, w, "properties", err)
		return
	}
	if active == nil {
		active = []registryModels.PropertyRecord{}
	}
	httputil.WriteJSON(w, http.StatusOK, propertiesResponse{Properties: active})
}

type questionsResponse struct {
	Questions []service.QuestionView `json:"questions"`
}

func (h *Handler) handleQuestions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	views, err := h.service.ListForAttendee(ctx, requestcontext.SessionID(ctx))
	if err != nil {
		h.fail(ctx, w, "questions", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, questionsResponse{Questions: views})
}

type modeResponse struct {
	Mode       assemblyModels.VotingMode `json:"mode,omitempty"`
	Source     ballot.ModeSource         `json:"source,omitempty"`
	MustChoose bool                      `json:"must_choose"`
}

func toModeResponse(res ballot.ModeResolution) modeResponse {
	return modeResponse{Mode: res.Mode, Source: res.Source, MustChoose: res.NeedsChoice()}
}

func (h *Handler) handleMode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	res, err := h.service.Mode(ctx, requestcontext.SessionID(ctx))
	if err != nil {
		h.fail(ctx, w, "mode", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toModeResponse(res))
}

type setModeRequest struct {
	Mode assemblyModels.VotingMode `json:"mode"`
}

func (h *Handler) handleSetMode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req setModeRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	res, err := h.service.SetMode(ctx, requestcontext.SessionID(ctx), req.Mode)
	if err != nil {
		h.fail(ctx, w, "set_mode", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toModeResponse(res))
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	questionID := chi.URLParam(r, "questionID")
	if questionID == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "question id is required"))
		return
	}
	var req service.BallotRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	res, err := h.service.Submit(ctx, requestcontext.SessionID(ctx), questionID, req)
	if err != nil {
		h.fail(ctx, w, "submit", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, op string, err error) {
	level := slog.LevelWarn
	switch dErrors.CodeOf(err) {
	case dErrors.CodeInternal, dErrors.CodeUnavailable:
		level = slog.LevelError
	}
	h.logger.Log(ctx, level, "voting request failed",
		"op", op,
		"request_id", requestcontext.RequestID(ctx),
		"error", err,
	)
	httputil.WriteError(w, err)
}
