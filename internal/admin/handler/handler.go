// Package handler exposes registry, assembly and question administration.
package handler

import (
	"cmp"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"

	"asamblea/internal/admin"
	assemblyModels "asamblea/internal/assembly/models"
	registryModels "asamblea/internal/registry/models"
	votingModels "asamblea/internal/voting/models"
	votingService "asamblea/internal/voting/service"
	dErrors "asamblea/pkg/domain-errors"
	audit "asamblea/pkg/platform/audit"
	"asamblea/pkg/platform/audit/publisher"
	"asamblea/pkg/platform/httputil"
	"asamblea/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks

type RegistryService interface {
	Import(ctx context.Context, listID string, records []registryModels.PropertyRecord) (int, error)
	List(ctx context.Context, listID string) (registryModels.Registry, error)
	SoftDelete(ctx context.Context, listID, id string) (*registryModels.PropertyRecord, error)
	SetVoteBlocked(ctx context.Context, listID, id string, blocked bool) (*registryModels.PropertyRecord, error)
	Quorum(ctx context.Context, listID string) (registryModels.Quorum, error)
}

type AssemblyService interface {
	Create(ctx context.Context, name, entityID string, cfg assemblyModels.Config) (*assemblyModels.Assembly, error)
	Get(ctx context.Context, id string) (*assemblyModels.Assembly, error)
	Transition(ctx context.Context, id string, status assemblyModels.Status) (*assemblyModels.Assembly, error)
	SetVoterBlocked(ctx context.Context, id, propertyKey string, blocked bool) (*assemblyModels.Assembly, error)
	UpdateConfig(ctx context.Context, id string, cfg assemblyModels.Config) (*assemblyModels.Assembly, error)
}

type QuestionService interface {
	CreateQuestion(ctx context.Context, assemblyID string, req votingService.CreateQuestionRequest) (*votingModels.Question, error)
	Questions(ctx context.Context, assemblyID string) ([]*votingModels.Question, error)
	Launch(ctx context.Context, questionID string) (*votingModels.Question, error)
	Finish(ctx context.Context, questionID string) (*votingModels.Question, error)
	Cancel(ctx context.Context, questionID string) (*votingModels.Question, error)
	Results(ctx context.Context, questionID string) (votingModels.Results, error)
}

// AuditLog reads an assembly's audit trail back.
type AuditLog interface {
	List(ctx context.Context, assemblyID string) ([]audit.Event, error)
}

type Handler struct {
	registry   RegistryService
	assemblies AssemblyService
	questions  QuestionService
	auditLog   AuditLog
	logger     *slog.Logger
}

type Option func(*Handler)

// WithAuditLog mounts GET /admin/assemblies/{assemblyID}/audit.
func WithAuditLog(log AuditLog) Option {
	return func(h *Handler) {
		h.auditLog = log
	}
}

func New(registry RegistryService, assemblies AssemblyService, questions QuestionService, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{registry: registry, assemblies: assemblies, questions: questions, logger: logger}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts every route under /admin.
func (h *Handler) Register(r chi.Router) {
	r.Route("/admin", func(r chi.Router) {
		r.Route("/registries/{listID}", func(r chi.Router) {
			r.Get("/", h.handleListRegistry)
			r.Post("/import", h.handleImport)
			r.Get("/quorum", h.handleQuorum)
			r.Post("/properties/{propertyID}/delete", h.handleSoftDelete)
			r.Post("/properties/{propertyID}/block", h.handleVoteBlock)
		})
		r.Post("/assemblies", h.handleCreateAssembly)
		r.Route("/assemblies/{assemblyID}", func(r chi.Router) {
			r.Get("/", h.handleGetAssembly)
			r.Post("/status", h.handleAssemblyStatus)
			r.Post("/config", h.handleAssemblyConfig)
			r.Post("/blocked-voters", h.handleBlockedVoter)
			r.Get("/questions", h.handleListQuestions)
			r.Post("/questions", h.handleCreateQuestion)
			if h.auditLog != nil {
				r.Get("/audit", h.handleAudit)
			}
		})
		r.Route("/questions/{questionID}", func(r chi.Router) {
			r.Post("/launch", h.questionTransition(h.questions.Launch))
			r.Post("/finish", h.questionTransition(h.questions.Finish))
			r.Post("/cancel", h.questionTransition(h.questions.Cancel))
			r.Get("/results", h.handleResults)
		})
	})
}

// =============================================================================
// Registry
// =============================================================================

type importRequest struct {
	Properties []registryModels.PropertyRecord `json:"properties"`
}

func (h *Handler) handleImport(w http.ResponseWriter, r *http.Request) {
	listID := chi.URLParam(r, "listID")
	var req importRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	n, err := h.registry.Import(r.Context(), listID, req.Properties)
	if err != nil {
		h.fail(r.Context(), w, "registry_import", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, admin.ImportResponse{ListID: listID, Imported: n})
}

type registryResponse struct {
	Properties []registryModels.PropertyRecord `json:"properties"`
}

func (h *Handler) handleListRegistry(w http.ResponseWriter, r *http.Request) {
	reg, err := h.registry.List(r.Context(), chi.URLParam(r, "listID"))
	if err != nil {
		h.fail(r.Context(), w, "registry_list", err)
		return
	}
	out := make([]registryModels.PropertyRecord, 0, len(reg))
	for _, rec := range reg {
		out = append(out, rec)
	}
	slices.SortFunc(out, func(a, b registryModels.PropertyRecord) int {
		return cmp.Compare(a.ID, b.ID)
	})
	httputil.WriteJSON(w, http.StatusOK, registryResponse{Properties: out})
}

func (h *Handler) handleQuorum(w http.ResponseWriter, r *http.Request) {
	q, err := h.registry.Quorum(r.Context(), chi.URLParam(r, "listID"))
	if err != nil {
		h.fail(r.Context(), w, "registry_quorum", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, admin.NewQuorumResponse(q))
}

func (h *Handler) handleSoftDelete(w http.ResponseWriter, r *http.Request) {
	rec, err := h.registry.SoftDelete(r.Context(), chi.URLParam(r, "listID"), chi.URLParam(r, "propertyID"))
	if err != nil {
		h.fail(r.Context(), w, "registry_delete", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, rec)
}

type blockRequest struct {
	Blocked *bool `json:"blocked"`
}

func (h *Handler) handleVoteBlock(w http.ResponseWriter, r *http.Request) {
	var req blockRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if req.Blocked == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "blocked is required"))
		return
	}
	rec, err := h.registry.SetVoteBlocked(r.Context(), chi.URLParam(r, "listID"), chi.URLParam(r, "propertyID"), *req.Blocked)
	if err != nil {
		h.fail(r.Context(), w, "registry_block", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, rec)
}

// =============================================================================
// Assemblies
// =============================================================================

type createAssemblyRequest struct {
	Name     string                `json:"name"`
	EntityID string                `json:"entity_id"`
	Config   assemblyModels.Config `json:"config"`
}

func (h *Handler) handleCreateAssembly(w http.ResponseWriter, r *http.Request) {
	var req createAssemblyRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	asm, err := h.assemblies.Create(r.Context(), req.Name, req.EntityID, req.Config)
	if err != nil {
		h.fail(r.Context(), w, "assembly_create", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, asm)
}

func (h *Handler) handleGetAssembly(w http.ResponseWriter, r *http.Request) {
	asm, err := h.assemblies.Get(r.Context(), chi.URLParam(r, "assemblyID"))
	if err != nil {
		h.fail(r.Context(), w, "assembly_get", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, asm)
}

type statusRequest struct {
	Status assemblyModels.Status `json:"status"`
}

func (h *Handler) handleAssemblyStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	asm, err := h.assemblies.Transition(r.Context(), chi.URLParam(r, "assemblyID"), req.Status)
	if err != nil {
		h.fail(r.Context(), w, "assembly_status", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, asm)
}

func (h *Handler) handleAssemblyConfig(w http.ResponseWriter, r *http.Request) {
	var cfg assemblyModels.Config
	if err := httputil.DecodeJSON(r, &cfg); err != nil {
		httputil.WriteError(w, err)
		return
	}
	asm, err := h.assemblies.UpdateConfig(r.Context(), chi.URLParam(r, "assemblyID"), cfg)
	if err != nil {
		h.fail(r.Context(), w, "assembly_config", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, asm)
}

type blockedVoterRequest struct {
	PropertyID string `json:"property_id"`
	Blocked    *bool  `json:"blocked"`
}

func (h *Handler) handleBlockedVoter(w http.ResponseWriter, r *http.Request) {
	var req blockedVoterRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if req.PropertyID == "" || req.Blocked == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "property_id and blocked are required"))
		return
	}
	asm, err := h.assemblies.SetVoterBlocked(r.Context(), chi.URLParam(r, "assemblyID"), req.PropertyID, *req.Blocked)
	if err != nil {
		h.fail(r.Context(), w, "assembly_block_voter", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, asm)
}

// =============================================================================
// Questions
// =============================================================================

func (h *Handler) handleCreateQuestion(w http.ResponseWriter, r *http.Request) {
	var req votingService.CreateQuestionRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	q, err := h.questions.CreateQuestion(r.Context(), chi.URLParam(r, "assemblyID"), req)
	if err != nil {
		h.fail(r.Context(), w, "question_create", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, q)
}

func (h *Handler) handleListQuestions(w http.ResponseWriter, r *http.Request) {
	qs, err := h.questions.Questions(r.Context(), chi.URLParam(r, "assemblyID"))
	if err != nil {
		h.fail(r.Context(), w, "question_list", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, admin.QuestionsListResponse{Questions: qs, Total: len(qs)})
}

func (h *Handler) questionTransition(fn func(context.Context, string) (*votingModels.Question, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, err := fn(r.Context(), chi.URLParam(r, "questionID"))
		if err != nil {
			h.fail(r.Context(), w, "question_transition", err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, q)
	}
}

func (h *Handler) handleResults(w http.ResponseWriter, r *http.Request) {
	res, err := h.questions.Results(r.Context(), chi.URLParam(r, "questionID"))
	if err != nil {
		h.fail(r.Context(), w, "question_results", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

// =============================================================================
// Audit
// =============================================================================

type auditResponse struct {
	Events []audit.Event `json:"events"`
}

func (h *Handler) handleAudit(w http.ResponseWriter, r *http.Request) {
	events, err := h.auditLog.List(r.Context(), chi.URLParam(r, "assemblyID"))
	if err != nil {
		if errors.Is(err, publisher.ErrListUnsupported) {
			err = dErrors.New(dErrors.CodeUnavailable, "audit trail is not readable from this backend")
		} else {
			err = dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to read audit trail")
		}
		h.fail(r.Context(), w, "audit_trail", err)
		return
	}
	if events == nil {
		events = []audit.Event{}
	}
	httputil.WriteJSON(w, http.StatusOK, auditResponse{Events: events})
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, op string, err error) {
	level := slog.LevelWarn
	switch dErrors.CodeOf(err) {
	case dErrors.CodeInternal, dErrors.CodeUnavailable:
		level = slog.LevelError
	}
	h.logger.Log(ctx, level, "admin request failed",
		"op", op,
		"request_id", requestcontext.RequestID(ctx),
		"error", err,
	)
	httputil.WriteError(w, err)
}
