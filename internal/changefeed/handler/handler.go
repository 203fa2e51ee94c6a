// Package handler streams change notifications as server-sent events.
package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"asamblea/internal/changefeed"
	"asamblea/internal/platform/metrics"
	dErrors "asamblea/pkg/domain-errors"
	"asamblea/pkg/platform/httputil"
)

const defaultHeartbeat = 25 * time.Second

type Handler struct {
	feed      changefeed.Feed
	logger    *slog.Logger
	metrics   *metrics.Metrics
	heartbeat time.Duration
}

type Option func(*Handler)

func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Handler) {
		h.metrics = m
	}
}

// WithHeartbeat sets how often an idle stream gets a comment line.
func WithHeartbeat(d time.Duration) Option {
	return func(h *Handler) {
		if d > 0 {
			h.heartbeat = d
		}
	}
}

func New(feed changefeed.Feed, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{feed: feed, logger: logger, heartbeat: defaultHeartbeat}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/events/{entityType}/{entityID}", h.HandleStream)
}

// HandleStream holds the connection open and writes one event per change to
// the entity until the client goes away.
func (h *Handler) HandleStream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	entityType := changefeed.EntityType(chi.URLParam(r, "entityType"))
	entityID := chi.URLParam(r, "entityID")
	if !entityType.IsValid() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "entity type must be registry, assembly or question"))
		return
	}
	if entityID == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "entity id is required"))
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "streaming unsupported"))
		return
	}

	changes := make(chan changefeed.Change, 16)
	cancel, err := h.feed.Subscribe(ctx, entityType, entityID, func(c changefeed.Change) {
		select {
		case changes <- c:
		default:
		}
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to subscribe to changes", "entity_type", entityType, "entity_id", entityID, "error", err)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeUnavailable, "change feed unavailable"))
		return
	}
	defer cancel()

	h.metrics.StreamOpened()
	defer h.metrics.StreamClosed()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case c := <-changes:
			data, err := json.Marshal(c)
			if err != nil {
				h.logger.WarnContext(ctx, "failed to encode change", "error", err)
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", c.Action, data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
