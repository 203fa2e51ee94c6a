// Package httpapi assembles the public HTTP surface from the module handlers.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	adminHandler "asamblea/internal/admin/handler"
	"asamblea/internal/blobstore"
	changefeedHandler "asamblea/internal/changefeed/handler"
	"asamblea/internal/platform/metrics"
	"asamblea/internal/platform/middleware"
	registrationHandler "asamblea/internal/registration/handler"
	votingHandler "asamblea/internal/voting/handler"
	"asamblea/pkg/platform/httputil"
)

const (
	defaultMaxBodyBytes = 1 << 20
	healthCheckTimeout  = 2 * time.Second
)

// HealthCheck probes one backend.
type HealthCheck func(ctx context.Context) error

// Deps carries everything the router mounts. Nil handlers leave their routes
// unmounted; without Tokens no session route is served.
type Deps struct {
	Registration *registrationHandler.Handler
	Voting       *votingHandler.Handler
	Admin        *adminHandler.Handler
	Changes      *changefeedHandler.Handler

	Tokens   middleware.TokenValidator
	Limiter  *middleware.ClientLimiter
	Files    blobstore.Store
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
	Logger   *slog.Logger
	Checks   map[string]HealthCheck

	MaxBodyBytes int64
}

func NewRouter(d Deps) http.Handler {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxBody := d.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBodyBytes
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.LatencyMiddleware(d.Metrics))

	r.Get("/healthz", healthz(d.Checks, logger))
	if d.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}
	if d.Files != nil {
		r.Handle("/files/*", blobstore.Handler(d.Files))
	}
	if d.Changes != nil {
		d.Changes.Register(r)
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.MaxBodyBytes(maxBody))

		if d.Registration != nil {
			r.Group(func(r chi.Router) {
				if d.Limiter != nil {
					r.Use(d.Limiter.Middleware)
				}
				d.Registration.RegisterPublic(r)
			})
		}

		if d.Tokens != nil {
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireSession(d.Tokens, logger))
				if d.Registration != nil {
					d.Registration.RegisterSession(r)
				}
				if d.Voting != nil {
					d.Voting.Register(r)
				}
			})
		}

		if d.Admin != nil {
			d.Admin.Register(r)
		}
	})

	return r
}

func healthz(checks map[string]HealthCheck, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()

		status := http.StatusOK
		report := map[string]string{"status": "ok"}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				logger.WarnContext(ctx, "health check failed", "backend", name, "error", err)
				status = http.StatusServiceUnavailable
				report["status"] = "degraded"
				report[name] = "unreachable"
				continue
			}
			report[name] = "ok"
		}
		httputil.WriteJSON(w, status, report)
	}
}
