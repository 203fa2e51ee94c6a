package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the registration module.
type Metrics struct {
	// Resolve outcomes by kind, including rejection codes
	ResolveOutcome *prometheus.CounterVec

	// Full commit latency: uploads, attendee write and stamps
	CommitLatency prometheus.Histogram

	// Per-record failures after the attendee was written
	StampFailures prometheus.Counter

	// Best-effort authorization uploads that failed
	UploadFailures prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ResolveOutcome: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "asamblea_registration_resolve_outcomes_total",
			Help: "Document resolutions by outcome",
		}, []string{"outcome"}),

		CommitLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "asamblea_registration_commit_duration_seconds",
			Help:    "Duration of registration commits including uploads and stamps",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),

		StampFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "asamblea_registration_stamp_failures_total",
			Help: "Registry records that could not be stamped after an attendee was created",
		}),

		UploadFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "asamblea_registration_upload_failures_total",
			Help: "Authorization file uploads that failed",
		}),
	}
}

func (m *Metrics) IncrementResolveOutcome(outcome string) {
	if m != nil {
		m.ResolveOutcome.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) ObserveCommitLatency(d time.Duration) {
	if m != nil {
		m.CommitLatency.Observe(d.Seconds())
	}
}

func (m *Metrics) AddStampFailures(n int) {
	if m != nil && n > 0 {
		m.StampFailures.Add(float64(n))
	}
}

func (m *Metrics) IncrementUploadFailures() {
	if m != nil {
		m.UploadFailures.Inc()
	}
}
