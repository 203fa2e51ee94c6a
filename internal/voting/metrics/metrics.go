package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for ballots and questions.
type Metrics struct {
	// Submissions by mode and outcome (written, already_voted, rejected)
	Ballots *prometheus.CounterVec

	// Answers written, one per property
	AnswersWritten prometheus.Counter

	SubmitLatency prometheus.Histogram

	// Question lifecycle transitions by target status
	QuestionTransitions *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Ballots: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "asamblea_voting_ballots_total",
			Help: "Ballot submissions by voting mode and outcome",
		}, []string{"mode", "outcome"}),

		AnswersWritten: factory.NewCounter(prometheus.CounterOpts{
			Name: "asamblea_voting_answers_written_total",
			Help: "Per-property answers written by ballot submissions",
		}),

		SubmitLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "asamblea_voting_submit_duration_seconds",
			Help:    "Duration of ballot submissions including rights computation",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),

		QuestionTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "asamblea_voting_question_transitions_total",
			Help: "Question lifecycle transitions by target status",
		}, []string{"status"}),
	}
}

func (m *Metrics) IncrementBallot(mode, outcome string) {
	if m != nil {
		m.Ballots.WithLabelValues(mode, outcome).Inc()
	}
}

func (m *Metrics) AddAnswers(n int) {
	if m != nil && n > 0 {
		m.AnswersWritten.Add(float64(n))
	}
}

func (m *Metrics) ObserveSubmitLatency(d time.Duration) {
	if m != nil {
		m.SubmitLatency.Observe(d.Seconds())
	}
}

func (m *Metrics) IncrementTransition(status string) {
	if m != nil {
		m.QuestionTransitions.WithLabelValues(status).Inc()
	}
}
