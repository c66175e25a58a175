package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for case admission.
type Metrics struct {
	// Admission decisions by result and reason
	Decisions *prometheus.CounterVec

	// State transitions by target state
	Transitions *prometheus.CounterVec

	// Event publish failures by event type
	PublishFailures *prometheus.CounterVec

	AdmitLatency prometheus.Histogram
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "caseintake_admission_decisions_total",
			Help: "Case admission decisions by result and reason",
		}, []string{"result", "reason"}), // result: "admitted", "rejected"

		Transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "caseintake_case_transitions_total",
			Help: "Case state transitions by target state",
		}, []string{"state"}),

		PublishFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "caseintake_case_event_publish_failures_total",
			Help: "Case events that could not be published",
		}, []string{"type"}),

		AdmitLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "caseintake_admission_duration_seconds",
			Help:    "Duration of case admission including storage",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

func (m *Metrics) IncrementAdmitted() {
	if m != nil {
		m.Decisions.WithLabelValues("admitted", "").Inc()
	}
}

func (m *Metrics) IncrementRejected(reason string) {
	if m != nil {
		m.Decisions.WithLabelValues("rejected", reason).Inc()
	}
}

func (m *Metrics) IncrementTransition(state string) {
	if m != nil {
		m.Transitions.WithLabelValues(state).Inc()
	}
}

func (m *Metrics) IncrementPublishFailure(eventType string) {
	if m != nil {
		m.PublishFailures.WithLabelValues(eventType).Inc()
	}
}

func (m *Metrics) ObserveAdmit(d time.Duration) {
	if m != nil {
		m.AdmitLatency.Observe(d.Seconds())
	}
}
