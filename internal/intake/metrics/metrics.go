package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the customer resolution workflow.
type Metrics struct {
	// Workflow runs by terminal outcome
	RunOutcome *prometheus.CounterVec

	// Record lookups by call site and result
	FetchLatency *prometheus.HistogramVec

	// Poll ticks spent waiting for the summary panel
	PanelPollTicks prometheus.Histogram

	// Banner operations by notification id and action
	Notifications *prometheus.CounterVec

	// Record cache lookups by result
	RecordCache *prometheus.CounterVec
}

// New registers the intake metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RunOutcome: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "caseintake_workflow_runs_total",
			Help: "Customer resolution workflow runs by outcome",
		}, []string{"outcome"}),

		FetchLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "caseintake_record_fetch_duration_seconds",
			Help:    "Duration of record service lookups by call site and result",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"call_site", "result"}), // call_site: "organization", "person"

		PanelPollTicks: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "caseintake_panel_poll_ticks",
			Help:    "Poll ticks until the summary panel reported loaded",
			Buckets: []float64{1, 2, 3, 5, 10, 20, 50},
		}),

		Notifications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "caseintake_notifications_total",
			Help: "Notification banners set or cleared by id",
		}, []string{"id", "action"}),

		RecordCache: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "caseintake_record_cache_lookups_total",
			Help: "Record cache lookups by result",
		}, []string{"result"}), // result: "hit", "miss", "error"
	}
}

// IncrementOutcome records a workflow outcome.
func (m *Metrics) IncrementOutcome(outcome string) {
	if m != nil {
		m.RunOutcome.WithLabelValues(outcome).Inc()
	}
}

// ObserveFetch records a record lookup.
func (m *Metrics) ObserveFetch(callSite, result string, d time.Duration) {
	if m != nil {
		m.FetchLatency.WithLabelValues(callSite, result).Observe(d.Seconds())
	}
}

// ObservePollTicks records how many ticks a panel wait took.
func (m *Metrics) ObservePollTicks(ticks int) {
	if m != nil {
		m.PanelPollTicks.Observe(float64(ticks))
	}
}

// IncrementNotification records a banner set or clear.
func (m *Metrics) IncrementNotification(id, action string) {
	if m != nil {
		m.Notifications.WithLabelValues(id, action).Inc()
	}
}

// IncrementCache records a record cache lookup.
func (m *Metrics) IncrementCache(result string) {
	if m != nil {
		m.RecordCache.WithLabelValues(result).Inc()
	}
}
