// Package metrics provides Prometheus metrics for the check-in engine
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome label values for transition counters
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeNotFound = "not_found"
	OutcomeError    = "error"
)

// CheckinMetrics contains Prometheus metrics for consolidation and state transitions
type CheckinMetrics struct {
	transitionsTotal      *prometheus.CounterVec
	sourceFailuresTotal   *prometheus.CounterVec
	relinkedTotal         prometheus.Counter
	sideEffectFailures    *prometheus.CounterVec
	consolidationDuration prometheus.Histogram
	dispatchDroppedTotal  prometheus.Counter

	// collectors is a slice of all collectors for easier iteration
	collectors []prometheus.Collector
}

// NewCheckinMetrics creates and registers new check-in metrics
func NewCheckinMetrics(registry prometheus.Registerer) (*CheckinMetrics, error) {
	m := &CheckinMetrics{}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

// initMetrics initializes all Prometheus metrics
func (m *CheckinMetrics) initMetrics() {
	m.transitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkin_transitions_total",
			Help: "Total number of check-in and check-out attempts",
		},
		[]string{"entity", "action", "outcome"}, // action: checkin, checkout
	)

	m.sourceFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkin_source_failures_total",
			Help: "Total number of attendee source reads that failed and were reported empty",
		},
		[]string{"source"},
	)

	m.relinkedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "checkin_relinked_reservations_total",
			Help: "Total number of reservations re-pointed at the queried event",
		},
	)

	m.sideEffectFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkin_side_effect_failures_total",
			Help: "Total number of best-effort side effects that failed",
		},
		[]string{"kind"}, // kind: reward, refresh, ledger, resolve
	)

	m.consolidationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "checkin_consolidation_duration_seconds",
			Help:    "Time taken to build a consolidated check-in view",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
		},
	)

	m.dispatchDroppedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "checkin_dispatch_dropped_total",
			Help: "Total number of side-effect tasks dropped because the queue was full",
		},
	)

	m.collectors = []prometheus.Collector{
		m.transitionsTotal,
		m.sourceFailuresTotal,
		m.relinkedTotal,
		m.sideEffectFailures,
		m.consolidationDuration,
		m.dispatchDroppedTotal,
	}
}

// Describe implements the prometheus.Collector interface
func (m *CheckinMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, c := range m.collectors {
		c.Describe(ch)
	}
}

// Collect implements the prometheus.Collector interface
func (m *CheckinMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, c := range m.collectors {
		c.Collect(ch)
	}
}

// RecordTransition counts one check-in or check-out attempt.
func (m *CheckinMetrics) RecordTransition(entity, action, outcome string) {
	if m == nil {
		return
	}
	m.transitionsTotal.WithLabelValues(entity, action, outcome).Inc()
}

// RecordSourceFailure counts an attendee source that degraded to empty.
func (m *CheckinMetrics) RecordSourceFailure(source string) {
	if m == nil {
		return
	}
	m.sourceFailuresTotal.WithLabelValues(source).Inc()
}

// RecordRelinked adds n re-pointed reservations.
func (m *CheckinMetrics) RecordRelinked(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.relinkedTotal.Add(float64(n))
}

// RecordSideEffectFailure counts a failed best-effort side effect.
func (m *CheckinMetrics) RecordSideEffectFailure(kind string) {
	if m == nil {
		return
	}
	m.sideEffectFailures.WithLabelValues(kind).Inc()
}

// ObserveConsolidation records how long a consolidated view took.
func (m *CheckinMetrics) ObserveConsolidation(d time.Duration) {
	if m == nil {
		return
	}
	m.consolidationDuration.Observe(d.Seconds())
}

// RecordDispatchDropped counts a side-effect task dropped on a full queue.
func (m *CheckinMetrics) RecordDispatchDropped() {
	if m == nil {
		return
	}
	m.dispatchDroppedTotal.Inc()
}
