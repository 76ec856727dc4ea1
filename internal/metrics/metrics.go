// Package metrics defines the Prometheus collectors of the booking service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label values shared by the booking counters.
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// Metrics groups every collector.  A nil *Metrics is valid and records
// nothing, which keeps services usable without a registry.
type Metrics struct {
	HTTPRequests  *prometheus.CounterVec
	HTTPDuration  *prometheus.HistogramVec
	Holds         *prometheus.CounterVec
	Checkouts     *prometheus.CounterVec
	Cancellations *prometheus.CounterVec
	SlotsReleased prometheus.Counter
}

// New registers the collectors on reg under the given namespace.
func New(reg prometheus.Registerer, namespace string) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		Holds: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "slot_holds_total",
			Help:      "Slot hold attempts by outcome.",
		}, []string{"outcome"}),
		Checkouts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkouts_total",
			Help:      "Checkout steps (intent, confirm) by outcome.",
		}, []string{"step", "outcome"}),
		Cancellations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cancellations_total",
			Help:      "Cancellation attempts by outcome.",
		}, []string{"outcome"}),
		SlotsReleased: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "slots_released_total",
			Help:      "Slots returned to inventory by cart removal, cancellation or reconcile.",
		}),
	}
}

func (m *Metrics) Hold(outcome string) {
	if m != nil {
		m.Holds.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) Checkout(step, outcome string) {
	if m != nil {
		m.Checkouts.WithLabelValues(step, outcome).Inc()
	}
}

func (m *Metrics) Cancellation(outcome string) {
	if m != nil {
		m.Cancellations.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) Released(n int) {
	if m != nil && n > 0 {
		m.SlotsReleased.Add(float64(n))
	}
}
