package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Result labels shared by the counters.
const (
	ResultAcquired = "acquired"
	ResultLost     = "lost"
	ResultApplied  = "applied"
	ResultStale    = "stale"
	ResultSent     = "sent"
	ResultFailed   = "failed"
	ResultIssued   = "issued"
	ResultSkipped  = "skipped"
	ResultError    = "error"
)

// Metrics holds the order lifecycle counters. A nil *Metrics is a no-op.
type Metrics struct {
	registry      *prometheus.Registry
	claims        *prometheus.CounterVec
	transitions   *prometheus.CounterVec
	finalizations *prometheus.CounterVec
	notifications *prometheus.CounterVec
	refunds       *prometheus.CounterVec
}

// New registers the counters on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		claims: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "orderhub_claims_total",
			Help: "Idempotency claim attempts by field and outcome.",
		}, []string{"field", "result"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "orderhub_transitions_total",
			Help: "Conditional order status transitions by target status and outcome.",
		}, []string{"to", "result"}),
		finalizations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "orderhub_finalize_outcomes_total",
			Help: "Payment finalization outcomes by status tag.",
		}, []string{"status"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "orderhub_notifications_total",
			Help: "Outbound vendor notifications by kind and outcome.",
		}, []string{"kind", "result"}),
		refunds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "orderhub_refunds_total",
			Help: "Refund attempts by outcome.",
		}, []string{"result"}),
	}
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.claims,
		m.transitions,
		m.finalizations,
		m.notifications,
		m.refunds,
	)
	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Claim(field, result string) {
	if m == nil {
		return
	}
	m.claims.WithLabelValues(field, result).Inc()
}

func (m *Metrics) Transition(to, result string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(to, result).Inc()
}

func (m *Metrics) Finalization(status string) {
	if m == nil {
		return
	}
	m.finalizations.WithLabelValues(status).Inc()
}

func (m *Metrics) Notification(kind, result string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(kind, result).Inc()
}

func (m *Metrics) Refund(result string) {
	if m == nil {
		return
	}
	m.refunds.WithLabelValues(result).Inc()
}
