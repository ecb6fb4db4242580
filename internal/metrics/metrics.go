// Package metrics exposes Prometheus counters for registrations, participant
// outcomes, lifecycle signals and ticketing failures.
package metrics

import (
	"net/http"

	"github.com/ganot/dailylog/internal/domain/daily"
	"github.com/ganot/dailylog/internal/domain/registration"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "dailylog"

// Metrics owns a private registry so tests can build as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	registrations   *prometheus.CounterVec
	participants    *prometheus.CounterVec
	signals         *prometheus.CounterVec
	gatewayFailures *prometheus.CounterVec
	gatewayCalls    *prometheus.CounterVec
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registrations_total",
			Help:      "Registration requests by outcome.",
		}, []string{"outcome"}),
		participants: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "participants_total",
			Help:      "Mentioned participants by reconciliation bucket.",
		}, []string{"bucket"}),
		signals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lifecycle_signals_total",
			Help:      "Session start/end signals by kind and result.",
		}, []string{"kind", "result"}),
		gatewayFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticketing_failures_total",
			Help:      "Failed ticketing-service calls by operation.",
		}, []string{"op"}),
		gatewayCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticketing_calls_total",
			Help:      "Ticketing-service calls by operation.",
		}, []string{"op"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.registrations,
		m.participants,
		m.signals,
		m.gatewayFailures,
		m.gatewayCalls,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveReport counts a registration outcome and its participant buckets.
func (m *Metrics) ObserveReport(r *registration.Report) {
	if m == nil || r == nil {
		return
	}
	m.registrations.WithLabelValues(string(r.Outcome)).Inc()
	for _, p := range r.Participants {
		m.participants.WithLabelValues(string(p.Bucket)).Inc()
	}
}

// ObserveNotice counts a lifecycle signal. kind is "start" or "end".
func (m *Metrics) ObserveNotice(kind string, n *daily.Notice) {
	if m == nil || n == nil {
		return
	}
	result := string(n.Kind)
	if n.Kind == daily.NoticeIgnored {
		result = "ignored_" + string(n.Reason)
	}
	m.signals.WithLabelValues(kind, result).Inc()
}
