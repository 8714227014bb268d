// Package metrics exposes ingestion counters. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry    *prometheus.Registry
	messages    *prometheus.CounterVec
	outcomes    *prometheus.CounterVec
	diagnostics *prometheus.CounterVec
	heartbeats  *prometheus.CounterVec
}

// New registers the ingestion counters plus Go runtime/process collectors on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rfid_ingest",
			Name:      "messages_total",
			Help:      "Inbound bus messages by dispatch route.",
		}, []string{"route"}),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rfid_ingest",
			Name:      "scan_outcomes_total",
			Help:      "Processed scan events by terminal outcome.",
		}, []string{"outcome"}),
		diagnostics: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rfid_ingest",
			Name:      "diagnostics_total",
			Help:      "Error log records by type and where they landed.",
		}, []string{"error_type", "delivery"}),
		heartbeats: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rfid_ingest",
			Name:      "heartbeats_total",
			Help:      "Reader heartbeats by result.",
		}, []string{"result"}),
	}
	m.registry.MustRegister(
		m.messages,
		m.outcomes,
		m.diagnostics,
		m.heartbeats,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Message(route string) {
	if m == nil {
		return
	}
	m.messages.WithLabelValues(route).Inc()
}

func (m *Metrics) ScanOutcome(outcome string) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Diagnostic(errorType, delivery string) {
	if m == nil {
		return
	}
	m.diagnostics.WithLabelValues(errorType, delivery).Inc()
}

func (m *Metrics) Heartbeat(result string) {
	if m == nil {
		return
	}
	m.heartbeats.WithLabelValues(result).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
