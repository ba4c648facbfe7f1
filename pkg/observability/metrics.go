package observability

import (
	"context"
	"net/http"
	"time"

	"github.com/aretw0/botcanvas/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors of one process. Each Metrics owns a private
// registry so tests and embedded hosts never clash on the global one.
type Metrics struct {
	registry *prometheus.Registry

	findings    *prometheus.CounterVec
	compile     prometheus.Histogram
	connections *prometheus.CounterVec
	exports     *prometheus.CounterVec
	nodes       *prometheus.CounterVec
}

// NewMetrics creates and registers all collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		findings: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "botcanvas_lint_findings_total",
				Help: "Total number of lint findings reported",
			},
			[]string{"check", "severity"},
		),
		compile: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "botcanvas_compile_duration_seconds",
				Help:    "Duration of hierarchy compilations",
				Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
			},
		),
		connections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "botcanvas_connections_total",
				Help: "Connection attempts by outcome and deciding rule",
			},
			[]string{"result", "rule"},
		),
		exports: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "botcanvas_exports_total",
				Help: "Export attempts by outcome",
			},
			[]string{"result"},
		),
		nodes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "botcanvas_nodes_total",
				Help: "Node mutations by kind and operation",
			},
			[]string{"kind", "op"},
		),
	}
	m.registry.MustRegister(m.findings, m.compile, m.connections, m.exports, m.nodes)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the metrics in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveFindings counts every finding by check and severity.
func (m *Metrics) ObserveFindings(findings domain.Findings) {
	for _, f := range findings {
		m.findings.WithLabelValues(f.Check, string(f.Severity)).Inc()
	}
}

// ObserveCompile records how long a compilation took.
func (m *Metrics) ObserveCompile(d time.Duration) {
	m.compile.Observe(d.Seconds())
}

// ObserveExport counts an export attempt. A nil error counts as "ok",
// domain.ErrExportBlocked as "blocked", anything else as "failed".
func (m *Metrics) ObserveExport(err error) {
	m.exports.WithLabelValues(exportResult(err)).Inc()
}

// Hooks returns editor hooks that feed the node and connection counters.
func (m *Metrics) Hooks() domain.EditorHooks {
	node := func(op string) func(context.Context, *domain.NodeEvent) {
		return func(_ context.Context, e *domain.NodeEvent) {
			m.nodes.WithLabelValues(string(e.NodeKind), op).Inc()
		}
	}
	return domain.EditorHooks{
		OnNodeAdded:   node("added"),
		OnNodeRemoved: node("removed"),
		OnNodeUpdated: node("updated"),
		OnEdgeAdded: func(_ context.Context, e *domain.EdgeEvent) {
			m.connections.WithLabelValues("accepted", e.Rule).Inc()
		},
		OnConnectionRejected: func(_ context.Context, e *domain.EdgeEvent) {
			m.connections.WithLabelValues("rejected", e.Rule).Inc()
		},
	}
}
