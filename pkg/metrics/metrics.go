// Copyright 2025 Certen Protocol
//
// Metrics
// Shared Prometheus instruments for the compliance audit core: CEI queue
// depth and drops, AAP fidelity distribution, and ledger append/seal
// counts. Registered once per process and served by cmd/auditcore at
// /metrics.

package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/caas-systems/audit-core/pkg/intercept"
	"github.com/caas-systems/audit-core/pkg/ledger"
	"github.com/caas-systems/audit-core/pkg/pipeline"
)

// Metrics bundles every instrument the core exposes. It satisfies
// intercept.Recorder and ledger.Recorder directly, and RecordProcessed
// plugs into pipeline.Pipeline as a Handler, so one value wires into all
// three components.
type Metrics struct {
	registry *prometheus.Registry

	queueDepth   prometheus.Gauge
	queueDrops   prometheus.Counter
	ledgerAppend prometheus.Counter
	ledgerSeal   prometheus.Counter
	fidelity     *prometheus.CounterVec
}

// New registers a fresh set of instruments against a private registry
// (not the global default, so multiple Metrics values in tests don't
// collide).
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "audit_core",
			Subsystem: "interceptor",
			Name:      "queue_depth",
			Help:      "Current number of events buffered in the compliance event interceptor queue.",
		}),
		queueDrops: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "audit_core",
			Subsystem: "interceptor",
			Name:      "queue_drops_total",
			Help:      "Total events dropped because the interceptor queue was full.",
		}),
		ledgerAppend: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "audit_core",
			Subsystem: "ledger",
			Name:      "appends_total",
			Help:      "Total audit records appended to the ledger.",
		}),
		ledgerSeal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "audit_core",
			Subsystem: "ledger",
			Name:      "seals_total",
			Help:      "Total Merkle batches sealed by the ledger.",
		}),
		fidelity: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "audit_core",
			Subsystem: "pipeline",
			Name:      "fidelity_total",
			Help:      "Total processed events by selected fidelity level.",
		}, []string{"fidelity"}),
	}

	registry.MustRegister(m.queueDepth, m.queueDrops, m.ledgerAppend, m.ledgerSeal, m.fidelity)
	return m
}

// ObserveQueueDepth implements intercept.Recorder.
func (m *Metrics) ObserveQueueDepth(depth int) {
	m.queueDepth.Set(float64(depth))
}

// IncDrops implements intercept.Recorder.
func (m *Metrics) IncDrops() {
	m.queueDrops.Inc()
}

// IncAppends implements ledger.Recorder.
func (m *Metrics) IncAppends() {
	m.ledgerAppend.Inc()
}

// IncSeals implements ledger.Recorder.
func (m *Metrics) IncSeals() {
	m.ledgerSeal.Inc()
}

// RecordProcessed is a pipeline.Handler that tallies the fidelity
// distribution. Register it with Pipeline.RegisterHandler.
func (m *Metrics) RecordProcessed(processed *pipeline.ProcessedAuditEvent) {
	m.fidelity.WithLabelValues(string(processed.Fidelity)).Inc()
}

// Handler returns the HTTP handler to serve at /metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

var (
	_ intercept.Recorder = (*Metrics)(nil)
	_ ledger.Recorder    = (*Metrics)(nil)
	_ pipeline.Handler   = (*Metrics)(nil).RecordProcessed
)
