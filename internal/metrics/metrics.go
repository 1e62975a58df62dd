// Package metrics defines the Prometheus collectors exported by the orchestrator.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups every collector the service updates.
type Metrics struct {
	Turns           *prometheus.CounterVec
	OracleRequests  *prometheus.CounterVec
	OracleLatency   *prometheus.HistogramVec
	BackendRequests *prometheus.CounterVec
	BackendLatency  *prometheus.HistogramVec
	Commits         *prometheus.CounterVec
	ActiveSessions  prometheus.Gauge
	Errors          *prometheus.CounterVec
}

// New builds the collectors under namespace and registers them on reg.
// A nil reg leaves them unregistered, which is what tests want.
func New(namespace string, reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Turns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dialogue",
			Name:      "turns_total",
			Help:      "Dialogue turns handled, by resulting state and outcome.",
		}, []string{"state", "outcome"}),
		OracleRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "oracle",
			Name:      "requests_total",
			Help:      "Language model calls by provider and status.",
		}, []string{"provider", "status"}),
		OracleLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "oracle",
			Name:      "latency_seconds",
			Help:      "Language model call latency.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 4, 8, 15, 30},
		}, []string{"provider"}),
		BackendRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backend",
			Name:      "requests_total",
			Help:      "Backend data service calls by endpoint and status.",
		}, []string{"endpoint", "status"}),
		BackendLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "backend",
			Name:      "latency_seconds",
			Help:      "Backend data service call latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint", "status"}),
		Commits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "quote",
			Name:      "commits_total",
			Help:      "Quote commits by outcome.",
		}, []string{"outcome"}),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "active",
			Help:      "Sessions currently held by the in-memory store.",
		}),
		Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Errors by component.",
		}, []string{"component"}),
	}
	if reg != nil {
		reg.MustRegister(
			m.Turns,
			m.OracleRequests,
			m.OracleLatency,
			m.BackendRequests,
			m.BackendLatency,
			m.Commits,
			m.ActiveSessions,
			m.Errors,
		)
	}
	return m
}
