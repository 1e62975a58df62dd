package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gathered(t *testing.T, reg *prometheus.Registry) map[string]float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	out := make(map[string]float64, len(families))
	for _, f := range families {
		var total float64
		for _, m := range f.GetMetric() {
			switch {
			case m.GetCounter() != nil:
				total += m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				total += m.GetGauge().GetValue()
			case m.GetHistogram() != nil:
				total += float64(m.GetHistogram().GetSampleCount())
			}
		}
		out[f.GetName()] = total
	}
	return out
}

func TestNewRegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New("quote", reg)

	m.Turns.WithLabelValues("CAPTURE_JOB_TYPE", "ok").Inc()
	m.Commits.WithLabelValues("success").Add(2)
	m.ActiveSessions.Set(3)
	m.OracleLatency.WithLabelValues("ollama").Observe(0.4)

	values := gathered(t, reg)
	assert.InDelta(t, 1, values["quote_dialogue_turns_total"], 1e-9)
	assert.InDelta(t, 2, values["quote_quote_commits_total"], 1e-9)
	assert.InDelta(t, 3, values["quote_session_active"], 1e-9)
	assert.InDelta(t, 1, values["quote_oracle_latency_seconds"], 1e-9)
}

func TestNewWithoutRegistryIsIsolated(t *testing.T) {
	assert.NotPanics(t, func() {
		a := New("quote", nil)
		b := New("quote", nil)
		a.Errors.WithLabelValues("nlu").Inc()
		b.Errors.WithLabelValues("nlu").Inc()
	})

	reg := prometheus.NewRegistry()
	New("quote", reg)
	assert.Panics(t, func() { New("quote", reg) }, "double registration on one registry")
}
