package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveAttempt("parallel", "skipped", 0)
	m.ObserveAttempt("sequential", "success", 20*time.Millisecond)
	m.ObserveRoute(true)
	m.ObserveRoute(false)
	m.ObserveRoute(false)
	m.SetCacheEntries(7)
	m.ObserveExecution("mock", "1.0.0", true)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.strategyAttempts.WithLabelValues("parallel", "skipped")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.strategyAttempts.WithLabelValues("sequential", "success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.routeLookups.WithLabelValues("miss")))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.routeCacheEntries))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.adapterExecutions.WithLabelValues("mock", "1.0.0", "failure")))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveAttempt("sequential", "success", time.Second)
		m.ObserveRoute(true)
		m.SetCacheEntries(1)
		m.ObserveExecution("a", "1", false)
	})
}
