// Package metrics exposes Prometheus collectors for routing and strategy execution.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "taskgate"

// Metrics bundles the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	strategyAttempts  *prometheus.CounterVec
	strategyDuration  *prometheus.HistogramVec
	routeLookups      *prometheus.CounterVec
	routeCacheEntries prometheus.Gauge
	adapterExecutions *prometheus.CounterVec
}

// New creates the collectors and registers them with reg when reg is non-nil.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		strategyAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "strategy",
				Name:      "attempts_total",
				Help:      "Strategy attempts by strategy and status (skipped, success, failed)",
			},
			[]string{"strategy", "status"},
		),
		strategyDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "strategy",
				Name:      "duration_seconds",
				Help:      "Duration of executed strategy attempts",
				Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
			},
			[]string{"strategy"},
		),
		routeLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "router",
				Name:      "lookups_total",
				Help:      "Routing lookups by cache result (hit, miss)",
			},
			[]string{"result"},
		),
		routeCacheEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "router",
			Name:      "cache_entries",
			Help:      "Number of cached routing decisions",
		}),
		adapterExecutions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "adapter",
				Name:      "executions_total",
				Help:      "Completed task executions by adapter, version and outcome",
			},
			[]string{"adapter", "version", "outcome"},
		),
	}

	if reg != nil {
		reg.MustRegister(
			m.strategyAttempts,
			m.strategyDuration,
			m.routeLookups,
			m.routeCacheEntries,
			m.adapterExecutions,
		)
	}
	return m
}

// ObserveAttempt records one strategy attempt. Skipped attempts carry no duration.
func (m *Metrics) ObserveAttempt(strategy, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.strategyAttempts.WithLabelValues(strategy, status).Inc()
	if status != "skipped" {
		m.strategyDuration.WithLabelValues(strategy).Observe(d.Seconds())
	}
}

// ObserveRoute records a routing cache lookup.
func (m *Metrics) ObserveRoute(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.routeLookups.WithLabelValues(result).Inc()
}

// SetCacheEntries updates the cache size gauge.
func (m *Metrics) SetCacheEntries(n int) {
	if m == nil {
		return
	}
	m.routeCacheEntries.Set(float64(n))
}

// ObserveExecution records a completed execution for an adapter version.
func (m *Metrics) ObserveExecution(adapter, version string, failed bool) {
	if m == nil {
		return
	}
	outcome := "success"
	if failed {
		outcome = "failure"
	}
	m.adapterExecutions.WithLabelValues(adapter, version, outcome).Inc()
}
