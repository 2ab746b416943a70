package registry

import (
	"time"

	"go.uber.org/zap"
)

type perfKey struct {
	name    string
	version string
}

// Outcome is the result of one execution as reported by the strategy engine.
type Outcome struct {
	Duration time.Duration
	Failed   bool
}

// PerformanceRecord accumulates execution history for one adapter version.
type PerformanceRecord struct {
	TotalExecutions int           `json:"totalExecutions"`
	TotalDuration   time.Duration `json:"totalDuration"`
	Failures        int           `json:"failures"`
	AvgDuration     time.Duration `json:"avgDuration"`
	SuccessRate     float64       `json:"successRate"`
	LastUpdated     time.Time     `json:"lastUpdated"`
}

// RecordPerformance folds one outcome into the version's record. An empty
// version means the current default.
func (r *Registry) RecordPerformance(name, version string, o Outcome) {
	r.mu.Lock()
	if version == "" {
		version = r.defaults[name]
	}
	key := perfKey{name: name, version: version}
	rec, ok := r.perf[key]
	if !ok {
		rec = &PerformanceRecord{}
		r.perf[key] = rec
	}
	rec.TotalExecutions++
	rec.TotalDuration += o.Duration
	if o.Failed {
		rec.Failures++
	}
	rec.AvgDuration = rec.TotalDuration / time.Duration(rec.TotalExecutions)
	rec.SuccessRate = float64(rec.TotalExecutions-rec.Failures) / float64(rec.TotalExecutions)
	rec.LastUpdated = time.Now()
	snapshot := *rec
	r.mu.Unlock()

	r.metrics.ObserveExecution(name, version, o.Failed)
	r.logger.Debug("performance recorded",
		zap.String("adapter", name),
		zap.String("version", version),
		zap.Duration("avg", snapshot.AvgDuration),
		zap.Float64("success_rate", snapshot.SuccessRate))
}

// Performance returns a copy of the version's record.
func (r *Registry) Performance(name, version string) (PerformanceRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if version == "" {
		version = r.defaults[name]
	}
	rec, ok := r.perf[perfKey{name: name, version: version}]
	if !ok {
		return PerformanceRecord{}, false
	}
	return *rec, true
}

// ResetPerformance discards history. An empty version resets every version
// of name. It reports whether anything was removed.
func (r *Registry) ResetPerformance(name, version string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := false
	for key := range r.perf {
		if key.name == name && (version == "" || key.version == version) {
			delete(r.perf, key)
			removed = true
		}
	}
	return removed
}
