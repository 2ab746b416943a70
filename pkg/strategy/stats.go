package strategy

import (
	"sort"
	"sync"
	"time"
)

const topFailureCount = 3

// Stats summarizes one strategy's history.
type Stats struct {
	Attempts    int            `json:"attempts"`
	Successes   int            `json:"successes"`
	Failures    int            `json:"failures"`
	Skips       int            `json:"skips"`
	AvgDuration time.Duration  `json:"avgDuration"`
	TopFailures []FailureCount `json:"topFailures,omitempty"`
}

// FailureCount is how often one failure reason occurred.
type FailureCount struct {
	Reason string `json:"reason"`
	Count  int    `json:"count"`
}

type strategyStats struct {
	successes     int
	failures      int
	skips         int
	totalDuration time.Duration
	reasons       map[string]int
}

type statsTable struct {
	mu  sync.Mutex
	per map[Name]*strategyStats
}

func newStatsTable() *statsTable {
	return &statsTable{per: make(map[Name]*strategyStats)}
}

func (s *statsTable) get(name Name) *strategyStats {
	st, ok := s.per[name]
	if !ok {
		st = &strategyStats{reasons: make(map[string]int)}
		s.per[name] = st
	}
	return st
}

func (s *statsTable) success(name Name, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.get(name)
	st.successes++
	st.totalDuration += d
}

func (s *statsTable) failure(name Name, d time.Duration, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.get(name)
	st.failures++
	st.totalDuration += d
	st.reasons[reason]++
}

func (s *statsTable) skip(name Name) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.get(name).skips++
}

func (s *statsTable) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.per = make(map[Name]*strategyStats)
}

func (s *statsTable) snapshot() map[Name]Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[Name]Stats, len(s.per))
	for name, st := range s.per {
		attempts := st.successes + st.failures
		stats := Stats{
			Attempts:  attempts,
			Successes: st.successes,
			Failures:  st.failures,
			Skips:     st.skips,
		}
		if attempts > 0 {
			stats.AvgDuration = st.totalDuration / time.Duration(attempts)
		}
		stats.TopFailures = topFailures(st.reasons, topFailureCount)
		out[name] = stats
	}
	return out
}

func topFailures(reasons map[string]int, n int) []FailureCount {
	if len(reasons) == 0 {
		return nil
	}
	out := make([]FailureCount, 0, len(reasons))
	for reason, count := range reasons {
		out = append(out, FailureCount{Reason: reason, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Reason < out[j].Reason
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
