package registry

import (
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/zen-systems/taskgate/pkg/capability"
)

// Score weights.
const (
	featureWeight       = 10.0
	contextWeight       = 5.0
	contextBonusCap     = 5.0
	languageWeight      = 5.0
	multiFileWeight     = 3.0
	streamingWeight     = 2.0
	subAgentsWeight     = 5.0
	preferredMultiplier = 1.5
	performanceBoostCap = 0.3
)

// Match is a candidate adapter version with its score.
type Match struct {
	Entry
	Score float64

	// Qualified is false when any required capability is missing. An
	// unqualified match always has a zero score.
	Qualified bool
}

// Preferences adjust SelectOptimal's ranking.
type Preferences struct {
	PreferredAdapters   []string
	ConsiderPerformance bool
}

// FindMatching scores every registered version against req, best first.
// Disqualified versions are included with a zero score.
func (r *Registry) FindMatching(req capability.Requirements) []Match {
	r.mu.RLock()
	entries := r.entriesLocked()
	r.mu.RUnlock()

	matches := make([]Match, 0, len(entries))
	for _, e := range entries {
		s, ok := Score(e.Adapter.Capabilities(), req)
		matches = append(matches, Match{Entry: e, Score: s, Qualified: ok})
	}
	sortMatches(matches)
	return matches
}

// SelectOptimal returns the best qualified version for req, or false when
// nothing qualifies.
func (r *Registry) SelectOptimal(req capability.Requirements, prefs Preferences) (Match, bool) {
	var candidates []Match
	for _, m := range r.FindMatching(req) {
		if m.Qualified {
			candidates = append(candidates, m)
		}
	}
	if len(candidates) == 0 {
		r.logger.Debug("no adapter satisfies requirements", zap.Stringer("requirements", req))
		return Match{}, false
	}

	if len(prefs.PreferredAdapters) > 0 {
		preferred := make(map[string]bool, len(prefs.PreferredAdapters))
		for _, name := range prefs.PreferredAdapters {
			preferred[name] = true
		}
		for i := range candidates {
			if preferred[candidates[i].Name] {
				candidates[i].Score *= preferredMultiplier
			}
		}
		sortMatches(candidates)
	}

	if prefs.ConsiderPerformance {
		for i := range candidates {
			rec, ok := r.Performance(candidates[i].Name, candidates[i].Version)
			if !ok || rec.TotalExecutions == 0 {
				continue
			}
			candidates[i].Score *= performanceFactor(rec)
		}
		sortMatches(candidates)
	}

	return candidates[0], true
}

// Score rates a capability profile against requirements. The second return
// is false, and the score exactly zero, when any feature, the context
// window or an explicitly required capability is missing. Language coverage
// only ever adds partial credit.
func Score(p *capability.Profile, req capability.Requirements) (float64, bool) {
	if p == nil {
		return 0, false
	}

	var score float64
	required, matched := 0, 0

	for _, feature := range req.Features {
		required++
		if p.Supports(feature) {
			matched++
			score += featureWeight
		}
	}

	if req.MinContextTokens > 0 {
		required++
		if p.MaxContextTokens >= req.MinContextTokens {
			matched++
			ratio := float64(p.MaxContextTokens) / float64(req.MinContextTokens)
			score += contextWeight + math.Min(ratio-1, contextBonusCap)
		}
	}

	if len(req.Languages) > 0 {
		supported := 0
		for _, lang := range req.Languages {
			if p.SupportsLanguage(lang) {
				supported++
			}
		}
		score += float64(supported) / float64(len(req.Languages)) * languageWeight
	}

	if req.MultiFile {
		required++
		if p.MultiFile {
			matched++
			score += multiFileWeight
		}
	}
	if req.Streaming {
		required++
		if p.Streaming {
			matched++
			score += streamingWeight
		}
	}
	if req.SubAgents {
		required++
		if p.SubAgents.Supported {
			matched++
			score += subAgentsWeight
		}
	}

	if matched < required {
		return 0, false
	}
	return score, true
}

// performanceFactor boosts fast adapters by up to 30%.
func performanceFactor(rec PerformanceRecord) float64 {
	avgMs := float64(rec.AvgDuration.Milliseconds())
	if avgMs < 1 {
		avgMs = 1
	}
	return 1 + math.Min(0.1*(1000/avgMs), performanceBoostCap)
}

// sortMatches orders by score, then name, then default first, then newest.
func sortMatches(matches []Match) {
	sort.SliceStable(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		if a.IsDefault != b.IsDefault {
			return a.IsDefault
		}
		return compareVersions(a.Version, b.Version) > 0
	})
}
