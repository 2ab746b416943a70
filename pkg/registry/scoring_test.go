package registry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zen-systems/taskgate/pkg/capability"
)

func fullProfile() capability.Profile {
	return capability.Profile{
		MaxContextTokens:   100000,
		SupportedLanguages: []string{"go", "python"},
		MultiFile:          true,
		Streaming:          true,
		SubAgents:          capability.SubAgents{Supported: true, MaxConcurrent: 3},
		Features: map[string]capability.Feature{
			"generation":  capability.Bool(true),
			"refactoring": capability.Bool(true),
		},
	}
}

func TestScoreMissingFeatureIsZero(t *testing.T) {
	p := fullProfile()
	score, ok := Score(&p, capability.Requirements{
		Features:         []string{"generation", "security"},
		MinContextTokens: 1000,
		Languages:        []string{"go"},
		MultiFile:        true,
	})
	assert.False(t, ok)
	assert.Equal(t, 0.0, score)
}

func TestScoreMissingExplicitCapabilityIsZero(t *testing.T) {
	p := fullProfile()
	p.Streaming = false
	score, ok := Score(&p, capability.Requirements{Features: []string{"generation"}, Streaming: true})
	assert.False(t, ok)
	assert.Equal(t, 0.0, score)
}

func TestScoreContextTooSmallIsZero(t *testing.T) {
	p := fullProfile()
	score, ok := Score(&p, capability.Requirements{MinContextTokens: 200000})
	assert.False(t, ok)
	assert.Equal(t, 0.0, score)
}

func TestScoreComponents(t *testing.T) {
	p := fullProfile()
	score, ok := Score(&p, capability.Requirements{
		Features:         []string{"generation", "refactoring"},
		MinContextTokens: 50000,
		Languages:        []string{"go", "rust"},
		MultiFile:        true,
		Streaming:        true,
		SubAgents:        true,
	})
	require.True(t, ok)
	// 2 features, context 5 + (2-1), half the languages, 3 + 2 + 5.
	assert.InDelta(t, 20+6+2.5+10, score, 1e-9)
}

func TestScoreContextBonusIsCapped(t *testing.T) {
	p := fullProfile()
	score, ok := Score(&p, capability.Requirements{MinContextTokens: 1000})
	require.True(t, ok)
	assert.InDelta(t, 10.0, score, 1e-9)
}

func TestScoreEmptyRequirementsQualifies(t *testing.T) {
	p := fullProfile()
	score, ok := Score(&p, capability.Requirements{})
	assert.True(t, ok)
	assert.Equal(t, 0.0, score)
}

func TestFindMatchingIncludesDisqualified(t *testing.T) {
	r := New()
	require.NoError(t, r.Register("full", mock("full", "1.0.0", fullProfile())))
	require.NoError(t, r.Register("bare", mock("bare", "1.0.0", capability.Profile{})))

	matches := r.FindMatching(capability.Requirements{Features: []string{"generation"}})
	require.Len(t, matches, 2)
	assert.Equal(t, "full", matches[0].Name)
	assert.True(t, matches[0].Qualified)
	assert.Equal(t, "bare", matches[1].Name)
	assert.False(t, matches[1].Qualified)
	assert.Equal(t, 0.0, matches[1].Score)
}

func TestSelectOptimalNoMatch(t *testing.T) {
	r := New()
	require.NoError(t, r.Register("bare", mock("bare", "1.0.0", capability.Profile{})))

	_, ok := r.SelectOptimal(capability.Requirements{Features: []string{"generation"}}, Preferences{})
	assert.False(t, ok)
}

func TestSelectOptimalPreferredBreaksTie(t *testing.T) {
	r := New()
	require.NoError(t, r.Register("alpha", mock("alpha", "1.0.0", fullProfile())))
	require.NoError(t, r.Register("beta", mock("beta", "1.0.0", fullProfile())))
	req := capability.Requirements{Features: []string{"generation"}}

	best, ok := r.SelectOptimal(req, Preferences{})
	require.True(t, ok)
	assert.Equal(t, "alpha", best.Name)

	best, ok = r.SelectOptimal(req, Preferences{PreferredAdapters: []string{"beta"}})
	require.True(t, ok)
	assert.Equal(t, "beta", best.Name)
	assert.InDelta(t, 15.0, best.Score, 1e-9)
}

func TestSelectOptimalConsidersPerformance(t *testing.T) {
	r := New()
	require.NoError(t, r.Register("alpha", mock("alpha", "1.0.0", fullProfile())))
	require.NoError(t, r.Register("beta", mock("beta", "1.0.0", fullProfile())))
	r.RecordPerformance("beta", "1.0.0", Outcome{Duration: 100 * time.Millisecond})
	req := capability.Requirements{Features: []string{"generation"}}

	best, _ := r.SelectOptimal(req, Preferences{})
	assert.Equal(t, "alpha", best.Name)

	best, _ = r.SelectOptimal(req, Preferences{ConsiderPerformance: true})
	assert.Equal(t, "beta", best.Name)
	assert.InDelta(t, 13.0, best.Score, 1e-9)
}

func TestPerformanceFactor(t *testing.T) {
	assert.InDelta(t, 1.3, performanceFactor(PerformanceRecord{AvgDuration: 0}), 1e-9)
	assert.InDelta(t, 1.1, performanceFactor(PerformanceRecord{AvgDuration: time.Second}), 1e-9)
	assert.InDelta(t, 1.01, performanceFactor(PerformanceRecord{AvgDuration: 10 * time.Second}), 1e-9)
}
