package capability

import (
	"fmt"
	"sort"
	"strings"
)

// Requirements describes what a task needs from an adapter.
type Requirements struct {
	Features         []string `json:"features,omitempty"`
	MinContextTokens int      `json:"minContextTokens"`
	Languages        []string `json:"languages,omitempty"`
	MultiFile        bool     `json:"multiFile"`
	Streaming        bool     `json:"streaming"`
	SubAgents        bool     `json:"subAgents"`
}

// Normalize returns a copy with features and languages de-duplicated and sorted.
func (r Requirements) Normalize() Requirements {
	r.Features = sortedSet(r.Features)
	r.Languages = sortedSet(r.Languages)
	return r
}

// Merge ORs other into r: sets are unioned, the larger context wins and
// flags are OR-ed. The result is normalized.
func (r Requirements) Merge(other Requirements) Requirements {
	r.Features = append(append([]string(nil), r.Features...), other.Features...)
	r.Languages = append(append([]string(nil), r.Languages...), other.Languages...)
	if other.MinContextTokens > r.MinContextTokens {
		r.MinContextTokens = other.MinContextTokens
	}
	r.MultiFile = r.MultiFile || other.MultiFile
	r.Streaming = r.Streaming || other.Streaming
	r.SubAgents = r.SubAgents || other.SubAgents
	return r.Normalize()
}

// String renders the normalized requirements compactly.
func (r Requirements) String() string {
	n := r.Normalize()
	return fmt.Sprintf("features=[%s] context=%d languages=[%s] multiFile=%t streaming=%t subAgents=%t",
		strings.Join(n.Features, ","), n.MinContextTokens, strings.Join(n.Languages, ","),
		n.MultiFile, n.Streaming, n.SubAgents)
}

func sortedSet(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
