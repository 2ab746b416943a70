// Package capability describes what a task-execution adapter can do and
// answers feature queries against that description.
package capability

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Top-level profile keys understood by Supports.
const (
	KeyMaxContextTokens   = "maxContextTokens"
	KeySupportedLanguages = "supportedLanguages"
	KeyMultiFile          = "multiFile"
	KeyStreaming          = "streaming"
	KeySubAgents          = "subAgents"
	KeyFeatures           = "features"
)

// Well-known feature names consulted by the strategy engine.
const (
	FeatureParallelExecution = "parallelExecution"
)

// Feature is either a plain boolean or a detailed entry carrying config.
type Feature struct {
	Enabled  bool
	Config   map[string]any
	detailed bool
}

// Bool returns a simple feature flag.
func Bool(enabled bool) Feature {
	return Feature{Enabled: enabled}
}

// Detailed returns a feature entry with attached configuration.
func Detailed(enabled bool, config map[string]any) Feature {
	return Feature{Enabled: enabled, Config: config, detailed: true}
}

// IsDetailed reports whether the feature carries a config block.
func (f Feature) IsDetailed() bool {
	return f.detailed
}

// UnmarshalYAML accepts `true`/`false` or `{enabled: bool, config: {...}}`.
// A mapping without an enabled key is treated as enabled.
func (f *Feature) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var b bool
		if err := node.Decode(&b); err != nil {
			return fmt.Errorf("feature must be a boolean or mapping: %w", err)
		}
		*f = Bool(b)
		return nil
	case yaml.MappingNode:
		var raw struct {
			Enabled *bool          `yaml:"enabled"`
			Config  map[string]any `yaml:"config"`
		}
		if err := node.Decode(&raw); err != nil {
			return err
		}
		enabled := true
		if raw.Enabled != nil {
			enabled = *raw.Enabled
		}
		*f = Detailed(enabled, raw.Config)
		return nil
	default:
		return fmt.Errorf("feature must be a boolean or mapping")
	}
}

// MarshalJSON renders simple features as booleans and detailed ones as objects.
func (f Feature) MarshalJSON() ([]byte, error) {
	if !f.detailed {
		return json.Marshal(f.Enabled)
	}
	return json.Marshal(struct {
		Enabled bool           `json:"enabled"`
		Config  map[string]any `json:"config,omitempty"`
	}{f.Enabled, f.Config})
}

// SubAgents describes delegation support.
type SubAgents struct {
	Supported       bool     `yaml:"supported" json:"supported"`
	MaxConcurrent   int      `yaml:"max_concurrent" json:"maxConcurrent"`
	DelegationTypes []string `yaml:"delegation_types" json:"delegationTypes,omitempty"`
}

// Profile is a read-only snapshot of an adapter's capabilities.
// Replace it wholesale rather than mutating a shared instance.
type Profile struct {
	MaxContextTokens   int                `yaml:"max_context_tokens" json:"maxContextTokens"`
	SupportedLanguages []string           `yaml:"supported_languages" json:"supportedLanguages,omitempty"`
	MultiFile          bool               `yaml:"multi_file" json:"multiFile"`
	Streaming          bool               `yaml:"streaming" json:"streaming"`
	SubAgents          SubAgents          `yaml:"sub_agents" json:"subAgents"`
	Features           map[string]Feature `yaml:"features" json:"features,omitempty"`
}

// Supports resolves a feature name against the profile. Exact top-level keys
// win, then entries under Features, then dotted "parent.child" paths.
// Unknown names resolve to false.
func (p *Profile) Supports(name string) bool {
	if p == nil || name == "" {
		return false
	}
	if v, ok := p.topLevel(name); ok {
		return truthy(v)
	}
	if f, ok := p.Features[name]; ok {
		return f.Enabled
	}
	parent, child, ok := strings.Cut(name, ".")
	if !ok || parent == "" || child == "" {
		return false
	}
	return truthy(p.property(parent, child))
}

// FeatureConfig returns the config attached to a detailed feature, or nil
// for simple, boolean or absent features.
func (p *Profile) FeatureConfig(name string) map[string]any {
	if p == nil {
		return nil
	}
	f, ok := p.Features[name]
	if !ok || !f.detailed {
		return nil
	}
	return f.Config
}

// SupportsLanguage reports whether lang is listed, ignoring case.
func (p *Profile) SupportsLanguage(lang string) bool {
	if p == nil {
		return false
	}
	for _, l := range p.SupportedLanguages {
		if strings.EqualFold(l, lang) {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the profile.
func (p *Profile) Clone() Profile {
	if p == nil {
		return Profile{}
	}
	out := *p
	out.SupportedLanguages = append([]string(nil), p.SupportedLanguages...)
	out.SubAgents.DelegationTypes = append([]string(nil), p.SubAgents.DelegationTypes...)
	if p.Features != nil {
		out.Features = make(map[string]Feature, len(p.Features))
		for k, f := range p.Features {
			if f.Config != nil {
				cfg := make(map[string]any, len(f.Config))
				for ck, cv := range f.Config {
					cfg[ck] = cv
				}
				f.Config = cfg
			}
			out.Features[k] = f
		}
	}
	return out
}

// FeatureNames returns the enabled feature names in sorted order.
func (p *Profile) FeatureNames() []string {
	if p == nil {
		return nil
	}
	names := make([]string, 0, len(p.Features))
	for name, f := range p.Features {
		if f.Enabled {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func (p *Profile) topLevel(name string) (any, bool) {
	switch name {
	case KeyMaxContextTokens:
		return p.MaxContextTokens, true
	case KeySupportedLanguages:
		return p.SupportedLanguages, true
	case KeyMultiFile:
		return p.MultiFile, true
	case KeyStreaming:
		return p.Streaming, true
	case KeySubAgents:
		return p.SubAgents, true
	}
	return nil, false
}

func (p *Profile) property(parent, child string) any {
	switch parent {
	case KeySubAgents:
		switch child {
		case "supported":
			return p.SubAgents.Supported
		case "maxConcurrent":
			return p.SubAgents.MaxConcurrent
		case "delegationTypes":
			return p.SubAgents.DelegationTypes
		}
		return nil
	case KeyFeatures:
		if f, ok := p.Features[child]; ok {
			return f.Enabled
		}
		return nil
	}

	f, ok := p.Features[parent]
	if !ok {
		return nil
	}
	if child == "enabled" {
		return f.Enabled
	}
	return lookupPath(f.Config, child)
}

// lookupPath walks nested config maps along a dotted path.
func lookupPath(m map[string]any, path string) any {
	var cur any = m
	for _, part := range strings.Split(path, ".") {
		next, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur, ok = next[part]
		if !ok {
			return nil
		}
	}
	return cur
}

func truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case int:
		return val > 0
	case int64:
		return val > 0
	case float64:
		return val != 0
	case string:
		return val != ""
	case []string:
		return len(val) > 0
	case []any:
		return len(val) > 0
	case map[string]any:
		return len(val) > 0
	case SubAgents:
		return val.Supported
	case Feature:
		return val.Enabled
	}
	return true
}

// Change describes one capability that differs between two profiles.
type Change struct {
	Capability string `json:"capability"`
	OldValue   any    `json:"oldValue"`
	NewValue   any    `json:"newValue"`
}

// Diff lists the capabilities that differ between old and new.
// Feature entries are reported as "features.<name>".
func Diff(old, new *Profile) []Change {
	if old == nil {
		old = &Profile{}
	}
	if new == nil {
		new = &Profile{}
	}

	var changes []Change
	add := func(name string, a, b any) {
		if !reflect.DeepEqual(a, b) {
			changes = append(changes, Change{Capability: name, OldValue: a, NewValue: b})
		}
	}

	add(KeyMaxContextTokens, old.MaxContextTokens, new.MaxContextTokens)
	add(KeySupportedLanguages, old.SupportedLanguages, new.SupportedLanguages)
	add(KeyMultiFile, old.MultiFile, new.MultiFile)
	add(KeyStreaming, old.Streaming, new.Streaming)
	add(KeySubAgents, old.SubAgents, new.SubAgents)

	names := make(map[string]struct{}, len(old.Features)+len(new.Features))
	for k := range old.Features {
		names[k] = struct{}{}
	}
	for k := range new.Features {
		names[k] = struct{}{}
	}
	sorted := make([]string, 0, len(names))
	for k := range names {
		sorted = append(sorted, k)
	}
	sort.Strings(sorted)

	for _, name := range sorted {
		a, aok := old.Features[name]
		b, bok := new.Features[name]
		var av, bv any
		if aok {
			av = a
		}
		if bok {
			bv = b
		}
		add(KeyFeatures+"."+name, av, bv)
	}

	return changes
}
