package adapter

import (
	"github.com/zen-systems/taskgate/pkg/capability"
)

// Base implements the descriptive half of Adapter. Embed it in concrete adapters.
type Base struct {
	name    string
	version string
	caps    *capability.Set
}

// NewBase creates a Base with an initial capability profile.
func NewBase(name, version string, profile capability.Profile) *Base {
	if version == "" {
		version = "1.0.0"
	}
	return &Base{
		name:    name,
		version: version,
		caps:    capability.NewSet(profile),
	}
}

// Name returns the adapter identifier.
func (b *Base) Name() string { return b.name }

// Version returns the adapter API version.
func (b *Base) Version() string { return b.version }

// Capabilities returns the current capability snapshot.
func (b *Base) Capabilities() *capability.Profile { return b.caps.Profile() }

// SupportsFeature resolves name against the current capabilities.
func (b *Base) SupportsFeature(name string) bool {
	return b.caps.Profile().Supports(name)
}

// FeatureConfig returns the config attached to a detailed feature.
func (b *Base) FeatureConfig(name string) map[string]any {
	return b.caps.Profile().FeatureConfig(name)
}

// UpdateCapabilities replaces the capability profile wholesale.
func (b *Base) UpdateCapabilities(p capability.Profile) []capability.Change {
	return b.caps.Replace(p)
}

// OnCapabilityChange registers an observer for capability changes and
// returns a function that removes it.
func (b *Base) OnCapabilityChange(fn capability.ChangeFunc) func() {
	return b.caps.OnChange(fn)
}

// CapabilityObservers returns the number of registered observers.
func (b *Base) CapabilityObservers() int {
	return b.caps.ObserverCount()
}
