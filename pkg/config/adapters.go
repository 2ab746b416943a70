package config

import (
	"github.com/zen-systems/taskgate/pkg/adapter"
	"github.com/zen-systems/taskgate/pkg/capability"
)

// AdapterConfig declares one adapter version to register at startup.
type AdapterConfig struct {
	Name         string             `yaml:"name"`
	Provider     string             `yaml:"provider"`
	Version      string             `yaml:"version,omitempty"`
	Model        string             `yaml:"model,omitempty"`
	BaseURL      string             `yaml:"base_url,omitempty"`
	MaxTokens    int                `yaml:"max_tokens,omitempty"`
	Default      *bool              `yaml:"default,omitempty"`
	Capabilities capability.Profile `yaml:"capabilities"`
}

// ProviderConfig converts the declaration into adapter construction input.
func (a AdapterConfig) ProviderConfig(keys APIKeys) adapter.ProviderConfig {
	return adapter.ProviderConfig{
		Name:         a.Name,
		Version:      a.Version,
		APIKey:       keys.For(a.Provider),
		Model:        a.Model,
		BaseURL:      a.BaseURL,
		MaxTokens:    a.MaxTokens,
		Capabilities: a.Capabilities,
	}
}

// IsDefault reports whether this version should become the default for its
// name on registration. Unset means yes.
func (a AdapterConfig) IsDefault() bool {
	return a.Default == nil || *a.Default
}

// HasCredentials reports whether the adapter can be built with keys.
func (a AdapterConfig) HasCredentials(keys APIKeys) bool {
	return a.Provider == adapter.ProviderMock || keys.For(a.Provider) != ""
}

func defaultMockAdapter() AdapterConfig {
	return AdapterConfig{
		Name:     "mock",
		Provider: adapter.ProviderMock,
		Version:  "1.0.0",
		Capabilities: capability.Profile{
			MaxContextTokens:   200000,
			SupportedLanguages: []string{"go", "python", "typescript", "javascript", "rust", "java"},
			MultiFile:          true,
			Streaming:          true,
			SubAgents:          capability.SubAgents{Supported: true, MaxConcurrent: 3},
			Features: map[string]capability.Feature{
				"generation":                       capability.Bool(true),
				"refactoring":                      capability.Bool(true),
				"analysis":                         capability.Bool(true),
				"testing":                          capability.Bool(true),
				"validation":                       capability.Bool(true),
				"documentation":                    capability.Bool(true),
				"debugging":                        capability.Bool(true),
				capability.FeatureParallelExecution: capability.Detailed(true, map[string]any{"maxConcurrent": 3}),
			},
		},
	}
}
