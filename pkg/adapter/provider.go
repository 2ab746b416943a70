package adapter

import (
	"github.com/zen-systems/taskgate/pkg/capability"
)

const defaultMaxTokens = 4096

// ProviderConfig configures an API-backed adapter.
type ProviderConfig struct {
	Name         string
	Version      string
	APIKey       string
	Model        string
	BaseURL      string
	MaxTokens    int
	Capabilities capability.Profile
}

func (c ProviderConfig) maxTokens() int64 {
	if c.MaxTokens <= 0 {
		return defaultMaxTokens
	}
	return int64(c.MaxTokens)
}

func nameOr(name, fallback string) string {
	if name == "" {
		return fallback
	}
	return name
}
