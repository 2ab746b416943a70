package adapter

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/zen-systems/taskgate/pkg/task"
)

// Provider identifiers accepted by New.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderGoogle    = "google"
	ProviderDeepSeek  = "deepseek"
	ProviderMock      = "mock"
)

// Providers lists the provider identifiers New understands.
func Providers() []string {
	out := []string{ProviderAnthropic, ProviderOpenAI, ProviderGoogle, ProviderDeepSeek, ProviderMock}
	sort.Strings(out)
	return out
}

// New builds an adapter for the named provider.
func New(ctx context.Context, provider string, cfg ProviderConfig) (Adapter, error) {
	switch strings.ToLower(provider) {
	case ProviderAnthropic:
		return NewAnthropicAdapter(cfg)
	case ProviderOpenAI:
		return NewOpenAIAdapter(cfg)
	case ProviderGoogle:
		return NewGoogleAdapter(ctx, cfg)
	case ProviderDeepSeek:
		return NewDeepSeekAdapter(cfg)
	case ProviderMock:
		m := NewMock(nameOr(cfg.Name, ProviderMock), cfg.Version, cfg.Capabilities)
		switch {
		case cfg.Capabilities.Supports("subAgents") && cfg.Capabilities.Streaming:
			return &fullMock{DelegatingMock: NewDelegatingMock(m)}, nil
		case cfg.Capabilities.Supports("subAgents"):
			return NewDelegatingMock(m), nil
		case cfg.Capabilities.Streaming:
			return NewStreamingMock(m), nil
		}
		return m, nil
	default:
		return nil, fmt.Errorf("unknown provider %q (want one of %s)", provider, strings.Join(Providers(), ", "))
	}
}

// fullMock delegates and streams.
type fullMock struct {
	*DelegatingMock
}

func (f *fullMock) ExecuteWithStreaming(ctx context.Context, req StreamRequest) (*task.Result, error) {
	return NewStreamingMock(f.Mock).ExecuteWithStreaming(ctx, req)
}
