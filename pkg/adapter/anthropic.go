package adapter

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/zen-systems/taskgate/pkg/artifact"
	"github.com/zen-systems/taskgate/pkg/task"
)

// AnthropicAdapter executes tasks against Claude models.
type AnthropicAdapter struct {
	*Base
	client    anthropic.Client
	model     string
	maxTokens int64
}

// NewAnthropicAdapter creates a new Anthropic adapter.
func NewAnthropicAdapter(cfg ProviderConfig) (*AnthropicAdapter, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic API key is required")
	}
	model := cfg.Model
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &AnthropicAdapter{
		Base:      NewBase(nameOr(cfg.Name, "anthropic"), cfg.Version, cfg.Capabilities),
		client:    anthropic.NewClient(opts...),
		model:     model,
		maxTokens: cfg.maxTokens(),
	}, nil
}

// ExecuteTask sends the rendered task to Claude.
func (a *AnthropicAdapter) ExecuteTask(ctx context.Context, t *task.Task) (*task.Result, error) {
	resp, err := a.client.Messages.New(ctx, a.params(t))
	if err != nil {
		return nil, a.wrapError(err)
	}

	var content strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			content.WriteString(block.Text)
		}
	}

	res := textResult(t, a.Name(), a.model, content.String())
	res.Artifacts = append(res.Artifacts, artifact.New(artifact.KindText, res.Output, a.Name(), t.ID))
	return res, nil
}

// ExecuteWithStreaming streams text deltas to req.OnChunk as they arrive.
func (a *AnthropicAdapter) ExecuteWithStreaming(ctx context.Context, req StreamRequest) (*task.Result, error) {
	stream := a.client.Messages.NewStreaming(ctx, a.params(req.Task))
	defer stream.Close()

	var content strings.Builder
	index := 0
	for stream.Next() {
		ev := stream.Current()
		delta, ok := ev.AsAny().(anthropic.ContentBlockDeltaEvent)
		if !ok {
			continue
		}
		text, ok := delta.Delta.AsAny().(anthropic.TextDelta)
		if !ok || text.Text == "" {
			continue
		}
		content.WriteString(text.Text)
		if req.OnChunk != nil {
			req.OnChunk(task.Chunk{Index: index, Content: text.Text})
		}
		index++
	}
	if err := stream.Err(); err != nil {
		return nil, a.wrapError(err)
	}

	res := textResult(req.Task, a.Name(), a.model, content.String())
	res.SetMeta("chunks", index)
	return res, nil
}

func (a *AnthropicAdapter) params(t *task.Task) anthropic.MessageNewParams {
	return anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: a.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(RenderPrompt(t))),
		},
	}
}

func (a *AnthropicAdapter) wrapError(err error) error {
	adapterErr := &AdapterError{Adapter: a.Name(), Err: fmt.Errorf("anthropic API error: %w", err)}
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		adapterErr.Status = apiErr.StatusCode
	}
	return adapterErr
}
