package adapter

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/zen-systems/taskgate/pkg/artifact"
	"github.com/zen-systems/taskgate/pkg/task"
)

const deepseekBaseURL = "https://api.deepseek.com/v1"

// OpenAIAdapter executes tasks against OpenAI-compatible chat completion APIs.
type OpenAIAdapter struct {
	*Base
	client    openai.Client
	model     string
	maxTokens int64
}

// NewOpenAIAdapter creates a new OpenAI adapter.
func NewOpenAIAdapter(cfg ProviderConfig) (*OpenAIAdapter, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-5.2-codex"
	}
	return newOpenAICompatible(nameOr(cfg.Name, "openai"), cfg), nil
}

// NewDeepSeekAdapter creates an adapter for DeepSeek, which speaks the
// OpenAI chat completion protocol.
func NewDeepSeekAdapter(cfg ProviderConfig) (*OpenAIAdapter, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("deepseek API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "deepseek-coder"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = deepseekBaseURL
	}
	return newOpenAICompatible(nameOr(cfg.Name, "deepseek"), cfg), nil
}

func newOpenAICompatible(name string, cfg ProviderConfig) *OpenAIAdapter {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &OpenAIAdapter{
		Base:      NewBase(name, cfg.Version, cfg.Capabilities),
		client:    openai.NewClient(opts...),
		model:     cfg.Model,
		maxTokens: cfg.maxTokens(),
	}
}

// ExecuteTask sends the rendered task as a chat completion.
func (a *OpenAIAdapter) ExecuteTask(ctx context.Context, t *task.Task) (*task.Result, error) {
	resp, err := a.client.Chat.Completions.New(ctx, a.params(t))
	if err != nil {
		return nil, a.wrapError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, &AdapterError{Adapter: a.Name(), Err: fmt.Errorf("%s returned no choices", a.Name())}
	}

	res := textResult(t, a.Name(), a.model, resp.Choices[0].Message.Content)
	res.Artifacts = append(res.Artifacts, artifact.New(artifact.KindText, res.Output, a.Name(), t.ID))
	return res, nil
}

// ExecuteWithStreaming streams completion deltas to req.OnChunk.
func (a *OpenAIAdapter) ExecuteWithStreaming(ctx context.Context, req StreamRequest) (*task.Result, error) {
	stream := a.client.Chat.Completions.NewStreaming(ctx, a.params(req.Task))
	defer stream.Close()

	var content strings.Builder
	index := 0
	for stream.Next() {
		chunk := stream.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		content.WriteString(delta)
		if req.OnChunk != nil {
			req.OnChunk(task.Chunk{Index: index, Content: delta})
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

func (a *OpenAIAdapter) params(t *task.Task) openai.ChatCompletionNewParams {
	return openai.ChatCompletionNewParams{
		Model: openai.ChatModel(a.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(RenderPrompt(t)),
		},
		MaxCompletionTokens: openai.Int(a.maxTokens),
	}
}

func (a *OpenAIAdapter) wrapError(err error) error {
	adapterErr := &AdapterError{Adapter: a.Name(), Err: fmt.Errorf("%s API error: %w", a.Name(), err)}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		adapterErr.Status = apiErr.StatusCode
	}
	return adapterErr
}
