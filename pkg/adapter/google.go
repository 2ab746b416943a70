package adapter

import (
	"context"
	"fmt"
	"strings"

	"github.com/zen-systems/taskgate/pkg/artifact"
	"github.com/zen-systems/taskgate/pkg/task"
	"google.golang.org/genai"
)

// GoogleAdapter executes tasks against Gemini models.
type GoogleAdapter struct {
	*Base
	client *genai.Client
	model  string
}

// NewGoogleAdapter creates a new Google Gemini adapter.
func NewGoogleAdapter(ctx context.Context, cfg ProviderConfig) (*GoogleAdapter, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("google API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create google client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = "gemini-2.0-pro"
	}

	return &GoogleAdapter{
		Base:   NewBase(nameOr(cfg.Name, "google"), cfg.Version, cfg.Capabilities),
		client: client,
		model:  model,
	}, nil
}

// ExecuteTask sends the rendered task to Gemini.
func (a *GoogleAdapter) ExecuteTask(ctx context.Context, t *task.Task) (*task.Result, error) {
	resp, err := a.client.Models.GenerateContent(ctx, a.model, genai.Text(RenderPrompt(t)), nil)
	if err != nil {
		return nil, &AdapterError{Adapter: a.Name(), Err: fmt.Errorf("google API error: %w", err)}
	}

	if resp == nil || len(resp.Candidates) == 0 {
		return nil, &AdapterError{Adapter: a.Name(), Err: fmt.Errorf("google returned no candidates")}
	}

	var content strings.Builder
	if resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			if part.Text != "" {
				content.WriteString(part.Text)
			}
		}
	}

	res := textResult(t, a.Name(), a.model, content.String())
	res.Artifacts = append(res.Artifacts, artifact.New(artifact.KindText, res.Output, a.Name(), t.ID))
	return res, nil
}
