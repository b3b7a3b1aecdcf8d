package ai

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/lilhelper-coder/Asset-Architect-sub000/internal/config"
)

type geminiBackend struct {
	client *genai.Client
	model  string
	config *genai.GenerateContentConfig
}

func newGeminiBackend(ctx context.Context, cfg config.AIConfig) (*geminiBackend, error) {
	if !cfg.GeminiEnabled() {
		return nil, fmt.Errorf("gemini requires GEMINI_API_KEY and GEMINI_MODEL")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	gen := &genai.GenerateContentConfig{}
	if cfg.Temperature != nil {
		val := float32(*cfg.Temperature)
		gen.Temperature = &val
	}
	if cfg.TopP != nil {
		val := float32(*cfg.TopP)
		gen.TopP = &val
	}

	return &geminiBackend{client: client, model: cfg.GeminiModel, config: gen}, nil
}

func (b *geminiBackend) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := b.client.Models.GenerateContent(ctx, b.model, genai.Text(prompt), b.config)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return "", errMalformedResponse
	}
	return resp.Text(), nil
}
