package llm

import (
	"context"
	"fmt"
)

// geminiBaseURL is Google's OpenAI-compatible endpoint for the Gemini API.
const geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"

var geminiPricing = map[string]pricing{
	"gemini-1.5-flash": {0.075 / 1_000_000, 0.30 / 1_000_000},
	"gemini-1.5-pro":   {1.25 / 1_000_000, 5.0 / 1_000_000},
	"gemini-2.0-flash": {0.10 / 1_000_000, 0.40 / 1_000_000},
}

// GeminiProvider talks to Gemini through its OpenAI-compatible API.
type GeminiProvider struct {
	chat  chatClient
	model string
}

// NewGeminiProvider creates a new Gemini provider.
func NewGeminiProvider(cfg ProviderConfig) (*GeminiProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key required")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = geminiBaseURL
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModels["gemini"]
	}

	return &GeminiProvider{
		chat:  newChatClient("Gemini", cfg, baseURL),
		model: model,
	}, nil
}

// Execute sends a completion request to Gemini.
func (p *GeminiProvider) Execute(ctx context.Context, req Request) (*Response, error) {
	resp, err := p.chat.complete(ctx, p.model, req)
	if err != nil {
		return nil, err
	}
	resp.Cost = p.EstimateCost(p.model, resp.Usage.InputTokens, resp.Usage.OutputTokens)
	return resp, nil
}

// Name returns the provider identifier.
func (p *GeminiProvider) Name() string {
	return "gemini"
}

// Model returns the configured model name.
func (p *GeminiProvider) Model() string {
	return p.model
}

// EstimateCost calculates cost based on known Gemini pricing.
func (p *GeminiProvider) EstimateCost(modelID string, inputTokens, outputTokens int) float64 {
	if pr, ok := geminiPricing[modelID]; ok {
		return pr.cost(inputTokens, outputTokens)
	}
	return 0
}

var (
	_ Provider      = (*GeminiProvider)(nil)
	_ CostEstimator = (*GeminiProvider)(nil)
)
