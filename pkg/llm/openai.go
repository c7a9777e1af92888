package llm

import (
	"context"
	"fmt"
	"strings"
)

// Known OpenAI model pricing (per token, USD)
var openaiPricing = map[string]pricing{
	"gpt-4o":        {2.50 / 1_000_000, 10.0 / 1_000_000},
	"gpt-4o-mini":   {0.15 / 1_000_000, 0.60 / 1_000_000},
	"gpt-4-turbo":   {10.0 / 1_000_000, 30.0 / 1_000_000},
	"gpt-3.5-turbo": {0.50 / 1_000_000, 1.50 / 1_000_000},
}

// OpenAIProvider implements Provider for direct OpenAI API access.
type OpenAIProvider struct {
	chat  chatClient
	model string
}

// NewOpenAIProvider creates a new OpenAI provider.
func NewOpenAIProvider(cfg ProviderConfig) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key required")
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModels["openai"]
	}

	return &OpenAIProvider{
		chat:  newChatClient("OpenAI", cfg, cfg.BaseURL),
		model: model,
	}, nil
}

// Execute sends a completion request to OpenAI.
func (p *OpenAIProvider) Execute(ctx context.Context, req Request) (*Response, error) {
	resp, err := p.chat.complete(ctx, p.model, req)
	if err != nil {
		return nil, err
	}
	resp.Cost = p.EstimateCost(p.model, resp.Usage.InputTokens, resp.Usage.OutputTokens)
	return resp, nil
}

// Name returns the provider identifier.
func (p *OpenAIProvider) Name() string {
	return "openai"
}

// Model returns the configured model name.
func (p *OpenAIProvider) Model() string {
	return p.model
}

// EstimateCost calculates cost based on known OpenAI pricing.
func (p *OpenAIProvider) EstimateCost(modelID string, inputTokens, outputTokens int) float64 {
	if pr, ok := openaiPricing[modelID]; ok {
		return pr.cost(inputTokens, outputTokens)
	}

	// Longest prefix wins so gpt-4o-mini-2024 is not priced as gpt-4o.
	best := ""
	for id := range openaiPricing {
		if strings.HasPrefix(modelID, id) && len(id) > len(best) {
			best = id
		}
	}
	if best != "" {
		return openaiPricing[best].cost(inputTokens, outputTokens)
	}

	// Fallback to gpt-4o-mini pricing
	return openaiPricing["gpt-4o-mini"].cost(inputTokens, outputTokens)
}

var (
	_ Provider      = (*OpenAIProvider)(nil)
	_ CostEstimator = (*OpenAIProvider)(nil)
)
