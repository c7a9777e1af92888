// Package llm provides a unified interface for LLM providers.
package llm

import (
	"context"
	"errors"
	"time"
)

// ErrTruncated is wrapped by providers when a reply stopped at the output
// token limit. Structured output cut short is never valid JSON.
var ErrTruncated = errors.New("response truncated at the output token limit")

// Role represents the role of a message sender.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message represents a chat message.
type Message struct {
	Role    Role
	Content string
}

// Request represents a completion request to the LLM.
type Request struct {
	Messages    []Message
	MaxTokens   int
	Temperature float64
	JSONSchema  map[string]any // For structured output
	StrictMode  bool           // Use strict JSON schema validation (only for supported models)
}

// Usage tracks token consumption.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// Response represents the result of an LLM execution.
type Response struct {
	Content      string
	FinishReason string
	Usage        Usage
	Model        string  // Actual model used (may differ from requested for auto-routing)
	Cost         float64 // Estimated from known pricing, 0 if unknown
	Duration     time.Duration
}

// Provider is the core interface that all LLM backends must implement.
type Provider interface {
	// Execute sends a completion request and returns the response.
	Execute(ctx context.Context, req Request) (*Response, error)

	// Name returns the provider identifier (e.g., "gemini", "anthropic").
	Name() string

	// Model returns the configured model name.
	Model() string
}

// CostEstimator is an optional interface for providers that can estimate
// costs based on token counts without making an API call.
type CostEstimator interface {
	EstimateCost(modelID string, inputTokens, outputTokens int) float64
}

// ProviderConfig holds common configuration for providers.
type ProviderConfig struct {
	APIKey     string
	BaseURL    string // For custom endpoints or OpenAI-compatible gateways
	Model      string
	MaxRetries int
	Timeout    time.Duration
	// HTTPReferer and Title for OpenRouter attribution
	HTTPReferer string
	AppTitle    string
}

// DefaultProviderConfig returns sensible defaults.
func DefaultProviderConfig() ProviderConfig {
	return ProviderConfig{
		MaxRetries: 2,
		Timeout:    120 * time.Second,
	}
}

// Complete is a convenience wrapper for a single system+user exchange.
func Complete(ctx context.Context, p Provider, system, user string) (*Response, error) {
	msgs := make([]Message, 0, 2)
	if system != "" {
		msgs = append(msgs, Message{Role: RoleSystem, Content: system})
	}
	msgs = append(msgs, Message{Role: RoleUser, Content: user})
	return p.Execute(ctx, Request{Messages: msgs})
}

// pricing is a per-token USD price pair.
type pricing struct {
	prompt     float64
	completion float64
}

func (p pricing) cost(in, out int) float64 {
	return float64(in)*p.prompt + float64(out)*p.completion
}
