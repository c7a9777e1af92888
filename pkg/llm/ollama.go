package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultOllamaURL = "http://localhost:11434"

	// Ollama loads models with a 2048 token window and silently drops the
	// head of longer prompts, which is where the listing blob sits.
	minOllamaContext = 4096
	maxOllamaContext = 32768

	// Keeps the model resident between listings of one batch.
	ollamaKeepAlive = "10m"
)

// OllamaProvider talks to a local Ollama server over its /api/chat endpoint.
// It needs no key and is the provider of last resort.
type OllamaProvider struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewOllamaProvider creates a provider for cfg.BaseURL, or the local default.
func NewOllamaProvider(cfg ProviderConfig) (*OllamaProvider, error) {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultOllamaURL
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModels["ollama"]
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 120 * time.Second
	}

	return &OllamaProvider{
		baseURL: baseURL,
		model:   model,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

type ollamaRequest struct {
	Model     string          `json:"model"`
	Messages  []ollamaMessage `json:"messages"`
	Format    json.RawMessage `json:"format,omitempty"`
	Stream    bool            `json:"stream"`
	KeepAlive string          `json:"keep_alive,omitempty"`
	Options   ollamaOptions   `json:"options"`
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
	NumCtx      int     `json:"num_ctx"`
}

type ollamaResponse struct {
	Model           string        `json:"model"`
	Message         ollamaMessage `json:"message"`
	DoneReason      string        `json:"done_reason"`
	PromptEvalCount int           `json:"prompt_eval_count"`
	EvalCount       int           `json:"eval_count"`
}

type ollamaError struct {
	Error string `json:"error"`
}

// Execute runs one non-streaming chat. A reply cut off by num_predict is
// returned together with an error wrapping ErrTruncated, so its usage is
// still observed.
func (p *OllamaProvider) Execute(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()

	body := ollamaRequest{
		Model:     p.model,
		Messages:  make([]ollamaMessage, 0, len(req.Messages)),
		KeepAlive: ollamaKeepAlive,
		Options: ollamaOptions{
			Temperature: req.Temperature,
			NumPredict:  req.MaxTokens,
			NumCtx:      contextWindow(req),
		},
	}
	for _, msg := range req.Messages {
		body.Messages = append(body.Messages, ollamaMessage{Role: string(msg.Role), Content: msg.Content})
	}
	if req.JSONSchema != nil {
		format, err := json.Marshal(req.JSONSchema)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal JSON schema: %w", err)
		}
		body.Format = format
	}

	out, err := p.chat(ctx, body)
	if err != nil {
		return nil, err
	}

	resp := &Response{
		Content:      out.Message.Content,
		FinishReason: out.DoneReason,
		Usage: Usage{
			InputTokens:  out.PromptEvalCount,
			OutputTokens: out.EvalCount,
		},
		Model:    out.Model,
		Duration: time.Since(start),
	}
	switch out.DoneReason {
	case "":
		resp.FinishReason = "stop"
	case "length":
		return resp, fmt.Errorf("%w: ollama %s stopped after %d tokens", ErrTruncated, p.model, out.EvalCount)
	}
	return resp, nil
}

func (p *OllamaProvider) chat(ctx context.Context, body ollamaRequest) (*ollamaResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("ollama request failed (is `ollama serve` running at %s?): %w", p.baseURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		msg := strings.TrimSpace(string(raw))
		var e ollamaError
		if json.Unmarshal(raw, &e) == nil && e.Error != "" {
			msg = e.Error
		}
		return nil, fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, msg)
	}

	var out ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode ollama response: %w", err)
	}
	return &out, nil
}

// contextWindow sizes num_ctx to fit the prompt (about three characters a
// token for listing text) plus the reply, as a power of two.
func contextWindow(req Request) int {
	chars := 0
	for _, msg := range req.Messages {
		chars += len(msg.Content)
	}
	need := chars/3 + req.MaxTokens
	window := minOllamaContext
	for window < need && window < maxOllamaContext {
		window *= 2
	}
	return window
}

// Name returns the provider identifier.
func (p *OllamaProvider) Name() string {
	return "ollama"
}

// Model returns the configured model name.
func (p *OllamaProvider) Model() string {
	return p.model
}

var _ Provider = (*OllamaProvider)(nil)
