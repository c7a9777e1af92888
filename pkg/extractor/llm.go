package extractor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmylchreest/propcheck/internal/logger"
	"github.com/jmylchreest/propcheck/pkg/llm"
	"github.com/jmylchreest/propcheck/pkg/schema"
)

var fieldsSchema = mustFieldsSchema()

func mustFieldsSchema() schema.Schema {
	s, err := schema.NewSchema[Fields](schema.WithDescription("A UK residential property listing."))
	if err != nil {
		panic(fmt.Sprintf("extractor: invalid Fields schema: %v", err))
	}
	return s
}

// FieldsSchema returns the schema sent to the model and used to filter its output.
func FieldsSchema() schema.Schema {
	return fieldsSchema
}

// LLMExtractor asks a model for Fields and treats the reply as untrusted:
// fields failing the schema are dropped rather than coerced.
type LLMExtractor struct {
	provider llm.Provider
	config   LLMConfig
}

// LLMOption configures an LLMExtractor.
type LLMOption func(*LLMConfig)

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) LLMOption {
	return func(c *LLMConfig) { c.Temperature = t }
}

// WithMaxTokens sets the maximum output tokens.
func WithMaxTokens(n int) LLMOption {
	return func(c *LLMConfig) { c.MaxTokens = n }
}

// WithMaxContentSize caps the blob sent to the model.
func WithMaxContentSize(n int) LLMOption {
	return func(c *LLMConfig) { c.MaxContentSize = n }
}

// WithStrictMode enables strict JSON schema validation.
func WithStrictMode(strict bool) LLMOption {
	return func(c *LLMConfig) { c.StrictMode = strict }
}

// NewLLM creates an extractor backed by provider. A nil provider yields an
// extractor that reports itself unavailable.
func NewLLM(provider llm.Provider, opts ...LLMOption) *LLMExtractor {
	cfg := DefaultLLMConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &LLMExtractor{provider: provider, config: cfg}
}

// Extract performs a single model call. There is no retry; failures are
// returned for the caller's fallback chain to handle.
func (e *LLMExtractor) Extract(ctx context.Context, blob string) (*Result, error) {
	if e.provider == nil {
		return nil, ErrNoExtractorAvailable
	}

	start := time.Now()
	log := logger.FromContext(ctx)

	jsonSchema, err := fieldsSchema.ToJSONSchema()
	if err != nil {
		return nil, fmt.Errorf("failed to generate JSON schema: %w", err)
	}

	prompt := BuildPrompt(blob, fieldsSchema, e.config.MaxContentSize)
	log.Debug("extractor calling LLM",
		"provider", e.provider.Name(),
		"model", e.provider.Model(),
		"prompt_size", len(prompt),
		"strict_mode", e.config.StrictMode)

	resp, err := e.provider.Execute(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: SystemPrompt},
			{Role: llm.RoleUser, Content: prompt},
		},
		MaxTokens:   e.config.MaxTokens,
		Temperature: e.config.Temperature,
		JSONSchema:  jsonSchema,
		StrictMode:  e.config.StrictMode,
	})
	if errors.Is(err, llm.ErrTruncated) {
		log.Warn("extractor LLM reply truncated, consider a larger token limit",
			"provider", e.provider.Name(),
			"max_tokens", e.config.MaxTokens)
	}
	if err != nil {
		return nil, fmt.Errorf("LLM completion failed: %w", err)
	}

	result := &Result{
		Raw:      resp.Content,
		Model:    resp.Model,
		Provider: e.Name(),
		Usage: Usage{
			InputTokens:  resp.Usage.InputTokens,
			OutputTokens: resp.Usage.OutputTokens,
		},
	}

	fields, rejected, err := ParseFields(resp.Content)
	if err != nil {
		log.Debug("extractor failed to parse response", "error", err)
		return result, fmt.Errorf("failed to parse response as JSON: %w (response: %s)", err, truncateForError(resp.Content))
	}
	if len(rejected) > 0 {
		log.Debug("extractor dropped invalid fields", "rejected", rejected)
	}

	result.Fields = fields
	result.Rejected = rejected
	result.Duration = time.Since(start)

	log.Debug("extractor LLM response parsed",
		"fields_present", fields.Present(),
		"input_tokens", resp.Usage.InputTokens,
		"output_tokens", resp.Usage.OutputTokens,
		"duration", result.Duration)

	return result, nil
}

// ParseFields decodes a model reply into Fields. Code fences are stripped
// and each field is checked against the schema; failing fields are nil.
func ParseFields(content string) (*Fields, []schema.ValidationError, error) {
	var raw map[string]any
	if err := json.Unmarshal([]byte(StripMarkdownCodeBlock(content)), &raw); err != nil {
		return nil, nil, err
	}

	accepted, rejected := fieldsSchema.Filter(raw)

	// Re-encode the filtered map so the typed decode only sees checked values.
	data, err := json.Marshal(accepted)
	if err != nil {
		return nil, rejected, err
	}
	var fields Fields
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, rejected, err
	}
	return &fields, rejected, nil
}

// Name returns the extractor name.
func (e *LLMExtractor) Name() string {
	if e.provider == nil {
		return "llm"
	}
	return "llm:" + e.provider.Name()
}

// Available returns true if a provider is configured.
func (e *LLMExtractor) Available() bool {
	return e.provider != nil
}

func (e *LLMExtractor) usesModel() bool { return true }

// truncateForError truncates content for error messages.
func truncateForError(s string) string {
	if len(s) <= 200 {
		return s
	}
	return s[:200] + "..."
}
