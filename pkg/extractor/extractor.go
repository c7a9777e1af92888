// Package extractor turns a listing text blob into Fields using an ordered
// set of strategies: an LLM, deterministic regexes, and the merge between them.
package extractor

import (
	"context"
	"time"

	"github.com/jmylchreest/propcheck/pkg/schema"
)

// Extractor extracts listing fields from a text blob.
type Extractor interface {
	// Extract performs extraction from the blob.
	Extract(ctx context.Context, blob string) (*Result, error)

	// Name returns the extractor identifier.
	Name() string

	// Available returns true if the extractor is properly configured
	// (e.g., has a provider).
	Available() bool
}

// Result holds the extraction output.
type Result struct {
	// Fields is the extracted data. Never nil on success.
	Fields *Fields

	// Sources maps a field's JSON name to the extractor that supplied it.
	Sources map[string]string

	// Fallback is true when a model-backed strategy was attempted and failed.
	Fallback bool

	// Raw is the raw response from the extractor (e.g., LLM response).
	Raw string

	// Rejected lists model output fields that failed validation and were dropped.
	Rejected []schema.ValidationError

	// Usage tracks token consumption for LLM-based extractors.
	Usage Usage

	// Model is the actual model used.
	Model string

	// Provider is the provider/extractor name.
	Provider string

	// Duration is the total time spent extracting.
	Duration time.Duration
}

// Usage tracks token consumption for LLM-based extractors.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// modelBacked is implemented by strategies that call an LLM, so the
// layered extractor can tell a model failure from a regex miss.
type modelBacked interface {
	usesModel() bool
}

func isModelBacked(e Extractor) bool {
	m, ok := e.(modelBacked)
	return ok && m.usesModel()
}
