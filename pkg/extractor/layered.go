package extractor

import (
	"context"
	"strings"
	"time"

	"github.com/jmylchreest/propcheck/internal/logger"
	"github.com/jmylchreest/propcheck/pkg/schema"
)

// LayeredExtractor runs every strategy over the same blob and merges the
// results field by field. Earlier strategies take precedence; a strategy
// that errors is skipped. It fails closed: the merged Fields may be empty
// but Extract only errors when no strategy could run at all.
type LayeredExtractor struct {
	strategies []Extractor
}

// NewLayered creates a layered extractor. Typical use is
// NewLayered(NewFallback(llm extractors...), NewRegex()).
func NewLayered(strategies ...Extractor) *LayeredExtractor {
	return &LayeredExtractor{strategies: strategies}
}

// Extract merges the available strategies' results.
func (l *LayeredExtractor) Extract(ctx context.Context, blob string) (*Result, error) {
	start := time.Now()
	log := logger.FromContext(ctx)

	merged := &Result{
		Fields:  &Fields{},
		Sources: make(map[string]string),
	}
	var rejected []schema.ValidationError
	ran := 0

	for _, s := range l.strategies {
		if !s.Available() {
			continue
		}
		ran++

		result, err := s.Extract(ctx, blob)
		if err != nil {
			if isModelBacked(s) {
				merged.Fallback = true
			}
			log.Warn("extraction strategy failed, continuing", "strategy", s.Name(), "error", err)
			continue
		}
		if result == nil || result.Fields == nil {
			continue
		}

		source := result.Provider
		if source == "" {
			source = s.Name()
		}
		for _, name := range merged.Fields.Fill(result.Fields) {
			merged.Sources[name] = source
		}

		merged.Usage.InputTokens += result.Usage.InputTokens
		merged.Usage.OutputTokens += result.Usage.OutputTokens
		rejected = append(rejected, result.Rejected...)
		if merged.Raw == "" {
			merged.Raw = result.Raw
		}
		if merged.Model == "" {
			merged.Model = result.Model
		}
	}

	if ran == 0 {
		return nil, ErrNoExtractorAvailable
	}

	merged.Rejected = rejected
	merged.Provider = l.Name()
	merged.Duration = time.Since(start)

	log.Debug("layered extraction complete",
		"fields_present", merged.Fields.Present(),
		"fallback", merged.Fallback,
		"sources", merged.Sources)

	return merged, nil
}

// Name returns the layered extractor name.
func (l *LayeredExtractor) Name() string {
	var names []string
	for _, s := range l.strategies {
		names = append(names, s.Name())
	}
	return "layered(" + strings.Join(names, "+") + ")"
}

// Available returns true if any strategy is available.
func (l *LayeredExtractor) Available() bool {
	for _, s := range l.strategies {
		if s.Available() {
			return true
		}
	}
	return false
}
