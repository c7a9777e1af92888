package extractor

import (
	"strings"

	"github.com/jmylchreest/propcheck/pkg/schema"
	"github.com/jmylchreest/propcheck/pkg/scrape"
)

// LLMConfig holds configuration for the LLM extractor.
type LLMConfig struct {
	// Temperature for LLM responses (default: 0.1).
	Temperature float64

	// MaxTokens for LLM responses (default: 2048).
	MaxTokens int

	// MaxContentSize limits the blob in bytes (default: 100000, 0 = unlimited).
	MaxContentSize int

	// StrictMode enables strict JSON schema validation in the API request.
	// Only some OpenAI-compatible models support it.
	StrictMode bool
}

// DefaultLLMConfig returns sensible defaults for listing extraction.
func DefaultLLMConfig() LLMConfig {
	return LLMConfig{
		Temperature:    0.1,
		MaxTokens:      2048,
		MaxContentSize: 100000, // ~100KB
	}
}

// SqFtToSqM converts square feet to square metres.
const SqFtToSqM = 0.092903

// SystemPrompt is the system prompt for listing extraction.
const SystemPrompt = `You are a data extraction assistant for UK residential property listings.

The content is a labelled text summary scraped from a listing page. Several
lines may give conflicting hints for the same field; prefer the most specific one.

Respond with ONLY valid JSON matching the schema. No explanations.

Rules:
1. Every field must be present; use null for anything that cannot be determined
2. Numbers: digits only, no currency symbols or thousands separators
3. Dates: keep the DD/MM/YYYY form found in the content`

// mappingGuidance is appended to every prompt.
const mappingGuidance = `## Extraction Rules
- Bedrooms and bathrooms appear as "BEDROOMS 3", "Three bedrooms", "3 bed" and similar; words one to ten count as numbers.
- If only square feet are given, convert: square_meters = sq ft x 0.092903.
- property_type: map "apartment" and "studio" to "flat", "end of terrace" to "terraced", "town house" to "townhouse". A plain "house" needs the description to decide.
- condition: infer from wording such as "modernised" or "move-in ready" (ready-to-move), "needs updating" or "refurbishment" (renovation), "structural" or "derelict" (structural-project).
- listing_date comes from "Added on DD/MM/YYYY" and price_reduction_date from "Reduced on DD/MM/YYYY".
- images: only absolute URLs that appear in the content.
`

// BuildPrompt creates the extraction prompt from the blob and schema.
func BuildPrompt(blob string, s schema.Schema, maxContentSize int) string {
	var prompt strings.Builder

	prompt.WriteString("Extract property information from the following listing content.\n\n")
	prompt.WriteString(s.ToPromptDescription())
	prompt.WriteString("\n")
	prompt.WriteString(mappingGuidance)

	prompt.WriteString("\n## Listing Content\n")
	prompt.WriteString("```\n")
	prompt.WriteString(TruncateContent(blob, maxContentSize))
	prompt.WriteString("\n```\n")

	return prompt.String()
}

// TruncateContent limits content size to avoid token limits.
// maxLen of 0 means no limit.
func TruncateContent(content string, maxLen int) string {
	if maxLen <= 0 || len(content) <= maxLen {
		return content
	}
	return scrape.Cut(content, maxLen) + "\n\n[Content truncated due to length...]"
}

// StripMarkdownCodeBlock removes markdown code block wrappers from JSON responses.
// Some models wrap their JSON output in ```json ... ``` blocks.
func StripMarkdownCodeBlock(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "```json") {
		s = strings.TrimPrefix(s, "```json")
	} else if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
	} else {
		return s
	}

	s = strings.TrimSuffix(s, "```")

	return strings.TrimSpace(s)
}
