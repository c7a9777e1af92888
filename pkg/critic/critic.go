// Package critic produces a blunt buy/don't-buy verdict for a property
// record using an LLM, plus rule-based risk factors that need no model.
package critic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/jmylchreest/propcheck/internal/logger"
	"github.com/jmylchreest/propcheck/pkg/extractor"
	"github.com/jmylchreest/propcheck/pkg/llm"
	"github.com/jmylchreest/propcheck/pkg/report"
)

// ErrNoProvider is returned by Verdict when no LLM is configured.
var ErrNoProvider = errors.New("no LLM provider configured")

// Recommendation is the critic's bottom line.
type Recommendation string

const (
	Buy     Recommendation = "BUY"
	DontBuy Recommendation = "DON'T_BUY"
	Neutral Recommendation = "NEUTRAL"
)

// Verdict is the critic's output.
type Verdict struct {
	OverallVerdict string         `json:"overallVerdict" yaml:"overallVerdict"`
	Recommendation Recommendation `json:"recommendation" yaml:"recommendation"`
	RiskFactors    []string       `json:"riskFactors" yaml:"riskFactors"`
}

// SystemPrompt sets the critic's persona and reply format.
const SystemPrompt = `You are a brutally honest UK property critic with years of investigative experience. You analyse properties with a blunt, straight-talking style.

PERSONALITY TRAITS:
- Direct and brutally honest
- Treats property as an investment, not just a home
- Speaks with authority and experience

ANALYSIS STYLE:
- Start with a strong opening statement
- Be opinionated and decisive
- Include specific numbers and facts from the data
- Consider the investment potential, not just living there

Keep the response to 1 paragraph maximum.

You must respond with a valid JSON object containing:
{
  "analysis": "Your analysis paragraph",
  "recommendation": "BUY" | "DON'T_BUY" | "NEUTRAL"
}`

var jsonObjectPattern = regexp.MustCompile(`(?s)\{.*\}`)

// Critic asks a model for a verdict on a record.
type Critic struct {
	provider llm.Provider
}

// New creates a critic. A nil provider makes Verdict return ErrNoProvider.
func New(provider llm.Provider) *Critic {
	return &Critic{provider: provider}
}

// Available reports whether a provider is configured.
func (c *Critic) Available() bool {
	return c != nil && c.provider != nil
}

// Verdict asks the model for an assessment of r. A reply that is not the
// expected JSON is kept verbatim as the verdict with a NEUTRAL recommendation.
func (c *Critic) Verdict(ctx context.Context, r *report.PropertyRecord) (*Verdict, error) {
	if r == nil {
		return nil, errors.New("property data is required")
	}
	if !c.Available() {
		return nil, ErrNoProvider
	}

	start := time.Now()
	resp, err := llm.Complete(ctx, c.provider, SystemPrompt, BuildPrompt(r))
	if err != nil {
		return nil, fmt.Errorf("failed to generate property analysis: %w", err)
	}

	v := ParseVerdict(resp.Content)
	v.RiskFactors = RiskFactors(r)

	logger.FromContext(ctx).Debug("critic verdict",
		"provider", c.provider.Name(),
		"recommendation", v.Recommendation,
		"risk_factors", len(v.RiskFactors),
		"duration", time.Since(start))

	return v, nil
}

// BuildPrompt renders the record as the analysis request.
func BuildPrompt(r *report.PropertyRecord) string {
	p := message.NewPrinter(language.BritishEnglish)

	propertyType := string(r.PropertyType)
	if propertyType == "" {
		propertyType = "unknown"
	}
	lastSaleYear := r.History.LastSaleDate
	if t, err := time.Parse(report.TimestampLayout, r.History.LastSaleDate); err == nil {
		lastSaleYear = strconv.Itoa(t.Year())
	}

	var b strings.Builder
	b.WriteString("Based on the following property data, provide your brutally honest assessment of whether this property is worth buying:\n\n")

	b.WriteString("Property Details:\n")
	b.WriteString(p.Sprintf("- Address: %s\n", r.Address))
	b.WriteString(p.Sprintf("- Price: £%d\n", r.Price))
	b.WriteString(p.Sprintf("- Price per sqm: £%d/sqm\n", r.PricePerSqM))
	b.WriteString(fmt.Sprintf("- Bedrooms: %d\n", r.Bedrooms))
	b.WriteString(fmt.Sprintf("- Bathrooms: %d\n", r.Bathrooms))
	b.WriteString(fmt.Sprintf("- Property Type: %s\n", propertyType))
	b.WriteString(fmt.Sprintf("- Tenure: %s\n", r.Tenure))
	b.WriteString(fmt.Sprintf("- Condition: %s\n\n", r.Condition))

	b.WriteString("Market Analysis:\n")
	b.WriteString(p.Sprintf("- Zoopla Valuation: £%d\n", r.Indices.Zoopla))
	b.WriteString(p.Sprintf("- ONS Valuation: £%d\n", r.Indices.ONS))
	b.WriteString(p.Sprintf("- Acadata Valuation: £%d\n", r.Indices.Acadata))
	b.WriteString(p.Sprintf("- Last Sale Price: £%d (%s)\n", r.History.LastSalePrice, lastSaleYear))
	b.WriteString(fmt.Sprintf("- Growth Since Last Sale: %s%%\n", formatFloat(r.History.GrowthSinceLastSale)))
	b.WriteString(fmt.Sprintf("- Value for Money Score: %s/10\n\n", formatFloat(r.ValueForMoney)))

	b.WriteString("Financial Costs:\n")
	b.WriteString(p.Sprintf("- SDLT: £%d\n", int(math.Round(r.Costs.SDLT))))
	b.WriteString(p.Sprintf("- Total Purchase Costs: £%d\n\n", int(math.Round(r.Costs.Total()))))

	b.WriteString("Local Area:\n")
	b.WriteString(fmt.Sprintf("- ONS Area Price Change: %s%%\n", formatFloat(r.LocalArea.ONSAreaChange)))
	b.WriteString(p.Sprintf("- Average for %s: £%d\n\n", propertyType, postcodeAverage(r)))

	b.WriteString("Provide your analysis and recommendation in the required JSON format.")
	return b.String()
}

// ParseVerdict extracts {analysis, recommendation} from a model reply.
func ParseVerdict(content string) *Verdict {
	fallback := &Verdict{OverallVerdict: content, Recommendation: Neutral}

	raw := jsonObjectPattern.FindString(content)
	if raw == "" {
		return fallback
	}
	var parsed struct {
		Analysis       string `json:"analysis"`
		Recommendation string `json:"recommendation"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil || parsed.Analysis == "" {
		return fallback
	}
	return &Verdict{
		OverallVerdict: parsed.Analysis,
		Recommendation: NormalizeRecommendation(parsed.Recommendation),
	}
}

// NormalizeRecommendation maps free-form wording onto the three values.
func NormalizeRecommendation(s string) Recommendation {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.NewReplacer(" ", "_", "-", "_", "’", "'").Replace(s)
	switch s {
	case "BUY":
		return Buy
	case "DON'T_BUY", "DONT_BUY", "DO_NOT_BUY", "AVOID":
		return DontBuy
	}
	return Neutral
}

// RiskFactors lists rule-based concerns about r. The result is never nil.
func RiskFactors(r *report.PropertyRecord) []string {
	risks := []string{}

	avg := float64(r.Indices.Zoopla+r.Indices.ONS+r.Indices.Acadata) / 3
	if avg > 0 && float64(r.Price) > avg*1.1 {
		pct := math.Round((float64(r.Price)/avg - 1) * 100)
		risks = append(risks, fmt.Sprintf("Property is priced %d%% above average valuations", int(pct)))
	}
	if r.History.GrowthSinceLastSale < 10 {
		risks = append(risks, fmt.Sprintf("Modest growth of only %s%% since last sale", formatFloat(r.History.GrowthSinceLastSale)))
	}
	if r.ValueForMoney <= 5 {
		risks = append(risks, "Below average value for money score")
	}
	return risks
}

func postcodeAverage(r *report.PropertyRecord) int {
	avg := r.LocalArea.PostcodeAverage
	switch r.PropertyType {
	case extractor.Detached:
		return avg.Detached
	case extractor.SemiDetached:
		return avg.SemiDetached
	case extractor.Terraced:
		return avg.Terraced
	case extractor.Flat:
		return avg.Flat
	}
	return 0
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
