package extractor

import (
	"context"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jmylchreest/propcheck/internal/logger"
)

// Count bounds. A match outside them is treated as noise.
const (
	minBedrooms  = 1
	maxBedrooms  = 20
	minBathrooms = 1
	maxBathrooms = 15
)

var wordNumbers = map[string]int{
	"one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
}

const wordAlternation = `one|two|three|four|five|six|seven|eight|nine|ten`

var (
	addressPattern = regexp.MustCompile(`(?i)Address:\s*(.+)`)
	pricePattern   = regexp.MustCompile(`£([\d,]+)`)
	sqmPattern     = regexp.MustCompile(`(?i)(\d[\d,]*(?:\.\d+)?)\s*(?:sq\.?\s*m(?:etres?)?\b|sqm\b|square\s+met(?:re|er)s?|m²)`)
	sqftPattern    = regexp.MustCompile(`(?i)(\d[\d,]*(?:\.\d+)?)\s*(?:sq\.?\s*f(?:ee)?t|square\s+f(?:ee|oo)t)`)
	addedPattern   = regexp.MustCompile(`(?i)(?:Listing Date:\s*)?Added on (\d{1,2}/\d{1,2}/\d{4})`)
	reducedPattern = regexp.MustCompile(`(?i)(?:Price Reduction Date:\s*)?Reduced on (\d{1,2}/\d{1,2}/\d{4})`)
	imagesPattern  = regexp.MustCompile(`Images:\s*(.+)`)

	bedroomPatterns = []*regexp.Regexp{
		regexp.MustCompile(`BEDROOMS\s*:?[^\d\n]{0,20}?(\d+)`),
		regexp.MustCompile(`(?i)bedrooms?\s*:\s*(\d+)`),
		regexp.MustCompile(`(?i)\b(` + wordAlternation + `)\s+bed(?:room)?s?\b`),
		regexp.MustCompile(`(?i)(\d+)\s*bed(?:room)?s?\b`),
		regexp.MustCompile(`(?i)bedrooms?\s*:?\s*(\d+)`),
	}
	bathroomPatterns = []*regexp.Regexp{
		regexp.MustCompile(`BATHROOMS\s*:?[^\d\n]{0,20}?(\d+)`),
		regexp.MustCompile(`(?i)bathrooms?\s*:\s*(\d+)`),
		regexp.MustCompile(`(?i)\b(` + wordAlternation + `)\s+bath(?:room)?s?\b`),
		regexp.MustCompile(`(?i)(\d+)\s*bath(?:room)?s?\b`),
		regexp.MustCompile(`(?i)bathrooms?\s*:?\s*(\d+)`),
	}
)

// Keyword tables are ordered; the first hit wins.
var tenureKeywords = []struct {
	keyword string
	tenure  Tenure
}{
	{"shared ownership", SharedOwnership},
	{"share of freehold", Freehold},
	{"leasehold", Leasehold},
	{"freehold", Freehold},
	{"commonhold", Commonhold},
}

var propertyTypeKeywords = []struct {
	keyword string
	kind    PropertyType
}{
	{"semi-detached", SemiDetached},
	{"semi detached", SemiDetached},
	{"detached", Detached},
	{"end of terrace", Terraced},
	{"terraced", Terraced},
	{"terrace", Terraced},
	{"maisonette", Maisonette},
	{"penthouse", Flat},
	{"apartment", Flat},
	{"studio", Flat},
	{"flat", Flat},
	{"bungalow", Bungalow},
	{"cottage", Cottage},
	{"town house", Townhouse},
	{"townhouse", Townhouse},
}

// RegexExtractor pulls fields out of the blob with fixed patterns. It never
// fails and never calls a model, so it is always available.
type RegexExtractor struct{}

// NewRegex creates a regex extractor.
func NewRegex() *RegexExtractor {
	return &RegexExtractor{}
}

// Extract applies every field pattern to blob.
func (e *RegexExtractor) Extract(ctx context.Context, blob string) (*Result, error) {
	start := time.Now()

	f := &Fields{
		Address:            matchAddress(blob),
		Price:              matchPrice(blob),
		SquareMeters:       matchArea(blob),
		Bedrooms:           matchCount(blob, bedroomPatterns, minBedrooms, maxBedrooms),
		Bathrooms:          matchCount(blob, bathroomPatterns, minBathrooms, maxBathrooms),
		PropertyType:       matchPropertyType(blob),
		Tenure:             matchTenure(blob),
		ListingDate:        matchDate(blob, addedPattern),
		PriceReductionDate: matchDate(blob, reducedPattern),
		Images:             matchImages(blob),
	}

	logger.FromContext(ctx).Debug("regex extraction complete", "fields_present", f.Present())

	return &Result{
		Fields:   f,
		Provider: e.Name(),
		Duration: time.Since(start),
	}, nil
}

// Name returns the extractor name.
func (e *RegexExtractor) Name() string {
	return "regex"
}

// Available always returns true.
func (e *RegexExtractor) Available() bool {
	return true
}

func matchAddress(blob string) *string {
	m := addressPattern.FindStringSubmatch(blob)
	if m == nil {
		return nil
	}
	addr := strings.TrimSpace(m[1])
	if addr == "" {
		return nil
	}
	return &addr
}

func matchPrice(blob string) *int {
	m := pricePattern.FindStringSubmatch(blob)
	if m == nil {
		return nil
	}
	n, err := strconv.Atoi(strings.ReplaceAll(m[1], ",", ""))
	if err != nil || n < 0 {
		return nil
	}
	return &n
}

// matchArea prefers an explicit metric figure and converts from sq ft otherwise.
func matchArea(blob string) *float64 {
	if m := sqmPattern.FindStringSubmatch(blob); m != nil {
		if v, ok := parseNumber(m[1]); ok && v > 0 {
			return &v
		}
	}
	if m := sqftPattern.FindStringSubmatch(blob); m != nil {
		if v, ok := parseNumber(m[1]); ok && v > 0 {
			sqm := math.Round(v * SqFtToSqM)
			if sqm > 0 {
				return &sqm
			}
		}
	}
	return nil
}

// matchCount checks only the first match of each pattern; an out-of-range
// value moves on to the next pattern.
func matchCount(blob string, patterns []*regexp.Regexp, lo, hi int) *int {
	for _, p := range patterns {
		m := p.FindStringSubmatch(blob)
		if m == nil {
			continue
		}
		n, ok := countValue(m[1])
		if !ok || n < lo || n > hi {
			continue
		}
		return &n
	}
	return nil
}

func countValue(s string) (int, bool) {
	if n, ok := wordNumbers[strings.ToLower(s)]; ok {
		return n, true
	}
	n, err := strconv.Atoi(s)
	return n, err == nil
}

func matchTenure(blob string) *Tenure {
	lower := strings.ToLower(blob)
	for _, k := range tenureKeywords {
		if strings.Contains(lower, k.keyword) {
			t := k.tenure
			return &t
		}
	}
	return nil
}

func matchPropertyType(blob string) *PropertyType {
	lower := strings.ToLower(blob)
	for _, k := range propertyTypeKeywords {
		if strings.Contains(lower, k.keyword) {
			t := k.kind
			return &t
		}
	}
	return nil
}

func matchDate(blob string, p *regexp.Regexp) *string {
	m := p.FindStringSubmatch(blob)
	if m == nil {
		return nil
	}
	if _, err := time.Parse(DateLayout, m[1]); err != nil {
		return nil
	}
	d := m[1]
	return &d
}

func matchImages(blob string) []string {
	m := imagesPattern.FindStringSubmatch(blob)
	if m == nil {
		return nil
	}
	var out []string
	for _, u := range strings.Split(m[1], ", ") {
		u = strings.TrimSpace(u)
		if strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://") {
			out = append(out, u)
		}
	}
	return out
}

func parseNumber(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	return v, err == nil
}
