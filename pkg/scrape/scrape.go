// Package scrape turns a listing page into a labelled text blob using
// ordered CSS selector chains, whole-page regex sweeps, meta tags and
// JSON-LD. It never decides between conflicting hints; that is left to
// field extraction.
package scrape

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/jmylchreest/propcheck/internal/logger"
	"github.com/jmylchreest/propcheck/pkg/images"
)

const (
	sweepLimit  = 5
	maxValueLen = 600
)

var (
	pricePattern   = regexp.MustCompile(`£\d[\d,]*`)
	sqftPattern    = regexp.MustCompile(`(?i)\b\d[\d,]*(?:\.\d+)?\s*(?:sq\.?\s*f(?:ee)?t|square\s+f(?:ee|oo)t)`)
	sqmPattern     = regexp.MustCompile(`(?i)\b\d[\d,]*(?:\.\d+)?\s*(?:sq\.?\s*m(?:etres?)?\b|sqm\b|square\s+met(?:re|er)s?|m²)`)
	addedPattern   = regexp.MustCompile(`Added on (\d{1,2}/\d{1,2}/\d{4})`)
	reducedPattern = regexp.MustCompile(`Reduced on (\d{1,2}/\d{1,2}/\d{4})`)
)

// Extractor is the structural extractor.
type Extractor struct {
	images *images.Resolver
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithImageResolver replaces the image resolver.
func WithImageResolver(r *images.Resolver) Option {
	return func(e *Extractor) {
		e.images = r
	}
}

// New creates a structural extractor.
func New(opts ...Option) *Extractor {
	e := &Extractor{images: images.NewResolver()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExtractHTML parses html and runs Extract.
func (e *Extractor) ExtractHTML(html string) (Blob, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return Blob{}, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return e.Extract(doc), nil
}

// Extract builds the blob. Fields whose selectors all fail are omitted.
func (e *Extractor) Extract(doc *goquery.Document) Blob {
	var b Blob

	for _, r := range rules {
		if v, sel := firstMatch(doc, r); v != "" {
			logger.Debug("structural match", "field", r.label, "selector", sel)
			b.add(r.label, v)
		}
	}

	text := bodyText(doc)

	if m := addedPattern.FindStringSubmatch(text); m != nil {
		b.add(LabelListingDate, "Added on "+m[1])
	}
	if m := reducedPattern.FindStringSubmatch(text); m != nil {
		b.add(LabelReductionDate, "Reduced on "+m[1])
	}

	if imgs := e.images.Resolve(doc); len(imgs) > 0 {
		b.add(LabelImages, strings.Join(imgs, ", "))
	}

	metaLines(doc, &b)
	structuredLines(doc, &b)
	sweepLines(text, &b)

	logger.Debug("structural extraction complete", "lines", len(b.Lines))
	return b
}

// firstMatch walks the selector chain. Within one selector the shortest
// passing element wins, since :contains also matches every ancestor.
func firstMatch(doc *goquery.Document, r rule) (string, string) {
	for _, sel := range r.selectors {
		best := ""
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			t := collapse(s.Text())
			if t == "" || !r.accept(t) {
				return
			}
			if best == "" || len(t) < len(best) {
				best = t
			}
		})
		if best != "" {
			return truncate(best), sel
		}
	}
	return "", ""
}

func metaLines(doc *goquery.Document, b *Blob) {
	doc.Find(`meta[property="product:price:amount"]`).Each(func(_ int, s *goquery.Selection) {
		if v, ok := s.Attr("content"); ok && strings.TrimSpace(v) != "" {
			b.add(LabelMetaPrice, "£"+strings.TrimSpace(v))
		}
	})
	doc.Find(`meta[name="description"]`).Each(func(_ int, s *goquery.Selection) {
		desc, _ := s.Attr("content")
		if m := pricePattern.FindString(desc); m != "" {
			b.add(LabelMetaDescPrice, m)
		}
		if m := sqftPattern.FindString(desc); m != "" {
			b.add(LabelMetaDescSqFt, m)
		}
		if m := sqmPattern.FindString(desc); m != "" {
			b.add(LabelMetaDescSqM, m)
		}
	})
}

func structuredLines(doc *goquery.Document, b *Blob) {
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		var data any
		if err := json.Unmarshal([]byte(s.Text()), &data); err != nil {
			logger.Debug("skipping malformed JSON-LD", "error", err)
			return
		}
		for _, node := range ldNodes(data) {
			if p := offerPrice(node["offers"]); p != "" {
				b.add(LabelStructuredPrice, "£"+p)
			}
			size := node["floorSize"]
			if size == nil {
				size = node["size"]
			}
			if v := floorSize(size); v != "" {
				b.add(LabelStructuredSize, v)
			}
		}
	})
}

// ldNodes flattens top-level arrays and @graph containers.
func ldNodes(v any) []map[string]any {
	switch t := v.(type) {
	case []any:
		var out []map[string]any
		for _, item := range t {
			out = append(out, ldNodes(item)...)
		}
		return out
	case map[string]any:
		out := []map[string]any{t}
		if graph, ok := t["@graph"]; ok {
			out = append(out, ldNodes(graph)...)
		}
		return out
	}
	return nil
}

func offerPrice(v any) string {
	switch t := v.(type) {
	case []any:
		for _, item := range t {
			if p := offerPrice(item); p != "" {
				return p
			}
		}
	case map[string]any:
		return scalar(t["price"])
	}
	return ""
}

// floorSize renders a schema.org QuantitativeValue or a bare value.
func floorSize(v any) string {
	m, ok := v.(map[string]any)
	if !ok {
		return scalar(v)
	}
	value := scalar(m["value"])
	if value == "" {
		return ""
	}
	unit := scalar(m["unitCode"])
	if unit == "" {
		unit = scalar(m["unitText"])
	}
	switch strings.ToUpper(unit) {
	case "FTK", "SQ FT", "SQFT":
		return value + " sq ft"
	case "MTK", "SQ M", "SQM", "M2", "M²":
		return value + " sq m"
	case "":
		return value
	default:
		return value + " " + unit
	}
}

func scalar(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return fmt.Sprintf("%g", t)
	case json.Number:
		return t.String()
	}
	return ""
}

// sweepLines adds whole-page regex hits regardless of what the selectors found.
func sweepLines(text string, b *Blob) {
	if m := firstN(pricePattern.FindAllString(text, -1)); len(m) > 0 {
		b.add(LabelFoundPrices, strings.Join(m, ", "))
	}
	if m := firstN(sqftPattern.FindAllString(text, -1)); len(m) > 0 {
		b.add(LabelFoundSqFt, strings.Join(m, ", "))
	}
	if m := firstN(sqmPattern.FindAllString(text, -1)); len(m) > 0 {
		b.add(LabelFoundSqM, strings.Join(m, ", "))
	}
}

// firstN returns up to sweepLimit distinct matches in page order.
func firstN(matches []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, m := range matches {
		m = collapse(m)
		if seen[m] {
			continue
		}
		seen[m] = true
		out = append(out, m)
		if len(out) == sweepLimit {
			break
		}
	}
	return out
}

// bodyText returns visible body text without touching the original document.
func bodyText(doc *goquery.Document) string {
	body := doc.Find("body").Clone()
	body.Find("script, style, noscript, svg").Remove()
	return collapse(body.Text())
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string) string {
	if len(s) <= maxValueLen {
		return s
	}
	return Cut(s, maxValueLen) + "..."
}

// Cut shortens s to at most n bytes without splitting a multi-byte rune
// such as £ or ².
func Cut(s string, n int) string {
	if n < 0 {
		n = 0
	}
	if len(s) <= n {
		return s
	}
	for n > 0 && !isRuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
