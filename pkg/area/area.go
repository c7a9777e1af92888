// Package area looks up the average price per square metre for a UK
// postcode district and scores a listing against it.
package area

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jmylchreest/propcheck/internal/logger"
	"github.com/jmylchreest/propcheck/pkg/fetcher"
	"github.com/jmylchreest/propcheck/pkg/llm"
	"github.com/jmylchreest/propcheck/pkg/scrape"
)

// DefaultBaseURL is the area statistics site queried by Lookup.
const DefaultBaseURL = "https://housemetric.co.uk"

// maxPageText caps the page text sent to the model.
const maxPageText = 20000

var (
	// ErrNoPostcode is returned when no postcode district can be found.
	ErrNoPostcode = errors.New("no postcode found")

	// ErrNoAverage is returned when the page yields no usable figure.
	ErrNoAverage = errors.New("no area average found")
)

var (
	districtPattern = regexp.MustCompile(`\b([A-Z]{1,2}\d{1,2}[A-Z]?)\b`)
	numberPattern   = regexp.MustCompile(`\d+(?:\.\d+)?`)
	perSqMPattern   = regexp.MustCompile(`(?i)£\s?([\d,]+(?:\.\d+)?)\s*(?:per|/)\s*(?:sq\.?\s*m(?:etre)?\b|m²|m2\b|square\s+met(?:re|er))`)
)

// Postcode returns the outward code (district) of the last postcode-like
// token in address, such as "CV37" from "Main Street, Tiddington, CV37 7AN".
func Postcode(address string) (string, error) {
	matches := districtPattern.FindAllString(strings.ToUpper(address), -1)
	if len(matches) == 0 {
		return "", ErrNoPostcode
	}
	// Postcodes end an address; earlier hits are flat or unit numbers.
	return matches[len(matches)-1], nil
}

// Score rates value for money on a 0-10 scale: 10 x areaAverage / pricePerSqM,
// clamped and rounded to one decimal.
func Score(areaAverage, pricePerSqM float64) float64 {
	if pricePerSqM <= 0 || areaAverage <= 0 {
		return 0
	}
	s := (areaAverage / pricePerSqM) * 10
	s = math.Max(0, math.Min(10, s))
	return math.Round(s*10) / 10
}

// Service fetches area statistics pages and reads the average from them.
type Service struct {
	fetcher  fetcher.Fetcher
	provider llm.Provider
	baseURL  string
	opts     fetcher.Options
}

// Option configures a Service.
type Option func(*Service)

// WithBaseURL overrides the statistics site, mainly for tests.
func WithBaseURL(u string) Option {
	return func(s *Service) {
		s.baseURL = strings.TrimSuffix(u, "/")
	}
}

// WithFetchOptions sets per-request fetcher options.
func WithFetchOptions(opts fetcher.Options) Option {
	return func(s *Service) {
		s.opts = opts
	}
}

// NewService creates a lookup service. provider may be nil, in which case
// the figure is read from the page with a pattern instead of a model.
func NewService(f fetcher.Fetcher, provider llm.Provider, opts ...Option) *Service {
	s := &Service{
		fetcher:  f,
		provider: provider,
		baseURL:  DefaultBaseURL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Lookup returns the mean price per square metre for postcode.
func (s *Service) Lookup(ctx context.Context, postcode string) (float64, error) {
	postcode = strings.ToUpper(strings.TrimSpace(postcode))
	if postcode == "" {
		return 0, ErrNoPostcode
	}

	target := s.baseURL + "/results?str_input=" + url.QueryEscape(postcode)
	log := logger.FromContext(ctx).With("postcode", postcode)
	log.Debug("area lookup", "url", target)

	content, err := s.fetcher.Fetch(ctx, target, s.opts)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch area page: %w", err)
	}

	text, err := pageText(content.HTML)
	if err != nil {
		return 0, fmt.Errorf("failed to parse area page: %w", err)
	}

	var avg float64
	if s.provider != nil {
		avg, err = s.askModel(ctx, postcode, text)
	} else {
		avg, err = fromPage(text)
	}
	if err != nil {
		return 0, err
	}

	log.Debug("area lookup complete", "average", avg)
	return avg, nil
}

func (s *Service) askModel(ctx context.Context, postcode, text string) (float64, error) {
	text = scrape.Cut(text, maxPageText)
	prompt := fmt.Sprintf("Extract the mean price per square metre for the postcode %s. "+
		"Respond ONLY with the numeric value in pounds.\n\n%s", postcode, text)

	resp, err := llm.Complete(ctx, s.provider, "", prompt)
	if err != nil {
		return 0, fmt.Errorf("area model call failed: %w", err)
	}
	return ParseAverage(resp.Content)
}

// ParseAverage reads the first number from a model answer such as "£4,250".
func ParseAverage(answer string) (float64, error) {
	cleaned := strings.NewReplacer(",", "", "£", "").Replace(answer)
	m := numberPattern.FindString(cleaned)
	if m == "" {
		return 0, ErrNoAverage
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil || v <= 0 {
		return 0, ErrNoAverage
	}
	return v, nil
}

func fromPage(text string) (float64, error) {
	m := perSqMPattern.FindStringSubmatch(text)
	if m == nil {
		return 0, ErrNoAverage
	}
	return ParseAverage(m[1])
}

func pageText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}
	doc.Find("script, style, noscript").Remove()
	return strings.Join(strings.Fields(doc.Find("body").Text()), " "), nil
}
