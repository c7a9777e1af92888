package propcheck

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/jmylchreest/propcheck/internal/logger"
	"github.com/jmylchreest/propcheck/pkg/area"
	"github.com/jmylchreest/propcheck/pkg/critic"
	"github.com/jmylchreest/propcheck/pkg/extractor"
	"github.com/jmylchreest/propcheck/pkg/fetcher"
	"github.com/jmylchreest/propcheck/pkg/listing"
	"github.com/jmylchreest/propcheck/pkg/llm"
	"github.com/jmylchreest/propcheck/pkg/report"
	"github.com/jmylchreest/propcheck/pkg/schema"
	"github.com/jmylchreest/propcheck/pkg/scrape"
)

// Re-exported errors so callers need not import the component packages.
var (
	ErrUnsupportedURL = listing.ErrUnsupportedURL
	ErrNoPostcode     = area.ErrNoPostcode
	ErrNoProvider     = critic.ErrNoProvider
)

// Version returns the module version of the propcheck library.
// Returns "(devel)" when built from source without version info.
func Version() string {
	if info, ok := debug.ReadBuildInfo(); ok {
		return info.Main.Version
	}
	return "(unknown)"
}

// Result is one analysed listing with the provenance of its values.
type Result struct {
	URL    string
	Record *report.PropertyRecord

	// Blob is the text handed to field extraction.
	Blob     string
	Sources  map[string]string
	Rejected []schema.ValidationError

	// Degraded is set when the page could not be fetched and the blob came
	// from the URL alone.
	Degraded       bool
	DegradedReason string
	Fallback       bool

	Provider   string
	Model      string
	TokenUsage TokenUsage

	Postcode    string
	AreaAverage float64

	FetchedAt       time.Time
	FetchDuration   time.Duration
	ExtractDuration time.Duration
	AreaDuration    time.Duration

	// Error is set only on results delivered by AnalyseMany.
	Error error
}

// TokenUsage tracks LLM token consumption.
type TokenUsage struct {
	InputTokens  int
	OutputTokens int
}

// AreaResult is the outcome of an area average lookup.
type AreaResult struct {
	Postcode    string  `json:"postcode" yaml:"postcode"`
	AreaAverage float64 `json:"areaAverage" yaml:"areaAverage"`
}

// Propcheck is the main entry point for listing analysis.
type Propcheck struct {
	config    Config
	fetcher   fetcher.Fetcher
	retriever *listing.Retriever
	scraper   *scrape.Extractor
	extractor extractor.Extractor
	builder   *report.Builder
	area      *area.Service
	critic    *critic.Critic
	provider  llm.Provider
}

// New creates a new Propcheck instance.
func New(opts ...Option) (*Propcheck, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	f, err := newFetcher(cfg)
	if err != nil {
		return nil, err
	}

	providers, err := newProviders(cfg)
	if err != nil {
		return nil, err
	}

	// Model output first, then regexes over the same blob fill the gaps.
	var strategies []extractor.Extractor
	if len(providers) > 0 {
		llmOpts := []extractor.LLMOption{
			extractor.WithTemperature(cfg.Temperature),
			extractor.WithMaxTokens(cfg.MaxTokens),
			extractor.WithMaxContentSize(cfg.MaxContentSize),
			extractor.WithStrictMode(cfg.StrictMode),
		}
		chain := make([]extractor.Extractor, 0, len(providers))
		for _, p := range providers {
			chain = append(chain, extractor.NewLLM(p, llmOpts...))
		}
		strategies = append(strategies, extractor.NewFallback(chain...))
	}
	strategies = append(strategies, extractor.NewRegex())

	var primary llm.Provider
	if len(providers) > 0 {
		primary = providers[0]
	}

	fetchOpts := fetcher.Options{UserAgent: cfg.UserAgent, Timeout: cfg.Timeout}
	areaOpts := []area.Option{area.WithFetchOptions(fetchOpts)}
	if cfg.AreaBaseURL != "" {
		areaOpts = append(areaOpts, area.WithBaseURL(cfg.AreaBaseURL))
	}

	builder := report.NewBuilder()
	if cfg.Now != nil {
		builder.Now = cfg.Now
	}

	return &Propcheck{
		config:  cfg,
		fetcher: f,
		retriever: listing.NewRetriever(f,
			listing.WithDelay(cfg.Delay),
			listing.WithFetchOptions(fetchOpts)),
		scraper:   scrape.New(),
		extractor: extractor.NewLayered(strategies...),
		builder:   builder,
		area:      area.NewService(f, primary, areaOpts...),
		critic:    critic.New(primary),
		provider:  primary,
	}, nil
}

func newFetcher(cfg Config) (fetcher.Fetcher, error) {
	if cfg.Fetcher != nil {
		return cfg.Fetcher, nil
	}
	switch cfg.FetchMode {
	case FetchModeStatic, "":
		sc := fetcher.DefaultStaticConfig()
		sc.UserAgent = cfg.UserAgent
		sc.Timeout = cfg.Timeout
		return fetcher.NewStatic(sc), nil
	case FetchModeDynamic:
		dc := fetcher.DefaultDynamicConfig()
		dc.UserAgent = cfg.UserAgent
		if cfg.Timeout > dc.Timeout {
			dc.Timeout = cfg.Timeout
		}
		return fetcher.NewDynamic(dc), nil
	default:
		return nil, fmt.Errorf("unknown fetch mode: %s (use static or dynamic)", cfg.FetchMode)
	}
}

// newProviders builds the primary provider followed by any fallbacks. A
// fallback that cannot be constructed (usually a missing key) is skipped.
func newProviders(cfg Config) ([]llm.Provider, error) {
	if cfg.LLM != nil {
		return []llm.Provider{llm.Observed(cfg.LLM, cfg.Observer)}, nil
	}
	if cfg.Provider == ProviderNone {
		return nil, nil
	}

	name, key := cfg.Provider, cfg.APIKey
	if name == "" {
		var detected string
		name, detected = llm.DetectProvider()
		if key == "" {
			key = detected
		}
		logger.Debug("auto-detected LLM provider", "provider", name)
	}

	primary, err := newProvider(cfg, name, key, cfg.BaseURL, cfg.Model)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s provider: %w", name, err)
	}
	providers := []llm.Provider{primary}

	for _, fb := range cfg.FallbackProviders {
		if fb == "" || fb == name {
			continue
		}
		p, err := newProvider(cfg, fb, "", "", "")
		if err != nil {
			logger.Warn("skipping fallback provider", "provider", fb, "error", err)
			continue
		}
		providers = append(providers, p)
	}
	return providers, nil
}

func newProvider(cfg Config, name, key, baseURL, model string) (llm.Provider, error) {
	pc := llm.DefaultProviderConfig()
	pc.APIKey = key
	if pc.APIKey == "" {
		pc.APIKey = llm.APIKey(name)
	}
	pc.BaseURL = baseURL
	pc.Model = model
	if pc.Model == "" {
		pc.Model = llm.GetDefaultModel(name)
	}
	pc.MaxRetries = cfg.MaxRetries
	if cfg.Timeout > 0 {
		pc.Timeout = cfg.Timeout * 4
	}
	p, err := llm.NewProvider(name, pc)
	if err != nil {
		return nil, err
	}
	return llm.Observed(p, cfg.Observer), nil
}

// Analyse runs the full pipeline for one listing URL. Fetch blocks and
// model failures are recovered and lower the record's confidence; the
// returned error is non-nil only for an unsupported URL, a non-block fetch
// failure, or a record that fails validation.
func (p *Propcheck) Analyse(ctx context.Context, rawURL string) (*Result, error) {
	u, err := listing.Validate(rawURL)
	if err != nil {
		return nil, err
	}
	log := logger.FromContext(ctx).With("listing_id", u.ID)

	fetchStart := time.Now()
	page, err := p.retriever.Retrieve(ctx, u.Raw)
	fetchDuration := time.Since(fetchStart)
	if err != nil {
		return nil, fmt.Errorf("fetch failed: %w", err)
	}

	res := &Result{
		URL:           u.Raw,
		Degraded:      page.Degraded,
		FetchedAt:     page.FetchedAt,
		FetchDuration: fetchDuration,
	}
	if page.Reason != nil {
		res.DegradedReason = page.Reason.Error()
	}

	res.Blob = page.Text
	if !page.Degraded {
		blob, err := p.scraper.ExtractHTML(page.HTML)
		if err != nil || blob.Empty() {
			log.Warn("no structural content found, using URL fallback", "error", err)
			res.Degraded = true
			res.DegradedReason = "empty page"
			res.Blob = listing.FallbackText(u.Raw)
		} else {
			res.Blob = blob.String()
		}
	}
	log.Debug("blob assembled", "bytes", len(res.Blob), "degraded", res.Degraded)

	extracted, err := p.extractor.Extract(logger.WithContext(ctx, log), res.Blob)
	if err != nil {
		return nil, fmt.Errorf("extraction failed: %w", err)
	}
	res.Sources = extracted.Sources
	res.Rejected = extracted.Rejected
	res.Fallback = extracted.Fallback
	res.Provider = extracted.Provider
	res.Model = extracted.Model
	res.TokenUsage = TokenUsage{
		InputTokens:  extracted.Usage.InputTokens,
		OutputTokens: extracted.Usage.OutputTokens,
	}
	res.ExtractDuration = extracted.Duration

	in := report.Inputs{
		Fields:   extracted.Fields,
		Degraded: res.Degraded,
		Fallback: res.Fallback,
	}
	if p.config.AreaLookup && extracted.Fields.Address != nil {
		areaStart := time.Now()
		ar, err := p.AreaAverage(ctx, *extracted.Fields.Address)
		res.AreaDuration = time.Since(areaStart)
		if err != nil {
			log.Warn("area lookup failed, using default average", "error", err)
		} else {
			res.Postcode = ar.Postcode
			res.AreaAverage = ar.AreaAverage
			in.AreaAverage = &ar.AreaAverage
		}
	}

	record := p.builder.Build(in)
	if err := report.Validate(record); err != nil {
		return nil, err
	}
	res.Record = record

	log.Info("listing analysed",
		"provider", res.Provider,
		"fields", extracted.Fields.Present(),
		"confidence", record.Confidence,
		"data_source", record.DataSource,
		"duration", time.Since(fetchStart))

	return res, nil
}

// AnalyseMany analyses multiple URLs concurrently. Failures are delivered
// as results with Error set.
func (p *Propcheck) AnalyseMany(ctx context.Context, urls []string, concurrency int) <-chan *Result {
	if concurrency < 1 {
		concurrency = 1
	}

	results := make(chan *Result, len(urls))
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for _, url := range urls {
		wg.Add(1)
		go func(u string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			result, err := p.Analyse(ctx, u)
			if err != nil {
				results <- &Result{URL: u, Error: err}
				return
			}
			results <- result
		}(url)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	return results
}

// AreaAverage looks up the mean £/m² for the postcode district found in
// query, which may be a full address or a bare district.
func (p *Propcheck) AreaAverage(ctx context.Context, query string) (*AreaResult, error) {
	pc, err := area.Postcode(query)
	if err != nil {
		return nil, err
	}
	avg, err := p.area.Lookup(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("area lookup for %s failed: %w", pc, err)
	}
	return &AreaResult{Postcode: pc, AreaAverage: avg}, nil
}

// Verdict asks the critic for a recommendation on a record.
func (p *Propcheck) Verdict(ctx context.Context, record *report.PropertyRecord) (*critic.Verdict, error) {
	if record == nil {
		return nil, errors.New("property data is required")
	}
	return p.critic.Verdict(ctx, record)
}

// Close releases all resources.
func (p *Propcheck) Close() error {
	if p.fetcher != nil {
		return p.fetcher.Close()
	}
	return nil
}

// Provider returns the primary LLM provider name, or ProviderNone.
func (p *Propcheck) Provider() string {
	if p.provider == nil {
		return ProviderNone
	}
	return p.provider.Name()
}

// Extractor returns the name of the field extraction chain.
func (p *Propcheck) Extractor() string {
	return p.extractor.Name()
}
