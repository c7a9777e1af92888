// Package propcheck provides the public API for analysing property listings.
package propcheck

import (
	"time"

	"github.com/jmylchreest/propcheck/pkg/fetcher"
	"github.com/jmylchreest/propcheck/pkg/listing"
	"github.com/jmylchreest/propcheck/pkg/llm"
)

// FetchMode selects how listing pages are retrieved.
type FetchMode string

const (
	FetchModeStatic  FetchMode = "static"
	FetchModeDynamic FetchMode = "dynamic"
)

// ProviderNone disables every model-backed step.
const ProviderNone = "none"

// Config holds all propcheck configuration.
type Config struct {
	// LLM settings. An empty Provider is auto-detected from API key env vars.
	Provider          string
	FallbackProviders []string
	Model             string
	APIKey            string
	BaseURL           string

	// Fetch settings
	FetchMode FetchMode
	UserAgent string
	Timeout   time.Duration
	Delay     time.Duration

	// Extraction settings
	MaxRetries     int
	Temperature    float64
	MaxTokens      int
	MaxContentSize int
	StrictMode     bool

	// Area lookup during Analyse
	AreaLookup  bool
	AreaBaseURL string

	// Injected dependencies (optional). When set they replace the defaults
	// built from the settings above.
	Fetcher  fetcher.Fetcher
	LLM      llm.Provider
	Observer llm.Observer
	Now      func() time.Time
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		FetchMode:      FetchModeStatic,
		UserAgent:      fetcher.DefaultUserAgent(),
		Timeout:        30 * time.Second,
		Delay:          listing.DefaultDelay,
		MaxRetries:     2,
		Temperature:    0.1,
		MaxTokens:      2048,
		MaxContentSize: 100000,
		AreaLookup:     true,
	}
}

// Option configures propcheck.
type Option func(*Config)

// WithProvider sets the LLM provider name, or ProviderNone.
func WithProvider(provider string) Option {
	return func(c *Config) {
		c.Provider = provider
	}
}

// WithFallbackProviders sets providers tried in order after the primary fails.
func WithFallbackProviders(providers ...string) Option {
	return func(c *Config) {
		c.FallbackProviders = providers
	}
}

// WithModel sets the LLM model.
func WithModel(model string) Option {
	return func(c *Config) {
		c.Model = model
	}
}

// WithAPIKey sets the API key for the primary provider.
func WithAPIKey(key string) Option {
	return func(c *Config) {
		c.APIKey = key
	}
}

// WithBaseURL sets a custom API base URL for the primary provider.
func WithBaseURL(url string) Option {
	return func(c *Config) {
		c.BaseURL = url
	}
}

// WithFetchMode sets the fetch mode (static, dynamic).
func WithFetchMode(mode FetchMode) Option {
	return func(c *Config) {
		c.FetchMode = mode
	}
}

// WithUserAgent sets the HTTP user agent.
func WithUserAgent(ua string) Option {
	return func(c *Config) {
		c.UserAgent = ua
	}
}

// WithTimeout sets the request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.Timeout = d
	}
}

// WithDelay sets the politeness delay before each listing fetch.
func WithDelay(d time.Duration) Option {
	return func(c *Config) {
		c.Delay = d
	}
}

// WithMaxRetries sets the provider SDK retry count.
func WithMaxRetries(n int) Option {
	return func(c *Config) {
		c.MaxRetries = n
	}
}

// WithTemperature sets the LLM temperature.
func WithTemperature(t float64) Option {
	return func(c *Config) {
		c.Temperature = t
	}
}

// WithMaxTokens sets the LLM output token limit.
func WithMaxTokens(n int) Option {
	return func(c *Config) {
		c.MaxTokens = n
	}
}

// WithMaxContentSize caps the text blob sent to the model, in bytes.
func WithMaxContentSize(n int) Option {
	return func(c *Config) {
		c.MaxContentSize = n
	}
}

// WithStrictMode enables strict JSON schema output where supported.
func WithStrictMode(enabled bool) Option {
	return func(c *Config) {
		c.StrictMode = enabled
	}
}

// WithAreaLookup toggles the area average lookup during Analyse.
func WithAreaLookup(enabled bool) Option {
	return func(c *Config) {
		c.AreaLookup = enabled
	}
}

// WithAreaBaseURL overrides the area statistics site.
func WithAreaBaseURL(url string) Option {
	return func(c *Config) {
		c.AreaBaseURL = url
	}
}

// WithFetcher injects a fetcher.
func WithFetcher(f fetcher.Fetcher) Option {
	return func(c *Config) {
		c.Fetcher = f
	}
}

// WithLLM injects a provider, bypassing provider construction.
func WithLLM(p llm.Provider) Option {
	return func(c *Config) {
		c.LLM = p
	}
}

// WithObserver reports every LLM call to obs.
func WithObserver(obs llm.Observer) Option {
	return func(c *Config) {
		c.Observer = obs
	}
}

// WithClock sets the time source used for generated dates.
func WithClock(now func() time.Time) Option {
	return func(c *Config) {
		c.Now = now
	}
}
