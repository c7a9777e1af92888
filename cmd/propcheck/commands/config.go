package commands

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/viper"

	"github.com/jmylchreest/propcheck/internal/logger"
	"github.com/jmylchreest/propcheck/pkg/propcheck"
)

// parseContentSize reads a human byte size such as "100KB". Empty and "0"
// mean unlimited.
func parseContentSize(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "0" {
		return 0, nil
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("invalid max-content-size %q: %w", s, err)
	}
	return int(n), nil
}

// pipelineOptions builds propcheck options from flags, config file and env.
func pipelineOptions() ([]propcheck.Option, error) {
	maxContentSize, err := parseContentSize(viper.GetString("max_content_size"))
	if err != nil {
		return nil, err
	}

	opts := []propcheck.Option{
		propcheck.WithProvider(viper.GetString("provider")),
		propcheck.WithFallbackProviders(viper.GetStringSlice("fallback")...),
		propcheck.WithModel(viper.GetString("model")),
		propcheck.WithAPIKey(viper.GetString("api_key")),
		propcheck.WithBaseURL(viper.GetString("base_url")),
		propcheck.WithMaxRetries(viper.GetInt("max_retries")),
		propcheck.WithMaxContentSize(maxContentSize),
		propcheck.WithFetchMode(propcheck.FetchMode(viper.GetString("fetch_mode"))),
		propcheck.WithTimeout(viper.GetDuration("timeout")),
		propcheck.WithDelay(viper.GetDuration("delay")),
		propcheck.WithAreaLookup(!viper.GetBool("no_area")),
	}
	if ua := viper.GetString("user_agent"); ua != "" {
		opts = append(opts, propcheck.WithUserAgent(ua))
	}
	if base := viper.GetString("area_base_url"); base != "" {
		opts = append(opts, propcheck.WithAreaBaseURL(base))
	}

	logger.Debug("pipeline options",
		"provider", viper.GetString("provider"),
		"fetch_mode", viper.GetString("fetch_mode"),
		"max_content_size", maxContentSize)
	return opts, nil
}

// newPropcheck creates the pipeline with extra options applied last.
func newPropcheck(extra ...propcheck.Option) (*propcheck.Propcheck, error) {
	opts, err := pipelineOptions()
	if err != nil {
		return nil, err
	}
	pc, err := propcheck.New(append(opts, extra...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize: %w", err)
	}
	logger.Debug("propcheck instance created", "provider", pc.Provider(), "extractor", pc.Extractor())
	return pc, nil
}
