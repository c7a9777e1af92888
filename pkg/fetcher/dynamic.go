package fetcher

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/jmylchreest/propcheck/internal/logger"
)

// DynamicConfig holds configuration for the headless browser fetcher.
type DynamicConfig struct {
	UserAgent string
	Timeout   time.Duration
	Headers   map[string]string
	ExecPath  string // Chrome binary; empty searches PATH and common install locations
	Headless  bool

	// Stealth adds anti-automation flags and masks navigator properties
	// that listing sites use to spot headless browsers.
	Stealth bool
}

// DefaultDynamicConfig returns sensible defaults.
func DefaultDynamicConfig() DynamicConfig {
	return DynamicConfig{
		UserAgent: defaultUserAgent,
		Timeout:   45 * time.Second,
		Headers:   BrowserHeaders(),
		Headless:  true,
		Stealth:   true,
	}
}

// DynamicFetcher renders pages in headless Chrome via chromedp. It reports
// the main document status the same way StaticFetcher does, so block
// handling upstream does not depend on which fetcher is configured.
type DynamicFetcher struct {
	config    DynamicConfig
	allocCtx  context.Context
	cancelCtx context.CancelFunc
}

// NewDynamic creates a browser allocator. No browser is launched until the
// first Fetch.
func NewDynamic(cfg DynamicConfig) *DynamicFetcher {
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultDynamicConfig().Timeout
	}

	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.WindowSize(1920, 1080),
		chromedp.UserAgent(cfg.UserAgent),
	)
	if cfg.Stealth {
		opts = append(opts, stealthAllocatorOptions()...)
	}
	if cfg.ExecPath == "" {
		cfg.ExecPath = FindChromePath()
	}
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}

	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)

	logger.Debug("dynamic fetcher created", "timeout", cfg.Timeout, "headless", cfg.Headless, "stealth", cfg.Stealth)

	return &DynamicFetcher{
		config:    cfg,
		allocCtx:  allocCtx,
		cancelCtx: cancel,
	}
}

// Fetch navigates to the URL and returns the rendered document.
func (f *DynamicFetcher) Fetch(ctx context.Context, targetURL string, opts Options) (Content, error) {
	result := Content{
		URL:       targetURL,
		FetchedAt: time.Now(),
	}

	browserCtx, cancelBrowser := chromedp.NewContext(f.allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			logger.Debug("chromedp", "msg", fmt.Sprintf(format, args...))
		}),
	)
	defer cancelBrowser()

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = f.config.Timeout
	}
	runCtx, cancelRun := context.WithTimeout(browserCtx, timeout)
	defer cancelRun()

	// Stop the browser when the caller gives up.
	stop := context.AfterFunc(ctx, cancelRun)
	defer stop()

	var status atomic.Int64
	chromedp.ListenTarget(runCtx, func(ev any) {
		if resp, ok := ev.(*network.EventResponseReceived); ok && resp.Type == network.ResourceTypeDocument {
			// The first document response is the page itself; later ones are frames.
			status.CompareAndSwap(0, resp.Response.Status)
		}
	})

	headers := network.Headers{}
	for k, v := range mergeHeaders(f.config.Headers, opts.Headers) {
		headers[k] = v
	}

	waitFor := opts.WaitForSelector
	if waitFor == "" {
		waitFor = "body"
	}

	var html, title string
	var actions []chromedp.Action
	if f.config.Stealth {
		actions = append(actions, injectStealthScript())
	}
	actions = append(actions,
		network.Enable(),
		network.SetExtraHTTPHeaders(headers),
		chromedp.Navigate(targetURL),
		chromedp.WaitReady(waitFor),
	)
	if opts.WaitDuration > 0 {
		actions = append(actions, chromedp.Sleep(opts.WaitDuration))
	}
	actions = append(actions,
		chromedp.OuterHTML("html", &html),
		chromedp.Title(&title),
	)

	logger.Debug("dynamic fetch starting", "url", targetURL, "timeout", timeout)

	if err := chromedp.Run(runCtx, actions...); err != nil {
		if code := int(status.Load()); code != 0 {
			if statusErr := classifyStatus(targetURL, code); statusErr != nil {
				result.StatusCode = code
				return result, statusErr
			}
		}
		return result, fmt.Errorf("browser automation failed: %w", err)
	}

	result.StatusCode = int(status.Load())
	if result.StatusCode == 0 {
		result.StatusCode = 200
	}
	result.HTML = html
	result.Title = title

	if err := classifyStatus(targetURL, result.StatusCode); err != nil {
		return result, err
	}

	logger.Debug("dynamic fetch complete", "url", targetURL, "status", result.StatusCode, "title", title)
	return result, nil
}

// Close shuts down the browser allocator.
func (f *DynamicFetcher) Close() error {
	if f.cancelCtx != nil {
		f.cancelCtx()
	}
	return nil
}

// Type returns the fetcher type.
func (f *DynamicFetcher) Type() string {
	return "dynamic"
}
