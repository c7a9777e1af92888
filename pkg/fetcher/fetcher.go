// Package fetcher defines how listing pages are retrieved.
// Implement the Fetcher interface to plug in a different transport
// (headless browser, proxy pool, recorded fixtures in tests).
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Fetcher abstracts page fetching strategies.
type Fetcher interface {
	// Fetch retrieves page content from a URL.
	Fetch(ctx context.Context, url string, opts Options) (Content, error)

	// Close releases any resources (browser instances, etc.).
	Close() error

	// Type returns a string identifying the fetcher type (e.g., "static", "dynamic").
	Type() string
}

// Options controls fetching behavior.
type Options struct {
	UserAgent       string
	Timeout         time.Duration
	WaitForSelector string        // CSS selector to wait for (dynamic fetchers)
	WaitDuration    time.Duration // Additional wait after load
	Headers         map[string]string
}

// Content represents fetched page data.
type Content struct {
	URL         string
	HTML        string
	Title       string
	StatusCode  int
	ContentType string
	FetchedAt   time.Time
}

// ErrBlocked indicates the site refused the request with a block or
// rate-limit status (403, 429). Check with errors.Is.
var ErrBlocked = errors.New("request blocked by site")

// StatusError is returned when a page answers with a non-2xx status.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP error! status: %d (%s)", e.StatusCode, e.URL)
}

// Is reports block statuses as ErrBlocked so callers can branch with errors.Is.
func (e *StatusError) Is(target error) bool {
	return target == ErrBlocked && IsBlockStatus(e.StatusCode)
}

// IsBlockStatus reports whether the status code signals blocking or rate limiting.
func IsBlockStatus(code int) bool {
	return code == http.StatusForbidden || code == http.StatusTooManyRequests
}

// classifyStatus converts a response status into the error a Fetcher returns.
func classifyStatus(url string, code int) error {
	if code >= 200 && code < 300 {
		return nil
	}
	return &StatusError{URL: url, StatusCode: code}
}

// Chrome on macOS; listing sites are less likely to block it.
const defaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// DefaultUserAgent returns the user agent sent when none is configured.
func DefaultUserAgent() string {
	return defaultUserAgent
}

// BrowserHeaders returns a realistic browser header set. The map is fresh
// on every call so callers may modify it.
func BrowserHeaders() map[string]string {
	return map[string]string{
		"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8",
		"Accept-Language":           "en-GB,en-US;q=0.9,en;q=0.8",
		"DNT":                       "1",
		"Connection":                "keep-alive",
		"Upgrade-Insecure-Requests": "1",
		"Sec-Fetch-Dest":            "document",
		"Sec-Fetch-Mode":            "navigate",
		"Sec-Fetch-Site":            "none",
		"Sec-Fetch-User":            "?1",
		"Cache-Control":             "max-age=0",
		"Referer":                   "https://www.google.com/",
	}
}
