package listing

import (
	"context"
	"errors"
	"time"

	"github.com/jmylchreest/propcheck/internal/logger"
	"github.com/jmylchreest/propcheck/pkg/fetcher"
)

// DefaultDelay is the pause before each listing request.
const DefaultDelay = time.Second

// Page is a retrieved listing. When Degraded is set, HTML is empty and Text
// holds the URL-derived fallback block.
type Page struct {
	URL        string
	HTML       string
	Text       string
	StatusCode int
	Degraded   bool
	Reason     error // why the page degraded, nil otherwise
	FetchedAt  time.Time
}

// Retriever fetches listing pages politely and never surfaces block or
// transport failures: those become a degraded Page.
type Retriever struct {
	fetcher fetcher.Fetcher
	delay   time.Duration
	opts    fetcher.Options
	sleep   func(context.Context, time.Duration) error
}

// RetrieverOption configures a Retriever.
type RetrieverOption func(*Retriever)

// WithDelay sets the politeness delay. Zero disables it.
func WithDelay(d time.Duration) RetrieverOption {
	return func(r *Retriever) {
		r.delay = d
	}
}

// WithFetchOptions sets per-request fetcher options.
func WithFetchOptions(opts fetcher.Options) RetrieverOption {
	return func(r *Retriever) {
		r.opts = opts
	}
}

// NewRetriever wraps a fetcher.
func NewRetriever(f fetcher.Fetcher, opts ...RetrieverOption) *Retriever {
	r := &Retriever{
		fetcher: f,
		delay:   DefaultDelay,
		sleep:   sleepContext,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Retrieve fetches the listing page. Only a non-block error status or a
// cancelled context is returned as an error.
func (r *Retriever) Retrieve(ctx context.Context, rawURL string) (*Page, error) {
	if err := r.sleep(ctx, r.delay); err != nil {
		return nil, err
	}

	content, err := r.fetcher.Fetch(ctx, rawURL, r.opts)
	if err == nil {
		return &Page{
			URL:        rawURL,
			HTML:       content.HTML,
			StatusCode: content.StatusCode,
			FetchedAt:  content.FetchedAt,
		}, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}

	var statusErr *fetcher.StatusError
	if errors.As(err, &statusErr) && !errors.Is(err, fetcher.ErrBlocked) {
		return nil, err
	}

	logger.Warn("listing fetch failed, using URL fallback",
		"url", rawURL,
		"fetcher", r.fetcher.Type(),
		"error", err)

	return &Page{
		URL:        rawURL,
		Text:       FallbackText(rawURL),
		StatusCode: content.StatusCode,
		Degraded:   true,
		Reason:     err,
		FetchedAt:  time.Now(),
	}, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
