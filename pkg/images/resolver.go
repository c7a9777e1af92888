// Package images resolves the photo gallery of a listing page into a
// deduplicated list of absolute image URLs.
package images

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	// DefaultLimit caps the filtered result.
	DefaultLimit = 20
	// DefaultFallbackLimit caps the unfiltered fallback pass.
	DefaultFallbackLimit = 15
)

// Selectors are tried in order; gallery containers come before generic img matches.
var Selectors = []string{
	`[data-testid="gallery-main"] img`,
	`[data-testid="media-viewer-main"] img`,
	`[class*="gallery-main"] img`,
	`[class*="media-main"] img`,
	`[data-testid="gallery"]:not([class*="thumb"]) img`,
	`[data-testid="media-viewer"]:not([class*="thumb"]) img`,
	`[class*="gallery"]:not([class*="thumb"]):not([class*="thumbnail"]) img`,
	`[data-testid*="gallery"] img`,
	`[data-testid*="media"] img`,
	`[class*="PropertyImages"] img`,
	`[class*="propertyImages"] img`,
	`[class*="Gallery"] img`,
	`[class*="MediaGallery"] img`,
	`img[src*="media.rightmove"][src*="/max/"]`,
	`img[src*="media.rightmove"][src*="/640x"]`,
	`img[src*="media.rightmove"][src*="/480x"]`,
	`img[data-src*="media.rightmove"][data-src*="/max/"]`,
	`img[data-src*="media.rightmove"][data-src*="/640x"]`,
	`img[src*="media.rightmove"]`,
	`img[data-src*="media.rightmove"]`,
	`img[src*="rightmove-static"]`,
	`img[data-src*="rightmove-static"]`,
	`img[alt*="bedroom"]:not([class*="thumb"])`,
	`img[alt*="kitchen"]:not([class*="thumb"])`,
	`img[alt*="living"]:not([class*="thumb"])`,
	`img[alt*="bathroom"]:not([class*="thumb"])`,
}

var cdnURLPattern = regexp.MustCompile(`(?:https?:)?//media\.rightmove\.co\.uk(?::\d+)?/[^"'\s\\<>]+?\.(?:jpe?g|png|webp)`)

// Resolver extracts listing photos from a parsed page.
type Resolver struct {
	limit         int
	fallbackLimit int
	providers     []MetadataProvider
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLimit sets the maximum number of filtered images.
func WithLimit(n int) Option {
	return func(r *Resolver) {
		r.limit = n
	}
}

// WithFallbackLimit sets the maximum number of images from the unfiltered pass.
func WithFallbackLimit(n int) Option {
	return func(r *Resolver) {
		r.fallbackLimit = n
	}
}

// WithProviders replaces the structured metadata providers.
func WithProviders(p ...MetadataProvider) Option {
	return func(r *Resolver) {
		r.providers = p
	}
}

// NewResolver creates a resolver with the page-state provider enabled.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		limit:         DefaultLimit,
		fallbackLimit: DefaultFallbackLimit,
		providers:     []MetadataProvider{PageModelProvider{}},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// collector accumulates unique URLs, treating resolution variants as one.
type collector struct {
	urls  []string
	seen  map[string]bool
	bases map[string]bool
	limit int
	keep  func(string) bool
}

func newCollector(limit int, keep func(string) bool) *collector {
	return &collector{
		seen:  make(map[string]bool),
		bases: make(map[string]bool),
		limit: limit,
		keep:  keep,
	}
}

func (c *collector) full() bool {
	return len(c.urls) >= c.limit
}

func (c *collector) add(raw string) {
	if raw == "" || c.full() {
		return
	}
	u := Normalize(raw)
	base := BaseURL(u)
	if c.seen[u] || c.bases[base] || !c.keep(u) {
		return
	}
	c.urls = append(c.urls, u)
	c.seen[u] = true
	c.bases[base] = true
}

// Resolve returns up to the configured limit of listing photos. Each call
// starts from scratch.
func (r *Resolver) Resolve(doc *goquery.Document) []string {
	c := newCollector(r.limit, func(u string) bool {
		return IsCDN(u) && IsQualityPhoto(u) && !IsSystemImage(u)
	})

	for _, sel := range Selectors {
		doc.Find(sel).Each(func(_ int, img *goquery.Selection) {
			c.add(imgSource(img))
		})
		if c.full() {
			return c.urls
		}
	}

	for _, u := range ScriptURLs(doc) {
		c.add(u)
	}
	for _, p := range r.providers {
		for _, u := range p.FindImages(doc) {
			c.add(u)
		}
	}

	if len(c.urls) > 0 {
		return c.urls
	}
	return r.fallback(doc)
}

// fallback accepts any CDN image that is not obviously a logo, icon or agent photo.
func (r *Resolver) fallback(doc *goquery.Document) []string {
	c := newCollector(r.fallbackLimit, func(u string) bool {
		return IsCDN(u) && !isBasicExcluded(u)
	})
	doc.Find("img").Each(func(_ int, img *goquery.Selection) {
		c.add(imgSource(img))
	})
	return c.urls
}

// ScriptURLs returns CDN image URLs found verbatim in inline scripts.
func ScriptURLs(doc *goquery.Document) []string {
	var out []string
	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		if _, external := s.Attr("src"); external {
			return
		}
		text := unescapeScript(s.Text())
		out = append(out, cdnURLPattern.FindAllString(text, -1)...)
	})
	return out
}

func imgSource(img *goquery.Selection) string {
	for _, attr := range []string{"src", "data-src", "data-lazy-src"} {
		if v, ok := img.Attr(attr); ok && strings.TrimSpace(v) != "" && !strings.HasPrefix(v, "data:") {
			return v
		}
	}
	return ""
}

// unescapeScript undoes the slash escaping JSON encoders apply inside scripts.
func unescapeScript(s string) string {
	return strings.NewReplacer(`\/`, "/", `\u002F`, "/", `\u002f`, "/").Replace(s)
}
