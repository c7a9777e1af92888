package images

import (
	"encoding/json"
	"maps"
	"slices"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/jmylchreest/propcheck/internal/logger"
)

// MetadataProvider finds images in structured page metadata. Providers that
// do not recognise the page return nil.
type MetadataProvider interface {
	FindImages(doc *goquery.Document) []string
}

// PageModelProvider reads the page-state object the listing site embeds as
// `window.PAGE_MODEL = {...}` and walks every `images` array in it.
type PageModelProvider struct{}

const pageModelVar = "PAGE_MODEL"

// FindImages implements MetadataProvider.
func (PageModelProvider) FindImages(doc *goquery.Document) []string {
	var out []string
	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		text := s.Text()
		idx := strings.Index(text, pageModelVar)
		if idx < 0 {
			return
		}
		start := strings.Index(text[idx:], "{")
		if start < 0 {
			return
		}

		var model any
		// Decode stops after the first value, so trailing script is ignored.
		dec := json.NewDecoder(strings.NewReader(text[idx+start:]))
		if err := dec.Decode(&model); err != nil {
			logger.Debug("page model decode failed", "error", err)
			return
		}
		out = append(out, walkImages(model)...)
	})
	return out
}

// walkImages collects url and resizedImageUrls values from any "images"
// array of objects, at any depth.
func walkImages(v any) []string {
	var out []string
	switch node := v.(type) {
	case map[string]any:
		for _, key := range slices.Sorted(maps.Keys(node)) {
			child := node[key]
			if key == "images" {
				if arr, ok := child.([]any); ok {
					out = append(out, imageEntries(arr)...)
					continue
				}
			}
			out = append(out, walkImages(child)...)
		}
	case []any:
		for _, child := range node {
			out = append(out, walkImages(child)...)
		}
	}
	return out
}

func imageEntries(arr []any) []string {
	var out []string
	for _, item := range arr {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if u, ok := entry["url"].(string); ok && u != "" {
			out = append(out, u)
		}
		if resized, ok := entry["resizedImageUrls"].(map[string]any); ok {
			for _, key := range slices.Sorted(maps.Keys(resized)) {
				if u, ok := resized[key].(string); ok && u != "" {
					out = append(out, u)
				}
			}
		}
	}
	return out
}
