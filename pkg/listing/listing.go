// Package listing knows the shape of supported listing URLs and degrades a
// failed page fetch into a text block derived from the URL alone.
package listing

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// Domain is the supported listing site.
const Domain = "rightmove.co.uk"

// ErrUnsupportedURL is returned for input that is not a listing URL on the
// supported site. Nothing is fetched for such input.
var ErrUnsupportedURL = errors.New("unsupported listing URL")

var (
	idPattern   = regexp.MustCompile(`rightmove\.co\.uk/properties/(\d+)`)
	pathPattern = regexp.MustCompile(`^/properties/(\d+)`)
)

// URL is a validated listing URL.
type URL struct {
	Raw string
	ID  string
}

// Validate checks that rawURL points at a property page on the supported
// site and returns it with the listing ID parsed out.
func Validate(rawURL string) (*URL, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil, fmt.Errorf("%w: empty", ErrUnsupportedURL)
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: scheme %q", ErrUnsupportedURL, u.Scheme)
	}

	host := strings.ToLower(u.Hostname())
	if host != Domain && !strings.HasSuffix(host, "."+Domain) {
		return nil, fmt.Errorf("%w: host %q is not %s", ErrUnsupportedURL, host, Domain)
	}

	m := pathPattern.FindStringSubmatch(u.Path)
	if m == nil {
		return nil, fmt.Errorf("%w: path %q is not /properties/<id>", ErrUnsupportedURL, u.Path)
	}

	return &URL{Raw: rawURL, ID: m[1]}, nil
}

// PropertyID extracts the numeric listing ID from any string containing a
// listing URL.
func PropertyID(rawURL string) (string, bool) {
	m := idPattern.FindStringSubmatch(rawURL)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// FallbackText is the synthetic page text used when the listing could not be
// fetched. Downstream extraction treats it like any other text blob.
func FallbackText(rawURL string) string {
	if id, ok := PropertyID(rawURL); ok {
		return fmt.Sprintf("Property ID: %s\nNote: Unable to scrape full details due to access restrictions. "+
			"Please provide the property details manually or try a different URL.", id)
	}
	return fmt.Sprintf("URL: %s\nNote: Unable to access property details due to website restrictions. "+
		"Please provide the property details manually.", rawURL)
}
