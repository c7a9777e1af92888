package images

import (
	"fmt"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

func mustDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("failed to parse HTML: %v", err)
	}
	return doc
}

const photo = "https://media.rightmove.co.uk/dir/148k/147962/160428479/147962_33595318_IMG_00_0000.jpeg"

// --- URL helper Tests ---

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"//media.rightmove.co.uk/a.jpg", "https://media.rightmove.co.uk/a.jpg"},
		{"/static/a.jpg", "https://www.rightmove.co.uk/static/a.jpg"},
		{"https://example.com/a.jpg", "https://example.com/a.jpg"},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, expected %q", tt.in, got, tt.want)
		}
	}
}

func TestBaseURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://media.rightmove.co.uk/dir/656x437/a_IMG_00_0000.jpeg", "https://media.rightmove.co.uk/dir/a_IMG_00_0000.jpeg"},
		{"https://media.rightmove.co.uk/dir/a_IMG_00_0000_476x317.jpeg", "https://media.rightmove.co.uk/dir/a_IMG_00_0000.jpeg"},
		{"https://media.rightmove.co.uk/dir/a_IMG_00_0000.jpeg?v=2", "https://media.rightmove.co.uk/dir/a_IMG_00_0000.jpeg"},
	}
	for _, tt := range tests {
		if got := BaseURL(tt.in); got != tt.want {
			t.Errorf("BaseURL(%q) = %q, expected %q", tt.in, got, tt.want)
		}
	}
}

func TestIsQualityPhoto(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{photo, true},
		{"https://media.rightmove.co.uk/dir/a_IMG_3_12.webp", true},
		{"https://media.rightmove.co.uk/dir/a_IMG_01_0000_thumb.jpeg", false},
		{"https://media.rightmove.co.uk/dir/a_IMG_01_0000_max_476x317.jpeg", false},
		{"https://media.rightmove.co.uk/dir/floorplan.jpeg", false},
		{"https://media.rightmove.co.uk/dir/a_IMG_01_0000.gif", false},
	}
	for _, tt := range tests {
		if got := IsQualityPhoto(tt.url); got != tt.want {
			t.Errorf("IsQualityPhoto(%q) = %v, expected %v", tt.url, got, tt.want)
		}
	}
}

func TestIsSystemImage(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{photo, false},
		{"https://media.rightmove.co.uk/brand/logo_IMG_00_0000.png", true},
		{"https://media.rightmove.co.uk/dir/estate-agent_IMG_00_0000.jpeg", true},
		{"https://media.rightmove.co.uk/dir/FLP_00_0000.jpeg", true},
		{"https://media.rightmove.co.uk/dir/123_bp_IMG_00_0000.jpeg", true},
		{"https://media.rightmove.co.uk/dir/x_promo_IMG_00_0000.jpeg", true},
	}
	for _, tt := range tests {
		if got := IsSystemImage(tt.url); got != tt.want {
			t.Errorf("IsSystemImage(%q) = %v, expected %v", tt.url, got, tt.want)
		}
	}
}

// --- Resolver Tests ---

func TestResolve_DeduplicatesResolutions(t *testing.T) {
	doc := mustDoc(t, `<html><body><div data-testid="gallery-main">
		<img src="https://media.rightmove.co.uk/dir/1/2/3_IMG_00_0000.jpeg">
		<img src="https://media.rightmove.co.uk/dir/656x437/1/2/3_IMG_00_0000.jpeg">
		<img data-src="//media.rightmove.co.uk/dir/1/2/3_IMG_01_0000.jpeg">
	</div></body></html>`)

	got := NewResolver().Resolve(doc)
	if len(got) != 2 {
		t.Fatalf("expected 2 images, got %d: %v", len(got), got)
	}
	if got[0] != "https://media.rightmove.co.uk/dir/1/2/3_IMG_00_0000.jpeg" {
		t.Errorf("unexpected first image %q", got[0])
	}
	if got[1] != "https://media.rightmove.co.uk/dir/1/2/3_IMG_01_0000.jpeg" {
		t.Errorf("expected normalized data-src, got %q", got[1])
	}
}

func TestResolve_FiltersSystemAndOffsite(t *testing.T) {
	doc := mustDoc(t, `<html><body><div class="gallery">
		<img src="https://media.rightmove.co.uk/brand/logo_IMG_00_0000.png">
		<img src="https://cdn.example.com/x_IMG_00_0000.jpeg">
		<img src="`+photo+`">
	</div></body></html>`)

	got := NewResolver().Resolve(doc)
	if len(got) != 1 || got[0] != photo {
		t.Errorf("expected only the listing photo, got %v", got)
	}
}

func TestResolve_Cap(t *testing.T) {
	var sb strings.Builder
	sb.WriteString(`<html><body><div data-testid="gallery-main">`)
	for i := 0; i < 25; i++ {
		fmt.Fprintf(&sb, `<img src="https://media.rightmove.co.uk/dir/1/2/3_IMG_%02d_0000.jpeg">`, i)
	}
	sb.WriteString(`</div></body></html>`)

	got := NewResolver().Resolve(mustDoc(t, sb.String()))
	if len(got) != DefaultLimit {
		t.Errorf("expected %d images, got %d", DefaultLimit, len(got))
	}
}

func TestResolve_Restartable(t *testing.T) {
	doc := mustDoc(t, `<html><body><div class="gallery"><img src="`+photo+`"></div></body></html>`)
	r := NewResolver()
	first := r.Resolve(doc)
	second := r.Resolve(doc)
	if len(first) != 1 || len(second) != 1 {
		t.Errorf("expected identical results on repeat calls, got %v then %v", first, second)
	}
}

func TestResolve_ScriptURLs(t *testing.T) {
	doc := mustDoc(t, `<html><body>
		<script>window.data = {"src":"https:\/\/media.rightmove.co.uk\/dir\/1\/2_IMG_05_0000.jpeg"};</script>
	</body></html>`)

	got := NewResolver(WithProviders()).Resolve(doc)
	if len(got) != 1 || got[0] != "https://media.rightmove.co.uk/dir/1/2_IMG_05_0000.jpeg" {
		t.Errorf("expected image mined from script, got %v", got)
	}
}

func TestResolve_FallbackPass(t *testing.T) {
	doc := mustDoc(t, `<html><body>
		<img src="https://media.rightmove.co.uk/dir/FLP_00_0000.jpeg">
		<img src="https://media.rightmove.co.uk/agent/logo.png">
		<img src="https://cdn.example.com/pic.jpeg">
	</body></html>`)

	got := NewResolver().Resolve(doc)
	if len(got) != 1 || got[0] != "https://media.rightmove.co.uk/dir/FLP_00_0000.jpeg" {
		t.Errorf("expected unfiltered CDN fallback, got %v", got)
	}
}

func TestResolve_Empty(t *testing.T) {
	got := NewResolver().Resolve(mustDoc(t, `<html><body><p>No photos</p></body></html>`))
	if len(got) != 0 {
		t.Errorf("expected no images, got %v", got)
	}
}

// --- PageModelProvider Tests ---

func TestPageModelProvider(t *testing.T) {
	doc := mustDoc(t, `<html><body><script>
		window.PAGE_MODEL = {"propertyData":{"images":[
			{"url":"https://media.rightmove.co.uk/dir/9/9_IMG_07_0000.jpeg",
			 "resizedImageUrls":{"size656x437":"https://media.rightmove.co.uk/dir/9/9_IMG_07_0000_max_656x437.jpeg"}},
			{"url":"https://media.rightmove.co.uk/dir/9/9_IMG_08_0000.jpeg"}
		]}};
		window.other = 1;
	</script></body></html>`)

	got := PageModelProvider{}.FindImages(doc)
	want := []string{
		"https://media.rightmove.co.uk/dir/9/9_IMG_07_0000.jpeg",
		"https://media.rightmove.co.uk/dir/9/9_IMG_07_0000_max_656x437.jpeg",
		"https://media.rightmove.co.uk/dir/9/9_IMG_08_0000.jpeg",
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d URLs, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("url[%d]: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestPageModelProvider_Malformed(t *testing.T) {
	doc := mustDoc(t, `<html><body><script>window.PAGE_MODEL = {broken</script></body></html>`)
	if got := (PageModelProvider{}).FindImages(doc); len(got) != 0 {
		t.Errorf("expected nothing from malformed model, got %v", got)
	}
}

func TestResolve_PageModelOnly(t *testing.T) {
	doc := mustDoc(t, `<html><body><script>
		window.PAGE_MODEL = {"images":[{"url":"/dir/9/9_IMG_07_0000.jpeg"}]};
	</script></body></html>`)

	// Root-relative URLs only resolve through the provider, not the CDN regex.
	got := NewResolver().Resolve(doc)
	if len(got) != 0 {
		t.Errorf("expected root-relative non-CDN URL to be rejected, got %v", got)
	}
}
