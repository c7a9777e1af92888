package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// --- StaticFetcher Tests ---

func TestStaticFetcher_Success(t *testing.T) {
	var gotLang, gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotLang = r.Header.Get("Accept-Language")
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html><head><title> Flat for sale </title></head><body>hi</body></html>"))
	}))
	defer srv.Close()

	f := NewStatic(DefaultStaticConfig())
	content, err := f.Fetch(context.Background(), srv.URL, Options{})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	if content.StatusCode != http.StatusOK {
		t.Errorf("expected status 200, got %d", content.StatusCode)
	}
	if content.Title != "Flat for sale" {
		t.Errorf("expected title 'Flat for sale', got %q", content.Title)
	}
	if gotLang != "en-GB,en-US;q=0.9,en;q=0.8" {
		t.Errorf("expected browser Accept-Language header, got %q", gotLang)
	}
	if gotUA != DefaultUserAgent() {
		t.Errorf("expected default user agent, got %q", gotUA)
	}
}

func TestStaticFetcher_OptionHeadersOverride(t *testing.T) {
	var gotReferer string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotReferer = r.Header.Get("Referer")
		_, _ = w.Write([]byte("<html></html>"))
	}))
	defer srv.Close()

	f := NewStatic(DefaultStaticConfig())
	_, err := f.Fetch(context.Background(), srv.URL, Options{Headers: map[string]string{"Referer": "https://example.com/"}})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if gotReferer != "https://example.com/" {
		t.Errorf("expected overridden Referer, got %q", gotReferer)
	}
}

func TestStaticFetcher_BlockStatuses(t *testing.T) {
	for _, code := range []int{http.StatusForbidden, http.StatusTooManyRequests} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(code)
		}))

		f := NewStatic(StaticConfig{})
		_, err := f.Fetch(context.Background(), srv.URL, Options{})
		srv.Close()

		if !errors.Is(err, ErrBlocked) {
			t.Errorf("status %d: expected ErrBlocked, got %v", code, err)
		}
		var statusErr *StatusError
		if !errors.As(err, &statusErr) || statusErr.StatusCode != code {
			t.Errorf("status %d: expected *StatusError with code, got %v", code, err)
		}
	}
}

func TestStaticFetcher_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	f := NewStatic(StaticConfig{})
	_, err := f.Fetch(context.Background(), srv.URL, Options{})

	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected *StatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", statusErr.StatusCode)
	}
	if errors.Is(err, ErrBlocked) {
		t.Error("500 should not be reported as blocked")
	}
}

func TestStaticFetcher_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	f := NewStatic(StaticConfig{Timeout: 2 * time.Second})
	_, err := f.Fetch(context.Background(), url, Options{})
	if err == nil {
		t.Fatal("expected error for closed server")
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		t.Errorf("transport failure should not carry a status, got %v", statusErr)
	}
}

func TestStaticFetcher_Type(t *testing.T) {
	if got := NewStatic(StaticConfig{}).Type(); got != "static" {
		t.Errorf("expected 'static', got %q", got)
	}
}

// --- Helpers ---

func TestIsBlockStatus(t *testing.T) {
	tests := []struct {
		code int
		want bool
	}{
		{403, true},
		{429, true},
		{404, false},
		{500, false},
		{200, false},
	}
	for _, tt := range tests {
		if got := IsBlockStatus(tt.code); got != tt.want {
			t.Errorf("IsBlockStatus(%d) = %v, expected %v", tt.code, got, tt.want)
		}
	}
}

func TestBrowserHeaders_FreshMap(t *testing.T) {
	h := BrowserHeaders()
	h["Referer"] = "changed"
	if BrowserHeaders()["Referer"] != "https://www.google.com/" {
		t.Error("BrowserHeaders should return a new map each call")
	}
}
