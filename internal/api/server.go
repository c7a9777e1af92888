// Package api serves the listing analysis pipeline over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"github.com/jmylchreest/propcheck/internal/logger"
)

// Config holds the HTTP server settings.
type Config struct {
	Addr string

	// RequestsPerSecond and Burst size the shared token bucket. A zero
	// rate disables limiting.
	RequestsPerSecond float64
	Burst             int

	AllowedOrigins []string
	IncludeBlob    bool

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DefaultConfig returns sensible server defaults. The write timeout leaves
// room for a slow fetch followed by a model call.
func DefaultConfig() Config {
	return Config{
		Addr:              ":8080",
		RequestsPerSecond: 2,
		Burst:             5,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      5 * time.Minute,
		ShutdownTimeout:   30 * time.Second,
	}
}

// NewRouter creates and configures the chi router.
func NewRouter(svc Service, metrics *Metrics, cfg Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(RequestID)
	r.Use(Logger(metrics))
	r.Use(middleware.Recoverer)
	r.Use(CORS(cfg.AllowedOrigins))

	h := NewHandlers(svc, metrics, cfg.IncludeBlob)

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(RateLimit(limiter, metrics))
		r.Post("/property", h.AnalyseProperty)
		r.Post("/area-average", h.AreaAverage)
		r.Post("/analysis", h.Analysis)
	})

	r.Get("/healthz", h.Health)
	if metrics != nil {
		r.Handle("/metrics", metrics.Handler())
	}

	return r
}

// ListenAndServe runs handler on cfg.Addr until ctx is cancelled, then
// shuts down gracefully.
func ListenAndServe(ctx context.Context, handler http.Handler, cfg Config) error {
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadTimeout,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server listening", "addr", cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down api server")
	timeout := cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
