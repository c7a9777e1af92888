package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jmylchreest/propcheck/pkg/llm"
)

const namespace = "propcheck"

// Metrics holds the server's Prometheus collectors on a private registry,
// so several servers (or tests) can coexist in one process.
//
// Metrics also implements llm.Observer; pass it to propcheck.WithObserver
// to count model calls and tokens.
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	rateLimited     prometheus.Counter

	analysesTotal *prometheus.CounterVec

	llmCallsTotal *prometheus.CounterVec
	llmTokens     *prometheus.CounterVec
	llmDuration   *prometheus.HistogramVec
	llmCost       *prometheus.CounterVec
}

// NewMetrics creates and registers all collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of API requests",
			},
			[]string{"method", "route", "status_code"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "API request duration in seconds",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"method", "route"},
		),
		rateLimited: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "rate_limited_total",
				Help:      "Requests rejected by the rate limiter",
			},
		),

		analysesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "analyses_total",
				Help:      "Listing analyses by data source and degradation",
			},
			[]string{"data_source", "degraded"},
		),

		llmCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "llm",
				Name:      "calls_total",
				Help:      "LLM provider calls",
			},
			[]string{"provider", "model", "status"},
		),
		llmTokens: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "llm",
				Name:      "tokens_total",
				Help:      "LLM tokens consumed",
			},
			[]string{"provider", "direction"},
		),
		llmDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "llm",
				Name:      "call_duration_seconds",
				Help:      "LLM call duration in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.25, 2, 9),
			},
			[]string{"provider"},
		),
		llmCost: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "llm",
				Name:      "cost_usd_total",
				Help:      "Reported LLM cost in USD",
			},
			[]string{"provider"},
		),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// OnLLMCall implements llm.Observer.
func (m *Metrics) OnLLMCall(_ context.Context, ev llm.CallEvent) {
	status := "ok"
	switch {
	case errors.Is(ev.Error, llm.ErrTruncated):
		status = "truncated"
	case ev.Error != nil:
		status = "error"
	}
	m.llmCallsTotal.WithLabelValues(ev.Provider, ev.Model, status).Inc()
	m.llmTokens.WithLabelValues(ev.Provider, "input").Add(float64(ev.InputTokens))
	m.llmTokens.WithLabelValues(ev.Provider, "output").Add(float64(ev.OutputTokens))
	m.llmDuration.WithLabelValues(ev.Provider).Observe(ev.Duration.Seconds())
	if ev.Cost > 0 {
		m.llmCost.WithLabelValues(ev.Provider).Add(ev.Cost)
	}
}

func (m *Metrics) observeRequest(method, route string, status int, d time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	m.requestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func (m *Metrics) observeAnalysis(dataSource string, degraded bool) {
	m.analysesTotal.WithLabelValues(dataSource, strconv.FormatBool(degraded)).Inc()
}

var _ llm.Observer = (*Metrics)(nil)
