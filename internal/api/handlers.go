package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/jmylchreest/propcheck/internal/output"
	"github.com/jmylchreest/propcheck/internal/version"
	"github.com/jmylchreest/propcheck/pkg/critic"
	"github.com/jmylchreest/propcheck/pkg/propcheck"
	"github.com/jmylchreest/propcheck/pkg/report"
)

const maxBodyBytes = 1 << 20

// Service is the analysis surface the handlers need. *propcheck.Propcheck
// satisfies it.
type Service interface {
	Analyse(ctx context.Context, url string) (*propcheck.Result, error)
	AreaAverage(ctx context.Context, query string) (*propcheck.AreaResult, error)
	Verdict(ctx context.Context, record *report.PropertyRecord) (*critic.Verdict, error)
	Provider() string
	Extractor() string
}

// Handlers contains HTTP handlers and their dependencies.
type Handlers struct {
	svc         Service
	metrics     *Metrics
	includeBlob bool
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(svc Service, metrics *Metrics, includeBlob bool) *Handlers {
	return &Handlers{svc: svc, metrics: metrics, includeBlob: includeBlob}
}

// QueryRequest is the body of the property and area-average routes.
// Postcode is accepted as an alias of Query on the area route.
type QueryRequest struct {
	Query    string `json:"query"`
	Postcode string `json:"postcode,omitempty"`
}

// AnalysisRequest is the body of the analysis route.
type AnalysisRequest struct {
	PropertyData *report.PropertyRecord `json:"propertyData"`
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status    string       `json:"status"`
	Version   version.Info `json:"version"`
	Provider  string       `json:"provider"`
	Extractor string       `json:"extractor"`
}

// AnalyseProperty handles POST /api/property
func (h *Handlers) AnalyseProperty(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err, "")
		return
	}
	query := strings.TrimSpace(req.Query)
	if query == "" {
		writeError(w, r, badRequest("query is required"), "")
		return
	}

	res, err := h.svc.Analyse(r.Context(), query)
	if err != nil {
		writeError(w, r, err, "Failed to analyse property")
		return
	}
	if h.metrics != nil && res.Record != nil {
		h.metrics.observeAnalysis(res.Record.DataSource, res.Degraded)
	}

	writeJSON(w, http.StatusOK, output.NewReport(res, h.includeBlob))
}

// AreaAverage handles POST /api/area-average
func (h *Handlers) AreaAverage(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err, "")
		return
	}
	query := strings.TrimSpace(req.Query)
	if query == "" {
		query = strings.TrimSpace(req.Postcode)
	}
	if query == "" {
		writeError(w, r, badRequest("Postcode is required"), "")
		return
	}

	res, err := h.svc.AreaAverage(r.Context(), query)
	if err != nil {
		writeError(w, r, err, "Failed to fetch postcode data")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Analysis handles POST /api/analysis
func (h *Handlers) Analysis(w http.ResponseWriter, r *http.Request) {
	var req AnalysisRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err, "")
		return
	}
	if req.PropertyData == nil {
		writeError(w, r, badRequest("Property data is required"), "")
		return
	}

	v, err := h.svc.Verdict(r.Context(), req.PropertyData)
	if err != nil {
		writeError(w, r, err, "Failed to generate property analysis")
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// Health handles GET /healthz
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Version:   version.Get(),
		Provider:  h.svc.Provider(),
		Extractor: h.svc.Extractor(),
	})
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return badRequest("request body is empty")
		case errors.As(err, &tooLarge):
			return badRequest("request body exceeds %d bytes", tooLarge.Limit)
		default:
			return badRequest("invalid JSON body: %v", err)
		}
	}
	return nil
}
