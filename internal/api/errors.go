package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/jmylchreest/propcheck/internal/logger"
	"github.com/jmylchreest/propcheck/pkg/area"
	"github.com/jmylchreest/propcheck/pkg/critic"
	"github.com/jmylchreest/propcheck/pkg/fetcher"
	"github.com/jmylchreest/propcheck/pkg/listing"
	"github.com/jmylchreest/propcheck/pkg/report"
)

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

// badRequestError marks a malformed request body.
type badRequestError struct {
	msg string
}

func (e *badRequestError) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return &badRequestError{msg: fmt.Sprintf(format, args...)}
}

// statusFor maps a pipeline error to an HTTP status and a client-safe
// message. fallback is used for errors that carry no public detail.
func statusFor(err error, fallback string) (int, ErrorResponse) {
	var (
		bad       *badRequestError
		statusErr *fetcher.StatusError
		invalid   *report.InvalidRecordError
	)

	switch {
	case errors.As(err, &bad):
		return http.StatusBadRequest, ErrorResponse{Error: bad.msg}
	case errors.Is(err, listing.ErrUnsupportedURL):
		return http.StatusBadRequest, ErrorResponse{Error: "Please provide a valid Rightmove URL"}
	case errors.Is(err, area.ErrNoPostcode):
		return http.StatusBadRequest, ErrorResponse{Error: "No UK postcode found in query"}
	case errors.As(err, &invalid):
		details := make([]string, len(invalid.Errors))
		for i, ve := range invalid.Errors {
			details[i] = ve.Error()
		}
		return http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "Could not build a valid property record from the listing",
			Details: details,
		}
	case errors.As(err, &statusErr):
		return http.StatusBadGateway, ErrorResponse{
			Error: fmt.Sprintf("Failed to fetch upstream page (%d)", statusErr.StatusCode),
		}
	case errors.Is(err, area.ErrNoAverage):
		return http.StatusBadGateway, ErrorResponse{Error: "No area average found for postcode"}
	case errors.Is(err, critic.ErrNoProvider):
		return http.StatusServiceUnavailable, ErrorResponse{Error: "No LLM provider configured"}
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, ErrorResponse{Error: "Upstream timed out"}
	default:
		return http.StatusInternalServerError, ErrorResponse{Error: fallback}
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status, body := statusFor(err, fallback)
	log := logger.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		log.Error("request failed", "status", status, "error", err)
	} else {
		log.Warn("request rejected", "status", status, "error", err)
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Debug("failed to encode response", "error", err)
	}
}
