package output

import (
	"github.com/jmylchreest/propcheck/pkg/critic"
	"github.com/jmylchreest/propcheck/pkg/propcheck"
	"github.com/jmylchreest/propcheck/pkg/report"
)

// Report is one analysed listing as written by every format.
type Report struct {
	URL     string                 `json:"url" yaml:"url"`
	Record  *report.PropertyRecord `json:"record,omitempty" yaml:"record,omitempty"`
	Meta    *Meta                  `json:"meta,omitempty" yaml:"meta,omitempty"`
	Verdict *critic.Verdict        `json:"verdict,omitempty" yaml:"verdict,omitempty"`
	Error   string                 `json:"error,omitempty" yaml:"error,omitempty"`
}

// Meta is the provenance of a record's values.
type Meta struct {
	Provider       string            `json:"provider,omitempty" yaml:"provider,omitempty"`
	Model          string            `json:"model,omitempty" yaml:"model,omitempty"`
	Degraded       bool              `json:"degraded" yaml:"degraded"`
	DegradedReason string            `json:"degradedReason,omitempty" yaml:"degradedReason,omitempty"`
	Fallback       bool              `json:"fallback" yaml:"fallback"`
	Sources        map[string]string `json:"sources,omitempty" yaml:"sources,omitempty"`
	Rejected       []string          `json:"rejected,omitempty" yaml:"rejected,omitempty"`
	Postcode       string            `json:"postcode,omitempty" yaml:"postcode,omitempty"`
	InputTokens    int               `json:"inputTokens,omitempty" yaml:"inputTokens,omitempty"`
	OutputTokens   int               `json:"outputTokens,omitempty" yaml:"outputTokens,omitempty"`
	FetchMs        int64             `json:"fetchMs" yaml:"fetchMs"`
	ExtractMs      int64             `json:"extractMs" yaml:"extractMs"`
	AreaMs         int64             `json:"areaMs,omitempty" yaml:"areaMs,omitempty"`
	Blob           string            `json:"blob,omitempty" yaml:"blob,omitempty"`
}

// NewReport converts an analysis result. When includeBlob is set the
// extraction input is kept in Meta.
func NewReport(res *propcheck.Result, includeBlob bool) *Report {
	if res == nil {
		return &Report{}
	}
	r := &Report{URL: res.URL, Record: res.Record}
	if res.Error != nil {
		r.Error = res.Error.Error()
		return r
	}

	rejected := make([]string, 0, len(res.Rejected))
	for _, ve := range res.Rejected {
		rejected = append(rejected, ve.Error())
	}
	r.Meta = &Meta{
		Provider:       res.Provider,
		Model:          res.Model,
		Degraded:       res.Degraded,
		DegradedReason: res.DegradedReason,
		Fallback:       res.Fallback,
		Sources:        res.Sources,
		Rejected:       rejected,
		Postcode:       res.Postcode,
		InputTokens:    res.TokenUsage.InputTokens,
		OutputTokens:   res.TokenUsage.OutputTokens,
		FetchMs:        res.FetchDuration.Milliseconds(),
		ExtractMs:      res.ExtractDuration.Milliseconds(),
		AreaMs:         res.AreaDuration.Milliseconds(),
	}
	if includeBlob {
		r.Meta.Blob = res.Blob
	}
	return r
}
