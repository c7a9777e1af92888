package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/propcheck/pkg/critic"
	"github.com/jmylchreest/propcheck/pkg/extractor"
	"github.com/jmylchreest/propcheck/pkg/propcheck"
	"github.com/jmylchreest/propcheck/pkg/report"
	"github.com/jmylchreest/propcheck/pkg/schema"
)

func sampleReport(t *testing.T, url string) *Report {
	t.Helper()
	price, sqm, beds := 425000, 100.0, 3
	address := "12 Acacia Avenue, Bristol BS7 8AA"
	b := &report.Builder{Now: func() time.Time { return time.Date(2024, 3, 24, 12, 0, 0, 0, time.UTC) }}
	rec := b.Build(report.Inputs{Fields: &extractor.Fields{
		Address: &address, Price: &price, SquareMeters: &sqm, Bedrooms: &beds,
	}})
	return &Report{
		URL:    url,
		Record: rec,
		Meta:   &Meta{Provider: "layered(regex)", Sources: map[string]string{"price": "regex"}},
	}
}

// --- NewWriter Factory Tests ---

func TestNewWriter(t *testing.T) {
	tests := []struct {
		format Format
		want   string
	}{
		{FormatJSON, "*output.JSONWriter"},
		{FormatJSONL, "*output.JSONLWriter"},
		{FormatYAML, "*output.YAMLWriter"},
		{FormatText, "*output.TextWriter"},
		{"", "*output.TextWriter"},
		{FormatXLSX, "*output.XLSXWriter"},
	}

	for _, tt := range tests {
		w, err := NewWriter(&bytes.Buffer{}, tt.format)
		if err != nil {
			t.Fatalf("NewWriter(%q) error = %v", tt.format, err)
		}
		if got := typeName(w); got != tt.want {
			t.Errorf("NewWriter(%q): expected %s, got %s", tt.format, tt.want, got)
		}
	}
}

func typeName(w Writer) string {
	switch w.(type) {
	case *JSONWriter:
		return "*output.JSONWriter"
	case *JSONLWriter:
		return "*output.JSONLWriter"
	case *YAMLWriter:
		return "*output.YAMLWriter"
	case *TextWriter:
		return "*output.TextWriter"
	case *XLSXWriter:
		return "*output.XLSXWriter"
	}
	return "unknown"
}

func TestNewWriter_UnsupportedFormat(t *testing.T) {
	_, err := NewWriter(&bytes.Buffer{}, Format("csv"))
	if err == nil {
		t.Fatal("expected error for unsupported format")
	}
	if !strings.Contains(err.Error(), "unsupported") {
		t.Errorf("expected error containing 'unsupported', got %v", err)
	}
}

// --- JSONWriter Tests ---

func TestJSONWriter_SingleReportIsObject(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewJSONWriter(buf, true, "  ")

	if err := w.Write(sampleReport(t, "https://www.rightmove.co.uk/properties/1")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("failed to unmarshal output: %v", err)
	}
	rec, ok := got["record"].(map[string]any)
	if !ok {
		t.Fatalf("expected record object, got %v", got["record"])
	}
	if rec["price"] != float64(425000) || rec["pricePerSqM"] != float64(4250) {
		t.Errorf("unexpected record values %v %v", rec["price"], rec["pricePerSqM"])
	}
	if _, ok := rec["localArea"].(map[string]any)["postcodeAverage"]; !ok {
		t.Error("expected camelCase nested fields")
	}
}

func TestJSONWriter_MultipleReportsIsArray(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewJSONWriter(buf, false, "")

	_ = w.Write(sampleReport(t, "a"))
	_ = w.Write(&Report{URL: "b", Error: "unsupported listing URL"})
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	var got []Report
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("failed to unmarshal output: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 reports, got %d", len(got))
	}
	if got[1].Error != "unsupported listing URL" || got[1].Record != nil {
		t.Errorf("unexpected error report %+v", got[1])
	}
	if lines := strings.Split(strings.TrimSpace(buf.String()), "\n"); len(lines) != 1 {
		t.Errorf("expected compact output on one line, got %d", len(lines))
	}
}

func TestJSONWriter_FlushClearsBuffer(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewJSONWriter(buf, false, "")
	_ = w.Write(sampleReport(t, "a"))
	_ = w.Flush()
	n := buf.Len()

	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if buf.Len() != n {
		t.Error("expected no output for an empty buffer")
	}
}

// --- JSONLWriter Tests ---

func TestJSONLWriter_OneLinePerReport(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewJSONLWriter(buf)

	_ = w.Write(sampleReport(t, "a"))
	if buf.Len() == 0 {
		t.Error("expected JSONL to write immediately")
	}
	_ = w.Write(sampleReport(t, "b"))

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	for i, line := range lines {
		var r Report
		if err := json.Unmarshal([]byte(line), &r); err != nil {
			t.Errorf("line %d is not valid JSON: %v", i, err)
		}
	}
}

// --- YAMLWriter Tests ---

func TestYAMLWriter(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewYAMLWriter(buf)

	_ = w.Write(sampleReport(t, "a"))
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	var got struct {
		URL    string `yaml:"url"`
		Record struct {
			Price int `yaml:"price"`
			Costs struct {
				SDLT float64 `yaml:"sdlt"`
			} `yaml:"costs"`
		} `yaml:"record"`
	}
	if err := yaml.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("failed to unmarshal output: %v", err)
	}
	if got.URL != "a" || got.Record.Price != 425000 || got.Record.Costs.SDLT != 8750 {
		t.Errorf("unexpected result: %+v", got)
	}
}

// --- TextWriter Tests ---

func TestTextWriter(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewTextWriter(buf)

	r := sampleReport(t, "https://www.rightmove.co.uk/properties/1")
	r.Verdict = &critic.Verdict{
		OverallVerdict: "Fair.",
		Recommendation: critic.Neutral,
		RiskFactors:    []string{"Below average value for money score"},
	}
	if err := w.Write(r); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := w.Write(&Report{URL: "bad", Error: "boom"}); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"12 Acacia Avenue, Bristol BS7 8AA",
		"£425,000 (£4,250/m²)",
		"3 bed, 0 bath",
		"£8,750",
		"90% LTV at 5.25%",
		"Verdict: NEUTRAL",
		"- Below average value for money score",
		"Extracted by layered(regex)",
		"error: boom",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q\n%s", want, out)
		}
	}
}

// --- XLSXWriter Tests ---

func TestXLSXWriter(t *testing.T) {
	buf := &bytes.Buffer{}
	w, err := NewWriter(buf, FormatXLSX)
	if err != nil {
		t.Fatalf("NewWriter() error = %v", err)
	}

	_ = w.Write(sampleReport(t, "https://www.rightmove.co.uk/properties/1"))
	_ = w.Write(&Report{URL: "bad", Error: "boom"})
	if buf.Len() != 0 {
		t.Error("expected nothing written before Flush")
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	f, err := excelize.OpenReader(buf)
	if err != nil {
		t.Fatalf("failed to open workbook: %v", err)
	}
	defer func() { _ = f.Close() }()

	tests := []struct {
		sheet, cell, want string
	}{
		{defaultSheet, "A1", "URL"},
		{defaultSheet, "B2", "12 Acacia Avenue, Bristol BS7 8AA"},
		{defaultSheet, "E2", "3"},
		{defaultSheet, "A3", "bad"},
		{defaultSheet, "U3", "boom"},
		{mortgageSheet, "B2", "90"},
		{mortgageSheet, "B4", "70"},
	}
	for _, tt := range tests {
		got, err := f.GetCellValue(tt.sheet, tt.cell)
		if err != nil {
			t.Fatalf("GetCellValue(%s!%s) error = %v", tt.sheet, tt.cell, err)
		}
		if got != tt.want {
			t.Errorf("%s!%s: expected %q, got %q", tt.sheet, tt.cell, tt.want, got)
		}
	}
}

// --- NewReport Tests ---

func TestNewReport(t *testing.T) {
	res := &propcheck.Result{
		URL:             "u",
		Record:          sampleReport(t, "u").Record,
		Blob:            "Price: £1",
		Degraded:        true,
		DegradedReason:  "blocked",
		Rejected:        []schema.ValidationError{{Field: "bathrooms", Message: "too large"}},
		FetchDuration:   1500 * time.Millisecond,
		ExtractDuration: 20 * time.Millisecond,
	}

	r := NewReport(res, false)
	if r.Meta == nil || !r.Meta.Degraded || r.Meta.FetchMs != 1500 || r.Meta.ExtractMs != 20 {
		t.Errorf("unexpected meta %+v", r.Meta)
	}
	if len(r.Meta.Rejected) != 1 || !strings.Contains(r.Meta.Rejected[0], "bathrooms") {
		t.Errorf("unexpected rejected %v", r.Meta.Rejected)
	}
	if r.Meta.Blob != "" {
		t.Error("expected blob omitted")
	}
	if NewReport(res, true).Meta.Blob != "Price: £1" {
		t.Error("expected blob included")
	}

	failed := NewReport(&propcheck.Result{URL: "x", Error: errors.New("nope")}, false)
	if failed.Error != "nope" || failed.Meta != nil {
		t.Errorf("unexpected failed report %+v", failed)
	}
}
