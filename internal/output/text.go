package output

import (
	"bufio"
	"io"
	"math"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/jmylchreest/propcheck/pkg/report"
)

// TextWriter renders a human-readable report per listing, with money in
// en-GB grouping.
type TextWriter struct {
	w       *bufio.Writer
	p       *message.Printer
	written int
}

// NewTextWriter creates a text writer.
func NewTextWriter(w io.Writer) *TextWriter {
	return &TextWriter{
		w: bufio.NewWriter(w),
		p: message.NewPrinter(language.BritishEnglish),
	}
}

// Write renders r immediately.
func (w *TextWriter) Write(r *Report) error {
	if w.written > 0 {
		w.line("")
		w.line(strings.Repeat("─", 60))
		w.line("")
	}
	w.written++

	if r.Error != "" {
		w.line(r.URL)
		w.printf("  error: %s\n", r.Error)
		return w.w.Flush()
	}

	if rec := r.Record; rec != nil {
		w.record(r.URL, rec)
	}
	if m := r.Meta; m != nil {
		w.meta(m)
	}
	if v := r.Verdict; v != nil {
		w.line("")
		w.printf("Verdict: %s\n", v.Recommendation)
		w.printf("  %s\n", v.OverallVerdict)
		for _, risk := range v.RiskFactors {
			w.printf("  - %s\n", risk)
		}
	}
	return w.w.Flush()
}

func (w *TextWriter) record(url string, r *report.PropertyRecord) {
	w.line(r.Address)
	if url != "" {
		w.line(url)
	}
	w.line("")

	propertyType := string(r.PropertyType)
	if propertyType == "" {
		propertyType = "unknown type"
	}
	w.printf("  %-18s £%d (£%d/m²)\n", "Price", r.Price, r.PricePerSqM)
	w.printf("  %-18s %d bed, %d bath\n", "Rooms", r.Bedrooms, r.Bathrooms)
	w.printf("  %-18s %s, %s\n", "Type / tenure", propertyType, r.Tenure)
	w.printf("  %-18s %s\n", "Condition", r.Condition)
	w.printf("  %-18s %d days\n", "On market", r.MarketTime)
	if r.PriceReductionDate != "" {
		w.printf("  %-18s %s\n", "Reduced", r.PriceReductionDate)
	}
	w.printf("  %-18s %.1f/10 (area £%d/m²)\n", "Value for money", r.ValueForMoney, roundInt(r.LocalArea.AreaAverage))
	w.printf("  %-18s %.0f%% (%s)\n", "Confidence", r.Confidence*100, r.DataSource)

	w.line("")
	w.line("Valuations")
	w.printf("  %-18s £%d\n", "Zoopla", r.Indices.Zoopla)
	w.printf("  %-18s £%d\n", "ONS", r.Indices.ONS)
	w.printf("  %-18s £%d\n", "Acadata", r.Indices.Acadata)
	w.printf("  %-18s £%d\n", "Last sale", r.History.LastSalePrice)

	w.line("")
	w.line("Purchase costs")
	w.printf("  %-18s £%d\n", "SDLT", roundInt(r.Costs.SDLT))
	w.printf("  %-18s £%d\n", "Conveyancing", r.Costs.Conveyancing)
	w.printf("  %-18s £%d\n", "Survey", r.Costs.Survey)
	w.printf("  %-18s £%d\n", "Total", roundInt(r.Costs.Total()))

	w.line("")
	w.line("Mortgage (25 years)")
	for _, m := range r.Mortgage.MonthlyPayments {
		w.printf("  %d%% LTV at %.2f%%   deposit £%d   £%d/month\n", m.LTV, m.Rate, m.Deposit, m.MonthlyPayment)
	}

	if len(r.Images) > 0 {
		w.line("")
		w.printf("%d images\n", len(r.Images))
	}
}

func (w *TextWriter) meta(m *Meta) {
	w.line("")
	w.printf("Extracted by %s", m.Provider)
	if m.Model != "" {
		w.printf(" (%s)", m.Model)
	}
	w.line("")
	if m.Degraded {
		w.printf("  page could not be fetched: %s\n", m.DegradedReason)
	}
	if m.Fallback {
		w.line("  model extraction failed, regex fallback used")
	}
	for _, rej := range m.Rejected {
		w.printf("  rejected %s\n", rej)
	}
	if m.Blob != "" {
		w.line("")
		w.line("Extracted text")
		for _, l := range strings.Split(strings.TrimRight(m.Blob, "\n"), "\n") {
			w.printf("  %s\n", l)
		}
	}
}

func (w *TextWriter) printf(format string, args ...any) {
	_, _ = w.p.Fprintf(w.w, format, args...)
}

func (w *TextWriter) line(s string) {
	_, _ = w.w.WriteString(s)
	_ = w.w.WriteByte('\n')
}

// Flush flushes the buffer.
func (w *TextWriter) Flush() error {
	return w.w.Flush()
}

// Close flushes the writer.
func (w *TextWriter) Close() error {
	return w.Flush()
}

func roundInt(v float64) int {
	return int(math.Round(v))
}
