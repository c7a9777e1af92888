package output

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const (
	defaultSheet  = "Listings"
	mortgageSheet = "Mortgages"
)

var listingHeaders = []string{
	"URL", "Address", "Price", "Price/m²", "Bedrooms", "Bathrooms",
	"Type", "Tenure", "Condition", "Days on market", "Listing date",
	"Reduced", "Value for money", "Area £/m²", "SDLT", "Total costs",
	"Confidence", "Data source", "Provider", "Recommendation", "Error",
}

var mortgageHeaders = []string{"URL", "LTV %", "Rate %", "Deposit", "Monthly payment"}

// XLSXWriter collects reports into a workbook with one row per listing and
// a second sheet of mortgage scenarios. The workbook is written on Flush.
type XLSXWriter struct {
	w       io.Writer
	sheet   string
	reports []*Report
}

// NewXLSXWriter creates an xlsx writer.
func NewXLSXWriter(w io.Writer, sheet string) *XLSXWriter {
	if sheet == "" {
		sheet = defaultSheet
	}
	return &XLSXWriter{w: w, sheet: sheet}
}

// Write buffers a report.
func (w *XLSXWriter) Write(r *Report) error {
	w.reports = append(w.reports, r)
	return nil
}

// Flush builds the workbook and writes it out.
func (w *XLSXWriter) Flush() error {
	if len(w.reports) == 0 {
		return nil
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), w.sheet); err != nil {
		return err
	}
	if _, err := f.NewSheet(mortgageSheet); err != nil {
		return err
	}

	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})
	if err != nil {
		return err
	}
	moneyFmt := "£#,##0"
	money, err := f.NewStyle(&excelize.Style{CustomNumFmt: &moneyFmt})
	if err != nil {
		return err
	}

	if err := writeHeader(f, w.sheet, listingHeaders, header); err != nil {
		return err
	}
	if err := writeHeader(f, mortgageSheet, mortgageHeaders, header); err != nil {
		return err
	}

	mortgageRow := 2
	for i, r := range w.reports {
		row := i + 2
		if err := f.SetSheetRow(w.sheet, cell(1, row), listingRow(r)); err != nil {
			return err
		}
		for _, col := range []int{3, 4, 14, 15, 16} {
			if err := f.SetCellStyle(w.sheet, cell(col, row), cell(col, row), money); err != nil {
				return err
			}
		}

		if r.Record == nil {
			continue
		}
		for _, m := range r.Record.Mortgage.MonthlyPayments {
			values := []any{r.URL, m.LTV, m.Rate, m.Deposit, m.MonthlyPayment}
			if err := f.SetSheetRow(mortgageSheet, cell(1, mortgageRow), &values); err != nil {
				return err
			}
			mortgageRow++
		}
	}

	lastRow := len(w.reports) + 1
	lastCol, _ := excelize.ColumnNumberToName(len(listingHeaders))
	if err := f.AutoFilter(w.sheet, fmt.Sprintf("A1:%s%d", lastCol, lastRow), nil); err != nil {
		return err
	}
	if err := f.SetPanes(w.sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return err
	}
	if err := f.SetColWidth(w.sheet, "A", "B", 45); err != nil {
		return err
	}

	w.reports = nil
	return f.Write(w.w)
}

// Close flushes the writer.
func (w *XLSXWriter) Close() error {
	return w.Flush()
}

func writeHeader(f *excelize.File, sheet string, headers []string, style int) error {
	values := make([]any, len(headers))
	for i, h := range headers {
		values[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &values); err != nil {
		return err
	}
	return f.SetCellStyle(sheet, "A1", cell(len(headers), 1), style)
}

func listingRow(r *Report) *[]any {
	values := make([]any, len(listingHeaders))
	values[0] = r.URL
	values[len(values)-1] = r.Error

	if rec := r.Record; rec != nil {
		copy(values[1:], []any{
			rec.Address, rec.Price, rec.PricePerSqM, rec.Bedrooms, rec.Bathrooms,
			string(rec.PropertyType), string(rec.Tenure), string(rec.Condition),
			rec.MarketTime, rec.ListingDate, rec.PriceReductionDate,
			rec.ValueForMoney, rec.LocalArea.AreaAverage, rec.Costs.SDLT, rec.Costs.Total(),
			rec.Confidence, rec.DataSource,
		})
	}
	if r.Meta != nil {
		values[18] = r.Meta.Provider
	}
	if r.Verdict != nil {
		values[19] = string(r.Verdict.Recommendation)
	}
	return &values
}

func cell(col, row int) string {
	name, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return fmt.Sprintf("A%d", row)
	}
	return name
}
