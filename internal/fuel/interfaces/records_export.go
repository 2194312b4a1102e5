package interfaces

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	fuel "fuel-registry/internal/fuel/domain"
	"fuel-registry/internal/fuel/query"
)

// Export formats.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
	FormatPDF  = "pdf"
)

// ExportDocument is a filtered and sorted registry view ready to render.
type ExportDocument struct {
	Variant     fuel.Variant
	State       query.ViewState
	Rows        []fuel.Record
	Stats       *query.Stats
	Currency    string
	Unit        string
	GeneratedAt time.Time
}

// ContentType returns the MIME type of an export format.
func ContentType(format string) string {
	switch format {
	case FormatCSV:
		return "text/csv"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatPDF:
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}

// Build renders doc in format.
func Build(format string, doc ExportDocument) ([]byte, error) {
	switch format {
	case FormatCSV:
		return BuildRecordsCSV(doc)
	case FormatXLSX:
		return BuildRecordsXLSX(doc)
	case FormatPDF:
		return BuildRecordsPDF(doc)
	default:
		return nil, fmt.Errorf("export: unknown format %q", format)
	}
}

func (d ExportDocument) title() string {
	if d.Variant == fuel.VariantStation {
		return "Fuel Stations"
	}
	return "Fuel Prices"
}

func (d ExportDocument) header() []string {
	if d.Variant == fuel.VariantStation {
		return []string{"ID", "Name", "Address", "Price"}
	}
	return []string{"ID", "Type", "Price", "Updated At"}
}

func (d ExportDocument) row(record fuel.Record) []string {
	if d.Variant == fuel.VariantStation {
		return []string{record.ID, record.Name, record.Address, string(record.Price)}
	}
	return []string{record.ID, record.Type, string(record.Price), formatTime(record.UpdatedAt)}
}

func (d ExportDocument) priceColumn() int {
	if d.Variant == fuel.VariantStation {
		return 3
	}
	return 2
}

func (d ExportDocument) money(value float64) string {
	return strings.TrimSpace(fmt.Sprintf("%s %s %s", d.Currency, fuel.FormatAmount(value), d.Unit))
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// BuildRecordsCSV renders rows as CSV with a header line.
func BuildRecordsCSV(doc ExportDocument) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(doc.header()); err != nil {
		return nil, err
	}
	for _, record := range doc.Rows {
		if err := w.Write(doc.row(record)); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildRecordsXLSX renders a summary sheet and a records sheet.
func BuildRecordsXLSX(doc ExportDocument) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	summarySheet := "summary"
	recordsSheet := "records"
	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(recordsSheet); err != nil {
		return nil, err
	}

	_ = f.SetCellValue(summarySheet, "A1", doc.title())
	_ = f.SetCellValue(summarySheet, "A3", "Generated")
	_ = f.SetCellValue(summarySheet, "B3", formatTime(doc.GeneratedAt))
	_ = f.SetCellValue(summarySheet, "A4", "Filter")
	_ = f.SetCellValue(summarySheet, "B4", doc.State.Filter)
	_ = f.SetCellValue(summarySheet, "A5", "Records")
	_ = f.SetCellValue(summarySheet, "B5", len(doc.Rows))
	_ = f.SetCellValue(summarySheet, "A6", "Currency")
	_ = f.SetCellValue(summarySheet, "B6", doc.Currency)
	if doc.Stats != nil {
		_ = f.SetCellValue(summarySheet, "A7", "Average Price")
		_ = f.SetCellValue(summarySheet, "B7", doc.Stats.RoundedAverage())
		_ = f.SetCellValue(summarySheet, "A8", "Lowest Price")
		_ = f.SetCellValue(summarySheet, "B8", doc.Stats.Min)
		_ = f.SetCellValue(summarySheet, "A9", "Highest Price")
		_ = f.SetCellValue(summarySheet, "B9", doc.Stats.Max)
		_ = f.SetCellValue(summarySheet, "A10", "Price Range")
		_ = f.SetCellValue(summarySheet, "B10", doc.Stats.Range)
	}

	for i, title := range doc.header() {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		_ = f.SetCellValue(recordsSheet, cell, title)
	}
	for r, record := range doc.Rows {
		for c, value := range doc.row(record) {
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return nil, err
			}
			if price, ok := record.Price.Value(); ok && c == doc.priceColumn() {
				_ = f.SetCellValue(recordsSheet, cell, price)
				continue
			}
			_ = f.SetCellValue(recordsSheet, cell, value)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildRecordsPDF renders a one-table PDF report.
func BuildRecordsPDF(doc ExportDocument) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, doc.title())
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Generated: %s", formatTime(doc.GeneratedAt)))
	pdf.Ln(5)
	if doc.State.Filter != "" {
		pdf.Cell(0, 6, fmt.Sprintf("Filter: %s", doc.State.Filter))
		pdf.Ln(5)
	}
	pdf.Cell(0, 6, "Records: "+strconv.Itoa(len(doc.Rows)))
	pdf.Ln(5)
	if doc.Stats != nil {
		pdf.Cell(0, 6, fmt.Sprintf("Average Price: %s", doc.money(doc.Stats.RoundedAverage())))
		pdf.Ln(5)
		pdf.Cell(0, 6, fmt.Sprintf("Price Range: %s - %s", doc.money(doc.Stats.Min), doc.money(doc.Stats.Max)))
		pdf.Ln(5)
		pdf.Cell(0, 6, fmt.Sprintf("Least Expensive: %s", doc.Stats.Cheapest.Label()))
		pdf.Ln(5)
		pdf.Cell(0, 6, fmt.Sprintf("Most Expensive: %s", doc.Stats.MostExpensive.Label()))
		pdf.Ln(5)
	}
	pdf.Ln(4)

	widths := []float64{45, 55, 45, 45}
	pdf.SetFont("Arial", "B", 10)
	for i, title := range doc.header() {
		pdf.CellFormat(widths[i], 6, title, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 9)
	for _, record := range doc.Rows {
		for i, value := range doc.row(record) {
			align := "L"
			if i == doc.priceColumn() {
				align = "R"
				if price, ok := record.Price.Value(); ok {
					value = doc.money(price)
				}
			}
			pdf.CellFormat(widths[i], 6, truncate(value, 32), "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func truncate(value string, max int) string {
	runes := []rune(value)
	if len(runes) <= max {
		return value
	}
	return string(runes[:max-1]) + "~"
}
