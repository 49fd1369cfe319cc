package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// PDFExporter renders a timetable grid followed by the meeting list.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render creates a landscape PDF with the weekly grid on the first page and the meeting table after it.
func (e *PDFExporter) Render(grid WeekGrid, table Table, title string) ([]byte, error) {
	if len(table.Columns) == 0 {
		return nil, fmt.Errorf("render pdf: %w", errNoColumns)
	}
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 12, 10)
	pdf.AddPage()

	if title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, strings.ToUpper(title), "", 1, "C", false, 0, "")
		pdf.Ln(3)
	}

	if len(grid.Days) > 0 && len(grid.Slots) > 0 {
		renderGrid(pdf, grid)
		pdf.AddPage()
	}

	pdf.SetFont("Arial", "B", 10)
	colWidth := 277.0 / float64(len(table.Columns))
	for _, column := range table.Columns {
		pdf.CellFormat(colWidth, 8, column, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	for i := range table.Rows {
		for j := range table.Columns {
			pdf.CellFormat(colWidth, 7, table.cell(i, j), "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func renderGrid(pdf *gofpdf.Fpdf, grid WeekGrid) {
	const timeWidth = 18.0
	dayWidth := (277.0 - timeWidth) / float64(len(grid.Days))
	rowHeight := 150.0 / float64(len(grid.Slots))
	if rowHeight > 6 {
		rowHeight = 6
	}

	pdf.SetFont("Arial", "B", 9)
	pdf.CellFormat(timeWidth, 7, "", "1", 0, "C", false, 0, "")
	for _, day := range grid.Days {
		pdf.CellFormat(dayWidth, 7, day, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 7)
	for i, slot := range grid.Slots {
		pdf.CellFormat(timeWidth, rowHeight, slot, "1", 0, "C", false, 0, "")
		for j := range grid.Days {
			fill := grid.Flagged[i][j]
			if fill {
				pdf.SetFillColor(254, 202, 202)
			}
			pdf.CellFormat(dayWidth, rowHeight, grid.Cells[i][j], "1", 0, "C", fill, 0, "")
		}
		pdf.Ln(-1)
	}
}
