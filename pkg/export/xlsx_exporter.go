package export

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

const (
	weekSheet     = "Week"
	meetingsSheet = "Meetings"
)

// XLSXExporter renders a timetable workbook with a weekly grid sheet and a meeting list sheet.
type XLSXExporter struct{}

// NewXLSXExporter constructs an XLSX exporter.
func NewXLSXExporter() *XLSXExporter {
	return &XLSXExporter{}
}

// Render builds the workbook.
func (e *XLSXExporter) Render(grid WeekGrid, table Table, title string) ([]byte, error) {
	if len(table.Columns) == 0 {
		return nil, fmt.Errorf("render xlsx: %w", errNoColumns)
	}
	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(weekSheet)
	if err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(idx)
	if _, err := f.NewSheet(meetingsSheet); err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("drop default sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#D1D5DB"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}
	clashStyle, err := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#FECACA"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
	})
	if err != nil {
		return nil, fmt.Errorf("clash style: %w", err)
	}

	if err := writeWeekSheet(f, grid, title, headerStyle, clashStyle); err != nil {
		return nil, err
	}
	if err := writeMeetingsSheet(f, table, headerStyle); err != nil {
		return nil, err
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		return nil, fmt.Errorf("write xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

func writeWeekSheet(f *excelize.File, grid WeekGrid, title string, headerStyle, clashStyle int) error {
	row := 1
	if title != "" {
		last, _ := excelize.CoordinatesToCellName(len(grid.Days)+1, 1)
		f.SetCellValue(weekSheet, "A1", title)
		if len(grid.Days) > 0 {
			f.MergeCell(weekSheet, "A1", last)
		}
		f.SetCellStyle(weekSheet, "A1", "A1", headerStyle)
		row = 2
	}

	f.SetColWidth(weekSheet, "A", "A", 10)
	for i, day := range grid.Days {
		name, _ := excelize.CoordinatesToCellName(i+2, row)
		f.SetCellValue(weekSheet, name, day)
		f.SetCellStyle(weekSheet, name, name, headerStyle)
		col, _ := excelize.ColumnNumberToName(i + 2)
		f.SetColWidth(weekSheet, col, col, 20)
	}

	for i, slot := range grid.Slots {
		r := row + 1 + i
		name, _ := excelize.CoordinatesToCellName(1, r)
		f.SetCellValue(weekSheet, name, slot)
		for j := range grid.Days {
			text := grid.Cells[i][j]
			if text == "" {
				continue
			}
			cellName, _ := excelize.CoordinatesToCellName(j+2, r)
			if err := f.SetCellValue(weekSheet, cellName, text); err != nil {
				return fmt.Errorf("write week cell: %w", err)
			}
			if grid.Flagged[i][j] {
				f.SetCellStyle(weekSheet, cellName, cellName, clashStyle)
			}
		}
	}
	return nil
}

func writeMeetingsSheet(f *excelize.File, table Table, headerStyle int) error {
	for i, column := range table.Columns {
		name, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(meetingsSheet, name, column)
		f.SetCellStyle(meetingsSheet, name, name, headerStyle)
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(meetingsSheet, col, col, 16)
	}
	for r := range table.Rows {
		for i := range table.Columns {
			name, _ := excelize.CoordinatesToCellName(i+1, r+2)
			if err := f.SetCellValue(meetingsSheet, name, table.cell(r, i)); err != nil {
				return fmt.Errorf("write meeting row: %w", err)
			}
		}
	}
	return nil
}
