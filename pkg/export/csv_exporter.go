package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
)

var errNoColumns = errors.New("table has no columns")

// Table is the ordered meeting list shared by the tabular formats.
type Table struct {
	Columns []string
	Rows    [][]string
}

// NewTable starts a table with the given column titles.
func NewTable(columns ...string) Table {
	return Table{Columns: append([]string(nil), columns...)}
}

// Append adds a row, padding or truncating it to the column count.
func (t *Table) Append(values ...string) {
	row := make([]string, len(t.Columns))
	copy(row, values)
	t.Rows = append(t.Rows, row)
}

func (t Table) cell(row, col int) string {
	if row >= len(t.Rows) || col >= len(t.Rows[row]) {
		return ""
	}
	return t.Rows[row][col]
}

// CSVExporter writes a Table as comma separated values.
type CSVExporter struct {
	// BOM prefixes a UTF-8 byte order mark for spreadsheet imports.
	BOM bool
	// CRLF terminates records with \r\n.
	CRLF bool
}

// NewCSVExporter builds an exporter suited to spreadsheet imports.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{BOM: true}
}

// Render encodes the table, header row first.
func (e *CSVExporter) Render(table Table) ([]byte, error) {
	if len(table.Columns) == 0 {
		return nil, fmt.Errorf("render csv: %w", errNoColumns)
	}
	buf := &bytes.Buffer{}
	if e.BOM {
		buf.WriteString("\ufeff")
	}
	writer := csv.NewWriter(buf)
	writer.UseCRLF = e.CRLF
	records := make([][]string, 0, len(table.Rows)+1)
	records = append(records, table.Columns)
	for i := range table.Rows {
		record := make([]string, len(table.Columns))
		for j := range table.Columns {
			record[j] = table.cell(i, j)
		}
		records = append(records, record)
	}
	if err := writer.WriteAll(records); err != nil {
		return nil, fmt.Errorf("render csv: %w", err)
	}
	return buf.Bytes(), nil
}
