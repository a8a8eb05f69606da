// Package render provides export renderers for the normalized table.
// This file implements the CSV renderer and the escaping rules it
// shares with the CSV round-trip contract: a cell is quoted (with
// internal quotes doubled) iff it contains a comma, quote, newline, or
// leading whitespace.
package render

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/gaurav-prasanna/tablepipe/core"
)

// CSVRenderer serializes a table as CSV.
type CSVRenderer struct{}

// NewCSVRenderer creates a CSVRenderer.
func NewCSVRenderer() *CSVRenderer {
	return &CSVRenderer{}
}

// Render returns the CSV serialization of the table.
func (r *CSVRenderer) Render(t core.Table) ([]byte, error) {
	return []byte(ToCSV(t.Columns, t.Rows)), nil
}

// Extension returns the file extension for CSV output.
func (r *CSVRenderer) Extension() string {
	return ".csv"
}

// ToCSV serializes (columns, rows) with the header row first and cells
// comma-joined. Nil cells render as empty strings.
func ToCSV(columns []string, rows []core.Row) string {
	var b strings.Builder
	writeRecord(&b, columns, func(col string) any { return col })
	for _, row := range rows {
		writeRecord(&b, columns, func(col string) any { return row[col] })
	}
	return b.String()
}

func writeRecord(b *strings.Builder, columns []string, get func(string) any) {
	for i, col := range columns {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(escapeCell(CellText(get(col))))
	}
	b.WriteByte('\n')
}

// escapeCell quotes a cell only when it needs it. Leading whitespace
// needs quotes too: the tokenizer trims it from unquoted cells.
func escapeCell(s string) string {
	needsQuotes := strings.ContainsAny(s, ",\"\n") ||
		(len(s) > 0 && (s[0] == ' ' || s[0] == '\t'))
	if !needsQuotes {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// CellText renders a cell value for textual output formats.
func CellText(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
