// Package parse turns raw text payloads into ordered field values.
// Every parser here is tolerant: malformed input yields sparse results,
// never an error, and row caps keep memory bounded.
package parse

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/gaurav-prasanna/tablepipe/core"
)

// CSV tokenizes comma-separated text. The first non-blank record is the
// header row; unnamed header cells get a synthetic col<index> name and
// duplicate names collapse to their first occurrence (the last
// duplicated cell wins in the row). Short records are padded with empty
// strings, long records are truncated. At most core.MaxRows data rows
// are parsed; truncated reports whether input was dropped at the cap.
func CSV(text string) (columns []string, rows []core.Row, truncated bool) {
	text = strings.TrimPrefix(text, "\uFEFF")
	text = strings.ReplaceAll(text, "\r\n", "\n")

	r := csv.NewReader(strings.NewReader(text))
	r.LazyQuotes = true
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, nil, false
	}

	// header[i] -> column name; names deduplicate first-seen.
	names := make([]string, len(header))
	seen := make(map[string]bool, len(header))
	for i, cell := range header {
		name := strings.TrimSpace(cell)
		if name == "" {
			name = fmt.Sprintf("col%d", i)
		}
		names[i] = name
		if !seen[name] {
			seen[name] = true
			columns = append(columns, name)
		}
	}

	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Tolerate anything LazyQuotes could not absorb.
			continue
		}
		if len(rows) >= core.MaxRows {
			truncated = true
			break
		}
		row := make(core.Row, len(columns))
		for i, name := range names {
			if i < len(record) {
				row[name] = record[i]
			} else if _, ok := row[name]; !ok {
				row[name] = ""
			}
		}
		rows = append(rows, row)
	}
	return columns, rows, truncated
}
