// Package clean sanitizes a freshly parsed (columns, rows) pair:
// trimming, numeric coercion, empty-row filtering, value-identity
// deduplication, and sparse-column pruning. Clean is idempotent.
package clean

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/gaurav-prasanna/tablepipe/core"
)

// numericPattern is deliberately loose: anything made only of digits,
// signs, dots, and thousands-separator commas is a coercion candidate.
// Candidates that fail to parse keep their original value.
var numericPattern = regexp.MustCompile(`^[-\d.,]+$`)

// Clean applies the full sanitation pass, driven by the original
// column list. The returned column set is an order-preserving
// subsequence of columns, and every returned row has exactly those
// keys.
func Clean(columns []string, rows []core.Row) ([]string, []core.Row) {
	cleaned := make([]core.Row, 0, len(rows))
	seen := make(map[string]bool, len(rows))

	for _, row := range rows {
		out := make(core.Row, len(columns))
		empty := true
		for _, col := range columns {
			v := Value(row[col])
			out[col] = v
			if !isEmpty(v) {
				empty = false
			}
		}
		if empty {
			continue
		}
		key := fingerprint(columns, out)
		if seen[key] {
			continue
		}
		seen[key] = true
		cleaned = append(cleaned, out)
	}

	kept := make([]string, 0, len(columns))
	for _, col := range columns {
		for _, row := range cleaned {
			if !isEmpty(row[col]) {
				kept = append(kept, col)
				break
			}
		}
	}

	if len(kept) == len(columns) {
		return kept, cleaned
	}
	pruned := make([]core.Row, len(cleaned))
	for i, row := range cleaned {
		out := make(core.Row, len(kept))
		for _, col := range kept {
			out[col] = row[col]
		}
		pruned[i] = out
	}
	return kept, pruned
}

// Value cleans a single cell: strings are trimmed and, when they look
// numeric, coerced to a float with thousands-separator commas
// stripped. Everything else passes through unchanged.
func Value(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	s = strings.TrimSpace(s)
	if !numericPattern.MatchString(s) {
		return s
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil {
		return s
	}
	return f
}

func isEmpty(v any) bool {
	return v == nil || v == ""
}

// fingerprint is a stable serialization of the cleaned row in column
// order, used for structural deduplication.
func fingerprint(columns []string, row core.Row) string {
	vals := make([]any, len(columns))
	for i, col := range columns {
		vals[i] = row[col]
	}
	b, err := json.Marshal(vals)
	if err != nil {
		return ""
	}
	return string(b)
}
