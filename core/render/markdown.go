// Package render — Markdown renderer.
// Emits a GitHub-flavored Markdown table, pipes escaped.
package render

import (
	"strings"

	"github.com/gaurav-prasanna/tablepipe/core"
)

// MarkdownRenderer writes the table as a Markdown table.
type MarkdownRenderer struct{}

// NewMarkdownRenderer creates a MarkdownRenderer.
func NewMarkdownRenderer() *MarkdownRenderer {
	return &MarkdownRenderer{}
}

// Render returns the Markdown table.
func (r *MarkdownRenderer) Render(t core.Table) ([]byte, error) {
	var b strings.Builder
	if t.Name != "" {
		b.WriteString("# " + t.Name + "\n\n")
	}
	if t.SourceURL != "" {
		b.WriteString("Source: " + t.SourceURL + "\n\n")
	}

	writeMarkdownRow(&b, t.Columns, func(col string) string { return col })
	b.WriteByte('|')
	for range t.Columns {
		b.WriteString(" --- |")
	}
	b.WriteByte('\n')
	for _, row := range t.Rows {
		writeMarkdownRow(&b, t.Columns, func(col string) string { return CellText(row[col]) })
	}
	return []byte(b.String()), nil
}

// Extension returns the file extension for Markdown output.
func (r *MarkdownRenderer) Extension() string {
	return ".md"
}

func writeMarkdownRow(b *strings.Builder, columns []string, get func(string) string) {
	b.WriteByte('|')
	for _, col := range columns {
		cell := get(col)
		cell = strings.ReplaceAll(cell, "|", `\|`)
		cell = strings.ReplaceAll(cell, "\n", " ")
		b.WriteString(" " + cell + " |")
	}
	b.WriteByte('\n')
}
