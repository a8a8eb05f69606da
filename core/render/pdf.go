// Package render — PDF renderer.
// Draws the table as a simple grid using gofpdf: bold filled header,
// alternating row fill, long cells truncated to their column width.
package render

import (
	"bytes"

	"github.com/gaurav-prasanna/tablepipe/core"
	"github.com/jung-kurt/gofpdf"
)

// pdfRowCap bounds how many rows a PDF export renders.
const pdfRowCap = 500

// PDFRenderer renders a table as a PDF document.
type PDFRenderer struct{}

// NewPDFRenderer creates a PDFRenderer.
func NewPDFRenderer() *PDFRenderer {
	return &PDFRenderer{}
}

// Render converts the table into PDF bytes.
func (r *PDFRenderer) Render(t core.Table) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()

	if t.Name != "" {
		pdf.SetFont("Helvetica", "B", 16)
		pdf.MultiCell(0, 8, t.Name, "", "L", false)
		pdf.Ln(2)
	}
	if t.SourceURL != "" {
		pdf.SetFont("Helvetica", "I", 9)
		pdf.SetTextColor(100, 100, 100)
		pdf.MultiCell(0, 5, "Source: "+t.SourceURL, "", "L", false)
		pdf.SetTextColor(0, 0, 0)
		pdf.Ln(4)
	}

	if len(t.Columns) == 0 {
		var buf bytes.Buffer
		if err := pdf.Output(&buf); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}

	pageW, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	colW := (pageW - left - right) / float64(len(t.Columns))

	// Header row.
	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	for _, col := range t.Columns {
		pdf.CellFormat(colW, 7, fitCell(pdf, col, colW), "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 8)
	rows := t.Rows
	if len(rows) > pdfRowCap {
		rows = rows[:pdfRowCap]
	}
	for i, row := range rows {
		fill := i%2 == 1
		pdf.SetFillColor(245, 245, 245)
		for _, col := range t.Columns {
			pdf.CellFormat(colW, 6, fitCell(pdf, CellText(row[col]), colW), "1", 0, "L", fill, 0, "")
		}
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Extension returns the file extension for PDF output.
func (r *PDFRenderer) Extension() string {
	return ".pdf"
}

// fitCell truncates a cell string to fit its column width.
func fitCell(pdf *gofpdf.Fpdf, s string, width float64) string {
	const pad = 2.0
	for pdf.GetStringWidth(s) > width-pad && len(s) > 1 {
		s = s[:len(s)-1]
	}
	return s
}
