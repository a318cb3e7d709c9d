package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

const (
	pageWidth  = 190.0
	lineHeight = 6.0
)

// PDFRenderer lays out documents on A4 pages.
type PDFRenderer struct{}

// NewPDFRenderer constructs a PDF renderer.
func NewPDFRenderer() *PDFRenderer {
	return &PDFRenderer{}
}

// Render draws the title, every table and every text block in order.
// Text is encoded as cp1252, so characters outside it are replaced.
func (r *PDFRenderer) Render(doc Document) ([]byte, error) {
	for _, table := range doc.Tables {
		if err := table.validate(); err != nil {
			return nil, err
		}
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.SetAutoPageBreak(true, 15)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	if doc.Title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, tr(doc.Title), "", 1, "C", false, 0, "")
	}
	if doc.Subtitle != "" {
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(0, lineHeight, tr(doc.Subtitle), "", 1, "C", false, 0, "")
	}
	pdf.Ln(4)

	for _, table := range doc.Tables {
		if table.Caption != "" {
			pdf.SetFont("Arial", "B", 11)
			pdf.CellFormat(0, 8, tr(table.Caption), "", 1, "L", false, 0, "")
		}
		colWidth := pageWidth / float64(len(table.Headers))
		pdf.SetFont("Arial", "B", 9)
		for _, header := range table.Headers {
			pdf.CellFormat(colWidth, 7, tr(header), "1", 0, "C", false, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", 9)
		for _, row := range table.Rows {
			for _, cell := range row {
				pdf.CellFormat(colWidth, 7, tr(cell), "1", 0, "", false, 0, "")
			}
			pdf.Ln(-1)
		}
		pdf.Ln(4)
	}

	for _, block := range doc.Blocks {
		if block.Heading != "" {
			pdf.SetFont("Arial", "B", 11)
			pdf.MultiCell(0, 7, tr(block.Heading), "", "L", false)
		}
		pdf.SetFont("Arial", "", 10)
		for _, line := range block.Lines {
			pdf.MultiCell(0, lineHeight, tr(line), "", "L", false)
		}
		pdf.Ln(3)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
