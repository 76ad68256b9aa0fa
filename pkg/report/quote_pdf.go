// Package report renders quote comparisons as PDF documents.
package report

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
)

type QuoteRow struct {
	DealerName  string
	OTDPrice    float64
	MSRP        float64
	ReceivedVia string
	AddOns      []string
	ReceivedAt  time.Time
}

// Comparison is one session's quotes, already sorted best first.
type Comparison struct {
	Vehicle     string
	ZipCode     string
	Rows        []QuoteRow
	GeneratedAt time.Time
}

type Generator interface {
	Generate(c Comparison) ([]byte, error)
}

type PDFGenerator struct{}

func NewPDFGenerator() *PDFGenerator { return &PDFGenerator{} }

func (g *PDFGenerator) Generate(c Comparison) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Quote comparison", false)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, "Out-the-door quote comparison")
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 6, tr(fmt.Sprintf("Vehicle: %s", c.Vehicle)))
	pdf.Ln(6)
	if c.ZipCode != "" {
		pdf.Cell(0, 6, fmt.Sprintf("Search area: %s", c.ZipCode))
		pdf.Ln(6)
	}

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(8, 7, "#", "B", 0, "", false, 0, "")
	pdf.CellFormat(62, 7, "Dealer", "B", 0, "", false, 0, "")
	pdf.CellFormat(28, 7, "OTD price", "B", 0, "R", false, 0, "")
	pdf.CellFormat(28, 7, "MSRP", "B", 0, "R", false, 0, "")
	pdf.CellFormat(28, 7, "Savings", "B", 0, "R", false, 0, "")
	pdf.CellFormat(0, 7, "Source", "B", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	for i, r := range c.Rows {
		if i == 0 {
			pdf.SetFont("Helvetica", "B", 10)
		}
		pdf.CellFormat(8, 6, fmt.Sprintf("%d", i+1), "", 0, "", false, 0, "")
		pdf.CellFormat(62, 6, tr(trim(r.DealerName, 34)), "", 0, "", false, 0, "")
		pdf.CellFormat(28, 6, money(r.OTDPrice), "", 0, "R", false, 0, "")
		pdf.CellFormat(28, 6, money(r.MSRP), "", 0, "R", false, 0, "")
		pdf.CellFormat(28, 6, money(r.MSRP-r.OTDPrice), "", 0, "R", false, 0, "")
		pdf.CellFormat(0, 6, r.ReceivedVia, "", 1, "C", false, 0, "")
		if i == 0 {
			pdf.SetFont("Helvetica", "", 10)
		}
		if len(r.AddOns) > 0 {
			pdf.SetFont("Helvetica", "I", 9)
			pdf.CellFormat(8, 5, "", "", 0, "", false, 0, "")
			pdf.CellFormat(0, 5, tr("Add-ons: "+trim(strings.Join(r.AddOns, ", "), 90)), "", 1, "", false, 0, "")
			pdf.SetFont("Helvetica", "", 10)
		}
	}
	if len(c.Rows) == 0 {
		pdf.Cell(0, 6, "No quotes received yet.")
		pdf.Ln(6)
	}

	generated := c.GeneratedAt
	if generated.IsZero() {
		generated = time.Now()
	}
	pdf.Ln(6)
	pdf.SetFont("Helvetica", "", 8)
	pdf.Cell(0, 5, fmt.Sprintf("Generated %s", generated.Format(time.RFC3339)))

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render quote pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func money(v float64) string {
	if v == 0 {
		return "-"
	}
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	whole := fmt.Sprintf("%.0f", v)
	var out []byte
	for i, ch := range []byte(whole) {
		if i > 0 && (len(whole)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, ch)
	}
	return sign + "$" + string(out)
}

func trim(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "..."
}
