// Package pdf renders a report view as a landscape table: a dark header bar
// with the report title, the column header repeated on every page, group
// header and summary rows, and a closing total row.
package pdf

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/csg33k/freight-reports/internal/ports"
	"github.com/csg33k/freight-reports/internal/report"
)

var _ ports.Exporter = (*Exporter)(nil)

const (
	rowH      = 6
	fontSize  = 7.5
	defaultW  = 12
	headFill  = 30
	groupFill = 235
)

type Exporter struct {
	now func() time.Time
}

func New() *Exporter { return &Exporter{now: time.Now} }

func (e *Exporter) ContentType() string { return "application/pdf" }
func (e *Exporter) Extension() string   { return ".pdf" }

// Export writes v as a multi-page PDF to w.
func (e *Exporter) Export(ctx context.Context, v *report.View, w io.Writer) error {
	pdf := fpdf.New("L", "mm", "Letter", "")
	pdf.SetMargins(12, 12, 12)
	pdf.SetAutoPageBreak(true, 14)
	pdf.AliasNbPages("{nb}")
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pageW, _ := pdf.GetPageSize()
	marginL, _, marginR, _ := pdf.GetMargins()
	contentW := pageW - marginL - marginR
	widths := columnWidths(v.Columns, contentW)
	generated := e.now().Format("2006-01-02 15:04")

	pdf.SetHeaderFunc(func() {
		drawHeader(pdf, tr, v, widths, contentW)
	})
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Helvetica", "I", 7)
		pdf.SetTextColor(130, 130, 130)
		pdf.CellFormat(contentW/2, 5, "Generated "+generated, "", 0, "L", false, 0, "")
		pdf.CellFormat(contentW/2, 5, tr(report.FormatCount(v.TotalRows, v.CountLabel)), "", 0, "R", false, 0, "")
		pdf.SetTextColor(0, 0, 0)
	})

	pdf.AddPage()

	// ── Rows ─────────────────────────────────────────────────────────────────
	n := 0
	for _, g := range v.Groups {
		if err := ctx.Err(); err != nil {
			return err
		}
		if v.Grouped() {
			pdf.SetFillColor(groupFill, groupFill, groupFill)
			pdf.SetFont("Helvetica", "B", fontSize)
			label := fmt.Sprintf("%s: %s", v.GroupCaption, g.Key)
			pdf.CellFormat(contentW, rowH, tr(label), "1", 1, "L", true, 0, "")
		}
		for _, r := range g.Rows {
			switch {
			case r.Highlight:
				pdf.SetFillColor(255, 236, 200)
			case n%2 == 0:
				pdf.SetFillColor(250, 250, 250)
			default:
				pdf.SetFillColor(255, 255, 255)
			}
			pdf.SetFont("Helvetica", "", fontSize)
			for i, c := range v.Columns {
				text := fit(pdf, tr(r.Cells[i]), widths[i])
				pdf.CellFormat(widths[i], rowH, text, "1", 0, align(c), true, 0, "")
			}
			pdf.Ln(-1)
			n++
		}
		if v.Grouped() {
			drawSummary(pdf, tr, v, widths, g.Summary, groupFill)
		}
	}

	// ── Total ────────────────────────────────────────────────────────────────
	drawSummary(pdf, tr, v, widths, v.Total, 215)

	return pdf.Output(w)
}

func drawHeader(pdf *fpdf.Fpdf, tr func(string) string, v *report.View, widths []float64, contentW float64) {
	marginL, marginT, _, _ := pdf.GetMargins()

	pdf.SetFillColor(headFill, headFill, headFill)
	pdf.Rect(marginL, marginT, contentW, 10, "F")
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Helvetica", "B", 11)
	pdf.SetXY(marginL+2, marginT+1.5)
	pdf.CellFormat(contentW-40, 7, tr(v.Title), "", 0, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(36, 7, "Page "+fmt.Sprint(pdf.PageNo())+" of {nb}", "", 1, "R", false, 0, "")

	pdf.SetXY(marginL, marginT+13)
	pdf.SetFont("Helvetica", "B", fontSize)
	for i, c := range v.Columns {
		pdf.CellFormat(widths[i], 7, fit(pdf, tr(c.Caption), widths[i]), "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetTextColor(0, 0, 0)
}

// drawSummary writes a count in the first column and sums under their columns.
func drawSummary(pdf *fpdf.Fpdf, tr func(string) string, v *report.View, widths []float64, s report.Summary, fill int) {
	pdf.SetFillColor(fill, fill, fill)
	pdf.SetFont("Helvetica", "B", fontSize)
	for i, c := range v.Columns {
		text := ""
		switch {
		case v.SumColumn(i):
			text = report.FormatTotal(s.Sum(c.Field))
		case i == 0:
			text = report.FormatCount(s.Count, v.CountLabel)
		}
		pdf.CellFormat(widths[i], rowH, fit(pdf, tr(text), widths[i]), "1", 0, align(c), true, 0, "")
	}
	pdf.Ln(-1)
}

// ── Helpers ──────────────────────────────────────────────────────────────────

func columnWidths(cols []report.Column, total float64) []float64 {
	if len(cols) == 0 {
		return nil
	}
	sum := 0.0
	for _, c := range cols {
		sum += nominal(c)
	}
	out := make([]float64, len(cols))
	for i, c := range cols {
		out[i] = total * nominal(c) / sum
	}
	return out
}

func nominal(c report.Column) float64 {
	if c.Width > 0 {
		return c.Width
	}
	return defaultW
}

func align(c report.Column) string {
	if c.Numeric() {
		return "R"
	}
	return "L"
}

// fit shortens s until it fits inside a cell of width w.
func fit(pdf *fpdf.Fpdf, s string, w float64) string {
	limit := w - 2*pdf.GetCellMargin()
	if pdf.GetStringWidth(s) <= limit {
		return s
	}
	// s is already single-byte encoded by the translator
	for len(s) > 0 && pdf.GetStringWidth(s+"..") > limit {
		s = s[:len(s)-1]
	}
	return s + ".."
}
