// Package xlsx renders a report view as an Excel workbook.
package xlsx

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/csg33k/freight-reports/internal/domain"
	"github.com/csg33k/freight-reports/internal/ports"
	"github.com/csg33k/freight-reports/internal/report"
)

var _ ports.Exporter = (*Exporter)(nil)

const (
	moneyFormat = "$#,##0.00"
	dateFormat  = "yyyy-mm-dd"

	// InvoicesSheet holds the per-invoice lines of detailed client invoice exports.
	InvoicesSheet = "Invoices"
)

type Exporter struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{logger: logger}
}

func (e *Exporter) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

func (e *Exporter) Extension() string { return ".xlsx" }

type styles struct {
	header, group, summary, total, highlight int
	money, date                              int
	moneyBold, moneyHighlight, dateHighlight int
}

// Export writes one sheet named after the report. Group header and summary
// rows are interleaved with the data when the view is grouped, and a total
// row closes the sheet.
func (e *Exporter) Export(ctx context.Context, v *report.View, w io.Writer) error {
	start := time.Now()

	f := excelize.NewFile()
	defer f.Close()

	sheet := SheetName(v.Title)
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	st, err := newStyles(f)
	if err != nil {
		return err
	}

	cols := v.Columns
	if len(cols) == 0 {
		return fmt.Errorf("xlsx: view %q has no columns", v.Title)
	}
	lastCol, _ := excelize.ColumnNumberToName(len(cols))

	for i, c := range cols {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, c.Caption)
		name, _ := excelize.ColumnNumberToName(i + 1)
		_ = f.SetColWidth(sheet, name, name, width(c))
	}
	_ = f.SetCellStyle(sheet, "A1", lastCol+"1", st.header)
	_ = f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})

	row := 2
	rows := 0
	for _, g := range v.Groups {
		if err := ctx.Err(); err != nil {
			return err
		}
		if v.Grouped() {
			first, _ := excelize.CoordinatesToCellName(1, row)
			last, _ := excelize.CoordinatesToCellName(len(cols), row)
			_ = f.SetCellValue(sheet, first, fmt.Sprintf("%s: %s", v.GroupCaption, g.Key))
			_ = f.MergeCell(sheet, first, last)
			_ = f.SetCellStyle(sheet, first, last, st.group)
			row++
		}
		for _, r := range g.Rows {
			writeRow(f, sheet, row, cols, r, st)
			row++
			rows++
		}
		if v.Grouped() {
			writeSummary(f, sheet, row, v, g.Summary, st.summary, st.moneyBold)
			row++
		}
	}
	lastData := row - 1
	if lastData > 1 {
		_ = f.AutoFilter(sheet, "A1:"+lastCol+fmt.Sprint(lastData), nil)
	}
	writeSummary(f, sheet, row, v, v.Total, st.total, st.moneyBold)

	if lines := invoiceLines(v); len(lines) > 0 {
		if err := writeInvoices(f, lines, st); err != nil {
			return err
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("xlsx write: %w", err)
	}

	e.logger.Info("export.xlsx.ok",
		"report", v.Title,
		"rows", rows,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, cols []report.Column, r report.Row, st styles) {
	for i, c := range cols {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		_ = f.SetCellValue(sheet, cell, cellValue(c, r.Record.Value(c.Field), r.Cells[i]))
		if style := cellStyle(c, r.Highlight, st); style != 0 {
			_ = f.SetCellStyle(sheet, cell, cell, style)
		}
	}
}

// cellValue keeps numbers and dates typed so the sheet can sort and sum them.
// Everything else is written as the on-screen text.
func cellValue(c report.Column, raw any, text string) any {
	switch c.Kind {
	case report.Money, report.Count:
		if _, ok := raw.(string); !ok && raw != nil {
			return raw
		}
	case report.Date:
		if t, ok := raw.(time.Time); ok {
			if t.IsZero() {
				return ""
			}
			return t
		}
	}
	return text
}

func cellStyle(c report.Column, highlight bool, st styles) int {
	switch {
	case c.Kind == report.Money && highlight:
		return st.moneyHighlight
	case c.Kind == report.Money:
		return st.money
	case c.Kind == report.Date && highlight:
		return st.dateHighlight
	case c.Kind == report.Date:
		return st.date
	case highlight:
		return st.highlight
	}
	return 0
}

func writeSummary(f *excelize.File, sheet string, row int, v *report.View, s report.Summary, style, moneyStyle int) {
	first, _ := excelize.CoordinatesToCellName(1, row)
	last, _ := excelize.CoordinatesToCellName(len(v.Columns), row)
	_ = f.SetCellStyle(sheet, first, last, style)
	_ = f.SetCellValue(sheet, first, report.FormatCount(s.Count, v.CountLabel))
	for i, c := range v.Columns {
		if !v.SumColumn(i) {
			continue
		}
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		_ = f.SetCellValue(sheet, cell, s.Sum(c.Field))
		if c.Kind == report.Money {
			_ = f.SetCellStyle(sheet, cell, cell, moneyStyle)
		}
	}
}

// invoiceLines collects the embedded invoices of a client invoice view.
func invoiceLines(v *report.View) []domain.InvoiceDetail {
	var out []domain.InvoiceDetail
	for _, r := range v.Rows() {
		ci, ok := r.Record.(domain.ClientInvoice)
		if !ok {
			continue
		}
		for _, d := range ci.Invoices {
			if d.JobNo == "" {
				d.JobNo = ci.JobNo
			}
			out = append(out, d)
		}
	}
	return out
}

var invoiceHeaders = []struct {
	caption string
	width   float64
}{
	{"Job No", 12},
	{"Invoice No", 16},
	{"Invoice Date", 13},
	{"Due Date", 13},
	{"Currency", 10},
	{"Total Amount", 15},
	{"Total Received", 15},
	{"Total Due", 15},
}

func writeInvoices(f *excelize.File, lines []domain.InvoiceDetail, st styles) error {
	if _, err := f.NewSheet(InvoicesSheet); err != nil {
		return fmt.Errorf("new sheet: %w", err)
	}
	for i, h := range invoiceHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(InvoicesSheet, cell, h.caption)
		name, _ := excelize.ColumnNumberToName(i + 1)
		_ = f.SetColWidth(InvoicesSheet, name, name, h.width)
	}
	_ = f.SetCellStyle(InvoicesSheet, "A1", "H1", st.header)

	for n, d := range lines {
		row := n + 2
		values := []any{
			string(d.JobNo),
			string(d.InvoiceNo),
			dateOrBlank(d.InvoiceDate),
			dateOrBlank(d.DueDate),
			d.CurrencyLabel(),
			d.Amount(),
			float64(d.TotalReceived),
			float64(d.TotalDue),
		}
		for i, val := range values {
			cell, _ := excelize.CoordinatesToCellName(i+1, row)
			_ = f.SetCellValue(InvoicesSheet, cell, val)
		}
		first, _ := excelize.CoordinatesToCellName(3, row)
		last, _ := excelize.CoordinatesToCellName(4, row)
		_ = f.SetCellStyle(InvoicesSheet, first, last, st.date)
		first, _ = excelize.CoordinatesToCellName(6, row)
		last, _ = excelize.CoordinatesToCellName(8, row)
		_ = f.SetCellStyle(InvoicesSheet, first, last, st.money)
	}
	return f.AutoFilter(InvoicesSheet, fmt.Sprintf("A1:H%d", len(lines)+1), nil)
}

func dateOrBlank(d domain.Date) any {
	if d.IsZero() {
		return ""
	}
	return d.Time
}

func newStyles(f *excelize.File) (styles, error) {
	money, date := moneyFormat, dateFormat
	var st styles
	defs := []struct {
		dst   *int
		style *excelize.Style
	}{
		{&st.header, &excelize.Style{
			Font:      &excelize.Font{Bold: true, Color: "#FFFFFF"},
			Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#1E1E1E"}},
			Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		}},
		{&st.group, &excelize.Style{
			Font: &excelize.Font{Bold: true},
			Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#EBEBEB"}},
		}},
		{&st.summary, &excelize.Style{
			Font: &excelize.Font{Bold: true, Italic: true},
			Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#F5F5F5"}},
		}},
		{&st.total, &excelize.Style{
			Font:   &excelize.Font{Bold: true},
			Fill:   excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D7D7D7"}},
			Border: []excelize.Border{{Type: "top", Color: "#1E1E1E", Style: 2}},
		}},
		{&st.highlight, &excelize.Style{
			Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#FFECC8"}},
		}},
		{&st.money, &excelize.Style{CustomNumFmt: &money}},
		{&st.date, &excelize.Style{CustomNumFmt: &date}},
		{&st.moneyBold, &excelize.Style{Font: &excelize.Font{Bold: true}, CustomNumFmt: &money}},
		{&st.moneyHighlight, &excelize.Style{
			Fill:         excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#FFECC8"}},
			CustomNumFmt: &money,
		}},
		{&st.dateHighlight, &excelize.Style{
			Fill:         excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#FFECC8"}},
			CustomNumFmt: &date,
		}},
	}
	for _, d := range defs {
		id, err := f.NewStyle(d.style)
		if err != nil {
			return st, fmt.Errorf("xlsx style: %w", err)
		}
		*d.dst = id
	}
	return st, nil
}

func width(c report.Column) float64 {
	if c.Width > 0 {
		return c.Width + 2
	}
	return 14
}

// SheetName makes title usable as a worksheet name.
func SheetName(title string) string {
	name := strings.Map(func(r rune) rune {
		if strings.ContainsRune(`[]:*?/\`, r) {
			return '-'
		}
		return r
	}, strings.TrimSpace(title))
	if name == "" {
		name = "Report"
	}
	if r := []rune(name); len(r) > 31 {
		name = string(r[:31])
	}
	return name
}
