package report

import (
	"sort"
	"strings"
	"time"

	"github.com/csg33k/freight-reports/internal/domain"
)

// Filter keeps records whose Field equals Value. Filters combine with AND.
type Filter struct {
	Field string
	Value any
}

// SortKey orders rows by one field.
type SortKey struct {
	Field string
	Desc  bool
}

// GroupOrder decides the order groups appear in.
type GroupOrder int

const (
	GroupsByKey GroupOrder = iota
	GroupsByCountDesc
)

// BlankGroup labels the group of records with an empty grouping value.
const BlankGroup = "(blank)"

// Options is everything Build needs to lay a report out.
type Options struct {
	Title      string
	Columns    []Column
	Filters    []Filter
	Search     string
	Sort       []SortKey
	GroupBy    string
	GroupOrder GroupOrder
	SumFields  []string
	CountLabel string

	// Page is 1-based; PageSize 0 puts every row on one page.
	Page     int
	PageSize int

	// Selected, when non-empty, restricts the rows to these record keys.
	Selected map[string]bool

	Highlight func(domain.Record) bool
}

// Summary is a count plus per-field sums.
type Summary struct {
	Count int
	Sums  map[string]float64
}

func (s Summary) Sum(field string) float64 { return s.Sums[field] }

func (s *Summary) add(r domain.Record, fields []string) {
	s.Count++
	if s.Sums == nil {
		s.Sums = make(map[string]float64, len(fields))
	}
	for _, f := range fields {
		if v, ok := toFloat(r.Value(f)); ok {
			s.Sums[f] += v
		}
	}
}

// Row is one rendered record.
type Row struct {
	Key       string
	Record    domain.Record
	Cells     []string
	Highlight bool
}

// Group is a run of rows sharing the grouping value. Its Summary covers every
// filtered record in the group, not only the rows on the current page.
type Group struct {
	Key     string
	Rows    []Row
	Summary Summary
}

// View is a laid-out report page.
type View struct {
	Title        string
	Columns      []Column // visible columns, matching Row.Cells
	GroupBy      string
	GroupCaption string
	Groups       []Group
	Total        Summary
	SumFields    []string
	CountLabel   string

	Page      int
	PageSize  int
	Pages     int
	TotalRows int
}

// Grouped reports whether rows are split into groups.
func (v *View) Grouped() bool { return v.GroupBy != "" }

// Rows returns the page rows in display order.
func (v *View) Rows() []Row {
	var out []Row
	for _, g := range v.Groups {
		out = append(out, g.Rows...)
	}
	return out
}

// SumColumn reports whether the visible column at index i carries a summary.
func (v *View) SumColumn(i int) bool {
	if i < 0 || i >= len(v.Columns) {
		return false
	}
	for _, f := range v.SumFields {
		if f == v.Columns[i].Field {
			return true
		}
	}
	return false
}

// Build filters, sorts, groups and pages records according to opt.
func Build(records []domain.Record, opt Options) *View {
	visible := Visible(opt.Columns)
	v := &View{
		Title:      opt.Title,
		Columns:    visible,
		GroupBy:    opt.GroupBy,
		SumFields:  opt.SumFields,
		CountLabel: opt.CountLabel,
		Total:      Summary{Sums: map[string]float64{}},
	}

	rows := make([]domain.Record, 0, len(records))
	for _, r := range records {
		if !keep(r, opt, visible) {
			continue
		}
		rows = append(rows, r)
		v.Total.add(r, opt.SumFields)
	}
	v.TotalRows = len(rows)

	var groupCol Column
	groupKey := func(domain.Record) string { return "" }
	groupRank := map[string]int{}
	groupSums := map[string]*Summary{}
	if opt.GroupBy != "" {
		col, ok := Find(opt.Columns, opt.GroupBy)
		if !ok {
			col = Column{Field: opt.GroupBy, Caption: opt.GroupBy}
		}
		groupCol = col
		v.GroupCaption = col.Caption
		groupKey = func(r domain.Record) string {
			k := FormatValue(groupCol, r.Value(groupCol.Field))
			if k == "" {
				return BlankGroup
			}
			return k
		}
		sample := map[string]any{}
		for _, r := range rows {
			k := groupKey(r)
			s, ok := groupSums[k]
			if !ok {
				s = &Summary{}
				groupSums[k] = s
				sample[k] = r.Value(groupCol.Field)
			}
			s.add(r, opt.SumFields)
		}
		keys := make([]string, 0, len(groupSums))
		for k := range groupSums {
			keys = append(keys, k)
		}
		sort.SliceStable(keys, func(i, j int) bool {
			a, b := keys[i], keys[j]
			if opt.GroupOrder == GroupsByCountDesc {
				if ca, cb := groupSums[a].Count, groupSums[b].Count; ca != cb {
					return ca > cb
				}
			}
			if c := compare(groupCol.Kind, sample[a], sample[b]); c != 0 {
				return c < 0
			}
			return a < b
		})
		for i, k := range keys {
			groupRank[k] = i
		}
	}

	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if opt.GroupBy != "" {
			if ra, rb := groupRank[groupKey(a)], groupRank[groupKey(b)]; ra != rb {
				return ra < rb
			}
		}
		for _, k := range opt.Sort {
			col, _ := Find(opt.Columns, k.Field)
			c := compare(col.Kind, a.Value(k.Field), b.Value(k.Field))
			if c == 0 {
				continue
			}
			if k.Desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})

	v.PageSize = opt.PageSize
	v.Pages = 1
	v.Page = 1
	pageRows := rows
	if opt.PageSize > 0 {
		v.Pages = (len(rows) + opt.PageSize - 1) / opt.PageSize
		if v.Pages == 0 {
			v.Pages = 1
		}
		v.Page = min(max(opt.Page, 1), v.Pages)
		start := (v.Page - 1) * opt.PageSize
		end := min(start+opt.PageSize, len(rows))
		pageRows = rows[start:end]
	}

	for _, r := range pageRows {
		k := groupKey(r)
		if len(v.Groups) == 0 || v.Groups[len(v.Groups)-1].Key != k {
			g := Group{Key: k}
			if s, ok := groupSums[k]; ok {
				g.Summary = *s
			} else {
				g.Summary = v.Total
			}
			v.Groups = append(v.Groups, g)
		}
		g := &v.Groups[len(v.Groups)-1]
		g.Rows = append(g.Rows, renderRow(r, visible, opt.Highlight))
	}
	return v
}

func keep(r domain.Record, opt Options, visible []Column) bool {
	if len(opt.Selected) > 0 && !opt.Selected[r.Key()] {
		return false
	}
	for _, f := range opt.Filters {
		if !equal(r.Value(f.Field), f.Value) {
			return false
		}
	}
	if q := strings.TrimSpace(opt.Search); q != "" {
		q = strings.ToLower(q)
		for _, c := range visible {
			if strings.Contains(strings.ToLower(FormatValue(c, r.Value(c.Field))), q) {
				return true
			}
		}
		return false
	}
	return true
}

func renderRow(r domain.Record, cols []Column, highlight func(domain.Record) bool) Row {
	row := Row{Key: r.Key(), Record: r, Cells: make([]string, len(cols))}
	for i, c := range cols {
		row.Cells[i] = FormatValue(c, r.Value(c.Field))
	}
	if highlight != nil {
		row.Highlight = highlight(r)
	}
	return row
}

// Field is one caption/value pair of the detail panel.
type Field struct {
	Caption string
	Text    string
}

// Detail renders every column of r, hidden ones included, skipping blanks.
func Detail(r domain.Record, cols []Column) []Field {
	out := make([]Field, 0, len(cols))
	for _, c := range cols {
		text := FormatValue(c, r.Value(c.Field))
		if text == "" {
			continue
		}
		out = append(out, Field{Caption: c.Caption, Text: text})
	}
	return out
}

func equal(a, b any) bool {
	switch bv := b.(type) {
	case bool:
		av, ok := a.(bool)
		return ok && av == bv
	case string:
		if as, ok := a.(string); ok {
			return strings.EqualFold(strings.TrimSpace(as), strings.TrimSpace(bv))
		}
	}
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		return af == bf
	}
	return FormatValue(Column{}, a) == FormatValue(Column{}, b)
}

// compare orders two values of the given kind; it returns -1, 0 or 1.
func compare(kind Kind, a, b any) int {
	switch kind {
	case Number, Money, Count:
		af, aok := toFloat(a)
		bf, bok := toFloat(b)
		if aok && bok {
			return cmpOrdered(af, bf)
		}
	case Date:
		at, _ := a.(time.Time)
		bt, _ := b.(time.Time)
		return at.Compare(bt)
	case Bool:
		af, _ := toFloat(a)
		bf, _ := toFloat(b)
		return cmpOrdered(af, bf)
	}
	as := strings.ToLower(FormatValue(Column{}, a))
	bs := strings.ToLower(FormatValue(Column{}, b))
	return strings.Compare(as, bs)
}

func cmpOrdered(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
