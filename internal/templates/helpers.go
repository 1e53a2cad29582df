package templates

import (
	"html/template"
	"strconv"
	"time"

	"github.com/csg33k/freight-reports/internal/dashboard"
	"github.com/csg33k/freight-reports/internal/domain"
	"github.com/csg33k/freight-reports/internal/report"
)

var funcs = template.FuncMap{
	// query strings are built by url.Values and are safe to splice after "?"
	"sortQuery": func(p dashboard.Params, field string) template.URL { return template.URL(p.SortQuery(field)) },
	"pageQuery": func(p dashboard.Params, n int) template.URL { return template.URL(p.With("page", strconv.Itoa(n))) },
	"query":     func(p dashboard.Params) template.URL { return template.URL(p.Values().Encode()) },
	"float":     func(f domain.FlexFloat) float64 { return float64(f) },
	"sortMark":  sortMark,
	"count":     report.FormatCount,
	"total":     report.FormatTotal,
	"money":     report.FormatMoney,
	"sumCell":   sumCell,
	"pages":     pageWindow,
	"stamp":     stamp,
	"filterOptions": func(f dashboard.FilterDef) []string {
		return append([]string{domain.FilterAll}, f.Options...)
	},
	"groupable": groupable,
}

func sortMark(p dashboard.Params, field string) string {
	if p.Sort != field {
		return ""
	}
	if p.Desc {
		return "▼"
	}
	return "▲"
}

// sumCell is the summary text under column i, or "" when it is not summed.
func sumCell(v *report.View, s report.Summary, i int) string {
	if !v.SumColumn(i) {
		return ""
	}
	c := v.Columns[i]
	return report.FormatValue(c, s.Sum(c.Field))
}

// pageWindow lists up to seven page numbers around the current page.
func pageWindow(v *report.View) []int {
	if v.Pages <= 1 {
		return nil
	}
	lo := max(1, v.Page-3)
	hi := min(v.Pages, lo+6)
	lo = max(1, hi-6)
	out := make([]int, 0, hi-lo+1)
	for n := lo; n <= hi; n++ {
		out = append(out, n)
	}
	return out
}

func stamp(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.Local().Format("2006-01-02 15:04")
}

// groupable lists the columns a report can be grouped by. Money and count
// columns make poor groups.
func groupable(cols []report.Column) []report.Column {
	var out []report.Column
	for _, c := range cols {
		if c.Kind != report.Money && c.Kind != report.Count {
			out = append(out, c)
		}
	}
	return out
}
