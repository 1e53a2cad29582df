package dashboard

import (
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/csg33k/freight-reports/internal/domain"
	"github.com/csg33k/freight-reports/internal/report"
)

// Params is the toolbar state of a report page.
type Params struct {
	Filters  map[string]string // filter name -> chosen option or "All"
	Search   string
	GroupBy  string
	Sort     string
	Desc     bool
	Page     int
	PageSize int
	Selected []string // record keys; restricts exports
}

// ParseParams reads toolbar state from a query string. Unknown filter
// options, columns and page sizes fall back to the report's defaults.
func ParseParams(d *Definition, v url.Values) Params {
	p := Params{
		Filters:  make(map[string]string, len(d.Filters)),
		Search:   strings.TrimSpace(v.Get("q")),
		Page:     1,
		PageSize: d.DefaultPageSize(),
	}
	for _, f := range d.Filters {
		val := v.Get(f.Name)
		if val != domain.FilterAll && !slices.Contains(f.Options, val) {
			val = f.Default
		}
		if val == "" {
			val = domain.FilterAll
		}
		p.Filters[f.Name] = val
	}
	if g := v.Get("group"); g != "" {
		if _, ok := report.Find(d.Columns, g); ok {
			p.GroupBy = g
		}
	}
	if s := v.Get("sort"); s != "" {
		if _, ok := report.Find(d.Columns, s); ok {
			p.Sort = s
			p.Desc = v.Get("dir") == "desc"
		}
	}
	if n, err := strconv.Atoi(v.Get("page")); err == nil && n > 0 {
		p.Page = n
	}
	if raw := v.Get("size"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && slices.Contains(d.PageSizes, n) {
			p.PageSize = n
		}
	}
	for _, s := range v["selected"] {
		for _, k := range strings.Split(s, ",") {
			if k = strings.TrimSpace(k); k != "" {
				p.Selected = append(p.Selected, k)
			}
		}
	}
	return p
}

// Values encodes p back into a query string; defaults are left out.
func (p Params) Values() url.Values {
	v := url.Values{}
	for name, val := range p.Filters {
		v.Set(name, val)
	}
	if p.Search != "" {
		v.Set("q", p.Search)
	}
	if p.GroupBy != "" {
		v.Set("group", p.GroupBy)
	}
	if p.Sort != "" {
		v.Set("sort", p.Sort)
		if p.Desc {
			v.Set("dir", "desc")
		}
	}
	if p.Page > 1 {
		v.Set("page", strconv.Itoa(p.Page))
	}
	v.Set("size", strconv.Itoa(p.PageSize))
	return v
}

// With returns a copy of p with one query parameter replaced, for pager and
// sort links.
func (p Params) With(key, value string) string {
	v := p.Values()
	v.Set(key, value)
	if key != "page" {
		v.Del("page")
	}
	return v.Encode()
}

// query builds the backend query from the fixed parameters and server filters.
func (d *Definition) query(p Params) domain.Query {
	q := d.Query
	for _, f := range d.Filters {
		if f.Server == nil {
			continue
		}
		if val := p.Filters[f.Name]; val != "" && val != domain.FilterAll {
			f.Server(&q, val)
		}
	}
	return q
}

// options builds the engine options for p.
func (d *Definition) options(p Params) report.Options {
	opt := report.Options{
		Title:      d.Title,
		Columns:    d.Columns,
		Search:     p.Search,
		GroupBy:    p.GroupBy,
		GroupOrder: d.GroupOrder,
		SumFields:  d.SumFields,
		CountLabel: d.CountLabel,
		Page:       p.Page,
		PageSize:   p.PageSize,
		Highlight:  d.Highlight,
	}
	for _, f := range d.Filters {
		if f.Client == nil {
			continue
		}
		if val := p.Filters[f.Name]; val != "" && val != domain.FilterAll {
			opt.Filters = append(opt.Filters, f.Client(val)...)
		}
	}
	if p.Sort != "" {
		opt.Sort = append(opt.Sort, report.SortKey{Field: p.Sort, Desc: p.Desc})
	}
	for _, k := range d.Sort {
		if k.Field != p.Sort {
			opt.Sort = append(opt.Sort, k)
		}
	}
	if len(p.Selected) > 0 {
		opt.Selected = make(map[string]bool, len(p.Selected))
		for _, k := range p.Selected {
			opt.Selected[k] = true
		}
	}
	return opt
}

// SortQuery is the query string for clicking a column header: ascending
// first, descending on a second click.
func (p Params) SortQuery(field string) string {
	v := p.Values()
	v.Set("sort", field)
	if p.Sort == field && !p.Desc {
		v.Set("dir", "desc")
	} else {
		v.Del("dir")
	}
	v.Del("page")
	return v.Encode()
}
