// Package templates renders the dashboard pages. The markup is html/template
// exposed as templ components so handlers render everything the same way.
package templates

import (
	"html/template"

	"github.com/a-h/templ"

	"github.com/csg33k/freight-reports/internal/dashboard"
	"github.com/csg33k/freight-reports/internal/domain"
)

var base = template.Must(template.Must(template.New("base").Funcs(funcs).Parse(layoutSrc)).Parse(gridSrc))

// gridFragment is the grid on its own. A backend notice rides along as an
// out-of-band swap into the page toast.
var gridFragment = template.Must(template.Must(base.Clone()).New("fragment").Parse(
	`{{template "grid" .}}{{if .Notice}}<div id="toast" hx-swap-oob="true">{{template "notice" .}}</div>{{end}}`))

const layoutSrc = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>{{block "title" .}}Freight Reports{{end}}</title>
<script src="https://unpkg.com/htmx.org@1.9.12"></script>
<link rel="preconnect" href="https://fonts.googleapis.com">
<link rel="preconnect" href="https://fonts.gstatic.com" crossorigin>
<link href="https://fonts.googleapis.com/css2?family=IBM+Plex+Mono:wght@400;500;600&family=IBM+Plex+Sans:wght@300;400;500;600&display=swap" rel="stylesheet">
<style>
  :root {
    --ink: #1e1e1e;
    --paper: #f5f0e8;
    --ledger: #e8e0cc;
    --accent: #c0392b;
    --accent2: #2c6e49;
    --muted: #6b5e4e;
    --rule: #b8a898;
    --flag: #ffecc8;
  }
  * { box-sizing: border-box; }
  body { background: var(--paper); color: var(--ink); font-family: 'IBM Plex Sans', sans-serif; margin: 0; }
  .mono { font-family: 'IBM Plex Mono', monospace; }
  .shell { display: grid; grid-template-columns: 220px 1fr; min-height: 100vh; }
  nav { background: var(--ink); color: white; padding: 24px 16px; }
  nav a { display: block; color: #ddd; text-decoration: none; padding: 6px 8px; font-size: 0.85rem; }
  nav a.active, nav a:hover { background: var(--accent); color: white; }
  nav .section { font-family: 'IBM Plex Mono', monospace; font-size: 0.6rem; letter-spacing: 0.18em; color: #999; margin: 18px 0 6px; text-transform: uppercase; }
  main { padding: 24px 32px; overflow-x: auto; }
  h1 { font-family: 'IBM Plex Mono', monospace; font-size: 1.4rem; margin: 0 0 16px; }
  .card { background: rgba(255,255,255,0.7); border: 1px solid var(--ledger); border-left: 4px solid var(--ink); padding: 16px; }
  .toolbar { display: flex; flex-wrap: wrap; gap: 12px; align-items: end; margin-bottom: 12px; }
  .field-label { font-family: 'IBM Plex Mono', monospace; font-size: 0.6rem; font-weight: 600; letter-spacing: 0.1em; text-transform: uppercase; color: var(--muted); display: block; margin-bottom: 2px; }
  input, select { background: white; border: 1px solid var(--rule); border-bottom: 2px solid var(--ink); padding: 5px 8px; font-family: 'IBM Plex Mono', monospace; font-size: 0.8rem; }
  .btn { font-family: 'IBM Plex Mono', monospace; font-weight: 600; font-size: 0.75rem; letter-spacing: 0.08em; padding: 6px 14px; border: 2px solid var(--ink); cursor: pointer; text-transform: uppercase; background: white; color: var(--ink); text-decoration: none; }
  .btn-primary { background: var(--ink); color: white; }
  .btn-primary:hover { background: var(--accent); border-color: var(--accent); }
  .btn-success { background: var(--accent2); color: white; border-color: var(--accent2); }
  table { border-collapse: collapse; width: 100%; font-size: 0.8rem; background: white; }
  th { background: var(--ink); color: white; text-align: left; padding: 6px 8px; white-space: nowrap; }
  th a { color: white; text-decoration: none; }
  td { padding: 4px 8px; border-bottom: 1px solid var(--ledger); white-space: nowrap; }
  td.num, th.num { text-align: right; }
  tr:nth-child(even) td { background: #fafafa; }
  tr.flag td { background: var(--flag); }
  tr.group td { background: var(--ledger); font-weight: 600; }
  tr.summary td { font-style: italic; font-weight: 600; background: #f5f5f5; }
  tr.total td { font-weight: 700; border-top: 2px solid var(--ink); background: #d7d7d7; }
  .notice { border-left: 4px solid var(--accent); background: white; padding: 8px 12px; margin-bottom: 12px; font-size: 0.85rem; }
  .stale { color: var(--accent); font-weight: 600; }
  .meta { font-family: 'IBM Plex Mono', monospace; font-size: 0.7rem; color: var(--muted); }
  .pager { display: flex; gap: 4px; margin-top: 12px; align-items: center; }
  .pager a, .pager span { padding: 2px 8px; border: 1px solid var(--rule); text-decoration: none; color: var(--ink); font-size: 0.75rem; }
  .pager span.current { background: var(--ink); color: white; }
  #detail:empty { display: none; }
  #detail { position: fixed; top: 0; right: 0; width: 380px; height: 100vh; overflow-y: auto; background: white; border-left: 4px solid var(--ink); padding: 20px; box-shadow: -4px 0 12px rgba(0,0,0,0.1); }
  dl { display: grid; grid-template-columns: auto 1fr; gap: 4px 12px; font-size: 0.8rem; }
  dt { font-family: 'IBM Plex Mono', monospace; color: var(--muted); }
  #toast { position: fixed; bottom: 16px; right: 16px; }
  .toast { padding: 10px 16px; color: white; font-size: 0.85rem; }
  .toast.ok { background: var(--accent2); }
  .toast.fail { background: var(--accent); }
  .toast.stale { background: var(--ink); cursor: pointer; }
  .htmx-indicator { opacity: 0; transition: opacity 0.2s; }
  .htmx-request .htmx-indicator, .htmx-request.htmx-indicator { opacity: 1; }
</style>
</head>
<body>
<div class="shell">
<nav>
  <div class="mono" style="font-size:1rem;font-weight:600;margin-bottom:8px;">Freight Reports</div>
  <a href="/" {{if eq .Active ""}}class="active"{{end}}>Overview</a>
  <div class="section">Admin reports</div>
  {{range .Nav}}{{if not .Client}}<a href="/reports/{{.Slug}}" {{if eq .Slug $.Active}}class="active"{{end}}>{{.Title}}</a>{{end}}{{end}}
  <div class="section">Client reports</div>
  {{range .Nav}}{{if .Client}}<a href="/reports/{{.Slug}}" {{if eq .Slug $.Active}}class="active"{{end}}>{{.Title}}</a>{{end}}{{end}}
</nav>
<main>
{{template "content" .}}
</main>
</div>
<div id="detail"></div>
<div id="toast">{{block "toast" .}}{{end}}</div>
</body>
</html>`

var indexTmpl = template.Must(template.Must(base.Clone()).Parse(`
{{define "content"}}
<div style="display:flex;justify-content:space-between;align-items:center;">
  <h1>Overview</h1>
  <button class="btn btn-success" hx-post="/sync" hx-target="#toast" hx-swap="innerHTML">Sync all</button>
</div>
<div style="display:grid;grid-template-columns:repeat(auto-fill,minmax(240px,1fr));gap:16px;margin-bottom:32px;">
{{range .Nav}}
  <a class="card" href="/reports/{{.Slug}}" style="text-decoration:none;color:inherit;">
    <div class="field-label">{{if .Client}}Client report{{else}}Admin report{{end}}</div>
    <div style="font-weight:600;">{{.Title}}</div>
    <div class="meta">{{len .Filters}} filters · {{if .Syncable}}syncable{{else}}read only{{end}}</div>
  </a>
{{end}}
</div>
<div class="field-label">Recent syncs</div>
{{if .Runs}}
<table>
  <tr><th>Resource</th><th>Started</th><th>Result</th><th>Message</th></tr>
  {{range .Runs}}
  <tr>
    <td class="mono">{{.Resource}}</td>
    <td>{{stamp .StartedAt}}</td>
    <td>{{if .OK}}ok{{else}}<span class="stale">failed</span>{{end}}</td>
    <td>{{.Message}}</td>
  </tr>
  {{end}}
</table>
{{else}}
<p class="meta">No syncs recorded yet.</p>
{{end}}
{{end}}`))

var reportTmpl = template.Must(template.Must(base.Clone()).Parse(`
{{define "title"}}{{.Result.Def.Title}} · Freight Reports{{end}}
{{define "content"}}
{{$d := .Result.Def}}{{$p := .Result.Params}}
<div style="display:flex;justify-content:space-between;align-items:center;">
  <h1>{{$d.Title}}</h1>
  <div style="display:flex;gap:8px;">
    {{if $d.Syncable}}
    <button class="btn btn-success" hx-post="/reports/{{$d.Slug}}/sync" hx-target="#toast" hx-swap="innerHTML" hx-indicator="#sync-spin">
      Sync <span id="sync-spin" class="htmx-indicator">…</span>
    </button>
    {{end}}
    <button class="btn" type="submit" form="export" formaction="/reports/{{$d.Slug}}/export.xlsx">Excel</button>
    <button class="btn" type="submit" form="export" formaction="/reports/{{$d.Slug}}/export.pdf">PDF</button>
  </div>
</div>

<form id="toolbar" class="toolbar" action="/reports/{{$d.Slug}}" method="get"
      hx-get="/reports/{{$d.Slug}}/rows" hx-target="#grid" hx-swap="outerHTML"
      hx-trigger="change, keyup changed delay:400ms from:input[name=q]">
  {{range $d.Filters}}{{$f := .}}
  <label><span class="field-label">{{.Label}}</span>
    <select name="{{.Name}}">
      {{range filterOptions $f}}<option value="{{.}}" {{if eq . (index $p.Filters $f.Name)}}selected{{end}}>{{.}}</option>{{end}}
    </select>
  </label>
  {{end}}
  <label><span class="field-label">Search</span>
    <input type="search" name="q" value="{{$p.Search}}" placeholder="Search all columns">
  </label>
  <label><span class="field-label">Group by</span>
    <select name="group">
      <option value="">None</option>
      {{range groupable $d.Columns}}<option value="{{.Field}}" {{if eq .Field $p.GroupBy}}selected{{end}}>{{.Caption}}</option>{{end}}
    </select>
  </label>
  <label><span class="field-label">Rows</span>
    <select name="size">
      {{range $d.PageSizes}}<option value="{{.}}" {{if eq . $p.PageSize}}selected{{end}}>{{if eq . 0}}All{{else}}{{.}}{{end}}</option>{{end}}
    </select>
  </label>
  <noscript><button class="btn btn-primary" type="submit">Apply</button></noscript>
</form>

{{template "grid" .Result}}
{{end}}
{{define "toast"}}{{template "notice" .Result}}{{end}}`))

const gridSrc = `
{{define "notice"}}{{if .Notice}}<div class="toast stale" onclick="this.remove()">Backend error: {{.Notice}}{{if .Stale}} · showing data from {{stamp .FetchedAt}}{{end}}</div>{{end}}{{end}}
{{define "grid"}}
{{$d := .Def}}{{$p := .Params}}{{$v := .View}}
<div id="grid" hx-get="/reports/{{$d.Slug}}/rows?{{query $p}}" hx-trigger="report-refresh from:body" hx-swap="outerHTML">
{{if $p.Sort}}<input type="hidden" form="toolbar" name="sort" value="{{$p.Sort}}">{{if $p.Desc}}<input type="hidden" form="toolbar" name="dir" value="desc">{{end}}{{end}}
<form id="export" method="get">
  {{range $name, $val := $p.Filters}}<input type="hidden" name="{{$name}}" value="{{$val}}">{{end}}
  {{if $p.Search}}<input type="hidden" name="q" value="{{$p.Search}}">{{end}}
  {{if $p.GroupBy}}<input type="hidden" name="group" value="{{$p.GroupBy}}">{{end}}
  {{if $p.Sort}}<input type="hidden" name="sort" value="{{$p.Sort}}">{{if $p.Desc}}<input type="hidden" name="dir" value="desc">{{end}}{{end}}
</form>
<table>
  <thead><tr>
    <th><input type="checkbox" title="Select page" onclick="document.querySelectorAll('input[form=export][name=selected]').forEach(c => c.checked = this.checked)"></th>
    {{range $v.Columns}}<th {{if .Numeric}}class="num"{{end}}><a href="/reports/{{$d.Slug}}?{{sortQuery $p .Field}}" hx-get="/reports/{{$d.Slug}}/rows?{{sortQuery $p .Field}}" hx-target="#grid" hx-swap="outerHTML">{{.Caption}} {{sortMark $p .Field}}</a></th>{{end}}
  </tr></thead>
  <tbody>
  {{range $v.Groups}}{{$g := .}}
    {{if $v.Grouped}}<tr class="group"><td></td><td colspan="{{len $v.Columns}}">{{$v.GroupCaption}}: {{.Key}}</td></tr>{{end}}
    {{range .Rows}}{{$r := .}}
    <tr {{if .Highlight}}class="flag"{{end}}>
      <td><input type="checkbox" form="export" name="selected" value="{{.Key}}"></td>
      {{range $i, $c := $v.Columns}}<td {{if $c.Numeric}}class="num"{{end}}>{{if eq $i 0}}<a href="#" hx-get="/reports/{{$d.Slug}}/records/{{$r.Key}}?{{query $p}}" hx-target="#detail">{{index $r.Cells $i}}</a>{{else}}{{index $r.Cells $i}}{{end}}</td>{{end}}
    </tr>
    {{end}}
    {{if $v.Grouped}}<tr class="summary"><td></td>{{range $i, $c := $v.Columns}}<td {{if $c.Numeric}}class="num"{{end}}>{{if eq $i 0}}{{count $g.Summary.Count $v.CountLabel}}{{else}}{{sumCell $v $g.Summary $i}}{{end}}</td>{{end}}</tr>{{end}}
  {{else}}
    <tr><td colspan="99" class="meta" style="padding:16px;">No rows match.</td></tr>
  {{end}}
  </tbody>
  <tfoot>
    <tr class="total"><td></td>{{range $i, $c := $v.Columns}}<td {{if $c.Numeric}}class="num"{{end}}>{{if eq $i 0}}{{count $v.Total.Count $v.CountLabel}}{{else}}{{sumCell $v $v.Total $i}}{{end}}</td>{{end}}</tr>
  </tfoot>
</table>
<div class="pager">
  {{range pages $v}}
    {{if eq . $v.Page}}<span class="current">{{.}}</span>
    {{else}}<a href="/reports/{{$d.Slug}}?{{pageQuery $p .}}" hx-get="/reports/{{$d.Slug}}/rows?{{pageQuery $p .}}" hx-target="#grid" hx-swap="outerHTML">{{.}}</a>{{end}}
  {{end}}
  <span class="meta" style="border:none;">{{$v.TotalRows}} rows{{if not .FetchedAt.IsZero}} · fetched {{stamp .FetchedAt}}{{if .Stale}} <span class="stale">(stale)</span>{{end}}{{end}}</span>
</div>
</div>
{{end}}`

var recordTmpl = template.Must(template.New("record").Funcs(funcs).Parse(`
<div style="display:flex;justify-content:space-between;align-items:center;">
  <h1 style="font-size:1rem;">{{.Def.Title}} · {{.Key}}</h1>
  <button class="btn" onclick="document.getElementById('detail').innerHTML=''">Close</button>
</div>
{{if .Notice}}<div class="notice">{{.Notice}}</div>{{end}}
<dl>
{{range .Fields}}<dt>{{.Caption}}</dt><dd>{{.Text}}</dd>{{end}}
</dl>
{{if .Invoices}}
<div class="field-label" style="margin-top:16px;">Invoices</div>
<table>
  <tr><th>Invoice</th><th>Date</th><th class="num">Amount</th><th class="num">Due</th></tr>
  {{range .Invoices}}
  <tr>
    <td class="mono">{{.InvoiceNo}}</td>
    <td>{{if not .InvoiceDate.IsZero}}{{.InvoiceDate.Format "2006-01-02"}}{{end}}</td>
    <td class="num">{{.CurrencyLabel}} {{money .Amount}}</td>
    <td class="num">{{money (float .TotalDue)}}</td>
  </tr>
  {{end}}
</table>
{{end}}`))

var toastTmpl = template.Must(template.New("toast").Parse(
	`<div class="toast {{if .OK}}ok{{else}}fail{{end}}" hx-on::load="setTimeout(() => this.remove(), 5000)">{{.Message}}</div>`))

var errorTmpl = template.Must(template.Must(base.Clone()).Parse(`
{{define "content"}}
<h1>{{.Status}}</h1>
<div class="notice">{{.Message}}</div>
<p><a class="btn" href="/">Back to overview</a></p>
{{end}}`))

// ── Components ───────────────────────────────────────────────────────────────

type layout struct {
	Nav    []*dashboard.Definition
	Active string
}

// Index is the overview page with the report list and recent syncs.
func Index(nav []*dashboard.Definition, runs []domain.SyncRun) templ.Component {
	return templ.FromGoHTML(indexTmpl, struct {
		layout
		Runs []domain.SyncRun
	}{layout{Nav: nav}, runs})
}

// Report is a full report page.
func Report(nav []*dashboard.Definition, res *dashboard.Result) templ.Component {
	return templ.FromGoHTML(reportTmpl, struct {
		layout
		Result *dashboard.Result
	}{layout{Nav: nav, Active: res.Def.Slug}, res})
}

// Grid is the table fragment swapped in by toolbar, sort and pager requests.
// It replaces the whole #grid element so the refresh URL follows the query.
func Grid(res *dashboard.Result) templ.Component {
	return templ.FromGoHTML(gridFragment, res)
}

// Record is the side panel for one row.
func Record(d *dashboard.RecordDetail) templ.Component {
	return templ.FromGoHTML(recordTmpl, d)
}

// Toast is a transient status message.
func Toast(ok bool, message string) templ.Component {
	return templ.FromGoHTML(toastTmpl, struct {
		OK      bool
		Message string
	}{ok, message})
}

// Error is a full error page.
func Error(nav []*dashboard.Definition, status int, message string) templ.Component {
	return templ.FromGoHTML(errorTmpl, struct {
		layout
		Status  int
		Message string
	}{layout{Nav: nav}, status, message})
}
