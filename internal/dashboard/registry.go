package dashboard

import (
	"context"
	"encoding/json"

	"github.com/csg33k/freight-reports/internal/domain"
	"github.com/csg33k/freight-reports/internal/ports"
	"github.com/csg33k/freight-reports/internal/report"
)

// FilterDef is one toolbar drop-down. A filter either narrows the backend
// query (Server) or the loaded rows (Client).
type FilterDef struct {
	Name    string
	Label   string
	Options []string // "All" is offered in addition to these
	Default string   // empty means All
	Server  func(q *domain.Query, value string)
	Client  func(value string) []report.Filter
}

type fetchFunc func(ctx context.Context, src ports.ReportSource, q domain.Query) ([]domain.Record, []byte, error)
type decodeFunc func(payload []byte) ([]domain.Record, error)

// Definition describes one report page.
type Definition struct {
	Slug       string
	Title      string
	Resource   string // backend resource, also the sync target
	ExportName string
	Client     bool // listed under client reports
	Detailed   bool // rows carry their invoices

	Columns    []report.Column
	Sort       []report.SortKey
	GroupOrder report.GroupOrder
	SumFields  []string
	CountLabel string
	PageSizes  []int

	Query     domain.Query // fixed query parameters
	Filters   []FilterDef
	Syncable  bool
	Highlight func(domain.Record) bool

	fetch  fetchFunc
	decode decodeFunc
	// lookup fetches rows for a single-record lookup; nil means fetch
	lookup fetchFunc
}

// DefaultPageSize is the first page size choice.
func (d *Definition) DefaultPageSize() int {
	if len(d.PageSizes) == 0 {
		return 0
	}
	return d.PageSizes[0]
}

// Registry holds the report definitions in navigation order.
type Registry struct {
	defs   []*Definition
	bySlug map[string]*Definition
}

func NewRegistry(defs ...*Definition) *Registry {
	r := &Registry{bySlug: make(map[string]*Definition, len(defs))}
	for _, d := range defs {
		r.defs = append(r.defs, d)
		r.bySlug[d.Slug] = d
	}
	return r
}

func (r *Registry) Lookup(slug string) (*Definition, bool) {
	d, ok := r.bySlug[slug]
	return d, ok
}

func (r *Registry) All() []*Definition { return r.defs }

// pageOf adapts a typed ReportSource method to the registry's untyped
// fetch/decode pair. Snapshots store the items as a bare JSON array.
func pageOf[T domain.Record](call func(ports.ReportSource, context.Context, domain.Query) (*domain.Page[T], error)) (fetchFunc, decodeFunc) {
	fetch := func(ctx context.Context, src ports.ReportSource, q domain.Query) ([]domain.Record, []byte, error) {
		page, err := call(src, ctx, q)
		if err != nil {
			return nil, nil, err
		}
		payload, err := json.Marshal(page.Items)
		if err != nil {
			return nil, nil, err
		}
		return records(page.Items), payload, nil
	}
	decode := func(payload []byte) ([]domain.Record, error) {
		var items []T
		if err := json.Unmarshal(payload, &items); err != nil {
			return nil, err
		}
		return records(items), nil
	}
	return fetch, decode
}

func records[T domain.Record](items []T) []domain.Record {
	out := make([]domain.Record, len(items))
	for i, it := range items {
		out[i] = it
	}
	return out
}

// ── Filters ──────────────────────────────────────────────────────────────────

func departmentFilter(server bool) FilterDef {
	f := FilterDef{Name: "department", Label: "Department", Options: domain.DepartmentNames()}
	if server {
		f.Server = func(q *domain.Query, v string) {
			if d, ok := domain.DepartmentByName(v); ok {
				q.DepartmentID, q.JobType = d.ID, d.JobType
			}
		}
		return f
	}
	f.Client = func(v string) []report.Filter {
		d, ok := domain.DepartmentByName(v)
		if !ok {
			return nil
		}
		out := []report.Filter{{Field: "DepartmentId", Value: d.ID}}
		if d.JobType != 0 {
			out = append(out, report.Filter{Field: "JobType", Value: d.JobType})
		}
		return out
	}
	return f
}

func paymentFilter(server bool) FilterDef {
	f := FilterDef{Name: "payment", Label: "Payment", Options: domain.PaymentStates}
	if server {
		f.Server = func(q *domain.Query, v string) {
			switch v {
			case domain.PaymentFullPaid:
				q.FullPaid = "true"
			case domain.PaymentNotPaid:
				q.FullPaid = "false"
			}
		}
		return f
	}
	f.Client = func(v string) []report.Filter {
		switch v {
		case domain.PaymentFullPaid:
			return []report.Filter{{Field: "FullPaid", Value: true}}
		case domain.PaymentNotPaid:
			return []report.Filter{{Field: "FullPaid", Value: false}}
		}
		return nil
	}
	return f
}

func statusTypeFilter(label string, options []string, def string) FilterDef {
	return FilterDef{
		Name: "status", Label: label, Options: options, Default: def,
		Client: func(v string) []report.Filter {
			return []report.Filter{{Field: "StatusType", Value: v}}
		},
	}
}

// ── Columns ──────────────────────────────────────────────────────────────────

var (
	colJobNo      = report.Column{Field: "JobNo", Caption: "Job#", Kind: report.Number, Width: 10}
	colJobDate    = report.Column{Field: "JobDate", Caption: "Job Date", Kind: report.Date, Width: 11}
	colCustomer   = report.Column{Field: "CustomerName", Caption: "Customer", Width: 24}
	colEta        = report.Column{Field: "Eta", Caption: "ETA", Kind: report.Date, Width: 11}
	colAta        = report.Column{Field: "Ata", Caption: "ATA", Kind: report.Date, Width: 11}
	colArrival    = report.Column{Field: "Arrival", Caption: "Arrival", Kind: report.Date, Width: 11}
	colStatusType = report.Column{Field: "StatusType", Caption: "Status Type", Width: 14}
	colProfit     = report.Column{Field: "TotalProfit", Caption: "Total Profit", Kind: report.Money, Width: 14}
	colDept       = report.Column{Field: "DepartmentName", Caption: "Department Name", Width: 16}
)

func hidden(c report.Column) report.Column {
	c.Hidden = true
	return c
}

func jobColumns() []report.Column {
	return []report.Column{colJobNo, colJobDate, colCustomer, colEta, colAta, colArrival, colProfit, colStatusType, colDept}
}

func clientInvoiceColumns(invoicesCaption string) []report.Column {
	return []report.Column{
		colJobNo,
		{Field: "Customer", Caption: "Customer", Width: 24},
		{Field: "DepartmentName", Caption: "Department", Width: 16, Hidden: true},
		hidden(colStatusType),
		{Field: "Pol", Caption: "POL", Width: 12},
		{Field: "Pod", Caption: "POD", Width: 12},
		{Field: "Etd", Caption: "ETD", Kind: report.Date, Width: 11},
		colEta,
		{Field: "Atd", Caption: "ATD", Kind: report.Date, Width: 11},
		colAta,
		{Field: "TotalInvoices", Caption: invoicesCaption, Kind: report.Money, Width: 14},
		colProfit,
		{Field: "Consignee", Caption: "Consignee", Width: 20, Hidden: true},
		{Field: "Notes", Caption: "Notes", Width: 24, Hidden: true},
		{Field: "vessel", Caption: "Vessel", Width: 16, Hidden: true},
		{Field: "Invoices", Caption: "Invoices Count", Kind: report.Count, Width: 9},
	}
}

// needsContainerReturn flags Sea and Air Import containers that arrived but
// have neither cleared customs nor been handed to the consignee.
func needsContainerReturn(r domain.Record) bool {
	c, ok := r.(domain.EmptyContainer)
	if !ok {
		return false
	}
	dept := int64(c.DepartmentID)
	return c.ArrivalDays > 0 && c.TejrimDays == 0 && c.DiffCntrToCnee == 0 && (dept == 5 || dept == 16)
}

var (
	standardPageSizes = []int{100, 200, 1000, 0}
	ongoingPageSizes  = []int{20, 50, 100, 200}
)

// DefaultRegistry is the admin and client report set.
func DefaultRegistry() *Registry {
	jobs := func(call func(ports.ReportSource, context.Context, domain.Query) (*domain.Page[domain.Job], error)) *Definition {
		d := &Definition{}
		d.fetch, d.decode = pageOf(call)
		return d
	}

	totalProfit := jobs(ports.ReportSource.TotalProfits)
	totalProfit.Slug = "total-profit"
	totalProfit.Title = "Total Profit"
	totalProfit.Resource = domain.ResourceTotalProfits
	totalProfit.ExportName = "TotalProfit"
	totalProfit.Columns = []report.Column{colJobNo, colJobDate, colCustomer, colEta, colAta, colStatusType, colProfit, hidden(colArrival), hidden(colDept)}
	totalProfit.Sort = []report.SortKey{{Field: "JobNo"}}
	totalProfit.GroupOrder = report.GroupsByCountDesc
	totalProfit.SumFields = []string{"TotalProfit"}
	totalProfit.CountLabel = "orders"
	totalProfit.PageSizes = standardPageSizes
	totalProfit.Query = domain.Query{Page: 1}
	totalProfit.Filters = []FilterDef{{
		Name: "status", Label: "Status", Options: domain.JobStatuses,
		Server: func(q *domain.Query, v string) { q.StatusType = v },
	}}
	totalProfit.Syncable = true

	jobStatus := jobs(ports.ReportSource.JobStatuses)
	jobStatus.Slug = "job-status"
	jobStatus.Title = "Job Status"
	jobStatus.Resource = domain.ResourceJobStatus
	jobStatus.ExportName = "JobStatusReport"
	jobStatus.Columns = jobColumns()
	jobStatus.Sort = []report.SortKey{{Field: "JobNo"}}
	jobStatus.SumFields = []string{"TotalProfit"}
	jobStatus.CountLabel = "orders"
	jobStatus.PageSizes = standardPageSizes
	jobStatus.Query = domain.Query{Page: 1, Limit: 100}
	jobStatus.Filters = []FilterDef{
		departmentFilter(false),
		statusTypeFilter("Status", domain.StatusList, "New"),
		paymentFilter(false),
	}

	empty := &Definition{
		Slug:       "empty-containers",
		Title:      "Empty Containers",
		Resource:   domain.ResourceEmptyContainers,
		ExportName: "EmptyContainer",
		Columns: []report.Column{
			{Field: "JobNo", Caption: "Job#", Kind: report.Number, Width: 10},
			hidden(colJobDate),
			{Field: "ReferenceNo", Caption: "XONO", Width: 10, Hidden: true},
			{Field: "CustomerName", Caption: "Customer", Width: 15},
			colAta,
			hidden(colStatusType),
			{Field: "TejrimDate", Caption: "Tejrim Date", Kind: report.Date, Width: 11},
			{Field: "dtCntrToCnee", Caption: "Date To Cnee", Kind: report.Date, Width: 11},
			{Field: "ArrivalDays", Caption: "Arrival Days", Kind: report.Count, Width: 9},
			{Field: "TejrimDays", Caption: "Tejrim Days", Kind: report.Count, Width: 9},
			{Field: "DiffCntrToCnee", Caption: "Cntr to Cnee", Kind: report.Count, Width: 9},
			{Field: "MissingDocuments", Caption: "Missing Documents", Width: 14},
			{Field: "ContainerNo", Caption: "Container#", Width: 12, Hidden: true},
			{Field: "CarrierName", Caption: "Carrier Name", Width: 14, Hidden: true},
			{Field: "UserName", Caption: "User Name", Width: 12, Hidden: true},
			{Field: "Notes", Caption: "Notes", Width: 15},
			{Field: "Departure", Caption: "Departure", Width: 12, Hidden: true},
			{Field: "Destination", Caption: "Destination", Width: 12, Hidden: true},
			{Field: "FullPaid", Caption: "Payment Status", Kind: report.Bool, Width: 12,
				TrueText: domain.PaymentFullPaid, FalseText: domain.PaymentNotPaid},
			{Field: "FullPaidDate", Caption: "Payment Date", Kind: report.Date, Width: 11, Hidden: true},
			{Field: "TotalProfit", Caption: "Total Profit", Kind: report.Money, Width: 12},
			{Field: "PaidDO", Caption: "Paid D/O", Width: 10, Hidden: true},
			{Field: "Mbol", Caption: "MBL", Width: 14, Hidden: true},
			{Field: "DepartmentName", Caption: "Department", Width: 14, Hidden: true},
		},
		Sort:       []report.SortKey{{Field: "DepartmentName", Desc: true}, {Field: "JobNo"}},
		GroupOrder: report.GroupsByCountDesc,
		SumFields:  []string{"TotalProfit"},
		CountLabel: "orders",
		PageSizes:  standardPageSizes,
		Query:      domain.Query{Page: 1, SortBy: "OrderNo", SortOrder: "asc"},
		Filters:    []FilterDef{departmentFilter(true), paymentFilter(true)},
		Syncable:   true,
		Highlight:  needsContainerReturn,
	}
	empty.fetch, empty.decode = pageOf(ports.ReportSource.EmptyContainers)

	clientFilters := []FilterDef{
		departmentFilter(true),
		{
			Name: "jobStatus", Label: "Job Status", Options: domain.JobStatuses,
			Server: func(q *domain.Query, v string) { q.JobStatusType = v },
		},
		{
			Name: "invoiceStatus", Label: "Invoice Status", Options: domain.InvoiceStatuses,
			Server: func(q *domain.Query, v string) { q.StatusType = v },
		},
	}
	clientInvoices := &Definition{
		Slug:       "client-invoices",
		Title:      "Client Invoices",
		Resource:   domain.ResourceClientInvoices,
		ExportName: "ClientInvoices",
		Columns:    clientInvoiceColumns("Total Invoices New"),
		Sort:       []report.SortKey{{Field: "JobNo"}},
		GroupOrder: report.GroupsByCountDesc,
		SumFields:  []string{"TotalInvoices", "TotalProfit"},
		CountLabel: "jobs",
		PageSizes:  standardPageSizes,
		Query:      domain.Query{Page: 1},
		Filters:    clientFilters,
		Syncable:   true,
	}
	clientInvoices.fetch, clientInvoices.decode = pageOf(ports.ReportSource.ClientInvoices)

	detailed := *clientInvoices
	detailed.Slug = "client-invoices-detailed"
	detailed.Title = "Client Invoices (Detailed)"
	detailed.ExportName = "ClientInvoicesDetailed"
	detailed.Detailed = true
	detailed.fetch, detailed.decode = pageOf(ports.ReportSource.ClientInvoicesWithDetails)
	detailed.lookup = clientInvoices.fetch

	ongoing := jobs(ports.ReportSource.OngoingJobs)
	ongoing.Slug = "ongoing-jobs"
	ongoing.Title = "Ongoing Jobs"
	ongoing.Resource = domain.ResourceOngoingJobs
	ongoing.ExportName = "OngoingJobsReport"
	ongoing.Columns = jobColumns()
	ongoing.Sort = []report.SortKey{{Field: "JobNo"}}
	ongoing.CountLabel = "jobs"
	ongoing.PageSizes = ongoingPageSizes
	ongoing.Query = domain.Query{Page: 1, Limit: 100}
	ongoing.Filters = []FilterDef{statusTypeFilter("Status", domain.JobStatuses, "")}
	ongoing.Syncable = true

	toBeLoaded := jobs(ports.ReportSource.OngoingJobs)
	toBeLoaded.Slug = "to-be-loaded"
	toBeLoaded.Title = "To Be Loaded"
	toBeLoaded.Resource = domain.ResourceOngoingJobs
	toBeLoaded.ExportName = "ToBeLoadedReport"
	toBeLoaded.Client = true
	toBeLoaded.Columns = []report.Column{
		colJobNo, colJobDate,
		{Field: "ReferenceNo", Caption: "XONO", Width: 10},
		colCustomer, colEta, colAta, colStatusType, colProfit,
		hidden(colDept), hidden(colArrival),
		{Field: "MemberOf", Caption: "Member Of", Width: 14, Hidden: true},
		{Field: "vessel", Caption: "Vessel", Width: 16, Hidden: true},
	}
	toBeLoaded.Sort = []report.SortKey{{Field: "JobNo"}}
	toBeLoaded.SumFields = []string{"TotalProfit"}
	toBeLoaded.CountLabel = "jobs"
	toBeLoaded.PageSizes = standardPageSizes
	toBeLoaded.Query = domain.Query{Page: 1, JobStatusType: domain.JobStatuses[0]}
	toBeLoaded.Syncable = true

	invoiceStatus := &Definition{
		Slug:       "invoice-status",
		Title:      "Invoice Status",
		Resource:   domain.ResourceClientInvoices,
		ExportName: "InvoiceStatusReport",
		Client:     true,
		Columns:    clientInvoiceColumns("Total Invoices"),
		Sort:       []report.SortKey{{Field: "JobNo"}},
		GroupOrder: report.GroupsByCountDesc,
		SumFields:  []string{"TotalInvoices", "TotalProfit"},
		CountLabel: "jobs",
		PageSizes:  standardPageSizes,
		Query:      domain.Query{Page: 1},
		Syncable:   true,
	}
	invoiceStatus.fetch, invoiceStatus.decode = pageOf(ports.ReportSource.ClientInvoices)

	return NewRegistry(totalProfit, jobStatus, empty, clientInvoices, &detailed, ongoing, toBeLoaded, invoiceStatus)
}
