package dashboard_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/csg33k/freight-reports/internal/dashboard"
	"github.com/csg33k/freight-reports/internal/domain"
	"github.com/csg33k/freight-reports/internal/ports"
	"github.com/csg33k/freight-reports/internal/report"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

// ── fakes ────────────────────────────────────────────────────────────────────

type fakeSource struct {
	mu       sync.Mutex
	jobs     []domain.Job
	empty    []domain.EmptyContainer
	invoices []domain.ClientInvoice
	details  map[string][]domain.InvoiceDetail
	err      error
	queries  []domain.Query
	synced   []string
	fanouts  int      // detailed list calls
	lookups  []string // single-job invoice detail calls
}

func (f *fakeSource) jobPage(q domain.Query) (*domain.Page[domain.Job], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Page[domain.Job]{Items: f.jobs}, nil
}

func (f *fakeSource) TotalProfits(_ context.Context, q domain.Query) (*domain.Page[domain.Job], error) {
	return f.jobPage(q)
}

func (f *fakeSource) JobStatuses(_ context.Context, q domain.Query) (*domain.Page[domain.Job], error) {
	return f.jobPage(q)
}

func (f *fakeSource) OngoingJobs(_ context.Context, q domain.Query) (*domain.Page[domain.Job], error) {
	return f.jobPage(q)
}

func (f *fakeSource) EmptyContainers(_ context.Context, q domain.Query) (*domain.Page[domain.EmptyContainer], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Page[domain.EmptyContainer]{Items: f.empty}, nil
}

func (f *fakeSource) ClientInvoices(_ context.Context, q domain.Query) (*domain.Page[domain.ClientInvoice], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Page[domain.ClientInvoice]{Items: f.invoices}, nil
}

func (f *fakeSource) ClientInvoicesWithDetails(ctx context.Context, q domain.Query) (*domain.Page[domain.ClientInvoice], error) {
	f.mu.Lock()
	f.fanouts++
	f.mu.Unlock()
	page, err := f.ClientInvoices(ctx, q)
	if err != nil {
		return nil, err
	}
	out := make([]domain.ClientInvoice, len(page.Items))
	for i, ci := range page.Items {
		ci.Invoices = f.details[string(ci.JobNo)]
		out[i] = ci
	}
	return &domain.Page[domain.ClientInvoice]{Items: out}, nil
}

func (f *fakeSource) InvoiceDetails(_ context.Context, jobNo string) ([]domain.InvoiceDetail, error) {
	f.mu.Lock()
	f.lookups = append(f.lookups, jobNo)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.details[jobNo], nil
}

func (f *fakeSource) Sync(_ context.Context, resource string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.synced = append(f.synced, resource)
	return f.err
}

type memStore struct {
	mu    sync.Mutex
	snaps map[string]domain.Snapshot
	saves int
	runs  []domain.SyncRun
}

func newMemStore() *memStore { return &memStore{snaps: map[string]domain.Snapshot{}} }

func (m *memStore) SaveSnapshot(_ context.Context, s *domain.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snaps[s.Resource+"?"+s.QueryKey] = *s
	m.saves++
	return nil
}

func (m *memStore) LatestSnapshot(_ context.Context, resource, key string) (*domain.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.snaps[resource+"?"+key]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return &s, nil
}

func (m *memStore) RecordSyncRun(_ context.Context, run *domain.SyncRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	run.ID = int64(len(m.runs) + 1)
	m.runs = append([]domain.SyncRun{*run}, m.runs...)
	return nil
}

func (m *memStore) ListSyncRuns(_ context.Context, limit int) ([]domain.SyncRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.runs[:min(limit, len(m.runs))], nil
}

// csvExporter writes one line per row so tests can count what was exported.
type csvExporter struct{}

func (csvExporter) Export(_ context.Context, v *report.View, w io.Writer) error {
	for _, r := range v.Rows() {
		fmt.Fprintln(w, r.Key)
	}
	return nil
}
func (csvExporter) ContentType() string { return "text/csv" }
func (csvExporter) Extension() string   { return ".csv" }

func newService(src *fakeSource, store *memStore) *dashboard.Service {
	return dashboard.NewService(dashboard.DefaultRegistry(), src, store, store,
		map[string]ports.Exporter{"csv": csvExporter{}}, quiet)
}

func params(t *testing.T, s *dashboard.Service, slug, raw string) dashboard.Params {
	t.Helper()
	d, ok := s.Registry().Lookup(slug)
	if !ok {
		t.Fatalf("no report %q", slug)
	}
	return dashboard.ParseParams(d, mustQuery(t, raw))
}

// ── tests ────────────────────────────────────────────────────────────────────

func TestLoadAppliesClientFilters(t *testing.T) {
	src := &fakeSource{jobs: []domain.Job{
		{JobNo: "1", StatusType: "New", DepartmentID: 16, TotalProfit: 10},
		{JobNo: "2", StatusType: "Delivered", DepartmentID: 16, TotalProfit: 20},
		{JobNo: "3", StatusType: "New", DepartmentID: 5, TotalProfit: 30},
	}}
	s := newService(src, newMemStore())

	res, err := s.Load(context.Background(), "job-status", params(t, s, "job-status", "department=Sea+Import"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	// status defaults to New
	if res.View.TotalRows != 1 || res.View.Rows()[0].Key != "1" {
		t.Fatalf("rows = %+v", res.View.Rows())
	}
	if res.Stale || res.Notice != "" {
		t.Fatalf("unexpected stale result: %+v", res)
	}
	if q := src.queries[0]; q.Limit != 100 || q.DepartmentID != 0 {
		t.Fatalf("job status query = %+v", q)
	}
}

func TestLoadAppliesServerFilters(t *testing.T) {
	src := &fakeSource{}
	s := newService(src, newMemStore())

	p := params(t, s, "empty-containers", "department=Sea+Cross&payment=Not+Paid")
	if _, err := s.Load(context.Background(), "empty-containers", p); err != nil {
		t.Fatalf("Load: %v", err)
	}
	q := src.queries[0]
	if q.DepartmentID != 16 || q.JobType != 3 || q.FullPaid != "false" || q.SortBy != "OrderNo" {
		t.Fatalf("query = %+v", q)
	}
}

func TestLoadFallsBackToSnapshot(t *testing.T) {
	src := &fakeSource{jobs: []domain.Job{{JobNo: "7", TotalProfit: 70}}}
	store := newMemStore()
	s := newService(src, store)
	p := params(t, s, "total-profit", "")

	if _, err := s.Load(context.Background(), "total-profit", p); err != nil {
		t.Fatalf("Load: %v", err)
	}

	src.err = errors.New("backend down")
	res, err := s.Load(context.Background(), "total-profit", p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !res.Stale || res.Notice != "backend down" {
		t.Fatalf("stale = %v notice = %q", res.Stale, res.Notice)
	}
	if res.View.TotalRows != 1 || res.View.Total.Sum("TotalProfit") != 70 {
		t.Fatalf("snapshot view = %+v", res.View)
	}
}

func TestLoadWithoutSnapshotShowsEmptyView(t *testing.T) {
	src := &fakeSource{err: errors.New("backend down")}
	s := newService(src, newMemStore())

	res, err := s.Load(context.Background(), "ongoing-jobs", params(t, s, "ongoing-jobs", ""))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if res.Stale || res.View.TotalRows != 0 || res.Notice == "" {
		t.Fatalf("result = %+v", res)
	}
}

func TestLoadUnknownReport(t *testing.T) {
	s := newService(&fakeSource{}, newMemStore())
	if _, err := s.Load(context.Background(), "nope", dashboard.Params{}); !errors.Is(err, dashboard.ErrUnknownReport) {
		t.Fatalf("err = %v", err)
	}
}

func TestRecordFetchesInvoices(t *testing.T) {
	src := &fakeSource{
		invoices: []domain.ClientInvoice{{JobNo: "J1", Customer: "ACME"}},
		details:  map[string][]domain.InvoiceDetail{"J1": {{InvoiceNo: "INV-1", TotalAmount: 5}}},
	}
	s := newService(src, newMemStore())

	d, err := s.Record(context.Background(), "client-invoices", "J1", params(t, s, "client-invoices", ""))
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if len(d.Invoices) != 1 || d.Invoices[0].InvoiceNo != "INV-1" {
		t.Fatalf("invoices = %+v", d.Invoices)
	}
	found := false
	for _, f := range d.Fields {
		if f.Caption == "Customer" && f.Text == "ACME" {
			found = true
		}
	}
	if !found {
		t.Fatalf("fields = %+v", d.Fields)
	}

	if _, err := s.Record(context.Background(), "client-invoices", "missing", dashboard.Params{}); !errors.Is(err, ports.ErrNotFound) {
		t.Fatalf("missing record err = %v", err)
	}
}

func TestRecordReadsSnapshot(t *testing.T) {
	src := &fakeSource{jobs: []domain.Job{{JobNo: "7", CustomerName: "Globex", TotalProfit: 70}}}
	store := newMemStore()
	s := newService(src, store)
	p := params(t, s, "total-profit", "")

	if _, err := s.Load(context.Background(), "total-profit", p); err != nil {
		t.Fatalf("Load: %v", err)
	}
	d, err := s.Record(context.Background(), "total-profit", "7", p)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if d.Key != "7" || len(d.Fields) == 0 {
		t.Fatalf("detail = %+v", d)
	}
	if len(src.queries) != 1 || store.saves != 1 {
		t.Fatalf("record refetched: queries = %d saves = %d", len(src.queries), store.saves)
	}

	// a row missing from the snapshot goes to the backend
	src.jobs = append(src.jobs, domain.Job{JobNo: "8"})
	if _, err := s.Record(context.Background(), "total-profit", "8", p); err != nil {
		t.Fatalf("Record new row: %v", err)
	}
	if len(src.queries) != 2 || store.saves != 1 {
		t.Fatalf("queries = %d saves = %d", len(src.queries), store.saves)
	}
}

func TestRecordDetailedLooksUpOneJob(t *testing.T) {
	src := &fakeSource{
		invoices: []domain.ClientInvoice{{JobNo: "J1"}, {JobNo: "J2"}, {JobNo: "J3"}},
		details: map[string][]domain.InvoiceDetail{
			"J1": {{InvoiceNo: "INV-1"}},
			"J2": {{InvoiceNo: "INV-2"}},
			"J3": {{InvoiceNo: "INV-3"}},
		},
	}
	store := newMemStore()
	s := newService(src, store)
	p := params(t, s, "client-invoices-detailed", "")

	d, err := s.Record(context.Background(), "client-invoices-detailed", "J2", p)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if len(d.Invoices) != 1 || d.Invoices[0].InvoiceNo != "INV-2" {
		t.Fatalf("invoices = %+v", d.Invoices)
	}
	if src.fanouts != 0 || len(src.lookups) != 1 || src.lookups[0] != "J2" {
		t.Fatalf("fanouts = %d lookups = %v", src.fanouts, src.lookups)
	}
	if store.saves != 0 {
		t.Fatalf("record saved a snapshot")
	}

	// once the page is loaded its snapshot already carries the invoices
	if _, err := s.Load(context.Background(), "client-invoices-detailed", p); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := s.Record(context.Background(), "client-invoices-detailed", "J3", p); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if src.fanouts != 1 || len(src.lookups) != 1 {
		t.Fatalf("fanouts = %d lookups = %v", src.fanouts, src.lookups)
	}
}

func TestRecordBackendErrorWithoutSnapshot(t *testing.T) {
	src := &fakeSource{err: errors.New("backend down")}
	s := newService(src, newMemStore())
	_, err := s.Record(context.Background(), "ongoing-jobs", "1", params(t, s, "ongoing-jobs", ""))
	if err == nil || errors.Is(err, ports.ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
}

func TestSyncRecordsRun(t *testing.T) {
	src := &fakeSource{}
	store := newMemStore()
	s := newService(src, store)

	run, err := s.Sync(context.Background(), "to-be-loaded")
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if !run.OK || run.Resource != domain.ResourceOngoingJobs {
		t.Fatalf("run = %+v", run)
	}

	src.err = errors.New("upstream busy")
	run, err = s.Sync(context.Background(), "total-profit")
	if err == nil || run == nil || run.OK || run.Message != "upstream busy" {
		t.Fatalf("failed run = %+v, %v", run, err)
	}

	runs, _ := s.RecentSyncs(context.Background(), 10)
	if len(runs) != 2 || runs[0].Resource != domain.ResourceTotalProfits {
		t.Fatalf("runs = %+v", runs)
	}

	if _, err := s.Sync(context.Background(), "job-status"); !errors.Is(err, dashboard.ErrNotSyncable) {
		t.Fatalf("job-status sync err = %v", err)
	}
}

func TestSyncAllVisitsEachResourceOnce(t *testing.T) {
	src := &fakeSource{}
	s := newService(src, newMemStore())

	runs := s.SyncAll(context.Background())
	seen := map[string]int{}
	for _, r := range src.synced {
		seen[r]++
	}
	for r, n := range seen {
		if n != 1 {
			t.Fatalf("resource %s synced %d times", r, n)
		}
	}
	if len(runs) != len(seen) || seen[domain.ResourceJobStatus] != 0 {
		t.Fatalf("runs = %d, synced = %v", len(runs), seen)
	}
}

func TestExportIgnoresPagingAndHonoursSelection(t *testing.T) {
	var jobs []domain.Job
	for i := range 150 {
		jobs = append(jobs, domain.Job{JobNo: domain.FlexString(fmt.Sprint(i + 1))})
	}
	s := newService(&fakeSource{jobs: jobs}, newMemStore())

	dl, err := s.Export(context.Background(), "total-profit", params(t, s, "total-profit", "size=100&page=2"), "csv")
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if dl.Name != "TotalProfit.csv" || dl.Rows != 150 {
		t.Fatalf("download = %s rows %d", dl.Name, dl.Rows)
	}

	dl, err = s.Export(context.Background(), "total-profit", params(t, s, "total-profit", "selected=3,140"), "csv")
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if string(dl.Body) != "3\n140\n" {
		t.Fatalf("selected export = %q", dl.Body)
	}

	if _, err := s.Export(context.Background(), "total-profit", dashboard.Params{}, "docx"); !errors.Is(err, dashboard.ErrUnknownFormat) {
		t.Fatalf("format err = %v", err)
	}
}
