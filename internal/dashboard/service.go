// Package dashboard ties the report registry, the backend client, the
// snapshot store and the exporters together. Handlers talk only to Service.
package dashboard

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/csg33k/freight-reports/internal/domain"
	"github.com/csg33k/freight-reports/internal/ports"
	"github.com/csg33k/freight-reports/internal/report"
)

var (
	ErrUnknownReport = errors.New("unknown report")
	ErrUnknownFormat = errors.New("unknown export format")
	ErrNotSyncable   = errors.New("report cannot be synced")
)

type Service struct {
	reg       *Registry
	src       ports.ReportSource
	snaps     ports.SnapshotStore
	runs      ports.SyncLog
	exporters map[string]ports.Exporter
	log       *slog.Logger
	now       func() time.Time
}

// NewService wires the dashboard. exporters is keyed by format name as used
// in export URLs ("xlsx", "pdf").
func NewService(reg *Registry, src ports.ReportSource, snaps ports.SnapshotStore, runs ports.SyncLog, exporters map[string]ports.Exporter, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		reg:       reg,
		src:       src,
		snaps:     snaps,
		runs:      runs,
		exporters: exporters,
		log:       logger,
		now:       time.Now,
	}
}

func (s *Service) Registry() *Registry { return s.reg }

// Result is a loaded report page.
type Result struct {
	Def       *Definition
	Params    Params
	View      *report.View
	FetchedAt time.Time
	// Stale is set when the backend failed and a stored snapshot was shown.
	Stale bool
	// Notice carries the backend error, if any.
	Notice string
}

func (s *Service) definition(slug string) (*Definition, error) {
	d, ok := s.reg.Lookup(slug)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownReport, slug)
	}
	return d, nil
}

// Load fetches a report and lays it out. Backend failures are not errors:
// the last snapshot for the same query is used instead, or an empty view,
// and the failure is reported in Result.Notice.
func (s *Service) Load(ctx context.Context, slug string, p Params) (*Result, error) {
	d, err := s.definition(slug)
	if err != nil {
		return nil, err
	}
	res := &Result{Def: d, Params: p}
	recs := s.records(ctx, d, p, res)
	res.View = report.Build(recs, d.options(p))
	return res, nil
}

func (s *Service) records(ctx context.Context, d *Definition, p Params, res *Result) []domain.Record {
	q := d.query(p)
	start := time.Now()
	recs, payload, err := d.fetch(ctx, s.src, q)
	if err == nil {
		res.FetchedAt = s.now()
		s.log.Info("dashboard.load.ok", "report", d.Slug, "rows", len(recs), "elapsed_ms", time.Since(start).Milliseconds())
		snap := &domain.Snapshot{Resource: d.Slug, QueryKey: q.Key(), Payload: payload, FetchedAt: res.FetchedAt}
		if serr := s.snaps.SaveSnapshot(ctx, snap); serr != nil {
			s.log.Warn("dashboard.snapshot.save_error", "report", d.Slug, "error", serr)
		}
		return recs
	}

	s.log.Error("dashboard.load.error", "report", d.Slug, "query", q.Key(), "error", err)
	res.Notice = err.Error()
	snap, serr := s.snaps.LatestSnapshot(ctx, d.Slug, q.Key())
	if serr != nil {
		if !errors.Is(serr, ports.ErrNotFound) {
			s.log.Warn("dashboard.snapshot.read_error", "report", d.Slug, "error", serr)
		}
		return nil
	}
	recs, derr := d.decode(snap.Payload)
	if derr != nil {
		s.log.Warn("dashboard.snapshot.decode_error", "report", d.Slug, "error", derr)
		return nil
	}
	res.Stale = true
	res.FetchedAt = snap.FetchedAt
	return recs
}

// RecordDetail is the side panel content for one row.
type RecordDetail struct {
	Def      *Definition
	Key      string
	Fields   []report.Field
	Invoices []domain.InvoiceDetail
	Notice   string
}

// Record looks up one row of a report by key. For client invoice reports the
// job's invoices are fetched as well.
func (s *Service) Record(ctx context.Context, slug, key string, p Params) (*RecordDetail, error) {
	d, err := s.definition(slug)
	if err != nil {
		return nil, err
	}
	rec, err := s.findRecord(ctx, d, d.query(p), key)
	if err != nil {
		return nil, err
	}

	out := &RecordDetail{Def: d, Key: key, Fields: report.Detail(rec, d.Columns)}
	ci, ok := rec.(domain.ClientInvoice)
	if !ok {
		return out, nil
	}
	if len(ci.Invoices) > 0 {
		out.Invoices = ci.Invoices
		return out, nil
	}
	invoices, err := s.src.InvoiceDetails(ctx, string(ci.JobNo))
	if err != nil {
		s.log.Warn("dashboard.invoice_details.error", "job_no", ci.JobNo, "error", err)
		out.Notice = err.Error()
		return out, nil
	}
	out.Invoices = invoices
	return out, nil
}

// findRecord reads the row from the snapshot the report page was built from.
// The backend is asked only when there is no snapshot or it lacks the row,
// and then without the per-job invoice fan-out.
func (s *Service) findRecord(ctx context.Context, d *Definition, q domain.Query, key string) (domain.Record, error) {
	snap, err := s.snaps.LatestSnapshot(ctx, d.Slug, q.Key())
	switch {
	case err == nil:
		recs, derr := d.decode(snap.Payload)
		if derr != nil {
			s.log.Warn("dashboard.snapshot.decode_error", "report", d.Slug, "error", derr)
		} else if rec := byKey(recs, key); rec != nil {
			return rec, nil
		}
	case !errors.Is(err, ports.ErrNotFound):
		s.log.Warn("dashboard.snapshot.read_error", "report", d.Slug, "error", err)
	}

	fetch := d.fetch
	if d.lookup != nil {
		fetch = d.lookup
	}
	start := time.Now()
	recs, _, err := fetch(ctx, s.src, q)
	if err != nil {
		s.log.Error("dashboard.record.error", "report", d.Slug, "key", key, "error", err)
		return nil, fmt.Errorf("record %q: %w", key, err)
	}
	s.log.Info("dashboard.record.fetched", "report", d.Slug, "rows", len(recs), "elapsed_ms", time.Since(start).Milliseconds())
	if rec := byKey(recs, key); rec != nil {
		return rec, nil
	}
	return nil, fmt.Errorf("record %q: %w", key, ports.ErrNotFound)
}

func byKey(recs []domain.Record, key string) domain.Record {
	for _, r := range recs {
		if r.Key() == key {
			return r
		}
	}
	return nil
}

// Sync asks the backend to refresh the report's resource and records the run.
// The run is returned even when the sync failed.
func (s *Service) Sync(ctx context.Context, slug string) (*domain.SyncRun, error) {
	d, err := s.definition(slug)
	if err != nil {
		return nil, err
	}
	if !d.Syncable {
		return nil, fmt.Errorf("%s: %w", slug, ErrNotSyncable)
	}

	run := &domain.SyncRun{Resource: d.Resource, StartedAt: s.now()}
	syncErr := s.src.Sync(ctx, d.Resource)
	run.FinishedAt = s.now()
	run.OK = syncErr == nil
	if syncErr != nil {
		run.Message = syncErr.Error()
		s.log.Error("dashboard.sync.error", "report", slug, "resource", d.Resource, "error", syncErr)
	} else {
		run.Message = d.Title + " data synced successfully"
		s.log.Info("dashboard.sync.ok", "report", slug, "resource", d.Resource,
			"elapsed_ms", run.FinishedAt.Sub(run.StartedAt).Milliseconds())
	}
	// the run is logged with a fresh context so a cancelled request still leaves a trace
	if err := s.runs.RecordSyncRun(context.WithoutCancel(ctx), run); err != nil {
		s.log.Warn("dashboard.sync.record_error", "report", slug, "error", err)
	}
	return run, syncErr
}

// SyncAll syncs every syncable resource once.
func (s *Service) SyncAll(ctx context.Context) []*domain.SyncRun {
	seen := map[string]bool{}
	var runs []*domain.SyncRun
	for _, d := range s.reg.All() {
		if !d.Syncable || seen[d.Resource] {
			continue
		}
		seen[d.Resource] = true
		if ctx.Err() != nil {
			break
		}
		run, _ := s.Sync(ctx, d.Slug)
		if run != nil {
			runs = append(runs, run)
		}
	}
	return runs
}

// RecentSyncs lists the latest sync runs, newest first.
func (s *Service) RecentSyncs(ctx context.Context, n int) ([]domain.SyncRun, error) {
	return s.runs.ListSyncRuns(ctx, n)
}

// Download is a rendered export.
type Download struct {
	Name        string
	ContentType string
	Body        []byte
	Rows        int
}

// Export renders every filtered row of a report, or only the selected ones,
// in the given format.
func (s *Service) Export(ctx context.Context, slug string, p Params, format string) (*Download, error) {
	d, err := s.definition(slug)
	if err != nil {
		return nil, err
	}
	exp, ok := s.exporters[format]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	p.Page, p.PageSize = 1, 0
	res, err := s.Load(ctx, slug, p)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := exp.Export(ctx, res.View, &buf); err != nil {
		return nil, fmt.Errorf("export %s: %w", format, err)
	}
	return &Download{
		Name:        d.ExportName + exp.Extension(),
		ContentType: exp.ContentType(),
		Body:        buf.Bytes(),
		Rows:        res.View.TotalRows,
	}, nil
}
