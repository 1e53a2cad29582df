package ports

import (
	"context"
	"errors"
	"io"

	"github.com/csg33k/freight-reports/internal/domain"
	"github.com/csg33k/freight-reports/internal/report"
)

// ErrNotFound is returned by stores when nothing matches the lookup.
var ErrNotFound = errors.New("not found")

// ReportSource is the remote reports backend.
type ReportSource interface {
	TotalProfits(ctx context.Context, q domain.Query) (*domain.Page[domain.Job], error)
	JobStatuses(ctx context.Context, q domain.Query) (*domain.Page[domain.Job], error)
	EmptyContainers(ctx context.Context, q domain.Query) (*domain.Page[domain.EmptyContainer], error)
	ClientInvoices(ctx context.Context, q domain.Query) (*domain.Page[domain.ClientInvoice], error)
	OngoingJobs(ctx context.Context, q domain.Query) (*domain.Page[domain.Job], error)

	// InvoiceDetails lists the invoices raised against one job.
	InvoiceDetails(ctx context.Context, jobNo string) ([]domain.InvoiceDetail, error)
	// ClientInvoicesWithDetails is ClientInvoices with each job's Invoices filled in.
	ClientInvoicesWithDetails(ctx context.Context, q domain.Query) (*domain.Page[domain.ClientInvoice], error)

	// Sync asks the backend to refresh one resource from its upstream system.
	Sync(ctx context.Context, resource string) error
}

// SnapshotStore keeps the last good payload per resource and query so a
// report can still be shown while the backend is unreachable.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, s *domain.Snapshot) error
	LatestSnapshot(ctx context.Context, resource, queryKey string) (*domain.Snapshot, error)
}

// SyncLog records backend refreshes.
type SyncLog interface {
	RecordSyncRun(ctx context.Context, run *domain.SyncRun) error
	ListSyncRuns(ctx context.Context, limit int) ([]domain.SyncRun, error)
}

// Exporter renders a computed report view into a downloadable document.
type Exporter interface {
	// Export writes the document for v to w.
	Export(ctx context.Context, v *report.View, w io.Writer) error

	// ContentType and Extension describe the produced file.
	ContentType() string
	Extension() string
}
