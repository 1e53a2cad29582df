package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/csg33k/freight-reports/internal/domain"
	"github.com/csg33k/freight-reports/internal/ports"
)

var (
	_ ports.SnapshotStore = (*Repository)(nil)
	_ ports.SyncLog       = (*Repository)(nil)
)

type Repository struct {
	db   *sql.DB
	path string
}

// New opens the SQLite database. Schema migrations are managed by dbmate
// (`mage dbup`), or by Migrate when AUTO_MIGRATE is set.
func New(dsn string) (*Repository, error) {
	db, err := sql.Open("sqlite3", dsn+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}
	return &Repository{db: db, path: dsn}, nil
}

func (r *Repository) Close() error { return r.db.Close() }

// Ping reports whether the database file is reachable.
func (r *Repository) Ping(ctx context.Context) error { return r.db.PingContext(ctx) }

// ── Snapshots ─────────────────────────────────────────────────────────────────

func (r *Repository) SaveSnapshot(ctx context.Context, s *domain.Snapshot) error {
	if s.FetchedAt.IsZero() {
		s.FetchedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO snapshots (resource, query_key, payload, fetched_at)
		VALUES (?,?,?,?)
		ON CONFLICT (resource, query_key) DO UPDATE
		SET payload=excluded.payload, fetched_at=excluded.fetched_at`,
		s.Resource, s.QueryKey, s.Payload, s.FetchedAt,
	)
	return err
}

func (r *Repository) LatestSnapshot(ctx context.Context, resource, queryKey string) (*domain.Snapshot, error) {
	s := &domain.Snapshot{}
	err := r.db.QueryRowContext(ctx, `
		SELECT resource, query_key, payload, fetched_at
		FROM snapshots WHERE resource=? AND query_key=?`,
		resource, queryKey,
	).Scan(&s.Resource, &s.QueryKey, &s.Payload, &s.FetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ports.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// ── Sync runs ─────────────────────────────────────────────────────────────────

func (r *Repository) RecordSyncRun(ctx context.Context, run *domain.SyncRun) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO sync_runs (resource, started_at, finished_at, ok, message)
		VALUES (?,?,?,?,?)`,
		run.Resource, run.StartedAt, run.FinishedAt, boolToInt(run.OK), run.Message,
	)
	if err != nil {
		return err
	}
	id, _ := res.LastInsertId()
	run.ID = id
	return nil
}

func (r *Repository) ListSyncRuns(ctx context.Context, limit int) ([]domain.SyncRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, resource, started_at, finished_at, ok, message
		FROM sync_runs ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.SyncRun
	for rows.Next() {
		var run domain.SyncRun
		var ok int
		if err := rows.Scan(&run.ID, &run.Resource, &run.StartedAt, &run.FinishedAt, &ok, &run.Message); err != nil {
			return nil, err
		}
		run.OK = ok != 0
		out = append(out, run)
	}
	return out, rows.Err()
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
