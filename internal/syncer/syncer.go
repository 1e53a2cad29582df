// Package syncer refreshes the backend's report resources on a schedule.
package syncer

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/csg33k/freight-reports/internal/domain"
)

// Syncer is the part of the dashboard service the scheduler drives.
type Syncer interface {
	SyncAll(ctx context.Context) []*domain.SyncRun
}

type Manager struct {
	svc      Syncer
	interval time.Duration
	log      *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
	wakeup chan struct{}
}

func New(svc Syncer, interval time.Duration, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{svc: svc, interval: interval, log: logger, wakeup: make(chan struct{}, 1)}
}

// Start runs a sync every interval until ctx is cancelled or Shutdown is
// called. A non-positive interval disables the schedule; Trigger still works.
func (m *Manager) Start(ctx context.Context) {
	ctx, m.cancel = context.WithCancel(ctx)
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.run(ctx)
	}()
	m.log.Info("syncer.started", "interval", m.interval.String())
}

func (m *Manager) run(ctx context.Context) {
	var tick <-chan time.Time
	if m.interval > 0 {
		t := time.NewTicker(m.interval)
		defer t.Stop()
		tick = t.C
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick:
		case <-m.wakeup:
		}
		m.syncOnce(ctx)
	}
}

func (m *Manager) syncOnce(ctx context.Context) {
	start := time.Now()
	runs := m.svc.SyncAll(ctx)
	failed := 0
	for _, r := range runs {
		if !r.OK {
			failed++
		}
	}
	m.log.Info("syncer.pass", "resources", len(runs), "failed", failed,
		"elapsed_ms", time.Since(start).Milliseconds())
}

// Trigger asks for a sync pass as soon as the loop is idle. Extra triggers
// while one is pending are dropped.
func (m *Manager) Trigger() {
	select {
	case m.wakeup <- struct{}{}:
	default:
	}
}

// Shutdown stops the loop and waits up to timeout for a running pass.
func (m *Manager) Shutdown(timeout time.Duration) {
	if m.cancel == nil {
		return
	}
	m.cancel()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		m.log.Info("syncer.stopped")
	case <-time.After(timeout):
		m.log.Error("syncer.shutdown_timeout", "timeout", timeout.String())
	}
}
