package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/a-h/templ"

	"github.com/csg33k/freight-reports/internal/dashboard"
	"github.com/csg33k/freight-reports/internal/domain"
	"github.com/csg33k/freight-reports/internal/ports"
	"github.com/csg33k/freight-reports/internal/templates"
)

// Reports is the dashboard service as seen by the HTTP layer.
type Reports interface {
	Registry() *dashboard.Registry
	Load(ctx context.Context, slug string, p dashboard.Params) (*dashboard.Result, error)
	Record(ctx context.Context, slug, key string, p dashboard.Params) (*dashboard.RecordDetail, error)
	Sync(ctx context.Context, slug string) (*domain.SyncRun, error)
	Export(ctx context.Context, slug string, p dashboard.Params, format string) (*dashboard.Download, error)
	RecentSyncs(ctx context.Context, n int) ([]domain.SyncRun, error)
}

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Scheduler queues a background sync of every report.
type Scheduler interface {
	Trigger()
}

type Handler struct {
	svc   Reports
	db    Pinger
	sched Scheduler
	log   *slog.Logger
}

func New(svc Reports, db Pinger, sched Scheduler, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{svc: svc, db: db, sched: sched, log: logger}
}

const detailedSlug = "client-invoices-detailed"

func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", h.index)
	mux.HandleFunc("GET /healthz", h.health)
	mux.HandleFunc("GET /reports/{slug}", h.report)
	mux.HandleFunc("GET /reports/client-invoices/detailed", h.detailed)
	mux.HandleFunc("GET /reports/{slug}/rows", h.rows)
	mux.HandleFunc("GET /reports/{slug}/records/{key}", h.record)
	mux.HandleFunc("GET /reports/{slug}/export.xlsx", h.export("xlsx"))
	mux.HandleFunc("GET /reports/{slug}/export.pdf", h.export("pdf"))
	mux.HandleFunc("POST /reports/{slug}/sync", h.sync)
	mux.HandleFunc("POST /sync", h.syncAll)
	mux.HandleFunc("GET /", h.notFound)

	return chain(mux,
		requestID,
		accessLog(h.log),
		recoverer(h.log),
		securityHeaders,
	)
}

func (h *Handler) index(w http.ResponseWriter, r *http.Request) {
	runs, err := h.svc.RecentSyncs(r.Context(), 10)
	if err != nil {
		h.log.Warn("handlers.index.sync_runs", "req_id", RequestID(r.Context()), "error", err)
	}
	render(w, r, templates.Index(h.svc.Registry().All(), runs))
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if err := h.db.Ping(r.Context()); err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintln(w, "ok")
}

func (h *Handler) notFound(w http.ResponseWriter, r *http.Request) {
	h.fail(w, r, http.StatusNotFound, "page not found")
}

func (h *Handler) report(w http.ResponseWriter, r *http.Request) {
	h.page(w, r, r.PathValue("slug"))
}

// detailed serves the client invoices report with each job's invoices loaded.
func (h *Handler) detailed(w http.ResponseWriter, r *http.Request) {
	h.page(w, r, detailedSlug)
}

func (h *Handler) page(w http.ResponseWriter, r *http.Request, slug string) {
	res, ok := h.load(w, r, slug)
	if !ok {
		return
	}
	render(w, r, templates.Report(h.svc.Registry().All(), res))
}

// rows renders only the grid for htmx swaps; a plain request gets the page.
func (h *Handler) rows(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("HX-Request") != "true" {
		h.report(w, r)
		return
	}
	res, ok := h.load(w, r, r.PathValue("slug"))
	if !ok {
		return
	}
	render(w, r, templates.Grid(res))
}

func (h *Handler) load(w http.ResponseWriter, r *http.Request, slug string) (*dashboard.Result, bool) {
	d, ok := h.svc.Registry().Lookup(slug)
	if !ok {
		h.fail(w, r, http.StatusNotFound, fmt.Sprintf("unknown report %q", slug))
		return nil, false
	}
	res, err := h.svc.Load(r.Context(), slug, dashboard.ParseParams(d, r.URL.Query()))
	if err != nil {
		h.fail(w, r, statusOf(err), err.Error())
		return nil, false
	}
	return res, true
}

func (h *Handler) record(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")
	d, ok := h.svc.Registry().Lookup(slug)
	if !ok {
		http.Error(w, "unknown report", http.StatusNotFound)
		return
	}
	detail, err := h.svc.Record(r.Context(), slug, r.PathValue("key"), dashboard.ParseParams(d, r.URL.Query()))
	if err != nil {
		http.Error(w, err.Error(), statusOf(err))
		return
	}
	render(w, r, templates.Record(detail))
}

func (h *Handler) export(format string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slug := r.PathValue("slug")
		d, ok := h.svc.Registry().Lookup(slug)
		if !ok {
			http.Error(w, "unknown report", http.StatusNotFound)
			return
		}
		dl, err := h.svc.Export(r.Context(), slug, dashboard.ParseParams(d, r.URL.Query()), format)
		if err != nil {
			h.log.Error("handlers.export.error", "req_id", RequestID(r.Context()), "report", slug, "format", format, "error", err)
			http.Error(w, err.Error(), statusOf(err))
			return
		}
		w.Header().Set("Content-Type", dl.ContentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", dl.Name))
		w.Header().Set("Content-Length", strconv.Itoa(len(dl.Body)))
		w.Write(dl.Body)
	}
}

// sync answers with a toast and, on success, tells the page to reload the grid.
func (h *Handler) sync(w http.ResponseWriter, r *http.Request) {
	run, err := h.svc.Sync(r.Context(), r.PathValue("slug"))
	switch {
	case errors.Is(err, dashboard.ErrUnknownReport):
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	case errors.Is(err, dashboard.ErrNotSyncable):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case err != nil:
		// a failed sync is still a rendered result
		msg := "Sync failed"
		if run != nil {
			msg += ": " + run.Message
		}
		render(w, r, templates.Toast(false, msg))
		return
	}
	w.Header().Set("HX-Trigger", "report-refresh")
	render(w, r, templates.Toast(true, run.Message))
}

// syncAll queues a pass over every syncable report and returns at once.
func (h *Handler) syncAll(w http.ResponseWriter, r *http.Request) {
	h.sched.Trigger()
	h.log.Info("handlers.sync_all.queued", "req_id", RequestID(r.Context()))
	render(w, r, templates.Toast(true, "Sync of all reports started"))
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, status int, msg string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := templates.Error(h.svc.Registry().All(), status, msg).Render(r.Context(), w); err != nil {
		h.log.Error("handlers.render.error", "req_id", RequestID(r.Context()), "error", err)
	}
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, dashboard.ErrUnknownReport), errors.Is(err, ports.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, dashboard.ErrUnknownFormat), errors.Is(err, dashboard.ErrNotSyncable):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func render(w http.ResponseWriter, r *http.Request, c templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := c.Render(r.Context(), w); err != nil {
		http.Error(w, err.Error(), 500)
	}
}
