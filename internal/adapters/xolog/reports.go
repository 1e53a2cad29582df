package xolog

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/csg33k/freight-reports/internal/domain"
	"github.com/csg33k/freight-reports/internal/ports"
)

var _ ports.ReportSource = (*Client)(nil)

func fetch[T any](ctx context.Context, c *Client, resource string, q domain.Query) (*domain.Page[T], error) {
	raw, err := c.call(ctx, http.MethodGet, reportsPath+resource, q.Values(), nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", resource, err)
	}
	page, err := decodePage[T](raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", resource, err)
	}
	return page, nil
}

func (c *Client) TotalProfits(ctx context.Context, q domain.Query) (*domain.Page[domain.Job], error) {
	return fetch[domain.Job](ctx, c, domain.ResourceTotalProfits, q)
}

func (c *Client) JobStatuses(ctx context.Context, q domain.Query) (*domain.Page[domain.Job], error) {
	return fetch[domain.Job](ctx, c, domain.ResourceJobStatus, q)
}

func (c *Client) EmptyContainers(ctx context.Context, q domain.Query) (*domain.Page[domain.EmptyContainer], error) {
	return fetch[domain.EmptyContainer](ctx, c, domain.ResourceEmptyContainers, q)
}

func (c *Client) ClientInvoices(ctx context.Context, q domain.Query) (*domain.Page[domain.ClientInvoice], error) {
	return fetch[domain.ClientInvoice](ctx, c, domain.ResourceClientInvoices, q)
}

func (c *Client) OngoingJobs(ctx context.Context, q domain.Query) (*domain.Page[domain.Job], error) {
	return fetch[domain.Job](ctx, c, domain.ResourceOngoingJobs, q)
}

func (c *Client) InvoiceDetails(ctx context.Context, jobNo string) ([]domain.InvoiceDetail, error) {
	path := reportsPath + "invoice-details/" + url.PathEscape(jobNo)
	raw, err := c.call(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("invoice details %s: %w", jobNo, err)
	}
	page, err := decodePage[domain.InvoiceDetail](raw)
	if err != nil {
		return nil, fmt.Errorf("invoice details %s: %w", jobNo, err)
	}
	return page.Items, nil
}

// ClientInvoicesWithDetails lists client invoices and fills each job's
// Invoices from the invoice-details endpoint. A job whose details cannot be
// fetched keeps an empty list; only the list call itself can fail.
func (c *Client) ClientInvoicesWithDetails(ctx context.Context, q domain.Query) (*domain.Page[domain.ClientInvoice], error) {
	page, err := c.ClientInvoices(ctx, q)
	if err != nil {
		return nil, err
	}
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.fanout)
	failed := make([]bool, len(page.Items))
	for i := range page.Items {
		jobNo := string(page.Items[i].JobNo)
		if jobNo == "" {
			continue
		}
		g.Go(func() error {
			details, err := c.InvoiceDetails(gctx, jobNo)
			if err != nil {
				failed[i] = true
				c.log.Warn("xolog.invoice_details.error", "job_no", jobNo, "error", err)
				page.Items[i].Invoices = nil
				return nil
			}
			page.Items[i].Invoices = details
			return nil
		})
	}
	_ = g.Wait()

	n := 0
	for _, f := range failed {
		if f {
			n++
		}
	}
	c.log.Info("xolog.invoice_details.done",
		"jobs", len(page.Items),
		"failed", n,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return page, nil
}

// Sync asks the backend to refresh resource from its upstream system.
func (c *Client) Sync(ctx context.Context, resource string) error {
	raw, err := c.call(ctx, http.MethodPost, syncPath+resource, nil, nil)
	if err != nil {
		return fmt.Errorf("sync %s: %w", resource, err)
	}
	if err := decodeAck(raw); err != nil {
		return fmt.Errorf("sync %s: %w", resource, err)
	}
	return nil
}
