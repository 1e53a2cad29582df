package xolog_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/csg33k/freight-reports/internal/adapters/xolog"
	"github.com/csg33k/freight-reports/internal/domain"
)

// ---------------------------------------------------------------------------
// Fake backend
// ---------------------------------------------------------------------------

type backend struct {
	t      *testing.T
	logins atomic.Int32
	mu     sync.Mutex
	valid  map[string]bool
	seen   []*http.Request
	routes map[string]http.HandlerFunc

	// when set, sign-ins announce themselves on entered and wait for hold
	entered chan struct{}
	hold    chan struct{}
}

func newBackend(t *testing.T) (*backend, *httptest.Server) {
	b := &backend{t: t, valid: map[string]bool{}, routes: map[string]http.HandlerFunc{}}
	srv := httptest.NewServer(b)
	t.Cleanup(srv.Close)
	return b, srv
}

func (b *backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	b.seen = append(b.seen, r)
	b.mu.Unlock()

	if r.URL.Path == "/api/v1/auth/login" {
		var creds struct{ Email, Password string }
		_ = json.NewDecoder(r.Body).Decode(&creds)
		if creds.Password != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"message":"Invalid credentials"}`)
			return
		}
		if b.hold != nil {
			b.entered <- struct{}{}
			<-b.hold
		}
		n := b.logins.Add(1)
		tok := fmt.Sprintf("tok-%d", n)
		b.mu.Lock()
		b.valid[tok] = true
		b.mu.Unlock()
		_ = json.NewEncoder(w).Encode(map[string]string{"token": tok})
		return
	}

	tok := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	b.mu.Lock()
	ok := b.valid[tok]
	b.mu.Unlock()
	if !ok {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"message":"jwt expired"}`)
		return
	}
	h, found := b.routes[r.Method+" "+r.URL.Path]
	if !found {
		http.NotFound(w, r)
		return
	}
	h(w, r)
}

func (b *backend) revoke() {
	b.mu.Lock()
	b.valid = map[string]bool{}
	b.mu.Unlock()
}

func newClient(t *testing.T, srv *httptest.Server) *xolog.Client {
	c, err := xolog.New(xolog.Config{
		BaseURL:  srv.URL + "/",
		Email:    "ops@example.com",
		Password: "secret",
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func reply(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, body)
	}
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestNewRejectsBadBaseURL(t *testing.T) {
	if _, err := xolog.New(xolog.Config{BaseURL: "not a url"}); err == nil {
		t.Fatalf("expected an error")
	}
}

func TestTotalProfitsEnvelope(t *testing.T) {
	b, srv := newBackend(t)
	var query string
	b.routes["GET /api/v1/admin/reports/total-profits"] = func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.RawQuery
		reply(`{"success":true,"data":[{"JobNo":101,"TotalProfit":"12.5"},{"JobNo":"102","TotalProfit":7}],
			"pagination":{"page":1,"limit":0,"total":2,"totalPages":1,"grandTotalProfit":19.5},"totalProfit":19.5}`)(w, r)
	}
	c := newClient(t, srv)

	page, err := c.TotalProfits(context.Background(), domain.Query{StatusType: "Delivered"})
	if err != nil {
		t.Fatalf("TotalProfits: %v", err)
	}
	if query != "statusType=Delivered" {
		t.Fatalf("query = %q", query)
	}
	if len(page.Items) != 2 || page.Items[0].JobNo != "101" || page.Items[1].TotalProfit != 7 {
		t.Fatalf("items = %+v", page.Items)
	}
	if page.Pagination == nil || page.Pagination.Total != 2 {
		t.Fatalf("pagination = %+v", page.Pagination)
	}
	if page.TotalProfit == nil || *page.TotalProfit != 19.5 {
		t.Fatalf("totalProfit = %v", page.TotalProfit)
	}
}

func TestBareArrayAndMissingData(t *testing.T) {
	b, srv := newBackend(t)
	b.routes["GET /api/v1/admin/reports/ongoing-jobs"] = reply(`[{"JobNo":"1"}]`)
	b.routes["GET /api/v1/admin/reports/job-status"] = reply(`{"success":true}`)
	c := newClient(t, srv)

	ongoing, err := c.OngoingJobs(context.Background(), domain.Query{})
	if err != nil || len(ongoing.Items) != 1 {
		t.Fatalf("OngoingJobs = %+v, %v", ongoing, err)
	}
	status, err := c.JobStatuses(context.Background(), domain.Query{})
	if err != nil {
		t.Fatalf("JobStatuses: %v", err)
	}
	if status.Items == nil || len(status.Items) != 0 {
		t.Fatalf("missing data should decode to an empty list, got %#v", status.Items)
	}
}

func TestMalformedAndRejected(t *testing.T) {
	b, srv := newBackend(t)
	b.routes["GET /api/v1/admin/reports/empty-containers"] = reply(`"oops"`)
	b.routes["GET /api/v1/admin/reports/client-invoices"] = reply(`{"success":false,"error":"database offline"}`)
	c := newClient(t, srv)

	if _, err := c.EmptyContainers(context.Background(), domain.Query{}); !errors.Is(err, xolog.ErrMalformedResponse) {
		t.Fatalf("err = %v, want ErrMalformedResponse", err)
	}
	_, err := c.ClientInvoices(context.Background(), domain.Query{})
	if !errors.Is(err, xolog.ErrRejected) || !strings.Contains(err.Error(), "database offline") {
		t.Fatalf("err = %v, want ErrRejected with message", err)
	}
}

func TestTokenIsCachedAndSharedAcrossCallers(t *testing.T) {
	b, srv := newBackend(t)
	b.routes["GET /api/v1/admin/reports/ongoing-jobs"] = reply(`[]`)
	c := newClient(t, srv)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.OngoingJobs(context.Background(), domain.Query{}); err != nil {
				t.Errorf("OngoingJobs: %v", err)
			}
		}()
	}
	wg.Wait()
	if _, err := c.OngoingJobs(context.Background(), domain.Query{}); err != nil {
		t.Fatalf("OngoingJobs: %v", err)
	}
	if n := b.logins.Load(); n != 1 {
		t.Fatalf("logins = %d, want 1", n)
	}
}

func TestCancelledCallerDoesNotFailSharedLogin(t *testing.T) {
	b, srv := newBackend(t)
	b.routes["GET /api/v1/admin/reports/ongoing-jobs"] = reply(`[]`)
	b.entered = make(chan struct{}, 4)
	b.hold = make(chan struct{})
	c := newClient(t, srv)

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := c.OngoingJobs(ctxA, domain.Query{})
		errA <- err
	}()
	<-b.entered

	errB := make(chan error, 1)
	go func() {
		_, err := c.OngoingJobs(context.Background(), domain.Query{})
		errB <- err
	}()
	// give the second caller time to join the sign-in in flight
	time.Sleep(50 * time.Millisecond)

	cancelA()
	select {
	case err := <-errA:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("cancelled caller err = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("cancelled caller did not return")
	}

	close(b.hold)
	select {
	case err := <-errB:
		if err != nil {
			t.Fatalf("live caller err = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("live caller did not return")
	}
	if n := b.logins.Load(); n != 1 {
		t.Fatalf("logins = %d, want 1", n)
	}
}

func TestUnauthorizedRetriesOnceWithFreshToken(t *testing.T) {
	b, srv := newBackend(t)
	b.routes["GET /api/v1/admin/reports/ongoing-jobs"] = reply(`[]`)
	c := newClient(t, srv)

	if _, err := c.OngoingJobs(context.Background(), domain.Query{}); err != nil {
		t.Fatalf("first call: %v", err)
	}
	b.revoke()
	if _, err := c.OngoingJobs(context.Background(), domain.Query{}); err != nil {
		t.Fatalf("call after revoke: %v", err)
	}
	if n := b.logins.Load(); n != 2 {
		t.Fatalf("logins = %d, want 2", n)
	}
}

func TestLoginFailureSurfacesMessage(t *testing.T) {
	_, srv := newBackend(t)
	c, err := xolog.New(xolog.Config{
		BaseURL:  srv.URL,
		Email:    "ops@example.com",
		Password: "wrong",
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = c.OngoingJobs(context.Background(), domain.Query{})
	var se *xolog.StatusError
	if !errors.As(err, &se) || se.Status != http.StatusUnauthorized || se.Message != "Invalid credentials" {
		t.Fatalf("err = %v", err)
	}
	if !errors.Is(err, xolog.ErrUnauthorized) {
		t.Fatalf("401 should wrap ErrUnauthorized")
	}
}

func TestJWTExpiryIsHonoured(t *testing.T) {
	var logins atomic.Int32
	expired := time.Now().Add(10 * time.Second).Unix()
	claims := base64.RawURLEncoding.EncodeToString([]byte(fmt.Sprintf(`{"exp":%d}`, expired)))
	tok := "h." + claims + ".s"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/auth/login" {
			logins.Add(1)
			_, _ = fmt.Fprintf(w, `{"token":%q}`, tok)
			return
		}
		_, _ = io.WriteString(w, `[]`)
	}))
	t.Cleanup(srv.Close)
	c := newClient(t, srv)

	for i := 0; i < 2; i++ {
		if _, err := c.OngoingJobs(context.Background(), domain.Query{}); err != nil {
			t.Fatalf("OngoingJobs: %v", err)
		}
	}
	// The token expires inside the refresh window, so every call signs in.
	if n := logins.Load(); n != 2 {
		t.Fatalf("logins = %d, want 2", n)
	}
}

func TestClientInvoicesWithDetails(t *testing.T) {
	b, srv := newBackend(t)
	b.routes["GET /api/v1/admin/reports/client-invoices"] = reply(`{"data":[{"JobNo":"A1"},{"JobNo":"A2"},{"JobNo":""}]}`)
	b.routes["GET /api/v1/admin/reports/invoice-details/A1"] = reply(`{"data":[{"InvoiceNo":"INV-1","TotalAmount":100},{"InvoiceNo":"INV-2","TotalAmount":50}]}`)
	b.routes["GET /api/v1/admin/reports/invoice-details/A2"] = func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"boom"}`, http.StatusInternalServerError)
	}
	c := newClient(t, srv)

	page, err := c.ClientInvoicesWithDetails(context.Background(), domain.Query{})
	if err != nil {
		t.Fatalf("ClientInvoicesWithDetails: %v", err)
	}
	if len(page.Items) != 3 {
		t.Fatalf("items = %d", len(page.Items))
	}
	if got := len(page.Items[0].Invoices); got != 2 {
		t.Fatalf("A1 invoices = %d, want 2", got)
	}
	if got := len(page.Items[1].Invoices); got != 0 {
		t.Fatalf("A2 invoices = %d, want 0 after a failed detail call", got)
	}
}

func TestSync(t *testing.T) {
	b, srv := newBackend(t)
	b.routes["POST /api/v1/sync/sync-ongoing-jobs"] = reply(`{"success":true,"message":"synced 12"}`)
	b.routes["POST /api/v1/sync/sync-empty-containers"] = reply(`{"success":false,"message":"upstream down"}`)
	c := newClient(t, srv)

	if err := c.Sync(context.Background(), domain.ResourceOngoingJobs); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	err := c.Sync(context.Background(), domain.ResourceEmptyContainers)
	if !errors.Is(err, xolog.ErrRejected) {
		t.Fatalf("err = %v, want ErrRejected", err)
	}

	var id string
	b.mu.Lock()
	for _, r := range b.seen {
		if r.URL.Path == "/api/v1/sync/sync-ongoing-jobs" {
			id = r.Header.Get("X-Request-ID")
		}
	}
	b.mu.Unlock()
	if id == "" {
		t.Fatalf("sync request carried no X-Request-ID")
	}
}
