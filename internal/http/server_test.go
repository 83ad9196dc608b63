package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"finbook/internal/amqp"
	"finbook/internal/auth"
	"finbook/internal/core"
	"finbook/internal/log"
	"finbook/internal/services"
	"finbook/internal/storage"
)

type nopPublisher struct{}

func (nopPublisher) PublishTask(ctx context.Context, msg *amqp.TaskMessage) error { return nil }

func newTestServer(t *testing.T) *Server {
	t.Helper()

	repo, err := storage.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	logger := log.New(log.Config{Level: slog.LevelError})

	authService := auth.NewService(repo, logger)
	notifications := services.NewNotificationService(repo, logger)
	entities := services.NewEntityService(repo, logger)
	budgets := services.NewBudgetService(repo, logger)
	reports := services.NewReportService(repo, 16, time.Minute, logger)
	postings := services.NewPostingService(repo, budgets, notifications, logger)
	postings.SetInvalidator(reports)
	plans := services.NewSavingsService(repo, notifications, logger)
	export := services.NewExportService(repo, logger)
	tasks := services.NewTaskService(repo, nopPublisher{}, logger)
	attachments, err := services.NewAttachmentService(repo, t.TempDir(), 1<<20, logger)
	if err != nil {
		t.Fatalf("init attachments: %v", err)
	}

	srv := NewServer(Options{
		Addr:               ":0",
		RateLimitPerMinute: 1000,
		MaxImportBytes:     1 << 20,
		MaxAttachmentBytes: 1 << 20,
	}, repo, Services{
		Auth:          authService,
		Entities:      entities,
		Postings:      postings,
		Plans:         plans,
		Budgets:       budgets,
		Reports:       reports,
		Notifications: notifications,
		Attachments:   attachments,
		Export:        export,
		Tasks:         tasks,
	}, logger)
	t.Cleanup(func() { srv.rateLimiter.stop() })
	return srv
}

func doJSON(t *testing.T, srv *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode response %q: %v", rr.Body.String(), err)
	}
	return v
}

// registerAndLogin creates a user and returns the raw session token.
func registerAndLogin(t *testing.T, srv *Server, email string) string {
	t.Helper()
	rr := doJSON(t, srv, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email": email, "password": "correct horse", "display_name": "Tester",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("register status = %d body = %s", rr.Code, rr.Body.String())
	}
	rr = doJSON(t, srv, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": email, "password": "correct horse",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("login status = %d body = %s", rr.Code, rr.Body.String())
	}
	resp := decodeBody[struct {
		Raw string `json:"raw_token"`
	}](t, rr)
	if resp.Raw == "" {
		t.Fatal("login returned empty token")
	}
	return resp.Raw
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t)
	for _, path := range []string{"/healthz", "/readyz"} {
		rr := httptest.NewRecorder()
		srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		if rr.Code != http.StatusOK {
			t.Errorf("%s status = %d", path, rr.Code)
		}
	}
}

func TestAuthRequired(t *testing.T) {
	srv := newTestServer(t)

	rr := doJSON(t, srv, http.MethodGet, "/api/v1/accounts", "", nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rr.Code)
	}

	rr = doJSON(t, srv, http.MethodGet, "/api/v1/accounts", "not-a-real-token", nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("bad token status = %d, want 401", rr.Code)
	}
}

func TestRegisterValidation(t *testing.T) {
	srv := newTestServer(t)

	cases := []struct {
		name string
		body map[string]string
		want int
	}{
		{"bad email", map[string]string{"email": "nope", "password": "longenough"}, 422},
		{"short password", map[string]string{"email": "a@b.test", "password": "short"}, 422},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := doJSON(t, srv, http.MethodPost, "/api/v1/auth/register", "", tc.body)
			if rr.Code != tc.want {
				t.Errorf("status = %d body = %s, want %d", rr.Code, rr.Body.String(), tc.want)
			}
		})
	}
}

func TestAccountCRUD(t *testing.T) {
	srv := newTestServer(t)
	token := registerAndLogin(t, srv, "crud@example.com")

	rr := doJSON(t, srv, http.MethodPost, "/api/v1/accounts", token, map[string]any{
		"name": "Checking", "kind": "checking", "active": true,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status = %d body = %s", rr.Code, rr.Body.String())
	}
	account := decodeBody[core.Account](t, rr)
	if account.ID == 0 || account.Name != "Checking" {
		t.Fatalf("created account = %+v", account)
	}

	rr = doJSON(t, srv, http.MethodGet, "/api/v1/accounts", token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("list status = %d", rr.Code)
	}
	if list := decodeBody[[]core.Account](t, rr); len(list) != 1 {
		t.Fatalf("list = %+v, want 1 account", list)
	}

	path := fmt.Sprintf("/api/v1/accounts/%d", account.ID)
	rr = doJSON(t, srv, http.MethodPut, path, token, map[string]any{
		"name": "Main Checking", "kind": "checking", "active": true,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("update status = %d body = %s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, srv, http.MethodGet, path, token, nil)
	if got := decodeBody[core.Account](t, rr); got.Name != "Main Checking" {
		t.Errorf("after update name = %q", got.Name)
	}

	rr = doJSON(t, srv, http.MethodDelete, path, token, nil)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rr.Code)
	}
	rr = doJSON(t, srv, http.MethodGet, path, token, nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("after delete status = %d, want 404", rr.Code)
	}
}

func TestCrossUserIsolation(t *testing.T) {
	srv := newTestServer(t)
	tokenA := registerAndLogin(t, srv, "alice@example.com")
	tokenB := registerAndLogin(t, srv, "bob@example.com")

	rr := doJSON(t, srv, http.MethodPost, "/api/v1/accounts", tokenA, map[string]any{
		"name": "Private", "kind": "checking", "active": true,
	})
	account := decodeBody[core.Account](t, rr)

	// Someone else's resource reads as absent, not forbidden.
	rr = doJSON(t, srv, http.MethodGet, fmt.Sprintf("/api/v1/accounts/%d", account.ID), tokenB, nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rr.Code)
	}
}

func TestPostingLifecycle(t *testing.T) {
	srv := newTestServer(t)
	token := registerAndLogin(t, srv, "ledger@example.com")

	rr := doJSON(t, srv, http.MethodPost, "/api/v1/accounts", token, map[string]any{
		"name": "Checking", "kind": "checking", "active": true,
	})
	account := decodeBody[core.Account](t, rr)

	rr = doJSON(t, srv, http.MethodPost, "/api/v1/postings", token, map[string]any{
		"kind":         "expense",
		"account_id":   account.ID,
		"booking_date": "2026-01-10",
		"amount_cents": -2500,
		"note":         "groceries",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create posting status = %d body = %s", rr.Code, rr.Body.String())
	}
	posting := decodeBody[core.Posting](t, rr)
	if posting.Amount.Cents != -2500 {
		t.Errorf("amount = %d", posting.Amount.Cents)
	}
	if !posting.ValutaDate.Equal(posting.BookingDate) {
		t.Errorf("valuta = %s, want booking date", posting.ValutaDate)
	}

	// Zero amounts are rejected.
	rr = doJSON(t, srv, http.MethodPost, "/api/v1/postings", token, map[string]any{
		"kind":         "expense",
		"account_id":   account.ID,
		"booking_date": "2026-01-10",
		"amount_cents": 0,
	})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("zero amount status = %d body = %s", rr.Code, rr.Body.String())
	}

	// The posting shows up in the report.
	rr = doJSON(t, srv, http.MethodGet, "/api/v1/reports/aggregation?from=2026-01-01&to=2026-01-31", token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("report status = %d body = %s", rr.Code, rr.Body.String())
	}
	report := decodeBody[core.Report](t, rr)
	if report.Total.Total.Cents != -2500 {
		t.Errorf("report total = %d, want -2500", report.Total.Total.Cents)
	}

	rr = doJSON(t, srv, http.MethodDelete, fmt.Sprintf("/api/v1/postings/%d", posting.ID), token, nil)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete posting status = %d", rr.Code)
	}
}

func TestAccountInUse(t *testing.T) {
	srv := newTestServer(t)
	token := registerAndLogin(t, srv, "inuse@example.com")

	rr := doJSON(t, srv, http.MethodPost, "/api/v1/accounts", token, map[string]any{
		"name": "Checking", "kind": "checking", "active": true,
	})
	account := decodeBody[core.Account](t, rr)

	rr = doJSON(t, srv, http.MethodPost, "/api/v1/postings", token, map[string]any{
		"kind":         "expense",
		"account_id":   account.ID,
		"booking_date": "2026-01-10",
		"amount_cents": -100,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create posting status = %d body = %s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, srv, http.MethodDelete, fmt.Sprintf("/api/v1/accounts/%d", account.ID), token, nil)
	if rr.Code != http.StatusConflict {
		t.Fatalf("delete referenced account status = %d, want 409", rr.Code)
	}
}

func TestReportValidationMapsTo422(t *testing.T) {
	srv := newTestServer(t)
	token := registerAndLogin(t, srv, "reports@example.com")

	rr := doJSON(t, srv, http.MethodGet, "/api/v1/reports/aggregation?from=2026-02-01&to=2026-01-01", token, nil)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d body = %s", rr.Code, rr.Body.String())
	}
	resp := decodeBody[errorResponse](t, rr)
	if resp.Error == "" {
		t.Error("expected error message in body")
	}
}

func TestExportCSVEndpoint(t *testing.T) {
	srv := newTestServer(t)
	token := registerAndLogin(t, srv, "export@example.com")

	rr := doJSON(t, srv, http.MethodGet, "/api/v1/export/postings.csv", token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); !strings.Contains(ct, "text/csv") {
		t.Errorf("content type = %q", ct)
	}
	if cd := rr.Header().Get("Content-Disposition"); !strings.Contains(cd, "attachment") {
		t.Errorf("content disposition = %q", cd)
	}
	if !strings.HasPrefix(rr.Body.String(), "booking_date,") {
		t.Errorf("body = %q", rr.Body.String())
	}
}

func TestTaskEnqueueEndpoint(t *testing.T) {
	srv := newTestServer(t)
	token := registerAndLogin(t, srv, "tasks@example.com")

	rr := doJSON(t, srv, http.MethodPost, "/api/v1/tasks/backup", token, nil)
	if rr.Code != http.StatusAccepted {
		t.Fatalf("enqueue status = %d body = %s", rr.Code, rr.Body.String())
	}
	task := decodeBody[core.Task](t, rr)
	if task.ID == "" || task.Status != core.TaskPending {
		t.Fatalf("task = %+v", task)
	}

	rr = doJSON(t, srv, http.MethodGet, "/api/v1/tasks/"+task.ID, token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("get task status = %d body = %s", rr.Code, rr.Body.String())
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t)

	// One unauthorized request and one scanner probe to move the counters.
	doJSON(t, srv, http.MethodGet, "/api/v1/accounts", "", nil)
	doJSON(t, srv, http.MethodGet, "/api/v1/.git/config", "", nil)

	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "http_requests_total 2") {
		t.Errorf("missing request counter in %q", body)
	}
	if !strings.Contains(body, "unauthorized_requests_total 1") {
		t.Errorf("missing unauthorized counter in %q", body)
	}
	if !strings.Contains(body, "suspicious_requests_total 1") {
		t.Errorf("missing suspicious counter in %q", body)
	}
}

func TestSecurityHeaders(t *testing.T) {
	srv := newTestServer(t)

	rr := doJSON(t, srv, http.MethodGet, "/api/v1/accounts", "", nil)
	if got := rr.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}
	if got := rr.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options = %q", got)
	}
}
