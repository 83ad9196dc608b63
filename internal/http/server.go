// Package http exposes the REST API. All routes live under /api/v1 and,
// except the auth and health endpoints, require a Bearer API token.
package http

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"finbook/internal/auth"
	"finbook/internal/log"
	"finbook/internal/services"
	"finbook/internal/storage"
)

// Services bundles the application services the API serves.
type Services struct {
	Auth          *auth.Service
	Entities      *services.EntityService
	Postings      *services.PostingService
	Plans         *services.SavingsService
	Budgets       *services.BudgetService
	Reports       *services.ReportService
	Notifications *services.NotificationService
	Attachments   *services.AttachmentService
	Export        *services.ExportService
	Tasks         *services.TaskService
}

// Options tunes server behavior.
type Options struct {
	Addr               string
	RateLimitPerMinute int
	MaxImportBytes     int64
	MaxAttachmentBytes int64
}

type Server struct {
	http.Server

	repo    *storage.Repository
	svc     Services
	auth    *auth.Service
	opts    Options
	logger  *log.Logger
	metrics *securityMetrics

	rateLimiter  *rateLimiter
	startTime    time.Time
	shutdownOnce sync.Once
}

// NewServer wires routes and middleware, returning a ready-to-run server.
func NewServer(opts Options, repo *storage.Repository, svc Services, logger *log.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:              opts.Addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		repo:        repo,
		svc:         svc,
		auth:        svc.Auth,
		opts:        opts,
		logger:      logger.WithComponent(log.ComponentHTTP),
		metrics:     &securityMetrics{},
		rateLimiter: newRateLimiter(opts.RateLimitPerMinute),
		startTime:   time.Now(),
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	api := http.NewServeMux()
	mux.Handle("/api/v1/", s.withCommon(http.StripPrefix("/api/v1", api)))

	api.HandleFunc("POST /auth/register", s.handleRegister)
	api.HandleFunc("POST /auth/login", s.handleLogin)
	api.HandleFunc("GET /auth/tokens", s.withAuth(s.handleListTokens))
	api.HandleFunc("POST /auth/tokens", s.withAuth(s.handleCreateToken))
	api.HandleFunc("DELETE /auth/tokens/{id}", s.withAuth(s.handleRevokeToken))

	api.HandleFunc("GET /accounts", s.withAuth(s.handleListAccounts))
	api.HandleFunc("POST /accounts", s.withAuth(s.handleCreateAccount))
	api.HandleFunc("GET /accounts/{id}", s.withAuth(s.handleGetAccount))
	api.HandleFunc("PUT /accounts/{id}", s.withAuth(s.handleUpdateAccount))
	api.HandleFunc("DELETE /accounts/{id}", s.withAuth(s.handleDeleteAccount))

	api.HandleFunc("GET /contacts", s.withAuth(s.handleListContacts))
	api.HandleFunc("POST /contacts", s.withAuth(s.handleCreateContact))
	api.HandleFunc("GET /contacts/{id}", s.withAuth(s.handleGetContact))
	api.HandleFunc("PUT /contacts/{id}", s.withAuth(s.handleUpdateContact))
	api.HandleFunc("DELETE /contacts/{id}", s.withAuth(s.handleDeleteContact))

	api.HandleFunc("GET /securities", s.withAuth(s.handleListSecurities))
	api.HandleFunc("POST /securities", s.withAuth(s.handleCreateSecurity))
	api.HandleFunc("GET /securities/{id}", s.withAuth(s.handleGetSecurity))
	api.HandleFunc("PUT /securities/{id}", s.withAuth(s.handleUpdateSecurity))
	api.HandleFunc("DELETE /securities/{id}", s.withAuth(s.handleDeleteSecurity))

	api.HandleFunc("GET /categories", s.withAuth(s.handleListCategories))
	api.HandleFunc("POST /categories", s.withAuth(s.handleCreateCategory))
	api.HandleFunc("GET /categories/{id}", s.withAuth(s.handleGetCategory))
	api.HandleFunc("PUT /categories/{id}", s.withAuth(s.handleUpdateCategory))
	api.HandleFunc("DELETE /categories/{id}", s.withAuth(s.handleDeleteCategory))

	api.HandleFunc("GET /postings", s.withAuth(s.handleListPostings))
	api.HandleFunc("POST /postings", s.withAuth(s.handleCreatePosting))
	api.HandleFunc("GET /postings/{id}", s.withAuth(s.handleGetPosting))
	api.HandleFunc("PUT /postings/{id}", s.withAuth(s.handleUpdatePosting))
	api.HandleFunc("DELETE /postings/{id}", s.withAuth(s.handleDeletePosting))
	api.HandleFunc("GET /postings/{id}/attachments", s.withAuth(s.handleListPostingAttachments))

	api.HandleFunc("GET /savings-plans", s.withAuth(s.handleListPlans))
	api.HandleFunc("POST /savings-plans", s.withAuth(s.handleCreatePlan))
	api.HandleFunc("GET /savings-plans/{id}", s.withAuth(s.handleGetPlan))
	api.HandleFunc("PUT /savings-plans/{id}", s.withAuth(s.handleUpdatePlan))
	api.HandleFunc("DELETE /savings-plans/{id}", s.withAuth(s.handleDeletePlan))
	api.HandleFunc("POST /savings-plans/{id}/execute", s.withAuth(s.handleExecutePlan))

	api.HandleFunc("GET /budgets", s.withAuth(s.handleListBudgets))
	api.HandleFunc("POST /budgets", s.withAuth(s.handleCreateBudget))
	api.HandleFunc("GET /budgets/{id}", s.withAuth(s.handleGetBudget))
	api.HandleFunc("PUT /budgets/{id}", s.withAuth(s.handleUpdateBudget))
	api.HandleFunc("DELETE /budgets/{id}", s.withAuth(s.handleDeleteBudget))
	api.HandleFunc("GET /budgets/{id}/status", s.withAuth(s.handleBudgetStatus))

	api.HandleFunc("GET /reports/aggregation", s.withAuth(s.handleReport))

	api.HandleFunc("GET /export/postings.csv", s.withAuth(s.handleExportCSV))
	api.HandleFunc("GET /export/postings.xlsx", s.withAuth(s.handleExportXLSX))
	api.HandleFunc("GET /export/report.csv", s.withAuth(s.handleExportReportCSV))

	api.HandleFunc("POST /attachments", s.withAuth(s.handleUploadAttachment))
	api.HandleFunc("GET /attachments/{id}", s.withAuth(s.handleGetAttachment))
	api.HandleFunc("GET /attachments/{id}/content", s.withAuth(s.handleAttachmentContent))
	api.HandleFunc("DELETE /attachments/{id}", s.withAuth(s.handleDeleteAttachment))

	api.HandleFunc("GET /notifications", s.withAuth(s.handleListNotifications))
	api.HandleFunc("POST /notifications/{id}/read", s.withAuth(s.handleMarkNotificationRead))
	api.HandleFunc("POST /notifications/read-all", s.withAuth(s.handleMarkAllNotificationsRead))

	api.HandleFunc("POST /tasks/import", s.withAuth(s.handleImportTask))
	api.HandleFunc("POST /tasks/backup", s.withAuth(s.handleBackupTask))
	api.HandleFunc("POST /tasks/rebuild-aggregates", s.withAuth(s.handleRebuildTask))
	api.HandleFunc("GET /tasks", s.withAuth(s.handleListTasks))
	api.HandleFunc("GET /tasks/{id}", s.withAuth(s.handleGetTask))

	return s
}

// Shutdown gracefully shuts down the server and its cleanup goroutines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.repo.Ping(ctx); err != nil {
		s.logger.ErrorContext(ctx, "readiness check failed", log.FieldError, err)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("database unavailable"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// handleMetrics exposes operational counters in Prometheus text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	fmt.Fprintf(w, "# HELP http_requests_total Total number of HTTP requests\n")
	fmt.Fprintf(w, "# TYPE http_requests_total counter\n")
	fmt.Fprintf(w, "http_requests_total %d\n\n", atomic.LoadInt64(&s.metrics.totalRequests))

	fmt.Fprintf(w, "# HELP rate_limit_hits_total Total rate limit hits\n")
	fmt.Fprintf(w, "# TYPE rate_limit_hits_total counter\n")
	fmt.Fprintf(w, "rate_limit_hits_total %d\n\n", atomic.LoadInt64(&s.metrics.rateLimitHits))

	fmt.Fprintf(w, "# HELP unauthorized_requests_total Total requests rejected by authentication\n")
	fmt.Fprintf(w, "# TYPE unauthorized_requests_total counter\n")
	fmt.Fprintf(w, "unauthorized_requests_total %d\n\n", atomic.LoadInt64(&s.metrics.unauthorized))

	fmt.Fprintf(w, "# HELP suspicious_requests_total Total suspicious requests detected\n")
	fmt.Fprintf(w, "# TYPE suspicious_requests_total counter\n")
	fmt.Fprintf(w, "suspicious_requests_total %d\n\n", atomic.LoadInt64(&s.metrics.suspiciousRequests))

	fmt.Fprintf(w, "# HELP report_cache_entries Current report cache entries\n")
	fmt.Fprintf(w, "# TYPE report_cache_entries gauge\n")
	fmt.Fprintf(w, "report_cache_entries %d\n\n", s.svc.Reports.Cache().Size())

	fmt.Fprintf(w, "# HELP active_rate_limit_clients Currently tracked rate limit clients\n")
	fmt.Fprintf(w, "# TYPE active_rate_limit_clients gauge\n")
	fmt.Fprintf(w, "active_rate_limit_clients %d\n\n", s.rateLimiter.activeClients())

	fmt.Fprintf(w, "# HELP uptime_seconds Server uptime in seconds\n")
	fmt.Fprintf(w, "# TYPE uptime_seconds gauge\n")
	fmt.Fprintf(w, "uptime_seconds %.0f\n", time.Since(s.startTime).Seconds())
}
