// finbook is the API server: REST surface over the SQLite ledger, with task
// publishing to AMQP for the background worker.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"finbook/internal/amqp"
	"finbook/internal/auth"
	"finbook/internal/cache"
	"finbook/internal/cli"
	apphttp "finbook/internal/http"
	"finbook/internal/log"
	"finbook/internal/services"
)

func main() {
	cfg, logger := cli.Init(log.ComponentApp)

	repo := cli.OpenRepository(cfg, logger)
	defer repo.Close()

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("connect to amqp", log.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	authService := auth.NewService(repo, logger)
	notifications := services.NewNotificationService(repo, logger)
	entities := services.NewEntityService(repo, logger)
	budgets := services.NewBudgetService(repo, logger)
	reports := services.NewReportService(repo, cfg.ReportCacheSize, cfg.ReportCacheTTL, logger)
	postings := services.NewPostingService(repo, budgets, notifications, logger)
	postings.SetInvalidator(reports)
	plans := services.NewSavingsService(repo, notifications, logger)
	plans.SetInvalidator(reports)
	export := services.NewExportService(repo, logger)
	tasks := services.NewTaskService(repo, amqpClient, logger)

	attachments, err := services.NewAttachmentService(repo, cfg.AttachmentsDir, cfg.MaxAttachmentBytes, logger)
	if err != nil {
		logger.Error("init attachments", log.FieldError, err)
		os.Exit(1)
	}

	// Periodic expiry sweep over the report cache.
	cacheManager := cache.NewManager()
	cacheManager.Register(reports.Cache())
	cacheManager.StartCleanup(10 * time.Minute)
	defer cacheManager.Stop()

	srv := apphttp.NewServer(apphttp.Options{
		Addr:               ":" + cfg.Port,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		MaxImportBytes:     cfg.MaxImportBytes,
		MaxAttachmentBytes: cfg.MaxAttachmentBytes,
	}, repo, apphttp.Services{
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

	srv.ReadTimeout = 30 * time.Second
	srv.WriteTimeout = 60 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown", log.FieldError, err)
		}
		cancel()
	}()

	logger.Info("starting finbook server", "port", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("server stopped gracefully")
}
