// finbook-worker consumes task messages from AMQP and executes imports,
// backups and aggregate rebuilds against the shared SQLite database.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"finbook/internal/amqp"
	"finbook/internal/cli"
	"finbook/internal/drive"
	"finbook/internal/log"
	"finbook/internal/services"
	"finbook/internal/worker"
)

func main() {
	cfg, logger := cli.Init(log.ComponentWorker)

	repo := cli.OpenRepository(cfg, logger)
	defer repo.Close()

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("connect to amqp", log.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var uploader services.Uploader
	if cfg.DriveUploadEnabled() {
		client, err := drive.NewClient(ctx, cfg.DriveOAuthClientFile, cfg.DriveOAuthTokenFile, cfg.DriveFolderID)
		if err != nil {
			logger.Error("init drive client", log.FieldError, err)
			os.Exit(1)
		}
		uploader = client
		logger.Info("backup uploads to google drive enabled")
	} else {
		logger.Info("backup uploads disabled")
	}

	notifications := services.NewNotificationService(repo, logger)
	importer := services.NewImportService(repo, logger)
	backup, err := services.NewBackupService(repo, cfg.BackupDir, cfg.AttachmentsDir, uploader, logger)
	if err != nil {
		logger.Error("init backup service", log.FieldError, err)
		os.Exit(1)
	}

	taskWorker := worker.NewTaskWorker(repo, importer, backup, notifications, logger)

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("shutdown signal received", "signal", sig.String())
		cancel()
	}()

	logger.Info("starting finbook-worker", "queue", cfg.AMQPQueue)
	err = amqpClient.ConsumeTasks(ctx, func(msg *amqp.TaskMessage) error {
		return taskWorker.HandleMessage(ctx, msg)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("task consumption failed", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("worker stopped gracefully")
}
