// Package worker executes queued background tasks: CSV imports, database
// backups and aggregate rebuilds.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/avast/retry-go"

	"finbook/internal/amqp"
	"finbook/internal/core"
	"finbook/internal/log"
	"finbook/internal/services"
	"finbook/internal/storage"
)

// TaskWorker consumes task messages and drives the task lifecycle in the
// database: pending -> running -> succeeded/failed. Handlers are retried once
// before the task is marked failed.
type TaskWorker struct {
	repo     *storage.Repository
	importer *services.ImportService
	backup   *services.BackupService
	notifier services.Notifier
	logger   *log.Logger
}

func NewTaskWorker(repo *storage.Repository, importer *services.ImportService, backup *services.BackupService, notifier services.Notifier, logger *log.Logger) *TaskWorker {
	return &TaskWorker{
		repo:     repo,
		importer: importer,
		backup:   backup,
		notifier: notifier,
		logger:   logger.WithComponent(log.ComponentWorker),
	}
}

// HandleMessage processes one task message. It returns nil for messages that
// must not be redelivered (unknown or already-finished tasks); infrastructure
// errors propagate so the delivery is requeued.
func (w *TaskWorker) HandleMessage(ctx context.Context, msg *amqp.TaskMessage) error {
	task, err := w.repo.GetTaskAny(ctx, msg.TaskID)
	if errors.Is(err, core.ErrNotFound) {
		w.logger.WarnContext(ctx, "message references unknown task", log.FieldTaskID, msg.TaskID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load task: %w", err)
	}

	if err := w.repo.MarkTaskRunning(ctx, task.ID); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			// Someone else picked it up, or it already finished.
			w.logger.InfoContext(ctx, "task not pending, skipping",
				log.FieldTaskID, task.ID, "status", task.Status)
			return nil
		}
		return fmt.Errorf("mark task running: %w", err)
	}

	w.logger.InfoContext(ctx, "task started",
		log.FieldTaskID, task.ID,
		log.FieldTaskKind, task.Kind,
		log.FieldUserID, task.UserID)

	var result string
	runErr := retry.Do(
		func() error {
			var err error
			result, err = w.run(ctx, task)
			return err
		},
		retry.Attempts(2),
		retry.Delay(2*time.Second),
		retry.LastErrorOnly(true),
	)

	if runErr != nil {
		w.logger.ErrorContext(ctx, "task failed",
			log.FieldTaskID, task.ID, "error", runErr)
		if err := w.repo.MarkTaskFailed(ctx, task.ID, runErr.Error()); err != nil {
			return fmt.Errorf("mark task failed: %w", err)
		}
		w.notifyFinished(ctx, task, "failed: "+runErr.Error())
		return nil
	}

	if err := w.repo.MarkTaskSucceeded(ctx, task.ID, result); err != nil {
		return fmt.Errorf("mark task succeeded: %w", err)
	}
	w.logger.InfoContext(ctx, "task finished", log.FieldTaskID, task.ID)
	w.notifyFinished(ctx, task, "finished")
	return nil
}

func (w *TaskWorker) run(ctx context.Context, task core.Task) (string, error) {
	switch task.Kind {
	case core.TaskImportPostings:
		return w.runImport(ctx, task)
	case core.TaskBackup:
		return w.runBackup(ctx)
	case core.TaskRebuildAggregates:
		return w.runRebuild(ctx, task.UserID)
	default:
		return "", fmt.Errorf("unknown task kind: %s", task.Kind)
	}
}

func (w *TaskWorker) runImport(ctx context.Context, task core.Task) (string, error) {
	var payload services.ImportPayload
	if err := json.Unmarshal([]byte(task.Payload), &payload); err != nil {
		return "", fmt.Errorf("decode import payload: %w", err)
	}
	result, err := w.importer.Run(ctx, task.UserID, strings.NewReader(payload.CSV))
	if err != nil {
		return "", err
	}
	encoded, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("encode import result: %w", err)
	}
	return string(encoded), nil
}

func (w *TaskWorker) runBackup(ctx context.Context) (string, error) {
	result, err := w.backup.Run(ctx)
	if err != nil {
		return "", err
	}
	encoded, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("encode backup result: %w", err)
	}
	return string(encoded), nil
}

func (w *TaskWorker) runRebuild(ctx context.Context, userID int64) (string, error) {
	rebuilt, err := w.repo.RebuildAggregates(ctx, userID)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(`{"rows":%d}`, rebuilt), nil
}

func (w *TaskWorker) notifyFinished(ctx context.Context, task core.Task, outcome string) {
	if w.notifier == nil {
		return
	}
	title := fmt.Sprintf("Task %s %s", task.Kind, outcome)
	if err := w.notifier.Notify(ctx, task.UserID, core.NotifyTaskFinished, title, ""); err != nil {
		w.logger.WarnContext(ctx, "task notification",
			log.FieldTaskID, task.ID, "error", err)
	}
}
