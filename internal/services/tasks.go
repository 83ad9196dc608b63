package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"finbook/internal/amqp"
	"finbook/internal/core"
	"finbook/internal/log"
	"finbook/internal/storage"
)

// TaskPublisher hands a task reference to the queue. Implemented by the AMQP
// client.
type TaskPublisher interface {
	PublishTask(ctx context.Context, msg *amqp.TaskMessage) error
}

// ImportPayload is the stored payload of an import task: the uploaded CSV,
// kept verbatim so the worker parses exactly what the client sent.
type ImportPayload struct {
	CSV string `json:"csv"`
}

// TaskService enqueues background jobs: a row in the tasks table plus a
// message on the queue. The row is the source of truth; the message is just
// the wake-up call.
type TaskService struct {
	repo      *storage.Repository
	publisher TaskPublisher
	logger    *log.Logger
}

func NewTaskService(repo *storage.Repository, publisher TaskPublisher, logger *log.Logger) *TaskService {
	return &TaskService{
		repo:      repo,
		publisher: publisher,
		logger:    logger.WithComponent(log.ComponentWorker),
	}
}

// Enqueue persists a pending task and publishes its reference. payload must
// be JSON-marshalable; nil means an empty payload.
func (s *TaskService) Enqueue(ctx context.Context, userID int64, kind core.TaskKind, payload any) (core.Task, error) {
	body := ""
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return core.Task{}, fmt.Errorf("marshal task payload: %w", err)
		}
		body = string(raw)
	}

	task, err := s.repo.CreateTask(ctx, core.Task{
		ID:      uuid.NewString(),
		UserID:  userID,
		Kind:    kind,
		Payload: body,
	})
	if err != nil {
		return core.Task{}, err
	}

	if err := s.publisher.PublishTask(ctx, amqp.NewTaskMessage(task.ID, kind)); err != nil {
		// The row stays pending; a later worker sweep or manual requeue can
		// still pick it up, so surface the error but keep the task.
		s.logger.ErrorContext(ctx, "publish task message",
			log.FieldTaskID, task.ID, "error", err)
		return task, fmt.Errorf("publish task: %w", err)
	}

	s.logger.InfoContext(ctx, "task enqueued",
		log.FieldUserID, userID,
		log.FieldTaskID, task.ID,
		log.FieldTaskKind, kind)
	return task, nil
}

func (s *TaskService) Get(ctx context.Context, userID int64, id string) (core.Task, error) {
	return s.repo.GetTask(ctx, userID, id)
}

func (s *TaskService) List(ctx context.Context, userID int64, limit int) ([]core.Task, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.repo.ListTasks(ctx, userID, limit)
}
