package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"finbook/internal/core"
)

const taskColumns = `id, user_id, kind, status, payload, result, error, created_at, started_at, finished_at`

func (r *Repository) CreateTask(ctx context.Context, t core.Task) (core.Task, error) {
	t.Status = core.TaskPending
	t.CreatedAt = time.Now().UTC()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO tasks (id, user_id, kind, status, payload, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, string(t.Kind), string(t.Status), t.Payload, t.CreatedAt)
	if err != nil {
		return core.Task{}, fmt.Errorf("insert task: %w", err)
	}
	return t, nil
}

func (r *Repository) GetTask(ctx context.Context, userID int64, id string) (core.Task, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = ? AND user_id = ?`, id, userID)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Task{}, core.ErrNotFound
	}
	if err != nil {
		return core.Task{}, fmt.Errorf("select task: %w", err)
	}
	return t, nil
}

// GetTaskAny loads a task regardless of owner. The worker resolves the user
// from the task row itself.
func (r *Repository) GetTaskAny(ctx context.Context, id string) (core.Task, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Task{}, core.ErrNotFound
	}
	if err != nil {
		return core.Task{}, fmt.Errorf("select task: %w", err)
	}
	return t, nil
}

func (r *Repository) ListTasks(ctx context.Context, userID int64, limit int) ([]core.Task, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE user_id = ?
		 ORDER BY created_at DESC, id DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("select tasks: %w", err)
	}
	defer rows.Close()

	var tasks []core.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// MarkTaskRunning transitions a pending task to running. A task already picked
// up by another worker stays untouched and ErrNotFound is returned.
func (r *Repository) MarkTaskRunning(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE tasks SET status = ?, started_at = ? WHERE id = ? AND status = ?`,
		string(core.TaskRunning), time.Now().UTC(), id, string(core.TaskPending))
	if err != nil {
		return fmt.Errorf("mark task running: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *Repository) MarkTaskSucceeded(ctx context.Context, id, result string) error {
	return r.finishTask(ctx, id, core.TaskSucceeded, result, "")
}

func (r *Repository) MarkTaskFailed(ctx context.Context, id, taskErr string) error {
	return r.finishTask(ctx, id, core.TaskFailed, "", taskErr)
}

func (r *Repository) finishTask(ctx context.Context, id string, status core.TaskStatus, result, taskErr string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE tasks SET status = ?, result = ?, error = ?, finished_at = ? WHERE id = ?`,
		string(status), result, taskErr, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("finish task: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func scanTask(row rowScanner) (core.Task, error) {
	var t core.Task
	var startedAt, finishedAt sql.NullTime
	err := row.Scan(&t.ID, &t.UserID, &t.Kind, &t.Status, &t.Payload, &t.Result,
		&t.Error, &t.CreatedAt, &startedAt, &finishedAt)
	if err != nil {
		return core.Task{}, err
	}
	t.StartedAt = timePtr(startedAt)
	t.FinishedAt = timePtr(finishedAt)
	return t, nil
}
