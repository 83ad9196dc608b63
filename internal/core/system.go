package core

import (
	"strings"
	"time"
)

// User is an authenticated owner of ledger data. Every entity row carries a
// user ID and services refuse cross-user access.
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"display_name"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// APIToken authenticates API requests. Only the SHA-256 hash of the raw token
// is stored; the prefix identifies tokens in listings without revealing them.
type APIToken struct {
	ID          string     `json:"id"`
	UserID      int64      `json:"-"`
	Name        string     `json:"name"`
	TokenHash   string     `json:"-"`
	TokenPrefix string     `json:"token_prefix"`
	CreatedAt   time.Time  `json:"created_at"`
	LastUsedAt  *time.Time `json:"last_used_at,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

// Expired reports whether the token has an expiry in the past.
func (t APIToken) Expired(now time.Time) bool {
	return t.ExpiresAt != nil && t.ExpiresAt.Before(now)
}

// AttachmentOwner names the entity kind an attachment hangs off.
type AttachmentOwner string

const (
	OwnerPosting AttachmentOwner = "posting"
	OwnerAccount AttachmentOwner = "account"
	OwnerContact AttachmentOwner = "contact"
)

// ParseAttachmentOwner validates a wire-format owner kind.
func ParseAttachmentOwner(s string) (AttachmentOwner, error) {
	switch o := AttachmentOwner(strings.TrimSpace(strings.ToLower(s))); o {
	case OwnerPosting, OwnerAccount, OwnerContact:
		return o, nil
	default:
		return "", ErrInvalidOwnerKind
	}
}

// Attachment is file metadata; the payload lives on disk under the data
// directory, named by the attachment ID.
type Attachment struct {
	ID          string          `json:"id"`
	UserID      int64           `json:"-"`
	OwnerKind   AttachmentOwner `json:"owner_kind"`
	OwnerID     int64           `json:"owner_id"`
	FileName    string          `json:"file_name"`
	ContentType string          `json:"content_type"`
	SizeBytes   int64           `json:"size_bytes"`
	CreatedAt   time.Time       `json:"created_at"`
}

// NotificationKind classifies in-app notifications.
type NotificationKind string

const (
	NotifyBudgetExceeded  NotificationKind = "budget_exceeded"
	NotifyTaskFinished    NotificationKind = "task_finished"
	NotifySavingsExecuted NotificationKind = "savings_executed"
)

// Notification is an in-app message for a user. ReadAt is nil while unread.
type Notification struct {
	ID        int64            `json:"id"`
	UserID    int64            `json:"-"`
	Kind      NotificationKind `json:"kind"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	CreatedAt time.Time        `json:"created_at"`
	ReadAt    *time.Time       `json:"read_at,omitempty"`
}

// TaskKind names a queued background job.
type TaskKind string

const (
	TaskImportPostings    TaskKind = "import_postings"
	TaskBackup            TaskKind = "backup"
	TaskRebuildAggregates TaskKind = "rebuild_aggregates"
)

// TaskStatus is the lifecycle state of a queued task.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskRunning   TaskStatus = "running"
	TaskSucceeded TaskStatus = "succeeded"
	TaskFailed    TaskStatus = "failed"
)

// Task is a long-running job executed by the worker. Payload and Result are
// JSON blobs whose shape depends on the kind.
type Task struct {
	ID         string     `json:"id"`
	UserID     int64      `json:"-"`
	Kind       TaskKind   `json:"kind"`
	Status     TaskStatus `json:"status"`
	Payload    string     `json:"-"`
	Result     string     `json:"result,omitempty"`
	Error      string     `json:"error,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}
