package amqp

import (
	"testing"
	"time"

	"finbook/internal/core"
)

func TestNewTaskMessage(t *testing.T) {
	msg := NewTaskMessage("task-123", core.TaskBackup)

	if msg.TaskID != "task-123" {
		t.Errorf("NewTaskMessage() TaskID = %v, want task-123", msg.TaskID)
	}
	if msg.Kind != core.TaskBackup {
		t.Errorf("NewTaskMessage() Kind = %v, want %v", msg.Kind, core.TaskBackup)
	}
	if msg.Timestamp.IsZero() {
		t.Error("NewTaskMessage() Timestamp should not be zero")
	}
	if time.Since(msg.Timestamp) > time.Second {
		t.Error("NewTaskMessage() Timestamp should be recent")
	}
}

func TestTaskMessage_JSON(t *testing.T) {
	timestamp := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	msg := &TaskMessage{
		TaskID:    "task-123",
		Kind:      core.TaskImportPostings,
		Timestamp: timestamp,
	}

	jsonBytes, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}

	parsed, err := TaskMessageFromJSON(jsonBytes)
	if err != nil {
		t.Fatalf("TaskMessageFromJSON() error = %v", err)
	}

	if parsed.TaskID != msg.TaskID {
		t.Errorf("Parsed TaskID = %v, want %v", parsed.TaskID, msg.TaskID)
	}
	if parsed.Kind != msg.Kind {
		t.Errorf("Parsed Kind = %v, want %v", parsed.Kind, msg.Kind)
	}
	if !parsed.Timestamp.Equal(msg.Timestamp) {
		t.Errorf("Parsed Timestamp = %v, want %v", parsed.Timestamp, msg.Timestamp)
	}
}

func TestTaskMessage_InvalidJSON(t *testing.T) {
	invalidJSON := []byte(`{"task_id": 42, "kind": []}`)

	if _, err := TaskMessageFromJSON(invalidJSON); err == nil {
		t.Error("TaskMessageFromJSON() should fail with invalid JSON")
	}
}
