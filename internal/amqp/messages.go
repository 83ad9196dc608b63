// Package amqp connects the API to the task worker through RabbitMQ. The API
// publishes lightweight task references; the worker loads the full task row
// from the database.
package amqp

import (
	"encoding/json"
	"time"

	"finbook/internal/core"
)

// TaskMessage tells the worker which queued task to run. Only the ID travels
// over the wire; payload and ownership live in the tasks table.
type TaskMessage struct {
	TaskID    string        `json:"task_id"`
	Kind      core.TaskKind `json:"kind"`
	Timestamp time.Time     `json:"timestamp"`
}

func NewTaskMessage(taskID string, kind core.TaskKind) *TaskMessage {
	return &TaskMessage{
		TaskID:    taskID,
		Kind:      kind,
		Timestamp: time.Now(),
	}
}

func (m *TaskMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func TaskMessageFromJSON(data []byte) (*TaskMessage, error) {
	var msg TaskMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
