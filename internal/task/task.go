package task

import (
	"context"

	"github.com/google/uuid"
)

// TaskStatus represents the current state of a task
type TaskStatus string

// Possible task status values
const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// Task represents a unit of background work to be processed
type Task interface {
	// ID returns the task's unique identifier
	ID() uuid.UUID

	// Type returns the task type identifier
	Type() string

	// Payload returns the task data as a byte slice
	Payload() []byte

	// Execute runs the task logic
	Execute(ctx context.Context) error
}

// Tracker receives task lifecycle notifications from the runner. The Registry
// implements it; terminal marks are ignored for tasks that already finished
// through their own result reporting.
type Tracker interface {
	MarkProcessing(taskID uuid.UUID)
	MarkFailed(taskID uuid.UUID, message string)
	MarkCompleted(taskID uuid.UUID)
}
