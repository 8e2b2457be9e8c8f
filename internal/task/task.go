package task

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/invsync/invsync/internal/constants"
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

// Valid reports whether s is one of the known statuses.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusProcessing, TaskStatusCompleted, TaskStatusFailed:
		return true
	default:
		return false
	}
}

// Task type constants
const (
	// TaskTypeUpdateOrgInventory refreshes the stored inventory of one organization
	TaskTypeUpdateOrgInventory = constants.TaskTypeUpdateOrgInventory
)

// Task represents a unit of background work built from a Descriptor.
type Task interface {
	// ID returns the task's unique identifier, equal to its descriptor's ID
	ID() uuid.UUID

	// Type returns the task type identifier
	Type() string

	// OrgID returns the organization the task works on
	OrgID() string

	// Execute runs the task logic
	Execute(ctx context.Context) error
}

// TaskQueue accepts descriptors for later processing.
//
// Enqueue returns once the descriptor has been handed off; it never executes
// the task synchronously.
type TaskQueue interface {
	Enqueue(ctx context.Context, descriptor Descriptor) error
}

// Record is the stored state of a task.
type Record struct {
	ID           uuid.UUID       `json:"id"`
	Type         string          `json:"type"`
	OrgID        string          `json:"org_id"`
	Payload      json.RawMessage `json:"payload"`
	Status       TaskStatus      `json:"status"`
	Attempts     int             `json:"attempts"`
	ErrorMessage string          `json:"error_message,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Descriptor rebuilds the descriptor the record was saved from.
func (r *Record) Descriptor() (Descriptor, error) {
	return RestoreDescriptor(r.ID, r.Type, r.OrgID, r.Payload, r.CreatedAt, r.Attempts)
}

// TaskStore defines the interface for persisting tasks
type TaskStore interface {
	// SaveTask persists a descriptor as a pending task.
	// Returns store.ErrTaskExists if a task with the same ID is already stored.
	SaveTask(ctx context.Context, descriptor Descriptor) error

	// ClaimTask atomically moves a pending task to processing and increments
	// its attempt counter. It reports false when the task is not pending,
	// e.g. because another worker claimed it first.
	ClaimTask(ctx context.Context, taskID uuid.UUID) (attempt int, claimed bool, err error)

	// UpdateTaskStatus updates the status of a task
	UpdateTaskStatus(ctx context.Context, taskID uuid.UUID, status TaskStatus, errorMsg string) error

	// GetTask returns the stored record of a task
	GetTask(ctx context.Context, taskID uuid.UUID) (*Record, error)

	// GetPendingTasks retrieves pending tasks, oldest first.
	// A limit of zero or less returns all of them.
	GetPendingTasks(ctx context.Context, limit int) ([]Descriptor, error)

	// GetProcessingTasks retrieves tasks with "processing" status
	// If olderThan is non-zero, only returns tasks that have been in this state
	// longer than the specified duration
	GetProcessingTasks(ctx context.Context, olderThan time.Duration) ([]Descriptor, error)

	// WithTx returns a new TaskStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) TaskStore
}
