package queue

import (
	"time"

	"github.com/google/uuid"
)

// DefaultQueueName is used when no queue is specified on enqueue or claim.
const DefaultQueueName = "default"

// TaskType distinguishes one-shot work from scheduler-generated periodic work.
type TaskType string

const (
	TaskTypeOneTime  TaskType = "one-time"
	TaskTypePeriodic TaskType = "periodic"
)

// TaskStatus represents the lifecycle state of a task.
//
// A task is eligible for claiming only while pending and once its
// ScheduledAt has passed. Completed and failed are terminal: no claim
// or execution ever touches a task again after it reaches one of them.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// Terminal reports whether no further transition may happen from this status.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

// Priority is an ordering hint among tasks that are eligible at the same
// instant (0-100, higher wins). It never overrides ScheduledAt ordering
// within a claimed batch.
type Priority int8

const (
	PriorityMin     Priority = 0
	PriorityLow     Priority = 25
	PriorityMedium  Priority = 50
	PriorityHigh    Priority = 75
	PriorityMax     Priority = 100
	PriorityDefault Priority = PriorityMedium
)

// Valid checks if the priority is within valid range.
func (p Priority) Valid() bool {
	return p >= PriorityMin && p <= PriorityMax
}

// Batch size presets for claim cycles. Any positive size is accepted by
// the repositories; these are the values used in practice.
const (
	BatchSingle  = 1
	BatchDefault = 10
	BatchBulk    = 100
)

// Task is one unit of deferred work persisted in the shared store.
//
// ID is assigned at creation and immutable. ScheduledAt gates claim
// eligibility and orders tasks within a batch. UpdatedAt is refreshed by
// every state transition, including the bulk claim flip, and strictly
// increases over a task's lifetime.
type Task struct {
	ID             uuid.UUID  `json:"id"`
	Queue          string     `json:"queue"`
	TaskType       TaskType   `json:"task_type"`
	TaskName       string     `json:"task_name"`
	Payload        []byte     `json:"payload,omitempty"`
	Status         TaskStatus `json:"status"`
	Priority       Priority   `json:"priority"`
	RetryCount     int8       `json:"retry_count"`
	MaxRetries     int8       `json:"max_retries"`
	ScheduledAt    time.Time  `json:"scheduled_at"`
	OrganizationID *uuid.UUID `json:"organization_id,omitempty"` // nil for system-level tasks
	LockedBy       *uuid.UUID `json:"locked_by,omitempty"`       // node that claimed the task, audit only
	ProcessedAt    *time.Time `json:"processed_at,omitempty"`
	Error          *string    `json:"error,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// TasksDlq is a dead-lettered task: it exhausted its retries (or had no
// registered handler) and is kept aside for manual inspection and requeue.
type TasksDlq struct {
	ID             uuid.UUID  `json:"id"`
	TaskID         uuid.UUID  `json:"task_id"`
	Queue          string     `json:"queue"`
	TaskType       TaskType   `json:"task_type"`
	TaskName       string     `json:"task_name"`
	Payload        []byte     `json:"payload,omitempty"`
	Priority       Priority   `json:"priority"`
	OrganizationID *uuid.UUID `json:"organization_id,omitempty"`
	Error          string     `json:"error"`
	RetryCount     int8       `json:"retry_count"`
	FailedAt       time.Time  `json:"failed_at"`
	CreatedAt      time.Time  `json:"created_at"`
}
