package queue

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStorage implements all queue repository interfaces in memory for
// tests and local development. It mirrors the Postgres repository's claim
// semantics: a batch claim is atomic under the storage mutex, returns
// tasks in ascending scheduled time, and flips them to processing before
// returning, so no two concurrent claims ever see the same task.
//
// Like the Postgres repository it performs no automatic recovery of
// processing tasks; a task claimed by a crashed caller stays processing
// until explicitly requeued.
type MemoryStorage struct {
	mu    sync.RWMutex
	tasks map[uuid.UUID]*Task
	dlq   map[uuid.UUID]*TasksDlq
}

// NewMemoryStorage creates a new in-memory storage implementation
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		tasks: make(map[uuid.UUID]*Task),
		dlq:   make(map[uuid.UUID]*TasksDlq),
	}
}

// CreateTask implements EnqueuerRepository and SchedulerRepository
func (ms *MemoryStorage) CreateTask(ctx context.Context, task *Task) error {
	if task == nil {
		return errors.New("task cannot be nil")
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	if _, exists := ms.tasks[task.ID]; exists {
		return fmt.Errorf("task with ID %s already exists", task.ID)
	}

	// Clone task to prevent external modifications
	taskCopy := *task
	ms.tasks[task.ID] = &taskCopy

	return nil
}

// ClaimBatch implements WorkerRepository. Eligibility is status=pending
// and scheduled_at in the past; the returned batch is ordered by
// ascending scheduled time with priority breaking ties.
func (ms *MemoryStorage) ClaimBatch(ctx context.Context, nodeID uuid.UUID, queues []string, limit int) ([]Task, error) {
	if limit <= 0 {
		return nil, ErrInvalidBatchSize
	}
	if len(queues) == 0 {
		queues = []string{DefaultQueueName}
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := time.Now()

	var eligible []*Task
	for _, task := range ms.tasks {
		if task.Status != TaskStatusPending {
			continue
		}
		if !slices.Contains(queues, task.Queue) {
			continue
		}
		if task.ScheduledAt.After(now) {
			continue
		}
		eligible = append(eligible, task)
	}

	if len(eligible) == 0 {
		return nil, ErrNoTaskToClaim
	}

	sort.Slice(eligible, func(i, j int) bool {
		if !eligible[i].ScheduledAt.Equal(eligible[j].ScheduledAt) {
			return eligible[i].ScheduledAt.Before(eligible[j].ScheduledAt)
		}
		return eligible[i].Priority > eligible[j].Priority
	})

	if len(eligible) > limit {
		eligible = eligible[:limit]
	}

	claimed := make([]Task, 0, len(eligible))
	for _, task := range eligible {
		task.Status = TaskStatusProcessing
		task.LockedBy = &nodeID
		task.UpdatedAt = laterThan(now, task.UpdatedAt)

		claimed = append(claimed, *task)
	}

	return claimed, nil
}

// CompleteTask implements WorkerRepository
func (ms *MemoryStorage) CompleteTask(ctx context.Context, taskID uuid.UUID) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	task, exists := ms.tasks[taskID]
	if !exists {
		return ErrTaskNotFound
	}

	if task.Status != TaskStatusProcessing {
		return ErrTaskNotProcessing
	}

	now := time.Now()
	task.Status = TaskStatusCompleted
	task.ProcessedAt = &now
	task.UpdatedAt = laterThan(now, task.UpdatedAt)

	return nil
}

// RetryTask implements WorkerRepository: the task returns to pending with
// a later scheduled time and an incremented retry count.
func (ms *MemoryStorage) RetryTask(ctx context.Context, taskID uuid.UUID, errorMsg string, nextAttemptAt time.Time) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	task, exists := ms.tasks[taskID]
	if !exists {
		return ErrTaskNotFound
	}

	if task.Status != TaskStatusProcessing {
		return ErrTaskNotProcessing
	}

	task.Status = TaskStatusPending
	task.RetryCount++
	task.Error = &errorMsg
	task.ScheduledAt = nextAttemptAt
	task.LockedBy = nil
	task.UpdatedAt = laterThan(time.Now(), task.UpdatedAt)

	return nil
}

// FailTask implements WorkerRepository: terminal failure.
func (ms *MemoryStorage) FailTask(ctx context.Context, taskID uuid.UUID, errorMsg string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	task, exists := ms.tasks[taskID]
	if !exists {
		return ErrTaskNotFound
	}

	if task.Status != TaskStatusProcessing {
		return ErrTaskNotProcessing
	}

	now := time.Now()
	task.Status = TaskStatusFailed
	task.Error = &errorMsg
	task.ProcessedAt = &now
	task.LockedBy = nil
	task.UpdatedAt = laterThan(now, task.UpdatedAt)

	return nil
}

// MoveToDLQ implements WorkerRepository
func (ms *MemoryStorage) MoveToDLQ(ctx context.Context, taskID uuid.UUID) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	task, exists := ms.tasks[taskID]
	if !exists {
		return ErrTaskNotFound
	}

	dlqEntry := &TasksDlq{
		ID:             uuid.New(),
		TaskID:         task.ID,
		Queue:          task.Queue,
		TaskType:       task.TaskType,
		TaskName:       task.TaskName,
		Payload:        task.Payload,
		Priority:       task.Priority,
		OrganizationID: task.OrganizationID,
		RetryCount:     task.RetryCount,
		FailedAt:       time.Now(),
		CreatedAt:      time.Now(),
	}
	if task.Error != nil {
		dlqEntry.Error = *task.Error
	}

	ms.dlq[dlqEntry.ID] = dlqEntry
	delete(ms.tasks, taskID)

	return nil
}

// GetPendingTaskByName implements SchedulerRepository
func (ms *MemoryStorage) GetPendingTaskByName(ctx context.Context, taskName string) (*Task, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	for _, task := range ms.tasks {
		if task.TaskName == taskName && task.Status == TaskStatusPending {
			taskCopy := *task
			return &taskCopy, nil
		}
	}

	return nil, ErrTaskNotFound
}

// GetTask returns a copy of a task by id, mostly for assertions in tests.
func (ms *MemoryStorage) GetTask(taskID uuid.UUID) (*Task, bool) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	task, exists := ms.tasks[taskID]
	if !exists {
		return nil, false
	}
	taskCopy := *task
	return &taskCopy, true
}

// DLQSize returns the number of dead-lettered tasks.
func (ms *MemoryStorage) DLQSize() int {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	return len(ms.dlq)
}

// laterThan keeps UpdatedAt strictly increasing even when two transitions
// land within the clock's resolution.
func laterThan(now, prev time.Time) time.Time {
	if now.After(prev) {
		return now
	}
	return prev.Add(time.Nanosecond)
}
