package pgqueue

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/queuekit/queuekit/pkg/queue"
)

// CompleteTask implements queue.WorkerRepository: terminal success.
func (s *Storage) CompleteTask(ctx context.Context, taskID uuid.UUID) error {
	const query = `
		UPDATE tasks
		SET status = $1, processed_at = now(), locked_by = NULL, updated_at = now()
		WHERE id = $2 AND status = $3`

	tag, err := s.pool.Exec(ctx, query,
		queue.TaskStatusCompleted, taskID, queue.TaskStatusProcessing)
	if err != nil {
		return fmt.Errorf("failed to complete task %s: %w", taskID, err)
	}
	if tag.RowsAffected() == 0 {
		return queue.ErrTaskNotProcessing
	}
	return nil
}

// RetryTask implements queue.WorkerRepository: the task goes back to
// pending with an incremented retry count and a later scheduled time,
// making it eligible for a future claim cycle on any node.
func (s *Storage) RetryTask(ctx context.Context, taskID uuid.UUID, errorMsg string, nextAttemptAt time.Time) error {
	const query = `
		UPDATE tasks
		SET status = $1, retry_count = retry_count + 1, error = $2,
			scheduled_at = $3, locked_by = NULL, updated_at = now()
		WHERE id = $4 AND status = $5`

	tag, err := s.pool.Exec(ctx, query,
		queue.TaskStatusPending, errorMsg, nextAttemptAt, taskID, queue.TaskStatusProcessing)
	if err != nil {
		return fmt.Errorf("failed to re-enqueue task %s: %w", taskID, err)
	}
	if tag.RowsAffected() == 0 {
		return queue.ErrTaskNotProcessing
	}
	return nil
}

// FailTask implements queue.WorkerRepository: terminal failure.
func (s *Storage) FailTask(ctx context.Context, taskID uuid.UUID, errorMsg string) error {
	const query = `
		UPDATE tasks
		SET status = $1, error = $2, processed_at = now(), locked_by = NULL, updated_at = now()
		WHERE id = $3 AND status = $4`

	tag, err := s.pool.Exec(ctx, query,
		queue.TaskStatusFailed, errorMsg, taskID, queue.TaskStatusProcessing)
	if err != nil {
		return fmt.Errorf("failed to fail task %s: %w", taskID, err)
	}
	if tag.RowsAffected() == 0 {
		return queue.ErrTaskNotProcessing
	}
	return nil
}

// MoveToDLQ implements queue.WorkerRepository: copies a terminally failed
// task into tasks_dlq and removes it from the live table, atomically.
func (s *Storage) MoveToDLQ(ctx context.Context, taskID uuid.UUID) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin DLQ transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const insertQuery = `
		INSERT INTO tasks_dlq (id, task_id, queue, task_type, task_name, payload,
			priority, organization_id, error, retry_count, failed_at, created_at)
		SELECT $1, id, queue, task_type, task_name, payload,
			priority, organization_id, COALESCE(error, ''), retry_count, now(), created_at
		FROM tasks
		WHERE id = $2`

	tag, err := tx.Exec(ctx, insertQuery, uuid.New(), taskID)
	if err != nil {
		return fmt.Errorf("failed to dead-letter task %s: %w", taskID, err)
	}
	if tag.RowsAffected() == 0 {
		return queue.ErrTaskNotFound
	}

	if _, err := tx.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, taskID); err != nil {
		return fmt.Errorf("failed to remove dead-lettered task %s: %w", taskID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit DLQ transaction: %w", err)
	}
	return nil
}

// RequeueTask is the operator escape hatch for tasks stranded in
// processing by a crashed executor: it resets the task to pending and
// makes it immediately eligible. Nothing calls this automatically, see
// the known gap documented in pkg/queue.
func (s *Storage) RequeueTask(ctx context.Context, taskID uuid.UUID) error {
	const query = `
		UPDATE tasks
		SET status = $1, locked_by = NULL, scheduled_at = now(), updated_at = now()
		WHERE id = $2 AND status = $3`

	tag, err := s.pool.Exec(ctx, query,
		queue.TaskStatusPending, taskID, queue.TaskStatusProcessing)
	if err != nil {
		return fmt.Errorf("failed to requeue task %s: %w", taskID, err)
	}
	if tag.RowsAffected() == 0 {
		return queue.ErrTaskNotProcessing
	}
	return nil
}
