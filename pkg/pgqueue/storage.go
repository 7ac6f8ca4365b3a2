package pgqueue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/queuekit/queuekit/pkg/queue"
)

// Storage implements the queue repository interfaces on PostgreSQL.
// It is safe for concurrent use from any number of nodes; see ClaimBatch
// for the synchronization contract.
type Storage struct {
	pool     *pgxpool.Pool
	lockWait time.Duration
}

// Option configures Storage creation.
type Option func(*Storage)

// WithLockWait bounds how long a claim query may wait for row locks held
// by a concurrent claim before giving up with queue.ErrLockTimeout.
func WithLockWait(d time.Duration) Option {
	return func(s *Storage) {
		if d > 0 {
			s.lockWait = d
		}
	}
}

// NewStorage creates a PostgreSQL-backed queue storage.
func NewStorage(pool *pgxpool.Pool, opts ...Option) (*Storage, error) {
	if pool == nil {
		return nil, queue.ErrRepositoryNil
	}

	s := &Storage{
		pool:     pool,
		lockWait: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// taskColumns is the select list shared by every task query; scanTask
// must stay in sync with it.
const taskColumns = `id, queue, task_type, task_name, payload, status, priority,
	retry_count, max_retries, scheduled_at, organization_id, locked_by,
	processed_at, error, created_at, updated_at`

func scanTask(row pgx.Row) (queue.Task, error) {
	var t queue.Task
	err := row.Scan(
		&t.ID, &t.Queue, &t.TaskType, &t.TaskName, &t.Payload, &t.Status, &t.Priority,
		&t.RetryCount, &t.MaxRetries, &t.ScheduledAt, &t.OrganizationID, &t.LockedBy,
		&t.ProcessedAt, &t.Error, &t.CreatedAt, &t.UpdatedAt,
	)
	return t, err
}

func collectTasks(rows pgx.Rows) ([]queue.Task, error) {
	defer rows.Close()

	var tasks []queue.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task row: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating task rows: %w", err)
	}
	return tasks, nil
}

// CreateTask implements queue.EnqueuerRepository and queue.SchedulerRepository.
func (s *Storage) CreateTask(ctx context.Context, task *queue.Task) error {
	if task == nil {
		return errors.New("task cannot be nil")
	}

	const query = `
		INSERT INTO tasks (id, queue, task_type, task_name, payload, status, priority,
			retry_count, max_retries, scheduled_at, organization_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, now(), now())`

	_, err := s.pool.Exec(ctx, query,
		task.ID, task.Queue, task.TaskType, task.TaskName, task.Payload, task.Status,
		task.Priority, task.RetryCount, task.MaxRetries, task.ScheduledAt, task.OrganizationID,
	)
	if err != nil {
		return fmt.Errorf("failed to create task %q: %w", task.TaskName, err)
	}
	return nil
}

// GetPendingTaskByName implements queue.SchedulerRepository.
func (s *Storage) GetPendingTaskByName(ctx context.Context, taskName string) (*queue.Task, error) {
	query := `SELECT ` + taskColumns + `
		FROM tasks
		WHERE task_name = $1 AND status = $2
		LIMIT 1`

	t, err := scanTask(s.pool.QueryRow(ctx, query, taskName, queue.TaskStatusPending))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, queue.ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to get pending task by name: %w", err)
	}
	return &t, nil
}

// GetTask returns a single task by id.
func (s *Storage) GetTask(ctx context.Context, taskID uuid.UUID) (*queue.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`

	t, err := scanTask(s.pool.QueryRow(ctx, query, taskID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, queue.ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return &t, nil
}
