package pgqueue

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/queuekit/queuekit/pkg/queue"
)

// lockNotAvailable is the SQLSTATE PostgreSQL reports when lock_timeout
// elapses before the requested row locks could be granted.
const lockNotAvailable = "55P03"

// ClaimBatch implements queue.WorkerRepository.
//
// It selects up to limit eligible tasks (pending, scheduled_at in the
// past, in one of the given queues) ordered by ascending scheduled_at,
// takes an exclusive row lock on each (FOR UPDATE), flips them all to
// processing with one bulk UPDATE and commits.
//
// The claim always runs in its own top-level transaction, started here
// on the pool: if it shared the caller's transaction, a caller-side
// rollback after this returns would silently un-claim tasks already
// handed to the in-process executors and open the door to duplicate
// execution. Committing the flip before returning closes that window;
// once this call returns, every other node observes the tasks as
// processing.
//
// A concurrent claim that selected an overlapping row blocks on the row
// lock until this transaction commits, then re-evaluates eligibility and
// skips the row because its status changed. If the wait exceeds the
// configured lock_timeout the whole cycle fails with
// queue.ErrLockTimeout and the caller retries on its next tick.
//
// An empty selection short-circuits: no UPDATE is issued.
func (s *Storage) ClaimBatch(ctx context.Context, nodeID uuid.UUID, queues []string, limit int) ([]queue.Task, error) {
	if limit <= 0 {
		return nil, queue.ErrInvalidBatchSize
	}
	if len(queues) == 0 {
		queues = []string{queue.DefaultQueueName}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin claim transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// lock_timeout is transaction-local; SET does not take bind
	// parameters, so the validated duration is formatted in
	if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", s.lockWait.Milliseconds())); err != nil {
		return nil, fmt.Errorf("failed to set lock timeout: %w", err)
	}

	claimQuery := `SELECT ` + taskColumns + `
		FROM tasks
		WHERE status = $1 AND scheduled_at <= now() AND queue = ANY($2)
		ORDER BY scheduled_at, priority DESC
		LIMIT $3
		FOR UPDATE`

	rows, err := tx.Query(ctx, claimQuery, queue.TaskStatusPending, queues, limit)
	if err != nil {
		return nil, classifyClaimError(err)
	}

	tasks, err := collectTasks(rows)
	if err != nil {
		return nil, classifyClaimError(err)
	}

	if len(tasks) == 0 {
		// Nothing eligible: no update, no-op commit
		if err := tx.Commit(ctx); err != nil {
			return nil, fmt.Errorf("failed to commit empty claim: %w", err)
		}
		return nil, queue.ErrNoTaskToClaim
	}

	ids := make([]uuid.UUID, len(tasks))
	for i := range tasks {
		ids[i] = tasks[i].ID
	}

	// One bulk flip for the whole batch keeps the lock-holding
	// transaction short; the rows are already locked by the select above,
	// so this write cannot race another node
	const flipQuery = `
		UPDATE tasks
		SET status = $1, locked_by = $2, updated_at = now()
		WHERE id = ANY($3)`

	tag, err := tx.Exec(ctx, flipQuery, queue.TaskStatusProcessing, nodeID, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to mark claimed tasks processing: %w", err)
	}
	if tag.RowsAffected() != int64(len(ids)) {
		return nil, fmt.Errorf("claim flip updated %d of %d rows", tag.RowsAffected(), len(ids))
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit claim transaction: %w", err)
	}

	for i := range tasks {
		tasks[i].Status = queue.TaskStatusProcessing
		tasks[i].LockedBy = &nodeID
	}

	return tasks, nil
}

// classifyClaimError maps PostgreSQL lock-wait timeouts to the queue's
// retryable sentinel and passes everything else through.
func classifyClaimError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == lockNotAvailable {
		return errors.Join(queue.ErrLockTimeout, err)
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return queue.ErrNoTaskToClaim
	}
	return fmt.Errorf("claim query failed: %w", err)
}
