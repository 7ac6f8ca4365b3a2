package pgqueue

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/queuekit/queuekit/pkg/queue"
)

// Read-only operator queries for support and debugging. None of these
// take row locks or run on the claim path.

// SearchTasks returns tasks whose name or payload contains the given
// substring, optionally scoped to one organization. Intended for
// support tooling ("find the welcome email we queued for this tenant"),
// newest first.
func (s *Storage) SearchTasks(ctx context.Context, orgID *uuid.UUID, substring string, limit int) ([]queue.Task, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT ` + taskColumns + `
		FROM tasks
		WHERE ($1::uuid IS NULL OR organization_id = $1)
			AND (task_name ILIKE $2 ESCAPE '\' OR payload::text ILIKE $2 ESCAPE '\')
		ORDER BY created_at DESC
		LIMIT $3`

	pattern := "%" + escapeLikePattern(substring) + "%"
	rows, err := s.pool.Query(ctx, query, orgID, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search tasks: %w", err)
	}
	return collectTasks(rows)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLikePattern makes LIKE metacharacters in operator input match
// literally, so a search for "100%_off" does not turn into a wildcard.
func escapeLikePattern(s string) string {
	return likeEscaper.Replace(s)
}

// ListStuck returns processing tasks whose last transition is older than
// the given bound, the usual sign of an executor that crashed
// mid-flight. The queue never reclaims these on its own; an operator
// decides per task whether RequeueTask is safe.
func (s *Storage) ListStuck(ctx context.Context, olderThan time.Duration, limit int) ([]queue.Task, error) {
	if limit <= 0 {
		limit = 50
	}
	cutoff := time.Now().Add(-olderThan)

	query := `SELECT ` + taskColumns + `
		FROM tasks
		WHERE status = $1 AND updated_at < $2
		ORDER BY updated_at
		LIMIT $3`

	rows, err := s.pool.Query(ctx, query, queue.TaskStatusProcessing, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list stuck tasks: %w", err)
	}
	return collectTasks(rows)
}

// ListDLQ returns dead-lettered tasks, newest failures first, optionally
// scoped to one organization.
func (s *Storage) ListDLQ(ctx context.Context, orgID *uuid.UUID, limit int) ([]queue.TasksDlq, error) {
	if limit <= 0 {
		limit = 50
	}

	const query = `
		SELECT id, task_id, queue, task_type, task_name, payload, priority,
			organization_id, error, retry_count, failed_at, created_at
		FROM tasks_dlq
		WHERE ($1::uuid IS NULL OR organization_id = $1)
		ORDER BY failed_at DESC
		LIMIT $2`

	rows, err := s.pool.Query(ctx, query, orgID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list DLQ: %w", err)
	}
	defer rows.Close()

	var entries []queue.TasksDlq
	for rows.Next() {
		var e queue.TasksDlq
		if err := rows.Scan(
			&e.ID, &e.TaskID, &e.Queue, &e.TaskType, &e.TaskName, &e.Payload, &e.Priority,
			&e.OrganizationID, &e.Error, &e.RetryCount, &e.FailedAt, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan DLQ row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating DLQ rows: %w", err)
	}
	return entries, nil
}
