package queue_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/queuekit/queuekit/pkg/queue"
)

func newPendingTask(queueName string, scheduledAt time.Time, priority queue.Priority) *queue.Task {
	now := time.Now()
	return &queue.Task{
		ID:          uuid.New(),
		Queue:       queueName,
		TaskType:    queue.TaskTypeOneTime,
		TaskName:    "test-task",
		Payload:     []byte(`{}`),
		Status:      queue.TaskStatusPending,
		Priority:    priority,
		MaxRetries:  3,
		ScheduledAt: scheduledAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func TestMemoryStorage_ClaimBatch(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("no eligible task", func(t *testing.T) {
		t.Parallel()

		storage := queue.NewMemoryStorage()
		_, err := storage.ClaimBatch(ctx, uuid.New(), []string{queue.DefaultQueueName}, queue.BatchDefault)
		assert.ErrorIs(t, err, queue.ErrNoTaskToClaim)
	})

	t.Run("invalid batch size", func(t *testing.T) {
		t.Parallel()

		storage := queue.NewMemoryStorage()
		_, err := storage.ClaimBatch(ctx, uuid.New(), []string{queue.DefaultQueueName}, 0)
		assert.ErrorIs(t, err, queue.ErrInvalidBatchSize)
	})

	t.Run("claim flips task to processing and records node", func(t *testing.T) {
		t.Parallel()

		storage := queue.NewMemoryStorage()
		task := newPendingTask(queue.DefaultQueueName, time.Now().Add(-time.Minute), queue.PriorityDefault)
		require.NoError(t, storage.CreateTask(ctx, task))

		nodeID := uuid.New()
		claimed, err := storage.ClaimBatch(ctx, nodeID, []string{queue.DefaultQueueName}, queue.BatchSingle)
		require.NoError(t, err)
		require.Len(t, claimed, 1)

		assert.Equal(t, queue.TaskStatusProcessing, claimed[0].Status)
		require.NotNil(t, claimed[0].LockedBy)
		assert.Equal(t, nodeID, *claimed[0].LockedBy)

		stored, ok := storage.GetTask(task.ID)
		require.True(t, ok)
		assert.Equal(t, queue.TaskStatusProcessing, stored.Status)
		assert.True(t, stored.UpdatedAt.After(task.UpdatedAt))
	})

	t.Run("empty queues defaults to the default queue", func(t *testing.T) {
		t.Parallel()

		storage := queue.NewMemoryStorage()
		task := newPendingTask(queue.DefaultQueueName, time.Now().Add(-time.Minute), queue.PriorityDefault)
		require.NoError(t, storage.CreateTask(ctx, task))

		claimed, err := storage.ClaimBatch(ctx, uuid.New(), nil, queue.BatchSingle)
		require.NoError(t, err)
		require.Len(t, claimed, 1)
		assert.Equal(t, task.ID, claimed[0].ID)
	})

	t.Run("future tasks excluded", func(t *testing.T) {
		t.Parallel()

		storage := queue.NewMemoryStorage()
		require.NoError(t, storage.CreateTask(ctx,
			newPendingTask(queue.DefaultQueueName, time.Now().Add(time.Hour), queue.PriorityDefault)))

		_, err := storage.ClaimBatch(ctx, uuid.New(), []string{queue.DefaultQueueName}, queue.BatchDefault)
		assert.ErrorIs(t, err, queue.ErrNoTaskToClaim)
	})

	t.Run("other queues excluded", func(t *testing.T) {
		t.Parallel()

		storage := queue.NewMemoryStorage()
		require.NoError(t, storage.CreateTask(ctx,
			newPendingTask("emails", time.Now().Add(-time.Minute), queue.PriorityDefault)))

		_, err := storage.ClaimBatch(ctx, uuid.New(), []string{queue.DefaultQueueName}, queue.BatchDefault)
		assert.ErrorIs(t, err, queue.ErrNoTaskToClaim)

		claimed, err := storage.ClaimBatch(ctx, uuid.New(), []string{"emails"}, queue.BatchDefault)
		require.NoError(t, err)
		assert.Len(t, claimed, 1)
	})

	t.Run("batch ordered by scheduled time then priority", func(t *testing.T) {
		t.Parallel()

		storage := queue.NewMemoryStorage()
		base := time.Now().Add(-time.Hour)

		late := newPendingTask(queue.DefaultQueueName, base.Add(2*time.Minute), queue.PriorityMax)
		earlyLow := newPendingTask(queue.DefaultQueueName, base, queue.PriorityLow)
		earlyHigh := newPendingTask(queue.DefaultQueueName, base, queue.PriorityHigh)

		for _, task := range []*queue.Task{late, earlyLow, earlyHigh} {
			require.NoError(t, storage.CreateTask(ctx, task))
		}

		claimed, err := storage.ClaimBatch(ctx, uuid.New(), []string{queue.DefaultQueueName}, queue.BatchDefault)
		require.NoError(t, err)
		require.Len(t, claimed, 3)

		// Earlier scheduled time wins over higher priority
		assert.Equal(t, earlyHigh.ID, claimed[0].ID)
		assert.Equal(t, earlyLow.ID, claimed[1].ID)
		assert.Equal(t, late.ID, claimed[2].ID)
	})

	t.Run("limit respected", func(t *testing.T) {
		t.Parallel()

		storage := queue.NewMemoryStorage()
		for i := 0; i < 5; i++ {
			require.NoError(t, storage.CreateTask(ctx,
				newPendingTask(queue.DefaultQueueName, time.Now().Add(-time.Minute), queue.PriorityDefault)))
		}

		claimed, err := storage.ClaimBatch(ctx, uuid.New(), []string{queue.DefaultQueueName}, 2)
		require.NoError(t, err)
		assert.Len(t, claimed, 2)
	})

	t.Run("concurrent claims never share a task", func(t *testing.T) {
		t.Parallel()

		storage := queue.NewMemoryStorage()
		const taskCount = 50
		for i := 0; i < taskCount; i++ {
			require.NoError(t, storage.CreateTask(ctx,
				newPendingTask(queue.DefaultQueueName, time.Now().Add(-time.Minute), queue.PriorityDefault)))
		}

		const claimers = 10
		results := make(chan []queue.Task, claimers)

		var wg sync.WaitGroup
		for i := 0; i < claimers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				claimed, err := storage.ClaimBatch(ctx, uuid.New(), []string{queue.DefaultQueueName}, queue.BatchDefault)
				if err == nil {
					results <- claimed
				}
			}()
		}
		wg.Wait()
		close(results)

		seen := make(map[uuid.UUID]bool)
		total := 0
		for batch := range results {
			for _, task := range batch {
				assert.False(t, seen[task.ID], "task %s claimed twice", task.ID)
				seen[task.ID] = true
				total++
			}
		}
		assert.Equal(t, taskCount, total)
	})
}

func TestMemoryStorage_Transitions(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	claimOne := func(t *testing.T, storage *queue.MemoryStorage) queue.Task {
		t.Helper()
		task := newPendingTask(queue.DefaultQueueName, time.Now().Add(-time.Minute), queue.PriorityDefault)
		require.NoError(t, storage.CreateTask(ctx, task))
		claimed, err := storage.ClaimBatch(ctx, uuid.New(), []string{queue.DefaultQueueName}, queue.BatchSingle)
		require.NoError(t, err)
		require.Len(t, claimed, 1)
		return claimed[0]
	}

	t.Run("complete", func(t *testing.T) {
		t.Parallel()

		storage := queue.NewMemoryStorage()
		claimed := claimOne(t, storage)

		require.NoError(t, storage.CompleteTask(ctx, claimed.ID))

		stored, ok := storage.GetTask(claimed.ID)
		require.True(t, ok)
		assert.Equal(t, queue.TaskStatusCompleted, stored.Status)
		assert.True(t, stored.Status.Terminal())
		assert.NotNil(t, stored.ProcessedAt)
	})

	t.Run("complete requires processing", func(t *testing.T) {
		t.Parallel()

		storage := queue.NewMemoryStorage()
		task := newPendingTask(queue.DefaultQueueName, time.Now().Add(-time.Minute), queue.PriorityDefault)
		require.NoError(t, storage.CreateTask(ctx, task))

		err := storage.CompleteTask(ctx, task.ID)
		assert.ErrorIs(t, err, queue.ErrTaskNotProcessing)
	})

	t.Run("complete unknown task", func(t *testing.T) {
		t.Parallel()

		storage := queue.NewMemoryStorage()
		err := storage.CompleteTask(ctx, uuid.New())
		assert.ErrorIs(t, err, queue.ErrTaskNotFound)
	})

	t.Run("retry returns task to pending with later schedule", func(t *testing.T) {
		t.Parallel()

		storage := queue.NewMemoryStorage()
		claimed := claimOne(t, storage)

		nextAttempt := time.Now().Add(time.Minute)
		require.NoError(t, storage.RetryTask(ctx, claimed.ID, "boom", nextAttempt))

		stored, ok := storage.GetTask(claimed.ID)
		require.True(t, ok)
		assert.Equal(t, queue.TaskStatusPending, stored.Status)
		assert.Equal(t, int8(1), stored.RetryCount)
		require.NotNil(t, stored.Error)
		assert.Equal(t, "boom", *stored.Error)
		assert.True(t, stored.ScheduledAt.Equal(nextAttempt))
		assert.Nil(t, stored.LockedBy)

		// Not eligible again until the backoff passes
		_, err := storage.ClaimBatch(ctx, uuid.New(), []string{queue.DefaultQueueName}, queue.BatchSingle)
		assert.ErrorIs(t, err, queue.ErrNoTaskToClaim)
	})

	t.Run("fail is terminal", func(t *testing.T) {
		t.Parallel()

		storage := queue.NewMemoryStorage()
		claimed := claimOne(t, storage)

		require.NoError(t, storage.FailTask(ctx, claimed.ID, "fatal"))

		stored, ok := storage.GetTask(claimed.ID)
		require.True(t, ok)
		assert.Equal(t, queue.TaskStatusFailed, stored.Status)
		assert.True(t, stored.Status.Terminal())

		// Terminal tasks never transition again
		assert.ErrorIs(t, storage.CompleteTask(ctx, claimed.ID), queue.ErrTaskNotProcessing)
		assert.ErrorIs(t, storage.RetryTask(ctx, claimed.ID, "x", time.Now()), queue.ErrTaskNotProcessing)
	})

	t.Run("move to DLQ removes task", func(t *testing.T) {
		t.Parallel()

		storage := queue.NewMemoryStorage()
		claimed := claimOne(t, storage)

		require.NoError(t, storage.FailTask(ctx, claimed.ID, "fatal"))
		require.NoError(t, storage.MoveToDLQ(ctx, claimed.ID))

		_, ok := storage.GetTask(claimed.ID)
		assert.False(t, ok)
		assert.Equal(t, 1, storage.DLQSize())
	})

	t.Run("updated at strictly increases across transitions", func(t *testing.T) {
		t.Parallel()

		storage := queue.NewMemoryStorage()
		task := newPendingTask(queue.DefaultQueueName, time.Now().Add(-time.Minute), queue.PriorityDefault)
		require.NoError(t, storage.CreateTask(ctx, task))

		prev := task.UpdatedAt
		claimed, err := storage.ClaimBatch(ctx, uuid.New(), []string{queue.DefaultQueueName}, queue.BatchSingle)
		require.NoError(t, err)
		assert.True(t, claimed[0].UpdatedAt.After(prev))
		prev = claimed[0].UpdatedAt

		require.NoError(t, storage.RetryTask(ctx, task.ID, "x", time.Now().Add(-time.Second)))
		stored, _ := storage.GetTask(task.ID)
		assert.True(t, stored.UpdatedAt.After(prev))
		prev = stored.UpdatedAt

		_, err = storage.ClaimBatch(ctx, uuid.New(), []string{queue.DefaultQueueName}, queue.BatchSingle)
		require.NoError(t, err)
		require.NoError(t, storage.CompleteTask(ctx, task.ID))
		stored, _ = storage.GetTask(task.ID)
		assert.True(t, stored.UpdatedAt.After(prev))
	})
}

func TestMemoryStorage_GetPendingTaskByName(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("finds pending task", func(t *testing.T) {
		t.Parallel()

		storage := queue.NewMemoryStorage()
		task := newPendingTask(queue.DefaultQueueName, time.Now(), queue.PriorityDefault)
		task.TaskName = "cleanup"
		require.NoError(t, storage.CreateTask(ctx, task))

		found, err := storage.GetPendingTaskByName(ctx, "cleanup")
		require.NoError(t, err)
		assert.Equal(t, task.ID, found.ID)
	})

	t.Run("ignores non-pending tasks", func(t *testing.T) {
		t.Parallel()

		storage := queue.NewMemoryStorage()
		task := newPendingTask(queue.DefaultQueueName, time.Now().Add(-time.Minute), queue.PriorityDefault)
		task.TaskName = "cleanup"
		require.NoError(t, storage.CreateTask(ctx, task))

		_, err := storage.ClaimBatch(ctx, uuid.New(), []string{queue.DefaultQueueName}, queue.BatchSingle)
		require.NoError(t, err)

		_, err = storage.GetPendingTaskByName(ctx, "cleanup")
		assert.ErrorIs(t, err, queue.ErrTaskNotFound)
	})
}
