package queue_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/queuekit/queuekit/pkg/queue"
)

// mockSchedulerRepo records created tasks and serves pending lookups.
type mockSchedulerRepo struct {
	mu      sync.Mutex
	tasks   []*queue.Task
	pending map[string]*queue.Task
}

func newMockSchedulerRepo() *mockSchedulerRepo {
	return &mockSchedulerRepo{pending: make(map[string]*queue.Task)}
}

func (m *mockSchedulerRepo) CreateTask(ctx context.Context, task *queue.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks = append(m.tasks, task)
	m.pending[task.TaskName] = task
	return nil
}

func (m *mockSchedulerRepo) GetPendingTaskByName(ctx context.Context, taskName string) (*queue.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if task, ok := m.pending[taskName]; ok {
		return task, nil
	}
	return nil, queue.ErrTaskNotFound
}

func (m *mockSchedulerRepo) createdCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}

func TestScheduler_NewScheduler(t *testing.T) {
	t.Parallel()

	t.Run("nil repository error", func(t *testing.T) {
		t.Parallel()

		scheduler, err := queue.NewScheduler(nil)
		assert.ErrorIs(t, err, queue.ErrRepositoryNil)
		assert.Nil(t, scheduler)
	})

	t.Run("start without tasks fails", func(t *testing.T) {
		t.Parallel()

		scheduler, err := queue.NewScheduler(newMockSchedulerRepo())
		require.NoError(t, err)

		err = scheduler.Start(context.Background())
		assert.ErrorIs(t, err, queue.ErrSchedulerNotConfigured)
	})
}

func TestScheduler_AddTask(t *testing.T) {
	t.Parallel()

	t.Run("nil schedule error", func(t *testing.T) {
		t.Parallel()

		scheduler, err := queue.NewScheduler(newMockSchedulerRepo())
		require.NoError(t, err)

		err = scheduler.AddTask("cleanup", nil)
		assert.ErrorIs(t, err, queue.ErrNoScheduleSpecified)
	})

	t.Run("duplicate registration error", func(t *testing.T) {
		t.Parallel()

		scheduler, err := queue.NewScheduler(newMockSchedulerRepo())
		require.NoError(t, err)

		require.NoError(t, scheduler.AddTask("cleanup", queue.EveryMinute()))
		err = scheduler.AddTask("cleanup", queue.Hourly())
		assert.ErrorIs(t, err, queue.ErrTaskAlreadyRegistered)
	})

	t.Run("list and remove", func(t *testing.T) {
		t.Parallel()

		scheduler, err := queue.NewScheduler(newMockSchedulerRepo(),
			queue.WithSchedulerLogger(quietLogger()))
		require.NoError(t, err)

		require.NoError(t, scheduler.AddTask("cleanup", queue.EveryMinute()))
		require.NoError(t, scheduler.AddTask("digest", queue.Daily()))

		assert.ElementsMatch(t, []string{"cleanup", "digest"}, scheduler.ListTasks())

		scheduler.RemoveTask("cleanup")
		assert.Equal(t, []string{"digest"}, scheduler.ListTasks())
	})
}

func TestScheduler_CreatesPeriodicTasks(t *testing.T) {
	t.Parallel()

	t.Run("due task becomes a pending row", func(t *testing.T) {
		t.Parallel()

		repo := newMockSchedulerRepo()
		scheduler, err := queue.NewScheduler(repo,
			queue.WithCheckInterval(10*time.Millisecond),
			queue.WithSchedulerLogger(quietLogger()))
		require.NoError(t, err)

		require.NoError(t, scheduler.AddTask("metrics-rollup", queue.EveryInterval(time.Millisecond),
			queue.WithTaskQueue("system"),
			queue.WithTaskPriority(queue.PriorityLow),
			queue.WithTaskMaxRetries(1)))

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- scheduler.Start(ctx) }()

		require.Eventually(t, func() bool {
			return repo.createdCount() >= 1
		}, 2*time.Second, 10*time.Millisecond)

		cancel()
		assert.ErrorIs(t, <-done, context.Canceled)

		repo.mu.Lock()
		task := repo.tasks[0]
		repo.mu.Unlock()

		assert.Equal(t, "metrics-rollup", task.TaskName)
		assert.Equal(t, queue.TaskTypePeriodic, task.TaskType)
		assert.Equal(t, queue.TaskStatusPending, task.Status)
		assert.Equal(t, "system", task.Queue)
		assert.Equal(t, queue.PriorityLow, task.Priority)
		assert.Equal(t, int8(1), task.MaxRetries)

		// System-level: no payload, no tenant
		assert.Empty(t, task.Payload)
		assert.Nil(t, task.OrganizationID)
	})

	t.Run("pending row suppresses duplicates", func(t *testing.T) {
		t.Parallel()

		repo := newMockSchedulerRepo()
		scheduler, err := queue.NewScheduler(repo,
			queue.WithCheckInterval(10*time.Millisecond),
			queue.WithSchedulerLogger(quietLogger()))
		require.NoError(t, err)

		require.NoError(t, scheduler.AddTask("metrics-rollup", queue.EveryInterval(time.Millisecond)))

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- scheduler.Start(ctx) }()

		// The first row is created and then stays pending, so repeated
		// checks must not add more
		require.Eventually(t, func() bool {
			return repo.createdCount() == 1
		}, 2*time.Second, 10*time.Millisecond)

		time.Sleep(100 * time.Millisecond)
		assert.Equal(t, 1, repo.createdCount())

		cancel()
		<-done
	})
}
