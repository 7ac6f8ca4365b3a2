package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// WorkerRepository defines the interface for worker operations.
//
// ClaimBatch is the only cross-node synchronization point in the design:
// implementations must guarantee that a task returned by one claim cycle
// is never returned by any concurrent claim cycle on this or another
// node, and that the processing flip is durably committed before the
// call returns.
type WorkerRepository interface {
	// ClaimBatch atomically claims up to limit eligible tasks from the
	// given queues, ordered by ascending scheduled time, and marks them
	// processing before returning. Returns ErrLockTimeout when the row
	// locks could not be acquired within the store's bounded wait.
	ClaimBatch(ctx context.Context, nodeID uuid.UUID, queues []string, limit int) ([]Task, error)

	// CompleteTask marks a processing task as completed (terminal)
	CompleteTask(ctx context.Context, taskID uuid.UUID) error

	// RetryTask records the failure and returns the task to pending with
	// a later scheduled time, making it eligible for a future claim
	RetryTask(ctx context.Context, taskID uuid.UUID, errorMsg string, nextAttemptAt time.Time) error

	// FailTask marks a processing task as failed (terminal)
	FailTask(ctx context.Context, taskID uuid.UUID, errorMsg string) error

	// MoveToDLQ copies a terminally failed task to the dead letter queue
	MoveToDLQ(ctx context.Context, taskID uuid.UUID) error
}

// Worker is the polling driver of the queue: one Worker per node per set
// of queues, ticking at a fixed interval. Each tick runs a single claim
// cycle and dispatches the claimed batch to registered handlers under a
// bounded-concurrency semaphore.
//
// Claim-level errors are logged and abandoned until the next tick; they
// never stop the loop. Handler errors are resolved per task, so one
// failing task does not block the rest of its batch.
type Worker struct {
	repo     WorkerRepository
	handlers map[string]Handler
	queues   []string
	nodeID   uuid.UUID
	sem      chan struct{}
	wg       sync.WaitGroup
	mu       sync.RWMutex
	stopMu   sync.Mutex // Protects stopping state and WaitGroup operations

	// Configuration
	pollInterval time.Duration
	batchSize    int
	execTimeout  time.Duration
	retryPolicy  RetryPolicy
	logger       *slog.Logger

	// State management
	ctx      context.Context
	cancel   context.CancelFunc
	stopping atomic.Bool
	claiming atomic.Bool
}

// NewWorker creates a new task worker
func NewWorker(repo WorkerRepository, opts ...WorkerOption) (*Worker, error) {
	if repo == nil {
		return nil, ErrRepositoryNil
	}

	// Default options
	options := &workerOptions{
		queues:             []string{DefaultQueueName},
		pollInterval:       5 * time.Second,
		batchSize:          BatchDefault,
		execTimeout:        5 * time.Minute,
		maxConcurrentTasks: 1,
		retryPolicy:        DefaultRetryPolicy(),
		logger:             slog.Default(),
	}

	for _, opt := range opts {
		opt(options)
	}

	return &Worker{
		repo:         repo,
		handlers:     make(map[string]Handler),
		queues:       options.queues,
		nodeID:       uuid.New(),
		sem:          make(chan struct{}, options.maxConcurrentTasks),
		pollInterval: options.pollInterval,
		batchSize:    options.batchSize,
		execTimeout:  options.execTimeout,
		retryPolicy:  options.retryPolicy,
		logger:       options.logger,
	}, nil
}

// RegisterHandler registers a single task handler
func (w *Worker) RegisterHandler(handler Handler) error {
	if handler == nil {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.handlers[handler.Name()] = handler
	return nil
}

// RegisterHandlers registers multiple task handlers
func (w *Worker) RegisterHandlers(handlers ...Handler) error {
	for _, h := range handlers {
		if err := w.RegisterHandler(h); err != nil {
			return err
		}
	}
	return nil
}

// Start begins polling in the background
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.cancel != nil {
		w.mu.Unlock()
		return fmt.Errorf("worker already started")
	}

	if len(w.handlers) == 0 {
		w.mu.Unlock()
		return ErrNoHandlers
	}

	w.ctx, w.cancel = context.WithCancel(ctx)
	w.mu.Unlock()

	w.stopping.Store(false)

	go w.run()

	w.logger.Info("worker started",
		slog.String("node_id", w.nodeID.String()),
		slog.Any("queues", w.queues),
		slog.Int("batch_size", w.batchSize),
		slog.Int("max_concurrent", cap(w.sem)))

	return nil
}

// Stop gracefully shuts down the worker, waiting for in-flight tasks.
func (w *Worker) Stop() error {
	w.mu.Lock()
	if w.cancel == nil {
		w.mu.Unlock()
		return fmt.Errorf("worker not started")
	}

	// Use stopMu to synchronize with the dispatch path
	w.stopMu.Lock()
	w.stopping.Store(true)
	w.stopMu.Unlock()

	cancel := w.cancel
	w.cancel = nil
	w.mu.Unlock()

	cancel()

	w.logger.Info("worker stopping, waiting for active tasks to complete",
		slog.String("node_id", w.nodeID.String()))

	w.wg.Wait()

	w.logger.Info("worker stopped",
		slog.String("node_id", w.nodeID.String()))

	return nil
}

// Run starts the worker and returns a function suitable for errgroup
func (w *Worker) Run(ctx context.Context) func() error {
	return func() error {
		if err := w.Start(ctx); err != nil {
			return err
		}

		<-ctx.Done()

		return w.Stop()
	}
}

// run is the main polling loop
func (w *Worker) run() {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			w.tick()
		}
	}
}

// tick runs one claim cycle. At most one cycle is in flight per worker;
// a tick that fires while the previous cycle is still claiming is skipped.
func (w *Worker) tick() {
	if !w.claiming.CompareAndSwap(false, true) {
		w.logger.Debug("previous claim cycle still running, skipping tick",
			slog.String("node_id", w.nodeID.String()))
		return
	}
	defer w.claiming.Store(false)

	tasks, err := w.repo.ClaimBatch(w.ctx, w.nodeID, w.queues, w.batchSize)
	if err != nil {
		switch {
		case errors.Is(err, ErrNoTaskToClaim):
			// Normal empty tick
		case errors.Is(err, ErrLockTimeout):
			w.logger.Warn("claim cycle hit lock wait timeout, retrying next tick",
				slog.String("node_id", w.nodeID.String()))
		default:
			w.logger.Error("claim cycle failed",
				slog.String("node_id", w.nodeID.String()),
				slog.String("error", err.Error()))
		}
		return
	}

	if len(tasks) == 0 {
		return
	}

	w.logger.Debug("claimed batch",
		slog.String("node_id", w.nodeID.String()),
		slog.Int("count", len(tasks)))

	w.dispatch(tasks)
}

// dispatch hands every claimed task to a handler goroutine, blocking on
// the semaphore when all slots are busy. The tasks are already durably
// marked processing, so a shutdown mid-dispatch leaves the remainder in
// processing until an operator requeues them (see pgqueue.RequeueTask).
func (w *Worker) dispatch(tasks []Task) {
	for i := range tasks {
		task := tasks[i]

		select {
		case w.sem <- struct{}{}:
		case <-w.ctx.Done():
			w.logger.Warn("shutdown during dispatch, claimed tasks left in processing",
				slog.String("node_id", w.nodeID.String()),
				slog.Int("remaining", len(tasks)-i))
			return
		}

		// Use stopMu to ensure we don't add to WaitGroup after Stop() starts
		w.stopMu.Lock()
		if w.stopping.Load() {
			w.stopMu.Unlock()
			<-w.sem
			w.logger.Warn("shutdown during dispatch, claimed tasks left in processing",
				slog.String("node_id", w.nodeID.String()),
				slog.Int("remaining", len(tasks)-i))
			return
		}
		w.wg.Add(1)
		w.stopMu.Unlock()

		go func() {
			defer w.wg.Done()
			defer func() { <-w.sem }()

			w.processTask(&task)
		}()
	}
}

// persistTimeout bounds the state write that records a task's outcome.
const persistTimeout = 30 * time.Second

// persistContext returns the context for outcome writes. Like the
// handler's execution context it is detached from the worker lifecycle:
// during a graceful shutdown w.ctx is already cancelled while in-flight
// handlers finish, and a completed side effect whose terminal state is
// never persisted would be re-executed after an operator requeue.
func persistContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), persistTimeout)
}

// processTask executes a task with its handler and drives it to a
// terminal state (or back to pending via the retry policy)
func (w *Worker) processTask(task *Task) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic in handler: %v", r)
			w.logger.Error("handler panicked",
				slog.String("node_id", w.nodeID.String()),
				slog.String("task_id", task.ID.String()),
				slog.String("task_name", task.TaskName),
				slog.Any("panic", r))
			w.resolveFailure(task, err, time.Since(start))
		}
	}()

	w.mu.RLock()
	handler, ok := w.handlers[task.TaskName]
	w.mu.RUnlock()

	if !ok {
		w.handleMissingHandler(task)
		return
	}

	// The execution context is detached from the worker lifecycle so a
	// graceful shutdown lets in-flight tasks finish
	ctx, cancel := context.WithTimeout(context.Background(), w.execTimeout)
	defer cancel()

	err := handler.Handle(ctx, task.Payload)
	duration := time.Since(start)

	if err != nil {
		w.resolveFailure(task, err, duration)
		return
	}

	persistCtx, cancelPersist := persistContext()
	defer cancelPersist()

	if err := w.repo.CompleteTask(persistCtx, task.ID); err != nil {
		w.logger.Error("failed to mark task as completed",
			slog.String("node_id", w.nodeID.String()),
			slog.String("task_id", task.ID.String()),
			slog.String("error", err.Error()))
		return
	}

	w.logger.Info("task completed",
		slog.String("node_id", w.nodeID.String()),
		slog.String("task_id", task.ID.String()),
		slog.String("task_name", task.TaskName),
		slog.String("queue", task.Queue),
		slog.Duration("duration", duration))
}

// handleMissingHandler dead-letters tasks that have no registered handler.
// Retrying cannot help until the handler code ships, and the DLQ keeps
// the task available for manual requeue once it does.
func (w *Worker) handleMissingHandler(task *Task) {
	w.logger.Error("no handler registered for task type",
		slog.String("node_id", w.nodeID.String()),
		slog.String("task_id", task.ID.String()),
		slog.String("task_name", task.TaskName))

	ctx, cancel := persistContext()
	defer cancel()

	execErr := fmt.Errorf("%w: %s", ErrHandlerNotFound, task.TaskName)
	if err := w.repo.FailTask(ctx, task.ID, execErr.Error()); err != nil {
		w.logger.Error("failed to mark task as failed",
			slog.String("task_id", task.ID.String()),
			slog.String("error", err.Error()))
		return
	}

	if err := w.repo.MoveToDLQ(ctx, task.ID); err != nil {
		w.logger.Error("failed to move task to DLQ",
			slog.String("task_id", task.ID.String()),
			slog.String("error", err.Error()))
	}
}

// resolveFailure applies the retry policy to a failed execution: tasks
// with retries left go back to pending with a backoff delay, exhausted
// tasks go terminal failed and into the DLQ.
func (w *Worker) resolveFailure(task *Task, execErr error, duration time.Duration) {
	attempt := int(task.RetryCount) + 1

	w.logger.Error("task failed",
		slog.String("node_id", w.nodeID.String()),
		slog.String("task_id", task.ID.String()),
		slog.String("task_name", task.TaskName),
		slog.Int("attempt", attempt),
		slog.Int("max_retries", int(task.MaxRetries)),
		slog.Duration("duration", duration),
		slog.String("error", execErr.Error()))

	ctx, cancel := persistContext()
	defer cancel()

	if task.RetryCount < task.MaxRetries && !errors.Is(execErr, ErrPermanent) {
		nextAttemptAt := time.Now().Add(w.retryPolicy.NextDelay(attempt))
		if err := w.repo.RetryTask(ctx, task.ID, execErr.Error(), nextAttemptAt); err != nil {
			w.logger.Error("failed to re-enqueue task for retry",
				slog.String("task_id", task.ID.String()),
				slog.String("error", err.Error()))
		}
		return
	}

	if err := w.repo.FailTask(ctx, task.ID, execErr.Error()); err != nil {
		w.logger.Error("failed to mark task as failed",
			slog.String("task_id", task.ID.String()),
			slog.String("error", err.Error()))
		return
	}

	if err := w.repo.MoveToDLQ(ctx, task.ID); err != nil {
		w.logger.Error("failed to move task to DLQ",
			slog.String("task_id", task.ID.String()),
			slog.String("error", err.Error()))
		return
	}

	w.logger.Warn("task moved to dead letter queue",
		slog.String("node_id", w.nodeID.String()),
		slog.String("task_id", task.ID.String()),
		slog.String("task_name", task.TaskName))
}

// NodeInfo returns identifying information about this worker node
func (w *Worker) NodeInfo() (id string, hostname string, pid int) {
	hostname, _ = os.Hostname()
	return w.nodeID.String(), hostname, os.Getpid()
}
