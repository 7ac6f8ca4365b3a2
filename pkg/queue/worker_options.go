package queue

import (
	"log/slog"
	"time"
)

// WorkerOption is a functional option for configuring a worker
type WorkerOption func(*workerOptions)

type workerOptions struct {
	queues             []string
	pollInterval       time.Duration
	batchSize          int
	execTimeout        time.Duration
	maxConcurrentTasks int
	retryPolicy        RetryPolicy
	logger             *slog.Logger
}

// WithQueues sets which queues the worker should claim from
func WithQueues(queues ...string) WorkerOption {
	return func(o *workerOptions) {
		o.queues = queues
	}
}

// WithPollInterval sets how often the worker runs a claim cycle
func WithPollInterval(d time.Duration) WorkerOption {
	return func(o *workerOptions) {
		if d > 0 {
			o.pollInterval = d
		}
	}
}

// WithBatchSize sets how many tasks one claim cycle may take
// (BatchSingle, BatchDefault and BatchBulk are the usual presets)
func WithBatchSize(n int) WorkerOption {
	return func(o *workerOptions) {
		if n > 0 {
			o.batchSize = n
		}
	}
}

// WithExecTimeout bounds a single handler execution
func WithExecTimeout(d time.Duration) WorkerOption {
	return func(o *workerOptions) {
		if d > 0 {
			o.execTimeout = d
		}
	}
}

// WithMaxConcurrentTasks sets the maximum number of concurrent tasks
func WithMaxConcurrentTasks(n int) WorkerOption {
	return func(o *workerOptions) {
		if n > 0 {
			o.maxConcurrentTasks = n
		}
	}
}

// WithRetryPolicy sets the backoff policy applied to failed executions
func WithRetryPolicy(p RetryPolicy) WorkerOption {
	return func(o *workerOptions) {
		if p != nil {
			o.retryPolicy = p
		}
	}
}

// WithWorkerLogger sets the logger for the worker
func WithWorkerLogger(logger *slog.Logger) WorkerOption {
	return func(o *workerOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}
