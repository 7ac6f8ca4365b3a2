// Package queue implements a store-backed distributed task queue:
// multiple application nodes poll a shared store, claim batches of
// eligible tasks and execute each task exactly once.
//
// The package is organised around three main components:
//
//   - Enqueuer: inserts pending tasks into the store
//   - Scheduler: converts Schedule definitions into tasks at runtime
//   - Worker: the polling loop, claims batches and dispatches them
//     to registered Handlers
//
// Components interact only through small repository interfaces. The
// production repository is pgqueue (PostgreSQL); MemoryStorage ships for
// tests and local development.
//
// # Claim contract
//
// Correctness across nodes rests entirely on WorkerRepository.ClaimBatch:
// it must select eligible tasks (pending, scheduled time in the past)
// under exclusive locks, flip them to processing and commit, all in one
// independently committed unit of work. Once ClaimBatch returns, every
// node's view of the store shows the claimed tasks as processing, so no
// concurrent claim cycle can ever return the same task twice. Within a
// batch, tasks are ordered by ascending scheduled time; there is no
// ordering promise across batches or nodes.
//
// Claim-level failures (including lock wait timeouts, surfaced as
// ErrLockTimeout) abandon the cycle and are retried on the next tick.
// Handler failures are resolved per task by the worker's RetryPolicy:
// re-enqueued as pending with a backoff delay while retries remain,
// terminally failed and dead-lettered after that.
//
// # Known gap
//
// A task whose executor crashes mid-flight stays in processing
// indefinitely; nothing in this package reclaims it automatically.
// Choosing a reclaim policy (e.g. a processing-age sweep) is an
// operational decision; the pgqueue repository exposes ListStuck and
// RequeueTask so operators can make it.
//
// # Usage
//
//	storage := queue.NewMemoryStorage()
//
//	e, _ := queue.NewEnqueuer(storage)
//	_ = e.Enqueue(ctx, SendEmailPayload{UserID: 42}, queue.WithDelay(time.Minute))
//
//	w, _ := queue.NewWorker(storage, queue.WithBatchSize(queue.BatchDefault))
//	_ = w.RegisterHandler(queue.NewTaskHandler(func(ctx context.Context, p SendEmailPayload) error {
//		return mailer.Send(ctx, p)
//	}))
//	_ = w.Start(ctx)
package queue
