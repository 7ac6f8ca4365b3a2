// Package pgqueue is the PostgreSQL repository behind pkg/queue. It
// implements the enqueuer, scheduler and worker repository interfaces on
// a single tasks table plus a dead-letter table (see migrations/).
//
// The load-bearing piece is ClaimBatch: the claim query takes exclusive
// row locks (SELECT ... FOR UPDATE) on the next eligible tasks and the
// bulk flip to processing commits in the same transaction, always a
// fresh top-level transaction started on the pool, never a caller's.
// Row locking is the only cross-node synchronization primitive in the
// system; there is no lease, advisory lock or consensus layer on top.
//
// Lock waits are bounded with a local lock_timeout; when PostgreSQL
// reports SQLSTATE 55P03 the claim returns queue.ErrLockTimeout and the
// caller retries on its next polling tick.
//
// The package also carries the read-only operator queries (SearchTasks,
// ListStuck, ListDLQ) and the explicit RequeueTask escape hatch for
// tasks stranded in processing by a crashed executor. None of those run
// on the claim path.
package pgqueue
