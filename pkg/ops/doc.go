// Package ops exposes the operator API: an HTTP surface for support
// and on-call work on the task queue. It serves health, task lookup
// and search, the stuck-task list, the dead letter queue and manual
// requeue of tasks abandoned in processing by a crashed node.
//
// The API never claims or executes tasks. Requeue is the single
// mutating endpoint, and it only resets a processing task back to
// pending after an operator confirmed the owning node is gone.
package ops
