// Package httpcall executes the outbound HTTP requests carried by HTTP
// tasks. A Caller makes exactly one attempt per invocation and
// classifies failures as permanent (wraps ErrPermanentFailure) or
// temporary (wraps ErrTemporaryFailure) so the worker's retry policy
// can decide whether to reschedule.
//
// Retrying lives in the queue, not here. A task that fails with a
// temporary error returns to pending with a later scheduled time; a
// permanent error fails the task outright regardless of retries left.
//
// An optional circuit breaker short-circuits calls to an endpoint that
// keeps failing:
//
//	caller := httpcall.NewCaller()
//	cb := httpcall.NewCircuitBreaker(5, 2, 30*time.Second)
//	res, err := caller.Do(ctx, req, httpcall.WithCircuitBreaker(cb))
package httpcall
