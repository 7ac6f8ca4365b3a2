// Package tasks wires the queue's built-in task kinds to their
// executors: transactional email through the email package and
// outbound HTTP requests through the httpcall package.
//
// Payload types double as handler registration keys. Enqueue an
// EmailPayload and register NewEmailHandler on the worker; the derived
// handler name matches on both sides:
//
//	enqueuer.Enqueue(ctx, tasks.EmailPayload{...})
//	worker.RegisterHandlers(
//		tasks.NewEmailHandler(sender),
//		tasks.NewHTTPRequestHandler(caller),
//	)
package tasks
