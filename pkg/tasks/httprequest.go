package tasks

import (
	"context"

	"github.com/queuekit/queuekit/pkg/httpcall"
	"github.com/queuekit/queuekit/pkg/queue"
)

// HTTPRequestPayload is the payload of HTTP tasks.
type HTTPRequestPayload struct {
	Method  string            `json:"method"`
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    string            `json:"body,omitempty"`
}

// NewHTTPRequestHandler builds the HTTP task executor. The caller makes
// one attempt per execution; its permanent/temporary classification
// maps onto the queue's failure handling, so a 404 dead-letters the
// task while a 503 or a network error reschedules it.
func NewHTTPRequestHandler(caller *httpcall.Caller, opts ...httpcall.Option) queue.Handler {
	return queue.NewTaskHandler(func(ctx context.Context, p HTTPRequestPayload) error {
		_, err := caller.Do(ctx, httpcall.Request{
			Method:  p.Method,
			URL:     p.URL,
			Headers: p.Headers,
			Body:    p.Body,
		}, opts...)
		if err != nil {
			if httpcall.IsPermanent(err) {
				return queue.Permanent(err)
			}
			return err
		}
		return nil
	})
}
