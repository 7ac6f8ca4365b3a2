package tasks

import (
	"context"
	"errors"

	"github.com/queuekit/queuekit/pkg/email"
	"github.com/queuekit/queuekit/pkg/queue"
)

// EmailPayload is the payload of email tasks. Enqueue it directly; the
// handler name is derived from this type, so enqueuer and worker agree
// without extra registration.
type EmailPayload struct {
	SendTo   string `json:"send_to"`
	Subject  string `json:"subject"`
	BodyHTML string `json:"body_html"`
	Tag      string `json:"tag,omitempty"`
}

// NewEmailHandler builds the email task executor on top of a sender.
// Validation failures are permanent; a malformed recipient will not fix
// itself on retry. Delivery failures stay retryable and go back through
// the worker's retry policy.
func NewEmailHandler(sender email.Sender) queue.Handler {
	return queue.NewTaskHandler(func(ctx context.Context, p EmailPayload) error {
		params := email.SendEmailParams{
			SendTo:   p.SendTo,
			Subject:  p.Subject,
			BodyHTML: p.BodyHTML,
			Tag:      p.Tag,
		}
		if err := params.Validate(); err != nil {
			return queue.Permanent(err)
		}

		if err := sender.SendEmail(ctx, params); err != nil {
			if errors.Is(err, email.ErrInvalidParams) {
				return queue.Permanent(err)
			}
			return err
		}
		return nil
	})
}
