package tasks_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/queuekit/queuekit/pkg/email"
	"github.com/queuekit/queuekit/pkg/queue"
	"github.com/queuekit/queuekit/pkg/tasks"
)

type fakeSender struct {
	sendErr error
	sent    []email.SendEmailParams
}

func (f *fakeSender) SendEmail(ctx context.Context, params email.SendEmailParams) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, params)
	return nil
}

func marshalPayload(t *testing.T, v any) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return raw
}

func TestNewEmailHandler(t *testing.T) {
	t.Parallel()

	t.Run("handler name matches payload type", func(t *testing.T) {
		t.Parallel()

		handler := tasks.NewEmailHandler(&fakeSender{})
		assert.Contains(t, handler.Name(), "EmailPayload")
	})

	t.Run("delivers email", func(t *testing.T) {
		t.Parallel()

		sender := &fakeSender{}
		handler := tasks.NewEmailHandler(sender)

		payload := marshalPayload(t, tasks.EmailPayload{
			SendTo:   "user@example.com",
			Subject:  "Welcome",
			BodyHTML: "<p>Hi</p>",
			Tag:      "welcome",
		})
		require.NoError(t, handler.Handle(context.Background(), payload))

		require.Len(t, sender.sent, 1)
		assert.Equal(t, "user@example.com", sender.sent[0].SendTo)
		assert.Equal(t, "Welcome", sender.sent[0].Subject)
		assert.Equal(t, "welcome", sender.sent[0].Tag)
	})

	t.Run("invalid recipient is permanent", func(t *testing.T) {
		t.Parallel()

		sender := &fakeSender{}
		handler := tasks.NewEmailHandler(sender)

		payload := marshalPayload(t, tasks.EmailPayload{
			SendTo:   "not-an-email",
			Subject:  "Welcome",
			BodyHTML: "<p>Hi</p>",
		})
		err := handler.Handle(context.Background(), payload)
		assert.ErrorIs(t, err, queue.ErrPermanent)
		assert.Empty(t, sender.sent)
	})

	t.Run("delivery failure stays retryable", func(t *testing.T) {
		t.Parallel()

		sender := &fakeSender{sendErr: errors.Join(email.ErrFailedToSendEmail, errors.New("postmark 500"))}
		handler := tasks.NewEmailHandler(sender)

		payload := marshalPayload(t, tasks.EmailPayload{
			SendTo:   "user@example.com",
			Subject:  "Welcome",
			BodyHTML: "<p>Hi</p>",
		})
		err := handler.Handle(context.Background(), payload)
		require.Error(t, err)
		assert.NotErrorIs(t, err, queue.ErrPermanent)
	})
}
