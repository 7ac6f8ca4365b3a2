package email_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/queuekit/queuekit/pkg/email"
)

func TestSendEmailParams_Validate(t *testing.T) {
	t.Parallel()

	valid := email.SendEmailParams{
		SendTo:   "user@example.com",
		Subject:  "Welcome",
		BodyHTML: "<p>Hello</p>",
	}

	t.Run("valid params", func(t *testing.T) {
		t.Parallel()
		assert.NoError(t, valid.Validate())
	})

	t.Run("missing recipient", func(t *testing.T) {
		t.Parallel()

		p := valid
		p.SendTo = ""
		assert.ErrorIs(t, p.Validate(), email.ErrInvalidParams)
	})

	t.Run("malformed recipient", func(t *testing.T) {
		t.Parallel()

		for _, addr := range []string{"not-an-email", "user@", "@example.com", "a b@example.com"} {
			p := valid
			p.SendTo = addr
			assert.ErrorIs(t, p.Validate(), email.ErrInvalidParams, "address %q", addr)
		}
	})

	t.Run("missing subject", func(t *testing.T) {
		t.Parallel()

		p := valid
		p.Subject = ""
		assert.ErrorIs(t, p.Validate(), email.ErrInvalidParams)
	})

	t.Run("missing body", func(t *testing.T) {
		t.Parallel()

		p := valid
		p.BodyHTML = ""
		assert.ErrorIs(t, p.Validate(), email.ErrInvalidParams)
	})
}
