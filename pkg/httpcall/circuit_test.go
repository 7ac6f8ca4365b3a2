package httpcall_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/queuekit/queuekit/pkg/httpcall"
)

func TestCircuitBreaker(t *testing.T) {
	t.Parallel()

	t.Run("starts closed", func(t *testing.T) {
		t.Parallel()

		cb := httpcall.NewCircuitBreaker(3, 2, time.Minute)
		assert.Equal(t, httpcall.CircuitClosed, cb.State())
		assert.True(t, cb.Allow())
	})

	t.Run("opens at failure threshold", func(t *testing.T) {
		t.Parallel()

		cb := httpcall.NewCircuitBreaker(3, 2, time.Minute)
		for i := 0; i < 3; i++ {
			cb.RecordFailure()
		}
		assert.Equal(t, httpcall.CircuitOpen, cb.State())
		assert.False(t, cb.Allow())
	})

	t.Run("success resets failure count while closed", func(t *testing.T) {
		t.Parallel()

		cb := httpcall.NewCircuitBreaker(3, 2, time.Minute)
		cb.RecordFailure()
		cb.RecordFailure()
		cb.RecordSuccess()
		cb.RecordFailure()
		cb.RecordFailure()
		assert.Equal(t, httpcall.CircuitClosed, cb.State())
	})

	t.Run("half-open after recovery timeout", func(t *testing.T) {
		t.Parallel()

		cb := httpcall.NewCircuitBreaker(1, 1, 10*time.Millisecond)
		cb.RecordFailure()
		assert.False(t, cb.Allow())

		time.Sleep(20 * time.Millisecond)
		assert.Equal(t, httpcall.CircuitHalfOpen, cb.State())
		assert.True(t, cb.Allow())
	})

	t.Run("half-open closes after enough successes", func(t *testing.T) {
		t.Parallel()

		cb := httpcall.NewCircuitBreaker(1, 2, 10*time.Millisecond)
		cb.RecordFailure()
		time.Sleep(20 * time.Millisecond)
		assert.True(t, cb.Allow())

		cb.RecordSuccess()
		assert.Equal(t, httpcall.CircuitHalfOpen, cb.State())
		cb.RecordSuccess()
		assert.Equal(t, httpcall.CircuitClosed, cb.State())
	})

	t.Run("half-open reopens on failure", func(t *testing.T) {
		t.Parallel()

		cb := httpcall.NewCircuitBreaker(1, 1, 10*time.Millisecond)
		cb.RecordFailure()
		time.Sleep(20 * time.Millisecond)
		assert.True(t, cb.Allow())

		cb.RecordFailure()
		assert.Equal(t, httpcall.CircuitOpen, cb.State())
		assert.False(t, cb.Allow())
	})

	t.Run("reset closes the circuit", func(t *testing.T) {
		t.Parallel()

		cb := httpcall.NewCircuitBreaker(1, 1, time.Hour)
		cb.RecordFailure()
		assert.False(t, cb.Allow())

		cb.Reset()
		assert.Equal(t, httpcall.CircuitClosed, cb.State())
		assert.True(t, cb.Allow())
	})

	t.Run("state strings", func(t *testing.T) {
		t.Parallel()

		assert.Equal(t, "closed", httpcall.CircuitClosed.String())
		assert.Equal(t, "open", httpcall.CircuitOpen.String())
		assert.Equal(t, "half-open", httpcall.CircuitHalfOpen.String())
	})
}
