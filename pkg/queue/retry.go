package queue

import (
	"math"
	"math/rand"
	"time"
)

// RetryPolicy decides how long a failed task waits before it is
// re-enqueued as pending. The attempt number starts at 1 for the first
// retry. Policies are kind-agnostic; per-kind behaviour is selected when
// constructing the worker that serves that kind's queue.
type RetryPolicy interface {
	NextDelay(attempt int) time.Duration
}

// LinearBackoff increases the delay by a fixed interval per attempt:
// min(Interval * attempt, MaxInterval).
type LinearBackoff struct {
	Interval    time.Duration
	MaxInterval time.Duration
}

func (l LinearBackoff) NextDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}

	interval := l.Interval
	if interval == 0 {
		interval = 30 * time.Second
	}

	delay := interval * time.Duration(attempt)
	if l.MaxInterval > 0 && delay > l.MaxInterval {
		delay = l.MaxInterval
	}
	return delay
}

// ExponentialBackoff grows the delay geometrically with optional jitter.
// Jitter spreads retry times so concurrent failures don't re-enqueue into
// the same claim window.
// Formula: min(InitialInterval * Multiplier^(attempt-1) * (1 ± JitterFactor), MaxInterval)
type ExponentialBackoff struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
	JitterFactor    float64
}

func (e ExponentialBackoff) NextDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}

	initial := e.InitialInterval
	if initial == 0 {
		initial = time.Second
	}

	maxInterval := e.MaxInterval
	if maxInterval == 0 {
		maxInterval = 30 * time.Minute
	}

	multiplier := e.Multiplier
	if multiplier == 0 {
		multiplier = 2
	}

	delay := float64(initial) * math.Pow(multiplier, float64(attempt-1))

	if e.JitterFactor > 0 {
		randomJitter := (rand.Float64()*2 - 1) * e.JitterFactor
		delay = delay * (1 + randomJitter)
	}

	if delay > float64(maxInterval) {
		delay = float64(maxInterval)
	}

	return time.Duration(delay)
}

// NoBackoff makes every retry eligible immediately. Mostly useful in tests.
type NoBackoff struct{}

func (NoBackoff) NextDelay(int) time.Duration { return 0 }

// DefaultRetryPolicy is applied when a worker is built without an explicit
// policy: 30s, 60s, 90s... between attempts.
func DefaultRetryPolicy() RetryPolicy {
	return LinearBackoff{Interval: 30 * time.Second}
}
