package httpcall

import "errors"

// Error identities split into two classes the worker cares about:
// permanent failures go straight to the dead letter queue, temporary
// ones get rescheduled by the retry policy.
// ErrDeliveryFailed additionally marks failures where the endpoint was
// reached and answered with a non-2xx status, as opposed to network or
// validation errors.
var (
	ErrDeliveryFailed   = errors.New("endpoint rejected delivery")
	ErrPermanentFailure = errors.New("permanent http failure")
	ErrTemporaryFailure = errors.New("temporary http failure")
	ErrCircuitOpen      = errors.New("http circuit breaker is open")
	ErrInvalidURL       = errors.New("invalid request URL")
	ErrInvalidMethod    = errors.New("invalid request method")
	ErrTimeout          = errors.New("http request timeout")
)

// IsPermanent reports whether the error should not be retried.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrPermanentFailure)
}

// IsCircuitOpen reports whether the circuit breaker rejected the call.
func IsCircuitOpen(err error) bool {
	return errors.Is(err, ErrCircuitOpen)
}
