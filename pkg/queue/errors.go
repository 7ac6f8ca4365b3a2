package queue

import "errors"

// Common errors
var (
	// ErrRepositoryNil is returned when a nil repository is provided
	ErrRepositoryNil = errors.New("repository cannot be nil")

	// ErrPayloadNil is returned when attempting to enqueue a nil payload
	ErrPayloadNil = errors.New("payload cannot be nil")

	// ErrInvalidPriority is returned when priority is outside valid range
	ErrInvalidPriority = errors.New("priority must be between 0 and 100")

	// ErrInvalidBatchSize is returned when a claim is requested with a
	// non-positive batch size
	ErrInvalidBatchSize = errors.New("batch size must be positive")

	// ErrNoTaskToClaim is returned by repositories when no eligible task
	// exists; workers treat it as a normal empty tick, not a failure
	ErrNoTaskToClaim = errors.New("no eligible task to claim")

	// ErrLockTimeout is returned when a claim could not acquire the row
	// locks within the store's bounded wait. The whole claim cycle is
	// abandoned and retried on the next scheduler tick.
	ErrLockTimeout = errors.New("claim aborted: lock wait timeout exceeded")

	// ErrHandlerNotFound is returned when no handler is registered for a task
	ErrHandlerNotFound = errors.New("no handler registered for task type")

	// ErrNoHandlers is returned when worker has no handlers registered
	ErrNoHandlers = errors.New("no task handlers registered")

	// ErrTaskAlreadyRegistered is returned when trying to register a duplicate periodic task
	ErrTaskAlreadyRegistered = errors.New("task already registered")

	// ErrSchedulerNotConfigured is returned when scheduler has no tasks
	ErrSchedulerNotConfigured = errors.New("scheduler has no registered tasks")

	// ErrNoScheduleSpecified is returned when no schedule is provided for a periodic task
	ErrNoScheduleSpecified = errors.New("no schedule specified for periodic task")

	// ErrTaskNotFound is returned when a transition targets an unknown task id
	ErrTaskNotFound = errors.New("task not found")

	// ErrTaskNotProcessing is returned when a terminal transition is
	// attempted on a task that is not currently claimed
	ErrTaskNotProcessing = errors.New("task is not in processing state")

	// ErrPermanent marks a handler failure that retrying cannot fix.
	// Workers fail such tasks immediately regardless of retries left.
	ErrPermanent = errors.New("permanent task failure")
)

// Permanent wraps err so the worker skips remaining retries. Handlers
// use it for failures where a repeat attempt would produce the same
// result, like a 404 from an HTTP endpoint.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return errors.Join(ErrPermanent, err)
}
