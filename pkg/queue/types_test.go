package queue_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/queuekit/queuekit/pkg/queue"
)

func TestTaskStatus_Terminal(t *testing.T) {
	t.Parallel()

	assert.False(t, queue.TaskStatusPending.Terminal())
	assert.False(t, queue.TaskStatusProcessing.Terminal())
	assert.True(t, queue.TaskStatusCompleted.Terminal())
	assert.True(t, queue.TaskStatusFailed.Terminal())
}

func TestPriority_Valid(t *testing.T) {
	t.Parallel()

	assert.True(t, queue.PriorityMin.Valid())
	assert.True(t, queue.PriorityDefault.Valid())
	assert.True(t, queue.PriorityMax.Valid())
	assert.False(t, queue.Priority(-1).Valid())
	assert.False(t, queue.Priority(101).Valid())
}
