package logger_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/queuekit/queuekit/pkg/logger"
)

func TestAttrHelpers(t *testing.T) {
	t.Parallel()

	t.Run("error attr", func(t *testing.T) {
		t.Parallel()

		attr := logger.Error(errors.New("boom"))
		assert.Equal(t, "error", attr.Key)

		empty := logger.Error(nil)
		assert.Empty(t, empty.Key)
	})

	t.Run("identifier attrs", func(t *testing.T) {
		t.Parallel()

		assert.Equal(t, "task_id", logger.TaskID("abc").Key)
		assert.Empty(t, logger.TaskID(nil).Key)

		assert.Equal(t, "node_id", logger.NodeID("n1").Key)
		assert.Empty(t, logger.NodeID(nil).Key)

		assert.Equal(t, "organization_id", logger.OrganizationID("org").Key)
		assert.Empty(t, logger.OrganizationID(nil).Key)
	})

	t.Run("value attrs", func(t *testing.T) {
		t.Parallel()

		assert.Equal(t, "task_name", logger.TaskName("welcome").Key)
		assert.Equal(t, "queue", logger.Queue("emails").Key)
		assert.Equal(t, "retry_count", logger.RetryCount(2).Key)
		assert.Equal(t, "duration", logger.Duration(time.Second).Key)
		assert.Equal(t, "component", logger.Component("worker").Key)
	})
}
