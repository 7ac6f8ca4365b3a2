package pg_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/queuekit/queuekit/pkg/pg"
)

func TestErrorClassifiers(t *testing.T) {
	t.Parallel()

	t.Run("not found", func(t *testing.T) {
		t.Parallel()

		assert.True(t, pg.IsNotFoundError(pgx.ErrNoRows))
		assert.True(t, pg.IsNotFoundError(fmt.Errorf("query: %w", pgx.ErrNoRows)))
		assert.False(t, pg.IsNotFoundError(errors.New("other")))
		assert.False(t, pg.IsNotFoundError(nil))
	})

	t.Run("lock timeout", func(t *testing.T) {
		t.Parallel()

		lockErr := &pgconn.PgError{Code: "55P03", Message: "canceling statement due to lock timeout"}
		assert.True(t, pg.IsLockTimeoutError(lockErr))
		assert.True(t, pg.IsLockTimeoutError(fmt.Errorf("claim: %w", lockErr)))
		assert.False(t, pg.IsLockTimeoutError(&pgconn.PgError{Code: "23505"}))
		assert.False(t, pg.IsLockTimeoutError(nil))
	})

	t.Run("duplicate key", func(t *testing.T) {
		t.Parallel()

		dupErr := &pgconn.PgError{Code: "23505", Message: "duplicate key value"}
		assert.True(t, pg.IsDuplicateKeyError(dupErr))
		assert.False(t, pg.IsDuplicateKeyError(&pgconn.PgError{Code: "55P03"}))
		assert.False(t, pg.IsDuplicateKeyError(nil))
	})

	t.Run("tx closed", func(t *testing.T) {
		t.Parallel()

		assert.True(t, pg.IsTxClosedError(pgx.ErrTxClosed))
		assert.False(t, pg.IsTxClosedError(errors.New("other")))
		assert.False(t, pg.IsTxClosedError(nil))
	})
}
