package database

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/Gobusters/ectologger"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (DB, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	return NewDatabaseInstance(sqlx.NewDb(mockDB, "sqlmock"), logger), mock
}

func TestGetTx(t *testing.T) {
	t.Run("ReusesOpenTransactionFromContext", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectBegin()
		mock.ExpectCommit()

		txCtx, tx, err := db.GetTx(context.Background(), nil)
		require.NoError(t, err)

		_, inner, err := db.GetTx(txCtx, nil)
		require.NoError(t, err)
		assert.Same(t, tx, inner)

		require.NoError(t, tx.Commit(txCtx))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("InnerRollbackIsANoopOnThePropagatedContext", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectBegin()
		mock.ExpectCommit()

		txCtx, tx, err := db.GetTx(context.Background(), nil)
		require.NoError(t, err)

		// A callee holding the propagated context must not close the
		// transaction out from under its owner.
		require.NoError(t, tx.Rollback(txCtx))
		assert.True(t, tx.IsOpen())

		require.NoError(t, tx.Commit(txCtx))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("OwnerRollbackClosesTheTransaction", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectBegin()
		mock.ExpectRollback()

		_, tx, err := db.GetTx(context.Background(), nil)
		require.NoError(t, err)

		require.NoError(t, tx.Rollback(context.Background()))
		assert.False(t, tx.IsOpen())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("RollbackAfterCommitIsANoop", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectBegin()
		mock.ExpectCommit()

		txCtx, tx, err := db.GetTx(context.Background(), nil)
		require.NoError(t, err)
		require.NoError(t, tx.Commit(txCtx))

		require.NoError(t, tx.Rollback(context.Background()))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestQuerierFromContext(t *testing.T) {
	t.Run("WithoutATransactionReadsThePool", func(t *testing.T) {
		db, _ := newMockDB(t)

		q := QuerierFromContext(context.Background(), db)
		assert.Same(t, db, q)
	})

	t.Run("OpenTransactionOnTheContextReadsTheTransaction", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectBegin()
		mock.ExpectCommit()

		txCtx, tx, err := db.GetTx(context.Background(), nil)
		require.NoError(t, err)

		q := QuerierFromContext(txCtx, db)
		assert.Same(t, tx, q)

		require.NoError(t, tx.Commit(txCtx))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("ClosedTransactionFallsBackToThePool", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectBegin()
		mock.ExpectRollback()

		txCtx, tx, err := db.GetTx(context.Background(), nil)
		require.NoError(t, err)
		require.NoError(t, tx.Rollback(context.Background()))

		q := QuerierFromContext(txCtx, db)
		assert.Same(t, db, q)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
