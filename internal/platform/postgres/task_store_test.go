package postgres_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/invsync/invsync/internal/platform/postgres"
	"github.com/invsync/invsync/internal/store"
	"github.com/invsync/invsync/internal/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var taskRowColumns = []string{
	"id", "type", "org_id", "payload", "status", "attempts", "error_message", "created_at", "updated_at",
}

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return db, mock
}

func newTaskStore(t *testing.T) (*postgres.PostgresTaskStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock := newMockDB(t)
	return postgres.NewPostgresTaskStore(db, nil), mock
}

func mustDescriptor(t *testing.T, org string) task.Descriptor {
	t.Helper()
	d, err := task.NewDescriptor(task.TaskTypeUpdateOrgInventory, org, nil)
	require.NoError(t, err)
	return d
}

func TestPostgresTaskStore_SaveTask(t *testing.T) {
	t.Parallel()

	t.Run("inserts pending row", func(t *testing.T) {
		s, mock := newTaskStore(t)
		d := mustDescriptor(t, "acme")

		mock.ExpectExec(`INSERT INTO tasks`).
			WithArgs(d.ID(), d.Type(), "acme", nil, "pending", 0, sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, s.SaveTask(context.Background(), d))
	})

	t.Run("duplicate id maps to ErrTaskExists", func(t *testing.T) {
		s, mock := newTaskStore(t)
		d := mustDescriptor(t, "acme")

		mock.ExpectExec(`INSERT INTO tasks`).WillReturnError(newPgError("23505"))

		err := s.SaveTask(context.Background(), d)
		assert.ErrorIs(t, err, store.ErrTaskExists)
		assert.ErrorIs(t, err, store.ErrDuplicate)
	})

	t.Run("other errors are wrapped", func(t *testing.T) {
		s, mock := newTaskStore(t)
		boom := errors.New("connection reset")

		mock.ExpectExec(`INSERT INTO tasks`).WillReturnError(boom)

		err := s.SaveTask(context.Background(), mustDescriptor(t, "acme"))
		assert.ErrorIs(t, err, boom)
		assert.Contains(t, err.Error(), "failed to save task")

		var storeErr *store.StoreError
		require.ErrorAs(t, err, &storeErr)
		assert.Equal(t, "task", storeErr.Entity)
		assert.Equal(t, "save", storeErr.Operation)
	})
}

func TestPostgresTaskStore_ClaimTask(t *testing.T) {
	t.Parallel()

	id := uuid.New()

	t.Run("claims pending task", func(t *testing.T) {
		s, mock := newTaskStore(t)
		mock.ExpectQuery(`UPDATE tasks\s+SET status = \$1, attempts = attempts \+ 1`).
			WithArgs("processing", sqlmock.AnyArg(), id, "pending").
			WillReturnRows(sqlmock.NewRows([]string{"attempts"}).AddRow(1))

		attempt, claimed, err := s.ClaimTask(context.Background(), id)
		require.NoError(t, err)
		assert.True(t, claimed)
		assert.Equal(t, 1, attempt)
	})

	t.Run("task held by another worker", func(t *testing.T) {
		s, mock := newTaskStore(t)
		mock.ExpectQuery(`UPDATE tasks`).WillReturnError(sql.ErrNoRows)
		mock.ExpectQuery(`SELECT attempts FROM tasks WHERE id = \$1`).
			WithArgs(id).
			WillReturnRows(sqlmock.NewRows([]string{"attempts"}).AddRow(2))

		attempt, claimed, err := s.ClaimTask(context.Background(), id)
		require.NoError(t, err)
		assert.False(t, claimed)
		assert.Equal(t, 2, attempt)
	})

	t.Run("missing task", func(t *testing.T) {
		s, mock := newTaskStore(t)
		mock.ExpectQuery(`UPDATE tasks`).WillReturnError(sql.ErrNoRows)
		mock.ExpectQuery(`SELECT attempts FROM tasks`).WillReturnError(sql.ErrNoRows)

		_, claimed, err := s.ClaimTask(context.Background(), id)
		assert.ErrorIs(t, err, store.ErrTaskNotFound)
		assert.False(t, claimed)
	})
}

func TestPostgresTaskStore_UpdateTaskStatus(t *testing.T) {
	t.Parallel()

	id := uuid.New()

	t.Run("stores error message", func(t *testing.T) {
		s, mock := newTaskStore(t)
		mock.ExpectExec(`UPDATE tasks\s+SET status = \$1, error_message = \$2`).
			WithArgs("failed", "upstream down", sqlmock.AnyArg(), id).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, s.UpdateTaskStatus(context.Background(), id, task.TaskStatusFailed, "upstream down"))
	})

	t.Run("empty message stored as NULL", func(t *testing.T) {
		s, mock := newTaskStore(t)
		mock.ExpectExec(`UPDATE tasks`).
			WithArgs("completed", nil, sqlmock.AnyArg(), id).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, s.UpdateTaskStatus(context.Background(), id, task.TaskStatusCompleted, ""))
	})

	t.Run("missing task", func(t *testing.T) {
		s, mock := newTaskStore(t)
		mock.ExpectExec(`UPDATE tasks`).WillReturnResult(sqlmock.NewResult(0, 0))

		err := s.UpdateTaskStatus(context.Background(), id, task.TaskStatusCompleted, "")
		assert.ErrorIs(t, err, store.ErrTaskNotFound)
	})

	t.Run("invalid status never reaches the database", func(t *testing.T) {
		s, _ := newTaskStore(t)
		err := s.UpdateTaskStatus(context.Background(), id, task.TaskStatus("archived"), "")
		assert.ErrorIs(t, err, store.ErrInvalidEntity)
	})
}

func TestPostgresTaskStore_GetTask(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("found", func(t *testing.T) {
		s, mock := newTaskStore(t)
		mock.ExpectQuery(`SELECT id, type, org_id, payload, status, attempts, error_message, created_at, updated_at FROM tasks WHERE id = \$1`).
			WithArgs(id).
			WillReturnRows(sqlmock.NewRows(taskRowColumns).
				AddRow(id.String(), "update_org_inventory", "acme", []byte(`{"reason":"manual"}`),
					"failed", 3, "timeout", created, created.Add(time.Minute)))

		rec, err := s.GetTask(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, id, rec.ID)
		assert.Equal(t, "acme", rec.OrgID)
		assert.Equal(t, task.TaskStatusFailed, rec.Status)
		assert.Equal(t, 3, rec.Attempts)
		assert.Equal(t, "timeout", rec.ErrorMessage)
		assert.JSONEq(t, `{"reason":"manual"}`, string(rec.Payload))
	})

	t.Run("not found", func(t *testing.T) {
		s, mock := newTaskStore(t)
		mock.ExpectQuery(`FROM tasks WHERE id = \$1`).WillReturnError(sql.ErrNoRows)

		_, err := s.GetTask(context.Background(), id)
		assert.ErrorIs(t, err, store.ErrTaskNotFound)
	})
}

func TestPostgresTaskStore_GetPendingTasks(t *testing.T) {
	t.Parallel()

	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	good := uuid.New()

	t.Run("applies limit and skips invalid rows", func(t *testing.T) {
		s, mock := newTaskStore(t)
		mock.ExpectQuery(`WHERE status = \$1 ORDER BY created_at ASC LIMIT \$2`).
			WithArgs("pending", 10).
			WillReturnRows(sqlmock.NewRows(taskRowColumns).
				AddRow(good.String(), "update_org_inventory", "acme", nil, "pending", 1, nil, created, created).
				AddRow(uuid.NewString(), "update_org_inventory", "bad org", nil, "pending", 0, nil, created, created))

		descriptors, err := s.GetPendingTasks(context.Background(), 10)
		require.NoError(t, err)
		require.Len(t, descriptors, 1)
		assert.Equal(t, good, descriptors[0].ID())
		assert.Equal(t, 1, descriptors[0].Attempts())
		assert.Equal(t, created, descriptors[0].CreatedAt())
	})

	t.Run("no limit", func(t *testing.T) {
		s, mock := newTaskStore(t)
		mock.ExpectQuery(`WHERE status = \$1 ORDER BY created_at ASC`).
			WithArgs("pending").
			WillReturnRows(sqlmock.NewRows(taskRowColumns))

		descriptors, err := s.GetPendingTasks(context.Background(), 0)
		require.NoError(t, err)
		assert.Empty(t, descriptors)
	})
}

func TestPostgresTaskStore_GetProcessingTasks(t *testing.T) {
	t.Parallel()

	s, mock := newTaskStore(t)
	mock.ExpectQuery(`WHERE status = \$1 AND updated_at < \$2`).
		WithArgs("processing", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(taskRowColumns))

	descriptors, err := s.GetProcessingTasks(context.Background(), 30*time.Minute)
	require.NoError(t, err)
	assert.Empty(t, descriptors)
}

func TestPostgresTaskStore_WithTx(t *testing.T) {
	t.Parallel()

	db, mock := newMockDB(t)
	s := postgres.NewPostgresTaskStore(db, nil)
	d := mustDescriptor(t, "acme")

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO tasks`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectRollback()

	tx, err := db.BeginTx(context.Background(), nil)
	require.NoError(t, err)
	require.NoError(t, s.WithTx(tx).SaveTask(context.Background(), d))
	require.NoError(t, tx.Rollback())
}
