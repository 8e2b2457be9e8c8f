package postgres_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/invsync/invsync/internal/domain"
	"github.com/invsync/invsync/internal/platform/postgres"
	"github.com/invsync/invsync/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSnapshot(t *testing.T, items ...domain.InventoryItem) *domain.InventorySnapshot {
	t.Helper()
	snapshot, err := domain.NewInventorySnapshot("acme", items, time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	return snapshot
}

func TestPostgresInventoryStore_ReplaceSnapshot(t *testing.T) {
	t.Parallel()

	stamp := time.Date(2026, 2, 28, 18, 30, 0, 0, time.UTC)

	t.Run("writes header and items in one transaction", func(t *testing.T) {
		db, mock := newMockDB(t)
		s := postgres.NewPostgresInventoryStore(db, nil)
		snapshot := testSnapshot(t,
			domain.InventoryItem{SKU: "A-1", Name: "Anvil", Quantity: 3, UpdatedAt: stamp},
			domain.InventoryItem{SKU: "B-2", Name: "Bolt", Quantity: 40},
		)

		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO inventory_snapshots`).
			WithArgs("acme", snapshot.FetchedAt, 2, int64(43), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`DELETE FROM inventory_items WHERE org_id = \$1`).
			WithArgs("acme").
			WillReturnResult(sqlmock.NewResult(0, 5))
		mock.ExpectExec(`INSERT INTO inventory_items \(org_id, sku, name, quantity, updated_at\) VALUES \(\$1, \$2, \$3, \$4, \$5\), \(\$6, \$7, \$8, \$9, \$10\)`).
			WithArgs("acme", "A-1", "Anvil", int64(3), stamp, "acme", "B-2", "Bolt", int64(40), nil).
			WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectCommit()

		require.NoError(t, s.ReplaceSnapshot(context.Background(), snapshot))
	})

	t.Run("empty snapshot clears items", func(t *testing.T) {
		db, mock := newMockDB(t)
		s := postgres.NewPostgresInventoryStore(db, nil)

		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO inventory_snapshots`).
			WithArgs("acme", sqlmock.AnyArg(), 0, int64(0), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`DELETE FROM inventory_items`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()

		require.NoError(t, s.ReplaceSnapshot(context.Background(), testSnapshot(t)))
	})

	t.Run("large snapshots are inserted in batches", func(t *testing.T) {
		db, mock := newMockDB(t)
		s := postgres.NewPostgresInventoryStore(db, nil)

		items := make([]domain.InventoryItem, 1500)
		for i := range items {
			items[i] = domain.InventoryItem{SKU: fmt.Sprintf("SKU-%04d", i), Quantity: 1}
		}

		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO inventory_snapshots`).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`DELETE FROM inventory_items`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(`INSERT INTO inventory_items`).WillReturnResult(sqlmock.NewResult(0, 1000))
		mock.ExpectExec(`INSERT INTO inventory_items`).WillReturnResult(sqlmock.NewResult(0, 500))
		mock.ExpectCommit()

		require.NoError(t, s.ReplaceSnapshot(context.Background(), testSnapshot(t, items...)))
	})

	t.Run("failure rolls back", func(t *testing.T) {
		db, mock := newMockDB(t)
		s := postgres.NewPostgresInventoryStore(db, nil)
		boom := errors.New("disk full")

		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO inventory_snapshots`).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`DELETE FROM inventory_items`).WillReturnError(boom)
		mock.ExpectRollback()

		err := s.ReplaceSnapshot(context.Background(), testSnapshot(t,
			domain.InventoryItem{SKU: "A-1", Quantity: 1}))
		assert.ErrorIs(t, err, boom)

		var storeErr *store.StoreError
		require.ErrorAs(t, err, &storeErr)
		assert.Equal(t, "inventory", storeErr.Entity)
		assert.Equal(t, "replace", storeErr.Operation)
	})

	t.Run("bound to a transaction does not open another", func(t *testing.T) {
		db, mock := newMockDB(t)
		s := postgres.NewPostgresInventoryStore(db, nil)

		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO inventory_snapshots`).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`DELETE FROM inventory_items`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()

		tx, err := db.BeginTx(context.Background(), nil)
		require.NoError(t, err)

		txStore := s.WithTx(tx)
		require.NoError(t, txStore.ReplaceSnapshot(context.Background(), testSnapshot(t)))
		require.NoError(t, tx.Commit())
	})

	t.Run("invalid snapshot", func(t *testing.T) {
		db, _ := newMockDB(t)
		s := postgres.NewPostgresInventoryStore(db, nil)

		err := s.ReplaceSnapshot(context.Background(), &domain.InventorySnapshot{OrgID: ""})
		assert.ErrorIs(t, err, store.ErrInvalidEntity)

		err = s.ReplaceSnapshot(context.Background(), nil)
		assert.ErrorIs(t, err, store.ErrInvalidEntity)
	})
}

func TestPostgresInventoryStore_GetSnapshot(t *testing.T) {
	t.Parallel()

	fetched := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	t.Run("found", func(t *testing.T) {
		db, mock := newMockDB(t)
		s := postgres.NewPostgresInventoryStore(db, nil)

		mock.ExpectQuery(`SELECT fetched_at FROM inventory_snapshots WHERE org_id = \$1`).
			WithArgs("acme").
			WillReturnRows(sqlmock.NewRows([]string{"fetched_at"}).AddRow(fetched))
		mock.ExpectQuery(`FROM inventory_items\s+WHERE org_id = \$1\s+ORDER BY sku ASC`).
			WithArgs("acme").
			WillReturnRows(sqlmock.NewRows([]string{"sku", "name", "quantity", "updated_at"}).
				AddRow("A-1", "Anvil", int64(3), fetched).
				AddRow("B-2", "Bolt", int64(40), nil))

		snapshot, err := s.GetSnapshot(context.Background(), "acme")
		require.NoError(t, err)
		assert.Equal(t, "acme", snapshot.OrgID)
		assert.Equal(t, fetched, snapshot.FetchedAt)
		require.Len(t, snapshot.Items, 2)
		assert.Equal(t, domain.InventoryItem{SKU: "A-1", Name: "Anvil", Quantity: 3, UpdatedAt: fetched}, snapshot.Items[0])
		assert.True(t, snapshot.Items[1].UpdatedAt.IsZero())
		assert.Equal(t, int64(43), snapshot.TotalQuantity())
	})

	t.Run("snapshot without items", func(t *testing.T) {
		db, mock := newMockDB(t)
		s := postgres.NewPostgresInventoryStore(db, nil)

		mock.ExpectQuery(`FROM inventory_snapshots`).
			WillReturnRows(sqlmock.NewRows([]string{"fetched_at"}).AddRow(fetched))
		mock.ExpectQuery(`FROM inventory_items`).
			WillReturnRows(sqlmock.NewRows([]string{"sku", "name", "quantity", "updated_at"}))

		snapshot, err := s.GetSnapshot(context.Background(), "acme")
		require.NoError(t, err)
		assert.NotNil(t, snapshot.Items)
		assert.Empty(t, snapshot.Items)
	})

	t.Run("never refreshed", func(t *testing.T) {
		db, mock := newMockDB(t)
		s := postgres.NewPostgresInventoryStore(db, nil)

		mock.ExpectQuery(`FROM inventory_snapshots`).WillReturnError(sql.ErrNoRows)

		_, err := s.GetSnapshot(context.Background(), "acme")
		assert.ErrorIs(t, err, store.ErrInventoryNotFound)
		assert.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestPostgresInventoryStore_DB(t *testing.T) {
	t.Parallel()

	db, mock := newMockDB(t)
	s := postgres.NewPostgresInventoryStore(db, nil)
	assert.Same(t, db, s.DB())

	mock.ExpectBegin()
	mock.ExpectRollback()
	tx, err := db.Begin()
	require.NoError(t, err)
	assert.Nil(t, s.WithTx(tx).(*postgres.PostgresInventoryStore).DB())
	require.NoError(t, tx.Rollback())
}
