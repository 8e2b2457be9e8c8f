package store

import (
	"context"
	"database/sql"

	"github.com/invsync/invsync/internal/domain"
)

// InventoryStore persists per-organization inventory snapshots.
type InventoryStore interface {
	// ReplaceSnapshot stores snapshot as the organization's current inventory,
	// discarding every item of the previous snapshot.
	ReplaceSnapshot(ctx context.Context, snapshot *domain.InventorySnapshot) error

	// GetSnapshot returns the organization's current inventory.
	// Returns ErrInventoryNotFound if the organization was never synced.
	GetSnapshot(ctx context.Context, org string) (*domain.InventorySnapshot, error)

	// WithTx returns a new InventoryStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) InventoryStore

	// DB returns the underlying database connection used to start transactions.
	DB() *sql.DB
}
