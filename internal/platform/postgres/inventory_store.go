package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/invsync/invsync/internal/domain"
	"github.com/invsync/invsync/internal/platform/logger"
	"github.com/invsync/invsync/internal/store"
)

// itemsPerInsert bounds the rows of one multi-row INSERT; each row binds 5 parameters.
const itemsPerInsert = 1000

// PostgresInventoryStore implements store.InventoryStore using PostgreSQL.
type PostgresInventoryStore struct {
	db     store.DBTX
	logger *slog.Logger
	now    func() time.Time
}

// NewPostgresInventoryStore creates a new PostgresInventoryStore.
func NewPostgresInventoryStore(db store.DBTX, logger *slog.Logger) *PostgresInventoryStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresInventoryStore{
		db:     db,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// ReplaceSnapshot upserts the snapshot header and rewrites the item rows.
// When the store is not bound to a transaction it opens one, so readers
// never see a half-written snapshot.
func (s *PostgresInventoryStore) ReplaceSnapshot(ctx context.Context, snapshot *domain.InventorySnapshot) error {
	if snapshot == nil {
		return fmt.Errorf("%w: nil snapshot", store.ErrInvalidEntity)
	}
	if err := snapshot.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	if db, ok := s.db.(*sql.DB); ok {
		return store.RunInTransaction(ctx, db, func(ctx context.Context, tx *sql.Tx) error {
			return s.withDB(tx).replace(ctx, snapshot)
		})
	}
	return s.replace(ctx, snapshot)
}

func (s *PostgresInventoryStore) replace(ctx context.Context, snapshot *domain.InventorySnapshot) error {
	log := logger.FromContextOrDefault(ctx, s.logger).With("org_id", snapshot.OrgID)

	upsert := `
		INSERT INTO inventory_snapshots (org_id, fetched_at, item_count, total_quantity, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (org_id) DO UPDATE
		SET fetched_at = EXCLUDED.fetched_at,
			item_count = EXCLUDED.item_count,
			total_quantity = EXCLUDED.total_quantity,
			updated_at = EXCLUDED.updated_at
	`
	if _, err := s.db.ExecContext(ctx, upsert,
		snapshot.OrgID,
		snapshot.FetchedAt,
		len(snapshot.Items),
		snapshot.TotalQuantity(),
		s.now(),
	); err != nil {
		log.Error("failed to upsert inventory snapshot", "error", err)
		return store.NewStoreError("inventory", "replace", "failed to upsert inventory snapshot", MapError(err))
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM inventory_items WHERE org_id = $1`, snapshot.OrgID); err != nil {
		log.Error("failed to delete previous inventory items", "error", err)
		return store.NewStoreError("inventory", "replace", "failed to delete previous inventory items", MapError(err))
	}

	for start := 0; start < len(snapshot.Items); start += itemsPerInsert {
		end := start + itemsPerInsert
		if end > len(snapshot.Items) {
			end = len(snapshot.Items)
		}
		query, args := buildItemInsert(snapshot.OrgID, snapshot.Items[start:end])
		if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
			log.Error("failed to insert inventory items", "error", err, "batch_start", start)
			return store.NewStoreError("inventory", "replace", "failed to insert inventory items", MapError(err))
		}
	}

	log.Debug("inventory snapshot replaced", "item_count", len(snapshot.Items))
	return nil
}

func buildItemInsert(orgID string, items []domain.InventoryItem) (string, []any) {
	var b strings.Builder
	b.WriteString("INSERT INTO inventory_items (org_id, sku, name, quantity, updated_at) VALUES ")

	args := make([]any, 0, len(items)*5)
	for i, item := range items {
		if i > 0 {
			b.WriteString(", ")
		}
		n := i * 5
		fmt.Fprintf(&b, "($%d, $%d, $%d, $%d, $%d)", n+1, n+2, n+3, n+4, n+5)

		var updatedAt sql.NullTime
		if !item.UpdatedAt.IsZero() {
			updatedAt = sql.NullTime{Time: item.UpdatedAt.UTC(), Valid: true}
		}
		args = append(args, orgID, item.SKU, item.Name, item.Quantity, updatedAt)
	}
	return b.String(), args
}

// GetSnapshot returns the organization's current inventory, items ordered by SKU.
func (s *PostgresInventoryStore) GetSnapshot(ctx context.Context, orgID string) (*domain.InventorySnapshot, error) {
	snapshot := &domain.InventorySnapshot{OrgID: orgID, Items: []domain.InventoryItem{}}

	err := s.db.QueryRowContext(ctx,
		`SELECT fetched_at FROM inventory_snapshots WHERE org_id = $1`, orgID,
	).Scan(&snapshot.FetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrInventoryNotFound
	}
	if err != nil {
		return nil, store.NewStoreError("inventory", "get", "failed to get inventory snapshot", MapError(err))
	}
	snapshot.FetchedAt = snapshot.FetchedAt.UTC()

	rows, err := s.db.QueryContext(ctx, `
		SELECT sku, name, quantity, updated_at
		FROM inventory_items
		WHERE org_id = $1
		ORDER BY sku ASC
	`, orgID)
	if err != nil {
		return nil, store.NewStoreError("inventory", "get", "failed to query inventory items", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			item      domain.InventoryItem
			updatedAt sql.NullTime
		)
		if err := rows.Scan(&item.SKU, &item.Name, &item.Quantity, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan inventory item: %w", err)
		}
		if updatedAt.Valid {
			item.UpdatedAt = updatedAt.Time.UTC()
		}
		snapshot.Items = append(snapshot.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating inventory items: %w", err)
	}

	return snapshot, nil
}

// WithTx returns a new PostgresInventoryStore that runs its queries in tx.
func (s *PostgresInventoryStore) WithTx(tx *sql.Tx) store.InventoryStore {
	return s.withDB(tx)
}

func (s *PostgresInventoryStore) withDB(db store.DBTX) *PostgresInventoryStore {
	return &PostgresInventoryStore{
		db:     db,
		logger: s.logger,
		now:    s.now,
	}
}

// DB returns the underlying *sql.DB, or nil when the store is bound to a transaction.
func (s *PostgresInventoryStore) DB() *sql.DB {
	db, _ := s.db.(*sql.DB)
	return db
}

var _ store.InventoryStore = (*PostgresInventoryStore)(nil)
