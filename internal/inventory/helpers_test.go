package inventory

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/invsync/invsync/internal/domain"
	"github.com/invsync/invsync/internal/store"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeInventoryStore keeps snapshots in a map and records whether writes
// happened inside a transaction.
type fakeInventoryStore struct {
	mu         sync.Mutex
	db         *sql.DB
	tx         *sql.Tx
	snapshots  map[string]*domain.InventorySnapshot
	replaceErr error
	getErr     error
	txWrites   int
}

func newFakeInventoryStore(db *sql.DB) *fakeInventoryStore {
	return &fakeInventoryStore{db: db, snapshots: make(map[string]*domain.InventorySnapshot)}
}

func (s *fakeInventoryStore) ReplaceSnapshot(ctx context.Context, snapshot *domain.InventorySnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.replaceErr != nil {
		return s.replaceErr
	}
	if s.tx != nil {
		s.txWrites++
	}
	s.snapshots[snapshot.OrgID] = snapshot
	return nil
}

func (s *fakeInventoryStore) GetSnapshot(ctx context.Context, org string) (*domain.InventorySnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	snap, ok := s.snapshots[org]
	if !ok {
		return nil, store.ErrInventoryNotFound
	}
	return snap, nil
}

func (s *fakeInventoryStore) WithTx(tx *sql.Tx) store.InventoryStore {
	return &txInventoryStore{parent: s, tx: tx}
}

func (s *fakeInventoryStore) DB() *sql.DB {
	return s.db
}

type txInventoryStore struct {
	parent *fakeInventoryStore
	tx     *sql.Tx
}

func (s *txInventoryStore) ReplaceSnapshot(ctx context.Context, snapshot *domain.InventorySnapshot) error {
	s.parent.mu.Lock()
	s.parent.tx = s.tx
	s.parent.mu.Unlock()
	defer func() {
		s.parent.mu.Lock()
		s.parent.tx = nil
		s.parent.mu.Unlock()
	}()
	return s.parent.ReplaceSnapshot(ctx, snapshot)
}

func (s *txInventoryStore) GetSnapshot(ctx context.Context, org string) (*domain.InventorySnapshot, error) {
	return s.parent.GetSnapshot(ctx, org)
}

func (s *txInventoryStore) WithTx(tx *sql.Tx) store.InventoryStore {
	return &txInventoryStore{parent: s.parent, tx: tx}
}

func (s *txInventoryStore) DB() *sql.DB {
	return s.parent.db
}

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return db, mock
}

type fakeFetcher struct {
	items []domain.InventoryItem
	err   error
	calls int
}

func (f *fakeFetcher) FetchInventory(ctx context.Context) ([]domain.InventoryItem, error) {
	f.calls++
	return f.items, f.err
}

func providerFor(f Fetcher) ClientProvider {
	return ClientProviderFunc(func(orgID string) (Fetcher, error) {
		if err := domain.ValidateOrgID(orgID); err != nil {
			return nil, err
		}
		return f, nil
	})
}
