package inventory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/invsync/invsync/internal/constants"
	"github.com/invsync/invsync/internal/domain"
	"github.com/invsync/invsync/internal/platform/inventoryapi"
	"github.com/invsync/invsync/internal/platform/logger"
	"github.com/invsync/invsync/internal/store"
	"github.com/invsync/invsync/internal/task"
)

// Fetcher retrieves the current inventory of one organization.
type Fetcher interface {
	FetchInventory(ctx context.Context) ([]domain.InventoryItem, error)
}

// ClientProvider returns a Fetcher scoped to an organization.
type ClientProvider interface {
	ForOrg(orgID string) (Fetcher, error)
}

// ClientProviderFunc adapts a function to ClientProvider.
type ClientProviderFunc func(orgID string) (Fetcher, error)

// ForOrg calls f(orgID).
func (f ClientProviderFunc) ForOrg(orgID string) (Fetcher, error) {
	return f(orgID)
}

// FactoryProvider exposes an inventoryapi.ClientFactory as a ClientProvider.
func FactoryProvider(factory *inventoryapi.ClientFactory) ClientProvider {
	return ClientProviderFunc(func(orgID string) (Fetcher, error) {
		return factory.ForOrg(orgID)
	})
}

// Controller refreshes stored inventory snapshots from the upstream API.
type Controller struct {
	clients ClientProvider
	store   store.InventoryStore
	logger  *slog.Logger
	now     func() time.Time
}

// NewController creates a Controller.
func NewController(clients ClientProvider, inventoryStore store.InventoryStore, logger *slog.Logger) (*Controller, error) {
	if clients == nil {
		return nil, errors.New("client provider cannot be nil")
	}
	if inventoryStore == nil {
		return nil, errors.New("inventory store cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	return &Controller{
		clients: clients,
		store:   inventoryStore,
		logger:  logger.With("component", constants.ComponentInventoryController),
		now:     time.Now,
	}, nil
}

// UpdateInventoryForOrg fetches orgID's inventory and replaces its stored
// snapshot in one transaction.
//
// Failures that cannot succeed on retry (invalid org, upstream client errors
// other than 408 and 429, invalid upstream data) are marked with
// task.Permanent.
func (c *Controller) UpdateInventoryForOrg(ctx context.Context, orgID string) error {
	log := logger.FromContextOrDefault(ctx, c.logger).With("org_id", orgID)

	if err := domain.ValidateOrgID(orgID); err != nil {
		return task.Permanent(err)
	}

	client, err := c.clients.ForOrg(orgID)
	if err != nil {
		return task.Permanent(fmt.Errorf("failed to create inventory client: %w", err))
	}

	items, err := client.FetchInventory(ctx)
	if err != nil {
		log.Warn("failed to fetch inventory", "error", err)
		return classifyFetchError(err)
	}

	snapshot, err := domain.NewInventorySnapshot(orgID, items, c.now())
	if err != nil {
		log.Error("upstream returned invalid inventory", "error", err, "item_count", len(items))
		return task.Permanent(fmt.Errorf("%w: %w", domain.ErrValidation, err))
	}

	err = store.RunInTransaction(ctx, c.store.DB(), func(ctx context.Context, tx *sql.Tx) error {
		return c.store.WithTx(tx).ReplaceSnapshot(ctx, snapshot)
	})
	if err != nil {
		log.Error("failed to store inventory snapshot", "error", err)
		return fmt.Errorf("failed to store inventory snapshot: %w", err)
	}

	log.Info("inventory updated",
		"item_count", len(snapshot.Items),
		"total_quantity", snapshot.TotalQuantity())
	return nil
}

func classifyFetchError(err error) error {
	var apiErr *inventoryapi.APIError
	if errors.As(err, &apiErr) &&
		apiErr.StatusCode >= http.StatusBadRequest &&
		apiErr.StatusCode < http.StatusInternalServerError &&
		!apiErr.Temporary() {
		return task.Permanent(err)
	}
	if errors.Is(err, inventoryapi.ErrInvalidResponse) {
		return task.Permanent(err)
	}
	return err
}

var _ task.InventoryController = (*Controller)(nil)
