package inventory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/invsync/invsync/internal/domain"
	"github.com/invsync/invsync/internal/events"
	"github.com/invsync/invsync/internal/store"
	"github.com/invsync/invsync/internal/task"
)

// ErrInventoryNotFound is returned when an organization has no stored snapshot.
var ErrInventoryNotFound = errors.New("inventory not found")

// RefreshRequest is the payload attached to refresh tasks.
type RefreshRequest struct {
	Reason string `json:"reason,omitempty"`
}

// Service requests inventory refreshes and reads stored snapshots.
type Service struct {
	emitter events.EventEmitter
	store   store.InventoryStore
	logger  *slog.Logger
}

// NewService creates a Service.
func NewService(emitter events.EventEmitter, inventoryStore store.InventoryStore, logger *slog.Logger) (*Service, error) {
	if emitter == nil {
		return nil, errors.New("event emitter cannot be nil")
	}
	if inventoryStore == nil {
		return nil, errors.New("inventory store cannot be nil")
	}
	return &Service{
		emitter: emitter,
		store:   inventoryStore,
		logger:  logger.With("component", "inventory_service"),
	}, nil
}

// RequestRefresh asks for orgID's inventory to be refreshed in the
// background and returns the ID of the queued task.
func (s *Service) RequestRefresh(ctx context.Context, orgID, reason string) (uuid.UUID, error) {
	if err := domain.ValidateOrgID(orgID); err != nil {
		return uuid.Nil, err
	}

	var payload any
	if reason != "" {
		payload = RefreshRequest{Reason: reason}
	}

	event, err := events.NewTaskRequestEvent(task.TaskTypeUpdateOrgInventory, orgID, payload)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create task request event: %w", err)
	}

	if err := s.emitter.EmitEvent(ctx, event); err != nil {
		s.logger.Error("failed to request inventory refresh",
			"error", err,
			"org_id", orgID,
			"event_id", event.ID)
		return uuid.Nil, fmt.Errorf("failed to request inventory refresh: %w", err)
	}

	s.logger.Info("inventory refresh requested", "org_id", orgID, "task_id", event.ID)
	return event.ID, nil
}

// GetInventory returns orgID's stored snapshot.
func (s *Service) GetInventory(ctx context.Context, orgID string) (*domain.InventorySnapshot, error) {
	if err := domain.ValidateOrgID(orgID); err != nil {
		return nil, err
	}

	snapshot, err := s.store.GetSnapshot(ctx, orgID)
	if err != nil {
		if store.IsNotFoundError(err) {
			return nil, ErrInventoryNotFound
		}
		return nil, fmt.Errorf("failed to get inventory: %w", err)
	}
	return snapshot, nil
}
