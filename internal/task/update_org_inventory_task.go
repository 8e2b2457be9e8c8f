package task

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/invsync/invsync/internal/domain"
	"github.com/invsync/invsync/internal/platform/logger"
)

// InventoryController refreshes an organization's stored inventory.
type InventoryController interface {
	UpdateInventoryForOrg(ctx context.Context, orgID string) error
}

// UpdateOrgInventoryTask refreshes the inventory of one organization.
type UpdateOrgInventoryTask struct {
	id         uuid.UUID
	orgID      string
	controller InventoryController
}

// NewUpdateOrgInventoryTask creates a task with a fresh ID.
func NewUpdateOrgInventoryTask(controller InventoryController, orgID string) (*UpdateOrgInventoryTask, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return nil, fmt.Errorf("failed to generate task id: %w", err)
	}
	return newUpdateOrgInventoryTask(id, controller, orgID)
}

func newUpdateOrgInventoryTask(
	id uuid.UUID,
	controller InventoryController,
	orgID string,
) (*UpdateOrgInventoryTask, error) {
	if controller == nil {
		return nil, ErrNilController
	}
	if err := domain.ValidateOrgID(orgID); err != nil {
		return nil, err
	}
	return &UpdateOrgInventoryTask{
		id:         id,
		orgID:      orgID,
		controller: controller,
	}, nil
}

// NewUpdateOrgInventoryTaskFactory returns a Factory that builds
// UpdateOrgInventoryTask values sharing controller.
func NewUpdateOrgInventoryTaskFactory(controller InventoryController) (Factory, error) {
	if controller == nil {
		return nil, ErrNilController
	}
	return func(d Descriptor) (Task, error) {
		if d.Type() != TaskTypeUpdateOrgInventory {
			return nil, fmt.Errorf("%w: expected %s, got %s",
				ErrInvalidDescriptor, TaskTypeUpdateOrgInventory, d.Type())
		}
		return newUpdateOrgInventoryTask(d.ID(), controller, d.OrgID())
	}, nil
}

// ID returns the task's unique identifier
func (t *UpdateOrgInventoryTask) ID() uuid.UUID {
	return t.id
}

// Type returns the task type identifier
func (t *UpdateOrgInventoryTask) Type() string {
	return TaskTypeUpdateOrgInventory
}

// OrgID returns the organization whose inventory is refreshed
func (t *UpdateOrgInventoryTask) OrgID() string {
	return t.orgID
}

// Execute calls the controller once for the task's organization.
// The controller's error is returned wrapped, so errors.Is and errors.As
// still see the original.
func (t *UpdateOrgInventoryTask) Execute(ctx context.Context) error {
	log := logger.FromContext(ctx).With(
		"task_id", t.id.String(),
		"task_type", TaskTypeUpdateOrgInventory,
		"org_id", t.orgID,
	)
	log.Debug("updating organization inventory")

	if err := t.controller.UpdateInventoryForOrg(ctx, t.orgID); err != nil {
		return fmt.Errorf("failed to update inventory for org %s: %w", t.orgID, err)
	}

	log.Debug("organization inventory updated")
	return nil
}
