package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/invsync/invsync/internal/api/shared"
	"github.com/invsync/invsync/internal/domain"
	"github.com/invsync/invsync/internal/platform/logger"
	"github.com/invsync/invsync/internal/task"
)

// InventoryService is the part of inventory.Service the handler uses.
type InventoryService interface {
	RequestRefresh(ctx context.Context, orgID, reason string) (uuid.UUID, error)
	GetInventory(ctx context.Context, orgID string) (*domain.InventorySnapshot, error)
}

// InventoryHandler handles inventory-related HTTP requests
type InventoryHandler struct {
	service InventoryService
}

// NewInventoryHandler creates a new InventoryHandler
func NewInventoryHandler(service InventoryService) *InventoryHandler {
	return &InventoryHandler{service: service}
}

// RefreshInventory handles POST /api/orgs/{org}/inventory/refresh.
// The refresh runs in the background; the response carries the task ID.
func (h *InventoryHandler) RefreshInventory(w http.ResponseWriter, r *http.Request) {
	orgID, err := getPathOrgID(r, "org")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	var req RefreshInventoryRequest
	if err := shared.DecodeJSON(w, r, &req); err != nil && !errors.Is(err, shared.ErrEmptyBody) {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	taskID, err := h.service.RequestRefresh(r.Context(), orgID, req.Reason)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to request inventory refresh")
		return
	}

	logger.FromContext(r.Context()).Info("inventory refresh accepted",
		"org_id", orgID,
		"task_id", taskID)

	shared.RespondWithJSON(w, r, http.StatusAccepted, RefreshInventoryResponse{
		TaskID: taskID,
		OrgID:  orgID,
		Status: string(task.TaskStatusPending),
	})
}

// GetInventory handles GET /api/orgs/{org}/inventory.
func (h *InventoryHandler) GetInventory(w http.ResponseWriter, r *http.Request) {
	orgID, err := getPathOrgID(r, "org")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	snapshot, err := h.service.GetInventory(r.Context(), orgID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get inventory")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, inventoryToResponse(snapshot))
}
