package api

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/invsync/invsync/internal/domain"
	"github.com/invsync/invsync/internal/task"
)

// RefreshInventoryRequest is the optional body of a refresh request.
type RefreshInventoryRequest struct {
	Reason string `json:"reason" validate:"max=256"`
}

// RefreshInventoryResponse acknowledges an accepted refresh.
type RefreshInventoryResponse struct {
	TaskID uuid.UUID `json:"task_id"`
	OrgID  string    `json:"org_id"`
	Status string    `json:"status"`
}

// InventoryItemResponse is one item of an inventory response.
type InventoryItemResponse struct {
	SKU       string     `json:"sku"`
	Name      string     `json:"name"`
	Quantity  int64      `json:"quantity"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// InventoryResponse is an organization's stored inventory snapshot.
type InventoryResponse struct {
	OrgID         string                  `json:"org_id"`
	FetchedAt     time.Time               `json:"fetched_at"`
	ItemCount     int                     `json:"item_count"`
	TotalQuantity int64                   `json:"total_quantity"`
	Items         []InventoryItemResponse `json:"items"`
}

// TaskResponse is the stored state of a task.
type TaskResponse struct {
	ID        uuid.UUID       `json:"id"`
	Type      string          `json:"type"`
	OrgID     string          `json:"org_id"`
	Status    string          `json:"status"`
	Attempts  int             `json:"attempts"`
	Error     string          `json:"error,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func inventoryToResponse(snapshot *domain.InventorySnapshot) InventoryResponse {
	items := make([]InventoryItemResponse, 0, len(snapshot.Items))
	for _, item := range snapshot.Items {
		resp := InventoryItemResponse{
			SKU:      item.SKU,
			Name:     item.Name,
			Quantity: item.Quantity,
		}
		if !item.UpdatedAt.IsZero() {
			updated := item.UpdatedAt
			resp.UpdatedAt = &updated
		}
		items = append(items, resp)
	}
	return InventoryResponse{
		OrgID:         snapshot.OrgID,
		FetchedAt:     snapshot.FetchedAt,
		ItemCount:     len(snapshot.Items),
		TotalQuantity: snapshot.TotalQuantity(),
		Items:         items,
	}
}

func taskToResponse(rec *task.Record) TaskResponse {
	return TaskResponse{
		ID:        rec.ID,
		Type:      rec.Type,
		OrgID:     rec.OrgID,
		Status:    string(rec.Status),
		Attempts:  rec.Attempts,
		Error:     rec.ErrorMessage,
		Payload:   rec.Payload,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}
}
