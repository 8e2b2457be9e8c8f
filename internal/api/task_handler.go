package api

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/invsync/invsync/internal/api/shared"
	"github.com/invsync/invsync/internal/store"
	"github.com/invsync/invsync/internal/task"
)

// TaskReader looks up stored tasks.
type TaskReader interface {
	GetTask(ctx context.Context, id uuid.UUID) (*task.Record, error)
}

// TaskHandler serves task status.
type TaskHandler struct {
	tasks TaskReader
}

// NewTaskHandler creates a TaskHandler. tasks may be nil when the queue
// backend does not keep task records.
func NewTaskHandler(tasks TaskReader) *TaskHandler {
	return &TaskHandler{tasks: tasks}
}

// GetTask handles GET /api/tasks/{id}. Tasks of organizations the caller
// may not access are reported as not found.
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	if h.tasks == nil {
		HandleAPIError(w, r, errTaskTrackingDisabled, "")
		return
	}

	id, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	rec, err := h.tasks.GetTask(r.Context(), id)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get task")
		return
	}

	claims, ok := shared.GetClaims(r.Context())
	if !ok || !claims.AllowsOrg(rec.OrgID) {
		HandleAPIError(w, r, store.ErrTaskNotFound, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, taskToResponse(rec))
}
