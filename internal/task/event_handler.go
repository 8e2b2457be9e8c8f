package task

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/invsync/invsync/internal/events"
)

// EnqueueEventHandler implements events.EventHandler by turning each
// TaskRequestEvent into a descriptor and enqueueing it.
type EnqueueEventHandler struct {
	queue  TaskQueue
	logger *slog.Logger
}

// NewEnqueueEventHandler creates a handler that enqueues onto queue.
func NewEnqueueEventHandler(queue TaskQueue, logger *slog.Logger) *EnqueueEventHandler {
	return &EnqueueEventHandler{
		queue:  queue,
		logger: logger.With("component", "enqueue_event_handler"),
	}
}

// HandleEvent enqueues the task the event asks for.
//
// The event ID becomes the task ID. When a task with that ID is already
// stored the event is treated as handled.
func (h *EnqueueEventHandler) HandleEvent(ctx context.Context, event *events.TaskRequestEvent) error {
	if event == nil {
		return events.ErrNilEvent
	}

	log := h.logger.With(
		"event_id", event.ID,
		"event_type", event.Type,
		"org_id", event.OrgID,
	)

	d, err := NewDescriptorWithID(event.ID, event.Type, event.OrgID, []byte(event.Payload))
	if err != nil {
		log.Error("failed to build task descriptor", "error", err)
		return fmt.Errorf("failed to build task descriptor: %w", err)
	}

	if err := h.queue.Enqueue(ctx, d); err != nil {
		if IsDuplicate(err) {
			log.Info("task for event already enqueued", "task_id", d.ID())
			return nil
		}
		log.Error("failed to enqueue task", "error", err, "task_id", d.ID())
		return fmt.Errorf("failed to enqueue task: %w", err)
	}

	log.Info("task enqueued from event", "task_id", d.ID())
	return nil
}

var _ events.EventHandler = (*EnqueueEventHandler)(nil)
