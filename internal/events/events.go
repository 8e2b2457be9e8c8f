package events

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNilEvent is returned when a nil event is emitted.
var ErrNilEvent = errors.New("event cannot be nil")

// TaskRequestEvent represents a request to run a background task for an
// organization. It carries what the task package needs to build a
// descriptor without importing it.
type TaskRequestEvent struct {
	// ID is a unique identifier for this event. Handlers reuse it as the task
	// ID, so emitting the same event twice queues the task once.
	ID uuid.UUID `json:"id"`

	// Type indicates the task type that should be created
	Type string `json:"type"`

	// OrgID is the organization the task works on
	OrgID string `json:"org_id"`

	// Payload contains the task-specific data serialized as JSON
	Payload json.RawMessage `json:"payload,omitempty"`

	// CreatedAt is the timestamp when the event was created
	CreatedAt time.Time `json:"created_at"`
}

// UnmarshalPayload decodes the event payload into the provided structure.
// An empty payload leaves v untouched.
func (e *TaskRequestEvent) UnmarshalPayload(v any) error {
	if len(e.Payload) == 0 {
		return nil
	}
	return json.Unmarshal(e.Payload, v)
}

// NewTaskRequestEvent creates a new TaskRequestEvent for orgID.
// A nil payload produces an event without a payload.
func NewTaskRequestEvent(eventType, orgID string, payload any) (*TaskRequestEvent, error) {
	var payloadBytes json.RawMessage
	if payload != nil {
		var err error
		payloadBytes, err = json.Marshal(payload)
		if err != nil {
			return nil, err
		}
	}

	return &TaskRequestEvent{
		ID:        uuid.New(),
		Type:      eventType,
		OrgID:     orgID,
		Payload:   payloadBytes,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// EventHandler defines an interface for components that can handle events.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	// Returns an error if the event cannot be handled successfully.
	HandleEvent(ctx context.Context, event *TaskRequestEvent) error
}

// EventEmitter defines an interface for components that can emit events.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	EmitEvent(ctx context.Context, event *TaskRequestEvent) error
}
