package task

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/invsync/invsync/internal/domain"
)

// Descriptor identifies a unit of deferred work: what kind of task to run and
// for which organization.
//
// A Descriptor is immutable once built. Its fields are unexported and Payload
// returns a copy, so a descriptor can be shared between goroutines freely.
type Descriptor struct {
	id        uuid.UUID
	taskType  string
	orgID     string
	payload   json.RawMessage
	createdAt time.Time
	attempts  int
}

// NewDescriptor creates a descriptor with a fresh ID.
// payload may be nil, a []byte holding JSON, or any value encodable as JSON.
func NewDescriptor(taskType, orgID string, payload any) (Descriptor, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return Descriptor{}, fmt.Errorf("failed to generate task id: %w", err)
	}
	return NewDescriptorWithID(id, taskType, orgID, payload)
}

// NewDescriptorWithID creates a descriptor using a caller supplied ID.
// Producers that need idempotent submission reuse a stable ID.
func NewDescriptorWithID(id uuid.UUID, taskType, orgID string, payload any) (Descriptor, error) {
	raw, err := encodePayload(payload)
	if err != nil {
		return Descriptor{}, err
	}
	return RestoreDescriptor(id, taskType, orgID, raw, time.Now().UTC(), 0)
}

// RestoreDescriptor rebuilds a descriptor from stored fields.
func RestoreDescriptor(
	id uuid.UUID,
	taskType, orgID string,
	payload []byte,
	createdAt time.Time,
	attempts int,
) (Descriptor, error) {
	if id == uuid.Nil {
		return Descriptor{}, fmt.Errorf("%w: id cannot be empty", ErrInvalidDescriptor)
	}
	if strings.TrimSpace(taskType) == "" {
		return Descriptor{}, fmt.Errorf("%w: task type cannot be empty", ErrInvalidDescriptor)
	}
	if err := domain.ValidateOrgID(orgID); err != nil {
		return Descriptor{}, fmt.Errorf("%w: %w", ErrInvalidDescriptor, err)
	}
	if attempts < 0 {
		return Descriptor{}, fmt.Errorf("%w: attempts cannot be negative", ErrInvalidDescriptor)
	}
	if len(payload) > 0 && !json.Valid(payload) {
		return Descriptor{}, fmt.Errorf("%w: payload is not valid JSON", ErrInvalidDescriptor)
	}

	var stored json.RawMessage
	if len(payload) > 0 {
		stored = append(json.RawMessage(nil), payload...)
	}

	return Descriptor{
		id:        id,
		taskType:  taskType,
		orgID:     orgID,
		payload:   stored,
		createdAt: createdAt.UTC(),
		attempts:  attempts,
	}, nil
}

func encodePayload(payload any) (json.RawMessage, error) {
	switch p := payload.(type) {
	case nil:
		return nil, nil
	case []byte:
		return p, nil
	case json.RawMessage:
		return p, nil
	default:
		raw, err := json.Marshal(p)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidTaskPayload, err)
		}
		return raw, nil
	}
}

// ID returns the descriptor's unique identifier.
func (d Descriptor) ID() uuid.UUID { return d.id }

// Type returns the task type.
func (d Descriptor) Type() string { return d.taskType }

// OrgID returns the organization the task targets.
func (d Descriptor) OrgID() string { return d.orgID }

// CreatedAt returns when the descriptor was first built.
func (d Descriptor) CreatedAt() time.Time { return d.createdAt }

// Attempts returns how many executions have been started for the task.
func (d Descriptor) Attempts() int { return d.attempts }

// Payload returns a copy of the raw JSON payload, or nil if there is none.
func (d Descriptor) Payload() []byte {
	if len(d.payload) == 0 {
		return nil
	}
	return append([]byte(nil), d.payload...)
}

// IsZero reports whether d is the zero Descriptor.
func (d Descriptor) IsZero() bool {
	return d.id == uuid.Nil
}

// DecodePayload unmarshals the payload into v. An empty payload leaves v untouched.
func (d Descriptor) DecodePayload(v any) error {
	if len(d.payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(d.payload, v); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidTaskPayload, err)
	}
	return nil
}

// withAttempts returns a copy of d carrying the given attempt count.
func (d Descriptor) withAttempts(attempts int) Descriptor {
	d.attempts = attempts
	return d
}

// String implements fmt.Stringer for log output.
func (d Descriptor) String() string {
	return fmt.Sprintf("%s(%s, org=%s)", d.taskType, d.id, d.orgID)
}

type descriptorJSON struct {
	ID        uuid.UUID       `json:"id"`
	Type      string          `json:"type"`
	OrgID     string          `json:"org_id"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	Attempts  int             `json:"attempts"`
}

// MarshalJSON implements json.Marshaler.
func (d Descriptor) MarshalJSON() ([]byte, error) {
	return json.Marshal(descriptorJSON{
		ID:        d.id,
		Type:      d.taskType,
		OrgID:     d.orgID,
		Payload:   d.payload,
		CreatedAt: d.createdAt,
		Attempts:  d.attempts,
	})
}

// UnmarshalJSON implements json.Unmarshaler. The decoded descriptor is
// validated the same way RestoreDescriptor validates stored fields.
func (d *Descriptor) UnmarshalJSON(data []byte) error {
	var raw descriptorJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	restored, err := RestoreDescriptor(raw.ID, raw.Type, raw.OrgID, raw.Payload, raw.CreatedAt, raw.Attempts)
	if err != nil {
		return err
	}
	*d = restored
	return nil
}
