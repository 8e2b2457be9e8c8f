package task

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/invsync/invsync/internal/store"
)

// MemoryStore is an in-process TaskStore.
// State is lost when the process exits.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[uuid.UUID]*Record
	now     func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[uuid.UUID]*Record),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// SaveTask stores the descriptor as a pending task.
func (s *MemoryStore) SaveTask(ctx context.Context, d Descriptor) error {
	if d.IsZero() {
		return ErrInvalidDescriptor
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[d.ID()]; exists {
		return store.ErrTaskExists
	}

	now := s.now()
	s.records[d.ID()] = &Record{
		ID:        d.ID(),
		Type:      d.Type(),
		OrgID:     d.OrgID(),
		Payload:   d.Payload(),
		Status:    TaskStatusPending,
		Attempts:  d.Attempts(),
		CreatedAt: d.CreatedAt(),
		UpdatedAt: now,
	}
	return nil
}

// ClaimTask moves a pending task to processing.
func (s *MemoryStore) ClaimTask(ctx context.Context, taskID uuid.UUID) (int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, exists := s.records[taskID]
	if !exists {
		return 0, false, store.ErrTaskNotFound
	}
	if rec.Status != TaskStatusPending {
		return rec.Attempts, false, nil
	}

	rec.Status = TaskStatusProcessing
	rec.Attempts++
	rec.UpdatedAt = s.now()
	return rec.Attempts, true, nil
}

// UpdateTaskStatus updates the status of a stored task.
func (s *MemoryStore) UpdateTaskStatus(
	ctx context.Context,
	taskID uuid.UUID,
	status TaskStatus,
	errorMsg string,
) error {
	if !status.Valid() {
		return store.ErrInvalidEntity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, exists := s.records[taskID]
	if !exists {
		return store.ErrTaskNotFound
	}
	rec.Status = status
	rec.ErrorMessage = errorMsg
	rec.UpdatedAt = s.now()
	return nil
}

// GetTask returns a copy of the stored record.
func (s *MemoryStore) GetTask(ctx context.Context, taskID uuid.UUID) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, exists := s.records[taskID]
	if !exists {
		return nil, store.ErrTaskNotFound
	}
	cp := *rec
	cp.Payload = append([]byte(nil), rec.Payload...)
	return &cp, nil
}

// GetPendingTasks retrieves pending tasks, oldest first.
func (s *MemoryStore) GetPendingTasks(ctx context.Context, limit int) ([]Descriptor, error) {
	return s.collect(func(rec *Record) bool {
		return rec.Status == TaskStatusPending
	}, limit)
}

// GetProcessingTasks retrieves tasks with "processing" status.
// If olderThan is zero, all processing tasks are returned.
func (s *MemoryStore) GetProcessingTasks(ctx context.Context, olderThan time.Duration) ([]Descriptor, error) {
	now := s.now()
	return s.collect(func(rec *Record) bool {
		if rec.Status != TaskStatusProcessing {
			return false
		}
		return olderThan == 0 || now.Sub(rec.UpdatedAt) > olderThan
	}, 0)
}

func (s *MemoryStore) collect(match func(*Record) bool, limit int) ([]Descriptor, error) {
	s.mu.RLock()
	matched := make([]*Record, 0)
	for _, rec := range s.records {
		if match(rec) {
			cp := *rec
			matched = append(matched, &cp)
		}
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.Before(matched[j].CreatedAt)
	})
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}

	descriptors := make([]Descriptor, 0, len(matched))
	for _, rec := range matched {
		d, err := rec.Descriptor()
		if err != nil {
			return nil, err
		}
		descriptors = append(descriptors, d)
	}
	return descriptors, nil
}

// WithTx returns the same store; MemoryStore has no transactions.
func (s *MemoryStore) WithTx(tx *sql.Tx) TaskStore {
	return s
}

var _ TaskStore = (*MemoryStore)(nil)
