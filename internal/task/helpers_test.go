package task

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testTaskType = "test_task"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func newTestDescriptor(t *testing.T, orgID string) Descriptor {
	t.Helper()
	d, err := NewDescriptor(testTaskType, orgID, nil)
	require.NoError(t, err)
	return d
}

// mockController records UpdateInventoryForOrg calls.
type mockController struct {
	mock.Mock
}

func (m *mockController) UpdateInventoryForOrg(ctx context.Context, orgID string) error {
	args := m.Called(ctx, orgID)
	return args.Error(0)
}

// funcTask is a Task whose Execute delegates to a function.
type funcTask struct {
	d  Descriptor
	fn func(ctx context.Context) error
}

func (t *funcTask) ID() uuid.UUID                     { return t.d.ID() }
func (t *funcTask) Type() string                      { return t.d.Type() }
func (t *funcTask) OrgID() string                     { return t.d.OrgID() }
func (t *funcTask) Execute(ctx context.Context) error { return t.fn(ctx) }

// recordingExecution counts executions per task ID and runs fn for each.
type recordingExecution struct {
	mu    sync.Mutex
	calls map[uuid.UUID]int
	total atomic.Int32
	fn    func(ctx context.Context, d Descriptor) error
}

func newRecordingExecution(fn func(ctx context.Context, d Descriptor) error) *recordingExecution {
	if fn == nil {
		fn = func(context.Context, Descriptor) error { return nil }
	}
	return &recordingExecution{calls: make(map[uuid.UUID]int), fn: fn}
}

func (r *recordingExecution) registry(t *testing.T) *Registry {
	t.Helper()
	reg := NewRegistry()
	require.NoError(t, reg.Register(testTaskType, func(d Descriptor) (Task, error) {
		return &funcTask{d: d, fn: func(ctx context.Context) error {
			r.mu.Lock()
			r.calls[d.ID()]++
			r.mu.Unlock()
			r.total.Add(1)
			return r.fn(ctx, d)
		}}, nil
	}))
	return reg
}

func (r *recordingExecution) count(id uuid.UUID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[id]
}
