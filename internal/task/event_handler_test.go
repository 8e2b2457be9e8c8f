package task

import (
	"context"
	"errors"
	"testing"

	"github.com/invsync/invsync/internal/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureQueue struct {
	got []Descriptor
	err error
}

func (q *captureQueue) Enqueue(ctx context.Context, d Descriptor) error {
	q.got = append(q.got, d)
	return q.err
}

func TestEnqueueEventHandler(t *testing.T) {
	t.Parallel()

	t.Run("enqueues descriptor with event id", func(t *testing.T) {
		q := &captureQueue{}
		h := NewEnqueueEventHandler(q, discardLogger())

		event, err := events.NewTaskRequestEvent(TaskTypeUpdateOrgInventory, "acme", map[string]string{"reason": "webhook"})
		require.NoError(t, err)

		require.NoError(t, h.HandleEvent(context.Background(), event))
		require.Len(t, q.got, 1)
		assert.Equal(t, event.ID, q.got[0].ID())
		assert.Equal(t, TaskTypeUpdateOrgInventory, q.got[0].Type())
		assert.Equal(t, "acme", q.got[0].OrgID())
		assert.JSONEq(t, `{"reason":"webhook"}`, string(q.got[0].Payload()))
	})

	t.Run("invalid org rejected", func(t *testing.T) {
		q := &captureQueue{}
		h := NewEnqueueEventHandler(q, discardLogger())

		event, err := events.NewTaskRequestEvent(TaskTypeUpdateOrgInventory, "", nil)
		require.NoError(t, err)

		assert.ErrorIs(t, h.HandleEvent(context.Background(), event), ErrInvalidDescriptor)
		assert.Empty(t, q.got)
	})

	t.Run("nil event", func(t *testing.T) {
		h := NewEnqueueEventHandler(&captureQueue{}, discardLogger())
		assert.ErrorIs(t, h.HandleEvent(context.Background(), nil), events.ErrNilEvent)
	})

	t.Run("queue error returned", func(t *testing.T) {
		h := NewEnqueueEventHandler(&captureQueue{err: ErrQueueFull}, discardLogger())
		event, err := events.NewTaskRequestEvent(TaskTypeUpdateOrgInventory, "acme", nil)
		require.NoError(t, err)

		assert.ErrorIs(t, h.HandleEvent(context.Background(), event), ErrQueueFull)
	})

	t.Run("duplicate event is handled once", func(t *testing.T) {
		s := NewMemoryStore()
		runner := NewTaskRunner(s, NewExecutor(NewRegistry(), 0, discardLogger()), DefaultTaskRunnerConfig(), discardLogger())
		defer runner.Stop()

		h := NewEnqueueEventHandler(runner, discardLogger())
		event, err := events.NewTaskRequestEvent(TaskTypeUpdateOrgInventory, "acme", nil)
		require.NoError(t, err)

		require.NoError(t, h.HandleEvent(context.Background(), event))
		require.NoError(t, h.HandleEvent(context.Background(), event))

		pending, err := s.GetPendingTasks(context.Background(), 0)
		require.NoError(t, err)
		assert.Len(t, pending, 1)
	})

	t.Run("works through emitter", func(t *testing.T) {
		q := &captureQueue{}
		emitter := events.NewInMemoryEventEmitter(discardLogger())
		emitter.RegisterHandler(NewEnqueueEventHandler(q, discardLogger()))

		event, err := events.NewTaskRequestEvent(TaskTypeUpdateOrgInventory, "acme", nil)
		require.NoError(t, err)
		require.NoError(t, emitter.EmitEvent(context.Background(), event))
		assert.Len(t, q.got, 1)
	})

	t.Run("other errors not swallowed", func(t *testing.T) {
		want := errors.New("db down")
		h := NewEnqueueEventHandler(&captureQueue{err: want}, discardLogger())
		event, err := events.NewTaskRequestEvent(TaskTypeUpdateOrgInventory, "acme", nil)
		require.NoError(t, err)
		assert.ErrorIs(t, h.HandleEvent(context.Background(), event), want)
	})
}
