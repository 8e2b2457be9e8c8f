package task

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	t.Parallel()

	noop := func(d Descriptor) (Task, error) {
		return &funcTask{d: d, fn: func(context.Context) error { return nil }}, nil
	}

	t.Run("build registered type", func(t *testing.T) {
		reg := NewRegistry()
		require.NoError(t, reg.Register(testTaskType, noop))

		d := newTestDescriptor(t, "my-org")
		built, err := reg.Build(d)
		require.NoError(t, err)
		assert.Equal(t, d.ID(), built.ID())
		assert.Equal(t, "my-org", built.OrgID())
	})

	t.Run("unknown type", func(t *testing.T) {
		reg := NewRegistry()
		_, err := reg.Build(newTestDescriptor(t, "my-org"))
		assert.ErrorIs(t, err, ErrUnknownTaskType)
	})

	t.Run("duplicate registration", func(t *testing.T) {
		reg := NewRegistry()
		require.NoError(t, reg.Register(testTaskType, noop))
		assert.ErrorIs(t, reg.Register(testTaskType, noop), ErrDuplicateTaskType)
	})

	t.Run("invalid registration", func(t *testing.T) {
		reg := NewRegistry()
		assert.Error(t, reg.Register("", noop))
		assert.Error(t, reg.Register("x", nil))
	})

	t.Run("types sorted", func(t *testing.T) {
		reg := NewRegistry()
		require.NoError(t, reg.Register("b", noop))
		require.NoError(t, reg.Register("a", noop))
		assert.Equal(t, []string{"a", "b"}, reg.Types())
	})
}
