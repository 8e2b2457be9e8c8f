package task

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// MemoryQueue is a TaskQueue backed by a buffered channel.
//
// Delivery is at most once: descriptors still buffered when the process exits
// are lost. Use TaskRunner for durable delivery.
type MemoryQueue struct {
	mu          sync.Mutex
	descriptors chan Descriptor
	logger      *slog.Logger
	closed      bool
}

// NewMemoryQueue creates a queue with the specified buffer size
func NewMemoryQueue(size int, logger *slog.Logger) *MemoryQueue {
	if size <= 0 {
		size = 1
	}
	return &MemoryQueue{
		descriptors: make(chan Descriptor, size),
		logger:      logger.With("component", "memory_queue"),
	}
}

// Enqueue hands the descriptor to the buffer without blocking.
// Returns ErrQueueFull when the buffer is full and ErrQueueClosed after Close.
func (q *MemoryQueue) Enqueue(ctx context.Context, descriptor Descriptor) error {
	if descriptor.IsZero() {
		return ErrInvalidDescriptor
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.descriptors <- descriptor:
		q.logger.Debug("task enqueued",
			"task_id", descriptor.ID(),
			"task_type", descriptor.Type(),
			"org_id", descriptor.OrgID(),
			"queue_len", len(q.descriptors),
			"queue_cap", cap(q.descriptors))
		return nil
	default:
		return fmt.Errorf("%w: queue capacity %d reached", ErrQueueFull, cap(q.descriptors))
	}
}

// Close closes the queue, preventing further submission.
// Buffered descriptors can still be received from Descriptors.
func (q *MemoryQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.closed {
		q.closed = true
		close(q.descriptors)
		q.logger.Info("task queue closed")
	}
}

// Descriptors returns a read-only channel for consuming descriptors
func (q *MemoryQueue) Descriptors() <-chan Descriptor {
	return q.descriptors
}

// Len returns the number of buffered descriptors.
func (q *MemoryQueue) Len() int {
	return len(q.descriptors)
}

var _ TaskQueue = (*MemoryQueue)(nil)
