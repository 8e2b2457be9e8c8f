package task

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/invsync/invsync/internal/platform/logger"
)

// Executor builds tasks from descriptors and runs them.
type Executor struct {
	registry *Registry
	timeout  time.Duration
	logger   *slog.Logger
}

// NewExecutor creates an Executor. A timeout of zero leaves executions unbounded.
func NewExecutor(registry *Registry, timeout time.Duration, logger *slog.Logger) *Executor {
	return &Executor{
		registry: registry,
		timeout:  timeout,
		logger:   logger.With("component", "task_executor"),
	}
}

// Execute builds the task for d and runs it.
// Build failures are permanent; a panic inside the task is returned as
// ErrTaskPanicked.
func (e *Executor) Execute(ctx context.Context, d Descriptor) (err error) {
	t, err := e.registry.Build(d)
	if err != nil {
		return Permanent(fmt.Errorf("failed to build task: %w", err))
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	log := e.logger.With(
		"task_id", d.ID(),
		"task_type", d.Type(),
		"org_id", d.OrgID(),
	)
	ctx = logger.WithLogger(ctx, log)

	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: %v", ErrTaskPanicked, p)
		}
	}()

	return t.Execute(ctx)
}

// Handle runs d with a background context and logs the outcome.
// It is the WorkerPool handler for queues that do not track task state.
func (e *Executor) Handle(d Descriptor, workerID int) {
	log := e.logger.With(
		"task_id", d.ID(),
		"task_type", d.Type(),
		"org_id", d.OrgID(),
		"worker_id", workerID,
	)

	start := time.Now()
	if err := e.Execute(context.Background(), d); err != nil {
		log.Error("task execution failed", "error", err, "duration", time.Since(start))
		return
	}
	log.Info("task completed successfully", "duration", time.Since(start))
}
