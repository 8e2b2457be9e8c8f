package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/invsync/invsync/internal/redact"
	"github.com/invsync/invsync/internal/store"
)

// TaskRunnerConfig holds configuration for the task runner
type TaskRunnerConfig struct {
	// WorkerCount determines how many concurrent workers process tasks
	WorkerCount int

	// QueueSize determines the buffer size of the dispatch channel
	QueueSize int

	// MaxAttempts is how many executions a task gets before it is marked failed
	MaxAttempts int

	// TaskTimeout bounds a single execution. Zero means no limit.
	TaskTimeout time.Duration

	// StuckTaskAge defines how long a task can be in processing state
	// before it's considered stuck and reset
	StuckTaskAge time.Duration

	// StuckTaskCheckInterval defines how often to check for stuck tasks
	// If zero, defaults to 5 minutes
	StuckTaskCheckInterval time.Duration

	// PendingSweepInterval defines how often pending tasks are loaded from the
	// store and dispatched. Zero disables the periodic sweep; Wake still works.
	PendingSweepInterval time.Duration

	// RecoveryAge limits which processing tasks Recover resets. Tasks
	// updated more recently may still be running on another instance.
	// If zero, StuckTaskAge is used.
	RecoveryAge time.Duration
}

// DefaultTaskRunnerConfig returns a TaskRunnerConfig with reasonable defaults
func DefaultTaskRunnerConfig() TaskRunnerConfig {
	return TaskRunnerConfig{
		WorkerCount:            2,
		QueueSize:              100,
		MaxAttempts:            3,
		TaskTimeout:            2 * time.Minute,
		StuckTaskAge:           30 * time.Minute,
		StuckTaskCheckInterval: 5 * time.Minute,
		PendingSweepInterval:   30 * time.Second,
		RecoveryAge:            30 * time.Minute,
	}
}

// TaskRunner is the durable TaskQueue. Enqueue persists the descriptor
// through the TaskStore before dispatching it to the worker pool, so a task
// survives a crash and is delivered at least once.
type TaskRunner struct {
	store    TaskStore
	executor *Executor
	config   TaskRunnerConfig
	logger   *slog.Logger

	queue  chan Descriptor
	pool   *WorkerPool
	wake   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// mu guards queued, started and closed. queued holds the IDs sitting
	// in the dispatch channel so a sweep does not send them twice.
	mu      sync.Mutex
	queued  map[uuid.UUID]struct{}
	started bool
	closed  bool

	stopOnce   sync.Once
	errHandler func(d Descriptor, err error)
}

// NewTaskRunner creates a new TaskRunner
func NewTaskRunner(
	taskStore TaskStore,
	executor *Executor,
	config TaskRunnerConfig,
	logger *slog.Logger,
) *TaskRunner {
	if config.StuckTaskCheckInterval == 0 {
		config.StuckTaskCheckInterval = 5 * time.Minute
	}
	if config.QueueSize <= 0 {
		config.QueueSize = 1
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 1
	}
	if config.RecoveryAge <= 0 {
		config.RecoveryAge = config.StuckTaskAge
	}

	logger = logger.With("component", "task_runner")
	ctx, cancel := context.WithCancel(context.Background())

	r := &TaskRunner{
		store:    taskStore,
		executor: executor,
		config:   config,
		logger:   logger,
		queue:    make(chan Descriptor, config.QueueSize),
		wake:     make(chan struct{}, 1),
		ctx:      ctx,
		cancel:   cancel,
		queued:   make(map[uuid.UUID]struct{}),
		errHandler: func(d Descriptor, err error) {
			logger.Error("task failed permanently",
				"task_id", d.ID(),
				"task_type", d.Type(),
				"org_id", d.OrgID(),
				"attempts", d.Attempts(),
				"error", err)
		},
	}
	r.pool = NewWorkerPool(r.queue, WorkerPoolConfig{WorkerCount: config.WorkerCount}, r.processTask, logger)
	return r
}

// SetErrorHandler sets the function called when a task fails for good
func (r *TaskRunner) SetErrorHandler(handler func(d Descriptor, err error)) {
	r.errHandler = handler
}

// Enqueue persists the descriptor as pending and dispatches it to a worker.
//
// When the dispatch channel is full the task stays pending and is picked up
// by the next sweep. Without a periodic sweep the task is marked failed and
// ErrQueueFull is returned.
func (r *TaskRunner) Enqueue(ctx context.Context, d Descriptor) error {
	if d.IsZero() {
		return ErrInvalidDescriptor
	}
	if r.isClosed() {
		return ErrQueueClosed
	}

	if err := r.store.SaveTask(ctx, d); err != nil {
		return fmt.Errorf("failed to save task: %w", err)
	}

	if r.dispatch(d) {
		r.logger.Debug("task enqueued",
			"task_id", d.ID(),
			"task_type", d.Type(),
			"org_id", d.OrgID())
		return nil
	}

	if r.config.PendingSweepInterval > 0 && !r.isClosed() {
		r.logger.Warn("dispatch queue full, task deferred to next sweep",
			"task_id", d.ID(),
			"task_type", d.Type(),
			"org_id", d.OrgID())
		return nil
	}

	if err := r.store.UpdateTaskStatus(ctx, d.ID(), TaskStatusFailed, ErrQueueFull.Error()); err != nil {
		r.logger.Error("failed to mark undispatched task failed", "task_id", d.ID(), "error", err)
	}
	if r.isClosed() {
		return ErrQueueClosed
	}
	return fmt.Errorf("%w: queue capacity %d reached", ErrQueueFull, cap(r.queue))
}

// Start recovers unfinished tasks and begins processing
func (r *TaskRunner) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrQueueClosed
	}
	if r.started {
		r.mu.Unlock()
		return ErrRunnerStarted
	}
	r.started = true
	r.mu.Unlock()

	if err := r.Recover(ctx); err != nil {
		return fmt.Errorf("failed to recover tasks: %w", err)
	}

	r.pool.Start()

	r.wg.Add(2)
	go r.stuckTaskMonitor()
	go r.pendingSweeper()

	r.logger.Info("task runner started",
		"worker_count", r.pool.WorkerCount(),
		"queue_size", cap(r.queue),
		"max_attempts", r.config.MaxAttempts)
	return nil
}

// Stop gracefully shuts down the task runner. It waits for in-flight
// executions; descriptors still buffered stay pending in the store.
func (r *TaskRunner) Stop() {
	r.stopOnce.Do(func() {
		r.mu.Lock()
		r.closed = true
		r.mu.Unlock()

		r.cancel()
		r.pool.Stop()
		r.wg.Wait()
		r.logger.Info("task runner stopped")
	})
}

// Wake triggers an immediate sweep of pending tasks.
// It never blocks; wakes arriving during a sweep are coalesced.
func (r *TaskRunner) Wake() {
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// Recover resets tasks left in processing by a previous run and dispatches
// pending tasks. Only processing tasks older than RecoveryAge are reset.
func (r *TaskRunner) Recover(ctx context.Context) error {
	processingTasks, err := r.store.GetProcessingTasks(ctx, r.config.RecoveryAge)
	if err != nil {
		return fmt.Errorf("failed to get processing tasks: %w", err)
	}

	r.logger.Info("recovering unfinished tasks", "processing_count", len(processingTasks))

	r.resetToPending(ctx, processingTasks, "reset after recovery")

	if _, err := r.sweepPending(ctx); err != nil {
		return err
	}
	return nil
}

func (r *TaskRunner) isClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// dispatch sends d to the worker channel without blocking. It reports true
// if d was sent now or is already waiting in the channel.
func (r *TaskRunner) dispatch(d Descriptor) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return false
	}
	if _, ok := r.queued[d.ID()]; ok {
		return true
	}

	select {
	case r.queue <- d:
		r.queued[d.ID()] = struct{}{}
		return true
	default:
		return false
	}
}

// sweepPending dispatches stored pending tasks until the channel is full.
func (r *TaskRunner) sweepPending(ctx context.Context) (int, error) {
	pending, err := r.store.GetPendingTasks(ctx, cap(r.queue))
	if err != nil {
		return 0, fmt.Errorf("failed to get pending tasks: %w", err)
	}

	dispatched := 0
	for _, d := range pending {
		if !r.dispatch(d) {
			r.logger.Debug("dispatch queue full, stopping sweep",
				"remaining", len(pending)-dispatched)
			break
		}
		dispatched++
	}
	return dispatched, nil
}

func (r *TaskRunner) resetToPending(ctx context.Context, tasks []Descriptor, reason string) {
	for _, d := range tasks {
		if err := r.store.UpdateTaskStatus(ctx, d.ID(), TaskStatusPending, reason); err != nil {
			r.logger.Error("failed to reset task status",
				"task_id", d.ID(),
				"task_type", d.Type(),
				"error", err)
		}
	}
}

// processTask handles execution of a single task
func (r *TaskRunner) processTask(d Descriptor, workerID int) {
	r.mu.Lock()
	delete(r.queued, d.ID())
	r.mu.Unlock()

	ctx := context.Background()
	log := r.logger.With(
		"task_id", d.ID(),
		"task_type", d.Type(),
		"org_id", d.OrgID(),
		"worker_id", workerID,
	)

	attempt, claimed, err := r.store.ClaimTask(ctx, d.ID())
	if err != nil {
		log.Error("failed to claim task", "error", err)
		return
	}
	if !claimed {
		log.Debug("task already claimed or finished, skipping")
		return
	}
	d = d.withAttempts(attempt)

	log.Info("processing task", "attempt", attempt)
	start := time.Now()

	err = r.executor.Execute(ctx, d)
	if err == nil {
		log.Info("task completed successfully", "duration", time.Since(start))
		if updateErr := r.store.UpdateTaskStatus(ctx, d.ID(), TaskStatusCompleted, ""); updateErr != nil {
			log.Error("failed to update task status to completed", "error", updateErr)
		}
		return
	}

	if !IsPermanent(err) && attempt < r.config.MaxAttempts {
		log.Warn("task execution failed, will retry",
			"attempt", attempt,
			"max_attempts", r.config.MaxAttempts,
			"error", err)
		if updateErr := r.store.UpdateTaskStatus(ctx, d.ID(), TaskStatusPending, redact.Error(err)); updateErr != nil {
			log.Error("failed to return task to pending", "error", updateErr)
		}
		if r.config.PendingSweepInterval <= 0 {
			r.Wake()
		}
		return
	}

	log.Error("task execution failed", "attempt", attempt, "error", err)
	if updateErr := r.store.UpdateTaskStatus(ctx, d.ID(), TaskStatusFailed, redact.Error(err)); updateErr != nil {
		log.Error("failed to update task status to failed", "error", updateErr)
	}
	r.errHandler(d, err)
}

// stuckTaskMonitor periodically checks for tasks that have been in "processing"
// state for too long and resets them
func (r *TaskRunner) stuckTaskMonitor() {
	defer r.wg.Done()

	if r.config.StuckTaskAge <= 0 {
		return
	}

	ticker := time.NewTicker(r.config.StuckTaskCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return

		case <-ticker.C:
			stuckTasks, err := r.store.GetProcessingTasks(r.ctx, r.config.StuckTaskAge)
			if err != nil {
				if !errors.Is(err, context.Canceled) {
					r.logger.Error("failed to check for stuck tasks", "error", err)
				}
				continue
			}

			if len(stuckTasks) > 0 {
				r.logger.Info("found stuck tasks", "count", len(stuckTasks))
				r.resetToPending(r.ctx, stuckTasks, "reset after being stuck in processing state")
				r.Wake()
			}
		}
	}
}

// pendingSweeper dispatches pending tasks on every tick and on every Wake.
func (r *TaskRunner) pendingSweeper() {
	defer r.wg.Done()

	var tick <-chan time.Time
	if r.config.PendingSweepInterval > 0 {
		ticker := time.NewTicker(r.config.PendingSweepInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-tick:
		case <-r.wake:
		}

		n, err := r.sweepPending(r.ctx)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				r.logger.Error("pending sweep failed", "error", err)
			}
			continue
		}
		if n > 0 {
			r.logger.Debug("dispatched pending tasks", "count", n)
		}
	}
}

// Store returns the runner's TaskStore.
func (r *TaskRunner) Store() TaskStore {
	return r.store
}

// IsDuplicate reports whether err from Enqueue means the descriptor's ID was
// already stored.
func IsDuplicate(err error) bool {
	return store.IsDuplicateError(err)
}

var _ TaskQueue = (*TaskRunner)(nil)
