package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/invsync/invsync/internal/constants"
	"github.com/invsync/invsync/internal/domain"
	"github.com/invsync/invsync/internal/inventory"
	"github.com/invsync/invsync/internal/task"
	"github.com/robfig/cron/v3"
)

// enqueueTimeout bounds a single scheduled enqueue so a full queue cannot
// block the cron goroutine.
const enqueueTimeout = 5 * time.Second

// ScheduledReason is attached to every task the scheduler enqueues.
const ScheduledReason = "scheduled"

// ErrNoOrgs is returned when the scheduler is configured without organizations.
var ErrNoOrgs = errors.New("scheduler requires at least one organization")

// Config controls what is scheduled and when.
type Config struct {
	// Spec is a cron expression. A leading seconds field is optional and
	// descriptors such as "@hourly" or "@every 15m" are accepted.
	Spec string
	Orgs []string
}

// Parser returns the cron parser used for schedule specs.
func Parser() cron.Parser {
	return cron.NewParser(
		cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
	)
}

// ValidateSpec reports whether spec can be parsed.
func ValidateSpec(spec string) error {
	if _, err := Parser().Parse(spec); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return nil
}

// Scheduler periodically enqueues update_org_inventory tasks.
type Scheduler struct {
	queue  task.TaskQueue
	cfg    Config
	cron   *cron.Cron
	logger *slog.Logger

	mu      sync.Mutex
	running bool
}

// New validates cfg and creates a stopped Scheduler.
func New(queue task.TaskQueue, cfg Config, logger *slog.Logger) (*Scheduler, error) {
	if queue == nil {
		return nil, errors.New("task queue cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := ValidateSpec(cfg.Spec); err != nil {
		return nil, err
	}
	if len(cfg.Orgs) == 0 {
		return nil, ErrNoOrgs
	}
	for _, org := range cfg.Orgs {
		if err := domain.ValidateOrgID(org); err != nil {
			return nil, fmt.Errorf("invalid scheduled org %q: %w", org, err)
		}
	}

	log := logger.With("component", constants.ComponentScheduler)
	cronLog := cronLogger{logger: log}

	s := &Scheduler{
		queue:  queue,
		cfg:    cfg,
		logger: log,
		cron: cron.New(
			cron.WithParser(Parser()),
			cron.WithLogger(cronLog),
			cron.WithChain(
				cron.Recover(cronLog),
				cron.SkipIfStillRunning(cronLog),
			),
		),
	}

	if _, err := s.cron.AddFunc(cfg.Spec, s.tick); err != nil {
		return nil, fmt.Errorf("failed to register schedule: %w", err)
	}
	return s, nil
}

// Start begins firing the schedule. Calling Start on a running scheduler is a no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	s.cron.Start()
	s.running = true
	s.logger.Info("scheduler started",
		"spec", s.cfg.Spec,
		"orgs", len(s.cfg.Orgs))
}

// Stop halts the schedule and waits for a running tick to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	<-s.cron.Stop().Done()
	s.running = false
	s.logger.Info("scheduler stopped")
}

// Next returns the next time the schedule fires after t.
func (s *Scheduler) Next(t time.Time) time.Time {
	sched, _ := Parser().Parse(s.cfg.Spec)
	return sched.Next(t)
}

func (s *Scheduler) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), enqueueTimeout)
	defer cancel()

	if err := s.EnqueueAll(ctx); err != nil {
		s.logger.Error("scheduled refresh incomplete", "error", err)
	}
}

// EnqueueAll enqueues one refresh task per configured organization. A
// failure for one organization does not stop the others; all failures are
// returned joined.
func (s *Scheduler) EnqueueAll(ctx context.Context) error {
	var errs []error
	queued := 0

	for _, org := range s.cfg.Orgs {
		d, err := task.NewDescriptor(task.TaskTypeUpdateOrgInventory, org,
			inventory.RefreshRequest{Reason: ScheduledReason})
		if err != nil {
			errs = append(errs, fmt.Errorf("org %s: %w", org, err))
			continue
		}
		if err := s.queue.Enqueue(ctx, d); err != nil {
			s.logger.Warn("failed to enqueue scheduled refresh",
				"org_id", org,
				"error", err)
			errs = append(errs, fmt.Errorf("org %s: %w", org, err))
			continue
		}
		queued++
	}

	s.logger.Info("scheduled refresh enqueued",
		"queued", queued,
		"failed", len(errs))
	return errors.Join(errs...)
}

// cronLogger adapts slog to the cron.Logger interface.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append([]interface{}{"error", err}, keysAndValues...)...)
}
