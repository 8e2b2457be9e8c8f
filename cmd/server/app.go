package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/invsync/invsync/internal/api"
	"github.com/invsync/invsync/internal/config"
	"github.com/invsync/invsync/internal/events"
	"github.com/invsync/invsync/internal/inventory"
	"github.com/invsync/invsync/internal/platform/inventoryapi"
	"github.com/invsync/invsync/internal/platform/postgres"
	"github.com/invsync/invsync/internal/scheduler"
	"github.com/invsync/invsync/internal/service/auth"
	"github.com/invsync/invsync/internal/store"
	"github.com/invsync/invsync/internal/task"
)

// application holds all the shared application dependencies to simplify management
// and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	jwtService       auth.JWTService
	inventoryStore   store.InventoryStore
	inventoryService *inventory.Service
	eventEmitter     *events.InMemoryEventEmitter

	// queue is the producers' TaskQueue; exactly one of runner or
	// memoryQueue backs it.
	queue       task.TaskQueue
	taskReader  api.TaskReader
	runner      *task.TaskRunner
	memoryQueue *task.MemoryQueue
	pool        *task.WorkerPool
	listener    *postgres.TaskListener
	scheduler   *scheduler.Scheduler
}

// newApplication creates a new application instance with all dependencies initialized.
// Nothing runs until start is called.
func newApplication(cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	var err error
	app.jwtService, err = auth.NewJWTService(cfg.Auth.JWTSecret, cfg.Auth.TokenLifetime)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}

	app.inventoryStore = postgres.NewPostgresInventoryStore(db, logger)

	clients, err := inventoryapi.NewClientFactory(inventoryapi.Config{
		BaseURL:           cfg.Inventory.BaseURL,
		Timeout:           cfg.Inventory.Timeout,
		RequestsPerSecond: cfg.Inventory.RequestsPerSecond,
		Burst:             cfg.Inventory.Burst,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create inventory client factory: %w", err)
	}

	controller, err := inventory.NewController(inventory.FactoryProvider(clients), app.inventoryStore, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create inventory controller: %w", err)
	}

	registry := task.NewRegistry()
	factory, err := task.NewUpdateOrgInventoryTaskFactory(controller)
	if err != nil {
		return nil, err
	}
	if err := registry.Register(task.TaskTypeUpdateOrgInventory, factory); err != nil {
		return nil, err
	}
	executor := task.NewExecutor(registry, cfg.Queue.TaskTimeout, logger)

	if err := app.setupQueue(executor); err != nil {
		return nil, err
	}

	app.eventEmitter = events.NewInMemoryEventEmitter(logger)
	app.eventEmitter.RegisterHandler(task.NewEnqueueEventHandler(app.queue, logger))

	app.inventoryService, err = inventory.NewService(app.eventEmitter, app.inventoryStore, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create inventory service: %w", err)
	}

	if cfg.Scheduler.Enabled {
		app.scheduler, err = scheduler.New(app.queue, scheduler.Config{
			Spec: cfg.Scheduler.Spec,
			Orgs: cfg.Scheduler.Orgs,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create scheduler: %w", err)
		}
	}

	logger.Info("application initialized",
		"queue_backend", cfg.Queue.Backend,
		"task_types", registry.Types())
	return app, nil
}

// setupQueue builds the TaskQueue selected by queue.backend.
func (app *application) setupQueue(executor *task.Executor) error {
	qc := app.config.Queue

	switch qc.Backend {
	case config.BackendChannel:
		app.memoryQueue = task.NewMemoryQueue(qc.Size, app.logger)
		app.pool = task.NewWorkerPool(
			app.memoryQueue.Descriptors(),
			task.WorkerPoolConfig{WorkerCount: qc.Workers},
			executor.Handle,
			app.logger,
		)
		app.queue = app.memoryQueue
		return nil

	case config.BackendMemory, config.BackendPostgres:
		var taskStore task.TaskStore
		if qc.Backend == config.BackendPostgres {
			taskStore = postgres.NewPostgresTaskStore(app.db, app.logger)
		} else {
			taskStore = task.NewMemoryStore()
		}

		app.runner = task.NewTaskRunner(taskStore, executor, task.TaskRunnerConfig{
			WorkerCount:            qc.Workers,
			QueueSize:              qc.Size,
			MaxAttempts:            qc.MaxAttempts,
			TaskTimeout:            qc.TaskTimeout,
			StuckTaskAge:           qc.StuckTaskAge,
			StuckTaskCheckInterval: qc.StuckCheckInterval,
			PendingSweepInterval:   qc.SweepInterval,
			RecoveryAge:            qc.RecoveryAge,
		}, app.logger)
		app.queue = app.runner
		app.taskReader = taskStore
		return nil

	default:
		return fmt.Errorf("unknown queue backend %q", qc.Backend)
	}
}

// start launches the background components: workers, the notification
// listener and the scheduler.
func (app *application) start(ctx context.Context) error {
	if app.runner != nil {
		if err := app.runner.Start(ctx); err != nil {
			return fmt.Errorf("failed to start task runner: %w", err)
		}
	}
	if app.pool != nil {
		app.pool.Start()
	}

	if app.runner != nil && app.config.Queue.Backend == config.BackendPostgres {
		listener, err := postgres.NewTaskListener(app.config.Database.URL, app.runner, app.logger)
		if err != nil {
			return fmt.Errorf("failed to create task listener: %w", err)
		}
		if err := listener.Start(ctx); err != nil {
			_ = listener.Close()
			// The sweep still picks up tasks from other instances.
			app.logger.Warn("task listener unavailable, relying on pending sweep", "error", err)
		} else {
			app.listener = listener
		}
	}

	if app.scheduler != nil {
		app.scheduler.Start()
	}
	return nil
}

// Run starts the background components and serves HTTP until ctx is done.
func (app *application) Run(ctx context.Context) error {
	if err := app.start(ctx); err != nil {
		app.cleanup()
		return err
	}

	if err := app.startHTTPServer(ctx, app.setupRouter()); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup handles graceful shutdown of application resources.
// Producers stop first so no work is accepted after the workers drain.
func (app *application) cleanup() {
	if app.scheduler != nil {
		app.scheduler.Stop()
	}

	if app.listener != nil {
		if err := app.listener.Close(); err != nil {
			app.logger.Error("error closing task listener", "error", err)
		}
	}

	if app.runner != nil {
		app.runner.Stop()
	}
	if app.memoryQueue != nil {
		app.memoryQueue.Close()
	}
	if app.pool != nil {
		app.pool.Stop()
	}

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database connection", "error", err)
		}
	}

	app.logger.Info("application shutdown completed")
}
