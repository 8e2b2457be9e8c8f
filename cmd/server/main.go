// Package main implements the entry point for the invsync server, which
// accepts inventory refresh requests and runs them as background tasks.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/invsync/invsync/internal/config"
	"github.com/invsync/invsync/internal/platform/logger"
	"github.com/invsync/invsync/internal/platform/postgres"
	"github.com/invsync/invsync/internal/redact"
	"github.com/spf13/pflag"
)

func main() {
	configPath := pflag.StringP("config", "c", "", "path to a config file (default: ./config.yaml if present)")
	migrateCmd := pflag.String("migrate", "", fmt.Sprintf("run a migration command and exit %v", postgres.MigrationCommands))
	pflag.Parse()

	if err := run(*configPath, *migrateCmd); err != nil {
		log.Fatalf("invsync: %s", redact.Error(err))
	}
}

// run loads configuration, sets up logging and the database, then either
// executes a migration command or serves until interrupted.
func run(configPath, migrateCmd string) error {
	cfg, err := config.LoadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	l, logCloser, err := logger.Setup(cfg.LoggerConfig())
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}
	defer func() { _ = logCloser.Close() }()

	l.Info("configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"queue_backend", cfg.Queue.Backend,
		"database_url", redact.DatabaseURL(cfg.Database.URL),
		"scheduler_enabled", cfg.Scheduler.Enabled)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := setupAppDatabase(ctx, cfg, l)
	if err != nil {
		return err
	}

	if migrateCmd != "" {
		defer func() { _ = db.Close() }()
		return postgres.Migrate(ctx, db, migrateCmd, l)
	}

	app, err := newApplication(cfg, l, db)
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	if err := app.Run(ctx); err != nil {
		slog.Error("server stopped with error", "error", redact.Error(err))
		return err
	}
	return nil
}
