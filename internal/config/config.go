package config

import (
	"time"

	"github.com/invsync/invsync/internal/platform/logger"
)

// Queue backends.
const (
	BackendChannel  = "channel"
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
)

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server    ServerConfig    `mapstructure:"server" validate:"required"`
	Database  DatabaseConfig  `mapstructure:"database" validate:"required"`
	Auth      AuthConfig      `mapstructure:"auth" validate:"required"`
	Log       LogConfig       `mapstructure:"log"`
	Queue     QueueConfig     `mapstructure:"queue" validate:"required"`
	Inventory InventoryConfig `mapstructure:"inventory" validate:"required"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port            int           `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel        string        `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL             string        `mapstructure:"url" validate:"required,url"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"gte=0"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"gte=0"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" validate:"gte=0"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	JWTSecret     string        `mapstructure:"jwt_secret" validate:"required,min=32"`
	TokenLifetime time.Duration `mapstructure:"token_lifetime" validate:"gt=0"`
}

// LogConfig controls the log output format and the optional rotated log file.
type LogConfig struct {
	Format     string `mapstructure:"format" validate:"omitempty,oneof=json text"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" validate:"gte=0"`
	MaxBackups int    `mapstructure:"max_backups" validate:"gte=0"`
	MaxAgeDays int    `mapstructure:"max_age_days" validate:"gte=0"`
	Compress   bool   `mapstructure:"compress"`
}

// QueueConfig selects the task queue backend and tunes the task runner.
type QueueConfig struct {
	Backend            string        `mapstructure:"backend" validate:"required,oneof=channel memory postgres"`
	Size               int           `mapstructure:"size" validate:"gt=0"`
	Workers            int           `mapstructure:"workers" validate:"gt=0"`
	MaxAttempts        int           `mapstructure:"max_attempts" validate:"gte=1"`
	TaskTimeout        time.Duration `mapstructure:"task_timeout" validate:"gt=0"`
	StuckTaskAge       time.Duration `mapstructure:"stuck_task_age" validate:"gtfield=TaskTimeout"`
	StuckCheckInterval time.Duration `mapstructure:"stuck_check_interval" validate:"gte=0"`
	SweepInterval      time.Duration `mapstructure:"sweep_interval" validate:"gte=0"`
	RecoveryAge        time.Duration `mapstructure:"recovery_age" validate:"omitempty,gtfield=TaskTimeout"`
}

// InventoryConfig points at the upstream inventory API.
type InventoryConfig struct {
	BaseURL           string        `mapstructure:"base_url" validate:"required,url"`
	Timeout           time.Duration `mapstructure:"timeout" validate:"gt=0"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second" validate:"gte=0"`
	Burst             int           `mapstructure:"burst" validate:"gte=0"`
}

// SchedulerConfig enables periodic refreshes of a fixed set of organizations.
type SchedulerConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Spec    string   `mapstructure:"spec" validate:"required_if=Enabled true"`
	Orgs    []string `mapstructure:"orgs" validate:"dive,required"`
}

// LoggerConfig returns the logger settings derived from the server and log sections.
func (c *Config) LoggerConfig() logger.LoggerConfig {
	return logger.LoggerConfig{
		Level:      c.Server.LogLevel,
		Format:     c.Log.Format,
		File:       c.Log.File,
		MaxSizeMB:  c.Log.MaxSizeMB,
		MaxBackups: c.Log.MaxBackups,
		MaxAgeDays: c.Log.MaxAgeDays,
		Compress:   c.Log.Compress,
	}
}
