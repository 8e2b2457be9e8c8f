package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/invsync/invsync/internal/platform/logger"
	"github.com/invsync/invsync/internal/store"
	"github.com/invsync/invsync/internal/task"
)

const taskColumns = `id, type, org_id, payload, status, attempts, error_message, created_at, updated_at`

// PostgresTaskStore implements the task.TaskStore interface using PostgreSQL
type PostgresTaskStore struct {
	db     store.DBTX
	logger *slog.Logger
	now    func() time.Time
}

// NewPostgresTaskStore creates a new PostgresTaskStore
func NewPostgresTaskStore(db store.DBTX, logger *slog.Logger) *PostgresTaskStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresTaskStore{
		db:     db,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// SaveTask inserts the descriptor as a pending task. The tasks table trigger
// signals the enqueue channel on insert.
func (s *PostgresTaskStore) SaveTask(ctx context.Context, d task.Descriptor) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		INSERT INTO tasks (id, type, org_id, payload, status, attempts, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := s.db.ExecContext(ctx, query,
		d.ID(),
		d.Type(),
		d.OrgID(),
		nullableJSON(d.Payload()),
		task.TaskStatusPending,
		d.Attempts(),
		d.CreatedAt(),
		s.now(),
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return fmt.Errorf("%w: %s", store.ErrTaskExists, d.ID())
		}
		log.Error("failed to save task",
			"task_id", d.ID(),
			"task_type", d.Type(),
			"error", err)
		return store.NewStoreError("task", "save", "failed to save task to database", MapError(err))
	}

	return nil
}

// ClaimTask moves a pending task to processing in a single statement, so two
// workers racing for the same task cannot both succeed.
func (s *PostgresTaskStore) ClaimTask(ctx context.Context, taskID uuid.UUID) (int, bool, error) {
	query := `
		UPDATE tasks
		SET status = $1, attempts = attempts + 1, error_message = NULL, updated_at = $2
		WHERE id = $3 AND status = $4
		RETURNING attempts
	`

	var attempts int
	err := s.db.QueryRowContext(ctx, query,
		task.TaskStatusProcessing,
		s.now(),
		taskID,
		task.TaskStatusPending,
	).Scan(&attempts)
	if err == nil {
		return attempts, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, false, store.NewStoreError("task", "claim", "failed to claim task", MapError(err))
	}

	err = s.db.QueryRowContext(ctx, `SELECT attempts FROM tasks WHERE id = $1`, taskID).Scan(&attempts)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, store.ErrTaskNotFound
	}
	if err != nil {
		return 0, false, store.NewStoreError("task", "claim", "failed to read task", MapError(err))
	}
	return attempts, false, nil
}

// UpdateTaskStatus updates the status of a task in the database
func (s *PostgresTaskStore) UpdateTaskStatus(
	ctx context.Context,
	taskID uuid.UUID,
	status task.TaskStatus,
	errorMsg string,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if !status.Valid() {
		return fmt.Errorf("%w: unknown task status %q", store.ErrInvalidEntity, status)
	}

	query := `
		UPDATE tasks
		SET status = $1, error_message = $2, updated_at = $3
		WHERE id = $4
	`

	result, err := s.db.ExecContext(ctx, query,
		status,
		sql.NullString{String: errorMsg, Valid: errorMsg != ""},
		s.now(),
		taskID,
	)
	if err != nil {
		log.Error("failed to update task status",
			"task_id", taskID,
			"status", status,
			"error", err)
		return store.NewStoreError("task", "update status", "failed to update task status", MapError(err))
	}

	return CheckRowsAffected(result, store.ErrTaskNotFound)
}

// GetTask returns the stored record of a task
func (s *PostgresTaskStore) GetTask(ctx context.Context, taskID uuid.UUID) (*task.Record, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`

	rec, err := scanRecord(s.db.QueryRowContext(ctx, query, taskID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrTaskNotFound
	}
	if err != nil {
		return nil, store.NewStoreError("task", "get", "failed to get task", MapError(err))
	}
	return rec, nil
}

// GetPendingTasks retrieves pending tasks, oldest first
func (s *PostgresTaskStore) GetPendingTasks(ctx context.Context, limit int) ([]task.Descriptor, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE status = $1 ORDER BY created_at ASC`
	args := []any{task.TaskStatusPending}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}
	return s.queryDescriptors(ctx, query, args...)
}

// GetProcessingTasks retrieves tasks with "processing" status, optionally
// only those untouched for longer than olderThan
func (s *PostgresTaskStore) GetProcessingTasks(ctx context.Context, olderThan time.Duration) ([]task.Descriptor, error) {
	if olderThan > 0 {
		query := `SELECT ` + taskColumns + ` FROM tasks WHERE status = $1 AND updated_at < $2 ORDER BY created_at ASC`
		return s.queryDescriptors(ctx, query, task.TaskStatusProcessing, s.now().Add(-olderThan))
	}
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE status = $1 ORDER BY created_at ASC`
	return s.queryDescriptors(ctx, query, task.TaskStatusProcessing)
}

// WithTx returns a new PostgresTaskStore that runs its queries in tx
func (s *PostgresTaskStore) WithTx(tx *sql.Tx) task.TaskStore {
	return &PostgresTaskStore{
		db:     tx,
		logger: s.logger,
		now:    s.now,
	}
}

func (s *PostgresTaskStore) queryDescriptors(ctx context.Context, query string, args ...any) ([]task.Descriptor, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, store.NewStoreError("task", "list", "failed to query tasks", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	var descriptors []task.Descriptor
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task row: %w", err)
		}
		d, err := rec.Descriptor()
		if err != nil {
			log.Error("skipping invalid stored task", "task_id", rec.ID, "error", err)
			continue
		}
		descriptors = append(descriptors, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating task rows: %w", err)
	}
	return descriptors, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*task.Record, error) {
	var (
		rec      task.Record
		payload  []byte
		errorMsg sql.NullString
	)
	if err := row.Scan(
		&rec.ID,
		&rec.Type,
		&rec.OrgID,
		&payload,
		&rec.Status,
		&rec.Attempts,
		&errorMsg,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	); err != nil {
		return nil, err
	}
	rec.Payload = payload
	rec.ErrorMessage = errorMsg.String
	return &rec, nil
}

// nullableJSON returns nil for an empty payload so the column stores NULL.
func nullableJSON(payload []byte) any {
	if len(payload) == 0 {
		return nil
	}
	return string(payload)
}

var _ task.TaskStore = (*PostgresTaskStore)(nil)
