package postgres_test

import (
	"context"
	"testing"

	"github.com/invsync/invsync/internal/platform/postgres"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationFiles(t *testing.T) {
	t.Parallel()

	files, err := postgres.MigrationFiles()
	require.NoError(t, err)
	assert.Equal(t, []string{
		"00001_create_tasks_table.sql",
		"00002_create_inventory_tables.sql",
		"00003_notify_task_enqueued.sql",
	}, files)
}

func TestMigrate_UnknownCommand(t *testing.T) {
	t.Parallel()

	db, _ := newMockDB(t)
	err := postgres.Migrate(context.Background(), db, "sideways", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown migration command")
}
