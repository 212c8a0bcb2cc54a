package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAppliesAllMigrations(t *testing.T) {
	dir := t.TempDir()
	db, err := Open(filepath.Join(dir, "memories.db"))
	require.NoError(t, err)
	defer db.Close()

	cur, err := currentVersion(db)
	require.NoError(t, err)
	assert.Equal(t, 2, cur)

	status, err := Status(db)
	require.NoError(t, err)
	assert.Equal(t, 2, status.CurrentVersion)
	assert.Empty(t, status.Pending)
}

func TestRunMigrationsIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	db, err := Open(filepath.Join(dir, "memories.db"))
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, RunMigrations(db))

	cur, err := currentVersion(db)
	require.NoError(t, err)
	assert.Equal(t, 2, cur)
}

func TestMigrationAddsUpdatedColumns(t *testing.T) {
	dir := t.TempDir()
	db, err := Open(filepath.Join(dir, "memories.db"))
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`UPDATE memories SET updated_at = ?, updated_by = ? WHERE id = 'nonexistent'`, "2026-01-01", "tester")
	assert.NoError(t, err)
}
