package persistence

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMigrations(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	write("002_tasks.sql", "CREATE TABLE b();\n")
	write("001_init.sql", "  CREATE TABLE a();  ")
	write("README.md", "not sql")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "003_dir.sql"), 0o755))

	migs, err := loadMigrations(dir)
	require.NoError(t, err)
	require.Len(t, migs, 2)
	assert.Equal(t, "001_init.sql", migs[0].name)
	assert.Equal(t, "CREATE TABLE a();", migs[0].sql)
	assert.Equal(t, "002_tasks.sql", migs[1].name)
	assert.Len(t, migs[0].checksum, 64)
	assert.NotEqual(t, migs[0].checksum, migs[1].checksum)
}

func TestLoadMigrationsEdgeCases(t *testing.T) {
	migs, err := loadMigrations(filepath.Join(t.TempDir(), "missing"))
	require.NoError(t, err)
	assert.Empty(t, migs)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "001_empty.sql"), []byte("  \n"), 0o644))
	_, err = loadMigrations(dir)
	assert.ErrorContains(t, err, "empty migration")
}
