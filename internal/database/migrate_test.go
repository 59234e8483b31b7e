package database

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationFilesOrder(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"000002_create_products.up.sql",
		"000001_create_users.up.sql",
		"000001_create_users.down.sql",
		"000002_create_products.down.sql",
		"README.md",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("SELECT 1;"), 0o644))
	}

	up, err := MigrationFiles(dir, "up")
	require.NoError(t, err)
	assert.Equal(t, []string{"000001_create_users.up.sql", "000002_create_products.up.sql"}, up)

	down, err := MigrationFiles(dir, "down")
	require.NoError(t, err)
	assert.Equal(t, []string{"000002_create_products.down.sql", "000001_create_users.down.sql"}, down)

	_, err = MigrationFiles(dir, "sideways")
	assert.Error(t, err)
}

func TestRepositoryMigrationsPair(t *testing.T) {
	dir := filepath.Join("..", "..", "migrations")

	up, err := MigrationFiles(dir, "up")
	require.NoError(t, err)
	down, err := MigrationFiles(dir, "down")
	require.NoError(t, err)

	require.Len(t, down, len(up))
	for i, name := range up {
		base := name[:len(name)-len(".up.sql")]
		assert.Equal(t, base+".down.sql", down[len(down)-1-i])
	}
}
