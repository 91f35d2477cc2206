package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWhenNoFile(t *testing.T) {
	cfg, err := Load(t.TempDir(), "")
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Database.Dialect)
	assert.Equal(t, filepath.Join(PortageDir, "tracker.db"), cfg.Database.Path)
	assert.Equal(t, filepath.Join(PortageDir, "exports"), cfg.Export.Dir)
	assert.NotEmpty(t, cfg.Export.By)
	assert.Zero(t, cfg.Archive.MaxSizeBytes)
}

func TestLoadFromFile(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, PortageDir)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(`
database:
  dialect: sqlite
  path: custom/tracker.db
export:
  by: alice
archive:
  max_size_bytes: 1048576
`), 0o644))

	cfg, err := Load(root, "")
	require.NoError(t, err)
	assert.Equal(t, "custom/tracker.db", cfg.Database.Path)
	assert.Equal(t, "alice", cfg.Export.By)
	assert.Equal(t, int64(1048576), cfg.Archive.MaxSizeBytes)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PORTAGE_EXPORT_BY", "bob")
	cfg, err := Load(t.TempDir(), "")
	require.NoError(t, err)
	assert.Equal(t, "bob", cfg.Export.By)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Database.Dialect = "oracle"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Database.Dialect = "postgres"
	assert.Error(t, cfg.Validate(), "postgres requires a DSN")
	cfg.Database.DSN = "postgres://localhost/portage"
	assert.NoError(t, cfg.Validate())

	cfg = Default()
	cfg.Archive.MaxSizeBytes = -1
	assert.Error(t, cfg.Validate())
}

func TestSaveRoundTrip(t *testing.T) {
	root := t.TempDir()
	cfg := Default()
	cfg.Export.By = "carol"
	require.NoError(t, cfg.Save(root))

	got, err := Load(root, "")
	require.NoError(t, err)
	assert.Equal(t, "carol", got.Export.By)
}
