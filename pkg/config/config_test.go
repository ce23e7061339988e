package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	_, err := Load("/nonexistent/path/bplus.yaml")
	require.Error(t, err, "expected error for nonexistent path")

	// Load with empty path uses default search (may use defaults if no config file)
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultOrder, cfg.Tree.Order)
	assert.Equal(t, DefaultPath, cfg.Storage.Path)
	assert.Equal(t, "cbor", cfg.Storage.Codec)
	assert.Equal(t, DefaultSnapshotName, cfg.Storage.SnapshotName)
	assert.Equal(t, DefaultKeepSnapshots, cfg.Storage.KeepSnapshots)
	assert.True(t, cfg.Storage.ShouldRestore())
	assert.Equal(t, "info", cfg.Log.Level)
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
tree:
  order: 8
storage:
  path: "test_data"
  codec: json
  snapshot_name: orders
  keep_snapshots: 5
  restore_on_open: false
log:
  level: debug
  development: true
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Tree.Order)
	assert.Equal(t, "test_data", cfg.Storage.Path)
	assert.Equal(t, "json", cfg.Storage.Codec)
	assert.Equal(t, "orders", cfg.Storage.SnapshotName)
	assert.Equal(t, 5, cfg.Storage.KeepSnapshots)
	assert.False(t, cfg.Storage.ShouldRestore())
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.Development)
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := writeConfig(t, "tree:\n  order: 5\n")
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Tree.Order)
	assert.Equal(t, DefaultPath, cfg.Storage.Path)
	assert.True(t, cfg.Storage.ShouldRestore())
}

func TestLoadRejectsInvalid(t *testing.T) {
	_, err := Load(writeConfig(t, "tree:\n  order: 2\n"))
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = Load(writeConfig(t, "storage:\n  codec: xml\n"))
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = Load(writeConfig(t, "tree: [unclosed"))
	assert.Error(t, err)
}
