package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().validate())
}

func TestLoadAppliesOverridesOnTopOfDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "reifydb.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
backend: bbolt
data_dir: /var/lib/reifydb
serializable: true
session:
  allow_full_scan: false
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, BackendBbolt, cfg.Backend)
	assert.True(t, cfg.Serializable)
	assert.False(t, cfg.Session.AllowFullScan)
	assert.Equal(t, 2000, cfg.DefaultBatchSize)
}

func TestLoadRejectsBboltWithoutDataDir(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "reifydb.yaml")
	require.NoError(t, os.WriteFile(path, []byte("backend: bbolt\n"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
}
