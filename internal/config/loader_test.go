package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)

	assert.Equal(t, DefaultRuntimeEndpoint, cfg.Runtime.Endpoint)
	assert.Equal(t, DefaultManifestDirectory, cfg.Manifests.Directory)
	assert.Equal(t, DefaultDebounceWindow, cfg.Reconcile.DebounceWindow.Std())
	assert.Equal(t, DefaultRefreshInterval, cfg.Reconcile.RefreshInterval.Std())
	assert.Equal(t, DefaultImagePullConcurrency, cfg.Reconcile.ImagePullConcurrency)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadConfig_FileOverlaysDefaults(t *testing.T) {
	path := writeConfig(t, `
runtime:
  endpoint: unix:///var/run/crio/crio.sock
reconcile:
  debounceWindow: 500ms
  imagePullConcurrency: 4
log:
  level: debug
  format: json
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "unix:///var/run/crio/crio.sock", cfg.Runtime.Endpoint)
	assert.Equal(t, 500*time.Millisecond, cfg.Reconcile.DebounceWindow.Std())
	assert.Equal(t, 4, cfg.Reconcile.ImagePullConcurrency)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)

	// Untouched sections keep their defaults.
	assert.Equal(t, DefaultManifestDirectory, cfg.Manifests.Directory)
	assert.Equal(t, DefaultRefreshInterval, cfg.Reconcile.RefreshInterval.Std())
}

func TestLoadConfig_MalformedYAML(t *testing.T) {
	path := writeConfig(t, "runtime: [not a mapping")

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfig_BadDuration(t *testing.T) {
	path := writeConfig(t, `
reconcile:
  debounceWindow: soon
`)

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid duration")
}

func TestLoadConfig_InvalidValuesRejected(t *testing.T) {
	path := writeConfig(t, `
reconcile:
  refreshInterval: 1s
  debounceWindow: 2s
`)

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refreshInterval")
}
