package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points every config lookup at empty temp directories.
func isolate(t *testing.T) string {
	t.Helper()
	confDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", confDir)
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	return confDir
}

func writeGlobalConfig(t *testing.T, confDir, name, content string) {
	t.Helper()
	dir := filepath.Join(confDir, "promptwheel")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestDefaults(t *testing.T) {
	isolate(t)

	cfg, err := New(nil)
	require.NoError(t, err)

	assert.Equal(t, "file", cfg.Storage.Backend)
	assert.True(t, cfg.Storage.AutoSave)
	assert.Equal(t, 10, cfg.Experiments.MinUsageCount)
	assert.Equal(t, "INFO", cfg.Log.LogLevel)
	assert.NotEmpty(t, cfg.Storage.Dir)
}

func TestGlobalConfigFileOverridesDefaults(t *testing.T) {
	confDir := isolate(t)
	writeGlobalConfig(t, confDir, "storage.promptwheel.yaml", `
storage:
  backend: sqlite
  dbPath: /tmp/pw.db
experiments:
  minUsageCount: 3
`)

	cfg, err := New(nil)
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Storage.Backend)
	assert.Equal(t, "/tmp/pw.db", cfg.Storage.DBPath)
	assert.Equal(t, 3, cfg.Experiments.MinUsageCount)
	// Untouched keys keep their defaults.
	assert.Equal(t, "INFO", cfg.Log.LogLevel)
}

func TestEnvironmentVariableOverride(t *testing.T) {
	isolate(t)
	t.Setenv("PROMPTWHEEL_LOG_LOGLEVEL", "DEBUG")

	cfg, err := New(nil)
	require.NoError(t, err)
	assert.Equal(t, "DEBUG", cfg.Log.LogLevel)
}

func TestRuntimeOverridesWin(t *testing.T) {
	confDir := isolate(t)
	writeGlobalConfig(t, confDir, "log.promptwheel.yaml", "log:\n  logLevel: WARN\n")

	level := "ERROR"
	backend := "sqlite"
	cfg, err := New(&RuntimeOverrides{LogLevel: &level, Backend: &backend})
	require.NoError(t, err)

	assert.Equal(t, "ERROR", cfg.Log.LogLevel)
	assert.Equal(t, "sqlite", cfg.Storage.Backend)
}

func TestInvalidBackendRejected(t *testing.T) {
	confDir := isolate(t)
	writeGlobalConfig(t, confDir, "storage.promptwheel.yaml", "storage:\n  backend: redis\n")

	_, err := New(nil)
	assert.Error(t, err)
}

func TestKnownKeys(t *testing.T) {
	known := GetKnownKeys()

	assert.True(t, IsKnownKey(known, "storage.backend"))
	assert.True(t, IsKnownKey(known, "experiments.minUsageCount"))
	assert.True(t, IsKnownKey(known, "keymap.quit"))
	assert.False(t, IsKnownKey(known, "storage.bucket"))
}
