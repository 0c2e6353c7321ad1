package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadOrCreate_WritesDefaults(t *testing.T) {
	data := t.TempDir()
	t.Setenv("XDG_DATA_HOME", data)
	path := filepath.Join(t.TempDir(), "yuflow", DefaultConfigFileName)

	cfg, err := LoadOrCreate(path)
	require.NoError(t, err)

	assert.Equal(t, Default(filepath.Join(data, AppName)), cfg)
	assert.FileExists(t, path)

	again, err := LoadOrCreate(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, again)
}

func TestLoadOrCreate_ReadsFileAndFillsBlanks(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), DefaultConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte(`
platform = "web"

[storage]
driver = "sqlite"

[ui]
default_sort = "priority"
`), 0o644))

	cfg, err := LoadOrCreate(path)
	require.NoError(t, err)

	assert.Equal(t, "web", cfg.Platform)
	assert.Equal(t, "sqlite", cfg.Storage.Driver)
	assert.Equal(t, "priority", cfg.UI.DefaultSort)
	assert.Equal(t, "all", cfg.UI.DefaultFilter)
	assert.Equal(t, "tokyo-night", cfg.UI.Theme)
	assert.NotEmpty(t, cfg.Storage.DBPath)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadOrCreate_EnvOverrides(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	t.Setenv(EnvPlatform, "desktop")
	t.Setenv(EnvDBPath, "/tmp/elsewhere.db")
	t.Setenv(EnvLogLevel, "debug")
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte(`platform = "web"`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("YUFLOW_LOG_LEVEL=warn\nYUFLOW_DB_DRIVER=sqlite\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv(EnvDBDriver) })

	cfg, err := LoadOrCreate(path)
	require.NoError(t, err)

	assert.Equal(t, "desktop", cfg.Platform)
	assert.Equal(t, "/tmp/elsewhere.db", cfg.Storage.DBPath)
	assert.Equal(t, "debug", cfg.Log.Level, "the environment wins over .env")
	assert.Equal(t, "sqlite", cfg.Storage.Driver, ".env fills unset variables")
}

func TestLoadOrCreate_BadTOML(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), DefaultConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte("platform = "), 0o644))

	_, err := LoadOrCreate(path)
	assert.Error(t, err)
}

func TestPaths(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/data")
	t.Setenv("XDG_CONFIG_HOME", "/conf")

	dir, err := DataDir()
	require.NoError(t, err)
	assert.Equal(t, "/data/yuflow", dir)

	path, err := DefaultPath()
	require.NoError(t, err)
	assert.Equal(t, "/conf/yuflow/config.toml", path)
}
