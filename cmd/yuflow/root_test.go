package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tgienger/yuflow/internal/config"
	"github.com/tgienger/yuflow/internal/models"
	"github.com/tgienger/yuflow/internal/platform"
	"github.com/tgienger/yuflow/internal/storage/desktop"
	"github.com/tgienger/yuflow/internal/storage/web"
)

// sandbox points every path at a temp dir and selects the web backend
func sandbox(t *testing.T) (configPath, dataFile string) {
	t.Helper()
	dir := t.TempDir()
	dataFile = filepath.Join(dir, "data", "yuflow.json")
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "share"))
	t.Setenv(platform.Env, "web")
	t.Setenv(config.EnvDataFile, dataFile)
	return filepath.Join(dir, "config", "config.toml"), dataFile
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersionFlag(t *testing.T) {
	out, err := run(t, "--version")
	require.NoError(t, err)
	assert.Equal(t, "yuflow dev (commit: none, built: unknown)\n", out)
}

func TestNewFactory(t *testing.T) {
	factory := newFactory(config.Storage{DBPath: filepath.Join(t.TempDir(), "y.db"), Driver: "sqlite"}, zap.NewNop())

	a, err := factory(platform.Desktop)
	require.NoError(t, err)
	assert.IsType(t, &desktop.Adapter{}, a)

	a, err = factory(platform.Web)
	require.NoError(t, err)
	assert.IsType(t, &web.Adapter{}, a)

	_, err = factory(platform.Platform("mobile"))
	assert.Error(t, err)
}

func TestSetup_CreatesConfig(t *testing.T) {
	configPath, _ := sandbox(t)

	e, err := setup(configPath)
	require.NoError(t, err)
	defer e.close(context.Background())

	assert.FileExists(t, configPath)
	_, err = e.service.Adapter(context.Background())
	require.NoError(t, err)
	assert.Equal(t, platform.Web, e.service.Platform())
}

func TestBackupCommands(t *testing.T) {
	configPath, dataFile := sandbox(t)
	ctx := context.Background()

	store := web.New(dataFile)
	require.NoError(t, store.Initialize(ctx))
	_, err := store.CreateTask(ctx, models.CreateTaskInput{Title: "keep me"})
	require.NoError(t, err)
	require.NoError(t, store.Close(ctx))

	out, err := run(t, "--config", configPath, "backup", "list")
	require.NoError(t, err)
	assert.Equal(t, "No backups\n", out)

	out, err = run(t, "--config", configPath, "backup", "create")
	require.NoError(t, err)
	assert.Contains(t, out, "(1 tasks, 1 categories)")

	backups, err := os.ReadDir(filepath.Join(os.Getenv("XDG_DATA_HOME"), config.AppName, "backups"))
	require.NoError(t, err)
	require.Len(t, backups, 1)
	name := backups[0].Name()

	out, err = run(t, "--config", configPath, "backup", "list")
	require.NoError(t, err)
	assert.Contains(t, out, name)

	out, err = run(t, "--config", configPath, "backup", "restore", name)
	require.NoError(t, err)
	assert.Equal(t, "Restored "+name+"\n", out)

	reopened := web.New(dataFile)
	require.NoError(t, reopened.Initialize(ctx))
	tasks, err := reopened.GetTasks(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, reopened.Close(ctx))
	require.Len(t, tasks, 1)
	assert.Equal(t, "keep me", tasks[0].Title)

	out, err = run(t, "--config", configPath, "backup", "delete", name)
	require.NoError(t, err)
	assert.Equal(t, "Deleted "+name+"\n", out)

	_, err = run(t, "--config", configPath, "backup", "delete", "../config.toml")
	assert.Error(t, err)
}

func TestBackupRestoreNeedsFile(t *testing.T) {
	configPath, _ := sandbox(t)

	_, err := run(t, "--config", configPath, "backup", "restore")
	assert.Error(t, err)
}
