package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tgienger/yuflow/internal/config"
)

func TestNew_WritesToFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "logs", "yuflow.log")

	logger, err := New(config.Log{Level: "info", File: file})
	require.NoError(t, err)
	logger.Debug("hidden")
	logger.Info("adapter ready")
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), "adapter ready")
	assert.NotContains(t, string(data), "hidden")
}

func TestNew_RejectsUnknownLevel(t *testing.T) {
	_, err := New(config.Log{Level: "chatty", File: filepath.Join(t.TempDir(), "x.log")})
	assert.Error(t, err)
}
