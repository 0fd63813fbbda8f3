package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mrlokans/posdz/internal/config"
)

func TestSetup_ReplacesGlobal(t *testing.T) {
	logger, err := Setup(config.Log{Mode: "development", Level: "debug"})
	require.NoError(t, err)
	defer zap.ReplaceGlobals(zap.NewNop())

	assert.Same(t, logger, zap.L())
	assert.True(t, logger.Core().Enabled(zap.DebugLevel))
}

func TestSetup_InvalidLevel(t *testing.T) {
	_, err := Setup(config.Log{Mode: "production", Level: "loud"})
	assert.Error(t, err)
}

func TestSetup_FileOutput(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "posdz.log")

	logger, err := Setup(config.Log{Mode: "production", Level: "info", FileEnable: true, Filename: filename})
	require.NoError(t, err)
	defer zap.ReplaceGlobals(zap.NewNop())

	logger.Info("counter reset", zap.String("day", "2024-01-02"))
	_ = logger.Sync()

	content, err := os.ReadFile(filename)
	require.NoError(t, err)
	assert.Contains(t, string(content), "counter reset")
}
