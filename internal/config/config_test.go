package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, 300*time.Second, cfg.TurnMaxDuration)
	assert.Equal(t, 240*time.Second, cfg.TurnWarnAfter)
	assert.Equal(t, 270*time.Second, cfg.TurnCheckpointAfter)
	assert.Equal(t, time.Hour, cfg.CheckpointTTL)
	assert.Equal(t, 25, cfg.MaxToolIterations)
	assert.Equal(t, 150, cfg.ReadMaxLines)
	assert.Equal(t, 500000, cfg.ReadMaxBytes)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("TURN_MAX_DURATION_MS", "60000")
	t.Setenv("TURN_WARN_AFTER_MS", "30000")
	t.Setenv("TURN_CHECKPOINT_AFTER_MS", "45000")
	t.Setenv("GOGO_MODE", "MOCK")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.HTTPPort)
	assert.Equal(t, time.Minute, cfg.ContinuationLimits().MaxDuration)
	assert.Equal(t, 45*time.Second, cfg.ContinuationLimits().CheckpointAfter)
	assert.Equal(t, "MOCK", cfg.Mode)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agentcore.yaml")
	require.NoError(t, os.WriteFile(path, []byte("READ_MAX_LINES: 40\nLLM_MODEL: local-coder\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 40, cfg.ToolLimits().MaxReadLines)
	assert.Equal(t, "local-coder", cfg.LLMModel)
}

func TestLoadRejectsInvertedThresholds(t *testing.T) {
	t.Setenv("TURN_CHECKPOINT_AFTER_MS", "300000")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid turn limits")
}

func TestNewLoggerFormat(t *testing.T) {
	var buf bytes.Buffer
	cfg := &Config{LogLevel: "warn", LogFormat: "json"}
	logger := cfg.NewLogger(&buf)

	logger.Info("hidden")
	logger.Warn("shown", "k", "v")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
}
