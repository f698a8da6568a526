package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultGlobalConfig(t *testing.T) {
	cfg := NewDefaultGlobalConfig()

	assert.Equal(t, "info", cfg.LogConfig.LogLevel)
	assert.Equal(t, DefaultCaptureBaseDir, cfg.CaptureConfig.BaseDir)
	assert.Equal(t, DefaultBridgeMaxAttempts, cfg.BridgeConfig.MaxAttempts)
	assert.True(t, cfg.Settings.CaptureHTML)

	require.NoError(t, ValidateConfig(cfg))
}

func TestLoadGlobalConfig_PartialYAMLKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte("capture_config:\n  base_dir: archive\nsettings:\n  capture_mhtml: false\n")
	require.NoError(t, os.WriteFile(path, content, 0644))

	cfg, err := LoadGlobalConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "archive", cfg.CaptureConfig.BaseDir)
	assert.False(t, cfg.Settings.CaptureMHTML)

	// Untouched sections keep their defaults.
	assert.Equal(t, DefaultCaptureContentTimeoutSecs, cfg.CaptureConfig.ContentTimeoutSecs)
	assert.True(t, cfg.Settings.CaptureHTML)
}

func TestLoadGlobalConfig_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("::not yaml::"), 0644))

	_, err := LoadGlobalConfig(path)
	assert.Error(t, err)
}

func TestValidateConfig_RejectsBadLogLevel(t *testing.T) {
	cfg := NewDefaultGlobalConfig()
	cfg.LogConfig.LogLevel = "chatty"

	err := ValidateConfig(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loglevel")
}
