package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/webcapsule/webcapsule/internal/common"
	"github.com/webcapsule/webcapsule/internal/models"
	"gopkg.in/yaml.v3"
)

// maxConfigFileSize bounds how much of a config file is read.
const maxConfigFileSize = 10 * 1024 * 1024

type GlobalConfig struct {
	LogConfig             LogConfig             `json:"log_config,omitempty" yaml:"log_config,omitempty"`
	BrowserConfig         BrowserConfig         `json:"browser_config,omitempty" yaml:"browser_config,omitempty"`
	QueueConfig           QueueConfig           `json:"queue_config,omitempty" yaml:"queue_config,omitempty"`
	BridgeConfig          BridgeConfig          `json:"bridge_config,omitempty" yaml:"bridge_config,omitempty"`
	StabilityConfig       StabilityConfig       `json:"stability_config,omitempty" yaml:"stability_config,omitempty"`
	CaptureConfig         CaptureConfig         `json:"capture_config,omitempty" yaml:"capture_config,omitempty"`
	StorageConfig         StorageConfig         `json:"storage_config,omitempty" yaml:"storage_config,omitempty"`
	NotificationConfig    NotificationConfig    `json:"notification_config,omitempty" yaml:"notification_config,omitempty"`
	ResourceLimiterConfig ResourceLimiterConfig `json:"resource_limiter_config,omitempty" yaml:"resource_limiter_config,omitempty"`
	Settings              models.Settings       `json:"settings,omitempty" yaml:"settings,omitempty"`
}

func NewDefaultGlobalConfig() *GlobalConfig {
	return &GlobalConfig{
		LogConfig:             NewDefaultLogConfig(),
		BrowserConfig:         NewDefaultBrowserConfig(),
		QueueConfig:           NewDefaultQueueConfig(),
		BridgeConfig:          NewDefaultBridgeConfig(),
		StabilityConfig:       NewDefaultStabilityConfig(),
		CaptureConfig:         NewDefaultCaptureConfig(),
		StorageConfig:         NewDefaultStorageConfig(),
		NotificationConfig:    NewDefaultNotificationConfig(),
		ResourceLimiterConfig: NewDefaultResourceLimiterConfig(),
		Settings:              models.DefaultSettings(),
	}
}

// LoadGlobalConfig loads the configuration from a file or default locations.
// Absent keys keep their defaults, so partial config files are fine. YAML is
// used when the file extension is .yaml or .yml, JSON otherwise.
func LoadGlobalConfig(providedPath string) (*GlobalConfig, error) {
	cfg := NewDefaultGlobalConfig()

	filePath := GetConfigPath(providedPath)
	if filePath == "" {
		return cfg, nil
	}

	data, err := readConfigFile(filePath)
	if err != nil {
		return nil, common.WrapError(err, "failed to load config file content")
	}

	if err := parseConfigContent(data, filePath, cfg); err != nil {
		return nil, common.WrapError(err, "failed to parse config content")
	}

	return cfg, nil
}

// readConfigFile reads the config file with a size bound
func readConfigFile(filePath string) ([]byte, error) {
	info, err := os.Stat(filePath)
	if err != nil {
		return nil, err
	}
	if info.Size() > maxConfigFileSize {
		return nil, common.WrapErrorf(common.ErrInvalidConfiguration, "config file '%s' exceeds %d bytes", filePath, maxConfigFileSize)
	}
	return os.ReadFile(filePath)
}

// parseConfigContent parses the config content based on file extension
func parseConfigContent(data []byte, filePath string, cfg *GlobalConfig) error {
	ext := filepath.Ext(filePath)
	if isYAMLFile(ext) {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return common.WrapErrorf(err, "failed to unmarshal YAML from '%s'", filePath)
		}
		return nil
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return common.WrapErrorf(err, "failed to unmarshal JSON from '%s'", filePath)
	}
	return nil
}

// isYAMLFile checks if the file extension indicates a YAML file
func isYAMLFile(ext string) bool {
	return ext == ".yaml" || ext == ".yml"
}
