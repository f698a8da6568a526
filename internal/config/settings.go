package config

import "github.com/webcapsule/webcapsule/internal/models"

// StaticSettingsStore serves a fixed settings snapshot loaded from the
// configuration file.
type StaticSettingsStore struct {
	settings models.Settings
}

// NewStaticSettingsStore creates a settings store over the given snapshot
func NewStaticSettingsStore(settings models.Settings) *StaticSettingsStore {
	if settings.MaxNetworkRequests <= 0 {
		settings.MaxNetworkRequests = models.DefaultSettings().MaxNetworkRequests
	}
	return &StaticSettingsStore{settings: settings}
}

// Load returns the settings snapshot
func (s *StaticSettingsStore) Load() models.Settings {
	return s.settings
}
