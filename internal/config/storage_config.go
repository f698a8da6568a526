package config

// StorageConfig defines configuration for blob storage
type StorageConfig struct {
	RootDir  string `json:"root_dir,omitempty" yaml:"root_dir,omitempty"`
	FileMode uint32 `json:"file_mode,omitempty" yaml:"file_mode,omitempty"`
}

// NewDefaultStorageConfig creates default storage configuration
func NewDefaultStorageConfig() StorageConfig {
	return StorageConfig{
		RootDir:  ".",
		FileMode: 0644,
	}
}
