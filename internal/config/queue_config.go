package config

// QueueConfig defines configuration for the rate-limited action queue
type QueueConfig struct {
	MinDelayMs int `json:"min_delay_ms,omitempty" yaml:"min_delay_ms,omitempty" validate:"omitempty,min=0"`
}

// NewDefaultQueueConfig creates default queue configuration
func NewDefaultQueueConfig() QueueConfig {
	return QueueConfig{
		MinDelayMs: DefaultQueueMinDelayMs,
	}
}
