package ratequeue

import "time"

// DefaultMinDelay is the minimum spacing between consecutive action starts.
const DefaultMinDelay = 1000 * time.Millisecond

// ActionQueueConfig holds configuration for the rate-limited action queue.
type ActionQueueConfig struct {
	MinDelay time.Duration `yaml:"min_delay" validate:"min=0"`
}

// DefaultActionQueueConfig returns the default queue configuration.
func DefaultActionQueueConfig() ActionQueueConfig {
	return ActionQueueConfig{
		MinDelay: DefaultMinDelay,
	}
}
