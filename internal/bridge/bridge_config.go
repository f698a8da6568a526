package bridge

import "time"

// Default bridge timings.
const (
	DefaultProbeTimeout   = 1 * time.Second
	DefaultSettleDelay    = 500 * time.Millisecond
	DefaultBackoffUnit    = 1 * time.Second
	DefaultMaxAttempts    = 3
	DefaultRequestTimeout = 5 * time.Second
)

// BridgeConfig holds configuration for the content script bridge.
type BridgeConfig struct {
	ProbeTimeout   time.Duration `yaml:"probe_timeout" validate:"min=0"`
	SettleDelay    time.Duration `yaml:"settle_delay" validate:"min=0"`
	BackoffUnit    time.Duration `yaml:"backoff_unit" validate:"min=0"`
	MaxAttempts    int           `yaml:"max_attempts" validate:"min=0,max=10"`
	RequestTimeout time.Duration `yaml:"request_timeout" validate:"min=0"`
}

// DefaultBridgeConfig returns the default bridge configuration.
func DefaultBridgeConfig() BridgeConfig {
	return BridgeConfig{
		ProbeTimeout:   DefaultProbeTimeout,
		SettleDelay:    DefaultSettleDelay,
		BackoffUnit:    DefaultBackoffUnit,
		MaxAttempts:    DefaultMaxAttempts,
		RequestTimeout: DefaultRequestTimeout,
	}
}

func (c *BridgeConfig) applyDefaults() {
	if c.ProbeTimeout <= 0 {
		c.ProbeTimeout = DefaultProbeTimeout
	}
	if c.SettleDelay <= 0 {
		c.SettleDelay = DefaultSettleDelay
	}
	if c.BackoffUnit <= 0 {
		c.BackoffUnit = DefaultBackoffUnit
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = DefaultRequestTimeout
	}
}
