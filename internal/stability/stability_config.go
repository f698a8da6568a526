package stability

import "time"

// Default render sweep parameters.
const (
	DefaultDimensionTimeout     = 5 * time.Second
	DefaultFallbackHeight       = 5000
	DefaultScrollStep           = 200
	DefaultScrollInterval       = 500 * time.Millisecond
	DefaultSettleTimeout        = 5 * time.Second
	DefaultScrollRequestTimeout = 1 * time.Second
)

// StabilityConfig holds configuration for the page stability monitor.
type StabilityConfig struct {
	DimensionTimeout     time.Duration `yaml:"dimension_timeout" validate:"min=0"`
	FallbackHeight       int           `yaml:"fallback_height" validate:"min=0"`
	ScrollStep           int           `yaml:"scroll_step" validate:"min=0"`
	ScrollInterval       time.Duration `yaml:"scroll_interval" validate:"min=0"`
	SettleTimeout        time.Duration `yaml:"settle_timeout" validate:"min=0"`
	ScrollRequestTimeout time.Duration `yaml:"scroll_request_timeout" validate:"min=0"`
}

// DefaultStabilityConfig returns the default monitor configuration.
func DefaultStabilityConfig() StabilityConfig {
	return StabilityConfig{
		DimensionTimeout:     DefaultDimensionTimeout,
		FallbackHeight:       DefaultFallbackHeight,
		ScrollStep:           DefaultScrollStep,
		ScrollInterval:       DefaultScrollInterval,
		SettleTimeout:        DefaultSettleTimeout,
		ScrollRequestTimeout: DefaultScrollRequestTimeout,
	}
}

func (c *StabilityConfig) applyDefaults() {
	if c.DimensionTimeout <= 0 {
		c.DimensionTimeout = DefaultDimensionTimeout
	}
	if c.FallbackHeight <= 0 {
		c.FallbackHeight = DefaultFallbackHeight
	}
	if c.ScrollStep <= 0 {
		c.ScrollStep = DefaultScrollStep
	}
	if c.ScrollInterval <= 0 {
		c.ScrollInterval = DefaultScrollInterval
	}
	if c.SettleTimeout <= 0 {
		c.SettleTimeout = DefaultSettleTimeout
	}
	if c.ScrollRequestTimeout <= 0 {
		c.ScrollRequestTimeout = DefaultScrollRequestTimeout
	}
}
