package config

// StabilityConfig defines configuration for page stability monitoring
type StabilityConfig struct {
	DimensionTimeoutMs     int `json:"dimension_timeout_ms,omitempty" yaml:"dimension_timeout_ms,omitempty" validate:"omitempty,min=0"`
	FallbackHeight         int `json:"fallback_height,omitempty" yaml:"fallback_height,omitempty" validate:"omitempty,min=1"`
	ScrollStep             int `json:"scroll_step,omitempty" yaml:"scroll_step,omitempty" validate:"omitempty,min=1"`
	ScrollIntervalMs       int `json:"scroll_interval_ms,omitempty" yaml:"scroll_interval_ms,omitempty" validate:"omitempty,min=0"`
	SettleTimeoutMs        int `json:"settle_timeout_ms,omitempty" yaml:"settle_timeout_ms,omitempty" validate:"omitempty,min=0"`
	ScrollRequestTimeoutMs int `json:"scroll_request_timeout_ms,omitempty" yaml:"scroll_request_timeout_ms,omitempty" validate:"omitempty,min=0"`
}

// NewDefaultStabilityConfig creates default stability configuration
func NewDefaultStabilityConfig() StabilityConfig {
	return StabilityConfig{
		DimensionTimeoutMs:     DefaultStabilityDimensionTimeoutMs,
		FallbackHeight:         DefaultStabilityFallbackHeight,
		ScrollStep:             DefaultStabilityScrollStep,
		ScrollIntervalMs:       DefaultStabilityScrollIntervalMs,
		SettleTimeoutMs:        DefaultStabilitySettleTimeoutMs,
		ScrollRequestTimeoutMs: DefaultStabilityScrollRequestTimeoutMs,
	}
}
