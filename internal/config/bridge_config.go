package config

// BridgeConfig defines configuration for the content script bridge
type BridgeConfig struct {
	ProbeTimeoutMs   int `json:"probe_timeout_ms,omitempty" yaml:"probe_timeout_ms,omitempty" validate:"omitempty,min=0"`
	SettleDelayMs    int `json:"settle_delay_ms,omitempty" yaml:"settle_delay_ms,omitempty" validate:"omitempty,min=0"`
	BackoffUnitMs    int `json:"backoff_unit_ms,omitempty" yaml:"backoff_unit_ms,omitempty" validate:"omitempty,min=0"`
	MaxAttempts      int `json:"max_attempts,omitempty" yaml:"max_attempts,omitempty" validate:"omitempty,min=1,max=10"`
	RequestTimeoutMs int `json:"request_timeout_ms,omitempty" yaml:"request_timeout_ms,omitempty" validate:"omitempty,min=0"`
}

// NewDefaultBridgeConfig creates default bridge configuration
func NewDefaultBridgeConfig() BridgeConfig {
	return BridgeConfig{
		ProbeTimeoutMs:   DefaultBridgeProbeTimeoutMs,
		SettleDelayMs:    DefaultBridgeSettleDelayMs,
		BackoffUnitMs:    DefaultBridgeBackoffUnitMs,
		MaxAttempts:      DefaultBridgeMaxAttempts,
		RequestTimeoutMs: DefaultBridgeRequestTimeoutMs,
	}
}
