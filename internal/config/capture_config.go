package config

// CaptureConfig defines configuration for the capture pipeline
type CaptureConfig struct {
	BaseDir                 string   `json:"base_dir,omitempty" yaml:"base_dir,omitempty"`
	ContentTimeoutSecs      int      `json:"content_timeout_secs,omitempty" yaml:"content_timeout_secs,omitempty" validate:"omitempty,min=1"`
	RestrictedSchemes       []string `json:"restricted_schemes,omitempty" yaml:"restricted_schemes,omitempty"`
	StitchScrollSettleMs    int      `json:"stitch_scroll_settle_ms,omitempty" yaml:"stitch_scroll_settle_ms,omitempty" validate:"omitempty,min=0"`
	RecentLogCapacity       int      `json:"recent_log_capacity,omitempty" yaml:"recent_log_capacity,omitempty" validate:"omitempty,min=1"`
	AutoCaptureURLs         []string `json:"auto_capture_urls,omitempty" yaml:"auto_capture_urls,omitempty" validate:"omitempty,dive,url"`
	AutoCaptureIntervalSecs int      `json:"auto_capture_interval_secs,omitempty" yaml:"auto_capture_interval_secs,omitempty" validate:"omitempty,min=1"`
	ScriptCacheClearSecs    int      `json:"script_cache_clear_secs,omitempty" yaml:"script_cache_clear_secs,omitempty" validate:"omitempty,min=1"`
}

// NewDefaultCaptureConfig creates default capture configuration
func NewDefaultCaptureConfig() CaptureConfig {
	return CaptureConfig{
		BaseDir:                 DefaultCaptureBaseDir,
		ContentTimeoutSecs:      DefaultCaptureContentTimeoutSecs,
		RestrictedSchemes:       []string{},
		StitchScrollSettleMs:    DefaultCaptureStitchScrollSettleMs,
		RecentLogCapacity:       DefaultCaptureRecentLogCapacity,
		AutoCaptureURLs:         []string{},
		AutoCaptureIntervalSecs: DefaultAutoCaptureIntervalSecs,
		ScriptCacheClearSecs:    DefaultScriptCacheClearIntervalSecs,
	}
}
