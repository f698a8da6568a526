package capture

import "time"

// Defaults for the capture pipeline.
const (
	DefaultBaseDir            = "webData"
	DefaultContentTimeout     = 5 * time.Second
	DefaultStitchScrollSettle = 250 * time.Millisecond
	DefaultRecentLogCapacity  = 10
)

// defaultRestrictedSchemes are URL schemes that must never be captured.
var defaultRestrictedSchemes = []string{
	"chrome", "chrome-extension", "about", "devtools", "view-source", "edge", "moz-extension",
}

// CaptureConfig holds configuration for the capture orchestrator.
type CaptureConfig struct {
	BaseDir            string        `yaml:"base_dir"`
	ContentTimeout     time.Duration `yaml:"content_timeout" validate:"min=0"`
	RestrictedSchemes  []string      `yaml:"restricted_schemes"`
	StitchScrollSettle time.Duration `yaml:"stitch_scroll_settle" validate:"min=0"`
	RecentLogCapacity  int           `yaml:"recent_log_capacity" validate:"min=0"`
}

// DefaultCaptureConfig returns the default capture configuration.
func DefaultCaptureConfig() CaptureConfig {
	return CaptureConfig{
		BaseDir:            DefaultBaseDir,
		ContentTimeout:     DefaultContentTimeout,
		RestrictedSchemes:  defaultRestrictedSchemes,
		StitchScrollSettle: DefaultStitchScrollSettle,
		RecentLogCapacity:  DefaultRecentLogCapacity,
	}
}

func (c *CaptureConfig) applyDefaults() {
	if c.BaseDir == "" {
		c.BaseDir = DefaultBaseDir
	}
	if c.ContentTimeout <= 0 {
		c.ContentTimeout = DefaultContentTimeout
	}
	if len(c.RestrictedSchemes) == 0 {
		c.RestrictedSchemes = defaultRestrictedSchemes
	}
	if c.StitchScrollSettle <= 0 {
		c.StitchScrollSettle = DefaultStitchScrollSettle
	}
	if c.RecentLogCapacity <= 0 {
		c.RecentLogCapacity = DefaultRecentLogCapacity
	}
}
