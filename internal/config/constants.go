package config

const (
	// Log Defaults
	DefaultLogLevel      = "info"
	DefaultLogFormat     = "console"
	DefaultLogFile       = ""
	DefaultMaxLogSizeMB  = 100
	DefaultMaxLogBackups = 3

	// Browser Defaults
	DefaultBrowserWindowWidth         = 1280
	DefaultBrowserWindowHeight        = 800
	DefaultBrowserPageLoadTimeoutSecs = 30
	DefaultBrowserPoolSize            = 3

	// Queue Defaults
	DefaultQueueMinDelayMs = 1000

	// Bridge Defaults
	DefaultBridgeProbeTimeoutMs   = 1000
	DefaultBridgeSettleDelayMs    = 500
	DefaultBridgeBackoffUnitMs    = 1000
	DefaultBridgeMaxAttempts      = 3
	DefaultBridgeRequestTimeoutMs = 5000

	// Stability Defaults
	DefaultStabilityDimensionTimeoutMs     = 5000
	DefaultStabilityFallbackHeight         = 5000
	DefaultStabilityScrollStep             = 200
	DefaultStabilityScrollIntervalMs       = 500
	DefaultStabilitySettleTimeoutMs        = 5000
	DefaultStabilityScrollRequestTimeoutMs = 1000

	// Capture Defaults
	DefaultCaptureBaseDir              = "webData"
	DefaultCaptureContentTimeoutSecs   = 5
	DefaultCaptureStitchScrollSettleMs = 250
	DefaultCaptureRecentLogCapacity    = 10

	// Auto-capture Defaults
	DefaultAutoCaptureIntervalSecs      = 300
	DefaultScriptCacheClearIntervalSecs = 900
)
