package models

// Settings is the user configuration object consumed read-only by the core.
type Settings struct {
	CaptureScreenshotVisible bool   `json:"capture_screenshot_visible" yaml:"capture_screenshot_visible"`
	CaptureScreenshotFull    bool   `json:"capture_screenshot_full" yaml:"capture_screenshot_full"`
	CaptureMHTML             bool   `json:"capture_mhtml" yaml:"capture_mhtml"`
	CaptureHTML              bool   `json:"capture_html" yaml:"capture_html"`
	CaptureText              bool   `json:"capture_text" yaml:"capture_text"`
	CaptureMarkdown          bool   `json:"capture_markdown" yaml:"capture_markdown"`
	CaptureReadable          bool   `json:"capture_readable" yaml:"capture_readable"`
	InlineExternalScripts    bool   `json:"inline_external_scripts" yaml:"inline_external_scripts"`
	MaxNetworkRequests       int    `json:"max_network_requests" yaml:"max_network_requests"`
	AutoCapture              bool   `json:"auto_capture" yaml:"auto_capture"`
	LLMEnabled               bool   `json:"llm_enabled" yaml:"llm_enabled"`
	LLMEndpoint              string `json:"llm_endpoint" yaml:"llm_endpoint"`
	LLMAPIKey                string `json:"llm_api_key" yaml:"llm_api_key"`
}

// SettingsStore reads the current settings with defaulted fields.
type SettingsStore interface {
	Load() Settings
}

// DefaultSettings returns settings with every defaulted field populated.
func DefaultSettings() Settings {
	return Settings{
		CaptureScreenshotVisible: true,
		CaptureScreenshotFull:    false,
		CaptureMHTML:             true,
		CaptureHTML:              true,
		CaptureText:              true,
		CaptureMarkdown:          true,
		CaptureReadable:          true,
		InlineExternalScripts:    false,
		MaxNetworkRequests:       200,
		AutoCapture:              true,
	}
}

// OptionalKinds returns the opt-in capture kinds enabled by these settings,
// in a stable order.
func (s Settings) OptionalKinds() []CaptureKind {
	kinds := make([]CaptureKind, 0, 7)
	if s.CaptureScreenshotVisible {
		kinds = append(kinds, KindScreenshotVisible)
	}
	if s.CaptureScreenshotFull {
		kinds = append(kinds, KindScreenshotFull)
	}
	if s.CaptureMHTML {
		kinds = append(kinds, KindMHTML)
	}
	if s.CaptureHTML {
		kinds = append(kinds, KindHTML)
	}
	if s.CaptureText {
		kinds = append(kinds, KindText)
	}
	if s.CaptureMarkdown {
		kinds = append(kinds, KindMarkdown)
	}
	if s.CaptureReadable {
		kinds = append(kinds, KindReadable)
	}
	return kinds
}
