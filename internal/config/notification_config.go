package config

// NotificationConfig defines configuration for capture notifications
type NotificationConfig struct {
	WebhookURL      string `json:"webhook_url,omitempty" yaml:"webhook_url,omitempty" validate:"omitempty,url"`
	NotifyOnFailure bool   `json:"notify_on_failure" yaml:"notify_on_failure"`
	NotifyOnSuccess bool   `json:"notify_on_success" yaml:"notify_on_success"`
	TimeoutSecs     int    `json:"timeout_secs,omitempty" yaml:"timeout_secs,omitempty" validate:"omitempty,min=1"`
}

// NewDefaultNotificationConfig creates default notification configuration
func NewDefaultNotificationConfig() NotificationConfig {
	return NotificationConfig{
		WebhookURL:      "",
		NotifyOnFailure: true,
		NotifyOnSuccess: false,
		TimeoutSecs:     10,
	}
}
