package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"github.com/webcapsule/webcapsule/internal/common"
)

const defaultNotifyTimeout = 10 * time.Second

// WebhookNotifier posts capture outcome notifications to a webhook as JSON.
// With no webhook configured it degrades to log-only, so the capture pipeline
// never depends on a reachable endpoint.
type WebhookNotifier struct {
	webhookURL      string
	notifyOnFailure bool
	notifyOnSuccess bool
	httpClient      *http.Client
	logger          zerolog.Logger
}

// notificationPayload is the wire format posted to the webhook.
type notificationPayload struct {
	Event   string `json:"event"`
	URL     string `json:"url"`
	Message string `json:"message"`
	SentAt  string `json:"sent_at"`
}

// NewWebhookNotifier creates a notifier for the given webhook URL. An empty
// URL disables posting.
func NewWebhookNotifier(webhookURL string, notifyOnFailure, notifyOnSuccess bool, httpClient *http.Client, logger zerolog.Logger) (*WebhookNotifier, error) {
	moduleLogger := logger.With().Str("component", "WebhookNotifier").Logger()

	if webhookURL != "" {
		if _, err := url.ParseRequestURI(webhookURL); err != nil {
			return nil, common.WrapError(err, "invalid webhook URL")
		}
	}

	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultNotifyTimeout}
	}

	return &WebhookNotifier{
		webhookURL:      webhookURL,
		notifyOnFailure: notifyOnFailure,
		notifyOnSuccess: notifyOnSuccess,
		httpClient:      httpClient,
		logger:          moduleLogger,
	}, nil
}

// NotifyFailure reports a failed capture for the given page URL.
func (wn *WebhookNotifier) NotifyFailure(ctx context.Context, pageURL string, message string) {
	wn.logger.Warn().Str("url", pageURL).Str("reason", message).Msg("Capture failed")
	if !wn.notifyOnFailure {
		return
	}
	wn.post(ctx, notificationPayload{
		Event:   "capture_failed",
		URL:     pageURL,
		Message: message,
		SentAt:  time.Now().UTC().Format(time.RFC3339),
	})
}

// NotifyCompletion reports a finished capture and where it was stored.
func (wn *WebhookNotifier) NotifyCompletion(ctx context.Context, pageURL string, folderPath string) {
	wn.logger.Info().Str("url", pageURL).Str("folder", folderPath).Msg("Capture completed")
	if !wn.notifyOnSuccess {
		return
	}
	wn.post(ctx, notificationPayload{
		Event:   "capture_completed",
		URL:     pageURL,
		Message: folderPath,
		SentAt:  time.Now().UTC().Format(time.RFC3339),
	})
}

// post delivers one payload. Delivery failures are logged, never returned:
// notifications are best-effort.
func (wn *WebhookNotifier) post(ctx context.Context, payload notificationPayload) {
	if wn.webhookURL == "" {
		return
	}

	body, err := json.Marshal(payload)
	if err != nil {
		wn.logger.Error().Err(err).Msg("Failed to marshal notification payload")
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, wn.webhookURL, bytes.NewReader(body))
	if err != nil {
		wn.logger.Error().Err(err).Msg("Failed to create notification request")
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := wn.httpClient.Do(req)
	if err != nil {
		wn.logger.Warn().Err(err).Str("webhook_url", wn.webhookURL).Msg("Failed to deliver notification")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		wn.logger.Warn().
			Int("status", resp.StatusCode).
			Str("event", payload.Event).
			Msg("Webhook rejected notification")
	}
}
