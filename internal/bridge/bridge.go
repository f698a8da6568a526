package bridge

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
	"github.com/webcapsule/webcapsule/internal/common"
	"github.com/webcapsule/webcapsule/internal/models"
)

// probeAction is the lightweight liveness probe the agent answers when it is
// resident and responsive.
const probeAction = "ping"

// probeResponse is the agent's acknowledgment to the liveness probe. The
// Injected flag lets the bridge distinguish "agent present" from "page
// answered something unexpected".
type probeResponse struct {
	Injected bool `json:"injected"`
}

// ContentScriptBridge guarantees the in-page agent is present and responsive
// before content-extraction requests are sent to it, with resilience to
// races at page-load time.
type ContentScriptBridge struct {
	config   BridgeConfig
	injector models.AgentInjector
	channel  models.AgentChannel
	logger   zerolog.Logger
}

// NewContentScriptBridge creates a new bridge over the given injection and
// messaging capabilities.
func NewContentScriptBridge(
	injector models.AgentInjector,
	channel models.AgentChannel,
	config BridgeConfig,
	logger zerolog.Logger,
) *ContentScriptBridge {
	config.applyDefaults()

	return &ContentScriptBridge{
		config:   config,
		injector: injector,
		channel:  channel,
		logger:   logger.With().Str("component", "ContentScriptBridge").Logger(),
	}
}

// EnsureAgentReady probes the page's agent and, if unresponsive, injects it
// and re-probes, up to MaxAttempts inject-settle-reprobe cycles with an
// increasing backoff before each. The result is definitive: true means the
// agent answered a probe, false means every attempt was exhausted.
func (b *ContentScriptBridge) EnsureAgentReady(ctx context.Context, handle models.PageHandle) bool {
	// Cheap path: the agent may already be resident from a previous capture.
	if b.probe(ctx, handle) {
		b.logger.Debug().Str("page", string(handle)).Msg("Agent already responsive")
		return true
	}

	for attempt := 1; attempt <= b.config.MaxAttempts; attempt++ {
		backoff := time.Duration(attempt) * b.config.BackoffUnit
		if !sleepCtx(ctx, backoff) {
			return false
		}

		if err := b.injector.Inject(ctx, handle); err != nil {
			b.logger.Warn().Err(err).
				Str("page", string(handle)).
				Int("attempt", attempt).
				Msg("Agent injection failed")
		}

		if !sleepCtx(ctx, b.config.SettleDelay) {
			return false
		}

		if b.probe(ctx, handle) {
			b.logger.Debug().
				Str("page", string(handle)).
				Int("attempt", attempt).
				Msg("Agent responsive after injection")
			return true
		}
	}

	b.logger.Error().
		Str("page", string(handle)).
		Int("attempts", b.config.MaxAttempts).
		Msg("Agent unreachable after all injection attempts")
	return false
}

// Request sends a single request/response message to the page's agent. A
// non-positive timeout falls back to the configured default. The returned
// error wraps common.ErrRequestTimeout when no response arrived in time and
// common.ErrChannelGone when the page or channel is gone.
func (b *ContentScriptBridge) Request(
	ctx context.Context,
	handle models.PageHandle,
	action string,
	payload any,
	timeout time.Duration,
) (json.RawMessage, error) {
	if timeout <= 0 {
		timeout = b.config.RequestTimeout
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	response, err := b.channel.Send(reqCtx, handle, action, payload)
	if err != nil {
		if reqCtx.Err() == context.DeadlineExceeded {
			return nil, common.WrapErrorf(common.ErrRequestTimeout, "agent request '%s' timed out after %s", action, timeout)
		}
		return nil, common.NewTransportError(action, "agent request failed", err)
	}
	return response, nil
}

// probe sends the liveness probe with the short probe timeout.
func (b *ContentScriptBridge) probe(ctx context.Context, handle models.PageHandle) bool {
	probeCtx, cancel := context.WithTimeout(ctx, b.config.ProbeTimeout)
	defer cancel()

	response, err := b.channel.Send(probeCtx, handle, probeAction, nil)
	if err != nil {
		return false
	}

	var ack probeResponse
	if err := json.Unmarshal(response, &ack); err != nil {
		return false
	}
	return ack.Injected
}

// sleepCtx sleeps for d unless ctx is cancelled first; it reports whether
// the full sleep completed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
