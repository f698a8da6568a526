package stability

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
	"github.com/webcapsule/webcapsule/internal/common"
	"github.com/webcapsule/webcapsule/internal/models"
)

// Agent actions used by the render sweep.
const (
	actionGetDimensions = "getDimensions"
	actionScrollTo      = "scrollTo"
)

// AgentRequester is the request/response surface of the content script
// bridge the monitor depends on.
type AgentRequester interface {
	Request(ctx context.Context, handle models.PageHandle, action string, payload any, timeout time.Duration) (json.RawMessage, error)
}

// dimensionsResponse is the agent's answer to a getDimensions request.
type dimensionsResponse struct {
	Height int `json:"height"`
	Width  int `json:"width"`
}

// scrollRequest asks the agent to scroll the page to a vertical offset.
type scrollRequest struct {
	Y int `json:"y"`
}

// PageStabilityMonitor tracks per-page mutation state and decides when a
// page has stopped changing significantly, by scroll-driven rendering and
// timeout-based settling. A fixed scroll-and-wait heuristic stands in for
// true idle detection: DOM mutation quiescence is not reliably observable
// from outside the page process.
type PageStabilityMonitor struct {
	config    StabilityConfig
	registry  *SessionRegistry
	requester AgentRequester
	channel   models.AgentChannel
	logger    zerolog.Logger
}

// NewPageStabilityMonitor creates a monitor over the given session registry
// and agent transport.
func NewPageStabilityMonitor(
	registry *SessionRegistry,
	requester AgentRequester,
	channel models.AgentChannel,
	config StabilityConfig,
	logger zerolog.Logger,
) *PageStabilityMonitor {
	config.applyDefaults()

	return &PageStabilityMonitor{
		config:    config,
		registry:  registry,
		requester: requester,
		channel:   channel,
		logger:    logger.With().Str("component", "PageStabilityMonitor").Logger(),
	}
}

// StartMonitoring creates a session for the page and subscribes to its
// mutation/scroll events. It is a no-op if a session already exists.
func (m *PageStabilityMonitor) StartMonitoring(handle models.PageHandle, url string) {
	_, created := m.registry.Create(handle, url)
	if !created {
		m.logger.Debug().Str("page", string(handle)).Msg("Session already monitored")
		return
	}

	m.channel.Subscribe(handle, m.onPageEvent)
	m.logger.Info().Str("page", string(handle)).Str("url", url).Msg("Monitoring started")
}

// StopMonitoring removes the page's session and event subscription, for use
// when the page is closed or navigation invalidates the session.
func (m *PageStabilityMonitor) StopMonitoring(handle models.PageHandle) {
	m.channel.Unsubscribe(handle)
	m.registry.Remove(handle)
	m.logger.Info().Str("page", string(handle)).Msg("Monitoring stopped")
}

// onPageEvent receives mutation/scroll notifications from the agent.
// Mutations flag a pending significant change; they never trigger a capture
// themselves; that decision belongs to the orchestrator.
func (m *PageStabilityMonitor) onPageEvent(event models.PageEvent) {
	switch event.Type {
	case models.EventMutation:
		m.registry.RecordMutation(event.Handle, event.At)
		m.logger.Debug().Str("page", string(event.Handle)).Msg("Mutation recorded")
	case models.EventScroll:
		m.logger.Debug().Str("page", string(event.Handle)).Msg("Scroll event observed")
	}
}

// RenderPage performs a scroll sweep to force lazy-loaded content to
// materialize, waits out the settle window, and reports whether a
// significant change was observed since the last capture. It is idempotent
// while a sweep is already in flight: the second caller gets false
// immediately, since the sweep in progress will observe the same eventual
// state.
func (m *PageStabilityMonitor) RenderPage(ctx context.Context, handle models.PageHandle) (bool, error) {
	session := m.registry.Get(handle)
	if session == nil {
		return false, common.WrapErrorf(common.ErrPageNotFound, "no session for page '%s'", handle)
	}

	if !m.registry.TryBeginRender(handle) {
		m.logger.Debug().Str("page", string(handle)).Msg("Render sweep already in progress, skipping")
		return false, nil
	}
	defer m.registry.EndRender(handle)

	height := m.probeHeight(ctx, handle)
	m.scrollSweep(ctx, handle, height)

	// Settle window: no further scrolling, allowing final asynchronous
	// renders (images, embeds) to complete.
	if !sleepCtx(ctx, m.config.SettleTimeout) {
		return false, ctx.Err()
	}

	significant := m.registry.ConsumePendingChange(handle, time.Now())
	m.logger.Info().
		Str("page", string(handle)).
		Int("height", height).
		Bool("significant_change", significant).
		Msg("Render sweep finished")
	return significant, nil
}

// probeHeight asks the agent for the page height, falling back to a
// conservative default when the probe fails or times out.
func (m *PageStabilityMonitor) probeHeight(ctx context.Context, handle models.PageHandle) int {
	response, err := m.requester.Request(ctx, handle, actionGetDimensions, nil, m.config.DimensionTimeout)
	if err != nil {
		m.logger.Warn().Err(err).
			Str("page", string(handle)).
			Int("fallback_height", m.config.FallbackHeight).
			Msg("Page dimension probe failed, using fallback height")
		return m.config.FallbackHeight
	}

	var dims dimensionsResponse
	if err := json.Unmarshal(response, &dims); err != nil || dims.Height <= 0 {
		return m.config.FallbackHeight
	}
	return dims.Height
}

// scrollSweep scrolls from 0 to height in fixed steps at a fixed cadence.
// A failed scroll step is logged and skipped: partial scrolling still
// improves content materialization, so the sweep continues rather than
// aborting.
func (m *PageStabilityMonitor) scrollSweep(ctx context.Context, handle models.PageHandle, height int) {
	for y := 0; y <= height; y += m.config.ScrollStep {
		if ctx.Err() != nil {
			return
		}

		_, err := m.requester.Request(ctx, handle, actionScrollTo, scrollRequest{Y: y}, m.config.ScrollRequestTimeout)
		if err != nil {
			m.logger.Warn().Err(err).
				Str("page", string(handle)).
				Int("offset", y).
				Msg("Scroll step failed, continuing sweep")
		}

		if !sleepCtx(ctx, m.config.ScrollInterval) {
			return
		}
	}
}

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
