package stability

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/webcapsule/webcapsule/internal/common"
	"github.com/webcapsule/webcapsule/internal/models"
)

// fakeAgent records scroll requests and serves page dimensions.
type fakeAgent struct {
	mu          sync.Mutex
	height      int
	dimsErr     error
	scrollErr   error
	scrollCalls []int
}

func (fa *fakeAgent) Request(_ context.Context, _ models.PageHandle, action string, payload any, _ time.Duration) (json.RawMessage, error) {
	fa.mu.Lock()
	defer fa.mu.Unlock()

	switch action {
	case actionGetDimensions:
		if fa.dimsErr != nil {
			return nil, fa.dimsErr
		}
		return json.Marshal(dimensionsResponse{Height: fa.height, Width: 1280})
	case actionScrollTo:
		req := payload.(scrollRequest)
		fa.scrollCalls = append(fa.scrollCalls, req.Y)
		if fa.scrollErr != nil {
			return nil, fa.scrollErr
		}
		return json.RawMessage(`{}`), nil
	}
	return nil, common.ErrChannelGone
}

func (fa *fakeAgent) scrollCount() int {
	fa.mu.Lock()
	defer fa.mu.Unlock()
	return len(fa.scrollCalls)
}

// fakeEventChannel captures subscriptions so tests can push events.
type fakeEventChannel struct {
	mu       sync.Mutex
	handlers map[models.PageHandle]func(models.PageEvent)
}

func newFakeEventChannel() *fakeEventChannel {
	return &fakeEventChannel{handlers: make(map[models.PageHandle]func(models.PageEvent))}
}

func (fc *fakeEventChannel) Send(context.Context, models.PageHandle, string, any) (json.RawMessage, error) {
	return nil, common.ErrChannelGone
}

func (fc *fakeEventChannel) Subscribe(handle models.PageHandle, fn func(models.PageEvent)) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	fc.handlers[handle] = fn
}

func (fc *fakeEventChannel) Unsubscribe(handle models.PageHandle) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	delete(fc.handlers, handle)
}

func (fc *fakeEventChannel) emit(event models.PageEvent) {
	fc.mu.Lock()
	fn := fc.handlers[event.Handle]
	fc.mu.Unlock()
	if fn != nil {
		fn(event)
	}
}

func fastStabilityConfig() StabilityConfig {
	return StabilityConfig{
		DimensionTimeout:     50 * time.Millisecond,
		FallbackHeight:       400,
		ScrollStep:           200,
		ScrollInterval:       time.Millisecond,
		SettleTimeout:        10 * time.Millisecond,
		ScrollRequestTimeout: 50 * time.Millisecond,
	}
}

func newTestMonitor(agent *fakeAgent, channel *fakeEventChannel) (*PageStabilityMonitor, *SessionRegistry) {
	registry := NewSessionRegistry()
	monitor := NewPageStabilityMonitor(registry, agent, channel, fastStabilityConfig(), zerolog.Nop())
	return monitor, registry
}

func TestStartMonitoring_NoOpForExistingSession(t *testing.T) {
	channel := newFakeEventChannel()
	monitor, registry := newTestMonitor(&fakeAgent{height: 400}, channel)

	monitor.StartMonitoring("tab-1", "https://example.com")
	monitor.StartMonitoring("tab-1", "https://example.com/other")

	assert.Equal(t, 1, registry.Len())
	assert.Equal(t, "https://example.com", registry.Get("tab-1").URL, "second StartMonitoring must not replace the session")
}

func TestRenderPage_SignificantChangeAfterMutation(t *testing.T) {
	agent := &fakeAgent{height: 400}
	channel := newFakeEventChannel()
	monitor, registry := newTestMonitor(agent, channel)

	monitor.StartMonitoring("tab-1", "https://example.com")
	channel.emit(models.PageEvent{Handle: "tab-1", Type: models.EventMutation, At: time.Now()})

	significant, err := monitor.RenderPage(context.Background(), "tab-1")
	require.NoError(t, err)
	assert.True(t, significant)
	assert.Greater(t, agent.scrollCount(), 0, "sweep must scroll the page")
	assert.False(t, registry.Get("tab-1").LastCaptureAt.IsZero())
	assert.False(t, registry.Get("tab-1").HasPendingChange, "pending change is consumed by the check")
}

func TestRenderPage_NoMutationMeansNoChange(t *testing.T) {
	agent := &fakeAgent{height: 400}
	channel := newFakeEventChannel()
	monitor, _ := newTestMonitor(agent, channel)

	monitor.StartMonitoring("tab-1", "https://example.com")

	significant, err := monitor.RenderPage(context.Background(), "tab-1")
	require.NoError(t, err)
	assert.False(t, significant, "no mutation during the sweep means no significant change")
	assert.Greater(t, agent.scrollCount(), 0, "scrolling still happened")
}

func TestRenderPage_ConcurrentCallReturnsFalse(t *testing.T) {
	agent := &fakeAgent{height: 4000}
	channel := newFakeEventChannel()
	monitor, _ := newTestMonitor(agent, channel)
	monitor.config.SettleTimeout = 100 * time.Millisecond

	monitor.StartMonitoring("tab-1", "https://example.com")
	channel.emit(models.PageEvent{Handle: "tab-1", Type: models.EventMutation, At: time.Now()})

	firstDone := make(chan bool, 1)
	go func() {
		significant, _ := monitor.RenderPage(context.Background(), "tab-1")
		firstDone <- significant
	}()

	// Give the first sweep time to acquire the rendering flag.
	time.Sleep(10 * time.Millisecond)

	before := agent.scrollCount()
	second, err := monitor.RenderPage(context.Background(), "tab-1")
	require.NoError(t, err)
	assert.False(t, second, "second concurrent call must return false immediately")
	assert.Equal(t, before, agent.scrollCount(), "second call must not start another sweep")

	assert.True(t, <-firstDone, "first sweep still observes the mutation")
}

func TestRenderPage_UnknownSession(t *testing.T) {
	monitor, _ := newTestMonitor(&fakeAgent{height: 400}, newFakeEventChannel())

	_, err := monitor.RenderPage(context.Background(), "ghost")
	assert.ErrorIs(t, err, common.ErrPageNotFound)
}

func TestRenderPage_DimensionProbeFallback(t *testing.T) {
	agent := &fakeAgent{dimsErr: common.ErrRequestTimeout}
	channel := newFakeEventChannel()
	monitor, _ := newTestMonitor(agent, channel)

	monitor.StartMonitoring("tab-1", "https://example.com")

	_, err := monitor.RenderPage(context.Background(), "tab-1")
	require.NoError(t, err)

	// Fallback height 400 at step 200 gives offsets 0, 200, 400.
	assert.Equal(t, 3, agent.scrollCount())
}

func TestRenderPage_ScrollFailuresAreSkipped(t *testing.T) {
	agent := &fakeAgent{height: 400, scrollErr: common.ErrChannelGone}
	channel := newFakeEventChannel()
	monitor, _ := newTestMonitor(agent, channel)

	monitor.StartMonitoring("tab-1", "https://example.com")
	channel.emit(models.PageEvent{Handle: "tab-1", Type: models.EventMutation, At: time.Now()})

	significant, err := monitor.RenderPage(context.Background(), "tab-1")
	require.NoError(t, err)
	assert.True(t, significant, "failed scroll steps must not abort the sweep")
	assert.Equal(t, 3, agent.scrollCount(), "every step is still attempted")
}

func TestStopMonitoring_RemovesSessionAndSubscription(t *testing.T) {
	channel := newFakeEventChannel()
	monitor, registry := newTestMonitor(&fakeAgent{height: 400}, channel)

	monitor.StartMonitoring("tab-1", "https://example.com")
	monitor.StopMonitoring("tab-1")

	assert.Equal(t, 0, registry.Len())
	channel.emit(models.PageEvent{Handle: "tab-1", Type: models.EventMutation, At: time.Now()})
	assert.Nil(t, registry.Get("tab-1"))
}
