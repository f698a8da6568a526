package capture

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/webcapsule/webcapsule/internal/bridge"
	"github.com/webcapsule/webcapsule/internal/common"
	"github.com/webcapsule/webcapsule/internal/models"
	"github.com/webcapsule/webcapsule/internal/ratequeue"
	"github.com/webcapsule/webcapsule/internal/stability"
)

// e2eTransport is a scripted agent transport backing both the bridge and
// the monitor's event subscription.
type e2eTransport struct {
	mu       sync.Mutex
	handlers map[models.PageHandle]func(models.PageEvent)
	content  models.PageContent
}

func (tr *e2eTransport) Send(_ context.Context, _ models.PageHandle, action string, _ any) (json.RawMessage, error) {
	switch action {
	case "ping":
		return json.RawMessage(`{"injected":true}`), nil
	case "getDimensions":
		return json.RawMessage(`{"height":400,"width":100,"viewportHeight":200}`), nil
	case "scrollTo":
		return json.RawMessage(`{}`), nil
	case actionCollectContent:
		return json.Marshal(tr.content)
	}
	return nil, common.ErrChannelGone
}

func (tr *e2eTransport) Subscribe(handle models.PageHandle, fn func(models.PageEvent)) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.handlers[handle] = fn
}

func (tr *e2eTransport) Unsubscribe(handle models.PageHandle) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	delete(tr.handlers, handle)
}

func (tr *e2eTransport) emitMutation(handle models.PageHandle) {
	tr.mu.Lock()
	fn := tr.handlers[handle]
	tr.mu.Unlock()
	if fn != nil {
		fn(models.PageEvent{Handle: handle, Type: models.EventMutation, At: time.Now()})
	}
}

type nopInjector struct{}

func (nopInjector) Inject(context.Context, models.PageHandle) error { return nil }

func TestEndToEnd_MutationDrivenCapture(t *testing.T) {
	transport := &e2eTransport{
		handlers: make(map[models.PageHandle]func(models.PageEvent)),
		content:  testContent(),
	}

	scriptBridge := bridge.NewContentScriptBridge(nopInjector{}, transport, bridge.BridgeConfig{
		ProbeTimeout:   50 * time.Millisecond,
		SettleDelay:    time.Millisecond,
		BackoffUnit:    time.Millisecond,
		MaxAttempts:    3,
		RequestTimeout: 100 * time.Millisecond,
	}, zerolog.Nop())

	registry := stability.NewSessionRegistry()
	monitor := stability.NewPageStabilityMonitor(registry, scriptBridge, transport, stability.StabilityConfig{
		DimensionTimeout:     50 * time.Millisecond,
		FallbackHeight:       400,
		ScrollStep:           200,
		ScrollInterval:       time.Millisecond,
		SettleTimeout:        5 * time.Millisecond,
		ScrollRequestTimeout: 50 * time.Millisecond,
	}, zerolog.Nop())

	settings := models.DefaultSettings()
	settings.CaptureScreenshotVisible = false
	settings.CaptureMHTML = false

	store := newFakeStore()
	queue := ratequeue.NewActionQueue(ratequeue.ActionQueueConfig{MinDelay: time.Millisecond}, zerolog.Nop())
	config := DefaultCaptureConfig()
	config.StitchScrollSettle = time.Millisecond

	orchestrator := NewCaptureOrchestrator(
		config,
		&fakeTabs{urls: map[models.PageHandle]string{"tab-1": "https://shop.example.com/a/b?x=1"}},
		scriptBridge,
		queue,
		&fakeScreenshotter{img: makePNG(t, 100, 200)},
		&fakeSnapshotter{payload: []byte("mhtml")},
		store,
		&fakeNotifier{},
		&fakeSettings{settings: settings},
		NewCachedScriptFetcher(nil, zerolog.Nop()),
		zerolog.Nop(),
	)

	// Monitoring starts, one mutation arrives, the page is rendered.
	monitor.StartMonitoring("tab-1", "https://shop.example.com/a/b?x=1")
	transport.emitMutation("tab-1")

	significant, err := monitor.RenderPage(context.Background(), "tab-1")
	require.NoError(t, err)
	require.True(t, significant, "a mutation before the sweep means significant change")

	bundle, err := orchestrator.Capture(context.Background(), "tab-1")
	require.NoError(t, err)
	require.NotNil(t, bundle)
	assert.Contains(t, bundle.Entries, "metadata.json")
	assert.Contains(t, store.paths(), bundle.FolderPath+"/metadata.json")

	// A second immediate render with no new mutation reports no change, so
	// the caller performs no second capture.
	significant, err = monitor.RenderPage(context.Background(), "tab-1")
	require.NoError(t, err)
	assert.False(t, significant, "no new mutation means no significant change")
}
