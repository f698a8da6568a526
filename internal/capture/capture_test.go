package capture

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/webcapsule/webcapsule/internal/common"
	"github.com/webcapsule/webcapsule/internal/models"
	"github.com/webcapsule/webcapsule/internal/ratequeue"
)

// fakeTabs resolves handles to URLs.
type fakeTabs struct {
	urls map[models.PageHandle]string
}

func (ft *fakeTabs) Exists(_ context.Context, handle models.PageHandle) bool {
	_, ok := ft.urls[handle]
	return ok
}

func (ft *fakeTabs) PageURL(_ context.Context, handle models.PageHandle) (string, error) {
	url, ok := ft.urls[handle]
	if !ok {
		return "", common.ErrPageNotFound
	}
	return url, nil
}

func (ft *fakeTabs) PageTitle(context.Context, models.PageHandle) (string, error) {
	return "Test Page", nil
}

// fakeBridge scripts agent readiness and request handling.
type fakeBridge struct {
	ready   bool
	content models.PageContent
	dims    stitchDimensions
}

func (fb *fakeBridge) EnsureAgentReady(context.Context, models.PageHandle) bool {
	return fb.ready
}

func (fb *fakeBridge) Request(_ context.Context, _ models.PageHandle, action string, _ any, _ time.Duration) (json.RawMessage, error) {
	switch action {
	case actionCollectContent:
		return json.Marshal(fb.content)
	case "getDimensions":
		return json.Marshal(fb.dims)
	case "scrollTo":
		return json.RawMessage(`{}`), nil
	}
	return nil, common.ErrChannelGone
}

type fakeScreenshotter struct {
	img []byte
	err error
}

func (fs *fakeScreenshotter) CaptureVisible(context.Context, models.PageHandle) ([]byte, error) {
	return fs.img, fs.err
}

type fakeSnapshotter struct {
	payload []byte
	err     error
}

func (fs *fakeSnapshotter) CaptureMHTML(context.Context, models.PageHandle) ([]byte, error) {
	return fs.payload, fs.err
}

type fakeStore struct {
	mu       sync.Mutex
	files    map[string][]byte
	failPath string
}

func newFakeStore() *fakeStore {
	return &fakeStore{files: make(map[string][]byte)}
}

func (fs *fakeStore) Write(_ context.Context, relPath string, payload []byte) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if fs.failPath != "" && relPath == fs.failPath {
		return common.ErrCaptureFailed
	}
	fs.files[relPath] = payload
	return nil
}

func (fs *fakeStore) paths() []string {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	paths := make([]string, 0, len(fs.files))
	for p := range fs.files {
		paths = append(paths, p)
	}
	return paths
}

type fakeNotifier struct {
	mu          sync.Mutex
	failures    int
	completions int
}

func (fn *fakeNotifier) NotifyFailure(context.Context, string, string) {
	fn.mu.Lock()
	defer fn.mu.Unlock()
	fn.failures++
}

func (fn *fakeNotifier) NotifyCompletion(context.Context, string, string) {
	fn.mu.Lock()
	defer fn.mu.Unlock()
	fn.completions++
}

func (fn *fakeNotifier) failureCount() int {
	fn.mu.Lock()
	defer fn.mu.Unlock()
	return fn.failures
}

type fakeSettings struct {
	settings models.Settings
}

func (fs *fakeSettings) Load() models.Settings { return fs.settings }

// makePNG renders a solid test image.
func makePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

const testHTML = `<html><head><title>Test Page</title></head><body><article><h1>Hi</h1><p>Some body text that is long enough to matter for extraction purposes in this test fixture.</p></article></body></html>`

func testContent() models.PageContent {
	return models.PageContent{
		URL:   "https://shop.example.com/a/b?x=1",
		Title: "Test Page",
		HTML:  testHTML,
		Meta:  map[string]string{"description": "fixture"},
		Scripts: []models.ScriptRef{
			{Inline: true, Source: `fetch("/api/data");`},
		},
		Network: []models.NetworkRequest{
			{URL: "https://shop.example.com/api/data", Method: "GET", ResourceType: "xhr"},
		},
	}
}

type orchestratorFixture struct {
	orchestrator *CaptureOrchestrator
	tabs         *fakeTabs
	bridge       *fakeBridge
	snapshots    *fakeSnapshotter
	store        *fakeStore
	notifier     *fakeNotifier
	settings     *fakeSettings
}

func newFixture(t *testing.T) *orchestratorFixture {
	t.Helper()

	settings := models.DefaultSettings()
	settings.CaptureScreenshotFull = false

	f := &orchestratorFixture{
		tabs:      &fakeTabs{urls: map[models.PageHandle]string{"tab-1": "https://shop.example.com/a/b?x=1"}},
		bridge:    &fakeBridge{ready: true, content: testContent(), dims: stitchDimensions{Height: 400, Width: 100, ViewportHeight: 200}},
		snapshots: &fakeSnapshotter{payload: []byte("mhtml-data")},
		store:     newFakeStore(),
		notifier:  &fakeNotifier{},
		settings:  &fakeSettings{settings: settings},
	}

	queue := ratequeue.NewActionQueue(ratequeue.ActionQueueConfig{MinDelay: time.Millisecond}, zerolog.Nop())
	config := DefaultCaptureConfig()
	config.StitchScrollSettle = time.Millisecond

	f.orchestrator = NewCaptureOrchestrator(
		config,
		f.tabs,
		f.bridge,
		queue,
		&fakeScreenshotter{img: makePNG(t, 100, 200)},
		f.snapshots,
		f.store,
		f.notifier,
		f.settings,
		NewCachedScriptFetcher(nil, zerolog.Nop()),
		zerolog.Nop(),
	)
	return f
}

func TestCapture_Success(t *testing.T) {
	f := newFixture(t)

	bundle, err := f.orchestrator.Capture(context.Background(), "tab-1")
	require.NoError(t, err)
	require.NotNil(t, bundle)

	assert.Equal(t, "webData/example.com/shop/a/b", bundle.FolderPath)
	assert.Contains(t, bundle.Entries, "metadata.json")
	assert.Contains(t, bundle.Entries, "scripts.json")
	assert.Contains(t, bundle.Entries, "page.html")
	assert.Contains(t, bundle.Entries, "page.txt")
	assert.Contains(t, bundle.Entries, "page.md")
	assert.Contains(t, bundle.Entries, "readable.html")
	assert.Contains(t, bundle.Entries, "page.mhtml")
	assert.Contains(t, bundle.Entries, "screenshot.png")

	assert.Equal(t, "Test Page", bundle.Record.Title)
	assert.Contains(t, bundle.Record.Formats, models.KindMetadata)
	assert.Contains(t, bundle.Record.Formats, models.KindScriptData)

	// Every entry reached the store under the bundle folder.
	for _, path := range f.store.paths() {
		if path == "captures.json" {
			continue
		}
		assert.Contains(t, path, "webData/example.com/shop/a/b/")
	}
}

func TestCapture_RestrictedPageIsSilentSkip(t *testing.T) {
	f := newFixture(t)
	f.tabs.urls["tab-1"] = "chrome://settings"

	bundle, err := f.orchestrator.Capture(context.Background(), "tab-1")
	assert.Nil(t, bundle)
	assert.ErrorIs(t, err, common.ErrRestrictedPage)
	assert.Equal(t, 0, f.notifier.failureCount(), "restricted pages are an expected skip, not a user-facing failure")
}

func TestCapture_AgentUnreachableNotifies(t *testing.T) {
	f := newFixture(t)
	f.bridge.ready = false

	bundle, err := f.orchestrator.Capture(context.Background(), "tab-1")
	assert.Nil(t, bundle)
	assert.ErrorIs(t, err, common.ErrAgentUnreachable)
	assert.Equal(t, 1, f.notifier.failureCount(), "agent-unreachable is the single user-visible failure path")
}

func TestCapture_UnknownHandle(t *testing.T) {
	f := newFixture(t)

	_, err := f.orchestrator.Capture(context.Background(), "ghost")
	assert.ErrorIs(t, err, common.ErrPageNotFound)
}

func TestCapture_FailingKindIsIsolated(t *testing.T) {
	f := newFixture(t)
	f.snapshots.err = common.ErrCaptureFailed

	bundle, err := f.orchestrator.Capture(context.Background(), "tab-1")
	require.NoError(t, err, "one failing kind must not fail the capture")
	require.NotNil(t, bundle)

	assert.NotContains(t, bundle.Entries, "page.mhtml")
	assert.NotContains(t, bundle.Record.Formats, models.KindMHTML, "the record lists only succeeded kinds")

	assert.Contains(t, bundle.Entries, "metadata.json")
	assert.Contains(t, bundle.Entries, "scripts.json")
	assert.Contains(t, bundle.Entries, "page.html")
	assert.Contains(t, bundle.Entries, "page.txt")
	assert.Contains(t, bundle.Entries, "screenshot.png")
}

func TestCapture_WriteFailureDoesNotBlockSiblings(t *testing.T) {
	f := newFixture(t)
	f.store.failPath = "webData/example.com/shop/a/b/page.html"

	bundle, err := f.orchestrator.Capture(context.Background(), "tab-1")
	require.NoError(t, err)
	require.NotNil(t, bundle)

	paths := f.store.paths()
	assert.NotContains(t, paths, "webData/example.com/shop/a/b/page.html")
	assert.Contains(t, paths, "webData/example.com/shop/a/b/metadata.json")
}

func TestCapture_RecordAppendedToRecentLog(t *testing.T) {
	f := newFixture(t)

	_, err := f.orchestrator.Capture(context.Background(), "tab-1")
	require.NoError(t, err)

	records := f.orchestrator.RecentCaptures()
	require.Len(t, records, 1)
	assert.Equal(t, "https://shop.example.com/a/b?x=1", records[0].URL)

	_, parseErr := time.Parse(time.RFC3339, records[0].Timestamp)
	assert.NoError(t, parseErr, "record timestamp must be ISO-8601")
}

func TestCapture_MandatoryKindsOnly(t *testing.T) {
	f := newFixture(t)
	f.settings.settings = models.Settings{MaxNetworkRequests: 10}

	bundle, err := f.orchestrator.Capture(context.Background(), "tab-1")
	require.NoError(t, err)

	assert.Len(t, bundle.Entries, 2, "with every optional kind disabled only metadata and script data are captured")
	assert.Contains(t, bundle.Entries, "metadata.json")
	assert.Contains(t, bundle.Entries, "scripts.json")
}
