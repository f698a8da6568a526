package capture

import (
	"bytes"
	"context"
	"image/png"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/webcapsule/webcapsule/internal/common"
	"github.com/webcapsule/webcapsule/internal/models"
	"github.com/webcapsule/webcapsule/internal/ratequeue"
)

func newTestStitcher(t *testing.T, bridge AgentBridge, shooter models.Screenshotter) *FullPageStitcher {
	t.Helper()
	queue := ratequeue.NewActionQueue(ratequeue.ActionQueueConfig{MinDelay: time.Millisecond}, zerolog.Nop())
	return NewFullPageStitcher(bridge, queue, shooter, time.Millisecond, zerolog.Nop())
}

func TestFullPageStitcher_StitchesSlices(t *testing.T) {
	bridge := &fakeBridge{dims: stitchDimensions{Height: 400, Width: 100, ViewportHeight: 200}}
	shooter := &fakeScreenshotter{img: makePNG(t, 100, 200)}
	stitcher := newTestStitcher(t, bridge, shooter)

	payload, err := stitcher.Capture(context.Background(), "tab-1")
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(payload))
	require.NoError(t, err)
	assert.Equal(t, 100, img.Bounds().Dx())
	assert.Equal(t, 400, img.Bounds().Dy(), "two 200px viewports stitch into the full 400px page")
}

func TestFullPageStitcher_PartialLastSlice(t *testing.T) {
	// 500px page with 200px viewport: slices at 0, 200, 400; the last
	// viewport overlaps 100px of already-captured content.
	bridge := &fakeBridge{dims: stitchDimensions{Height: 500, Width: 100, ViewportHeight: 200}}
	shooter := &fakeScreenshotter{img: makePNG(t, 100, 200)}
	stitcher := newTestStitcher(t, bridge, shooter)

	payload, err := stitcher.Capture(context.Background(), "tab-1")
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(payload))
	require.NoError(t, err)
	assert.Equal(t, 500, img.Bounds().Dy())
}

func TestFullPageStitcher_ScreenshotFailurePropagates(t *testing.T) {
	bridge := &fakeBridge{dims: stitchDimensions{Height: 400, Width: 100, ViewportHeight: 200}}
	shooter := &fakeScreenshotter{err: common.ErrCaptureFailed}
	stitcher := newTestStitcher(t, bridge, shooter)

	_, err := stitcher.Capture(context.Background(), "tab-1")
	assert.ErrorIs(t, err, common.ErrCaptureFailed)
}

func TestFullPageStitcher_BadDimensions(t *testing.T) {
	bridge := &fakeBridge{dims: stitchDimensions{Height: 0, ViewportHeight: 0}}
	stitcher := newTestStitcher(t, bridge, &fakeScreenshotter{img: makePNG(t, 10, 10)})

	_, err := stitcher.Capture(context.Background(), "tab-1")
	assert.ErrorIs(t, err, common.ErrCaptureFailed)
}
