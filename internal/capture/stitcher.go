package capture

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/draw"
	"image/png"
	"time"

	"github.com/rs/zerolog"
	"github.com/webcapsule/webcapsule/internal/common"
	"github.com/webcapsule/webcapsule/internal/models"
	"github.com/webcapsule/webcapsule/internal/ratequeue"
)

// stitchDimensions is the agent's answer to a getDimensions request, with
// the viewport height needed to plan the capture slices.
type stitchDimensions struct {
	Height         int `json:"height"`
	Width          int `json:"width"`
	ViewportHeight int `json:"viewportHeight"`
}

// FullPageStitcher produces a true full-page screenshot by scrolling the
// page viewport by viewport, capturing each slice through the shared
// rate-limited queue, and stitching the slices vertically. The visible-only
// capture capability is the only screenshot primitive the host offers.
type FullPageStitcher struct {
	bridge       AgentBridge
	queue        *ratequeue.ActionQueue
	screenshots  models.Screenshotter
	scrollSettle time.Duration
	logger       zerolog.Logger
}

// NewFullPageStitcher creates a stitcher. scrollSettle is the wait between
// scrolling to a slice and capturing it, giving fixed-position elements and
// lazy renders time to paint.
func NewFullPageStitcher(
	bridge AgentBridge,
	queue *ratequeue.ActionQueue,
	screenshots models.Screenshotter,
	scrollSettle time.Duration,
	logger zerolog.Logger,
) *FullPageStitcher {
	if scrollSettle <= 0 {
		scrollSettle = 250 * time.Millisecond
	}
	return &FullPageStitcher{
		bridge:       bridge,
		queue:        queue,
		screenshots:  screenshots,
		scrollSettle: scrollSettle,
		logger:       logger.With().Str("component", "FullPageStitcher").Logger(),
	}
}

// Capture renders the complete page as one PNG.
func (s *FullPageStitcher) Capture(ctx context.Context, handle models.PageHandle) ([]byte, error) {
	dims, err := s.probeDimensions(ctx, handle)
	if err != nil {
		return nil, err
	}

	slices, err := s.captureSlices(ctx, handle, dims)
	if err != nil {
		return nil, err
	}

	return s.stitch(slices, dims)
}

func (s *FullPageStitcher) probeDimensions(ctx context.Context, handle models.PageHandle) (stitchDimensions, error) {
	response, err := s.bridge.Request(ctx, handle, "getDimensions", nil, 5*time.Second)
	if err != nil {
		return stitchDimensions{}, common.WrapError(err, "full-page capture: dimension probe failed")
	}

	var dims stitchDimensions
	if err := json.Unmarshal(response, &dims); err != nil {
		return stitchDimensions{}, common.WrapError(err, "full-page capture: malformed dimensions")
	}
	if dims.Height <= 0 || dims.ViewportHeight <= 0 {
		return stitchDimensions{}, common.WrapErrorf(common.ErrCaptureFailed, "full-page capture: unusable dimensions %+v", dims)
	}
	return dims, nil
}

// slice is one captured viewport and the document offset it was taken at.
type slice struct {
	img image.Image
	y   int
}

func (s *FullPageStitcher) captureSlices(ctx context.Context, handle models.PageHandle, dims stitchDimensions) ([]slice, error) {
	var slices []slice

	for y := 0; y < dims.Height; y += dims.ViewportHeight {
		if _, err := s.bridge.Request(ctx, handle, "scrollTo", map[string]int{"y": y}, time.Second); err != nil {
			return nil, common.WrapErrorf(err, "full-page capture: scroll to %d failed", y)
		}

		timer := time.NewTimer(s.scrollSettle)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		}

		payload, err := s.queue.Enqueue(ctx, func(ctx context.Context) ([]byte, error) {
			return s.screenshots.CaptureVisible(ctx, handle)
		})
		if err != nil {
			return nil, common.WrapErrorf(err, "full-page capture: slice at %d failed", y)
		}

		img, err := png.Decode(bytes.NewReader(payload))
		if err != nil {
			return nil, common.WrapError(err, "full-page capture: slice decode failed")
		}
		slices = append(slices, slice{img: img, y: y})
	}

	s.logger.Debug().
		Str("page", string(handle)).
		Int("slices", len(slices)).
		Int("page_height", dims.Height).
		Msg("Full-page slices captured")
	return slices, nil
}

// stitch composes the slices top to bottom. The scale factor between CSS
// pixels and image pixels is derived from the first slice; the final slice
// is bottom-anchored because scrolling clamps at the document end, so only
// its unseen lower portion is copied.
func (s *FullPageStitcher) stitch(slices []slice, dims stitchDimensions) ([]byte, error) {
	if len(slices) == 0 {
		return nil, common.WrapError(common.ErrCaptureFailed, "full-page capture: no slices")
	}

	first := slices[0].img.Bounds()
	scale := float64(first.Dy()) / float64(dims.ViewportHeight)
	canvasW := first.Dx()
	canvasH := int(float64(dims.Height) * scale)

	canvas := image.NewRGBA(image.Rect(0, 0, canvasW, canvasH))

	for i, sl := range slices {
		bounds := sl.img.Bounds()
		destY := int(float64(sl.y) * scale)

		srcPt := bounds.Min
		sliceH := bounds.Dy()
		if i == len(slices)-1 && sl.y+dims.ViewportHeight > dims.Height {
			visible := int(float64(dims.Height-sl.y) * scale)
			if visible < sliceH {
				srcPt = image.Pt(bounds.Min.X, bounds.Max.Y-visible)
				sliceH = visible
			}
		}

		destRect := image.Rect(0, destY, canvasW, destY+sliceH)
		draw.Draw(canvas, destRect, sl.img, srcPt, draw.Src)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return nil, common.WrapError(err, "full-page capture: stitch encode failed")
	}
	return buf.Bytes(), nil
}
