package browser

import (
	"context"

	"github.com/go-rod/rod/lib/proto"
	"github.com/webcapsule/webcapsule/internal/common"
	"github.com/webcapsule/webcapsule/internal/models"
)

// CaptureVisible takes a PNG screenshot of the current viewport
func (m *Manager) CaptureVisible(ctx context.Context, handle models.PageHandle) ([]byte, error) {
	page, ok := m.tabs.get(handle)
	if !ok {
		return nil, common.ErrPageNotFound
	}

	payload, err := page.Context(ctx).Screenshot(false, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return nil, common.WrapError(err, "failed to capture screenshot")
	}
	return payload, nil
}

// CaptureMHTML captures the page as a single MHTML document
func (m *Manager) CaptureMHTML(ctx context.Context, handle models.PageHandle) ([]byte, error) {
	page, ok := m.tabs.get(handle)
	if !ok {
		return nil, common.ErrPageNotFound
	}

	result, err := proto.PageCaptureSnapshot{
		Format: proto.PageCaptureSnapshotFormatMhtml,
	}.Call(page.Context(ctx))
	if err != nil {
		return nil, common.WrapError(err, "failed to capture MHTML snapshot")
	}
	return []byte(result.Data), nil
}
