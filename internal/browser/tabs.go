package browser

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/webcapsule/webcapsule/internal/common"
	"github.com/webcapsule/webcapsule/internal/models"
)

// tabRegistry maps opaque page handles onto live rod pages.
type tabRegistry struct {
	mu    sync.RWMutex
	pages map[models.PageHandle]*rod.Page
	next  int
}

func newTabRegistry() *tabRegistry {
	return &tabRegistry{pages: make(map[models.PageHandle]*rod.Page)}
}

func (tr *tabRegistry) add(page *rod.Page) models.PageHandle {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.next++
	handle := models.PageHandle(fmt.Sprintf("tab-%d", tr.next))
	tr.pages[handle] = page
	return handle
}

func (tr *tabRegistry) get(handle models.PageHandle) (*rod.Page, bool) {
	tr.mu.RLock()
	defer tr.mu.RUnlock()
	page, ok := tr.pages[handle]
	return page, ok
}

func (tr *tabRegistry) remove(handle models.PageHandle) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	delete(tr.pages, handle)
}

func (tr *tabRegistry) handles() []models.PageHandle {
	tr.mu.RLock()
	defer tr.mu.RUnlock()
	handles := make([]models.PageHandle, 0, len(tr.pages))
	for handle := range tr.pages {
		handles = append(handles, handle)
	}
	return handles
}

// Exists reports whether the handle refers to an open page
func (m *Manager) Exists(_ context.Context, handle models.PageHandle) bool {
	_, ok := m.tabs.get(handle)
	return ok
}

// PageURL returns the page's current URL
func (m *Manager) PageURL(ctx context.Context, handle models.PageHandle) (string, error) {
	info, err := m.pageInfo(ctx, handle)
	if err != nil {
		return "", err
	}
	return info.URL, nil
}

// PageTitle returns the page's current title
func (m *Manager) PageTitle(ctx context.Context, handle models.PageHandle) (string, error) {
	info, err := m.pageInfo(ctx, handle)
	if err != nil {
		return "", err
	}
	return info.Title, nil
}

func (m *Manager) pageInfo(ctx context.Context, handle models.PageHandle) (*proto.TargetTargetInfo, error) {
	page, ok := m.tabs.get(handle)
	if !ok {
		return nil, common.ErrPageNotFound
	}
	info, err := page.Context(ctx).Info()
	if err != nil {
		return nil, common.WrapError(err, "failed to query page info")
	}
	return info, nil
}
