package models

import (
	"context"
	"encoding/json"
)

// TabController resolves page handles against the host browser.
type TabController interface {
	// Exists reports whether the handle still resolves to a live page.
	Exists(ctx context.Context, handle PageHandle) bool
	// PageURL returns the page's current URL.
	PageURL(ctx context.Context, handle PageHandle) (string, error)
	// PageTitle returns the page's current title.
	PageTitle(ctx context.Context, handle PageHandle) (string, error)
}

// AgentInjector injects the in-page agent script. Injection is idempotent
// from the caller's perspective; the agent itself exposes an
// already-injected flag the bridge checks via its liveness probe.
type AgentInjector interface {
	Inject(ctx context.Context, handle PageHandle) error
}

// AgentChannel is the request/response message channel to a page's agent,
// plus the event stream the agent pushes back (mutations, scrolls).
type AgentChannel interface {
	// Send delivers one JSON-serializable request and returns the agent's
	// response, common.ErrRequestTimeout if none arrives before the context
	// deadline, or common.ErrChannelGone if the page is gone.
	Send(ctx context.Context, handle PageHandle, action string, payload any) (json.RawMessage, error)
	// Subscribe registers a handler for events from the given page. The
	// handler is invoked from the transport's delivery goroutine.
	Subscribe(handle PageHandle, fn func(PageEvent))
	// Unsubscribe removes the event handler for the given page.
	Unsubscribe(handle PageHandle)
}

// Screenshotter captures the currently visible viewport as PNG image data.
// It may fail with rate-limit or permission errors; callers route it through
// the rate-limited action queue.
type Screenshotter interface {
	CaptureVisible(ctx context.Context, handle PageHandle) ([]byte, error)
}

// SnapshotCapturer produces a complete single-file page snapshot (MHTML).
type SnapshotCapturer interface {
	CaptureMHTML(ctx context.Context, handle PageHandle) ([]byte, error)
}

// BlobStore persists one payload at a relative path. Failures are per-file
// and must not block sibling writes.
type BlobStore interface {
	Write(ctx context.Context, relPath string, payload []byte) error
}

// Notifier displays a user-visible message. Reserved for the single fatal
// case where the user must act (reload the page) plus capture completion.
type Notifier interface {
	NotifyFailure(ctx context.Context, title, message string)
	NotifyCompletion(ctx context.Context, title, message string)
}
