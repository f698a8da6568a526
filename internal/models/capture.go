package models

import (
	"context"
	"time"
)

// PageHandle is an opaque identifier for one live page instance within the
// host browser (analogous to a tab id).
type PageHandle string

// CaptureKind identifies one of the distinct output formats a capture
// attempt can produce.
type CaptureKind string

// Capture kinds. Metadata and script/network data are always captured;
// every other kind is opt-in via settings.
const (
	KindMetadata          CaptureKind = "metadata"
	KindScreenshotVisible CaptureKind = "screenshot-visible"
	KindScreenshotFull    CaptureKind = "screenshot-full"
	KindMHTML             CaptureKind = "mhtml"
	KindHTML              CaptureKind = "html"
	KindText              CaptureKind = "text"
	KindMarkdown          CaptureKind = "markdown"
	KindReadable          CaptureKind = "readable"
	KindScriptData        CaptureKind = "script-and-network-data"
)

// MandatoryKinds are captured on every request regardless of configuration.
var MandatoryKinds = []CaptureKind{KindMetadata, KindScriptData}

// PageSession tracks one live page under observation.
type PageSession struct {
	Handle             PageHandle
	URL                string
	LastCaptureAt      time.Time
	ContentFingerprint string // reserved for idempotence checks, unused downstream
	IsRendering        bool
	HasPendingChange   bool
	LastMutationAt     time.Time
}

// CaptureRequest describes one capture attempt against a page.
type CaptureRequest struct {
	Handle PageHandle
	Kinds  []CaptureKind
}

// CaptureResult is the outcome of one capture kind within a request. Exactly
// one of Payload or Err is meaningful; a failed kind never prevents the
// collection of its siblings.
type CaptureResult struct {
	Kind     CaptureKind
	Filename string
	Payload  []byte
	Err      error
}

// CaptureSpec is the tagged variant describing how one capture kind is
// produced: either a payload already in hand or an operation still to run.
type CaptureSpec interface {
	SpecKind() CaptureKind
	SpecFilename() string
}

// InlineCapture carries a payload produced during content collection.
type InlineCapture struct {
	Kind     CaptureKind
	Filename string
	Payload  []byte
}

// SpecKind returns the capture kind of this spec.
func (c InlineCapture) SpecKind() CaptureKind { return c.Kind }

// SpecFilename returns the bundle filename for this spec.
func (c InlineCapture) SpecFilename() string { return c.Filename }

// DeferredCapture carries an operation that produces the payload on demand.
type DeferredCapture struct {
	Kind     CaptureKind
	Filename string
	Run      func(ctx context.Context) ([]byte, error)
}

// SpecKind returns the capture kind of this spec.
func (c DeferredCapture) SpecKind() CaptureKind { return c.Kind }

// SpecFilename returns the bundle filename for this spec.
func (c DeferredCapture) SpecFilename() string { return c.Filename }

// CaptureRecord is the summary appended to the bounded recent-captures log.
// The field layout is consumed externally and must be preserved.
type CaptureRecord struct {
	Title     string        `json:"title"`
	URL       string        `json:"url"`
	Timestamp string        `json:"timestamp"`
	Formats   []CaptureKind `json:"formats"`
}

// ArchiveBundle is the final output of one successful capture request.
type ArchiveBundle struct {
	FolderPath string
	Entries    map[string][]byte
	Record     CaptureRecord
}

// ScriptRef describes one script discovered on the page. Source is populated
// for inline scripts at collection time and for external scripts by the
// cached fetcher when inline script capture is enabled.
type ScriptRef struct {
	URL    string `json:"url,omitempty"`
	Inline bool   `json:"inline"`
	Source string `json:"source,omitempty"`
}

// NetworkRequest describes one network request observed by the agent.
type NetworkRequest struct {
	URL          string `json:"url"`
	Method       string `json:"method"`
	ResourceType string `json:"resource_type"`
	Status       int    `json:"status,omitempty"`
}

// PageContent is the agent's answer to a content-collection request.
type PageContent struct {
	URL     string            `json:"url"`
	Title   string            `json:"title"`
	HTML    string            `json:"html"`
	Meta    map[string]string `json:"meta,omitempty"`
	Scripts []ScriptRef       `json:"scripts,omitempty"`
	Network []NetworkRequest  `json:"network,omitempty"`
}

// PageEventType distinguishes the event kinds the agent reports back.
type PageEventType string

// Page event types delivered through the agent channel.
const (
	EventMutation PageEventType = "mutation"
	EventScroll   PageEventType = "scroll"
)

// PageEvent is one DOM-mutation or scroll notification from a page's agent.
type PageEvent struct {
	Handle PageHandle
	Type   PageEventType
	At     time.Time
}
