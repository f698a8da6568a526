package capture

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/webcapsule/webcapsule/internal/archive"
	"github.com/webcapsule/webcapsule/internal/common"
	"github.com/webcapsule/webcapsule/internal/extractor"
	"github.com/webcapsule/webcapsule/internal/models"
	"github.com/webcapsule/webcapsule/internal/ratequeue"
)

// captureState names the orchestrator's progress through one capture attempt.
type captureState int

const (
	stateInitiated captureState = iota
	stateTabValidated
	stateAgentReady
	stateContentCollected
	stateCapturesRunning
	stateAssembled
	statePersisted
	stateAborted
)

// String returns the state name for logging.
func (cs captureState) String() string {
	switch cs {
	case stateInitiated:
		return "Initiated"
	case stateTabValidated:
		return "TabValidated"
	case stateAgentReady:
		return "AgentReady"
	case stateContentCollected:
		return "ContentCollected"
	case stateCapturesRunning:
		return "CapturesRunning"
	case stateAssembled:
		return "Assembled"
	case statePersisted:
		return "Persisted"
	case stateAborted:
		return "Aborted"
	default:
		return "Unknown"
	}
}

// actionCollectContent asks the agent for the page's content and metadata.
const actionCollectContent = "collectContent"

// scriptPlaceholder marks an external script whose source fetch failed.
const scriptPlaceholder = "/* external script unavailable: %s */"

// AgentBridge is the readiness and request/response surface of the content
// script bridge the orchestrator depends on.
type AgentBridge interface {
	EnsureAgentReady(ctx context.Context, handle models.PageHandle) bool
	Request(ctx context.Context, handle models.PageHandle, action string, payload any, timeout time.Duration) (json.RawMessage, error)
}

// collectContentRequest parameterizes the agent's content collection.
type collectContentRequest struct {
	MaxNetworkRequests int `json:"maxNetworkRequests"`
}

// CaptureOrchestrator is the end-to-end state machine turning "capture this
// page now" into a persisted archive bundle. Every capture kind executes
// independently: a failing kind is logged and omitted, never aborting its
// siblings, and no error escapes to the caller's goroutine unwrapped.
type CaptureOrchestrator struct {
	config         CaptureConfig
	tabs           models.TabController
	bridge         AgentBridge
	queue          *ratequeue.ActionQueue
	screenshots    models.Screenshotter
	snapshots      models.SnapshotCapturer
	store          models.BlobStore
	notifier       models.Notifier
	settings       models.SettingsStore
	scriptFetcher  *CachedScriptFetcher
	stitcher       *FullPageStitcher
	markdown       *extractor.MarkdownConverter
	recentLog      *archive.RecentLog
	logger         zerolog.Logger
}

// NewCaptureOrchestrator wires the orchestrator over the host capabilities.
func NewCaptureOrchestrator(
	config CaptureConfig,
	tabs models.TabController,
	agentBridge AgentBridge,
	queue *ratequeue.ActionQueue,
	screenshots models.Screenshotter,
	snapshots models.SnapshotCapturer,
	store models.BlobStore,
	notifier models.Notifier,
	settings models.SettingsStore,
	scriptFetcher *CachedScriptFetcher,
	logger zerolog.Logger,
) *CaptureOrchestrator {
	config.applyDefaults()

	return &CaptureOrchestrator{
		config:        config,
		tabs:          tabs,
		bridge:        agentBridge,
		queue:         queue,
		screenshots:   screenshots,
		snapshots:     snapshots,
		store:         store,
		notifier:      notifier,
		settings:      settings,
		scriptFetcher: scriptFetcher,
		stitcher:      NewFullPageStitcher(agentBridge, queue, screenshots, config.StitchScrollSettle, logger),
		markdown:      extractor.NewMarkdownConverter(),
		recentLog:     archive.NewRecentLog(config.RecentLogCapacity, store, logger),
		logger:        logger.With().Str("component", "CaptureOrchestrator").Logger(),
	}
}

// RecentCaptures returns the bounded recent-captures log, oldest first.
func (o *CaptureOrchestrator) RecentCaptures() []models.CaptureRecord {
	return o.recentLog.Records()
}

// ClearScriptCache drops the cached external script sources. Called
// periodically by the run loop's scheduler.
func (o *CaptureOrchestrator) ClearScriptCache() {
	if o.scriptFetcher != nil {
		o.scriptFetcher.ClearCache()
	}
}

// Capture runs the full pipeline for one page. A restricted page returns
// common.ErrRestrictedPage (an expected, silent skip). An unreachable agent
// returns common.ErrAgentUnreachable after emitting the single user-visible
// failure notification. Partial capture failures degrade the bundle but do
// not fail the call.
func (o *CaptureOrchestrator) Capture(ctx context.Context, handle models.PageHandle) (*models.ArchiveBundle, error) {
	state := stateInitiated
	log := o.logger.With().Str("page", string(handle)).Logger()

	// TabValidated
	pageURL, err := o.tabs.PageURL(ctx, handle)
	if err != nil {
		log.Warn().Err(err).Stringer("state", state).Msg("Page handle no longer resolves")
		return nil, common.WrapError(common.ErrPageNotFound, "capture aborted")
	}
	if o.isRestricted(pageURL) {
		log.Debug().Str("url", pageURL).Msg("Restricted page, capture skipped")
		return nil, common.ErrRestrictedPage
	}
	state = stateTabValidated

	// AgentReady: the only path that triggers a user-facing alert, since it
	// means the user must reload the page.
	if !o.bridge.EnsureAgentReady(ctx, handle) {
		state = stateAborted
		log.Error().Stringer("state", state).Str("url", pageURL).Msg("Agent unreachable, capture aborted")
		o.notifier.NotifyFailure(ctx, "Capture failed", fmt.Sprintf("Could not reach the page agent for %s. Reload the page and try again.", pageURL))
		return nil, common.WrapError(common.ErrAgentUnreachable, "capture aborted")
	}
	state = stateAgentReady

	// ContentCollected
	content, err := o.collectContent(ctx, handle)
	if err != nil {
		state = stateAborted
		log.Error().Err(err).Stringer("state", state).Msg("Content collection failed, capture aborted")
		return nil, err
	}
	if content.URL == "" {
		content.URL = pageURL
	}
	state = stateContentCollected

	parsed, err := archive.ParseURL(content.URL)
	if err != nil {
		state = stateAborted
		log.Error().Err(err).Stringer("state", state).Msg("Capture URL unparseable, capture aborted")
		return nil, err
	}

	// CapturesRunning
	state = stateCapturesRunning
	settings := o.settings.Load()
	specs := o.buildCaptureSpecs(handle, parsed, content, settings)
	results := o.runCaptures(ctx, specs)

	// Assembled
	bundle := o.assemble(parsed, content, results)
	state = stateAssembled

	if err := o.mandatoryKindsSucceeded(results); err != nil {
		log.Error().Err(err).Stringer("state", state).Msg("Mandatory capture kinds failed")
		return nil, err
	}

	// Persisted
	o.persist(ctx, bundle)
	state = statePersisted

	log.Info().
		Stringer("state", state).
		Str("folder", bundle.FolderPath).
		Int("entries", len(bundle.Entries)).
		Msg("Capture completed")
	o.notifier.NotifyCompletion(ctx, "Capture complete", fmt.Sprintf("Archived %s (%d files)", content.URL, len(bundle.Entries)))
	return bundle, nil
}

// isRestricted reports whether the URL uses a scheme that must never be
// captured.
func (o *CaptureOrchestrator) isRestricted(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return true
	}
	for _, scheme := range o.config.RestrictedSchemes {
		if u.Scheme == scheme {
			return true
		}
	}
	return false
}

// collectContent requests page content and metadata from the agent and, if
// configured, attaches external script sources through the cached fetcher.
// A fetch failure for one script substitutes a placeholder marker and never
// fails collection.
func (o *CaptureOrchestrator) collectContent(ctx context.Context, handle models.PageHandle) (models.PageContent, error) {
	settings := o.settings.Load()

	response, err := o.bridge.Request(ctx, handle, actionCollectContent, collectContentRequest{
		MaxNetworkRequests: settings.MaxNetworkRequests,
	}, o.config.ContentTimeout)
	if err != nil {
		return models.PageContent{}, common.WrapError(err, "content collection failed")
	}

	var content models.PageContent
	if err := json.Unmarshal(response, &content); err != nil {
		return models.PageContent{}, common.WrapError(err, "content collection returned malformed payload")
	}

	if settings.InlineExternalScripts {
		o.inlineExternalScripts(ctx, &content)
	}
	return content, nil
}

func (o *CaptureOrchestrator) inlineExternalScripts(ctx context.Context, content *models.PageContent) {
	if o.scriptFetcher == nil {
		return
	}
	for i := range content.Scripts {
		script := &content.Scripts[i]
		if script.Inline || script.URL == "" || script.Source != "" {
			continue
		}
		source, err := o.scriptFetcher.Fetch(ctx, script.URL)
		if err != nil {
			o.logger.Warn().Err(err).Str("script_url", script.URL).Msg("External script fetch failed, using placeholder")
			script.Source = fmt.Sprintf(scriptPlaceholder, script.URL)
			continue
		}
		script.Source = source
	}
}

// buildCaptureSpecs produces the tagged capture set: mandatory kinds first,
// then the configured optional kinds. Payloads already in hand become
// InlineCapture; everything needing another agent round-trip, the
// rate-limited screenshot action, or local conversion becomes
// DeferredCapture.
func (o *CaptureOrchestrator) buildCaptureSpecs(
	handle models.PageHandle,
	parsed archive.ParsedURL,
	content models.PageContent,
	settings models.Settings,
) []models.CaptureSpec {
	analyzer := extractor.NewScriptDataAnalyzer(settings.MaxNetworkRequests, o.logger)

	specs := []models.CaptureSpec{
		models.DeferredCapture{
			Kind:     models.KindMetadata,
			Filename: archive.FilenameForKind(models.KindMetadata),
			Run: func(context.Context) ([]byte, error) {
				return archive.BuildMetadata(parsed, map[string]any{
					"title": content.Title,
					"meta":  content.Meta,
				})
			},
		},
		models.DeferredCapture{
			Kind:     models.KindScriptData,
			Filename: archive.FilenameForKind(models.KindScriptData),
			Run: func(context.Context) ([]byte, error) {
				return analyzer.BuildReport(content)
			},
		},
	}

	for _, kind := range settings.OptionalKinds() {
		specs = append(specs, o.buildOptionalSpec(kind, handle, content))
	}
	return specs
}

func (o *CaptureOrchestrator) buildOptionalSpec(kind models.CaptureKind, handle models.PageHandle, content models.PageContent) models.CaptureSpec {
	filename := archive.FilenameForKind(kind)

	switch kind {
	case models.KindHTML:
		return models.InlineCapture{Kind: kind, Filename: filename, Payload: []byte(content.HTML)}
	case models.KindText:
		return models.DeferredCapture{Kind: kind, Filename: filename, Run: func(context.Context) ([]byte, error) {
			text, err := extractor.ExtractText(content.HTML)
			return []byte(text), err
		}}
	case models.KindMarkdown:
		return models.DeferredCapture{Kind: kind, Filename: filename, Run: func(context.Context) ([]byte, error) {
			markdown, err := o.markdown.Convert(content.HTML, content.URL)
			return []byte(markdown), err
		}}
	case models.KindReadable:
		return models.DeferredCapture{Kind: kind, Filename: filename, Run: func(context.Context) ([]byte, error) {
			readable, err := extractor.ExtractReadable(content.HTML, content.Title)
			return []byte(readable), err
		}}
	case models.KindScreenshotVisible:
		return models.DeferredCapture{Kind: kind, Filename: filename, Run: func(ctx context.Context) ([]byte, error) {
			return o.captureVisibleScreenshot(ctx, handle)
		}}
	case models.KindScreenshotFull:
		return models.DeferredCapture{Kind: kind, Filename: filename, Run: func(ctx context.Context) ([]byte, error) {
			return o.stitcher.Capture(ctx, handle)
		}}
	case models.KindMHTML:
		return models.DeferredCapture{Kind: kind, Filename: filename, Run: func(ctx context.Context) ([]byte, error) {
			return o.snapshots.CaptureMHTML(ctx, handle)
		}}
	default:
		return models.DeferredCapture{Kind: kind, Filename: filename, Run: func(context.Context) ([]byte, error) {
			return nil, common.WrapErrorf(common.ErrCaptureFailed, "unsupported capture kind '%s'", kind)
		}}
	}
}

// runCaptures executes every spec independently. Deferred operations run
// concurrently; each is wrapped so a panic or error becomes a recorded
// per-kind failure rather than escaping the orchestrator.
func (o *CaptureOrchestrator) runCaptures(ctx context.Context, specs []models.CaptureSpec) []models.CaptureResult {
	results := make([]models.CaptureResult, len(specs))

	var wg sync.WaitGroup
	for i, spec := range specs {
		switch s := spec.(type) {
		case models.InlineCapture:
			results[i] = models.CaptureResult{Kind: s.Kind, Filename: s.Filename, Payload: s.Payload}
		case models.DeferredCapture:
			wg.Add(1)
			go func(i int, s models.DeferredCapture) {
				defer wg.Done()
				results[i] = o.runDeferred(ctx, s)
			}(i, s)
		default:
			results[i] = models.CaptureResult{
				Kind: spec.SpecKind(),
				Err:  common.WrapErrorf(common.ErrCaptureFailed, "unknown capture spec variant %T", spec),
			}
		}
	}
	wg.Wait()

	for _, result := range results {
		if result.Err != nil {
			o.logger.Warn().Err(result.Err).
				Str("kind", string(result.Kind)).
				Msg("Capture kind failed, omitted from bundle")
		}
	}
	return results
}

func (o *CaptureOrchestrator) runDeferred(ctx context.Context, spec models.DeferredCapture) (result models.CaptureResult) {
	result = models.CaptureResult{Kind: spec.Kind, Filename: spec.Filename}

	defer func() {
		if r := recover(); r != nil {
			result.Payload = nil
			result.Err = common.NewCaptureKindError(string(spec.Kind), fmt.Sprintf("panic: %v", r), nil)
		}
	}()

	payload, err := spec.Run(ctx)
	if err != nil {
		result.Err = common.NewCaptureKindError(string(spec.Kind), "operation failed", err)
		return result
	}
	result.Payload = payload
	return result
}

// captureVisibleScreenshot routes the visible-viewport capture through the
// process-wide rate-limited queue.
func (o *CaptureOrchestrator) captureVisibleScreenshot(ctx context.Context, handle models.PageHandle) ([]byte, error) {
	return o.queue.Enqueue(ctx, func(ctx context.Context) ([]byte, error) {
		return o.screenshots.CaptureVisible(ctx, handle)
	})
}

// assemble combines the successful results into a bundle with its
// deterministic folder path and summary record.
func (o *CaptureOrchestrator) assemble(parsed archive.ParsedURL, content models.PageContent, results []models.CaptureResult) *models.ArchiveBundle {
	entries := make(map[string][]byte)
	formats := make([]models.CaptureKind, 0, len(results))

	for _, result := range results {
		if result.Err != nil || result.Filename == "" {
			continue
		}
		entries[result.Filename] = result.Payload
		formats = append(formats, result.Kind)
	}

	return &models.ArchiveBundle{
		FolderPath: archive.BuildPath(o.config.BaseDir, parsed),
		Entries:    entries,
		Record: models.CaptureRecord{
			Title:     content.Title,
			URL:       content.URL,
			Timestamp: parsed.CaptureTime.Format(time.RFC3339),
			Formats:   formats,
		},
	}
}

// mandatoryKindsSucceeded verifies metadata and script/network data made it
// into the bundle; the capture overall only reports success when they did.
func (o *CaptureOrchestrator) mandatoryKindsSucceeded(results []models.CaptureResult) error {
	for _, mandatory := range models.MandatoryKinds {
		ok := false
		for _, result := range results {
			if result.Kind == mandatory && result.Err == nil {
				ok = true
				break
			}
		}
		if !ok {
			return common.WrapErrorf(common.ErrCaptureFailed, "mandatory capture kind '%s' failed", mandatory)
		}
	}
	return nil
}

// persist writes every bundle entry through the blob store. Write failures
// are per-file: logged and skipped, never blocking sibling writes.
func (o *CaptureOrchestrator) persist(ctx context.Context, bundle *models.ArchiveBundle) {
	for filename, payload := range bundle.Entries {
		relPath := bundle.FolderPath + "/" + filename
		if err := o.store.Write(ctx, relPath, payload); err != nil {
			o.logger.Error().Err(err).Str("path", relPath).Msg("Bundle entry write failed")
		}
	}
	o.recentLog.Append(ctx, bundle.Record)
}
