package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/webcapsule/webcapsule/internal/bridge"
	"github.com/webcapsule/webcapsule/internal/browser"
	"github.com/webcapsule/webcapsule/internal/capture"
	"github.com/webcapsule/webcapsule/internal/config"
	"github.com/webcapsule/webcapsule/internal/datastore"
	"github.com/webcapsule/webcapsule/internal/models"
	"github.com/webcapsule/webcapsule/internal/notifier"
	"github.com/webcapsule/webcapsule/internal/ratequeue"
	"github.com/webcapsule/webcapsule/internal/rslimiter"
	"github.com/webcapsule/webcapsule/internal/stability"
)

// application wires the browser, the stabilization pipeline, and the capture
// orchestrator together for one process lifetime.
type application struct {
	cfg          *config.GlobalConfig
	logger       zerolog.Logger
	browser      *browser.Manager
	monitor      *stability.PageStabilityMonitor
	orchestrator *capture.CaptureOrchestrator
	limiter      *rslimiter.ResourceLimiter
}

// newApplication builds the full component graph from configuration.
func newApplication(cfg *config.GlobalConfig, logger zerolog.Logger) (*application, error) {
	browserManager := browser.NewManager(cfg.BrowserConfig, logger)

	scriptBridge := bridge.NewContentScriptBridge(browserManager, browserManager, bridgeConfigFrom(cfg.BridgeConfig), logger)

	registry := stability.NewSessionRegistry()
	monitor := stability.NewPageStabilityMonitor(registry, scriptBridge, browserManager, stabilityConfigFrom(cfg.StabilityConfig), logger)

	queue := ratequeue.NewActionQueue(queueConfigFrom(cfg.QueueConfig), logger)

	store := datastore.NewFileStore(cfg.StorageConfig.RootDir, os.FileMode(cfg.StorageConfig.FileMode), logger)

	webhookNotifier, err := notifier.NewWebhookNotifier(
		cfg.NotificationConfig.WebhookURL,
		cfg.NotificationConfig.NotifyOnFailure,
		cfg.NotificationConfig.NotifyOnSuccess,
		&http.Client{Timeout: time.Duration(cfg.NotificationConfig.TimeoutSecs) * time.Second},
		logger,
	)
	if err != nil {
		return nil, err
	}

	orchestrator := capture.NewCaptureOrchestrator(
		captureConfigFrom(cfg.CaptureConfig),
		browserManager,
		scriptBridge,
		queue,
		browserManager,
		browserManager,
		store,
		webhookNotifier,
		config.NewStaticSettingsStore(cfg.Settings),
		capture.NewCachedScriptFetcher(nil, logger),
		logger,
	)

	limiter := rslimiter.NewResourceLimiter(limiterConfigFrom(cfg.ResourceLimiterConfig), logger)

	return &application{
		cfg:          cfg,
		logger:       logger.With().Str("component", "Application").Logger(),
		browser:      browserManager,
		monitor:      monitor,
		orchestrator: orchestrator,
		limiter:      limiter,
	}, nil
}

// start launches the browser and the resource watchdog
func (app *application) start() error {
	if err := app.browser.Start(); err != nil {
		return err
	}
	app.limiter.Start()
	return nil
}

// shutdown tears everything down in reverse order
func (app *application) shutdown() {
	app.limiter.Stop()
	app.browser.Stop()
	app.logger.Info().Msg("Shutdown complete")
}

// capturePages opens each URL, waits for it to stabilize, and captures it
// once. Used by onetime mode and by each automated cycle for new URLs.
func (app *application) capturePages(ctx context.Context, urls []string) {
	for _, url := range urls {
		if err := ctx.Err(); err != nil {
			return
		}
		app.captureOne(ctx, url)
	}
}

func (app *application) captureOne(ctx context.Context, url string) {
	log := app.logger.With().Str("url", url).Logger()

	handle, err := app.browser.OpenPage(ctx, url)
	if err != nil {
		log.Error().Err(err).Msg("Failed to open page")
		return
	}
	defer app.browser.ClosePage(handle)

	app.monitor.StartMonitoring(handle, url)
	defer app.monitor.StopMonitoring(handle)

	if _, err := app.monitor.RenderPage(ctx, handle); err != nil {
		log.Warn().Err(err).Msg("Render sweep failed, capturing anyway")
	}

	if _, err := app.orchestrator.Capture(ctx, handle); err != nil {
		log.Error().Err(err).Msg("Capture failed")
	}
}

// runAutomated keeps the configured pages open and re-captures each one
// whenever a cycle finds significant changes since the last capture.
func (app *application) runAutomated(ctx context.Context) {
	urls := app.cfg.CaptureConfig.AutoCaptureURLs
	if len(urls) == 0 {
		app.logger.Warn().Msg("Automated mode with no auto-capture URLs configured")
	}

	handles := make(map[models.PageHandle]string, len(urls))
	for _, url := range urls {
		handle, err := app.browser.OpenPage(ctx, url)
		if err != nil {
			app.logger.Error().Err(err).Str("url", url).Msg("Failed to open page")
			continue
		}
		app.monitor.StartMonitoring(handle, url)
		handles[handle] = url
	}
	defer func() {
		for handle := range handles {
			app.monitor.StopMonitoring(handle)
			app.browser.ClosePage(handle)
		}
	}()

	// First capture of every page happens immediately.
	for handle := range handles {
		app.renderAndCapture(ctx, handle, true)
	}

	captureTicker := time.NewTicker(time.Duration(app.cfg.CaptureConfig.AutoCaptureIntervalSecs) * time.Second)
	defer captureTicker.Stop()

	cacheTicker := time.NewTicker(time.Duration(app.cfg.CaptureConfig.ScriptCacheClearSecs) * time.Second)
	defer cacheTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-cacheTicker.C:
			app.orchestrator.ClearScriptCache()
			app.logger.Debug().Msg("Cleared script cache")
		case <-captureTicker.C:
			if app.limiter.IsPaused() {
				app.logger.Info().Msg("Skipping capture cycle, resource limiter paused auto-capture")
				continue
			}
			if !app.cfg.Settings.AutoCapture {
				continue
			}
			for handle := range handles {
				app.renderAndCapture(ctx, handle, false)
			}
		}
	}
}

// renderAndCapture performs one stabilization sweep and captures the page if
// it changed. When force is set the page is captured regardless.
func (app *application) renderAndCapture(ctx context.Context, handle models.PageHandle, force bool) {
	log := app.logger.With().Str("page", string(handle)).Logger()

	significant, err := app.monitor.RenderPage(ctx, handle)
	if err != nil {
		log.Warn().Err(err).Msg("Render sweep failed")
		return
	}
	if !significant && !force {
		log.Debug().Msg("No significant change, skipping capture")
		return
	}

	if _, err := app.orchestrator.Capture(ctx, handle); err != nil {
		log.Error().Err(err).Msg("Capture failed")
	}
}
