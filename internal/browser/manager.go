package browser

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/rs/zerolog"
	"github.com/webcapsule/webcapsule/internal/config"
	"github.com/webcapsule/webcapsule/internal/models"
)

// Manager owns the headless Chrome instance and the pages opened in it. It
// implements every host capability the capture pipeline needs: tab lookup,
// agent injection and messaging, screenshots, and MHTML snapshots.
type Manager struct {
	config    config.BrowserConfig
	logger    zerolog.Logger
	launcher  *launcher.Launcher
	browser   *rod.Browser
	tabs      *tabRegistry
	hub       *eventHub
	mutex     sync.Mutex
	isRunning bool
}

// NewManager creates a new browser manager
func NewManager(cfg config.BrowserConfig, logger zerolog.Logger) *Manager {
	return &Manager{
		config: cfg,
		logger: logger.With().Str("component", "BrowserManager").Logger(),
		tabs:   newTabRegistry(),
		hub:    newEventHub(),
	}
}

// Start launches Chrome and connects to it
func (m *Manager) Start() error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.isRunning {
		return nil
	}

	l := launcher.New().Headless(m.config.Headless)

	if m.config.ChromePath != "" {
		l = l.Bin(m.config.ChromePath)
	}
	if m.config.UserDataDir != "" {
		l = l.UserDataDir(m.config.UserDataDir)
	}

	for _, arg := range m.config.BrowserArgs {
		name, value := splitBrowserArg(arg)
		if name != "" {
			l = l.Set(flags.Flag(name), value...)
		}
	}

	controlURL, err := l.Launch()
	if err != nil {
		return fmt.Errorf("failed to launch browser: %w", err)
	}
	m.launcher = l

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return fmt.Errorf("failed to connect browser: %w", err)
	}

	if m.config.IgnoreHTTPSErrors {
		if err := browser.IgnoreCertErrors(true); err != nil {
			m.logger.Warn().Err(err).Msg("Failed to ignore certificate errors")
		}
	}

	m.browser = browser
	m.isRunning = true
	m.logger.Info().
		Bool("headless", m.config.Headless).
		Bool("stealth", m.config.UseStealth).
		Msg("Browser manager started")
	return nil
}

// Stop closes every open page, the browser, and the launcher
func (m *Manager) Stop() {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if !m.isRunning {
		return
	}

	for _, handle := range m.tabs.handles() {
		if page, ok := m.tabs.get(handle); ok {
			_ = page.Close()
		}
		m.tabs.remove(handle)
		m.hub.unsubscribe(handle)
	}

	if m.browser != nil {
		_ = m.browser.Close()
	}
	if m.launcher != nil {
		m.launcher.Cleanup()
	}

	m.isRunning = false
	m.logger.Info().Msg("Browser manager stopped")
}

// OpenPage opens the URL in a new page and returns its handle. The page is
// fully loaded before the handle is returned.
func (m *Manager) OpenPage(ctx context.Context, url string) (models.PageHandle, error) {
	m.mutex.Lock()
	browser := m.browser
	running := m.isRunning
	m.mutex.Unlock()

	if !running {
		return "", fmt.Errorf("browser manager not running")
	}

	timeout := time.Duration(m.config.PageLoadTimeoutSecs) * time.Second
	loadCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	page, err := m.newPage(browser)
	if err != nil {
		return "", fmt.Errorf("failed to create page: %w", err)
	}

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:  m.config.WindowWidth,
		Height: m.config.WindowHeight,
	}); err != nil {
		m.logger.Warn().Err(err).Msg("Failed to set viewport")
	}

	handle := m.tabs.add(page)

	// The emit binding must exist before the agent is injected, or the
	// agent's first events are lost.
	if err := m.exposeEmitBinding(page, handle); err != nil {
		m.logger.Warn().Err(err).Str("page", string(handle)).Msg("Failed to expose event binding")
	}

	if err := page.Context(loadCtx).Navigate(url); err != nil {
		m.closePageLocked(handle, page)
		return "", fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	if err := page.Context(loadCtx).WaitLoad(); err != nil {
		m.closePageLocked(handle, page)
		return "", fmt.Errorf("page load timeout for %s: %w", url, err)
	}

	m.logger.Debug().Str("page", string(handle)).Str("url", url).Msg("Page opened")
	return handle, nil
}

// ClosePage closes the page and releases its handle
func (m *Manager) ClosePage(handle models.PageHandle) {
	page, ok := m.tabs.get(handle)
	if !ok {
		return
	}
	m.closePageLocked(handle, page)
	m.logger.Debug().Str("page", string(handle)).Msg("Page closed")
}

func (m *Manager) closePageLocked(handle models.PageHandle, page *rod.Page) {
	_ = page.Close()
	m.tabs.remove(handle)
	m.hub.unsubscribe(handle)
}

// newPage creates a blank page, with stealth patches when configured
func (m *Manager) newPage(browser *rod.Browser) (*rod.Page, error) {
	if m.config.UseStealth {
		return stealth.Page(browser)
	}
	return browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
}

// splitBrowserArg parses a "--name=value" launcher argument
func splitBrowserArg(arg string) (string, []string) {
	arg = strings.TrimLeft(arg, "-")
	if arg == "" {
		return "", nil
	}
	if name, value, found := strings.Cut(arg, "="); found {
		return name, []string{value}
	}
	return arg, nil
}
