package capture

import (
	"context"
	"io"
	"net/http"
	"sync"

	"github.com/rs/zerolog"
	"github.com/webcapsule/webcapsule/internal/common"
)

// maxScriptBytes bounds how much of an external script is fetched.
const maxScriptBytes = 2 << 20

// CachedScriptFetcher fetches external script sources with a per-URL cache.
// The cache is unbounded for the session; ClearCache is called periodically
// by an external scheduler.
type CachedScriptFetcher struct {
	client *http.Client
	logger zerolog.Logger

	mu    sync.Mutex
	cache map[string]string
}

// NewCachedScriptFetcher creates a fetcher around the given HTTP client.
func NewCachedScriptFetcher(client *http.Client, logger zerolog.Logger) *CachedScriptFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &CachedScriptFetcher{
		client: client,
		logger: logger.With().Str("component", "CachedScriptFetcher").Logger(),
		cache:  make(map[string]string),
	}
}

// Fetch returns the script source at scriptURL, from cache when available.
func (f *CachedScriptFetcher) Fetch(ctx context.Context, scriptURL string) (string, error) {
	f.mu.Lock()
	if cached, ok := f.cache[scriptURL]; ok {
		f.mu.Unlock()
		return cached, nil
	}
	f.mu.Unlock()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, scriptURL, nil)
	if err != nil {
		return "", common.WrapError(err, "invalid script URL")
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", common.WrapErrorf(err, "failed to fetch script '%s'", scriptURL)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", common.WrapErrorf(common.ErrCaptureFailed, "script fetch '%s' returned status %d", scriptURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxScriptBytes))
	if err != nil {
		return "", common.WrapErrorf(err, "failed to read script body '%s'", scriptURL)
	}

	source := string(body)
	f.mu.Lock()
	f.cache[scriptURL] = source
	f.mu.Unlock()

	f.logger.Debug().Str("url", scriptURL).Int("bytes", len(body)).Msg("External script fetched and cached")
	return source, nil
}

// CacheSize returns the number of cached scripts.
func (f *CachedScriptFetcher) CacheSize() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.cache)
}

// ClearCache drops every cached script.
func (f *CachedScriptFetcher) ClearCache() {
	f.mu.Lock()
	cleared := len(f.cache)
	f.cache = make(map[string]string)
	f.mu.Unlock()

	if cleared > 0 {
		f.logger.Debug().Int("cleared", cleared).Msg("Script cache cleared")
	}
}
