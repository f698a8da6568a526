package archive

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/webcapsule/webcapsule/internal/models"
)

type memoryStore struct {
	mu    sync.Mutex
	files map[string][]byte
}

func newMemoryStore() *memoryStore {
	return &memoryStore{files: make(map[string][]byte)}
}

func (ms *memoryStore) Write(_ context.Context, relPath string, payload []byte) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.files[relPath] = payload
	return nil
}

func TestRecentLog_AppendAndEvict(t *testing.T) {
	log := NewRecentLog(3, nil, zerolog.Nop())

	for i := 0; i < 5; i++ {
		log.Append(context.Background(), models.CaptureRecord{
			URL: fmt.Sprintf("https://example.com/%d", i),
		})
	}

	records := log.Records()
	require.Len(t, records, 3, "log must not exceed its capacity")
	assert.Equal(t, "https://example.com/2", records[0].URL, "oldest records are evicted first")
	assert.Equal(t, "https://example.com/4", records[2].URL)
}

func TestRecentLog_DefaultCapacity(t *testing.T) {
	log := NewRecentLog(0, nil, zerolog.Nop())

	for i := 0; i < 15; i++ {
		log.Append(context.Background(), models.CaptureRecord{URL: fmt.Sprintf("u%d", i)})
	}
	assert.Len(t, log.Records(), DefaultRecentLogCapacity)
}

func TestRecentLog_Persists(t *testing.T) {
	store := newMemoryStore()
	log := NewRecentLog(10, store, zerolog.Nop())

	log.Append(context.Background(), models.CaptureRecord{Title: "t", URL: "https://example.com"})

	store.mu.Lock()
	defer store.mu.Unlock()
	assert.Contains(t, store.files, RecentLogFile)
	assert.Contains(t, string(store.files[RecentLogFile]), "https://example.com")
}
