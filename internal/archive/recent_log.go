package archive

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"
	"github.com/webcapsule/webcapsule/internal/models"
)

// DefaultRecentLogCapacity bounds the recent-captures log.
const DefaultRecentLogCapacity = 10

// RecentLogFile is the relative path the log is persisted at.
const RecentLogFile = "captures.json"

// RecentLog is the bounded recent-captures log. Appending beyond capacity
// evicts the oldest record first. Each append persists the full log through
// the blob store; a persist failure is logged and does not reject the
// append.
type RecentLog struct {
	logger   zerolog.Logger
	store    models.BlobStore
	capacity int

	mu      sync.Mutex
	records []models.CaptureRecord
}

// NewRecentLog creates a recent-captures log with the given capacity.
// A capacity of zero or less falls back to DefaultRecentLogCapacity.
func NewRecentLog(capacity int, store models.BlobStore, logger zerolog.Logger) *RecentLog {
	if capacity <= 0 {
		capacity = DefaultRecentLogCapacity
	}
	return &RecentLog{
		logger:   logger.With().Str("component", "RecentLog").Logger(),
		store:    store,
		capacity: capacity,
		records:  make([]models.CaptureRecord, 0, capacity),
	}
}

// Append adds a capture record, evicting the oldest beyond capacity, and
// persists the log.
func (rl *RecentLog) Append(ctx context.Context, record models.CaptureRecord) {
	rl.mu.Lock()
	rl.records = append(rl.records, record)
	if len(rl.records) > rl.capacity {
		rl.records = rl.records[len(rl.records)-rl.capacity:]
	}
	snapshot := make([]models.CaptureRecord, len(rl.records))
	copy(snapshot, rl.records)
	rl.mu.Unlock()

	rl.logger.Debug().
		Str("url", record.URL).
		Int("record_count", len(snapshot)).
		Msg("Capture record appended")

	rl.persist(ctx, snapshot)
}

// Records returns a copy of the current records, oldest first.
func (rl *RecentLog) Records() []models.CaptureRecord {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	records := make([]models.CaptureRecord, len(rl.records))
	copy(records, rl.records)
	return records
}

func (rl *RecentLog) persist(ctx context.Context, records []models.CaptureRecord) {
	if rl.store == nil {
		return
	}

	payload, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		rl.logger.Error().Err(err).Msg("Failed to marshal recent captures log")
		return
	}
	if err := rl.store.Write(ctx, RecentLogFile, payload); err != nil {
		rl.logger.Error().Err(err).Msg("Failed to persist recent captures log")
	}
}
