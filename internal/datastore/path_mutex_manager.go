package datastore

import (
	"sync"

	"github.com/rs/zerolog"
)

// PathMutexManager hands out per-path mutexes so concurrent captures never
// interleave writes to the same file.
type PathMutexManager struct {
	mutexes map[string]*sync.Mutex
	mapLock sync.RWMutex
	logger  zerolog.Logger
}

// NewPathMutexManager creates a new path mutex manager
func NewPathMutexManager(logger zerolog.Logger) *PathMutexManager {
	return &PathMutexManager{
		mutexes: make(map[string]*sync.Mutex),
		logger:  logger.With().Str("component", "PathMutexManager").Logger(),
	}
}

// GetMutex returns the mutex for the given path, creating it on first use
func (pmm *PathMutexManager) GetMutex(path string) *sync.Mutex {
	pmm.mapLock.RLock()
	mutex, exists := pmm.mutexes[path]
	pmm.mapLock.RUnlock()

	if exists {
		return mutex
	}

	pmm.mapLock.Lock()
	defer pmm.mapLock.Unlock()

	// Double-check after acquiring write lock
	if mutex, exists := pmm.mutexes[path]; exists {
		return mutex
	}

	mutex = &sync.Mutex{}
	pmm.mutexes[path] = mutex
	return mutex
}

// Cleanup drops every tracked mutex. Callers must ensure no writes are in
// flight.
func (pmm *PathMutexManager) Cleanup() {
	pmm.mapLock.Lock()
	defer pmm.mapLock.Unlock()

	count := len(pmm.mutexes)
	pmm.mutexes = make(map[string]*sync.Mutex)

	pmm.logger.Debug().
		Int("released_mutexes", count).
		Msg("Cleaned up path mutexes")
}
