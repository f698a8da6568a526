package stability

import (
	"sync"
	"time"

	"github.com/webcapsule/webcapsule/internal/models"
)

// SessionRegistry owns the process-wide map of page sessions, keyed by page
// handle. It replaces the module-level maps of the original design with an
// explicit injected dependency; single-writer-per-key discipline is enforced
// by routing every mutation through this type.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[models.PageHandle]*models.PageSession
}

// NewSessionRegistry creates an empty session registry.
func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{
		sessions: make(map[models.PageHandle]*models.PageSession),
	}
}

// Create adds a session for the handle if none exists. It returns the
// session and whether it was newly created.
func (r *SessionRegistry) Create(handle models.PageHandle, url string) (*models.PageSession, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.sessions[handle]; ok {
		return existing, false
	}
	session := &models.PageSession{
		Handle: handle,
		URL:    url,
	}
	r.sessions[handle] = session
	return session, true
}

// Get returns the session for the handle, or nil if none exists.
func (r *SessionRegistry) Get(handle models.PageHandle) *models.PageSession {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessions[handle]
}

// Remove deletes the session for a closed or navigated-away page. In-flight
// operations referencing the session are allowed to settle; their results
// are discarded by the caller.
func (r *SessionRegistry) Remove(handle models.PageHandle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, handle)
}

// Len returns the number of tracked sessions.
func (r *SessionRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// RecordMutation flags a pending significant change for the handle's
// session, if one exists.
func (r *SessionRegistry) RecordMutation(handle models.PageHandle, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[handle]
	if !ok {
		return
	}
	session.HasPendingChange = true
	session.LastMutationAt = at
}

// UpdateURL records a navigation for the handle's session.
func (r *SessionRegistry) UpdateURL(handle models.PageHandle, url string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if session, ok := r.sessions[handle]; ok {
		session.URL = url
	}
}

// TryBeginRender atomically marks the session as rendering. It returns false
// if no session exists or a sweep is already in flight.
func (r *SessionRegistry) TryBeginRender(handle models.PageHandle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[handle]
	if !ok || session.IsRendering {
		return false
	}
	session.IsRendering = true
	return true
}

// EndRender clears the rendering flag.
func (r *SessionRegistry) EndRender(handle models.PageHandle) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if session, ok := r.sessions[handle]; ok {
		session.IsRendering = false
	}
}

// ConsumePendingChange clears and returns the pending-change flag, stamping
// LastCaptureAt when a change was pending.
func (r *SessionRegistry) ConsumePendingChange(handle models.PageHandle, now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[handle]
	if !ok || !session.HasPendingChange {
		return false
	}
	session.HasPendingChange = false
	session.LastCaptureAt = now
	return true
}
