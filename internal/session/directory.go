package session

import (
	"sync"
)

// Directory tracks the sessions that opted in to list-changed broadcasts.
// A session opts in with its first resources/list request and stays tracked
// until it disconnects or a delivery to it fails.
type Directory struct {
	mu       sync.RWMutex
	sessions map[string]Session
}

// NewDirectory creates an empty session directory.
func NewDirectory() *Directory {
	return &Directory{
		sessions: make(map[string]Session),
	}
}

// Track adds a session to the directory and reports whether it was newly
// tracked. Tracking an already tracked session is a no-op; a session
// appears at most once.
func (d *Directory) Track(sess Session) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	id := sess.ID()
	_, known := d.sessions[id]
	d.sessions[id] = sess
	return !known
}

// Untrack removes a session from the directory and reports whether it was
// present. Removing an untracked session is a no-op.
func (d *Directory) Untrack(sess Session) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	id := sess.ID()
	_, known := d.sessions[id]
	delete(d.sessions, id)
	return known
}

// Enumerate returns a snapshot of the currently tracked sessions. The
// returned slice is a copy, so callers may iterate it while the directory
// is concurrently mutated.
func (d *Directory) Enumerate() []Session {
	d.mu.RLock()
	defer d.mu.RUnlock()

	sessions := make([]Session, 0, len(d.sessions))
	for _, sess := range d.sessions {
		sessions = append(sessions, sess)
	}
	return sessions
}

// Len returns the number of tracked sessions.
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.sessions)
}
