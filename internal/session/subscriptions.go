package session

import (
	"sync"
)

// Subscriptions maps resource URIs to the sessions interested in updates
// for that URI. An entry exists only while at least one interested session
// remains; empty sets are pruned so the map does not grow without bound.
type Subscriptions struct {
	mu    sync.RWMutex
	byURI map[string]map[string]Session
}

// NewSubscriptions creates an empty subscription index.
func NewSubscriptions() *Subscriptions {
	return &Subscriptions{
		byURI: make(map[string]map[string]Session),
	}
}

// Subscribe adds the session to the URI's interested set, creating the set
// if absent, and reports whether the set was newly created. Subscribing
// twice is a no-op.
func (s *Subscriptions) Subscribe(uri string, sess Session) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.byURI[uri]
	if !ok {
		set = make(map[string]Session)
		s.byURI[uri] = set
	}
	set[sess.ID()] = sess
	return !ok
}

// Unsubscribe removes the session from the URI's interested set and reports
// whether the set became empty and was pruned. Unsubscribing a session that
// never subscribed is a no-op.
func (s *Subscriptions) Unsubscribe(uri string, sess Session) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.byURI[uri]
	if !ok {
		return false
	}
	delete(set, sess.ID())
	if len(set) == 0 {
		delete(s.byURI, uri)
		return true
	}
	return false
}

// InterestedSessions returns a snapshot of the sessions subscribed to the
// given URI, empty if none.
func (s *Subscriptions) InterestedSessions(uri string) []Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	set := s.byURI[uri]
	sessions := make([]Session, 0, len(set))
	for _, sess := range set {
		sessions = append(sessions, sess)
	}
	return sessions
}

// Clear drops the entire interested set for a URI and reports whether one
// existed. Called when the resource itself is removed (cascading
// unsubscribe).
func (s *Subscriptions) Clear(uri string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.byURI[uri]
	delete(s.byURI, uri)
	return ok
}

// DropSession removes the session from every interested set and returns the
// number of sets that became empty and were pruned. Called when a session
// disconnects or turns out to be unreachable.
func (s *Subscriptions) DropSession(sess Session) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := sess.ID()
	pruned := 0
	for uri, set := range s.byURI {
		delete(set, id)
		if len(set) == 0 {
			delete(s.byURI, uri)
			pruned++
		}
	}
	return pruned
}

// Len returns the number of URIs with at least one subscriber.
func (s *Subscriptions) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byURI)
}
