package registry

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/foldersync/foldersync/internal/logging"
	"github.com/foldersync/foldersync/internal/session"
)

// Notifier delivers list-changed broadcasts to a set of sessions. It must
// never block the caller on any single recipient.
type Notifier interface {
	NotifyListChanged(sessions []session.Session)
}

// SessionSource enumerates the sessions interested in list-changed events.
type SessionSource interface {
	Enumerate() []session.Session
}

// SubscriptionClearer drops all subscribers of a URI when its resource is
// removed.
type SubscriptionClearer interface {
	Clear(uri string) bool
}

// Observer is notified after the registry mutates. Observers are registered
// once at wiring time; the MCP bridge uses this to mirror registry state
// into the transport layer.
type Observer interface {
	ResourceAdded(res Resource, replaced bool)
	ResourceRemoved(uri string)
}

// Registry owns the set of exposed resources keyed by URI.
//
// Mutations broadcast list-changed notifications to every session in the
// directory; the broadcasts are best effort and never fail the mutation.
type Registry struct {
	mu        sync.RWMutex
	resources map[string]Resource

	sessions  SessionSource
	subs      SubscriptionClearer
	notifier  Notifier
	observers []Observer
	logger    *slog.Logger
}

// New creates a registry wired to the given session directory, subscription
// index, and notifier. A nil logger falls back to slog.Default().
func New(sessions SessionSource, subs SubscriptionClearer, notifier Notifier, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		resources: make(map[string]Resource),
		sessions:  sessions,
		subs:      subs,
		notifier:  notifier,
		logger:    logging.WithComponent(logger, "registry"),
	}
}

// Observe registers an observer for subsequent mutations. Not safe to call
// concurrently with Add or Remove; register observers during wiring, before
// the watcher and transport start.
func (r *Registry) Observe(obs Observer) {
	r.observers = append(r.observers, obs)
}

// Add inserts or replaces the resource keyed by its URI and broadcasts a
// list-changed notification to all directory sessions, also on replace.
//
// An empty URI is a caller contract violation and panics.
func (r *Registry) Add(res Resource) {
	if res.URI == "" {
		panic("registry: resource URI must not be empty")
	}

	r.mu.Lock()
	_, replaced := r.resources[res.URI]
	r.resources[res.URI] = res
	r.mu.Unlock()

	for _, obs := range r.observers {
		obs.ResourceAdded(res, replaced)
	}

	r.logger.Debug("resource added", logging.URI(res.URI), slog.Bool("replaced", replaced))
	r.notifier.NotifyListChanged(r.sessions.Enumerate())
}

// Remove deletes the resource with the given URI, clears its subscriber set,
// and broadcasts a list-changed notification. Removing an absent URI is a
// no-op and must not notify.
func (r *Registry) Remove(uri string) {
	r.mu.Lock()
	_, ok := r.resources[uri]
	if !ok {
		r.mu.Unlock()
		return
	}
	delete(r.resources, uri)
	r.mu.Unlock()

	r.subs.Clear(uri)

	for _, obs := range r.observers {
		obs.ResourceRemoved(uri)
	}

	r.logger.Debug("resource removed", logging.URI(uri))
	r.notifier.NotifyListChanged(r.sessions.Enumerate())
}

// List returns the current resources sorted by URI. It has no side effects
// and triggers no notifications.
func (r *Registry) List() []Resource {
	r.mu.RLock()
	defer r.mu.RUnlock()

	resources := make([]Resource, 0, len(r.resources))
	for _, res := range r.resources {
		resources = append(resources, res)
	}
	sort.Slice(resources, func(i, j int) bool {
		return resources[i].URI < resources[j].URI
	})
	return resources
}

// Get returns the resource for the given URI, if present.
func (r *Registry) Get(uri string) (Resource, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res, ok := r.resources[uri]
	return res, ok
}

// Len returns the number of registered resources.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.resources)
}
