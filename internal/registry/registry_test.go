package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/foldersync/foldersync/internal/session"
)

// recordingNotifier counts list-changed broadcasts synchronously.
type recordingNotifier struct {
	broadcasts [][]session.Session
}

func (n *recordingNotifier) NotifyListChanged(sessions []session.Session) {
	n.broadcasts = append(n.broadcasts, sessions)
}

type fakeSession struct {
	id string
}

func (s *fakeSession) ID() string                       { return s.id }
func (s *fakeSession) SendListChanged() error           { return nil }
func (s *fakeSession) SendResourceUpdated(string) error { return nil }

func newTestRegistry() (*Registry, *session.Directory, *session.Subscriptions, *recordingNotifier) {
	dir := session.NewDirectory()
	subs := session.NewSubscriptions()
	notifier := &recordingNotifier{}
	return New(dir, subs, notifier, nil), dir, subs, notifier
}

func textResource(uri string) Resource {
	return Resource{
		URI:      uri,
		Name:     uri,
		MIMEType: "text/plain",
		Provider: func(context.Context) (string, error) { return "content", nil },
	}
}

func TestAddAndList(t *testing.T) {
	reg, _, _, notifier := newTestRegistry()

	reg.Add(textResource("file:///b.txt"))
	reg.Add(textResource("file:///a.txt"))

	resources := reg.List()
	assert.Len(t, resources, 2)
	// List is sorted by URI.
	assert.Equal(t, "file:///a.txt", resources[0].URI)
	assert.Equal(t, "file:///b.txt", resources[1].URI)
	assert.Len(t, notifier.broadcasts, 2)
}

func TestAddUpsertNotifiesOnce(t *testing.T) {
	reg, _, _, notifier := newTestRegistry()

	reg.Add(textResource("file:///a.txt"))

	replacement := textResource("file:///a.txt")
	replacement.MIMEType = "application/json"
	reg.Add(replacement)

	// Replacement keeps a single entry and still broadcasts exactly once.
	assert.Equal(t, 1, reg.Len())
	assert.Len(t, notifier.broadcasts, 2)

	got, ok := reg.Get("file:///a.txt")
	assert.True(t, ok)
	assert.Equal(t, "application/json", got.MIMEType)
}

func TestAddEmptyURIPanics(t *testing.T) {
	reg, _, _, _ := newTestRegistry()

	assert.Panics(t, func() {
		reg.Add(Resource{})
	})
}

func TestRemoveIsIdempotent(t *testing.T) {
	reg, _, _, notifier := newTestRegistry()

	reg.Add(textResource("file:///a.txt"))
	reg.Remove("file:///a.txt")
	reg.Remove("file:///a.txt")

	// One broadcast for the add, one for the first removal, none for the
	// no-op second removal.
	assert.Len(t, notifier.broadcasts, 2)
	assert.Equal(t, 0, reg.Len())
}

func TestRemoveCascadesSubscriptions(t *testing.T) {
	reg, _, subs, _ := newTestRegistry()
	sess := &fakeSession{id: "s1"}

	reg.Add(textResource("file:///a.txt"))
	subs.Subscribe("file:///a.txt", sess)

	reg.Remove("file:///a.txt")

	assert.Empty(t, subs.InterestedSessions("file:///a.txt"))
}

func TestBroadcastTargetsDirectorySessions(t *testing.T) {
	reg, dir, _, notifier := newTestRegistry()
	dir.Track(&fakeSession{id: "s1"})
	dir.Track(&fakeSession{id: "s2"})

	reg.Add(textResource("file:///a.txt"))

	assert.Len(t, notifier.broadcasts, 1)
	assert.Len(t, notifier.broadcasts[0], 2)
}

func TestObserverSeesMutations(t *testing.T) {
	reg, _, _, _ := newTestRegistry()

	var added []string
	var replacedFlags []bool
	var removed []string
	reg.Observe(observerFuncs{
		added: func(res Resource, replaced bool) {
			added = append(added, res.URI)
			replacedFlags = append(replacedFlags, replaced)
		},
		removed: func(uri string) { removed = append(removed, uri) },
	})

	reg.Add(textResource("file:///a.txt"))
	reg.Add(textResource("file:///a.txt"))
	reg.Remove("file:///a.txt")
	reg.Remove("file:///a.txt")

	assert.Equal(t, []string{"file:///a.txt", "file:///a.txt"}, added)
	assert.Equal(t, []bool{false, true}, replacedFlags)
	assert.Equal(t, []string{"file:///a.txt"}, removed)
}

// observerFuncs adapts plain funcs to the Observer interface for tests.
type observerFuncs struct {
	added   func(res Resource, replaced bool)
	removed func(uri string)
}

func (o observerFuncs) ResourceAdded(res Resource, replaced bool) { o.added(res, replaced) }
func (o observerFuncs) ResourceRemoved(uri string)                { o.removed(uri) }

func TestListReturnsCopy(t *testing.T) {
	reg, _, _, _ := newTestRegistry()
	reg.Add(textResource("file:///a.txt"))

	first := reg.List()
	reg.Add(textResource("file:///b.txt"))

	assert.Len(t, first, 1)
	assert.Len(t, reg.List(), 2)
}
