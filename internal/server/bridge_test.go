package server

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foldersync/foldersync/internal/registry"
)

// fakeTransport records the bridge's calls against the MCP server.
type fakeTransport struct {
	mu       sync.Mutex
	added    []string
	deleted  []string
	notified []string // "sessionID method" pairs
	sendErr  error
}

func (t *fakeTransport) AddResource(resource mcp.Resource, _ mcpserver.ResourceHandlerFunc) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.added = append(t.added, resource.URI)
}

func (t *fakeTransport) DeleteResources(uris ...string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.deleted = append(t.deleted, uris...)
}

func (t *fakeTransport) SendNotificationToSpecificClient(sessionID string, method string, _ map[string]any) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.notified = append(t.notified, sessionID+" "+method)
	return t.sendErr
}

// fakeClientSession satisfies mcpserver.ClientSession for context plumbing.
type fakeClientSession struct {
	id          string
	ch          chan mcp.JSONRPCNotification
	initialized bool
}

func newFakeClientSession(id string) *fakeClientSession {
	return &fakeClientSession{id: id, ch: make(chan mcp.JSONRPCNotification, 8)}
}

func (s *fakeClientSession) SessionID() string { return s.id }
func (s *fakeClientSession) NotificationChannel() chan<- mcp.JSONRPCNotification {
	return s.ch
}
func (s *fakeClientSession) Initialize()       { s.initialized = true }
func (s *fakeClientSession) Initialized() bool { return s.initialized }

func newTestBridge(t *testing.T) (*ServerContext, *Bridge, *fakeTransport) {
	t.Helper()

	core := NewServerContext(context.Background(), CoreConfig{})
	t.Cleanup(func() { _ = core.Shutdown() })

	bridge := NewBridge(core, nil)
	transport := &fakeTransport{}
	bridge.Attach(transport)
	return core, bridge, transport
}

// sessionContext builds a request context carrying the given client
// session, the way the MCP server does for handlers and hooks.
func sessionContext(cs mcpserver.ClientSession) context.Context {
	srv := mcpserver.NewMCPServer("test", "0.0.0")
	return srv.WithContext(context.Background(), cs)
}

func testResource(uri, content string) registry.Resource {
	return registry.Resource{
		URI:      uri,
		Name:     uri,
		MIMEType: "text/plain",
		Provider: func(context.Context) (string, error) { return content, nil },
	}
}

func TestBridgeMirrorsRegistryMutations(t *testing.T) {
	core, _, transport := newTestBridge(t)

	core.Registry().Add(testResource("file:///a.txt", "a"))
	core.Registry().Remove("file:///a.txt")

	transport.mu.Lock()
	defer transport.mu.Unlock()
	assert.Equal(t, []string{"file:///a.txt"}, transport.added)
	assert.Equal(t, []string{"file:///a.txt"}, transport.deleted)
}

func TestReadResourceServesProviderContent(t *testing.T) {
	core, bridge, _ := newTestBridge(t)
	core.Registry().Add(testResource("file:///a.txt", "hello"))

	req := mcp.ReadResourceRequest{}
	req.Params.URI = "file:///a.txt"

	contents, err := bridge.readResource(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, contents, 1)

	text, ok := contents[0].(mcp.TextResourceContents)
	require.True(t, ok)
	assert.Equal(t, "hello", text.Text)
	assert.Equal(t, "text/plain", text.MIMEType)
	assert.Equal(t, "file:///a.txt", text.URI)
}

func TestReadResourceUnknownURI(t *testing.T) {
	_, bridge, _ := newTestBridge(t)

	req := mcp.ReadResourceRequest{}
	req.Params.URI = "file:///missing.txt"

	_, err := bridge.readResource(context.Background(), req)
	assert.Error(t, err)
}

func TestSubscribeRequiresSession(t *testing.T) {
	_, bridge, _ := newTestBridge(t)

	err := bridge.Subscribe(context.Background(), "file:///a.txt")
	assert.ErrorIs(t, err, ErrNoSession)

	err = bridge.Unsubscribe(context.Background(), "file:///a.txt")
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestSubscribeAndUnsubscribe(t *testing.T) {
	core, bridge, _ := newTestBridge(t)
	ctx := sessionContext(newFakeClientSession("s1"))

	require.NoError(t, bridge.Subscribe(ctx, "file:///a.txt"))
	interested := core.Subscriptions().InterestedSessions("file:///a.txt")
	require.Len(t, interested, 1)
	assert.Equal(t, "s1", interested[0].ID())

	require.NoError(t, bridge.Unsubscribe(ctx, "file:///a.txt"))
	assert.Empty(t, core.Subscriptions().InterestedSessions("file:///a.txt"))
}

func TestTrackCallerAndDropClient(t *testing.T) {
	core, bridge, _ := newTestBridge(t)
	ctx := sessionContext(newFakeClientSession("s1"))

	bridge.TrackCaller(ctx)
	bridge.TrackCaller(ctx) // idempotent
	assert.Equal(t, 1, core.Directory().Len())

	require.NoError(t, bridge.Subscribe(ctx, "file:///a.txt"))

	bridge.DropClient("s1")
	assert.Equal(t, 0, core.Directory().Len())
	assert.Empty(t, core.Subscriptions().InterestedSessions("file:///a.txt"))
}

func TestTrackCallerWithoutSessionIsIgnored(t *testing.T) {
	core, bridge, _ := newTestBridge(t)

	bridge.TrackCaller(context.Background())
	assert.Equal(t, 0, core.Directory().Len())
}

// A registry mutation must reach a tracked session exactly once, and only
// tracked sessions: the fanout is the sole source of list-changed
// notifications, with the MCP server's own broadcast kept off.
func TestRegistryAddDeliversSingleListChanged(t *testing.T) {
	core := NewServerContext(context.Background(), CoreConfig{})
	t.Cleanup(func() { _ = core.Shutdown() })

	bridge := NewBridge(core, nil)
	srv := mcpserver.NewMCPServer("test", "0.0.0",
		mcpserver.WithResourceCapabilities(false, false),
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithHooks(bridge.Hooks()),
	)
	bridge.Attach(srv)

	tracked := newFakeClientSession("s1")
	require.NoError(t, srv.RegisterSession(context.Background(), tracked))
	tracked.Initialize()
	core.Directory().Track(newMCPSession(tracked.SessionID(), srv))

	// Initialized but never listed resources, so never tracked.
	bystander := newFakeClientSession("s2")
	require.NoError(t, srv.RegisterSession(context.Background(), bystander))
	bystander.Initialize()

	core.Registry().Add(testResource("file:///a.txt", "a"))

	select {
	case n := <-tracked.ch:
		assert.Equal(t, methodResourcesListChanged, n.Method)
	case <-time.After(time.Second):
		t.Fatal("no list-changed notification delivered to the tracked session")
	}

	select {
	case n := <-tracked.ch:
		t.Fatalf("tracked session received a second notification: %s", n.Method)
	case n := <-bystander.ch:
		t.Fatalf("untracked session received a notification: %s", n.Method)
	case <-time.After(100 * time.Millisecond):
	}
}
