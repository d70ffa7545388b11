package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/foldersync/foldersync/internal/logging"
	"github.com/foldersync/foldersync/internal/registry"
)

// ErrNoSession is returned when a subscription request arrives without a
// client session in its context.
var ErrNoSession = errors.New("no client session in request context")

// Transport is the subset of the MCP server the bridge drives: mirroring
// registry state into the resource list and notifying individual clients.
type Transport interface {
	ClientNotifier
	AddResource(resource mcp.Resource, handler mcpserver.ResourceHandlerFunc)
	DeleteResources(uris ...string)
}

// Bridge connects the synchronization core to an MCP server instance.
//
// It mirrors registry mutations into the transport's resource list, tracks
// sessions as they list resources or disconnect, and resolves the calling
// session for subscribe and unsubscribe requests.
type Bridge struct {
	core      *ServerContext
	transport Transport
	logger    *slog.Logger
}

// NewBridge creates a bridge for the given core. Call Attach with the MCP
// server before any registry mutation; the two-step construction exists
// because the server itself is built with hooks the bridge provides.
func NewBridge(core *ServerContext, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{
		core:   core,
		logger: logging.WithComponent(logger, "bridge"),
	}
}

// Attach binds the bridge to its transport and registers it as a registry
// observer. Must be called after the MCP server is constructed and before
// the initial folder scan registers any resources.
func (b *Bridge) Attach(transport Transport) {
	b.transport = transport
	b.core.Registry().Observe(b)
}

// Hooks returns MCP server hooks that keep the session directory in step
// with the transport's session lifecycle: a session is tracked when it
// first lists resources and dropped when it unregisters.
func (b *Bridge) Hooks() *mcpserver.Hooks {
	hooks := &mcpserver.Hooks{}
	hooks.AddAfterListResources(func(ctx context.Context, _ any, _ *mcp.ListResourcesRequest, _ *mcp.ListResourcesResult) {
		b.TrackCaller(ctx)
	})
	hooks.AddOnUnregisterSession(func(_ context.Context, cs mcpserver.ClientSession) {
		b.DropClient(cs.SessionID())
	})
	return hooks
}

// ResourceAdded mirrors a registry insert or replace into the transport.
func (b *Bridge) ResourceAdded(res registry.Resource, replaced bool) {
	b.transport.AddResource(
		mcp.NewResource(res.URI, res.Name, mcp.WithMIMEType(res.MIMEType)),
		b.readResource,
	)
	if !replaced {
		b.core.Metrics().AddResources(context.Background(), 1)
	}
}

// ResourceRemoved mirrors a registry removal into the transport.
func (b *Bridge) ResourceRemoved(uri string) {
	b.transport.DeleteResources(uri)
	b.core.Metrics().AddResources(context.Background(), -1)
}

// readResource serves a resources/read request. Content is fetched through
// the registry entry's provider at read time, never from a cached copy, so
// an update notification followed by a read always observes fresh content.
func (b *Bridge) readResource(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uri := request.Params.URI

	res, ok := b.core.Registry().Get(uri)
	if !ok {
		return nil, fmt.Errorf("resource not found: %s", uri)
	}

	text, err := res.Provider(ctx)
	if err != nil {
		return nil, fmt.Errorf("read resource %s: %w", uri, err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: res.MIMEType,
			Text:     text,
		},
	}, nil
}

// TrackCaller adds the session from the request context to the directory.
// Requests without a session context are ignored.
func (b *Bridge) TrackCaller(ctx context.Context) {
	cs := mcpserver.ClientSessionFromContext(ctx)
	if cs == nil {
		return
	}

	id := cs.SessionID()
	if b.core.Directory().Track(newMCPSession(id, b.transport)) {
		b.core.Metrics().AddTrackedSessions(ctx, 1)
		b.logger.Debug("session tracked", logging.SessionID(id))
	}
}

// DropClient removes a disconnected session from the directory and from
// every subscription set.
func (b *Bridge) DropClient(id string) {
	sess := newMCPSession(id, b.transport)

	if b.core.Directory().Untrack(sess) {
		b.core.Metrics().AddTrackedSessions(context.Background(), -1)
	}
	if pruned := b.core.Subscriptions().DropSession(sess); pruned > 0 {
		b.core.Metrics().AddSubscribedResources(context.Background(), -int64(pruned))
	}

	b.logger.Debug("session dropped", logging.SessionID(id))
}

// Subscribe registers the calling session's interest in updates for a URI.
// The URI does not have to name a registered resource: a client may
// subscribe ahead of a file it expects to appear.
func (b *Bridge) Subscribe(ctx context.Context, uri string) error {
	cs := mcpserver.ClientSessionFromContext(ctx)
	if cs == nil {
		return ErrNoSession
	}

	id := cs.SessionID()
	if b.core.Subscriptions().Subscribe(uri, newMCPSession(id, b.transport)) {
		b.core.Metrics().AddSubscribedResources(ctx, 1)
	}

	b.logger.Debug("session subscribed",
		logging.SessionID(id),
		logging.URI(uri))
	return nil
}

// Unsubscribe removes the calling session's interest in a URI. Removing an
// interest that was never registered is a no-op.
func (b *Bridge) Unsubscribe(ctx context.Context, uri string) error {
	cs := mcpserver.ClientSessionFromContext(ctx)
	if cs == nil {
		return ErrNoSession
	}

	id := cs.SessionID()
	if b.core.Subscriptions().Unsubscribe(uri, newMCPSession(id, b.transport)) {
		b.core.Metrics().AddSubscribedResources(ctx, -1)
	}

	b.logger.Debug("session unsubscribed",
		logging.SessionID(id),
		logging.URI(uri))
	return nil
}
