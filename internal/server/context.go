package server

import (
	"context"
	"log/slog"
	"sync"

	"github.com/foldersync/foldersync/internal/instrumentation"
	"github.com/foldersync/foldersync/internal/logging"
	"github.com/foldersync/foldersync/internal/notify"
	"github.com/foldersync/foldersync/internal/registry"
	"github.com/foldersync/foldersync/internal/session"
)

// CoreConfig configures the synchronization core owned by a ServerContext.
type CoreConfig struct {
	// FanoutWorkers and FanoutQueueSize bound the notification delivery
	// pool. Zero values use the notify package defaults.
	FanoutWorkers   int
	FanoutQueueSize int

	// Logger for core components. Nil falls back to slog.Default().
	Logger *slog.Logger

	// Metrics records core activity. May be nil.
	Metrics *instrumentation.Metrics
}

// ServerContext wires and owns the synchronization core: the session
// directory, the subscription index, the notification fanout, and the
// resource registry. It is the single place where the pieces meet, so the
// transport bridge and the watcher only ever see the interfaces they need.
type ServerContext struct {
	ctx    context.Context
	cancel context.CancelFunc

	directory     *session.Directory
	subscriptions *session.Subscriptions
	fanout        *notify.Fanout
	registry      *registry.Registry

	logger  *slog.Logger
	metrics *instrumentation.Metrics

	mu       sync.RWMutex
	shutdown bool
}

// NewServerContext creates the core and starts its fanout workers. Delivery
// failures prune the failing session from the directory and the
// subscription index, so a client that vanished without unregistering stops
// costing deliveries after its first failure.
func NewServerContext(ctx context.Context, cfg CoreConfig) *ServerContext {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	coreCtx, cancel := context.WithCancel(ctx)
	sc := &ServerContext{
		ctx:     coreCtx,
		cancel:  cancel,
		logger:  logging.WithComponent(logger, "core"),
		metrics: cfg.Metrics,
	}

	sc.directory = session.NewDirectory()
	sc.subscriptions = session.NewSubscriptions()
	sc.fanout = notify.New(notify.Config{
		Workers:   cfg.FanoutWorkers,
		QueueSize: cfg.FanoutQueueSize,
		OnFailure: sc.pruneSession,
		Logger:    logger,
		Metrics:   cfg.Metrics,
	})
	sc.registry = registry.New(sc.directory, sc.subscriptions, sc.fanout, logger)

	return sc
}

// pruneSession drops a session whose delivery failed. Failed delivery is
// the signal that the client is gone; the transport's unregister hook
// handles orderly disconnects, this handles the rest.
func (sc *ServerContext) pruneSession(sess session.Session, err error) {
	if sc.directory.Untrack(sess) {
		sc.metrics.AddTrackedSessions(sc.ctx, -1)
	}
	if pruned := sc.subscriptions.DropSession(sess); pruned > 0 {
		sc.metrics.AddSubscribedResources(sc.ctx, -int64(pruned))
	}
	sc.logger.Info("pruned unreachable session",
		logging.SessionID(sess.ID()),
		logging.Err(err))
}

// Context returns the core's lifecycle context.
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// Registry returns the resource registry.
func (sc *ServerContext) Registry() *registry.Registry {
	return sc.registry
}

// Directory returns the tracked-session directory.
func (sc *ServerContext) Directory() *session.Directory {
	return sc.directory
}

// Subscriptions returns the subscription index.
func (sc *ServerContext) Subscriptions() *session.Subscriptions {
	return sc.subscriptions
}

// Fanout returns the notification fanout.
func (sc *ServerContext) Fanout() *notify.Fanout {
	return sc.fanout
}

// Metrics returns the metrics recorder, which may be nil.
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	return sc.metrics
}

// IsShutdown returns whether the core has been shut down.
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown cancels the core context and drains the fanout workers.
// Subsequent calls are no-ops.
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	if sc.shutdown {
		sc.mu.Unlock()
		return nil
	}
	sc.shutdown = true
	sc.mu.Unlock()

	sc.cancel()
	sc.fanout.Close()
	sc.logger.Info("core shut down")
	return nil
}
