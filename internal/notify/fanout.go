package notify

import (
	"context"
	"log/slog"
	"sync"

	"github.com/foldersync/foldersync/internal/instrumentation"
	"github.com/foldersync/foldersync/internal/logging"
	"github.com/foldersync/foldersync/internal/session"
)

const (
	// DefaultWorkers is the number of delivery workers when none is configured.
	DefaultWorkers = 8

	// DefaultQueueSize is the delivery queue capacity when none is configured.
	DefaultQueueSize = 256
)

// FailureHandler is invoked after a delivery to a session fails. The fanout
// uses it to let the wiring prune dead sessions lazily; it runs on a worker
// goroutine and must not block.
type FailureHandler func(sess session.Session, err error)

// Config configures a Fanout.
type Config struct {
	// Workers caps the number of concurrent deliveries (default 8).
	Workers int

	// QueueSize is the capacity of the pending-delivery queue (default 256).
	// When the queue is full, further notifications are dropped; delivery is
	// best effort.
	QueueSize int

	// OnFailure, if set, is called after a failed delivery.
	OnFailure FailureHandler

	// Logger for delivery outcomes. Nil falls back to slog.Default().
	Logger *slog.Logger

	// Metrics records delivery outcomes. May be nil.
	Metrics *instrumentation.Metrics
}

type delivery struct {
	sess session.Session
	kind string
	uri  string
}

// Fanout delivers notifications to sessions through a bounded worker pool.
//
// Each delivery is independent: a failing or slow session never blocks or
// fails deliveries to other sessions, and never propagates an error to the
// mutating caller. Enqueueing is non-blocking; when the queue is saturated
// the notification is dropped and logged, which is acceptable under the
// best-effort delivery contract.
type Fanout struct {
	queue     chan delivery
	wg        sync.WaitGroup
	mu        sync.RWMutex
	closed    bool
	onFailure FailureHandler
	logger    *slog.Logger
	metrics   *instrumentation.Metrics
}

// New creates a Fanout and starts its delivery workers.
func New(cfg Config) *Fanout {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	f := &Fanout{
		queue:     make(chan delivery, cfg.QueueSize),
		onFailure: cfg.OnFailure,
		logger:    logging.WithComponent(logger, "fanout"),
		metrics:   cfg.Metrics,
	}

	f.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go f.worker()
	}
	return f
}

// NotifyListChanged asynchronously delivers a list-changed signal to every
// session in the given set. It never blocks on delivery and never returns
// an error to the caller.
func (f *Fanout) NotifyListChanged(sessions []session.Session) {
	for _, sess := range sessions {
		f.enqueue(delivery{sess: sess, kind: logging.KindListChanged})
	}
}

// NotifyUpdated asynchronously delivers a resource-updated signal for the
// given URI to every session in the given set, normally the URI's
// interested sessions.
func (f *Fanout) NotifyUpdated(uri string, sessions []session.Session) {
	for _, sess := range sessions {
		f.enqueue(delivery{sess: sess, kind: logging.KindResourceUpdated, uri: uri})
	}
}

// Close stops accepting notifications and waits for in-flight deliveries to
// drain.
func (f *Fanout) Close() {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.closed = true
	close(f.queue)
	f.mu.Unlock()

	f.wg.Wait()
}

func (f *Fanout) enqueue(d delivery) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.closed {
		return
	}

	select {
	case f.queue <- d:
	default:
		f.logger.Warn("notification dropped, delivery queue full",
			logging.Kind(d.kind),
			logging.SessionID(d.sess.ID()),
		)
		f.metrics.RecordNotificationDropped(context.Background(), d.kind)
	}
}

func (f *Fanout) worker() {
	defer f.wg.Done()

	for d := range f.queue {
		f.deliver(d)
	}
}

func (f *Fanout) deliver(d delivery) {
	var err error
	switch d.kind {
	case logging.KindListChanged:
		err = d.sess.SendListChanged()
	case logging.KindResourceUpdated:
		err = d.sess.SendResourceUpdated(d.uri)
	}

	if err != nil {
		f.logger.Warn("notification delivery failed",
			logging.Kind(d.kind),
			logging.SessionID(d.sess.ID()),
			logging.URI(d.uri),
			logging.Err(err),
		)
		f.metrics.RecordNotification(context.Background(), d.kind, instrumentation.StatusError)
		if f.onFailure != nil {
			f.onFailure(d.sess, err)
		}
		return
	}

	f.metrics.RecordNotification(context.Background(), d.kind, instrumentation.StatusSuccess)
}
