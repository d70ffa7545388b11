package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"time"

	"github.com/foldersync/foldersync/internal/instrumentation"
	"github.com/foldersync/foldersync/internal/logging"
	"github.com/foldersync/foldersync/internal/registry"
	"github.com/foldersync/foldersync/internal/session"
)

// DefaultPollInterval is the delay between poll cycles when none is
// configured.
const DefaultPollInterval = 5 * time.Second

// fallbackMIMEType is used when the file extension is not recognized.
const fallbackMIMEType = "text/plain"

// Registry is the subset of the resource registry the watcher mutates.
type Registry interface {
	Add(res registry.Resource)
	Remove(uri string)
}

// Subscriptions resolves the sessions interested in a URI's updates.
type Subscriptions interface {
	InterestedSessions(uri string) []session.Session
}

// Notifier delivers resource-updated signals for modified files.
type Notifier interface {
	NotifyUpdated(uri string, sessions []session.Session)
}

// Config configures a Watcher.
type Config struct {
	// Dir is the directory to watch. Required.
	Dir string

	// PollInterval is the fixed delay between poll cycles
	// (default DefaultPollInterval). The delay is measured from the end of
	// one diff to the start of the next, not as a fixed rate.
	PollInterval time.Duration

	Registry      Registry
	Subscriptions Subscriptions
	Notifier      Notifier

	// Logger for watcher events. Nil falls back to slog.Default().
	Logger *slog.Logger

	// Metrics records cycle timing and event counts. May be nil.
	Metrics *instrumentation.Metrics
}

// Watcher polls a directory, diffs it against the last observed snapshot,
// and translates the diff into registry mutations and notifications.
//
// The watcher never re-reads file content itself; resources it registers
// carry a lazy content provider, and a modification only signals "re-fetch".
type Watcher struct {
	dir      string
	interval time.Duration

	registry Registry
	subs     Subscriptions
	notifier Notifier
	logger   *slog.Logger
	metrics  *instrumentation.Metrics

	// snapshot maps absolute file path to the last observed modification
	// time. It is owned by the watcher goroutine; cycles never re-enter.
	snapshot map[string]time.Time
}

// New creates a Watcher for the given directory. The directory path is
// resolved to an absolute path so resource URIs are stable.
func New(cfg Config) (*Watcher, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("watcher: directory is required")
	}
	dir, err := filepath.Abs(cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("watcher: resolve directory %q: %w", cfg.Dir, err)
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Watcher{
		dir:      dir,
		interval: cfg.PollInterval,
		registry: cfg.Registry,
		subs:     cfg.Subscriptions,
		notifier: cfg.Notifier,
		logger:   logging.WithComponent(logger, "watcher").With(slog.String(logging.KeyWatchDir, dir)),
		metrics:  cfg.Metrics,
	}, nil
}

// Dir returns the absolute path of the watched directory.
func (w *Watcher) Dir() string {
	return w.dir
}

// Scan performs the initial directory scan: every pre-existing file is
// registered as a resource, and the result seeds the snapshot for the
// first poll cycle. Call once before Run.
func (w *Watcher) Scan(ctx context.Context) error {
	current, err := w.readDir()
	if err != nil {
		return err
	}

	for path := range current {
		w.registry.Add(w.resourceFor(path))
	}
	w.snapshot = current

	w.logger.Info("initial scan complete", slog.Int("files", len(current)))
	return nil
}

// Run executes the poll loop until ctx is cancelled or a directory
// enumeration fails. Cancellation during the inter-cycle sleep returns nil
// without running another mutation cycle; an enumeration failure is fatal
// and returned to the supervisor.
func (w *Watcher) Run(ctx context.Context) error {
	if w.snapshot == nil {
		if err := w.Scan(ctx); err != nil {
			return err
		}
	}

	timer := time.NewTimer(w.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("watcher stopped")
			return nil
		case <-timer.C:
		}

		if err := w.cycle(ctx); err != nil {
			w.logger.Error("watch directory enumeration failed", logging.Err(err))
			return err
		}

		// Fixed delay, not fixed rate: rearm after the diff completes.
		timer.Reset(w.interval)
	}
}

// cycle performs one poll: enumerate, diff against the previous snapshot,
// apply mutations, and replace the snapshot wholesale.
func (w *Watcher) cycle(ctx context.Context) error {
	cycleCtx, span := instrumentation.StartWatcherSpan(ctx, w.dir)
	defer span.End()
	start := time.Now()

	current, err := w.readDir()
	if err != nil {
		instrumentation.SetSpanError(span, err)
		return err
	}

	for path, mtime := range current {
		prev, existed := w.snapshot[path]
		switch {
		case !existed:
			uri := fileURI(path)
			w.logger.Info("new resource", logging.URI(uri))
			w.metrics.RecordWatcherEvent(cycleCtx, instrumentation.EventNew)
			w.registry.Add(w.resourceFor(path))
		case !prev.Equal(mtime):
			uri := fileURI(path)
			w.logger.Info("modified resource", logging.URI(uri))
			w.metrics.RecordWatcherEvent(cycleCtx, instrumentation.EventModified)
			w.notifier.NotifyUpdated(uri, w.subs.InterestedSessions(uri))
		}
	}

	for path := range w.snapshot {
		if _, ok := current[path]; ok {
			continue
		}
		uri := fileURI(path)
		w.logger.Info("removed resource", logging.URI(uri))
		w.metrics.RecordWatcherEvent(cycleCtx, instrumentation.EventRemoved)
		w.registry.Remove(uri)
	}

	w.snapshot = current

	w.metrics.RecordWatcherCycle(cycleCtx, time.Since(start))
	instrumentation.SetSpanSuccess(span)
	return nil
}

// readDir enumerates the regular files of the watched directory with their
// modification times. An enumeration error is fatal to the watcher; a file
// that vanishes between listing and stat is simply skipped and picked up as
// removed on the next cycle.
func (w *Watcher) readDir() (map[string]time.Time, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return nil, fmt.Errorf("enumerate watch directory %s: %w", w.dir, err)
	}

	files := make(map[string]time.Time, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files[filepath.Join(w.dir, entry.Name())] = info.ModTime()
	}
	return files, nil
}

// resourceFor builds the Resource for a file path, wrapping a content
// provider that reads the file lazily on every access.
func (w *Watcher) resourceFor(path string) registry.Resource {
	return registry.Resource{
		URI:      fileURI(path),
		Name:     filepath.Base(path),
		MIMEType: mimeTypeFor(path),
		Provider: func(ctx context.Context) (string, error) {
			data, err := os.ReadFile(path)
			if err != nil {
				return "", fmt.Errorf("read resource %s: %w", path, err)
			}
			return string(data), nil
		},
	}
}

// fileURI converts an absolute file path to a file:// URI.
func fileURI(path string) string {
	return "file://" + filepath.ToSlash(path)
}

// mimeTypeFor guesses the MIME type from the file extension, falling back
// to text/plain when the extension is unknown.
func mimeTypeFor(path string) string {
	if mt := mime.TypeByExtension(filepath.Ext(path)); mt != "" {
		return mt
	}
	return fallbackMIMEType
}
