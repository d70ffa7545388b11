package logging

import (
	"log/slog"
	"os"
)

// Common log attribute keys for consistent naming across the codebase.
const (
	KeyOperation = "operation"
	KeyComponent = "component"
	KeyURI       = "uri"
	KeySession   = "session_id"
	KeyWatchDir  = "watch_dir"
	KeyKind      = "kind"
	KeyDuration  = "duration"
	KeyStatus    = "status"
	KeyError     = "error"
)

// Status values for consistent logging.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Notification kinds as they appear in log output and metrics labels.
const (
	KindListChanged     = "list_changed"
	KindResourceUpdated = "resource_updated"
)

// WithComponent returns a logger with the component attribute set.
func WithComponent(logger *slog.Logger, component string) *slog.Logger {
	return logger.With(slog.String(KeyComponent, component))
}

// Operation returns a slog attribute for the operation name.
func Operation(op string) slog.Attr {
	return slog.String(KeyOperation, op)
}

// URI returns a slog attribute for a resource URI.
func URI(uri string) slog.Attr {
	return slog.String(KeyURI, uri)
}

// SessionID returns a slog attribute for a session identifier.
func SessionID(id string) slog.Attr {
	return slog.String(KeySession, id)
}

// Kind returns a slog attribute for a notification kind.
func Kind(kind string) slog.Attr {
	return slog.String(KeyKind, kind)
}

// Status returns a slog attribute for the status.
func Status(status string) slog.Attr {
	return slog.String(KeyStatus, status)
}

// Err returns a slog attribute for an error.
// If err is nil, returns an empty Group attribute that will be omitted from
// output, so Err(maybeNilErr) is always safe to pass.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Group("")
	}
	return slog.String(KeyError, err.Error())
}

// Setup configures the process-wide default slog logger and returns it.
//
// All log output goes to stderr: with the stdio transport stdout carries the
// MCP protocol stream and must stay clean. Debug mode lowers the level to
// slog.LevelDebug.
func Setup(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}
