// Package logging provides structured logging helpers built on log/slog.
//
// It defines the attribute key constants used across the codebase so that
// log output stays consistent and greppable, small constructors for common
// attributes (Operation, URI, SessionID, Err), and a Setup function that
// installs the process-wide default logger on stderr.
package logging
