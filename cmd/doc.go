// Package cmd implements the command-line interface for foldersync.
//
// Commands:
//   - serve: Start the MCP folder synchronization server (default)
//   - version: Display version information
//
// The serve command layers its configuration: built-in defaults, then an
// optional YAML config file, then environment variables, then flags.
package cmd
