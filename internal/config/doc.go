// Package config loads and validates the server configuration.
//
// Configuration is layered: built-in defaults, then an optional YAML file,
// then environment variables and flags applied by the serve command. The
// file parser rejects unknown keys so a misspelled option is an error
// rather than a silently ignored setting.
package config
