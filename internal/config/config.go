package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Transport names accepted in configuration.
const (
	TransportStdio          = "stdio"
	TransportStreamableHTTP = "streamable-http"
)

// Duration wraps time.Duration so YAML values like "5s" parse naturally.
type Duration time.Duration

// UnmarshalYAML parses a Go duration string.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML renders the duration back as a string.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// FanoutConfig bounds the notification delivery pool.
type FanoutConfig struct {
	Workers   int `yaml:"workers"`
	QueueSize int `yaml:"queueSize"`
}

// MetricsConfig controls the dedicated Prometheus listener.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// Config is the server configuration. Values from a config file are
// overridden by environment variables and flags in the serve command.
type Config struct {
	// WatchDir is the directory exposed as resources. When empty the
	// folder watcher is disabled and the server serves only statically
	// registered resources.
	WatchDir string `yaml:"watchDir"`

	// PollInterval is the delay between folder poll cycles.
	PollInterval Duration `yaml:"pollInterval"`

	// Transport selects how clients connect: stdio or streamable-http.
	Transport string `yaml:"transport"`

	// HTTPAddr is the listen address for the streamable-http transport.
	HTTPAddr string `yaml:"httpAddr"`

	Fanout  FanoutConfig  `yaml:"fanout"`
	Metrics MetricsConfig `yaml:"metrics"`

	// Debug enables debug-level logging.
	Debug bool `yaml:"debug"`
}

// Default returns the configuration used when no file or overrides are
// present. WatchDir has no default; without one the watcher stays off.
func Default() Config {
	return Config{
		PollInterval: Duration(5 * time.Second),
		Transport:    TransportStdio,
		HTTPAddr:     ":8080",
		Fanout: FanoutConfig{
			Workers:   8,
			QueueSize: 256,
		},
		Metrics: MetricsConfig{
			Addr: ":9090",
		},
	}
}

// Load reads a YAML config file over the defaults. Unknown keys are
// rejected so typos fail loudly instead of silently using defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config file %s: %w", path, err)
	}

	if err := unmarshalStrict(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return cfg, nil
}

func unmarshalStrict(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	err := dec.Decode(cfg)
	// An empty file keeps the defaults.
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// Validate checks the configuration for values the server cannot run with.
func (c Config) Validate() error {
	if c.PollInterval.Std() <= 0 {
		return fmt.Errorf("pollInterval must be positive, got %s", c.PollInterval.Std())
	}
	switch c.Transport {
	case TransportStdio, TransportStreamableHTTP:
	default:
		return fmt.Errorf("invalid transport %q (must be %s or %s)",
			c.Transport, TransportStdio, TransportStreamableHTTP)
	}
	if c.Transport == TransportStreamableHTTP && c.HTTPAddr == "" {
		return fmt.Errorf("httpAddr is required for the %s transport", TransportStreamableHTTP)
	}
	if c.Fanout.Workers < 0 || c.Fanout.QueueSize < 0 {
		return fmt.Errorf("fanout workers and queueSize must not be negative")
	}
	return nil
}
