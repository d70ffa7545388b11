package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/foldersync/foldersync/internal/config"
	"github.com/foldersync/foldersync/internal/instrumentation"
	"github.com/foldersync/foldersync/internal/logging"
	"github.com/foldersync/foldersync/internal/server"
	"github.com/foldersync/foldersync/internal/watcher"
)

// serveOptions collects the serve flags that sit outside the config file.
type serveOptions struct {
	configFile       string
	disableStreaming bool
}

func newServeCmd() *cobra.Command {
	var (
		opts            serveOptions
		watchDir        string
		pollInterval    time.Duration
		debugMode       bool
		transport       string
		httpAddr        string
		metricsEnabled  bool
		metricsAddr     string
		fanoutWorkers   int
		fanoutQueueSize int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP folder synchronization server",
		Long: `Start an MCP server that exposes the files of a folder as resources.

The folder is polled for changes; new, modified, and removed files are
translated into resource registrations, removals, and notifications to
connected clients.

Configuration is layered: built-in defaults, then the config file, then
environment variables, then flags.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.Default()

			if opts.configFile == "" {
				opts.configFile = os.Getenv("FOLDERSYNC_CONFIG")
			}
			if opts.configFile != "" {
				loaded, err := config.Load(opts.configFile)
				if err != nil {
					return err
				}
				cfg = loaded
			}

			if err := applyEnvOverrides(&cfg, os.Getenv); err != nil {
				return err
			}

			flags := cmd.Flags()
			if flags.Changed("watch-dir") {
				cfg.WatchDir = watchDir
			}
			if flags.Changed("poll-interval") {
				cfg.PollInterval = config.Duration(pollInterval)
			}
			if flags.Changed("debug") {
				cfg.Debug = debugMode
			}
			if flags.Changed("transport") {
				cfg.Transport = transport
			}
			if flags.Changed("http-addr") {
				cfg.HTTPAddr = httpAddr
			}
			if flags.Changed("metrics-enabled") {
				cfg.Metrics.Enabled = metricsEnabled
			}
			if flags.Changed("metrics-addr") {
				cfg.Metrics.Addr = metricsAddr
			}
			if flags.Changed("fanout-workers") {
				cfg.Fanout.Workers = fanoutWorkers
			}
			if flags.Changed("fanout-queue-size") {
				cfg.Fanout.QueueSize = fanoutQueueSize
			}

			if err := cfg.Validate(); err != nil {
				return err
			}
			return runServe(cfg, opts)
		},
	}

	cmd.Flags().StringVar(&opts.configFile, "config", "", "Path to a YAML config file. Can also use FOLDERSYNC_CONFIG env var.")
	cmd.Flags().StringVar(&watchDir, "watch-dir", "", "Directory to expose as resources. Empty disables the folder watcher. Can also use FOLDERSYNC_WATCH_DIR env var.")
	cmd.Flags().DurationVar(&pollInterval, "poll-interval", 5*time.Second, "Delay between folder poll cycles. Can also use FOLDERSYNC_POLL_INTERVAL env var.")
	cmd.Flags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	cmd.Flags().StringVar(&transport, "transport", config.TransportStdio, "Transport type: stdio or streamable-http")
	cmd.Flags().StringVar(&httpAddr, "http-addr", ":8080", "HTTP server address (for streamable-http transport)")
	cmd.Flags().BoolVar(&opts.disableStreaming, "disable-streaming", false, "Disable streaming for HTTP transport (for compatibility with certain clients)")
	cmd.Flags().BoolVar(&metricsEnabled, "metrics-enabled", false, "Enable the metrics server on a dedicated port. Can also use METRICS_ENABLED env var.")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", ":9090", "Metrics server address. Can also use METRICS_ADDR env var.")
	cmd.Flags().IntVar(&fanoutWorkers, "fanout-workers", 8, "Number of notification delivery workers")
	cmd.Flags().IntVar(&fanoutQueueSize, "fanout-queue-size", 256, "Capacity of the notification delivery queue")

	return cmd
}

// applyEnvOverrides layers environment variables over the config. Flags are
// applied afterwards and win over both.
func applyEnvOverrides(cfg *config.Config, getenv func(string) string) error {
	if dir := getenv("FOLDERSYNC_WATCH_DIR"); dir != "" {
		cfg.WatchDir = dir
	}
	if raw := getenv("FOLDERSYNC_POLL_INTERVAL"); raw != "" {
		interval, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("invalid FOLDERSYNC_POLL_INTERVAL %q: %w", raw, err)
		}
		cfg.PollInterval = config.Duration(interval)
	}
	if transport := getenv("FOLDERSYNC_TRANSPORT"); transport != "" {
		cfg.Transport = transport
	}
	if addr := getenv("FOLDERSYNC_HTTP_ADDR"); addr != "" {
		cfg.HTTPAddr = addr
	}
	if raw := getenv("METRICS_ENABLED"); raw != "" {
		enabled, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("invalid METRICS_ENABLED %q: %w", raw, err)
		}
		cfg.Metrics.Enabled = enabled
	}
	if addr := getenv("METRICS_ADDR"); addr != "" {
		cfg.Metrics.Addr = addr
	}
	if raw := getenv("FOLDERSYNC_DEBUG"); raw != "" {
		debug, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("invalid FOLDERSYNC_DEBUG %q: %w", raw, err)
		}
		cfg.Debug = debug
	}
	return nil
}

func runServe(cfg config.Config, opts serveOptions) error {
	// Setup graceful shutdown
	shutdownCtx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger := logging.Setup(cfg.Debug)

	// Initialize instrumentation provider
	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version

	provider, err := instrumentation.NewProvider(shutdownCtx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		if err := provider.Shutdown(context.Background()); err != nil {
			logger.Error("instrumentation shutdown", logging.Err(err))
		}
	}()

	// Start metrics server if enabled and not in stdio mode
	var metricsServer *server.MetricsServer
	if cfg.Transport != config.TransportStdio && cfg.Metrics.Enabled && provider.Enabled() {
		metricsServer, err = server.NewMetricsServer(server.MetricsServerConfig{
			Addr:                    cfg.Metrics.Addr,
			InstrumentationProvider: provider,
		})
		if err != nil {
			return fmt.Errorf("failed to create metrics server: %w", err)
		}

		// Use ready channel to confirm the metrics server started
		metricsReady := make(chan struct{})
		metricsErr := make(chan error, 1)
		go func() {
			if err := metricsServer.StartWithReadySignal(metricsReady); err != nil && err != http.ErrServerClosed {
				metricsErr <- err
			}
			close(metricsErr)
		}()

		select {
		case <-metricsReady:
			logger.Info("metrics server started", slog.String("addr", metricsServer.Addr()))
		case err := <-metricsErr:
			return fmt.Errorf("metrics server failed to start: %w", err)
		case <-time.After(5 * time.Second):
			return fmt.Errorf("metrics server startup timed out")
		}

		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
			defer cancel()
			if err := metricsServer.Shutdown(ctx); err != nil {
				logger.Error("metrics server shutdown", logging.Err(err))
			}
		}()
	}

	// Wire the synchronization core
	core := server.NewServerContext(shutdownCtx, server.CoreConfig{
		FanoutWorkers:   cfg.Fanout.Workers,
		FanoutQueueSize: cfg.Fanout.QueueSize,
		Logger:          logger,
		Metrics:         provider.Metrics(),
	})
	defer func() {
		if err := core.Shutdown(); err != nil {
			logger.Error("core shutdown", logging.Err(err))
		}
	}()

	bridge := server.NewBridge(core, logger)

	// Subscribe and listChanged stay off: subscriptions go through the
	// resources_subscribe/resources_unsubscribe tools, and advertising
	// listChanged would make the transport broadcast list-changed on every
	// AddResource/DeleteResources on top of the fanout's directed delivery.
	mcpSrv := mcpserver.NewMCPServer("foldersync", version,
		mcpserver.WithResourceCapabilities(false, false),
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithHooks(bridge.Hooks()),
	)
	bridge.Attach(mcpSrv)
	server.RegisterSubscriptionTools(mcpSrv, bridge)

	watcherErr, watchDir, err := startWatcher(shutdownCtx, cfg, core, provider.Metrics(), logger)
	if err != nil {
		return err
	}

	server.RegisterInfoResource(core.Registry(), version, watchDir, cfg.PollInterval.Std())

	logger.Info("starting foldersync MCP server",
		slog.String("transport", cfg.Transport),
		slog.String(logging.KeyWatchDir, watchDir))

	switch cfg.Transport {
	case config.TransportStdio:
		return runStdioServer(shutdownCtx, mcpSrv, watcherErr)
	case config.TransportStreamableHTTP:
		return runStreamableHTTPServer(shutdownCtx, mcpSrv, core, cfg.HTTPAddr, opts.disableStreaming, watcherErr, logger)
	default:
		return fmt.Errorf("unsupported transport type: %s (supported: %s, %s)",
			cfg.Transport, config.TransportStdio, config.TransportStreamableHTTP)
	}
}

// startWatcher creates the folder watcher, registers the pre-existing files,
// and starts the poll loop. A watcher error is fatal: the server cannot keep
// its resource list honest without the folder, so the returned channel makes
// the transport runners shut down. When no watch directory is configured the
// watcher stays off and a nil channel is returned; the server then serves
// only statically registered resources.
func startWatcher(ctx context.Context, cfg config.Config, core *server.ServerContext, metrics *instrumentation.Metrics, logger *slog.Logger) (<-chan error, string, error) {
	if cfg.WatchDir == "" {
		logger.Info("no watch directory configured, folder watcher disabled")
		return nil, "", nil
	}

	w, err := watcher.New(watcher.Config{
		Dir:           cfg.WatchDir,
		PollInterval:  cfg.PollInterval.Std(),
		Registry:      core.Registry(),
		Subscriptions: core.Subscriptions(),
		Notifier:      core.Fanout(),
		Logger:        logger,
		Metrics:       metrics,
	})
	if err != nil {
		return nil, "", err
	}

	if err := w.Scan(ctx); err != nil {
		return nil, "", fmt.Errorf("initial folder scan: %w", err)
	}

	watcherErr := make(chan error, 1)
	go func() {
		watcherErr <- w.Run(ctx)
	}()
	return watcherErr, w.Dir(), nil
}

func runStdioServer(ctx context.Context, mcpSrv *mcpserver.MCPServer, watcherErr <-chan error) error {
	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := mcpserver.ServeStdio(mcpSrv); err != nil {
			serverDone <- err
		}
	}()

	select {
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("server stopped with error: %w", err)
		}
		return nil
	case err := <-watcherErr:
		if err != nil {
			return fmt.Errorf("watcher stopped: %w", err)
		}
		return nil
	case <-ctx.Done():
		return nil
	}
}

func runStreamableHTTPServer(ctx context.Context, mcpSrv *mcpserver.MCPServer, core *server.ServerContext, addr string, disableStreaming bool, watcherErr <-chan error, logger *slog.Logger) error {
	var streamable *mcpserver.StreamableHTTPServer
	if disableStreaming {
		streamable = mcpserver.NewStreamableHTTPServer(mcpSrv,
			mcpserver.WithEndpointPath("/mcp"),
			mcpserver.WithDisableStreaming(true),
		)
	} else {
		streamable = mcpserver.NewStreamableHTTPServer(mcpSrv,
			mcpserver.WithEndpointPath("/mcp"),
		)
	}

	health := server.NewHealthChecker(core)

	mux := http.NewServeMux()
	mux.Handle("/mcp", streamable)
	health.RegisterHealthEndpoints(mux)

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", slog.String("addr", addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
		close(serverErr)
	}()

	shutdown := func() error {
		health.SetReady(false)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	}

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	case err := <-watcherErr:
		shutdownErr := shutdown()
		if err != nil {
			return fmt.Errorf("watcher stopped: %w", err)
		}
		return shutdownErr
	case <-ctx.Done():
		return shutdown()
	}
}
