package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/marmos91/asyncload/internal/logger"
	"github.com/marmos91/asyncload/internal/telemetry"
	"github.com/marmos91/asyncload/pkg/api"
	"github.com/marmos91/asyncload/pkg/config"
	"github.com/spf13/cobra"
)

var (
	servePidFile     string
	serveWatchConfig bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the loader with its status and control API",
	Long: `Run a long-lived loader in the foreground.

The loader is ticked on a dedicated goroutine at loader.tick_interval. The
HTTP API (api.port) accepts load requests, reports package progress and
exposes suspend, resume and cancel controls. Prometheus metrics are served
on metrics.port when enabled.

Examples:
  # Serve with the default config location
  asyncload serve

  # Serve with a custom config file and a PID file
  asyncload serve --config /etc/asyncload/config.yaml --pid-file /run/asyncload.pid

  # Use the worker strategy through the environment
  ASYNCLOAD_LOADER_MULTITHREADED=true asyncload serve`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&servePidFile, "pid-file", "", "Path to PID file (default: none)")
	serveCmd.Flags().BoolVar(&serveWatchConfig, "watch-config", true, "Reload logging settings when the config file changes")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	// Initialize the structured logger
	if err := InitLogger(cfg); err != nil {
		return err
	}

	// Create cancellable context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownObservability, err := InitObservability(ctx, cfg)
	if err != nil {
		return err
	}
	defer shutdownObservability()

	fmt.Println("AsyncLoad - Event-driven package loader")
	logger.Info("Log level", "level", cfg.Logging.Level, "format", cfg.Logging.Format)
	logger.Info("Configuration loaded", "source", getConfigSource(GetConfigFile()))
	if telemetry.IsEnabled() {
		logger.Info("Telemetry enabled", "endpoint", cfg.Telemetry.Endpoint, "sample_rate", cfg.Telemetry.SampleRate)
	} else {
		logger.Info("Telemetry disabled")
	}
	if telemetry.IsProfilingEnabled() {
		logger.Info("Profiling enabled", "endpoint", cfg.Telemetry.Profiling.Endpoint, "profile_types", cfg.Telemetry.Profiling.ProfileTypes)
	} else {
		logger.Info("Profiling disabled")
	}

	// Initialize metrics FIRST (before creating the store and loader that use metrics)
	metricsResult := config.InitializeMetrics(cfg)

	rt, err := config.InitializeRuntime(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize runtime: %w", err)
	}
	defer func() {
		if err := rt.Close(); err != nil {
			logger.Error("Runtime shutdown error", "error", err)
		}
	}()

	if err := rt.Loader.Start(ctx); err != nil {
		return fmt.Errorf("failed to start loader: %w", err)
	}
	logger.Info("Loader started",
		"strategy", rt.Loader.Status().Strategy,
		"tick_interval", cfg.Loader.TickInterval,
		"time_limit", cfg.Loader.TimeLimit)

	// Write PID file if specified
	if servePidFile != "" {
		if err := os.WriteFile(servePidFile, []byte(fmt.Sprintf("%d", os.Getpid())), 0644); err != nil {
			return fmt.Errorf("failed to write PID file: %w", err)
		}
		defer func() { _ = os.Remove(servePidFile) }()
	}

	runner := rt.NewRunner()

	var apiServer *api.Server
	if cfg.API.IsEnabled() {
		apiServer, err = api.NewServer(cfg.API, api.Dependencies{
			Loader:    runner,
			Store:     rt.Store,
			StoreType: rt.Store.Type(),
		})
		if err != nil {
			return fmt.Errorf("failed to create API server: %w", err)
		}
	}

	serverDone := make(chan error, 3)
	running := 1
	go func() {
		serverDone <- runner.Run(ctx)
	}()

	if metricsResult.Server != nil {
		logger.Info("Metrics enabled", "port", cfg.Metrics.Port)
		running++
		go func() {
			serverDone <- serveMetrics(ctx, metricsResult.Server, cfg)
		}()
	} else {
		logger.Info("Metrics collection disabled")
	}

	if apiServer != nil {
		logger.Info("API server enabled", "port", apiServer.Port())
		running++
		go func() {
			serverDone <- apiServer.Start(ctx)
		}()
	} else {
		logger.Info("API server disabled")
	}

	if serveWatchConfig {
		path := GetConfigFile()
		if path == "" {
			path = config.GetDefaultConfigPath()
		}
		go func() {
			if err := config.Watch(ctx, path, func(next *config.Config) { applyReload(cfg, next) }); err != nil {
				logger.Warn("Config watching disabled", "error", err)
			}
		}()
	}

	// Wait for interrupt signal or server error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	logger.Info("Loader is running. Press Ctrl+C to stop.")

	var serveErr error
	select {
	case <-sigChan:
		logger.Info("Shutdown signal received, initiating graceful shutdown")
	case serveErr = <-serverDone:
		running--
		if serveErr != nil {
			logger.Error("Server error", "error", serveErr)
		}
	}
	cancel()

	for ; running > 0; running-- {
		if err := <-serverDone; err != nil {
			serveErr = errors.Join(serveErr, err)
		}
	}
	if serveErr != nil {
		return serveErr
	}

	logger.Info("Loader stopped gracefully")
	return nil
}

// serveMetrics runs the metrics server until ctx is done.
func serveMetrics(ctx context.Context, srv *http.Server, cfg *config.Config) error {
	errChan := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("metrics server failed: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errChan:
		return err
	}
}

// applyReload applies the settings of next that can change at runtime and
// warns about the ones that need a restart.
func applyReload(current, next *config.Config) {
	if next.Logging.Level != current.Logging.Level {
		logger.SetLevel(next.Logging.Level)
		logger.Info("Log level changed", "level", next.Logging.Level)
	}
	if next.Logging.Format != current.Logging.Format {
		logger.SetFormat(next.Logging.Format)
		logger.Info("Log format changed", "format", next.Logging.Format)
	}
	current.Logging.Level = next.Logging.Level
	current.Logging.Format = next.Logging.Format

	if next.Loader != current.Loader || next.Store.Type != current.Store.Type {
		logger.Warn("Loader and store changes take effect after a restart")
	}
}
