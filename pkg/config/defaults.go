package config

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/marmos91/asyncload/internal/bytesize"
	"github.com/marmos91/asyncload/pkg/api"
	sqlstore "github.com/marmos91/asyncload/pkg/store/sql"
)

// appName names the configuration directory and the default data paths.
const appName = "asyncload"

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// This function is called after loading configuration from file and environment
// variables to fill in any missing values with sensible defaults.
//
// Default Strategy:
//   - Zero values (0, "", false, nil) are replaced with defaults
//   - Explicit values are preserved
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyShutdownTimeoutDefaults(cfg)
	applyMetricsDefaults(&cfg.Metrics)
	applyAPIDefaults(&cfg.API)
	applyLoaderDefaults(&cfg.Loader)
	applyStoreDefaults(&cfg.Store)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	// Normalize log level to uppercase for consistent internal representation
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

// applyTelemetryDefaults sets OpenTelemetry defaults.
func applyTelemetryDefaults(cfg *TelemetryConfig) {
	// Default endpoint is localhost:4317 (standard OTLP gRPC port)
	if cfg.Endpoint == "" {
		cfg.Endpoint = "localhost:4317"
	}

	// Default sample rate is 1.0 (sample all traces)
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 1.0
	}

	applyProfilingDefaults(&cfg.Profiling)
}

// applyProfilingDefaults sets Pyroscope profiling defaults.
func applyProfilingDefaults(cfg *ProfilingConfig) {
	// Default endpoint is localhost:4040 (standard Pyroscope port)
	if cfg.Endpoint == "" {
		cfg.Endpoint = "http://localhost:4040"
	}

	if len(cfg.ProfileTypes) == 0 {
		cfg.ProfileTypes = []string{
			"cpu",
			"alloc_objects",
			"alloc_space",
			"inuse_objects",
			"inuse_space",
			"goroutines",
		}
	}
}

// applyShutdownTimeoutDefaults sets shutdown timeout defaults.
func applyShutdownTimeoutDefaults(cfg *Config) {
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
}

// applyMetricsDefaults sets metrics defaults.
func applyMetricsDefaults(cfg *MetricsConfig) {
	// Port defaults to 9090 if metrics are enabled
	if cfg.Enabled && cfg.Port == 0 {
		cfg.Port = 9090
	}
}

// applyAPIDefaults sets status API server defaults.
func applyAPIDefaults(cfg *api.APIConfig) {
	cfg.ApplyDefaults()
}

// applyLoaderDefaults sets loader defaults. Zero TimeLimit and
// MaxPackageSize are meaningful and only defaulted by GetDefaultConfig.
func applyLoaderDefaults(cfg *LoaderConfig) {
	if cfg.TickInterval == 0 {
		cfg.TickInterval = 16 * time.Millisecond
	}
	if cfg.IdleSleep == 0 {
		cfg.IdleSleep = 10 * time.Millisecond
	}
	if cfg.HistorySize == 0 {
		cfg.HistorySize = 1024
	}
	if cfg.StopTimeout == 0 {
		cfg.StopTimeout = 5 * time.Second
	}
}

// applyStoreDefaults sets package store defaults.
func applyStoreDefaults(cfg *StoreConfig) {
	if cfg.Type == "" {
		cfg.Type = "fs"
	}
	cfg.Type = strings.ToLower(cfg.Type)

	switch cfg.Type {
	case "fs":
		if cfg.FS.BasePath == "" {
			cfg.FS.BasePath = filepath.Join(getDataDir(), "packages")
		}
	case "badger":
		if cfg.Badger.Path == "" && !cfg.Badger.InMemory {
			cfg.Badger.Path = filepath.Join(getDataDir(), "badger")
		}
	case "sql":
		if cfg.SQL.Type == "" {
			cfg.SQL.Type = sqlstore.DatabaseTypeSQLite
		}
		if cfg.SQL.Type == sqlstore.DatabaseTypeSQLite && cfg.SQL.SQLite.Path == "" {
			cfg.SQL.SQLite.Path = filepath.Join(getDataDir(), "packages.db")
		}
		cfg.SQL.ApplyDefaults()
	}
}

// GetDefaultConfig returns a Config struct with all default values applied.
//
// This is useful for:
//   - Generating sample configuration files
//   - Testing
//   - Documentation
func GetDefaultConfig() *Config {
	cfg := &Config{
		Loader: LoaderConfig{
			TimeLimit:      5 * time.Millisecond,
			MaxPackageSize: 64 * bytesize.MiB,
		},
		Store: StoreConfig{
			Type: "fs",
			FS: FSStoreConfig{
				CreateDir: true,
			},
		},
	}

	ApplyDefaults(cfg)
	return cfg
}
