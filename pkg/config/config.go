package config

import (
	"time"

	"github.com/marmos91/asyncload/internal/bytesize"
	"github.com/marmos91/asyncload/pkg/api"
	"github.com/marmos91/asyncload/pkg/loader"
	sqlstore "github.com/marmos91/asyncload/pkg/store/sql"
)

// Config represents the asyncload configuration.
//
// Configuration sources (in order of precedence):
//  1. CLI flags (highest priority)
//  2. Environment variables (ASYNCLOAD_*)
//  3. Configuration file (YAML or TOML)
//  4. Default values (lowest priority)
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Telemetry controls OpenTelemetry distributed tracing
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`

	// ShutdownTimeout is the maximum time to wait for graceful shutdown
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0" yaml:"shutdown_timeout"`

	// Metrics contains Prometheus metrics server configuration
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// API contains the status API server configuration
	API api.APIConfig `mapstructure:"api" yaml:"api"`

	// Loader configures the loading engine
	Loader LoaderConfig `mapstructure:"loader" yaml:"loader"`

	// Store selects and configures the package store
	Store StoreConfig `mapstructure:"store" yaml:"store"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// TelemetryConfig controls OpenTelemetry distributed tracing.
// When enabled, trace data is exported to an OTLP-compatible collector
// (e.g., Jaeger, Tempo, or any OTLP receiver).
type TelemetryConfig struct {
	// Enabled controls whether distributed tracing is enabled
	// Default: false (opt-in for telemetry)
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Endpoint is the OTLP collector endpoint (host:port)
	// Default: "localhost:4317" (standard OTLP gRPC port)
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// Insecure controls whether to use insecure (non-TLS) connection
	// Default: true (for local development)
	Insecure bool `mapstructure:"insecure" yaml:"insecure"`

	// SampleRate controls the trace sampling rate (0.0 to 1.0)
	// Default: 1.0 (sample all)
	SampleRate float64 `mapstructure:"sample_rate" validate:"omitempty,gte=0,lte=1" yaml:"sample_rate"`

	// Profiling contains Pyroscope continuous profiling configuration
	Profiling ProfilingConfig `mapstructure:"profiling" yaml:"profiling"`
}

// ProfilingConfig controls Pyroscope continuous profiling.
type ProfilingConfig struct {
	// Enabled controls whether continuous profiling is enabled
	// Default: false (opt-in for profiling)
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Endpoint is the Pyroscope server endpoint (URL)
	// Default: "http://localhost:4040" (standard Pyroscope port)
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// ProfileTypes specifies which profile types to collect
	// Valid values: cpu, alloc_objects, alloc_space, inuse_objects, inuse_space,
	//               goroutines, mutex_count, mutex_duration, block_count, block_duration
	ProfileTypes []string `mapstructure:"profile_types" yaml:"profile_types"`
}

// MetricsConfig configures the Prometheus metrics HTTP server.
// When Enabled is false, no metrics are collected (zero overhead).
type MetricsConfig struct {
	// Enabled controls whether metrics collection and HTTP server are enabled
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Port is the HTTP port for the metrics endpoint
	// Default: 9090
	Port int `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`
}

// LoaderConfig configures the loading engine and, for long running
// processes, the tick loop driving it.
type LoaderConfig struct {
	// Multithreaded runs the loader side on a dedicated worker goroutine.
	// Default: false (caller strategy)
	Multithreaded bool `mapstructure:"multithreaded" yaml:"multithreaded"`

	// TimeLimit is the budget of each tick. Zero disables time slicing.
	// Default: 5ms
	TimeLimit time.Duration `mapstructure:"time_limit" validate:"gte=0" yaml:"time_limit"`

	// UseFullTimeLimit keeps a tick working until its budget is spent.
	UseFullTimeLimit bool `mapstructure:"use_full_time_limit" yaml:"use_full_time_limit"`

	// TickInterval is the time between ticks of `asyncload serve`.
	// Default: 16ms
	TickInterval time.Duration `mapstructure:"tick_interval" validate:"gte=0" yaml:"tick_interval"`

	// IdleSleep bounds how long an idle worker sleeps before polling again.
	// Default: 10ms
	IdleSleep time.Duration `mapstructure:"idle_sleep" validate:"gte=0" yaml:"idle_sleep"`

	// HistorySize is the number of finished packages remembered for queries.
	// Default: 1024
	HistorySize int `mapstructure:"history_size" validate:"gte=0" yaml:"history_size"`

	// MaxPackageSize rejects serialized packages above this size.
	// Supports human-readable formats: "64Mi", "100MB". Zero means unlimited.
	// Default: 64Mi
	MaxPackageSize bytesize.ByteSize `mapstructure:"max_package_size" yaml:"max_package_size"`

	// StopTimeout is how long shutdown waits for the worker goroutine.
	// Default: 5s
	StopTimeout time.Duration `mapstructure:"stop_timeout" validate:"gte=0" yaml:"stop_timeout"`
}

// EngineConfig returns the loader.Config for this configuration.
func (c LoaderConfig) EngineConfig() loader.Config {
	return loader.Config{
		Multithreaded: c.Multithreaded,
		IdleSleep:     c.IdleSleep,
		HistorySize:   c.HistorySize,
	}
}

// RunnerConfig returns the tick loop configuration.
func (c LoaderConfig) RunnerConfig() loader.RunnerConfig {
	return loader.RunnerConfig{
		Interval:         c.TickInterval,
		TimeLimit:        c.TimeLimit,
		UseFullTimeLimit: c.UseFullTimeLimit,
	}
}

// StoreConfig selects the package store backend. Only the sub-section
// matching Type is used.
type StoreConfig struct {
	// Type is the backend: memory, fs, s3, badger or sql
	// Default: fs
	Type string `mapstructure:"type" validate:"required,oneof=memory fs s3 badger sql" yaml:"type"`

	FS     FSStoreConfig     `mapstructure:"fs" yaml:"fs"`
	S3     S3StoreConfig     `mapstructure:"s3" yaml:"s3"`
	Badger BadgerStoreConfig `mapstructure:"badger" yaml:"badger"`
	SQL    sqlstore.Config   `mapstructure:"sql" yaml:"sql"`
}

// FSStoreConfig configures the filesystem store.
type FSStoreConfig struct {
	// BasePath is the directory holding package files
	BasePath string `mapstructure:"base_path" yaml:"base_path"`

	// CreateDir creates BasePath when missing
	CreateDir bool `mapstructure:"create_dir" yaml:"create_dir"`

	// DirMode and FileMode are octal permission modes (e.g. 0755)
	DirMode  uint32 `mapstructure:"dir_mode" yaml:"dir_mode,omitempty"`
	FileMode uint32 `mapstructure:"file_mode" yaml:"file_mode,omitempty"`
}

// S3StoreConfig configures the S3 store.
type S3StoreConfig struct {
	Bucket         string `mapstructure:"bucket" yaml:"bucket"`
	Region         string `mapstructure:"region" yaml:"region,omitempty"`
	Endpoint       string `mapstructure:"endpoint" yaml:"endpoint,omitempty"`
	KeyPrefix      string `mapstructure:"key_prefix" yaml:"key_prefix,omitempty"`
	ForcePathStyle bool   `mapstructure:"force_path_style" yaml:"force_path_style,omitempty"`

	// Static credentials. When empty the default AWS credential chain is used.
	AccessKeyID     string `mapstructure:"access_key_id" yaml:"access_key_id,omitempty"`
	SecretAccessKey string `mapstructure:"secret_access_key" yaml:"secret_access_key,omitempty"`
}

// BadgerStoreConfig configures the BadgerDB store.
type BadgerStoreConfig struct {
	Path       string `mapstructure:"path" yaml:"path"`
	InMemory   bool   `mapstructure:"in_memory" yaml:"in_memory,omitempty"`
	SyncWrites bool   `mapstructure:"sync_writes" yaml:"sync_writes,omitempty"`
}
