package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/marmos91/asyncload/internal/bytesize"
	sqlstore "github.com/marmos91/asyncload/pkg/store/sql"
)

// yamlSafePath converts a filesystem path to a YAML-safe representation.
// On Windows, backslashes in double-quoted YAML strings are interpreted as
// escape sequences (e.g. \U -> Unicode escape), causing parse errors.
func yamlSafePath(p string) string {
	return filepath.ToSlash(p)
}

func TestLoad_DefaultConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
logging:
  level: "INFO"

loader:
  multithreaded: true
  time_limit: 2ms
  max_package_size: 32Mi

store:
  type: fs
  fs:
    base_path: "` + yamlSafePath(tmpDir) + `/packages"
    create_dir: true
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	// Verify defaults were applied
	if cfg.Logging.Format != "text" {
		t.Errorf("Expected default format 'text', got %q", cfg.Logging.Format)
	}
	if cfg.Logging.Output != "stdout" {
		t.Errorf("Expected default output 'stdout', got %q", cfg.Logging.Output)
	}
	if cfg.ShutdownTimeout != 30*time.Second {
		t.Errorf("Expected default shutdown_timeout 30s, got %v", cfg.ShutdownTimeout)
	}
	if cfg.API.Port != 8080 {
		t.Errorf("Expected API port 8080, got %d", cfg.API.Port)
	}

	// Verify explicit values and decode hooks
	if !cfg.Loader.Multithreaded {
		t.Error("Expected multithreaded loader")
	}
	if cfg.Loader.TimeLimit != 2*time.Millisecond {
		t.Errorf("Expected time_limit 2ms, got %v", cfg.Loader.TimeLimit)
	}
	if cfg.Loader.MaxPackageSize != 32*bytesize.MiB {
		t.Errorf("Expected max_package_size 32Mi, got %v", cfg.Loader.MaxPackageSize)
	}
	if cfg.Loader.HistorySize != 1024 {
		t.Errorf("Expected default history_size 1024, got %d", cfg.Loader.HistorySize)
	}
	if cfg.Store.FS.BasePath != yamlSafePath(tmpDir)+"/packages" {
		t.Errorf("Unexpected base path %q", cfg.Store.FS.BasePath)
	}
}

func TestLoad_NoConfigFile(t *testing.T) {
	// Loading with no config file returns a valid default config.
	tmpDir := t.TempDir()
	nonExistentPath := filepath.Join(tmpDir, "nonexistent.yaml")

	cfg, err := Load(nonExistentPath)
	if err != nil {
		t.Fatalf("Expected no error when loading default config, got: %v", err)
	}
	if cfg == nil {
		t.Fatal("Expected default config to be returned")
	}
	if cfg.API.Port != 8080 {
		t.Errorf("Expected default API port 8080, got %d", cfg.API.Port)
	}
	if cfg.Store.Type != "fs" {
		t.Errorf("Expected default store type 'fs', got %q", cfg.Store.Type)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	configContent := `
logging:
  level: INFO
  invalid yaml here [[[
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	if _, err := Load(configPath); err == nil {
		t.Fatal("Expected error with invalid YAML, got nil")
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
store:
  type: tape
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	if _, err := Load(configPath); err == nil {
		t.Fatal("Expected validation error for unknown store type")
	}
}

func TestLoad_TOML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.toml")

	configContent := `
[logging]
level = "WARN"
format = "json"

[loader]
idle_sleep = "2ms"

[store]
type = "sql"

[store.sql]
type = "sqlite"

[store.sql.sqlite]
path = "` + yamlSafePath(tmpDir) + `/packages.db"
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load TOML config: %v", err)
	}

	if cfg.Logging.Level != "WARN" {
		t.Errorf("Expected level 'WARN', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Expected format 'json', got %q", cfg.Logging.Format)
	}
	if cfg.Loader.IdleSleep != 2*time.Millisecond {
		t.Errorf("Expected idle_sleep 2ms, got %v", cfg.Loader.IdleSleep)
	}
	if cfg.Store.SQL.Type != sqlstore.DatabaseTypeSQLite {
		t.Errorf("Expected sqlite, got %q", cfg.Store.SQL.Type)
	}
}

func TestGetDefaultConfig(t *testing.T) {
	cfg := GetDefaultConfig()

	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected default log level 'INFO', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Expected default log format 'text', got %q", cfg.Logging.Format)
	}
	if cfg.ShutdownTimeout != 30*time.Second {
		t.Errorf("Expected default shutdown timeout 30s, got %v", cfg.ShutdownTimeout)
	}
	if cfg.API.Port != 8080 {
		t.Errorf("Expected default API port 8080, got %d", cfg.API.Port)
	}
	if cfg.Loader.TimeLimit != 5*time.Millisecond {
		t.Errorf("Expected default time limit 5ms, got %v", cfg.Loader.TimeLimit)
	}
	if cfg.Loader.MaxPackageSize != 64*bytesize.MiB {
		t.Errorf("Expected default max package size 64Mi, got %v", cfg.Loader.MaxPackageSize)
	}
	if !cfg.Store.FS.CreateDir {
		t.Error("Expected default fs store to create its directory")
	}
}

func TestGetDefaultConfigPath(t *testing.T) {
	path := GetDefaultConfigPath()

	if !filepath.IsAbs(path) {
		t.Errorf("Expected absolute path, got %q", path)
	}
	if filepath.Base(path) != "config.yaml" {
		t.Errorf("Expected filename 'config.yaml', got %q", filepath.Base(path))
	}
}

func TestGetConfigDir(t *testing.T) {
	dir := GetConfigDir()

	if filepath.Base(dir) != "asyncload" {
		t.Errorf("Expected directory name 'asyncload', got %q", filepath.Base(dir))
	}
}

func TestDefaultConfigExists(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	if DefaultConfigExists() {
		t.Fatal("Expected no default config in an empty directory")
	}
	if _, err := InitConfig(false); err != nil {
		t.Fatalf("InitConfig failed: %v", err)
	}
	if !DefaultConfigExists() {
		t.Fatal("Expected default config after InitConfig")
	}
}

func TestMustLoad_MissingFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.yaml")

	_, err := MustLoad(missing)
	if err == nil {
		t.Fatal("Expected error for missing config file")
	}
	if !contains(err.Error(), "asyncload config init") {
		t.Errorf("Expected init instructions in error, got: %v", err)
	}
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	t.Setenv("ASYNCLOAD_LOGGING_LEVEL", "ERROR")
	t.Setenv("ASYNCLOAD_API_PORT", "9191")
	t.Setenv("ASYNCLOAD_LOADER_MAX_PACKAGE_SIZE", "1Gi")

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
logging:
  level: "INFO"

api:
  port: 8080

loader:
  max_package_size: 1Mi

store:
  type: memory
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	// Verify environment variables override config file
	if cfg.Logging.Level != "ERROR" {
		t.Errorf("Expected level 'ERROR' from env var, got %q", cfg.Logging.Level)
	}
	if cfg.API.Port != 9191 {
		t.Errorf("Expected port 9191 from env var, got %d", cfg.API.Port)
	}
	if cfg.Loader.MaxPackageSize != bytesize.GiB {
		t.Errorf("Expected max package size 1Gi from env var, got %v", cfg.Loader.MaxPackageSize)
	}
}

func TestLoad_EnvironmentWithoutFile(t *testing.T) {
	t.Setenv("ASYNCLOAD_LOADER_MULTITHREADED", "true")
	t.Setenv("ASYNCLOAD_LOADER_TIME_LIMIT", "5ms")
	t.Setenv("ASYNCLOAD_STORE_TYPE", "memory")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if !cfg.Loader.Multithreaded {
		t.Error("Expected multithreaded from env var")
	}
	if cfg.Loader.TimeLimit != 5*time.Millisecond {
		t.Errorf("Expected time limit 5ms from env var, got %v", cfg.Loader.TimeLimit)
	}
	if cfg.Store.Type != "memory" {
		t.Errorf("Expected store type 'memory' from env var, got %q", cfg.Store.Type)
	}
	if cfg.API.Port != 8080 {
		t.Errorf("Expected default API port to survive, got %d", cfg.API.Port)
	}
}

func TestLoad_InvalidByteSize(t *testing.T) {
	t.Setenv("ASYNCLOAD_LOADER_MAX_PACKAGE_SIZE", "lots")

	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("Expected error for invalid max_package_size")
	}
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := GetDefaultConfig()
	cfg.Loader.Multithreaded = true
	cfg.Loader.MaxPackageSize = 3 * bytesize.MiB
	cfg.Store.Type = "memory"

	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Failed to stat saved config: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 && os.PathSeparator == '/' {
		t.Errorf("Expected mode 0600, got %o", perm)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to load saved config: %v", err)
	}
	if !loaded.Loader.Multithreaded || loaded.Loader.MaxPackageSize != 3*bytesize.MiB {
		t.Errorf("Loader section did not round-trip: %+v", loaded.Loader)
	}
	if loaded.Store.Type != "memory" {
		t.Errorf("Expected store type 'memory', got %q", loaded.Store.Type)
	}
	if loaded.Loader.TimeLimit != cfg.Loader.TimeLimit {
		t.Errorf("Expected time limit %v, got %v", cfg.Loader.TimeLimit, loaded.Loader.TimeLimit)
	}
}

func TestLoaderConfig_Conversions(t *testing.T) {
	lc := LoaderConfig{
		Multithreaded:    true,
		TimeLimit:        3 * time.Millisecond,
		UseFullTimeLimit: true,
		TickInterval:     20 * time.Millisecond,
		IdleSleep:        time.Millisecond,
		HistorySize:      10,
	}

	ec := lc.EngineConfig()
	if !ec.Multithreaded || ec.IdleSleep != time.Millisecond || ec.HistorySize != 10 {
		t.Errorf("Unexpected engine config: %+v", ec)
	}

	rc := lc.RunnerConfig()
	if rc.Interval != 20*time.Millisecond || rc.TimeLimit != 3*time.Millisecond || !rc.UseFullTimeLimit {
		t.Errorf("Unexpected runner config: %+v", rc)
	}
}

func contains(s, substr string) bool {
	return len(s) >= len(substr) && (s == substr || len(substr) == 0 || indexOf(s, substr) >= 0)
}

func indexOf(s, substr string) int {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return i
		}
	}
	return -1
}
