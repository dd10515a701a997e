package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/marmos91/asyncload/internal/bytesize"
)

func TestInitConfig_Success(t *testing.T) {
	// Override XDG_CONFIG_HOME so getConfigDir() resolves to a temp directory.
	// Using HOME doesn't work on Windows where os.UserHomeDir() reads USERPROFILE.
	tmpDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmpDir)

	configPath, err := InitConfig(false)
	if err != nil {
		t.Fatalf("InitConfig failed: %v", err)
	}

	if want := filepath.Join(tmpDir, "asyncload", "config.yaml"); configPath != want {
		t.Errorf("Expected config at %q, got %q", want, configPath)
	}

	content, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatalf("Failed to read config file: %v", err)
	}

	contentStr := string(content)
	expectedSections := []string{
		"# AsyncLoad Configuration File",
		"logging:",
		"api:",
		"loader:",
		"store:",
	}

	for _, section := range expectedSections {
		if !strings.Contains(contentStr, section) {
			t.Errorf("Config file missing section: %s", section)
		}
	}

	// The generated file must load back through viper
	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Generated config does not load: %v", err)
	}
	if cfg.API.Port != 8080 {
		t.Errorf("Expected API port 8080, got %d", cfg.API.Port)
	}
	if cfg.Loader.MaxPackageSize != 64*bytesize.MiB {
		t.Errorf("Expected max package size 64Mi, got %v", cfg.Loader.MaxPackageSize)
	}
}

func TestInitConfig_AlreadyExists(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	// Create config first time
	if _, err := InitConfig(false); err != nil {
		t.Fatalf("First InitConfig failed: %v", err)
	}

	// Try to create again without force
	_, err := InitConfig(false)
	if err == nil {
		t.Fatal("Expected error when config already exists")
	}
	if !strings.Contains(err.Error(), "already exists") {
		t.Errorf("Expected 'already exists' error, got: %v", err)
	}
}

func TestInitConfig_Force(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	configPath, err := InitConfig(false)
	if err != nil {
		t.Fatalf("First InitConfig failed: %v", err)
	}

	// Scribble over the file so the overwrite is observable
	if err := os.WriteFile(configPath, []byte("garbage"), 0600); err != nil {
		t.Fatalf("Failed to overwrite config: %v", err)
	}

	if _, err := InitConfig(true); err != nil {
		t.Fatalf("InitConfig with force failed: %v", err)
	}

	content, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatalf("Failed to read config file: %v", err)
	}
	if !strings.HasPrefix(string(content), "# AsyncLoad Configuration File") {
		t.Error("Expected forced init to rewrite the config file")
	}
}

func TestInitConfigToPath_CustomPath(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "custom", "asyncload.yaml")

	if err := InitConfigToPath(configPath, false); err != nil {
		t.Fatalf("InitConfigToPath failed: %v", err)
	}

	info, err := os.Stat(configPath)
	if err != nil {
		t.Fatalf("Config file was not created at %s", configPath)
	}
	if perm := info.Mode().Perm(); os.PathSeparator == '/' && perm != 0600 {
		t.Errorf("Expected mode 0600, got %o", perm)
	}

	if err := InitConfigToPath(configPath, false); err == nil {
		t.Error("Expected error for existing custom path")
	}
}

func TestWriteConfig_CustomValues(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")

	cfg := GetDefaultConfig()
	cfg.Store.Type = "memory"
	cfg.Loader.Multithreaded = true

	if err := WriteConfig(cfg, configPath, false); err != nil {
		t.Fatalf("WriteConfig failed: %v", err)
	}

	loaded, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load written config: %v", err)
	}
	if loaded.Store.Type != "memory" {
		t.Errorf("Expected store type 'memory', got %q", loaded.Store.Type)
	}
	if !loaded.Loader.Multithreaded {
		t.Error("Expected multithreaded loader")
	}
}
