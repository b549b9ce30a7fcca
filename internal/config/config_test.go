package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

func TestSetLogger(t *testing.T) {
	logger := zerolog.New(os.Stdout).Level(zerolog.InfoLevel)
	SetLogger(logger)

	// Verify logger is set (we can't easily compare loggers directly)
	// This test mainly ensures the function doesn't panic
}

func TestApplyDefaults(t *testing.T) {
	t.Run("Config struct defaults", func(t *testing.T) {
		config := &Config{}
		applyDefaults(config)

		// Test Server defaults
		if config.Server.Host != "0.0.0.0" {
			t.Errorf("Expected host '0.0.0.0', got %q", config.Server.Host)
		}
		if config.Server.Port != "12710" {
			t.Errorf("Expected port '12710', got %q", config.Server.Port)
		}

		// Test Storage defaults
		if config.Storage.Path != "./flotilla.db" {
			t.Errorf("Expected default storage path, got %q", config.Storage.Path)
		}
		if config.Storage.S3.Enabled {
			t.Error("Expected S3 backend to be disabled by default")
		}
		if config.Storage.S3.KeyPrefix != "staged/" {
			t.Errorf("Expected key prefix 'staged/', got %q", config.Storage.S3.KeyPrefix)
		}

		// Test Staging defaults
		if config.Staging.MaxFileSizeMiB != 5 {
			t.Errorf("Expected max file size 5 MiB, got %d", config.Staging.MaxFileSizeMiB)
		}
		if config.Staging.GalleryCap != 10 {
			t.Errorf("Expected gallery cap 10, got %d", config.Staging.GalleryCap)
		}

		// Test Remote defaults
		if config.Remote.BaseURL != "http://localhost:8080" {
			t.Errorf("Expected default remote base URL, got %q", config.Remote.BaseURL)
		}
		if config.Remote.TimeoutSeconds != 30 {
			t.Errorf("Expected timeout 30s, got %d", config.Remote.TimeoutSeconds)
		}

		// Test Logging defaults
		if config.Logging.Level != "info" {
			t.Errorf("Expected log level 'info', got %q", config.Logging.Level)
		}
	})
}

func TestMaxFileSizeBytes(t *testing.T) {
	c := StagingConfig{MaxFileSizeMiB: 5}
	if c.MaxFileSizeBytes() != 5<<20 {
		t.Errorf("Expected %d bytes, got %d", int64(5<<20), c.MaxFileSizeBytes())
	}
}

func TestLoadConfig(t *testing.T) {
	t.Run("Missing file falls back to defaults", func(t *testing.T) {
		err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
		if err != nil {
			t.Fatalf("Expected no error for missing config, got %v", err)
		}
		if AppConfig == nil {
			t.Fatal("Expected AppConfig to be set")
		}
		if AppConfig.Staging.GalleryCap != 10 {
			t.Errorf("Expected default gallery cap, got %d", AppConfig.Staging.GalleryCap)
		}
	})

	t.Run("File overrides defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		content := "staging:\n  max_file_size_mib: 8\n  gallery_cap: 3\nserver:\n  port: \"9999\"\n"
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("Failed to write config: %v", err)
		}

		err := LoadConfig(path)
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if AppConfig.Staging.MaxFileSizeMiB != 8 {
			t.Errorf("Expected max file size 8, got %d", AppConfig.Staging.MaxFileSizeMiB)
		}
		if AppConfig.Staging.GalleryCap != 3 {
			t.Errorf("Expected gallery cap 3, got %d", AppConfig.Staging.GalleryCap)
		}
		if AppConfig.Server.Port != "9999" {
			t.Errorf("Expected port 9999, got %q", AppConfig.Server.Port)
		}
	})

	t.Run("Invalid YAML returns error", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		if err := os.WriteFile(path, []byte("server: [not a map"), 0644); err != nil {
			t.Fatalf("Failed to write config: %v", err)
		}

		if err := LoadConfig(path); err == nil {
			t.Error("Expected error for invalid YAML")
		}
	})
}
