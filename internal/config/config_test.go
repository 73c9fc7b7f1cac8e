package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// clearEnv blanks every BERRYSIGHT_* variable so tests see only what they
// set themselves. getEnv treats empty as unset.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"BERRYSIGHT_LISTEN_ADDR",
		"BERRYSIGHT_UPLOAD_DIR",
		"BERRYSIGHT_PROCESSED_DIR",
		"BERRYSIGHT_DATABASE_URL",
		"BERRYSIGHT_MODEL_BACKEND",
		"BERRYSIGHT_MODEL_URL",
		"BERRYSIGHT_MODEL_NAME",
		"BERRYSIGHT_OLLAMA_HOST",
		"BERRYSIGHT_OLLAMA_MODEL",
		"BERRYSIGHT_MAX_UPLOAD_MB",
		"BERRYSIGHT_CONFIDENCE_THRESHOLD",
		"BERRYSIGHT_REQUEST_TIMEOUT_SEC",
	} {
		t.Setenv(key, "")
	}
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.ListenAddr != ":8080" {
		t.Errorf("ListenAddr: got %q, want :8080", cfg.ListenAddr)
	}
	if cfg.UploadDir != "data/uploads" || cfg.ProcessedDir != "data/processed" {
		t.Errorf("dirs: got %q, %q", cfg.UploadDir, cfg.ProcessedDir)
	}
	if cfg.MaxUploadMB != 16 {
		t.Errorf("MaxUploadMB: got %d, want 16", cfg.MaxUploadMB)
	}
	if cfg.ModelBackend != BackendNone {
		t.Errorf("ModelBackend: got %q, want none", cfg.ModelBackend)
	}
	if cfg.ConfidenceThreshold != 0.15 {
		t.Errorf("ConfidenceThreshold: got %v, want 0.15", cfg.ConfidenceThreshold)
	}
	if cfg.RequestTimeoutSec != 60 {
		t.Errorf("RequestTimeoutSec: got %d, want 60", cfg.RequestTimeoutSec)
	}
	if len(cfg.AllowedExtensions) != 7 {
		t.Errorf("AllowedExtensions: got %v", cfg.AllowedExtensions)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults must validate: %v", err)
	}
}

func TestLoad_NoFile(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.ListenAddr != ":8080" || cfg.ModelBackend != BackendNone {
		t.Errorf("Load without file should return defaults, got %+v", cfg)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	clearEnv(t)

	if _, err := Load(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Fatal("want error for a missing config file")
	}
}

func TestLoad_BadJSON(t *testing.T) {
	clearEnv(t)

	path := writeConfigFile(t, "{not json")
	if _, err := Load(path); err == nil {
		t.Fatal("want error for malformed JSON")
	}
}

func TestLoad_FileOverlay(t *testing.T) {
	clearEnv(t)

	path := writeConfigFile(t, `{
		"listen_addr": ":9090",
		"max_upload_mb": 32,
		"model_backend": "remote",
		"model_url": "http://localhost:8500"
	}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.ListenAddr != ":9090" {
		t.Errorf("ListenAddr: got %q, want :9090", cfg.ListenAddr)
	}
	if cfg.MaxUploadMB != 32 {
		t.Errorf("MaxUploadMB: got %d, want 32", cfg.MaxUploadMB)
	}
	if cfg.ModelBackend != BackendRemote || cfg.ModelURL != "http://localhost:8500" {
		t.Errorf("model: got %q %q", cfg.ModelBackend, cfg.ModelURL)
	}
	// Unset keys keep their defaults.
	if cfg.UploadDir != "data/uploads" {
		t.Errorf("UploadDir: got %q, want default", cfg.UploadDir)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)

	path := writeConfigFile(t, `{"listen_addr": ":9090"}`)
	t.Setenv("BERRYSIGHT_LISTEN_ADDR", ":7070")
	t.Setenv("BERRYSIGHT_MAX_UPLOAD_MB", "64")
	t.Setenv("BERRYSIGHT_CONFIDENCE_THRESHOLD", "0.5")
	t.Setenv("BERRYSIGHT_REQUEST_TIMEOUT_SEC", "120")
	t.Setenv("BERRYSIGHT_DATABASE_URL", "postgres://berry:pw@localhost/berrysight")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.ListenAddr != ":7070" {
		t.Errorf("environment should win over the file, got %q", cfg.ListenAddr)
	}
	if cfg.MaxUploadMB != 64 {
		t.Errorf("MaxUploadMB: got %d, want 64", cfg.MaxUploadMB)
	}
	if cfg.ConfidenceThreshold != 0.5 {
		t.Errorf("ConfidenceThreshold: got %v, want 0.5", cfg.ConfidenceThreshold)
	}
	if cfg.RequestTimeoutSec != 120 {
		t.Errorf("RequestTimeoutSec: got %d, want 120", cfg.RequestTimeoutSec)
	}
	if cfg.DatabaseURL != "postgres://berry:pw@localhost/berrysight" {
		t.Errorf("DatabaseURL: got %q", cfg.DatabaseURL)
	}
}

func TestLoad_MalformedEnvNumber(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"BERRYSIGHT_MAX_UPLOAD_MB", "lots"},
		{"BERRYSIGHT_CONFIDENCE_THRESHOLD", "very"},
		{"BERRYSIGHT_REQUEST_TIMEOUT_SEC", "1.5"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := Load("")
			if err == nil {
				t.Fatalf("want error for %s=%q", tt.key, tt.value)
			}
			if !strings.Contains(err.Error(), tt.key) {
				t.Errorf("error should name the variable, got %v", err)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(c *Config) {}, true},
		{"empty listen addr", func(c *Config) { c.ListenAddr = "" }, false},
		{"empty upload dir", func(c *Config) { c.UploadDir = "" }, false},
		{"empty processed dir", func(c *Config) { c.ProcessedDir = "" }, false},
		{"zero upload cap", func(c *Config) { c.MaxUploadMB = 0 }, false},
		{"no extensions", func(c *Config) { c.AllowedExtensions = nil }, false},
		{"threshold below zero", func(c *Config) { c.ConfidenceThreshold = -0.1 }, false},
		{"threshold above one", func(c *Config) { c.ConfidenceThreshold = 1.1 }, false},
		{"negative timeout", func(c *Config) { c.RequestTimeoutSec = -1 }, false},
		{"remote without url", func(c *Config) { c.ModelBackend = BackendRemote }, false},
		{"remote with url", func(c *Config) {
			c.ModelBackend = BackendRemote
			c.ModelURL = "http://localhost:8500"
		}, true},
		{"ollama without model", func(c *Config) { c.ModelBackend = BackendOllama }, false},
		{"ollama complete", func(c *Config) {
			c.ModelBackend = BackendOllama
			c.OllamaModel = "llava"
		}, true},
		{"unknown backend", func(c *Config) { c.ModelBackend = "gpu" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.ok && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tt.ok && err == nil {
				t.Error("want validation error")
			}
		})
	}
}

func TestMaxUploadBytes(t *testing.T) {
	cfg := Default()
	cfg.MaxUploadMB = 16
	if got := cfg.MaxUploadBytes(); got != 16<<20 {
		t.Errorf("got %d, want %d", got, 16<<20)
	}
}

func TestRequestTimeout(t *testing.T) {
	cfg := Default()
	cfg.RequestTimeoutSec = 90
	if got := cfg.RequestTimeout(); got != 90*time.Second {
		t.Errorf("got %v, want 90s", got)
	}
	cfg.RequestTimeoutSec = 0
	if got := cfg.RequestTimeout(); got != 0 {
		t.Errorf("zero seconds should map to no limit, got %v", got)
	}
}
