// Package config carries the service configuration.
//
// Configuration resolves in three layers: compiled defaults, an optional
// JSON file, then BERRYSIGHT_* environment variables. Later layers win.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Model backends selectable via ModelBackend.
const (
	BackendNone   = "none"
	BackendRemote = "remote"
	BackendOllama = "ollama"
)

// Config holds the full service configuration.
type Config struct {
	// ListenAddr is the HTTP bind address, e.g. ":8080".
	ListenAddr string `json:"listen_addr"`

	// UploadDir and ProcessedDir hold original uploads and annotated
	// outputs. Both are created at startup if missing.
	UploadDir    string `json:"upload_dir"`
	ProcessedDir string `json:"processed_dir"`

	// MaxUploadMB caps a single upload request body.
	MaxUploadMB int64 `json:"max_upload_mb"`

	// AllowedExtensions whitelists upload filenames, lowercase without
	// the dot.
	AllowedExtensions []string `json:"allowed_extensions"`

	// DatabaseURL is the PostgreSQL DSN. Empty selects the in-memory
	// history store.
	DatabaseURL string `json:"database_url"`

	// ModelBackend selects the primary detector: "remote", "ollama" or
	// "none". With "none" the pipeline runs on color heuristics alone.
	ModelBackend string `json:"model_backend"`

	// ModelURL and ModelName configure the remote backend.
	ModelURL  string `json:"model_url"`
	ModelName string `json:"model_name"`

	// OllamaHost and OllamaModel configure the ollama backend.
	OllamaHost  string `json:"ollama_host"`
	OllamaModel string `json:"ollama_model"`

	// ConfidenceThreshold filters primary detector boxes.
	ConfidenceThreshold float64 `json:"confidence_threshold"`

	// RequestTimeoutSec bounds one model request; zero means no limit.
	RequestTimeoutSec int `json:"request_timeout_sec"`
}

// Default returns the compiled-in configuration.
func Default() *Config {
	return &Config{
		ListenAddr:          ":8080",
		UploadDir:           "data/uploads",
		ProcessedDir:        "data/processed",
		MaxUploadMB:         16,
		AllowedExtensions:   []string{"jpg", "jpeg", "png", "gif", "bmp", "tiff", "webp"},
		ModelBackend:        BackendNone,
		OllamaHost:          "http://localhost:11434",
		ConfidenceThreshold: 0.15,
		RequestTimeoutSec:   60,
	}
}

// Load resolves the configuration: defaults, then the JSON file at path
// (skipped when path is empty), then environment overrides, then
// validation.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overlays BERRYSIGHT_* environment variables. A malformed
// numeric value is an error, not a silent fallback.
func (c *Config) applyEnv() error {
	c.ListenAddr = getEnv("BERRYSIGHT_LISTEN_ADDR", c.ListenAddr)
	c.UploadDir = getEnv("BERRYSIGHT_UPLOAD_DIR", c.UploadDir)
	c.ProcessedDir = getEnv("BERRYSIGHT_PROCESSED_DIR", c.ProcessedDir)
	c.DatabaseURL = getEnv("BERRYSIGHT_DATABASE_URL", c.DatabaseURL)
	c.ModelBackend = getEnv("BERRYSIGHT_MODEL_BACKEND", c.ModelBackend)
	c.ModelURL = getEnv("BERRYSIGHT_MODEL_URL", c.ModelURL)
	c.ModelName = getEnv("BERRYSIGHT_MODEL_NAME", c.ModelName)
	c.OllamaHost = getEnv("BERRYSIGHT_OLLAMA_HOST", c.OllamaHost)
	c.OllamaModel = getEnv("BERRYSIGHT_OLLAMA_MODEL", c.OllamaModel)

	if v := os.Getenv("BERRYSIGHT_MAX_UPLOAD_MB"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("BERRYSIGHT_MAX_UPLOAD_MB: %w", err)
		}
		c.MaxUploadMB = n
	}
	if v := os.Getenv("BERRYSIGHT_CONFIDENCE_THRESHOLD"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("BERRYSIGHT_CONFIDENCE_THRESHOLD: %w", err)
		}
		c.ConfidenceThreshold = f
	}
	if v := os.Getenv("BERRYSIGHT_REQUEST_TIMEOUT_SEC"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("BERRYSIGHT_REQUEST_TIMEOUT_SEC: %w", err)
		}
		c.RequestTimeoutSec = n
	}
	return nil
}

// Validate checks the configuration for values the service cannot start
// with.
func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("listen_addr cannot be empty")
	}
	if c.UploadDir == "" || c.ProcessedDir == "" {
		return fmt.Errorf("upload_dir and processed_dir cannot be empty")
	}
	if c.MaxUploadMB < 1 {
		return fmt.Errorf("max_upload_mb must be positive")
	}
	if len(c.AllowedExtensions) == 0 {
		return fmt.Errorf("allowed_extensions cannot be empty")
	}
	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		return fmt.Errorf("confidence_threshold must be between 0 and 1")
	}
	if c.RequestTimeoutSec < 0 {
		return fmt.Errorf("request_timeout_sec cannot be negative")
	}

	switch c.ModelBackend {
	case BackendNone:
	case BackendRemote:
		if c.ModelURL == "" {
			return fmt.Errorf("model_backend %q requires model_url", c.ModelBackend)
		}
	case BackendOllama:
		if c.OllamaHost == "" || c.OllamaModel == "" {
			return fmt.Errorf("model_backend %q requires ollama_host and ollama_model", c.ModelBackend)
		}
	default:
		return fmt.Errorf("unknown model_backend %q", c.ModelBackend)
	}
	return nil
}

// MaxUploadBytes returns the upload cap in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return c.MaxUploadMB << 20
}

// RequestTimeout returns the model request timeout as a duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSec) * time.Second
}

// getEnv returns the environment value for key, or fallback when unset or
// empty.
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
