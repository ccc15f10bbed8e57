// Package config loads gallery settings from an optional YAML file, then
// applies environment overrides. Command-line flags are applied last by the
// CLI.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/fpang/ai-gallery/internal/logging"
	"gopkg.in/yaml.v3"
)

// Store backends.
const (
	StoreFile   = "file"
	StoreDynamo = "dynamodb"
)

// FileName is the config file looked up inside the data directory.
const FileName = "gallery.yaml"

// RetryConfig mirrors the analysis client's retry policy.
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	Backoff     time.Duration `yaml:"backoff"`
	MaxBackoff  time.Duration `yaml:"max_backoff"`
}

// Config holds every tunable the CLI exposes.
type Config struct {
	LMStudioURL    string        `yaml:"lm_studio_url"`
	Model          string        `yaml:"model"`
	HealthTimeout  time.Duration `yaml:"health_timeout"`
	AnalyzeTimeout time.Duration `yaml:"analyze_timeout"`
	Retry          RetryConfig   `yaml:"retry"`

	PhotosDir string `yaml:"photos_dir"`
	DataDir   string `yaml:"data_dir"`

	Store       string `yaml:"store"`
	DynamoTable string `yaml:"dynamo_table,omitempty"`

	DefaultStyle string `yaml:"default_style"`
	AutoRename   bool   `yaml:"auto_rename"`
	BatchLimit   int    `yaml:"batch_limit"`
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() *Config {
	return &Config{
		LMStudioURL:    "http://localhost:1234",
		Model:          "llava",
		HealthTimeout:  5 * time.Second,
		AnalyzeTimeout: 120 * time.Second,
		Retry: RetryConfig{
			MaxAttempts: 1,
			Backoff:     2 * time.Second,
			MaxBackoff:  30 * time.Second,
		},
		PhotosDir:    "./photos",
		DataDir:      "data",
		Store:        StoreFile,
		DefaultStyle: "classic",
		AutoRename:   true,
		BatchLimit:   10,
	}
}

// DefaultPath returns the config file location: GALLERY_CONFIG if set,
// otherwise gallery.yaml inside DATA_DIR (default "data").
func DefaultPath() string {
	if p := os.Getenv("GALLERY_CONFIG"); p != "" {
		return p
	}
	return filepath.Join(logging.EnvOrDefault("DATA_DIR", "data"), FileName)
}

// Load reads the YAML file at path over the defaults, then applies
// environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
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

// Save writes cfg as YAML to path, creating parent directories.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.LMStudioURL = logging.EnvOrDefault("LM_STUDIO_URL", c.LMStudioURL)
	c.Model = logging.EnvOrDefault("LM_STUDIO_MODEL", c.Model)
	c.PhotosDir = logging.EnvOrDefault("PHOTOS_DIR", c.PhotosDir)
	c.DataDir = logging.EnvOrDefault("DATA_DIR", c.DataDir)
	c.Store = logging.EnvOrDefault("GALLERY_STORE", c.Store)
	c.DynamoTable = logging.EnvOrDefault("GALLERY_DYNAMO_TABLE", c.DynamoTable)
	c.DefaultStyle = logging.EnvOrDefault("GALLERY_DEFAULT_STYLE", c.DefaultStyle)

	if v := os.Getenv("ANALYSIS_MAX_ATTEMPTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("ANALYSIS_MAX_ATTEMPTS: %w", err)
		}
		c.Retry.MaxAttempts = n
	}
	if v := os.Getenv("ANALYSIS_BACKOFF"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("ANALYSIS_BACKOFF: %w", err)
		}
		c.Retry.Backoff = d
	}
	if v := os.Getenv("GALLERY_AUTO_RENAME"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("GALLERY_AUTO_RENAME: %w", err)
		}
		c.AutoRename = b
	}
	return nil
}

// Validate checks values that would otherwise fail later in confusing ways.
func (c *Config) Validate() error {
	switch c.Store {
	case StoreFile:
	case StoreDynamo:
		if c.DynamoTable == "" {
			return fmt.Errorf("store %q requires dynamo_table (GALLERY_DYNAMO_TABLE)", StoreDynamo)
		}
	default:
		return fmt.Errorf("unknown store %q (want %q or %q)", c.Store, StoreFile, StoreDynamo)
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be at least 1, got %d", c.Retry.MaxAttempts)
	}
	if c.LMStudioURL == "" {
		return fmt.Errorf("lm_studio_url must not be empty")
	}
	return nil
}

// MediaStorePath is the JSON file used by the file store.
func (c *Config) MediaStorePath() string {
	return filepath.Join(c.DataDir, "media.json")
}

// TempDir holds per-analysis temporary frames.
func (c *Config) TempDir() string {
	return filepath.Join(c.DataDir, "temp")
}
