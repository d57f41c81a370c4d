// ABOUTME: Rotograma configuration management with environment overrides
// ABOUTME: Handles settings, capture preferences, and the storage factory

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/harper/rotograma/internal/compositor"
	"github.com/harper/rotograma/internal/storage"
)

// EnvPrefix namespaces environment overrides, e.g. ROTOGRAMA_DATA_DIR.
const EnvPrefix = "ROTOGRAMA_"

// Defaults applied when a field is left empty.
const (
	DefaultOverlayTimeout = 2 * time.Second
	DefaultJPEGQuality    = 85
	DefaultLogLevel       = "info"
)

// defaultDBFilename is the SQLite database filename inside the data directory.
const defaultDBFilename = "rotograma.db"

// Config stores rotograma configuration.
type Config struct {
	// DataDir is the root directory for data storage.
	// Supports ~ expansion for home directory. Defaults to ~/.local/share/rotograma.
	DataDir string `json:"data_dir,omitempty" env:"DATA_DIR"`

	// InsetCorner pins the mini-map inset: bottom-right (default), bottom-left, top-right, top-left.
	InsetCorner string `json:"inset_corner,omitempty" env:"INSET_CORNER"`

	// OverlayTimeout bounds the wait for a map snapshot, as a Go duration ("2s").
	OverlayTimeout string `json:"overlay_timeout,omitempty" env:"OVERLAY_TIMEOUT"`

	// JPEGQuality is the capture image quality, 1-100.
	JPEGQuality int `json:"jpeg_quality,omitempty" env:"JPEG_QUALITY"`

	// WatermarkPath points to a PNG or JPEG logo drawn at the top of every capture.
	WatermarkPath string `json:"watermark_path,omitempty" env:"WATERMARK"`

	// ReportTitle heads the PDF report.
	ReportTitle string `json:"report_title,omitempty" env:"REPORT_TITLE"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"log_level,omitempty" env:"LOG_LEVEL"`
}

// GetDataDir returns the configured data directory with ~ expanded,
// defaulting to the standard XDG data directory.
func (c *Config) GetDataDir() string {
	if c.DataDir == "" {
		return defaultDataDir()
	}
	return ExpandPath(c.DataDir)
}

// GetInsetCorner parses the configured inset corner.
func (c *Config) GetInsetCorner() (compositor.Corner, error) {
	if c.InsetCorner == "" {
		return compositor.BottomRight, nil
	}
	return compositor.ParseCorner(c.InsetCorner)
}

// GetOverlayTimeout parses the configured overlay timeout.
func (c *Config) GetOverlayTimeout() (time.Duration, error) {
	if c.OverlayTimeout == "" {
		return DefaultOverlayTimeout, nil
	}
	d, err := time.ParseDuration(c.OverlayTimeout)
	if err != nil {
		return 0, fmt.Errorf("overlay_timeout: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("overlay_timeout must be positive, got %s", d)
	}
	return d, nil
}

// GetJPEGQuality returns the capture quality, defaulting when unset.
func (c *Config) GetJPEGQuality() int {
	if c.JPEGQuality == 0 {
		return DefaultJPEGQuality
	}
	return c.JPEGQuality
}

// GetLogLevel returns the configured log level name.
func (c *Config) GetLogLevel() string {
	if c.LogLevel == "" {
		return DefaultLogLevel
	}
	return strings.ToLower(c.LogLevel)
}

// Validate checks every field that has a constrained format.
func (c *Config) Validate() error {
	if _, err := c.GetInsetCorner(); err != nil {
		return err
	}
	if _, err := c.GetOverlayTimeout(); err != nil {
		return err
	}
	if q := c.GetJPEGQuality(); q < 1 || q > 100 {
		return fmt.Errorf("jpeg_quality must be between 1 and 100, got %d", q)
	}
	switch c.GetLogLevel() {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log_level: %q", c.LogLevel)
	}
	return nil
}

// ApplyEnv overrides fields from ROTOGRAMA_* environment variables.
// Unset variables leave the file value in place.
func (c *Config) ApplyEnv() error {
	if err := env.ParseWithOptions(c, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// defaultDataDir returns the default XDG data directory for rotograma.
func defaultDataDir() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "rotograma")
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) string {
	if path == "" {
		return ""
	}
	if path == "~" {
		home, _ := os.UserHomeDir()
		return home
	}
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

// OpenStorage opens the SQLite repository inside the data directory.
func (c *Config) OpenStorage() (storage.Repository, error) {
	return storage.NewSQLiteDB(filepath.Join(c.GetDataDir(), defaultDBFilename))
}

// GetConfigPath returns the config file path.
func GetConfigPath() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, _ := os.UserHomeDir()
		configDir = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(configDir, "rotograma", "config.json")
}

// Load reads config from disk and applies environment overrides.
// A missing file is created with defaults on first run.
func Load() (*Config, error) {
	path := GetConfigPath()
	cfg := &Config{}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		if saveErr := cfg.Save(); saveErr != nil {
			fmt.Fprintf(os.Stderr, "warning: could not save default config: %v\n", saveErr)
		}
	case err != nil:
		return nil, err
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes config to disk.
func (c *Config) Save() error {
	path := GetConfigPath()
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return atomicWrite(path, data)
}

// atomicWrite replaces path through a temp file in the same directory.
func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil { //nolint:gosec // 0750 is appropriate for user config directory
		return fmt.Errorf("create config directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".config-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	return os.Rename(tmpPath, path)
}
