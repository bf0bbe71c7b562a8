// Package config handles configuration loading, validation, and defaults for
// the docsentry daemon.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Version is the current configuration schema version.
const Version = 1

// Config holds the complete daemon configuration.
type Config struct {
	// Version is the configuration schema version.
	Version int `toml:"version"`

	// Storage configuration for the history and token databases.
	Storage StorageConfig `toml:"storage"`

	// Watch configuration for filesystem monitoring.
	Watch WatchConfig `toml:"watch"`

	// Process scanning configuration.
	Process ProcessConfig `toml:"process"`

	// Browser scanning configuration.
	Browser BrowserConfig `toml:"browser"`

	// Clipboard scanning configuration.
	Clipboard ClipboardConfig `toml:"clipboard"`

	// Classify tunes severity derivation.
	Classify ClassifyConfig `toml:"classify"`

	// Reporting configuration for incident forwarding.
	Reporting ReportingConfig `toml:"reporting"`

	// Token configuration for download grants.
	Token TokenConfig `toml:"token"`

	// Admin is the local HTTP surface (ingest, health, metrics).
	Admin AdminConfig `toml:"admin"`

	// Logging configuration.
	Logging LoggingConfig `toml:"logging"`
}

// StorageConfig holds database paths.
type StorageConfig struct {
	// HistoryPath is the path to the asset/incident/activity database.
	HistoryPath string `toml:"history_path"`

	// TokenPath is the path to the download-token database.
	TokenPath string `toml:"token_path"`
}

// WatchConfig holds filesystem watcher settings.
type WatchConfig struct {
	// Roots is a list of directory trees to monitor.
	Roots []string `toml:"roots"`

	// DebounceMs is how long a file must stay quiet before a write
	// burst is reported, in milliseconds.
	DebounceMs int `toml:"debounce_ms"`

	// LogUntrackedCreates reports creations of files that are not
	// registered assets as LOW severity incidents.
	LogUntrackedCreates bool `toml:"log_untracked_creates"`
}

// ProcessConfig holds process scanner settings.
type ProcessConfig struct {
	// Enabled toggles the process scanner.
	Enabled bool `toml:"enabled"`

	// IntervalMs is the scan cadence in milliseconds.
	IntervalMs int `toml:"interval_ms"`

	// SuspiciousCommands are executable names that trigger inspection
	// of command-line arguments. Empty uses the built-in list.
	SuspiciousCommands []string `toml:"suspicious_commands"`

	// TrackedExtensions are the file extensions inspected in command
	// lines. Empty uses the built-in list.
	TrackedExtensions []string `toml:"tracked_extensions"`
}

// BrowserConfig holds browser scanner settings.
type BrowserConfig struct {
	// Enabled toggles the browser scanner.
	Enabled bool `toml:"enabled"`

	// IntervalMs is the scan cadence in milliseconds.
	IntervalMs int `toml:"interval_ms"`

	// ProcessNames are the browser executables to watch. Empty uses
	// the built-in list.
	ProcessNames []string `toml:"process_names"`
}

// ClipboardConfig holds clipboard scanner settings.
type ClipboardConfig struct {
	// Enabled toggles the clipboard scanner.
	Enabled bool `toml:"enabled"`

	// IntervalMs is the scan cadence in milliseconds.
	IntervalMs int `toml:"interval_ms"`

	// MinTextSize is the byte threshold below which plain clipboard
	// text is ignored.
	MinTextSize int `toml:"min_text_size"`
}

// ClassifyConfig tunes severity derivation.
type ClassifyConfig struct {
	// InternalDrives are drive prefixes considered internal; anything
	// else drive-lettered is treated as removable. Empty uses the
	// built-in list.
	InternalDrives []string `toml:"internal_drives"`

	// CloudMarkers are path substrings that mark cloud-synced
	// destinations. Empty uses the built-in list.
	CloudMarkers []string `toml:"cloud_markers"`
}

// ReportingConfig holds incident-forwarding settings.
type ReportingConfig struct {
	// URL is the base URL of the upstream collector. Empty disables
	// forwarding; incidents are still stored locally.
	URL string `toml:"url"`

	// TimeoutMs bounds each forward attempt in milliseconds.
	TimeoutMs int `toml:"timeout_ms"`

	// QueueSize bounds the in-memory forward queue.
	QueueSize int `toml:"queue_size"`
}

// TokenConfig holds download-grant settings.
type TokenConfig struct {
	// TTLMinutes is the default token lifetime in minutes.
	TTLMinutes int `toml:"ttl_minutes"`
}

// AdminConfig holds the local HTTP surface settings.
type AdminConfig struct {
	// Listen is the address for the admin HTTP server. Empty disables
	// the server.
	Listen string `toml:"listen"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error.
	Level string `toml:"level"`

	// Format is the output format: text or json.
	Format string `toml:"format"`

	// File is an optional log file path. Empty logs to stderr.
	File string `toml:"file"`
}

// Load reads a TOML config file, fills defaults, and validates the result.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault loads the config at path, or returns defaults when the file
// does not exist.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := DefaultConfig()
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	return Load(path)
}

// Save writes the configuration to path as TOML.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create config file: %w", err)
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(c); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return nil
}

// DebounceDuration returns the watch debounce as a duration.
func (c *Config) DebounceDuration() time.Duration {
	return time.Duration(c.Watch.DebounceMs) * time.Millisecond
}

// ReportTimeout returns the forwarding timeout as a duration.
func (c *Config) ReportTimeout() time.Duration {
	return time.Duration(c.Reporting.TimeoutMs) * time.Millisecond
}

// TokenTTL returns the default token lifetime as a duration.
func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.Token.TTLMinutes) * time.Minute
}
