package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// PlatformDataDir returns the platform-specific data directory.
//
// Platform paths:
//   - macOS:   ~/Library/Application Support/docsentry/
//   - Linux:   ~/.local/share/docsentry/
//   - Windows: %APPDATA%\docsentry\
//
// Falls back to ~/.docsentry if platform detection fails.
func PlatformDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".docsentry"
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "docsentry")
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "docsentry")
		}
		return filepath.Join(home, "docsentry")
	case "linux":
		if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
			return filepath.Join(xdg, "docsentry")
		}
		return filepath.Join(home, ".local", "share", "docsentry")
	default:
		return filepath.Join(home, ".docsentry")
	}
}

// DefaultConfigPath returns the default config file location.
func DefaultConfigPath() string {
	return filepath.Join(PlatformDataDir(), "config.toml")
}

// DefaultConfig returns a configuration with all defaults applied.
func DefaultConfig() *Config {
	dataDir := PlatformDataDir()
	return &Config{
		Version: Version,
		Storage: StorageConfig{
			HistoryPath: filepath.Join(dataDir, "history.db"),
			TokenPath:   filepath.Join(dataDir, "tokens.db"),
		},
		Watch: WatchConfig{
			Roots:      defaultWatchRoots(),
			DebounceMs: 2000,
		},
		Process: ProcessConfig{
			Enabled:    true,
			IntervalMs: 5000,
		},
		Browser: BrowserConfig{
			Enabled:    true,
			IntervalMs: 2000,
		},
		Clipboard: ClipboardConfig{
			Enabled:     true,
			IntervalMs:  1000,
			MinTextSize: 1000,
		},
		Reporting: ReportingConfig{
			TimeoutMs: 5000,
			QueueSize: 256,
		},
		Token: TokenConfig{
			TTLMinutes: 10,
		},
		Admin: AdminConfig{
			Listen: "127.0.0.1:7710",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// defaultWatchRoots lists the directories users drag tracked documents
// through most often.
func defaultWatchRoots() []string {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	return []string{
		filepath.Join(home, "Downloads"),
		filepath.Join(home, "Desktop"),
		filepath.Join(home, "Documents"),
		os.TempDir(),
	}
}

// applyDefaults fills zero values left by a partial config file.
func (c *Config) applyDefaults() {
	def := DefaultConfig()
	if c.Version == 0 {
		c.Version = def.Version
	}
	if c.Storage.HistoryPath == "" {
		c.Storage.HistoryPath = def.Storage.HistoryPath
	}
	if c.Storage.TokenPath == "" {
		c.Storage.TokenPath = def.Storage.TokenPath
	}
	if len(c.Watch.Roots) == 0 {
		c.Watch.Roots = def.Watch.Roots
	}
	if c.Watch.DebounceMs == 0 {
		c.Watch.DebounceMs = def.Watch.DebounceMs
	}
	if c.Process.IntervalMs == 0 {
		c.Process.IntervalMs = def.Process.IntervalMs
	}
	if c.Browser.IntervalMs == 0 {
		c.Browser.IntervalMs = def.Browser.IntervalMs
	}
	if c.Clipboard.IntervalMs == 0 {
		c.Clipboard.IntervalMs = def.Clipboard.IntervalMs
	}
	if c.Clipboard.MinTextSize == 0 {
		c.Clipboard.MinTextSize = def.Clipboard.MinTextSize
	}
	if c.Reporting.TimeoutMs == 0 {
		c.Reporting.TimeoutMs = def.Reporting.TimeoutMs
	}
	if c.Reporting.QueueSize == 0 {
		c.Reporting.QueueSize = def.Reporting.QueueSize
	}
	if c.Token.TTLMinutes == 0 {
		c.Token.TTLMinutes = def.Token.TTLMinutes
	}
	if c.Logging.Level == "" {
		c.Logging.Level = def.Logging.Level
	}
	if c.Logging.Format == "" {
		c.Logging.Format = def.Logging.Format
	}
}
