package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())
}

func TestLoad_PartialFileFillsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
version = 1

[watch]
roots = ["/srv/exports"]
debounce_ms = 500

[reporting]
url = "https://collector.example.com"
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"/srv/exports"}, cfg.Watch.Roots)
	assert.Equal(t, 500*time.Millisecond, cfg.DebounceDuration())
	assert.Equal(t, "https://collector.example.com", cfg.Reporting.URL)

	// Unspecified sections keep their defaults.
	assert.Equal(t, 1000, cfg.Clipboard.MinTextSize)
	assert.Equal(t, 10*time.Minute, cfg.TokenTTL())
	assert.NotEmpty(t, cfg.Storage.HistoryPath)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	assert.Error(t, err)
}

func TestLoadOrDefault_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, Version, cfg.Version)
}

func TestLoad_MalformedTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("not [valid toml"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"bad version", func(c *Config) { c.Version = 99 }, "version"},
		{"empty history path", func(c *Config) { c.Storage.HistoryPath = "" }, "storage.history_path"},
		{"shared db paths", func(c *Config) { c.Storage.TokenPath = c.Storage.HistoryPath }, "storage.token_path"},
		{"negative debounce", func(c *Config) { c.Watch.DebounceMs = -1 }, "watch.debounce_ms"},
		{"bad reporting url", func(c *Config) { c.Reporting.URL = "ftp://x" }, "reporting.url"},
		{"zero queue", func(c *Config) { c.Reporting.QueueSize = 0 }, "reporting.queue_size"},
		{"zero token ttl", func(c *Config) { c.Token.TTLMinutes = 0 }, "token.ttl_minutes"},
		{"bad admin addr", func(c *Config) { c.Admin.Listen = "no-port" }, "admin.listen"},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, "logging.level"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestValidate_CollectsMultipleErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Watch.DebounceMs = -1
	cfg.Logging.Level = "loud"

	err := cfg.Validate()
	require.Error(t, err)

	var errs ValidationErrors
	require.ErrorAs(t, err, &errs)
	assert.Len(t, errs, 2)
}

func TestSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	cfg := DefaultConfig()
	cfg.Watch.Roots = []string{"/srv/exports"}
	cfg.Reporting.URL = "http://127.0.0.1:9000"
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Watch.Roots, loaded.Watch.Roots)
	assert.Equal(t, cfg.Reporting.URL, loaded.Reporting.URL)
}

func TestEmptyAdminListenDisablesServer(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Admin.Listen = ""
	assert.NoError(t, cfg.Validate())
}
