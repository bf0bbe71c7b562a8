package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
		ok   bool
	}{
		{"debug", LevelDebug, true},
		{"INFO", LevelInfo, true},
		{"warn", LevelWarn, true},
		{"warning", LevelWarn, true},
		{"error", LevelError, true},
		{"loud", LevelInfo, false},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if tt.ok {
			require.NoError(t, err, tt.in)
			assert.Equal(t, tt.want, got, tt.in)
		} else {
			assert.Error(t, err, tt.in)
		}
	}
}

func TestParseFormat(t *testing.T) {
	got, err := ParseFormat("json")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, got)

	got, err = ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatText, got)

	_, err = ParseFormat("xml")
	assert.Error(t, err)
}

func TestShouldRedact(t *testing.T) {
	assert.True(t, shouldRedact("token"))
	assert.True(t, shouldRedact("download_token"))
	assert.True(t, shouldRedact("Password"))
	assert.True(t, shouldRedact("api_secret"))
	assert.False(t, shouldRedact("file_name"))
	assert.False(t, shouldRedact("severity"))
}

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "daemon.log")
	l, err := New(&Config{Level: LevelInfo, Output: "file", FilePath: path})
	require.NoError(t, err)

	l.Info("daemon started", "watch_roots", "/srv/exports")
	l.Info("token issued", "download_token", "super-sensitive-value")
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "daemon started")
	assert.Contains(t, string(data), "[REDACTED]")
	assert.NotContains(t, string(data), "super-sensitive-value")
}

func TestNew_FileOutputRequiresPath(t *testing.T) {
	_, err := New(&Config{Output: "file"})
	assert.Error(t, err)
}

func TestNew_LevelFilter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "daemon.log")
	l, err := New(&Config{Level: LevelWarn, Output: "file", FilePath: path})
	require.NoError(t, err)

	l.Debug("noise")
	l.Info("still noise")
	l.Warn("kept")
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "noise")
	assert.Contains(t, string(data), "kept")
}

func TestWithComponent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "daemon.log")
	l, err := New(&Config{Level: LevelInfo, Output: "file", FilePath: path})
	require.NoError(t, err)

	l.WithComponent("fswatch").Info("watching directory")
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "component=fswatch")
}

func TestDefault_NeverNil(t *testing.T) {
	assert.NotNil(t, Default())
}
