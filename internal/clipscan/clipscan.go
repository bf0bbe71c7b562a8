// Package clipscan polls the system clipboard for signs of a tracked file
// being staged for exfiltration: a file path sitting on the clipboard, or a
// large text blob that looks like copied-out content.
package clipscan

import (
	"context"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/atotto/clipboard"

	"docsentry/internal/fingerprint"
	"docsentry/internal/logging"
	"docsentry/internal/metrics"
	"docsentry/internal/observe"
	"docsentry/internal/schedule"
)

// Reader is the clipboard primitive. The default implementation wraps the
// system clipboard; tests supply their own.
type Reader interface {
	Read() (string, error)
}

// SystemReader reads the real system clipboard.
type SystemReader struct{}

// Read returns the clipboard's text content.
func (SystemReader) Read() (string, error) {
	return clipboard.ReadAll()
}

// DefaultInterval between clipboard polls.
const DefaultInterval = time.Second

// DefaultMinTextSize is the byte threshold above which clipboard text is
// treated as a possible content copy.
const DefaultMinTextSize = 1000

// Scanner polls the clipboard on an interval.
type Scanner struct {
	reader      Reader
	sink        observe.Sink
	log         *logging.Logger
	interval    time.Duration
	minTextSize int

	// lastHash of the clipboard content, so an unchanged clipboard is
	// processed once, not once per tick.
	lastHash string
}

// Config tunes a Scanner. Zero values select the defaults.
type Config struct {
	Interval    time.Duration
	MinTextSize int
}

// New builds a Scanner. A nil reader selects the system clipboard.
func New(reader Reader, sink observe.Sink, log *logging.Logger, cfg Config) *Scanner {
	if reader == nil {
		reader = SystemReader{}
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.MinTextSize <= 0 {
		cfg.MinTextSize = DefaultMinTextSize
	}

	return &Scanner{
		reader:      reader,
		sink:        sink,
		log:         log.WithComponent("clipscan"),
		interval:    cfg.Interval,
		minTextSize: cfg.MinTextSize,
	}
}

// Run polls until ctx is done.
func (s *Scanner) Run(ctx context.Context) {
	schedule.Poller{Interval: s.interval}.Run(ctx, s.scan)
}

func (s *Scanner) scan(ctx context.Context) bool {
	content, err := s.reader.Read()
	if err != nil {
		// An unavailable clipboard (locked, headless session) skips the
		// cycle; the scanner retries on its next tick.
		metrics.SourceErrorsTotal(observe.DetectorClipboard).Inc()
		s.log.Debug("clipboard read failed", "error", err)
		return false
	}
	if content == "" {
		return true
	}

	hash := fingerprint.HashBytes([]byte(content))
	if hash == s.lastHash {
		return true
	}
	s.lastHash = hash

	if paths := filePaths(content); len(paths) > 0 {
		for _, path := range paths {
			s.sink.Submit(ctx, observe.Observation{
				Kind:       observe.KindClipboardFileReference,
				SourcePath: path,
				Detector:   observe.DetectorClipboard,
				Timestamp:  time.Now(),
			})
		}
		return true
	}

	if len(content) >= s.minTextSize {
		s.sink.Submit(ctx, observe.Observation{
			Kind:     observe.KindClipboardLargeText,
			Detector: observe.DetectorClipboard,
			Context: map[string]string{
				"text_size":    strconv.Itoa(len(content)),
				"content_hash": hash,
			},
			Timestamp: time.Now(),
		})
	}
	return true
}

// filePaths interprets clipboard text as a file list: every line that names
// an existing regular file. A clipboard holding prose matches nothing.
func filePaths(content string) []string {
	lines := strings.Split(content, "\n")
	if len(lines) > 64 {
		return nil // too many lines to be a copied file selection
	}

	var paths []string
	for _, line := range lines {
		line = strings.Trim(strings.TrimSpace(line), `"`)
		if line == "" || !looksLikePath(line) {
			continue
		}
		if info, err := os.Stat(line); err == nil && info.Mode().IsRegular() {
			paths = append(paths, line)
		}
	}
	return paths
}

func looksLikePath(s string) bool {
	if strings.HasPrefix(s, "/") || strings.HasPrefix(s, "~") {
		return true
	}
	// Windows drive-letter or UNC form.
	if len(s) >= 3 && s[1] == ':' && (s[2] == '\\' || s[2] == '/') {
		return true
	}
	return strings.HasPrefix(s, `\\`)
}
