// Package browserscan watches web browsers for upload intent.
//
// Two heuristics run against every browser process: its visible window
// titles are scored for upload-intent keywords and cloud-service names, and
// its open file handles are correlated against the asset registry. Either
// signal crossing its threshold produces an observation.
package browserscan

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"docsentry/internal/classify"
	"docsentry/internal/logging"
	"docsentry/internal/metrics"
	"docsentry/internal/observe"
	"docsentry/internal/procscan"
	"docsentry/internal/schedule"
)

// WindowLister reads the visible top-level window titles of a process.
// Implementations are platform specific; an unavailable platform returns an
// empty list, which disables title scoring but not handle correlation.
type WindowLister interface {
	Titles(ctx context.Context, pid int) ([]string, error)
}

// Correlator answers whether a path's content is a registered asset.
// Satisfied by the asset registry.
type Correlator interface {
	Lookup(path string) (originalName, contentHash string, ok bool)
}

// DefaultInterval between browser sweeps.
const DefaultInterval = 2 * time.Second

// DefaultBrowserNames match both Windows executable names and bare Unix
// process names.
var DefaultBrowserNames = []string{
	"chrome.exe", "firefox.exe", "msedge.exe", "iexplore.exe",
	"opera.exe", "brave.exe", "vivaldi.exe", "safari.exe",
	"chrome", "chromium", "firefox", "msedge", "opera", "brave", "vivaldi",
}

// Scanner sweeps browser processes on an interval.
type Scanner struct {
	procs    procscan.Lister
	windows  WindowLister
	corr     Correlator
	scorer   classify.ContextScorer
	sink     observe.Sink
	log      *logging.Logger
	interval time.Duration
	browsers []string

	// seen suppresses identical re-reports while the triggering state lasts.
	seen map[string]bool
}

// Config tunes a Scanner. Zero values select the defaults.
type Config struct {
	Interval     time.Duration
	BrowserNames []string
}

// New builds a Scanner.
func New(procs procscan.Lister, windows WindowLister, corr Correlator,
	scorer classify.ContextScorer, sink observe.Sink, log *logging.Logger, cfg Config) *Scanner {

	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.BrowserNames == nil {
		cfg.BrowserNames = DefaultBrowserNames
	}

	browsers := make([]string, len(cfg.BrowserNames))
	for i, b := range cfg.BrowserNames {
		browsers[i] = strings.ToLower(b)
	}

	return &Scanner{
		procs:    procs,
		windows:  windows,
		corr:     corr,
		scorer:   scorer,
		sink:     sink,
		log:      log.WithComponent("browserscan"),
		interval: cfg.Interval,
		browsers: browsers,
		seen:     make(map[string]bool),
	}
}

// Run polls until ctx is done.
func (s *Scanner) Run(ctx context.Context) {
	schedule.Poller{Interval: s.interval}.Run(ctx, s.scan)
}

func (s *Scanner) scan(ctx context.Context) bool {
	procs, err := s.procs.Processes(ctx)
	if err != nil {
		metrics.SourceErrorsTotal(observe.DetectorBrowser).Inc()
		s.log.Debug("process snapshot failed", "error", err)
		return false
	}

	live := make(map[string]bool, len(s.seen))
	for _, proc := range procs {
		if !s.isBrowser(proc.Name) {
			continue
		}
		s.checkTitles(ctx, proc, live)
		s.checkHandles(ctx, proc, live)
	}
	s.seen = live
	return true
}

func (s *Scanner) isBrowser(name string) bool {
	lower := strings.ToLower(name)
	for _, b := range s.browsers {
		if strings.Contains(lower, b) {
			return true
		}
	}
	return false
}

// checkTitles scores the process's window titles. Below-threshold titles are
// suppressed here and never reach the pipeline.
func (s *Scanner) checkTitles(ctx context.Context, proc procscan.Process, live map[string]bool) {
	titles, err := s.windows.Titles(ctx, proc.PID)
	if err != nil || len(titles) == 0 {
		return
	}

	score, services, severity := s.scorer.Score(titles)
	if severity == classify.Suppressed {
		return
	}

	key := fmt.Sprintf("title|%d|%d|%s", proc.PID, score, strings.Join(services, ","))
	live[key] = true
	if s.seen[key] {
		return
	}
	s.seen[key] = true

	sort.Strings(titles)
	s.sink.Submit(ctx, observe.Observation{
		Kind:        observe.KindBrowserWindowContext,
		ProcessName: proc.Name,
		Detector:    observe.DetectorBrowser,
		Context: map[string]string{
			"window_titles":     strings.Join(titles, "\n"),
			"upload_score":      strconv.Itoa(score),
			"detected_services": strings.Join(services, ", "),
		},
		Timestamp: time.Now(),
	})
}

// checkHandles correlates the process's open files against the registry.
func (s *Scanner) checkHandles(ctx context.Context, proc procscan.Process, live map[string]bool) {
	files, err := s.procs.OpenFiles(ctx, proc.PID)
	if err != nil {
		return
	}

	for _, path := range files {
		originalName, hash, ok := s.corr.Lookup(path)
		if !ok {
			continue
		}

		key := fmt.Sprintf("handle|%d|%s", proc.PID, path)
		live[key] = true
		if s.seen[key] {
			continue
		}
		s.seen[key] = true

		titles, _ := s.windows.Titles(ctx, proc.PID)
		score, services, _ := s.scorer.Score(titles)

		s.sink.Submit(ctx, observe.Observation{
			Kind:         observe.KindBrowserWindowContext,
			SourcePath:   path,
			ProcessName:  proc.Name,
			Detector:     observe.DetectorBrowser,
			Correlated:   true,
			OriginalName: originalName,
			ContentHash:  hash,
			Context: map[string]string{
				"window_titles":     strings.Join(titles, "\n"),
				"upload_score":      strconv.Itoa(score),
				"detected_services": strings.Join(services, ", "),
			},
			Timestamp: time.Now(),
		})
	}
}
