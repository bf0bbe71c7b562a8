// Package procscan polls the process table for shell commands that reference
// tracked document files.
//
// A copy command naming a protected spreadsheet on its command line is about
// as deliberate as mishandling gets, so a registry hit from this source is
// always classified HIGH downstream.
package procscan

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"docsentry/internal/logging"
	"docsentry/internal/metrics"
	"docsentry/internal/observe"
	"docsentry/internal/schedule"
)

// Process is one entry from a process-table snapshot.
type Process struct {
	PID     int
	Name    string
	Cmdline string
}

// Lister is the platform primitive behind the scanner. Implementations must
// tolerate processes vanishing mid-enumeration.
type Lister interface {
	// Processes returns a snapshot of running processes.
	Processes(ctx context.Context) ([]Process, error)

	// OpenFiles returns the regular files a process currently holds open.
	// Used by the browser scanner; permission errors mean an empty list.
	OpenFiles(ctx context.Context, pid int) ([]string, error)
}

// DefaultInterval between process-table snapshots.
const DefaultInterval = 5 * time.Second

// DefaultSuspiciousCommands are the command names that mark a process as a
// potential file copy or move.
var DefaultSuspiciousCommands = []string{"copy", "xcopy", "robocopy", "move", "mv", "cp"}

// DefaultTrackedExtensions are the document extensions whose paths get
// correlated against the registry.
var DefaultTrackedExtensions = []string{".xlsx", ".xlsm"}

// Scanner periodically snapshots the process table and emits an observation
// for each command line referencing an on-disk tracked document.
type Scanner struct {
	lister     Lister
	sink       observe.Sink
	log        *logging.Logger
	interval   time.Duration
	commands   []string
	extensions []string

	// seen suppresses re-reporting the same pid+path while the process lives.
	seen map[string]bool
}

// Config tunes a Scanner. Zero values select the defaults.
type Config struct {
	Interval           time.Duration
	SuspiciousCommands []string
	TrackedExtensions  []string
}

// New builds a Scanner.
func New(lister Lister, sink observe.Sink, log *logging.Logger, cfg Config) *Scanner {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.SuspiciousCommands == nil {
		cfg.SuspiciousCommands = DefaultSuspiciousCommands
	}
	if cfg.TrackedExtensions == nil {
		cfg.TrackedExtensions = DefaultTrackedExtensions
	}

	return &Scanner{
		lister:     lister,
		sink:       sink,
		log:        log.WithComponent("procscan"),
		interval:   cfg.Interval,
		commands:   lowerAll(cfg.SuspiciousCommands),
		extensions: lowerAll(cfg.TrackedExtensions),
		seen:       make(map[string]bool),
	}
}

// Run polls until ctx is done.
func (s *Scanner) Run(ctx context.Context) {
	schedule.Poller{Interval: s.interval}.Run(ctx, s.scan)
}

// scan performs one process-table pass. Returns false only when the snapshot
// itself failed; per-process errors are normal churn and skipped silently.
func (s *Scanner) scan(ctx context.Context) bool {
	procs, err := s.lister.Processes(ctx)
	if err != nil {
		metrics.SourceErrorsTotal(observe.DetectorProcess).Inc()
		s.log.Debug("process snapshot failed", "error", err)
		return false
	}

	live := make(map[string]bool, len(s.seen))
	for _, proc := range procs {
		cmdline := strings.ToLower(proc.Cmdline)
		if cmdline == "" || !containsAny(cmdline, s.commands) {
			continue
		}

		for _, path := range s.trackedPaths(proc.Cmdline) {
			key := fmt.Sprintf("%d|%s", proc.PID, path)
			live[key] = true
			if s.seen[key] {
				continue
			}
			s.seen[key] = true

			s.sink.Submit(ctx, observe.Observation{
				Kind:        observe.KindCommandLineAccess,
				SourcePath:  path,
				ProcessName: proc.Name,
				Detector:    observe.DetectorProcess,
				Context:     map[string]string{"command_line": proc.Cmdline},
				Timestamp:   time.Now(),
			})
		}
	}
	s.seen = live
	return true
}

// trackedPaths extracts command-line arguments that end in a tracked
// extension and still exist on disk.
func (s *Scanner) trackedPaths(cmdline string) []string {
	var paths []string
	for _, word := range strings.Fields(cmdline) {
		word = strings.Trim(word, `"'`)
		lower := strings.ToLower(word)

		matched := false
		for _, ext := range s.extensions {
			if strings.HasSuffix(lower, ext) {
				matched = true
				break
			}
		}
		if !matched {
			continue
		}
		if info, err := os.Stat(word); err != nil || info.IsDir() {
			continue
		}
		paths = append(paths, word)
	}
	return paths
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func lowerAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(s)
	}
	return out
}
