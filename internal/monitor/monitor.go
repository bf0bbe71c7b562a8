package monitor

import (
	"context"
	"sync"
	"time"

	"docsentry/internal/browserscan"
	"docsentry/internal/clipscan"
	"docsentry/internal/fswatch"
	"docsentry/internal/logging"
	"docsentry/internal/procscan"
)

// Config gathers the per-source settings. Unset platform primitives default
// to the best implementation this build has.
type Config struct {
	// Filesystem watcher.
	WatchRoots          []string
	Debounce            time.Duration
	LogUntrackedCreates bool

	// Process scanner.
	ProcessDisabled    bool
	ProcessInterval    time.Duration
	SuspiciousCommands []string
	TrackedExtensions  []string

	// Browser scanner.
	BrowserDisabled bool
	BrowserInterval time.Duration
	BrowserNames    []string

	// Clipboard scanner.
	ClipboardDisabled bool
	ClipboardInterval time.Duration
	ClipboardMinText  int

	// Platform primitives, injectable for tests.
	ProcessLister   procscan.Lister
	WindowLister    browserscan.WindowLister
	ClipboardReader clipscan.Reader
}

// Monitor owns the observation sources. Each runs on its own goroutine with
// no central scheduler; stopping cancels their shared context and waits for
// every source to finish its current cycle.
type Monitor struct {
	pipeline *Pipeline
	cfg      Config
	log      *logging.Logger

	watcher *fswatch.Watcher
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New builds a Monitor around an existing pipeline.
func New(pipeline *Pipeline, log *logging.Logger, cfg Config) *Monitor {
	if cfg.ProcessLister == nil {
		cfg.ProcessLister = procscan.NewPlatformLister()
	}
	if cfg.WindowLister == nil {
		cfg.WindowLister = browserscan.NewPlatformWindowLister()
	}

	return &Monitor{
		pipeline: pipeline,
		cfg:      cfg,
		log:      log.WithComponent("monitor"),
	}
}

// Start launches every source. The filesystem watcher failing to initialize
// is fatal; individual scanners degrade on their own.
func (m *Monitor) Start(ctx context.Context) error {
	ctx, m.cancel = context.WithCancel(ctx)

	watcher, err := fswatch.New(m.cfg.WatchRoots, m.cfg.Debounce, m.pipeline, m.log)
	if err != nil {
		return err
	}
	if err := watcher.Start(ctx); err != nil {
		return err
	}
	m.watcher = watcher

	sources := make(map[string]func(context.Context))

	if !m.cfg.ProcessDisabled {
		procScanner := procscan.New(m.cfg.ProcessLister, m.pipeline, m.log, procscan.Config{
			Interval:           m.cfg.ProcessInterval,
			SuspiciousCommands: m.cfg.SuspiciousCommands,
			TrackedExtensions:  m.cfg.TrackedExtensions,
		})
		sources["procscan"] = procScanner.Run
	}

	if !m.cfg.BrowserDisabled {
		browserScanner := browserscan.New(
			m.cfg.ProcessLister, m.cfg.WindowLister, m.pipeline.registry,
			m.pipeline.scorer, m.pipeline, m.log,
			browserscan.Config{
				Interval:     m.cfg.BrowserInterval,
				BrowserNames: m.cfg.BrowserNames,
			})
		sources["browserscan"] = browserScanner.Run
	}

	if !m.cfg.ClipboardDisabled {
		clipScanner := clipscan.New(m.cfg.ClipboardReader, m.pipeline, m.log, clipscan.Config{
			Interval:    m.cfg.ClipboardInterval,
			MinTextSize: m.cfg.ClipboardMinText,
		})
		sources["clipscan"] = clipScanner.Run
	}

	for name, run := range sources {
		m.wg.Add(1)
		go func(name string, run func(context.Context)) {
			defer m.wg.Done()
			m.log.Info("source started", "source", name)
			run(ctx)
			m.log.Info("source stopped", "source", name)
		}(name, run)
	}

	m.log.Info("monitoring started", "roots", len(m.cfg.WatchRoots))
	return nil
}

// Stop signals every source and blocks until they have finished their
// current cycle. Shutdown latency is bounded by the slowest poll interval.
func (m *Monitor) Stop() {
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
	if m.watcher != nil {
		if err := m.watcher.Stop(); err != nil {
			m.log.Debug("watcher close", "error", err)
		}
	}
	m.log.Info("monitoring stopped")
}
