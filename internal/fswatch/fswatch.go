// Package fswatch watches the release-prone directories (downloads,
// documents, desktop, temp) for file activity and feeds the observation
// pipeline.
package fswatch

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"docsentry/internal/logging"
	"docsentry/internal/observe"
)

// DefaultDebounce is how long a written file must stay quiet before a single
// FILE_MODIFIED observation is emitted for the whole burst.
const DefaultDebounce = 2 * time.Second

// Watcher subscribes to filesystem notifications under a fixed set of roots.
// Creates and renames are reported immediately; writes are debounced so an
// application saving in chunks produces one observation, not dozens.
type Watcher struct {
	fsw      *fsnotify.Watcher
	roots    []string
	sink     observe.Sink
	log      *logging.Logger
	debounce time.Duration

	// pending write timestamps, path -> last write seen
	pending map[string]time.Time
	mu      sync.Mutex

	wg sync.WaitGroup
}

// New creates a Watcher over the given roots. Roots that do not exist are
// skipped with a log line; a surveilled machine does not always have every
// standard directory.
func New(roots []string, debounce time.Duration, sink observe.Sink, log *logging.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	return &Watcher{
		fsw:      fsw,
		roots:    roots,
		sink:     sink,
		log:      log.WithComponent("fswatch"),
		debounce: debounce,
		pending:  make(map[string]time.Time),
	}, nil
}

// Start registers the watch roots and runs the event loops until ctx is done.
func (w *Watcher) Start(ctx context.Context) error {
	watched := 0
	for _, root := range w.roots {
		if err := w.addTree(root); err != nil {
			w.log.Warn("skipping watch root", "root", root, "error", err)
			continue
		}
		watched++
		w.log.Info("watching directory", "root", root)
	}
	if watched == 0 {
		w.log.Warn("no watch roots available, filesystem source idle")
	}

	w.wg.Add(2)
	go w.eventLoop(ctx)
	go w.flushLoop(ctx)
	return nil
}

// Stop waits for the loops to exit and releases the notify handle. Call after
// cancelling the context passed to Start.
func (w *Watcher) Stop() error {
	w.wg.Wait()
	return w.fsw.Close()
}

// addTree registers root and every subdirectory. fsnotify watches are not
// recursive, so directories created later are added from the event loop.
func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable subtree: skip it, keep the rest of the walk alive.
			if path == root {
				return err
			}
			return fs.SkipDir
		}
		if d.IsDir() {
			return w.fsw.Add(path)
		}
		return nil
	})
}

func (w *Watcher) eventLoop(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(ctx, event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Debug("notify error", "error", err)
		}
	}
}

func (w *Watcher) handleEvent(ctx context.Context, event fsnotify.Event) {
	switch {
	case event.Op.Has(fsnotify.Create):
		info, err := os.Stat(event.Name)
		if err != nil {
			return // vanished between event and stat
		}
		if info.IsDir() {
			if err := w.addTree(event.Name); err != nil {
				w.log.Debug("watch new directory failed", "path", event.Name, "error", err)
			}
			return
		}
		w.submit(ctx, observe.Observation{
			Kind:       observe.KindFileCreated,
			SourcePath: event.Name,
		})

	case event.Op.Has(fsnotify.Write):
		if info, err := os.Stat(event.Name); err != nil || info.IsDir() {
			return
		}
		w.mu.Lock()
		w.pending[event.Name] = time.Now()
		w.mu.Unlock()

	case event.Op.Has(fsnotify.Rename):
		// The platform reports the vacated path only; the new location shows
		// up as its own create event and is correlated independently.
		w.mu.Lock()
		delete(w.pending, event.Name)
		w.mu.Unlock()
		w.submit(ctx, observe.Observation{
			Kind:       observe.KindFileMoved,
			SourcePath: event.Name,
		})

	case event.Op.Has(fsnotify.Remove):
		w.mu.Lock()
		delete(w.pending, event.Name)
		w.mu.Unlock()
	}
}

// flushLoop emits one FILE_MODIFIED per path once its write burst has been
// quiet for the debounce interval.
func (w *Watcher) flushLoop(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			w.flushStable(ctx, now)
		}
	}
}

func (w *Watcher) flushStable(ctx context.Context, now time.Time) {
	threshold := now.Add(-w.debounce)

	w.mu.Lock()
	var stable []string
	for path, last := range w.pending {
		if last.Before(threshold) {
			stable = append(stable, path)
			delete(w.pending, path)
		}
	}
	w.mu.Unlock()

	for _, path := range stable {
		w.submit(ctx, observe.Observation{
			Kind:       observe.KindFileModified,
			SourcePath: path,
		})
	}
}

func (w *Watcher) submit(ctx context.Context, obs observe.Observation) {
	obs.Detector = observe.DetectorFilesystem
	obs.Timestamp = time.Now()
	w.sink.Submit(ctx, obs)
}
