package procscan

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docsentry/internal/logging"
	"docsentry/internal/observe"
)

// fakeLister serves a fixed process snapshot.
type fakeLister struct {
	procs []Process
	err   error
}

func (f *fakeLister) Processes(ctx context.Context) ([]Process, error) {
	return f.procs, f.err
}

func (f *fakeLister) OpenFiles(ctx context.Context, pid int) ([]string, error) {
	return nil, nil
}

// recordingSink collects submitted observations.
type recordingSink struct {
	mu  sync.Mutex
	obs []observe.Observation
}

func (r *recordingSink) Submit(ctx context.Context, o observe.Observation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.obs = append(r.obs, o)
}

func (r *recordingSink) all() []observe.Observation {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]observe.Observation(nil), r.obs...)
}

func writeTracked(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("cells"), 0o644))
	return path
}

func TestScan_SuspiciousCommandWithTrackedFile(t *testing.T) {
	path := writeTracked(t, "report.xlsx")
	lister := &fakeLister{procs: []Process{
		{PID: 10, Name: "cmd.exe", Cmdline: fmt.Sprintf(`copy "%s" D:\`, path)},
	}}
	sink := &recordingSink{}
	s := New(lister, sink, logging.Default(), Config{})

	assert.True(t, s.scan(context.Background()))

	obs := sink.all()
	require.Len(t, obs, 1)
	assert.Equal(t, observe.KindCommandLineAccess, obs[0].Kind)
	assert.Equal(t, path, obs[0].SourcePath)
	assert.Equal(t, "cmd.exe", obs[0].ProcessName)
	assert.Equal(t, observe.DetectorProcess, obs[0].Detector)
	assert.Contains(t, obs[0].Context["command_line"], "copy")
}

func TestScan_IgnoresBenignCommands(t *testing.T) {
	path := writeTracked(t, "report.xlsx")
	lister := &fakeLister{procs: []Process{
		{PID: 10, Name: "excel.exe", Cmdline: fmt.Sprintf(`excel.exe "%s"`, path)},
	}}
	sink := &recordingSink{}
	s := New(lister, sink, logging.Default(), Config{})

	assert.True(t, s.scan(context.Background()))
	assert.Empty(t, sink.all())
}

func TestScan_IgnoresUntrackedExtensions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	lister := &fakeLister{procs: []Process{
		{PID: 10, Name: "cp", Cmdline: "cp " + path + " /tmp/"},
	}}
	sink := &recordingSink{}
	s := New(lister, sink, logging.Default(), Config{})

	assert.True(t, s.scan(context.Background()))
	assert.Empty(t, sink.all())
}

func TestScan_IgnoresMissingFiles(t *testing.T) {
	lister := &fakeLister{procs: []Process{
		{PID: 10, Name: "cp", Cmdline: `cp /gone/report.xlsx /tmp/`},
	}}
	sink := &recordingSink{}
	s := New(lister, sink, logging.Default(), Config{})

	assert.True(t, s.scan(context.Background()))
	assert.Empty(t, sink.all())
}

func TestScan_DeduplicatesWhileProcessLives(t *testing.T) {
	path := writeTracked(t, "report.xlsx")
	lister := &fakeLister{procs: []Process{
		{PID: 10, Name: "cp", Cmdline: "cp " + path + " /tmp/"},
	}}
	sink := &recordingSink{}
	s := New(lister, sink, logging.Default(), Config{})

	for i := 0; i < 3; i++ {
		assert.True(t, s.scan(context.Background()))
	}
	assert.Len(t, sink.all(), 1, "the same pid+path reports once per process lifetime")
}

func TestScan_ReportsAgainAfterProcessRestart(t *testing.T) {
	path := writeTracked(t, "report.xlsx")
	lister := &fakeLister{procs: []Process{
		{PID: 10, Name: "cp", Cmdline: "cp " + path + " /tmp/"},
	}}
	sink := &recordingSink{}
	s := New(lister, sink, logging.Default(), Config{})

	assert.True(t, s.scan(context.Background()))

	// Process exits; seen-state for it is discarded.
	lister.procs = nil
	assert.True(t, s.scan(context.Background()))

	// A new process runs the same command.
	lister.procs = []Process{{PID: 11, Name: "cp", Cmdline: "cp " + path + " /tmp/"}}
	assert.True(t, s.scan(context.Background()))

	assert.Len(t, sink.all(), 2)
}

func TestScan_SnapshotFailure(t *testing.T) {
	lister := &fakeLister{err: errors.New("proc unavailable")}
	sink := &recordingSink{}
	s := New(lister, sink, logging.Default(), Config{})

	assert.False(t, s.scan(context.Background()))
	assert.Empty(t, sink.all())
}

func TestScan_CustomCommandsAndExtensions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dump.csv")
	require.NoError(t, os.WriteFile(path, []byte("a,b"), 0o644))

	lister := &fakeLister{procs: []Process{
		{PID: 10, Name: "rsync", Cmdline: "rsync " + path + " remote:/"},
	}}
	sink := &recordingSink{}
	s := New(lister, sink, logging.Default(), Config{
		SuspiciousCommands: []string{"rsync"},
		TrackedExtensions:  []string{".csv"},
	})

	assert.True(t, s.scan(context.Background()))
	assert.Len(t, sink.all(), 1)
}

func TestTrackedPaths_TrimQuotes(t *testing.T) {
	path := writeTracked(t, "report.xlsx")
	s := New(&fakeLister{}, &recordingSink{}, logging.Default(), Config{})

	paths := s.trackedPaths(`copy '` + path + `' /tmp/`)
	assert.Equal(t, []string{path}, paths)
}
