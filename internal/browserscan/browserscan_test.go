package browserscan

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docsentry/internal/classify"
	"docsentry/internal/logging"
	"docsentry/internal/observe"
	"docsentry/internal/procscan"
)

type fakeLister struct {
	procs     []procscan.Process
	openFiles map[int][]string
	err       error
}

func (f *fakeLister) Processes(ctx context.Context) ([]procscan.Process, error) {
	return f.procs, f.err
}

func (f *fakeLister) OpenFiles(ctx context.Context, pid int) ([]string, error) {
	return f.openFiles[pid], nil
}

type fakeWindows struct {
	titles map[int][]string
}

func (f *fakeWindows) Titles(ctx context.Context, pid int) ([]string, error) {
	return f.titles[pid], nil
}

type fakeCorrelator struct {
	assets map[string]string // path -> original name
}

func (f *fakeCorrelator) Lookup(path string) (string, string, bool) {
	name, ok := f.assets[path]
	if !ok {
		return "", "", false
	}
	return name, "hash-" + name, true
}

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

func newTestScanner(lister *fakeLister, windows *fakeWindows, corr *fakeCorrelator) (*Scanner, *recordingSink) {
	sink := &recordingSink{}
	s := New(lister, windows, corr, classify.NewUploadScorer(nil), sink, logging.Default(), Config{})
	return s, sink
}

func TestScan_UploadTitlesEmit(t *testing.T) {
	lister := &fakeLister{procs: []procscan.Process{{PID: 7, Name: "chrome"}}}
	windows := &fakeWindows{titles: map[int][]string{7: {"Upload file - Dropbox"}}}
	s, sink := newTestScanner(lister, windows, &fakeCorrelator{})

	require.True(t, s.scan(context.Background()))

	obs := sink.all()
	require.Len(t, obs, 1)
	assert.Equal(t, observe.KindBrowserWindowContext, obs[0].Kind)
	assert.False(t, obs[0].Correlated)
	assert.Contains(t, obs[0].Context["window_titles"], "Upload file")
	assert.Equal(t, "Dropbox", obs[0].Context["detected_services"])
}

func TestScan_CleanTitlesSuppressed(t *testing.T) {
	lister := &fakeLister{procs: []procscan.Process{{PID: 7, Name: "firefox"}}}
	windows := &fakeWindows{titles: map[int][]string{7: {"The Daily News"}}}
	s, sink := newTestScanner(lister, windows, &fakeCorrelator{})

	require.True(t, s.scan(context.Background()))
	assert.Empty(t, sink.all())
}

func TestScan_NonBrowserProcessesIgnored(t *testing.T) {
	lister := &fakeLister{procs: []procscan.Process{{PID: 7, Name: "notepad.exe"}}}
	windows := &fakeWindows{titles: map[int][]string{7: {"Upload file - Dropbox"}}}
	s, sink := newTestScanner(lister, windows, &fakeCorrelator{})

	require.True(t, s.scan(context.Background()))
	assert.Empty(t, sink.all())
}

func TestScan_OpenTrackedFileCorrelates(t *testing.T) {
	lister := &fakeLister{
		procs:     []procscan.Process{{PID: 7, Name: "chrome"}},
		openFiles: map[int][]string{7: {"/tmp/upload/report.xlsx", "/tmp/other.bin"}},
	}
	corr := &fakeCorrelator{assets: map[string]string{"/tmp/upload/report.xlsx": "Q3.xlsx"}}
	s, sink := newTestScanner(lister, &fakeWindows{}, corr)

	require.True(t, s.scan(context.Background()))

	obs := sink.all()
	require.Len(t, obs, 1)
	assert.True(t, obs[0].Correlated)
	assert.Equal(t, "/tmp/upload/report.xlsx", obs[0].SourcePath)
	assert.Equal(t, "Q3.xlsx", obs[0].OriginalName)
	assert.Equal(t, "hash-Q3.xlsx", obs[0].ContentHash)
}

func TestScan_DeduplicatesStableState(t *testing.T) {
	lister := &fakeLister{
		procs:     []procscan.Process{{PID: 7, Name: "chrome"}},
		openFiles: map[int][]string{7: {"/tmp/report.xlsx"}},
	}
	windows := &fakeWindows{titles: map[int][]string{7: {"Upload file - Dropbox"}}}
	corr := &fakeCorrelator{assets: map[string]string{"/tmp/report.xlsx": "Q3.xlsx"}}
	s, sink := newTestScanner(lister, windows, corr)

	for i := 0; i < 3; i++ {
		require.True(t, s.scan(context.Background()))
	}

	// One title observation plus one handle observation, each reported once.
	assert.Len(t, sink.all(), 2)
}

func TestScan_ReemitsAfterStateCleared(t *testing.T) {
	lister := &fakeLister{procs: []procscan.Process{{PID: 7, Name: "chrome"}}}
	windows := &fakeWindows{titles: map[int][]string{7: {"Upload file - Dropbox"}}}
	s, sink := newTestScanner(lister, windows, &fakeCorrelator{})

	require.True(t, s.scan(context.Background()))

	// Tab closed: titles go clean, then the upload page comes back.
	windows.titles[7] = []string{"The Daily News"}
	require.True(t, s.scan(context.Background()))
	windows.titles[7] = []string{"Upload file - Dropbox"}
	require.True(t, s.scan(context.Background()))

	assert.Len(t, sink.all(), 2)
}

func TestScan_SnapshotFailure(t *testing.T) {
	lister := &fakeLister{err: errors.New("unavailable")}
	s, sink := newTestScanner(lister, &fakeWindows{}, &fakeCorrelator{})

	assert.False(t, s.scan(context.Background()))
	assert.Empty(t, sink.all())
}
