package store

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deeper", "history.db")
	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()
	assert.NoError(t, s.Ping())
}

func TestAssets_PutAndGet(t *testing.T) {
	s := newTestStore(t)

	asset := &Asset{
		ContentHash:    "abc123",
		OriginalName:   "q3-financials.xlsx",
		IssuingSession: "sess-1",
		SizeBytes:      2048,
		Fingerprint:    `{"size":2048}`,
		RegisteredAt:   time.Now(),
	}
	require.NoError(t, s.PutAsset(asset))

	got, err := s.AssetByHash("abc123")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "q3-financials.xlsx", got.OriginalName)
	assert.Equal(t, "sess-1", got.IssuingSession)
	assert.Equal(t, int64(2048), got.SizeBytes)
}

func TestAssets_MissReturnsNil(t *testing.T) {
	s := newTestStore(t)

	got, err := s.AssetByHash("nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestAssets_PutReplacesExisting(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.PutAsset(&Asset{
		ContentHash: "h1", OriginalName: "old.xlsx", SizeBytes: 1, RegisteredAt: time.Now(),
	}))
	require.NoError(t, s.PutAsset(&Asset{
		ContentHash: "h1", OriginalName: "new.xlsx", SizeBytes: 2, RegisteredAt: time.Now(),
	}))

	got, err := s.AssetByHash("h1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "new.xlsx", got.OriginalName)

	count, err := s.AssetCount()
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestIncidents_InsertAndQuery(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()

	id, err := s.InsertIncident(&Incident{
		OperationType:   "FILE_COPIED",
		SourcePath:      `C:\Users\a\report.xlsx`,
		DestinationPath: `D:\report.xlsx`,
		ContentHash:     "h1",
		DetectedBy:      "FS_WATCHER",
		Severity:        "HIGH",
		Timestamp:       now,
	})
	require.NoError(t, err)
	assert.Greater(t, id, int64(0))

	incidents, err := s.IncidentsSince(now.Add(-time.Minute))
	require.NoError(t, err)
	require.Len(t, incidents, 1)
	assert.Equal(t, "FILE_COPIED", incidents[0].OperationType)
	assert.Equal(t, "HIGH", incidents[0].Severity)
	assert.Equal(t, `D:\report.xlsx`, incidents[0].DestinationPath)
}

func TestIncidents_SinceExcludesOld(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()

	_, err := s.InsertIncident(&Incident{
		OperationType: "FILE_MOVED", Severity: "MEDIUM", Timestamp: now.Add(-2 * time.Hour),
	})
	require.NoError(t, err)
	_, err = s.InsertIncident(&Incident{
		OperationType: "FILE_COPIED", Severity: "HIGH", Timestamp: now,
	})
	require.NoError(t, err)

	incidents, err := s.IncidentsSince(now.Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, incidents, 1)
	assert.Equal(t, "FILE_COPIED", incidents[0].OperationType)
}

func TestIncidents_ByHash(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()

	for _, hash := range []string{"h1", "h1", "h2"} {
		_, err := s.InsertIncident(&Incident{
			OperationType: "FILE_COPIED", ContentHash: hash, Severity: "HIGH", Timestamp: now,
		})
		require.NoError(t, err)
	}

	incidents, err := s.IncidentsByHash("h1")
	require.NoError(t, err)
	assert.Len(t, incidents, 2)
}

func TestIncidents_Summarize(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()

	for _, sev := range []string{"HIGH", "HIGH", "MEDIUM", "LOW"} {
		_, err := s.InsertIncident(&Incident{
			OperationType: "FILE_COPIED", Severity: sev, Timestamp: now,
		})
		require.NoError(t, err)
	}

	summary, err := s.SummarizeIncidents(now.Add(-time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(4), summary.Total)
	assert.Equal(t, int64(2), summary.High)
	assert.Equal(t, int64(1), summary.Medium)
	assert.Equal(t, int64(1), summary.Low)
}

func TestActivities_InsertAndQuery(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()

	id, err := s.InsertActivity(&Activity{
		Timestamp: now,
		SessionID: "sess-1",
		Kind:      "FILE_OPENED",
		FileName:  "report.xlsx",
		IPAddress: "10.0.0.5",
		UserAgent: "excel/16.0",
		Extra:     map[string]any{"sheet": "Q3"},
	})
	require.NoError(t, err)
	assert.Greater(t, id, int64(0))

	entries, err := s.QueryActivities(ActivityFilter{FileName: "report"})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "FILE_OPENED", entries[0].Kind)
	assert.Equal(t, "10.0.0.5", entries[0].IPAddress)
	assert.Equal(t, "Q3", entries[0].Extra["sheet"])
}

func TestActivities_Filters(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()

	seed := []Activity{
		{Timestamp: now, SessionID: "s1", Kind: "FILE_OPENED", FileName: "a.xlsx"},
		{Timestamp: now, SessionID: "s2", Kind: "FILE_DOWNLOADED", FileName: "a.xlsx"},
		{Timestamp: now, SessionID: "s1", Kind: "PRINT_ATTEMPT", FileName: "b.xlsx"},
	}
	for i := range seed {
		_, err := s.InsertActivity(&seed[i])
		require.NoError(t, err)
	}

	byKind, err := s.QueryActivities(ActivityFilter{Kind: "DOWNLOAD"})
	require.NoError(t, err)
	require.Len(t, byKind, 1)
	assert.Equal(t, "FILE_DOWNLOADED", byKind[0].Kind)

	bySession, err := s.QueryActivities(ActivityFilter{SessionID: "s1"})
	require.NoError(t, err)
	assert.Len(t, bySession, 2)

	byFile, err := s.QueryActivities(ActivityFilter{FileName: "b.xlsx"})
	require.NoError(t, err)
	assert.Len(t, byFile, 1)
}

func TestActivities_LimitAndOrder(t *testing.T) {
	s := newTestStore(t)
	base := time.Now().Add(-time.Hour)

	for i := 0; i < 20; i++ {
		_, err := s.InsertActivity(&Activity{
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			SessionID: "s1",
			Kind:      "FILE_OPENED",
			FileName:  fmt.Sprintf("doc-%02d.xlsx", i),
		})
		require.NoError(t, err)
	}

	entries, err := s.QueryActivities(ActivityFilter{Limit: 5})
	require.NoError(t, err)
	require.Len(t, entries, 5)
	// Newest first.
	assert.Equal(t, "doc-19.xlsx", entries[0].FileName)
	assert.Equal(t, "doc-15.xlsx", entries[4].FileName)
}

func TestActivities_Distinct(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()

	for _, a := range []Activity{
		{Timestamp: now, SessionID: "s1", Kind: "FILE_OPENED", FileName: "a.xlsx"},
		{Timestamp: now, SessionID: "s1", Kind: "FILE_OPENED", FileName: "a.xlsx"},
		{Timestamp: now, SessionID: "s2", Kind: "PRINT_ATTEMPT", FileName: "b.xlsx"},
	} {
		_, err := s.InsertActivity(&a)
		require.NoError(t, err)
	}

	files, err := s.FileNames()
	require.NoError(t, err)
	assert.Equal(t, []string{"a.xlsx", "b.xlsx"}, files)

	kinds, err := s.ActivityKinds()
	require.NoError(t, err)
	assert.Equal(t, []string{"FILE_OPENED", "PRINT_ATTEMPT"}, kinds)
}

func TestStats(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()

	for _, a := range []Activity{
		{Timestamp: now, SessionID: "s1", Kind: "FILE_OPENED", FileName: "a.xlsx"},
		{Timestamp: now, SessionID: "s1", Kind: "FILE_DOWNLOADED", FileName: "a.xlsx"},
		{Timestamp: now, SessionID: "s2", Kind: "PRINT_ATTEMPT", FileName: "b.xlsx"},
		{Timestamp: now, SessionID: "s2", Kind: "WINDOW_FOCUS_LOST", FileName: "b.xlsx"},
	} {
		_, err := s.InsertActivity(&a)
		require.NoError(t, err)
	}

	stats, err := s.Stats("", "")
	require.NoError(t, err)
	assert.Equal(t, int64(4), stats.TotalActivities)
	assert.Equal(t, int64(2), stats.UniqueSessions)
	assert.Equal(t, int64(1), stats.FileOpens)
	assert.Equal(t, int64(1), stats.Downloads)
	assert.Equal(t, int64(1), stats.Prints)
}

func TestStats_DateBounds(t *testing.T) {
	s := newTestStore(t)

	old := time.Now().AddDate(0, 0, -10)
	_, err := s.InsertActivity(&Activity{
		Timestamp: old, SessionID: "s1", Kind: "FILE_OPENED", FileName: "a.xlsx",
	})
	require.NoError(t, err)
	_, err = s.InsertActivity(&Activity{
		Timestamp: time.Now(), SessionID: "s1", Kind: "FILE_OPENED", FileName: "a.xlsx",
	})
	require.NoError(t, err)

	stats, err := s.Stats(time.Now().AddDate(0, 0, -1).Format("2006-01-02"), "")
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalActivities)
}
