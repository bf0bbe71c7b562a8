// Package store provides the SQLite-backed history store: released assets,
// classified incidents, and the general activity log share one database file.
package store

import "time"

// Asset is the durable identity of a released artifact, keyed by content hash.
type Asset struct {
	ContentHash    string
	OriginalName   string
	IssuingSession string
	SizeBytes      int64
	Fingerprint    string
	RegisteredAt   time.Time
}

// Incident is a severity-classified record derived from an observation.
// Immutable once written; the incidents table is append-only.
type Incident struct {
	ID              int64
	OperationType   string
	SourcePath      string
	DestinationPath string
	ContentHash     string // empty when the observation had no correlation
	DetectedBy      string
	ProcessName     string
	Severity        string
	Timestamp       time.Time
}

// Activity is one usage-telemetry entry. Security incidents are mirrored in
// here as well so a single query surface covers both.
type Activity struct {
	ID        int64
	Timestamp time.Time
	SessionID string
	Kind      string
	FileName  string
	IPAddress string
	UserAgent string
	Extra     map[string]any
}

// ActivityFilter bounds an activity query. Zero-value fields are ignored.
// FileName and Kind match as substrings, dates compare against the entry's
// creation date (YYYY-MM-DD).
type ActivityFilter struct {
	FileName  string
	StartDate string
	EndDate   string
	Kind      string
	SessionID string
	Limit     int
}

// Statistics are the derived aggregates over the activity log.
type Statistics struct {
	TotalActivities int64
	UniqueSessions  int64
	FileOpens       int64
	Downloads       int64
	Prints          int64
}

// IncidentSummary is the severity breakdown for a recent-incident report.
type IncidentSummary struct {
	Total  int64
	High   int64
	Medium int64
	Low    int64
}
