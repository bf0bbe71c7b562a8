// Package observe defines the raw observation records produced by the
// monitoring sources and the sink they funnel into.
//
// An Observation is ephemeral: it becomes a durable incident only after the
// pipeline correlates it against the asset registry (or a heuristic source
// has already crossed its own threat threshold).
package observe

import (
	"context"
	"time"
)

// Kind identifies what a source saw.
type Kind string

const (
	// KindFileCreated is a new file appearing under a watched root.
	KindFileCreated Kind = "FILE_CREATED"
	// KindFileModified is an in-place write to a watched file.
	KindFileModified Kind = "FILE_MODIFIED"
	// KindFileMoved is a rename or move within the watched roots.
	KindFileMoved Kind = "FILE_MOVED"
	// KindFileCopied is a created file whose content matches a registered asset.
	KindFileCopied Kind = "FILE_COPIED"
	// KindFileDownloaded is the initial release of a protected artifact.
	KindFileDownloaded Kind = "FILE_DOWNLOADED"
	// KindCommandLineAccess is a shell copy/move command referencing a tracked file.
	KindCommandLineAccess Kind = "COMMAND_LINE_ACCESS"
	// KindBrowserWindowContext is a browser holding a tracked file open with
	// upload intent visible in its window titles.
	KindBrowserWindowContext Kind = "BROWSER_UPLOAD_ATTEMPT"
	// KindClipboardFileReference is a tracked file path sitting on the clipboard.
	KindClipboardFileReference Kind = "CLIPBOARD_FILE_REFERENCE"
	// KindClipboardLargeText is a large clipboard text blob that changed since
	// the previous scan. Never correlated; there is no path to look up.
	KindClipboardLargeText Kind = "CLIPBOARD_LARGE_TEXT"
	// KindClientEvent is a browser-side monitoring event relayed by the
	// ingestion surface.
	KindClientEvent Kind = "CLIENT_MONITOR_EVENT"
)

// Detector names identify which source produced an observation. They are
// stored verbatim in the incident record's detected_by column.
const (
	DetectorFilesystem = "FS_WATCHER"
	DetectorProcess    = "PROCESS_SCANNER"
	DetectorBrowser    = "BROWSER_SCANNER"
	DetectorClipboard  = "CLIPBOARD_SCANNER"
	DetectorIngest     = "INGEST_API"
	DetectorRelease    = "RELEASE"
)

// Observation is a single raw environmental signal.
type Observation struct {
	Kind            Kind
	SourcePath      string
	DestinationPath string
	ProcessName     string
	Detector        string

	// Context carries free-form source detail: window titles, upload score,
	// detected service names, clipboard size.
	Context map[string]string

	// Correlated is set by heuristic sources that already matched the asset
	// registry themselves (a path-less source cannot, and leaves correlation
	// to the pipeline).
	Correlated   bool
	OriginalName string
	ContentHash  string

	Timestamp time.Time
}

// Sink receives observations from every source. Submit must never block on
// network I/O; sources call it from their scheduling loops.
type Sink interface {
	Submit(ctx context.Context, obs Observation)
}
