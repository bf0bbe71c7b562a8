// Package classify derives incident severity from observation facts.
//
// Classification is a pure function of (kind, destination path): sources
// never set severity themselves, so two sources reporting the same
// real-world action always agree on its tier.
package classify

import (
	"strings"

	"docsentry/internal/observe"
)

// Severity is the classified threat tier of an observation.
type Severity string

const (
	// Suppressed means the observation produces no incident at all.
	Suppressed     Severity = ""
	SeverityLow    Severity = "LOW"
	SeverityMedium Severity = "MEDIUM"
	SeverityHigh   Severity = "HIGH"
)

// Valid reports whether s is a recognized stored severity.
func Valid(s Severity) bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh:
		return true
	}
	return false
}

// Classifier applies the severity rules. The zero value is unusable; use New.
type Classifier struct {
	internalDrives map[string]bool
	cloudMarkers   []string
}

// DefaultInternalDrives are fixed local drive letters. Anything outside the
// set is treated as removable or network media.
var DefaultInternalDrives = []string{"C:"}

// DefaultCloudMarkers are vendor sync-directory names recognized inside a
// destination path.
var DefaultCloudMarkers = []string{"onedrive", "dropbox", "googledrive", "google drive", "icloud"}

// New builds a Classifier. Nil slices select the defaults.
func New(internalDrives, cloudMarkers []string) *Classifier {
	if internalDrives == nil {
		internalDrives = DefaultInternalDrives
	}
	if cloudMarkers == nil {
		cloudMarkers = DefaultCloudMarkers
	}

	drives := make(map[string]bool, len(internalDrives))
	for _, d := range internalDrives {
		drives[strings.ToUpper(strings.TrimSuffix(d, "\\"))] = true
	}

	markers := make([]string, len(cloudMarkers))
	for i, m := range cloudMarkers {
		markers[i] = strings.ToLower(m)
	}

	return &Classifier{internalDrives: drives, cloudMarkers: markers}
}

// Classify maps an observation kind and optional destination path to a
// severity. Total and deterministic: any input yields exactly one tier.
//
// Rules, in priority order:
//  1. destination on a drive letter outside the internal set -> HIGH
//  2. destination inside a cloud sync folder                  -> HIGH
//  3. browser, command-line, or clipboard-file correlation    -> HIGH
//  4. any other correlated operation                          -> MEDIUM
func (c *Classifier) Classify(kind observe.Kind, destPath string) Severity {
	if c.removableDestination(destPath) {
		return SeverityHigh
	}
	if c.cloudDestination(destPath) {
		return SeverityHigh
	}

	switch kind {
	case observe.KindBrowserWindowContext,
		observe.KindCommandLineAccess,
		observe.KindClipboardFileReference:
		return SeverityHigh
	}
	return SeverityMedium
}

func (c *Classifier) removableDestination(destPath string) bool {
	if len(destPath) < 2 || destPath[1] != ':' {
		return false
	}
	drive := strings.ToUpper(destPath[:2])
	letter := drive[0]
	if letter < 'A' || letter > 'Z' {
		return false
	}
	return !c.internalDrives[drive]
}

func (c *Classifier) cloudDestination(destPath string) bool {
	if destPath == "" {
		return false
	}
	lower := strings.ToLower(destPath)
	for _, marker := range c.cloudMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
