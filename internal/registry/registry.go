// Package registry maintains the durable identity of released artifacts and
// answers correlation queries from the monitoring sources.
package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"docsentry/internal/fingerprint"
	"docsentry/internal/metrics"
	"docsentry/internal/store"
)

// Registry maps content hashes to released-artifact records. Read-mostly
// after a release event; safe for unlimited concurrent readers.
type Registry struct {
	store *store.Store
}

// New builds a Registry over the shared history store.
func New(s *store.Store) *Registry {
	return &Registry{store: s}
}

// Register computes the content hash and metadata fingerprint of path,
// persists the asset record, and returns the hash so callers can correlate
// later events without rehashing. An empty originalName defaults to the base
// name of path. Re-registering an unchanged file yields the same hash and
// overwrites the existing record in place.
func (r *Registry) Register(path, originalName, sessionID string) (string, error) {
	if originalName == "" {
		originalName = filepath.Base(path)
	}

	hash, size, err := fingerprint.HashFile(path)
	if err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}

	fp, err := fingerprint.File(path, hash)
	if err != nil {
		return "", fmt.Errorf("fingerprint %s: %w", path, err)
	}

	asset := &store.Asset{
		ContentHash:    hash,
		OriginalName:   originalName,
		IssuingSession: sessionID,
		SizeBytes:      size,
		Fingerprint:    fp.Encode(),
		RegisteredAt:   time.Now(),
	}
	if err := r.store.PutAsset(asset); err != nil {
		return "", err
	}
	if n, err := r.store.AssetCount(); err == nil {
		metrics.TrackedAssets().Set(n)
	}
	return hash, nil
}

// Lookup rehashes the file at path and answers whether that content is a
// registered asset. A surveilled environment is racy: the file may vanish or
// become unreadable between observation and lookup, and every such error is
// a plain not-found, never a failure.
func (r *Registry) Lookup(path string) (originalName, contentHash string, ok bool) {
	if _, err := os.Stat(path); err != nil {
		return "", "", false
	}

	hash, _, err := fingerprint.HashFile(path)
	if err != nil {
		return "", "", false
	}

	asset, err := r.store.AssetByHash(hash)
	if err != nil || asset == nil {
		return "", "", false
	}
	return asset.OriginalName, hash, true
}

// LookupHash answers whether an already-computed content hash is registered.
func (r *Registry) LookupHash(contentHash string) (originalName string, ok bool) {
	asset, err := r.store.AssetByHash(contentHash)
	if err != nil || asset == nil {
		return "", false
	}
	return asset.OriginalName, true
}
