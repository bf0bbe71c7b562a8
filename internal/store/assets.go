package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// PutAsset inserts or replaces the asset record for its content hash.
// Re-registration overwrites metadata; the hash key is preserved because
// artifacts are immutable by hash.
func (s *Store) PutAsset(a *Asset) error {
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO assets
		(content_hash, original_name, issuing_session, size_bytes, fingerprint, registered_ns)
		VALUES (?, ?, ?, ?, ?, ?)`,
		a.ContentHash, a.OriginalName, a.IssuingSession, a.SizeBytes, a.Fingerprint,
		a.RegisteredAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("put asset: %w", err)
	}
	return nil
}

// AssetByHash retrieves an asset record. Returns (nil, nil) when the hash is
// not registered; a correlation miss is a normal negative result.
func (s *Store) AssetByHash(contentHash string) (*Asset, error) {
	var a Asset
	var registeredNs int64
	var session, fp sql.NullString

	err := s.db.QueryRow(`
		SELECT content_hash, original_name, issuing_session, size_bytes, fingerprint, registered_ns
		FROM assets WHERE content_hash = ?`, contentHash,
	).Scan(&a.ContentHash, &a.OriginalName, &session, &a.SizeBytes, &fp, &registeredNs)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get asset: %w", err)
	}

	a.IssuingSession = session.String
	a.Fingerprint = fp.String
	a.RegisteredAt = time.Unix(0, registeredNs)
	return &a, nil
}

// AssetCount returns the number of registered assets.
func (s *Store) AssetCount() (int64, error) {
	var n int64
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM assets`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count assets: %w", err)
	}
	return n, nil
}
