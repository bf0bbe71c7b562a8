// Package token is the download authorization authority: short-lived,
// optionally identity-bound tokens gating a one-time protected-artifact
// release.
//
// Validation fails closed and deliberately reports a bare boolean: a missing
// token, a file mismatch, an elapsed expiry, and an email-binding mismatch
// are indistinguishable to the caller, so the surface leaks no oracle.
package token

import (
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// DefaultTTL is the token lifetime when the issuer does not specify one.
const DefaultTTL = 10 * time.Minute

const schema = `
CREATE TABLE IF NOT EXISTS download_tokens (
    token        TEXT PRIMARY KEY,
    target_file  TEXT NOT NULL,
    bound_email  TEXT,
    expires_ns   INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_tokens_expires ON download_tokens(expires_ns);
`

// Authority issues, validates, and revokes download tokens. It keeps its own
// database, independent of the monitoring pipeline's history store.
type Authority struct {
	db *sql.DB

	// now is replaceable for expiry tests.
	now func() time.Time
}

// Open opens or creates the token database at path and applies the schema.
func Open(path string) (*Authority, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create token database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open token database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply token schema: %w", err)
	}

	return &Authority{db: db, now: time.Now}, nil
}

// Close closes the token database.
func (a *Authority) Close() error {
	return a.db.Close()
}

// Ping verifies the token database is reachable.
func (a *Authority) Ping() error {
	return a.db.Ping()
}

// Issue creates a new token for targetFile with an absolute expiry of
// now+ttl. boundEmail may be empty for a bearer token; ttl <= 0 selects
// DefaultTTL only when negative - a zero ttl produces a token that is
// already expired, which callers use to mint deliberately dead tokens.
func (a *Authority) Issue(targetFile, boundEmail string, ttl time.Duration) (string, error) {
	if ttl < 0 {
		ttl = DefaultTTL
	}

	u := uuid.New()
	tok := hex.EncodeToString(u[:])
	expires := a.now().Add(ttl)

	_, err := a.db.Exec(`
		INSERT INTO download_tokens (token, target_file, bound_email, expires_ns)
		VALUES (?, ?, ?, ?)`,
		tok, targetFile, nullable(boundEmail), expires.UnixNano(),
	)
	if err != nil {
		return "", fmt.Errorf("insert token: %w", err)
	}
	return tok, nil
}

// Validate reports whether tok authorizes a release of targetFile to
// callerEmail. The token stays in the store; the issuing workflow revokes it
// immediately after a successful validation. Two validations racing ahead of
// the revoke can both succeed - use ConsumeValidate when that matters.
func (a *Authority) Validate(tok, targetFile, callerEmail string) bool {
	var boundEmail sql.NullString
	var expiresNs int64

	err := a.db.QueryRow(`
		SELECT bound_email, expires_ns FROM download_tokens
		WHERE token = ? AND target_file = ?`, tok, targetFile,
	).Scan(&boundEmail, &expiresNs)
	if err != nil {
		return false
	}

	return a.checks(boundEmail, expiresNs, callerEmail)
}

// ConsumeValidate validates and deletes the token in one transaction, so at
// most one caller can ever succeed for a given token.
func (a *Authority) ConsumeValidate(tok, targetFile, callerEmail string) bool {
	tx, err := a.db.Begin()
	if err != nil {
		return false
	}
	defer tx.Rollback()

	var boundEmail sql.NullString
	var expiresNs int64
	err = tx.QueryRow(`
		SELECT bound_email, expires_ns FROM download_tokens
		WHERE token = ? AND target_file = ?`, tok, targetFile,
	).Scan(&boundEmail, &expiresNs)
	if err != nil {
		return false
	}

	if !a.checks(boundEmail, expiresNs, callerEmail) {
		return false
	}

	res, err := tx.Exec(`DELETE FROM download_tokens WHERE token = ?`, tok)
	if err != nil {
		return false
	}
	if n, err := res.RowsAffected(); err != nil || n == 0 {
		return false
	}
	return tx.Commit() == nil
}

func (a *Authority) checks(boundEmail sql.NullString, expiresNs int64, callerEmail string) bool {
	if !a.now().Before(time.Unix(0, expiresNs)) {
		return false
	}
	if boundEmail.Valid && boundEmail.String != "" {
		if callerEmail == "" || !strings.EqualFold(boundEmail.String, callerEmail) {
			return false
		}
	}
	return true
}

// Revoke deletes the token. Revoking an unknown token is not an error.
func (a *Authority) Revoke(tok string) error {
	if _, err := a.db.Exec(`DELETE FROM download_tokens WHERE token = ?`, tok); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// PruneExpired deletes tokens whose expiry has elapsed and returns how many
// were removed. The daemon runs this periodically; correctness never depends
// on it, expired tokens already fail validation.
func (a *Authority) PruneExpired() (int64, error) {
	res, err := a.db.Exec(`DELETE FROM download_tokens WHERE expires_ns <= ?`, a.now().UnixNano())
	if err != nil {
		return 0, fmt.Errorf("prune tokens: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune tokens: %w", err)
	}
	return n, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
