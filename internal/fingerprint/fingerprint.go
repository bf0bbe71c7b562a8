// Package fingerprint computes content hashes and metadata fingerprints for
// released artifacts. All functions are pure; callers decide what to do with
// an unreadable file.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// PrefixLen is the number of hash characters embedded in a metadata
// fingerprint. Long enough to be a useful identity hint, short enough that
// the fingerprint stays cheap to compare.
const PrefixLen = 16

// HashFile computes the streaming SHA-256 of a file and returns it hex
// encoded along with the byte count.
func HashFile(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	h := sha256.New()
	size, err := io.Copy(h, f)
	if err != nil {
		return "", 0, err
	}
	return hex.EncodeToString(h.Sum(nil)), size, nil
}

// HashBytes returns the hex SHA-256 of an in-memory blob. Used for clipboard
// content, which has no backing file.
func HashBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// Fingerprint is the composite metadata identity of a file: enough to
// recognize an unchanged artifact without rehashing it.
type Fingerprint struct {
	Size       int64  `json:"size"`
	ModifiedNs int64  `json:"modified_ns"`
	ChangedNs  int64  `json:"changed_ns"`
	HashPrefix string `json:"hash_prefix"`
}

// File computes the metadata fingerprint of path. The content hash may be
// passed in when the caller has already computed it; pass "" to have it
// computed here.
func File(path string, contentHash string) (Fingerprint, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Fingerprint{}, err
	}

	if contentHash == "" {
		contentHash, _, err = HashFile(path)
		if err != nil {
			return Fingerprint{}, err
		}
	}
	if len(contentHash) < PrefixLen {
		return Fingerprint{}, fmt.Errorf("content hash too short: %d chars", len(contentHash))
	}

	return Fingerprint{
		Size:       info.Size(),
		ModifiedNs: info.ModTime().UnixNano(),
		// Go exposes no portable change-time; mtime stands in for both so the
		// fingerprint stays comparable across platforms.
		ChangedNs:  info.ModTime().UnixNano(),
		HashPrefix: contentHash[:PrefixLen],
	}, nil
}

// Encode renders the fingerprint as canonical JSON for storage.
func (fp Fingerprint) Encode() string {
	b, _ := json.Marshal(fp)
	return string(b)
}

// Decode parses a stored fingerprint.
func Decode(s string) (Fingerprint, error) {
	var fp Fingerprint
	if err := json.Unmarshal([]byte(s), &fp); err != nil {
		return Fingerprint{}, fmt.Errorf("decode fingerprint: %w", err)
	}
	return fp, nil
}
