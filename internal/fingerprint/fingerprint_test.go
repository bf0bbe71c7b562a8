package fingerprint

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doc.xlsx")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestHashFile(t *testing.T) {
	path := writeFile(t, "hello")

	hash, size, err := HashFile(path)
	require.NoError(t, err)

	// sha256("hello")
	assert.Equal(t, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", hash)
	assert.Equal(t, int64(5), size)
}

func TestHashFile_MatchesHashBytes(t *testing.T) {
	content := "tracked document content"
	path := writeFile(t, content)

	fromFile, _, err := HashFile(path)
	require.NoError(t, err)
	assert.Equal(t, HashBytes([]byte(content)), fromFile)
}

func TestHashFile_Missing(t *testing.T) {
	_, _, err := HashFile(filepath.Join(t.TempDir(), "nope.xlsx"))
	assert.Error(t, err)
}

func TestFile_Fingerprint(t *testing.T) {
	path := writeFile(t, "hello")
	hash, _, err := HashFile(path)
	require.NoError(t, err)

	fp, err := File(path, hash)
	require.NoError(t, err)

	assert.Equal(t, int64(5), fp.Size)
	assert.Len(t, fp.HashPrefix, PrefixLen)
	assert.Equal(t, hash[:PrefixLen], fp.HashPrefix)
	assert.NotZero(t, fp.ModifiedNs)
}

func TestFingerprint_EncodeDecode(t *testing.T) {
	fp := Fingerprint{
		Size:       42,
		ModifiedNs: 1700000000000000000,
		ChangedNs:  1700000000000000001,
		HashPrefix: "2cf24dba5fb0a30e",
	}

	decoded, err := Decode(fp.Encode())
	require.NoError(t, err)
	assert.Equal(t, fp, decoded)
}

func TestDecode_Invalid(t *testing.T) {
	_, err := Decode("not json")
	assert.Error(t, err)
}
