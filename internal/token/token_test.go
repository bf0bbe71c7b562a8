package token

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAuthority(t *testing.T) *Authority {
	t.Helper()
	a, err := Open(filepath.Join(t.TempDir(), "tokens.db"))
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

func TestIssueAndValidate(t *testing.T) {
	a := newTestAuthority(t)

	tok, err := a.Issue("report.xlsx", "user@example.com", 10*time.Minute)
	require.NoError(t, err)
	assert.Len(t, tok, 32)

	assert.True(t, a.Validate(tok, "report.xlsx", "user@example.com"))
}

func TestValidate_FailClosed(t *testing.T) {
	a := newTestAuthority(t)

	tok, err := a.Issue("report.xlsx", "user@example.com", 10*time.Minute)
	require.NoError(t, err)

	assert.False(t, a.Validate("unknown", "report.xlsx", "user@example.com"), "unknown token")
	assert.False(t, a.Validate(tok, "other.xlsx", "user@example.com"), "wrong file")
	assert.False(t, a.Validate(tok, "report.xlsx", "other@example.com"), "wrong email")
	assert.False(t, a.Validate(tok, "report.xlsx", ""), "missing email on bound token")
}

func TestValidate_EmailCaseInsensitive(t *testing.T) {
	a := newTestAuthority(t)

	tok, err := a.Issue("report.xlsx", "User@Example.COM", 10*time.Minute)
	require.NoError(t, err)
	assert.True(t, a.Validate(tok, "report.xlsx", "user@example.com"))
}

func TestValidate_BearerTokenIgnoresEmail(t *testing.T) {
	a := newTestAuthority(t)

	tok, err := a.Issue("report.xlsx", "", 10*time.Minute)
	require.NoError(t, err)
	assert.True(t, a.Validate(tok, "report.xlsx", ""))
	assert.True(t, a.Validate(tok, "report.xlsx", "anyone@example.com"))
}

func TestIssue_ZeroTTLIsAlreadyExpired(t *testing.T) {
	a := newTestAuthority(t)

	tok, err := a.Issue("report.xlsx", "", 0)
	require.NoError(t, err)
	assert.False(t, a.Validate(tok, "report.xlsx", ""))
}

func TestIssue_NegativeTTLUsesDefault(t *testing.T) {
	a := newTestAuthority(t)

	tok, err := a.Issue("report.xlsx", "", -1)
	require.NoError(t, err)
	assert.True(t, a.Validate(tok, "report.xlsx", ""))
}

func TestValidate_Expiry(t *testing.T) {
	a := newTestAuthority(t)

	issued := time.Now()
	a.now = func() time.Time { return issued }
	tok, err := a.Issue("report.xlsx", "", time.Minute)
	require.NoError(t, err)

	a.now = func() time.Time { return issued.Add(59 * time.Second) }
	assert.True(t, a.Validate(tok, "report.xlsx", ""))

	a.now = func() time.Time { return issued.Add(61 * time.Second) }
	assert.False(t, a.Validate(tok, "report.xlsx", ""))
}

func TestValidate_DoesNotConsume(t *testing.T) {
	a := newTestAuthority(t)

	tok, err := a.Issue("report.xlsx", "", time.Minute)
	require.NoError(t, err)

	assert.True(t, a.Validate(tok, "report.xlsx", ""))
	assert.True(t, a.Validate(tok, "report.xlsx", ""), "validate must not consume")
}

func TestConsumeValidate_SingleUse(t *testing.T) {
	a := newTestAuthority(t)

	tok, err := a.Issue("report.xlsx", "user@example.com", time.Minute)
	require.NoError(t, err)

	assert.True(t, a.ConsumeValidate(tok, "report.xlsx", "user@example.com"))
	assert.False(t, a.ConsumeValidate(tok, "report.xlsx", "user@example.com"))
	assert.False(t, a.Validate(tok, "report.xlsx", "user@example.com"))
}

func TestConsumeValidate_RejectionLeavesToken(t *testing.T) {
	a := newTestAuthority(t)

	tok, err := a.Issue("report.xlsx", "user@example.com", time.Minute)
	require.NoError(t, err)

	assert.False(t, a.ConsumeValidate(tok, "report.xlsx", "wrong@example.com"))
	assert.True(t, a.Validate(tok, "report.xlsx", "user@example.com"))
}

func TestRevoke(t *testing.T) {
	a := newTestAuthority(t)

	tok, err := a.Issue("report.xlsx", "", time.Minute)
	require.NoError(t, err)

	require.NoError(t, a.Revoke(tok))
	assert.False(t, a.Validate(tok, "report.xlsx", ""))

	// Revoking again is not an error.
	assert.NoError(t, a.Revoke(tok))
}

func TestPruneExpired(t *testing.T) {
	a := newTestAuthority(t)

	_, err := a.Issue("alive.xlsx", "", time.Hour)
	require.NoError(t, err)
	_, err = a.Issue("dead-1.xlsx", "", 0)
	require.NoError(t, err)
	_, err = a.Issue("dead-2.xlsx", "", 0)
	require.NoError(t, err)

	n, err := a.PruneExpired()
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestIssue_TokensAreUnique(t *testing.T) {
	a := newTestAuthority(t)

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		tok, err := a.Issue("report.xlsx", "", time.Minute)
		require.NoError(t, err)
		require.False(t, seen[tok])
		seen[tok] = true
	}
}
