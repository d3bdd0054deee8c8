package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(15*time.Minute, time.Hour, "microblog-test")
	require.NoError(t, err)
	return m
}

func TestGenerateAndValidateTokenPair(t *testing.T) {
	m := newTestManager(t)

	access, refresh, accessExp, refreshExp, err := m.GenerateTokenPair("user-1", "alice@example.com", "alice")
	require.NoError(t, err)
	assert.NotEqual(t, access, refresh)
	assert.Less(t, accessExp, refreshExp)

	claims, err := m.ValidateToken(access)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "alice@example.com", claims.Email)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "access", claims.Type)

	refreshClaims, err := m.ValidateToken(refresh)
	require.NoError(t, err)
	assert.Equal(t, "refresh", refreshClaims.Type)
	assert.Empty(t, refreshClaims.Email)
}

func TestValidateTokenGarbage(t *testing.T) {
	m := newTestManager(t)

	_, err := m.ValidateToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateTokenWrongKey(t *testing.T) {
	m := newTestManager(t)
	other := newTestManager(t)

	access, _, _, _, err := other.GenerateTokenPair("user-1", "a@b.c", "alice")
	require.NoError(t, err)

	_, err = m.ValidateToken(access)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefreshTokens(t *testing.T) {
	m := newTestManager(t)

	_, refresh, _, _, err := m.GenerateTokenPair("user-1", "alice@example.com", "alice")
	require.NoError(t, err)

	access2, refresh2, _, _, err := m.RefreshTokens(refresh)
	require.NoError(t, err)

	claims, err := m.ValidateToken(access2)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "access", claims.Type)

	_, err = m.ValidateToken(refresh2)
	require.NoError(t, err)
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	m := newTestManager(t)

	access, _, _, _, err := m.GenerateTokenPair("user-1", "alice@example.com", "alice")
	require.NoError(t, err)

	_, _, _, _, err = m.RefreshTokens(access)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRevokeUserTokens(t *testing.T) {
	m := newTestManager(t)

	access, refresh, _, _, err := m.GenerateTokenPair("user-1", "alice@example.com", "alice")
	require.NoError(t, err)

	// Revocation applies to tokens issued up to now. Issued-at claims carry
	// second precision, so move past the issuing second first.
	time.Sleep(1100 * time.Millisecond)
	m.RevokeUserTokens("user-1")

	_, err = m.ValidateToken(access)
	assert.ErrorIs(t, err, ErrRevokedToken)
	_, _, _, _, err = m.RefreshTokens(refresh)
	assert.ErrorIs(t, err, ErrRevokedToken)

	// Other users are unaffected.
	otherAccess, _, _, _, err := m.GenerateTokenPair("user-2", "bob@example.com", "bob")
	require.NoError(t, err)
	_, err = m.ValidateToken(otherAccess)
	assert.NoError(t, err)
}

func TestCleanupExpiredRevocations(t *testing.T) {
	m := newTestManager(t)
	m.refreshDuration = time.Nanosecond

	m.RevokeUserTokens("user-1")
	time.Sleep(10 * time.Millisecond)
	m.CleanupExpiredRevocations()

	m.mu.RLock()
	defer m.mu.RUnlock()
	assert.Empty(t, m.revokedAt)
}
