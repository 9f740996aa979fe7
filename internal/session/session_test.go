package session_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/webmail/internal/session"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	s := session.NewMemoryStore()

	_, ok := s.AccessToken()
	assert.False(t, ok, "empty store should report no access token")

	require.NoError(t, s.SetTokens("access-1", "refresh-1"))
	require.NoError(t, s.SetUser("me@example.com"))

	access, ok := s.AccessToken()
	require.True(t, ok)
	assert.Equal(t, "access-1", access)

	refresh, ok := s.RefreshToken()
	require.True(t, ok)
	assert.Equal(t, "refresh-1", refresh)

	assert.Equal(t, "me@example.com", s.User())
}

func TestMemoryStoreExpiryWindow(t *testing.T) {
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	s := session.NewMemoryStore()
	s.Now = func() time.Time { return now }

	require.NoError(t, s.SetTokens("access-1", "refresh-1"))

	// Still valid just inside the window.
	now = now.Add(session.TokenTTL - time.Minute)
	_, ok := s.AccessToken()
	assert.True(t, ok)

	// Expired past the window: access token gone, refresh token kept.
	now = now.Add(2 * time.Minute)
	_, ok = s.AccessToken()
	assert.False(t, ok, "token older than the TTL must be treated as absent")

	_, ok = s.RefreshToken()
	assert.True(t, ok, "refresh token does not share the access token TTL")
}

func TestMemoryStoreClear(t *testing.T) {
	s := session.NewMemoryStore()
	require.NoError(t, s.SetTokens("access-1", "refresh-1"))
	require.NoError(t, s.SetUser("me@example.com"))

	require.NoError(t, s.Clear())

	_, ok := s.AccessToken()
	assert.False(t, ok)
	_, ok = s.RefreshToken()
	assert.False(t, ok)
	assert.Empty(t, s.User())
}
