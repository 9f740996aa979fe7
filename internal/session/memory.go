package session

import (
	"sync"
	"time"
)

// MemoryStore keeps session credentials in process memory. It is used in
// tests and by the mock gateway tooling; the expiry window behaves exactly
// like the keyring-backed store.
type MemoryStore struct {
	mu       sync.Mutex
	access   string
	refresh  string
	user     string
	issuedAt time.Time

	// Now is the clock used for expiry checks. Tests override it.
	Now func() time.Time
}

// NewMemoryStore returns an empty in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{Now: time.Now}
}

// AccessToken returns the stored access token when inside its expiry window.
func (s *MemoryStore) AccessToken() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.access == "" {
		return "", false
	}
	if s.Now().Sub(s.issuedAt) > TokenTTL {
		s.access = ""
		return "", false
	}
	return s.access, true
}

// RefreshToken returns the stored refresh token, if any.
func (s *MemoryStore) RefreshToken() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.refresh == "" {
		return "", false
	}
	return s.refresh, true
}

// SetTokens stores a new token pair issued now.
func (s *MemoryStore) SetTokens(access, refresh string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.access = access
	s.refresh = refresh
	s.issuedAt = s.Now()
	return nil
}

// SetUser stores the authenticated user's address.
func (s *MemoryStore) SetUser(email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.user = email
	return nil
}

// User returns the stored user address.
func (s *MemoryStore) User() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.user
}

// Clear removes all session state.
func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.access = ""
	s.refresh = ""
	s.user = ""
	s.issuedAt = time.Time{}
	return nil
}
