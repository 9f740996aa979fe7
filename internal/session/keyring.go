package session

import (
	"fmt"
	"strconv"
	"time"

	"github.com/99designs/keyring"
)

const serviceName = "webmail"

const (
	keyAccessToken  = "access-token"
	keyRefreshToken = "refresh-token"
	keyIssuedAt     = "token-issued-at"
	keyUser         = "user"
)

// KeyringStore persists session credentials in the system keyring.
type KeyringStore struct {
	now func() time.Time
}

// NewKeyringStore returns a keyring-backed session store.
func NewKeyringStore() *KeyringStore {
	return &KeyringStore{now: time.Now}
}

// openKeyring returns a configured keyring instance.
func openKeyring() (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  "~/.config/webmail/credentials",
		FilePasswordFunc:         keyring.FixedStringPrompt("webmail-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// AccessToken returns the stored access token if it is still inside its
// expiry window. An expired token is removed and reported as absent.
func (s *KeyringStore) AccessToken() (string, bool) {
	ring, err := openKeyring()
	if err != nil {
		return "", false
	}

	item, err := ring.Get(keyAccessToken)
	if err != nil {
		return "", false
	}

	issuedItem, err := ring.Get(keyIssuedAt)
	if err != nil {
		return "", false
	}
	issuedUnix, err := strconv.ParseInt(string(issuedItem.Data), 10, 64)
	if err != nil {
		return "", false
	}

	if s.now().Sub(time.Unix(issuedUnix, 0)) > TokenTTL {
		_ = ring.Remove(keyAccessToken)
		_ = ring.Remove(keyIssuedAt)
		return "", false
	}

	return string(item.Data), true
}

// RefreshToken returns the stored refresh token, if any.
func (s *KeyringStore) RefreshToken() (string, bool) {
	ring, err := openKeyring()
	if err != nil {
		return "", false
	}

	item, err := ring.Get(keyRefreshToken)
	if err != nil {
		return "", false
	}

	return string(item.Data), true
}

// SetTokens stores a new access/refresh token pair with the current time
// as the issuance timestamp.
func (s *KeyringStore) SetTokens(access, refresh string) error {
	ring, err := openKeyring()
	if err != nil {
		return err
	}

	items := []keyring.Item{
		{Key: keyAccessToken, Data: []byte(access)},
		{Key: keyRefreshToken, Data: []byte(refresh)},
		{Key: keyIssuedAt, Data: []byte(strconv.FormatInt(s.now().Unix(), 10))},
	}
	for _, item := range items {
		if err := ring.Set(item); err != nil {
			return fmt.Errorf("storing credential %q: %w", item.Key, err)
		}
	}

	return nil
}

// SetUser stores the authenticated user's address.
func (s *KeyringStore) SetUser(email string) error {
	ring, err := openKeyring()
	if err != nil {
		return err
	}

	if err := ring.Set(keyring.Item{Key: keyUser, Data: []byte(email)}); err != nil {
		return fmt.Errorf("storing credential %q: %w", keyUser, err)
	}

	return nil
}

// User returns the stored user address, or empty when absent.
func (s *KeyringStore) User() string {
	ring, err := openKeyring()
	if err != nil {
		return ""
	}

	item, err := ring.Get(keyUser)
	if err != nil {
		return ""
	}

	return string(item.Data)
}

// Clear removes all stored session credentials.
func (s *KeyringStore) Clear() error {
	ring, err := openKeyring()
	if err != nil {
		return err
	}

	for _, key := range []string{keyAccessToken, keyRefreshToken, keyIssuedAt, keyUser} {
		if err := ring.Remove(key); err != nil && err != keyring.ErrKeyNotFound {
			return fmt.Errorf("removing credential %q: %w", key, err)
		}
	}

	return nil
}
