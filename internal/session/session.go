// Package session stores the bearer credentials issued by the mail API.
// The access token is only valid for a fixed window after issuance; an
// expired token is reported as absent so the caller refreshes before use.
package session

import "time"

// TokenTTL is how long an access token stays valid after issuance.
// The upstream API issues tokens with a one hour lifetime.
const TokenTTL = time.Hour

// Store is the session-scoped credential storage the gateway depends on.
type Store interface {
	// AccessToken returns the current access token, or ok=false when no
	// token is stored or the stored token is past its expiry window.
	AccessToken() (token string, ok bool)

	// RefreshToken returns the current refresh token, or ok=false when
	// no refresh token is stored.
	RefreshToken() (token string, ok bool)

	// SetTokens stores a freshly issued access/refresh token pair and
	// records the issuance time.
	SetTokens(access, refresh string) error

	// SetUser stores the authenticated user's address.
	SetUser(email string) error

	// User returns the authenticated user's address, if any.
	User() string

	// Clear removes all session state, forcing re-authentication.
	Clear() error
}
