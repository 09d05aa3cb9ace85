package domain

import "time"

// AuthChangeType enumerates auth-state transitions emitted by the session
// manager.
type AuthChangeType string

const (
	AuthSignedIn       AuthChangeType = "signed_in"
	AuthSignedOut      AuthChangeType = "signed_out"
	AuthTokenRefreshed AuthChangeType = "token_refreshed"
)

// Session captures the provider-issued session for an authenticated identity.
// Tokens are opaque to everything except the JWT claims parser.
type Session struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	ExpiresAt    time.Time
	UserID       string
	Email        string
}

// Expired reports whether the session's access token has passed its expiry.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// AuthChange is delivered to auth-state subscribers. Handlers run on the
// sign-in path and must not block; see usecase.SessionManager.
type AuthChange struct {
	Type    AuthChangeType
	Session *Session
	At      time.Time
}
