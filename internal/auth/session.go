// Package auth holds the credentials used to open stream subscriptions and
// verifies them against the upstream account endpoint.
package auth

import (
	"errors"
	"net/http"
)

var (
	// ErrUnauthorized is returned when the upstream rejects the credentials.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrIncomplete is returned when a session is built from partial credentials.
	ErrIncomplete = errors.New("incomplete credentials")
)

// Credentials is the consumer/access token pair bound to one account.
type Credentials struct {
	ConsumerKey       string
	ConsumerSecret    string
	AccessToken       string
	AccessTokenSecret string
}

// Complete reports whether every field is set.
func (c Credentials) Complete() bool {
	return c.ConsumerKey != "" && c.ConsumerSecret != "" &&
		c.AccessToken != "" && c.AccessTokenSecret != ""
}

// Profile is the verified identity behind a session.
type Profile struct {
	Name       string `json:"name"`
	ScreenName string `json:"screen_name"`
}

// Session is an authorized handle. It is created once the credentials are
// known and is borrowed, never modified, by stream subscriptions.
type Session struct {
	creds   Credentials
	profile Profile
}

// NewSession builds a session from complete credentials.
func NewSession(creds Credentials, profile Profile) (*Session, error) {
	if !creds.Complete() {
		return nil, ErrIncomplete
	}
	return &Session{creds: creds, profile: profile}, nil
}

// Valid reports whether s can be used to open a subscription.
func (s *Session) Valid() bool {
	return s != nil && s.creds.Complete()
}

// Profile returns the identity the session was verified as.
func (s *Session) Profile() Profile {
	if s == nil {
		return Profile{}
	}
	return s.profile
}

// AccessToken identifies the session; two sessions with the same token are
// the same authorization.
func (s *Session) AccessToken() string {
	if s == nil {
		return ""
	}
	return s.creds.AccessToken
}

// Header returns the headers that authorize upstream requests.
func (s *Session) Header() http.Header {
	h := make(http.Header)
	if s == nil {
		return h
	}
	h.Set("Authorization", "Bearer "+s.creds.AccessToken)
	h.Set("X-Consumer-Key", s.creds.ConsumerKey)
	return h
}

// StatusError maps an HTTP status from the upstream to ErrUnauthorized when
// it signals rejected credentials, and nil otherwise.
func StatusError(code int) error {
	if code == http.StatusUnauthorized || code == http.StatusForbidden {
		return ErrUnauthorized
	}
	return nil
}
