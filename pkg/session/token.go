// Package session owns the operator's token pair: credential login, refresh
// token login, persistence through a TokenStore and the bearer transport that
// every authenticated request goes through.
package session

import (
	"fmt"
	"time"

	"golang.org/x/oauth2"

	"tableflip.dev/colcon/pkg/api"
)

// ErrLoginRequired is returned when no usable token exists. It wraps
// api.ErrUnauthorized so callers handle it like a 401.
var ErrLoginRequired = fmt.Errorf("session: login required: %w", api.ErrUnauthorized)

// expirySkew is how early an access token is treated as expired.
const expirySkew = 30 * time.Second

// Token is the persisted token pair.
type Token struct {
	AccessToken   string    `json:"accessToken"`
	RefreshToken  string    `json:"refreshToken"`
	TokenType     string    `json:"tokenType,omitempty"`
	Expiry        time.Time `json:"expiry,omitempty"`
	RefreshExpiry time.Time `json:"refreshExpiry,omitempty"`
	Username      string    `json:"username,omitempty"`
}

// newToken builds a Token from an auth response issued at now.
func newToken(data *api.AuthData, username string, now time.Time) *Token {
	t := &Token{
		AccessToken:  data.AccessToken,
		RefreshToken: data.RefreshToken,
		TokenType:    data.TokenType,
		Username:     username,
	}
	if data.ExpiresIn > 0 {
		t.Expiry = now.Add(time.Duration(data.ExpiresIn) * time.Second)
	}
	if data.RefreshExpiresIn > 0 {
		t.RefreshExpiry = now.Add(time.Duration(data.RefreshExpiresIn) * time.Second)
	}
	return t
}

// Valid reports whether the access token can still be sent at now. A zero
// expiry never expires.
func (t *Token) Valid(now time.Time) bool {
	if t == nil || t.AccessToken == "" {
		return false
	}
	if t.Expiry.IsZero() {
		return true
	}
	return now.Add(expirySkew).Before(t.Expiry)
}

// Refreshable reports whether the refresh token can still be exchanged.
func (t *Token) Refreshable(now time.Time) bool {
	if t == nil || t.RefreshToken == "" {
		return false
	}
	if t.RefreshExpiry.IsZero() {
		return true
	}
	return now.Before(t.RefreshExpiry)
}

// OAuth2 converts the token for use with an oauth2.Transport. The header is
// always a bearer header whatever type the service reports.
func (t *Token) OAuth2() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		TokenType:    "Bearer",
		Expiry:       t.Expiry,
	}
}
