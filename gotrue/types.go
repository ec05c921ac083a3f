// Package gotrue is a small client for the GoTrue auth API (the API behind
// Supabase Auth) covering the calls confirmation and recovery links need.
package gotrue

import (
	"time"

	"golang.org/x/oauth2"
)

// User is the subset of the provider's user object this module reads.
type User struct {
	ID               string     `json:"id"`
	Aud              string     `json:"aud,omitempty"`
	Role             string     `json:"role,omitempty"`
	Email            string     `json:"email,omitempty"`
	Phone            string     `json:"phone,omitempty"`
	EmailConfirmedAt *time.Time `json:"email_confirmed_at,omitempty"`
	RecoverySentAt   *time.Time `json:"recovery_sent_at,omitempty"`
	CreatedAt        *time.Time `json:"created_at,omitempty"`
	UpdatedAt        *time.Time `json:"updated_at,omitempty"`
}

// Session is owned by the provider. Callers hand it back to the client and
// otherwise only check it for presence.
type Session struct {
	Token *oauth2.Token
	User  *User
}

func (s *Session) accessToken() string {
	if s == nil || s.Token == nil {
		return ""
	}
	return s.Token.AccessToken
}

// tokenResponse is the OAuth2-shaped body returned by /verify and /token.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"`
	RefreshToken string `json:"refresh_token"`
	User         *User  `json:"user"`
}

func (t tokenResponse) session(now time.Time) *Session {
	tok := &oauth2.Token{
		AccessToken:  t.AccessToken,
		TokenType:    t.TokenType,
		RefreshToken: t.RefreshToken,
	}
	switch {
	case t.ExpiresAt > 0:
		tok.Expiry = time.Unix(t.ExpiresAt, 0)
	case t.ExpiresIn > 0:
		tok.Expiry = now.Add(time.Duration(t.ExpiresIn) * time.Second)
	}
	if tok.TokenType == "" {
		tok.TokenType = "bearer"
	}
	return &Session{Token: tok, User: t.User}
}
