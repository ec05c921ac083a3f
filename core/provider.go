package core

import (
	"context"

	"github.com/open-rails/linkconfirm/gotrue"
)

// Provider is the slice of the hosted auth API the confirmation flows need.
// It is implemented by *gotrue.Client and faked in tests.
type Provider interface {
	// VerifyOTP consumes a one-time token from a signup/email link.
	VerifyOTP(ctx context.Context, token, linkType string) (*gotrue.Session, error)
	// SetSession adopts the access/refresh pair carried by a recovery link.
	SetSession(ctx context.Context, accessToken, refreshToken string) (*gotrue.Session, error)
	// GetUser returns the user the session belongs to.
	GetUser(ctx context.Context, session *gotrue.Session) (*gotrue.User, error)
	// UpdateUser sets a new password for the session's user.
	UpdateUser(ctx context.Context, session *gotrue.Session, password string) (*gotrue.User, error)
}

// TokenVerifier optionally checks a recovery access token locally before any provider call.
// It returns the token subject.
type TokenVerifier interface {
	VerifyAccessToken(ctx context.Context, token string) (string, error)
}
