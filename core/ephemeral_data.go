package core

import (
	"context"
	"crypto/rand"
	"fmt"
	"strings"
	"time"

	"github.com/mr-tron/base58"
	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"

	"github.com/open-rails/linkconfirm/gotrue"
)

const keyResetTicket = "linkconfirm:reset_ticket:"

type resetTicketData struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	TokenExpiry  time.Time `json:"token_expiry,omitempty"`
	UserID       string    `json:"user_id"`
	Email        string    `json:"email,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
}

func (d resetTicketData) session() *gotrue.Session {
	return &gotrue.Session{
		Token: &oauth2.Token{
			AccessToken:  d.AccessToken,
			TokenType:    "bearer",
			RefreshToken: d.RefreshToken,
			Expiry:       d.TokenExpiry,
		},
		User: &gotrue.User{ID: d.UserID, Email: d.Email},
	}
}

func newTicketID() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base58.Encode(b), nil
}

// issueResetTicket stores the validated recovery session and returns the ticket that unlocks it.
func (s *Service) issueResetTicket(ctx context.Context, sess *gotrue.Session, user *gotrue.User) (string, error) {
	if sess == nil || sess.Token == nil || sess.Token.AccessToken == "" {
		return "", fmt.Errorf("issue reset ticket: empty session")
	}
	id, err := newTicketID()
	if err != nil {
		return "", fmt.Errorf("issue reset ticket: %w", err)
	}
	ttl := s.cfg.ResetTicketTTL
	data := resetTicketData{
		AccessToken:  sess.Token.AccessToken,
		RefreshToken: sess.Token.RefreshToken,
		TokenExpiry:  sess.Token.Expiry,
		ExpiresAt:    s.now().Add(ttl),
	}
	if user != nil {
		data.UserID = user.ID
		data.Email = user.Email
	}
	if err := s.ephemSetJSON(ctx, keyResetTicket+id, data, ttl); err != nil {
		return "", fmt.Errorf("issue reset ticket: %w", err)
	}
	return id, nil
}

// takeResetTicket consumes a ticket. found=false means unknown, expired or already used.
func (s *Service) takeResetTicket(ctx context.Context, ticket string) (resetTicketData, bool, error) {
	var data resetTicketData
	ticket = strings.TrimSpace(ticket)
	if ticket == "" {
		return data, false, nil
	}
	if _, err := base58.Decode(ticket); err != nil {
		return data, false, nil
	}
	ok, err := s.ephemTakeJSON(ctx, keyResetTicket+ticket, &data)
	if err != nil || !ok {
		return data, false, err
	}
	if !data.ExpiresAt.IsZero() && s.now().After(data.ExpiresAt) {
		return data, false, nil
	}
	return data, true, nil
}

// restoreResetTicket puts a ticket back for its remaining lifetime, so a user can
// retry after the provider rejected the new password. It reports whether the
// ticket is usable again.
func (s *Service) restoreResetTicket(ctx context.Context, ticket string, data resetTicketData) bool {
	remaining := data.ExpiresAt.Sub(s.now())
	if remaining <= 0 {
		return false
	}
	if err := s.ephemSetJSON(context.WithoutCancel(ctx), keyResetTicket+ticket, data, remaining); err != nil {
		log.WithContext(ctx).WithError(err).WithField("user_id", data.UserID).Warn("linkconfirm: restore reset ticket failed")
		return false
	}
	return true
}
