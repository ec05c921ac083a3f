package core

import (
	"context"
	"encoding/hex"
	"strings"
	"time"

	"golang.org/x/crypto/blake2b"
)

// ConfirmationEvent is a best-effort, append-only record of one link or reset attempt,
// intended for external sinks (see storage/postgres).
type ConfirmationEvent struct {
	ID         string
	OccurredAt time.Time
	Flow       Flow
	LinkType   LinkType
	Outcome    ResultKind
	Detail     *string
	// TokenFingerprint identifies the token without storing it.
	TokenFingerprint *string
	UserID           *string
	IPAddr           *string
	UserAgent        *string
}

// EventLogger records confirmation events to an external sink.
// Implementations should be non-blocking and best-effort.
type EventLogger interface {
	LogConfirmationEvent(ctx context.Context, e ConfirmationEvent) error
}

// TokenFingerprint returns a short, stable, non-reversible identifier for a token,
// suitable for logs and audit rows.
func TokenFingerprint(token string) string {
	token = strings.TrimSpace(token)
	if token == "" {
		return ""
	}
	sum := blake2b.Sum256([]byte(token))
	return hex.EncodeToString(sum[:8])
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
