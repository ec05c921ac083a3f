// Package pgstore persists confirmation events to Postgres.
package pgstore

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/open-rails/linkconfirm/core"
)

// DB is the subset of *pgxpool.Pool used here.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

var _ DB = (*pgxpool.Pool)(nil)

// EventStore writes rows to linkconfirm.confirmation_events. It implements core.EventLogger.
type EventStore struct {
	db      DB
	timeout time.Duration
}

func NewEventStore(db DB) *EventStore {
	return &EventStore{db: db, timeout: 2 * time.Second}
}

func (s *EventStore) LogConfirmationEvent(ctx context.Context, e core.ConfirmationEvent) error {
	if s == nil || s.db == nil {
		return errors.New("pgstore: not configured")
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()
	_, err := s.db.Exec(ctx, `
		INSERT INTO linkconfirm.confirmation_events
			(id, occurred_at, flow, link_type, outcome, detail, token_fp, user_id, ip_addr, user_agent)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING
	`, e.ID, e.OccurredAt, string(e.Flow), string(e.LinkType), string(e.Outcome),
		e.Detail, e.TokenFingerprint, e.UserID, e.IPAddr, e.UserAgent)
	return err
}

// PurgeEventsBefore deletes up to limit events older than cutoff and returns how many went.
func (s *EventStore) PurgeEventsBefore(ctx context.Context, cutoff time.Time, limit int) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	if limit <= 0 {
		limit = 1000
	}
	tag, err := s.db.Exec(ctx, `
		DELETE FROM linkconfirm.confirmation_events
		WHERE id IN (
			SELECT id FROM linkconfirm.confirmation_events
			WHERE occurred_at < $1
			ORDER BY occurred_at ASC
			LIMIT $2
		)
	`, cutoff, limit)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
