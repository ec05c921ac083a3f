package pgstore

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/open-rails/linkconfirm/core"
)

type execCall struct {
	sql  string
	args []any
}

type fakeDB struct {
	calls []execCall
	tag   pgconn.CommandTag
	err   error
}

func (f *fakeDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.calls = append(f.calls, execCall{sql: sql, args: args})
	return f.tag, f.err
}

func TestEventStore_Insert(t *testing.T) {
	db := &fakeDB{}
	s := NewEventStore(db)
	detail := "missing_token_or_type"
	err := s.LogConfirmationEvent(context.Background(), core.ConfirmationEvent{
		ID:         "e1",
		OccurredAt: time.Unix(1_700_000_000, 0).UTC(),
		Flow:       core.FlowEmailConfirm,
		LinkType:   core.LinkSignup,
		Outcome:    core.ResultInvalidLink,
		Detail:     &detail,
	})
	require.NoError(t, err)
	require.Len(t, db.calls, 1)
	require.Contains(t, db.calls[0].sql, "INSERT INTO linkconfirm.confirmation_events")
	require.Equal(t, "e1", db.calls[0].args[0])
	require.Equal(t, "signup", db.calls[0].args[3])
	require.Equal(t, "invalid_link", db.calls[0].args[4])
}

func TestEventStore_Purge(t *testing.T) {
	db := &fakeDB{tag: pgconn.NewCommandTag("DELETE 7")}
	n, err := NewEventStore(db).PurgeEventsBefore(context.Background(), time.Now(), 0)
	require.NoError(t, err)
	require.EqualValues(t, 7, n)
	require.True(t, strings.Contains(db.calls[0].sql, "DELETE FROM"))
	require.Equal(t, 1000, db.calls[0].args[1])

	db.err = errors.New("conn closed")
	_, err = NewEventStore(db).PurgeEventsBefore(context.Background(), time.Now(), 10)
	require.Error(t, err)
}
