package riverjobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
	"github.com/stretchr/testify/require"
)

type fakePurger struct {
	batches []int64
	cutoffs []time.Time
	err     error
}

func (f *fakePurger) PurgeEventsBefore(ctx context.Context, cutoff time.Time, limit int) (int64, error) {
	f.cutoffs = append(f.cutoffs, cutoff)
	if f.err != nil {
		return 0, f.err
	}
	if len(f.batches) == 0 {
		return 0, nil
	}
	n := f.batches[0]
	f.batches = f.batches[1:]
	return n, nil
}

func job(args PurgeConfirmationEventsArgs) *river.Job[PurgeConfirmationEventsArgs] {
	return &river.Job[PurgeConfirmationEventsArgs]{JobRow: &rivertype.JobRow{ID: 1}, Args: args}
}

func TestPurgeWorker_BatchesUntilShort(t *testing.T) {
	now := time.Date(2026, 3, 1, 4, 0, 0, 0, time.UTC)
	p := &fakePurger{batches: []int64{10, 10, 3}}
	w := NewPurgeConfirmationEventsWorker(p)
	w.now = func() time.Time { return now }

	require.NoError(t, w.Work(context.Background(), job(PurgeConfirmationEventsArgs{RetentionDays: 30, BatchSize: 10})))
	require.Len(t, p.cutoffs, 3)
	require.Equal(t, now.AddDate(0, 0, -30), p.cutoffs[0])
}

func TestPurgeWorker_Defaults(t *testing.T) {
	now := time.Date(2026, 3, 1, 4, 0, 0, 0, time.UTC)
	p := &fakePurger{}
	w := NewPurgeConfirmationEventsWorker(p)
	w.now = func() time.Time { return now }

	require.NoError(t, w.Work(context.Background(), job(PurgeConfirmationEventsArgs{})))
	require.Equal(t, now.AddDate(0, 0, -90), p.cutoffs[0])
}

func TestPurgeWorker_Errors(t *testing.T) {
	w := NewPurgeConfirmationEventsWorker(&fakePurger{err: errors.New("db down")})
	require.Error(t, w.Work(context.Background(), job(PurgeConfirmationEventsArgs{})))

	require.Error(t, NewPurgeConfirmationEventsWorker(nil).Work(context.Background(), job(PurgeConfirmationEventsArgs{})))
}

func TestParseSchedule(t *testing.T) {
	_, err := ParseSchedule("30 3 * * *")
	require.NoError(t, err)
	_, err = ParseSchedule("every day")
	require.Error(t, err)
}

func TestArgsKindAndUniqueness(t *testing.T) {
	args := PurgeConfirmationEventsArgs{}
	require.Equal(t, "linkconfirm_purge_confirmation_events", args.Kind())
	opts := args.InsertOpts()
	require.True(t, opts.UniqueOpts.ByArgs)
	require.Equal(t, 24*time.Hour, opts.UniqueOpts.ByPeriod)
}
