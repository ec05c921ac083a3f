package riverjobs

import (
	"context"
	"errors"
	"time"

	"github.com/riverqueue/river"
	log "github.com/sirupsen/logrus"
)

type PurgeConfirmationEventsArgs struct {
	RetentionDays int `json:"retention_days,omitempty"`
	BatchSize     int `json:"batch_size,omitempty"`
}

func (PurgeConfirmationEventsArgs) Kind() string { return "linkconfirm_purge_confirmation_events" }

func (args PurgeConfirmationEventsArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		Queue: river.QueueDefault,
		UniqueOpts: river.UniqueOpts{
			ByArgs:   true,
			ByPeriod: 24 * time.Hour,
			ByQueue:  true,
		},
	}
}

// EventPurger deletes confirmation events older than a cutoff, at most limit per call.
type EventPurger interface {
	PurgeEventsBefore(ctx context.Context, cutoff time.Time, limit int) (int64, error)
}

// PurgeConfirmationEventsWorker removes audit rows older than RetentionDays.
// It deletes in batches until a batch comes back short.
type PurgeConfirmationEventsWorker struct {
	river.WorkerDefaults[PurgeConfirmationEventsArgs]
	store EventPurger
	now   func() time.Time
}

func NewPurgeConfirmationEventsWorker(store EventPurger) *PurgeConfirmationEventsWorker {
	return &PurgeConfirmationEventsWorker{store: store, now: time.Now}
}

func (w *PurgeConfirmationEventsWorker) Timeout(*river.Job[PurgeConfirmationEventsArgs]) time.Duration {
	return 10 * time.Minute
}

func (w *PurgeConfirmationEventsWorker) Work(ctx context.Context, job *river.Job[PurgeConfirmationEventsArgs]) error {
	if w == nil || w.store == nil {
		return errors.New("linkconfirm purge: store not configured")
	}
	retention := job.Args.RetentionDays
	if retention <= 0 {
		retention = 90
	}
	batch := job.Args.BatchSize
	if batch <= 0 {
		batch = 1000
	}

	cutoff := w.now().AddDate(0, 0, -retention)
	var total int64
	for {
		n, err := w.store.PurgeEventsBefore(ctx, cutoff, batch)
		if err != nil {
			return err
		}
		total += n
		if n < int64(batch) {
			break
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	log.WithContext(ctx).WithFields(log.Fields{
		"deleted":        total,
		"retention_days": retention,
	}).Info("linkconfirm: purged confirmation events")
	return nil
}
