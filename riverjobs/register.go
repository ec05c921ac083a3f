package riverjobs

import (
	"fmt"

	"github.com/riverqueue/river"
	"github.com/robfig/cron/v3"
)

// RegisterPurgeConfirmationEventsWorker registers the purge worker into a River workers registry.
func RegisterPurgeConfirmationEventsWorker(ws *river.Workers, store EventPurger) {
	river.AddWorker(ws, NewPurgeConfirmationEventsWorker(store))
}

// ParseSchedule parses a standard five-field cron expression.
func ParseSchedule(cronSpec string) (cron.Schedule, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	schedule, err := parser.Parse(cronSpec)
	if err != nil {
		return nil, fmt.Errorf("invalid cron schedule '%s': %w", cronSpec, err)
	}
	return schedule, nil
}

// AddPurgeConfirmationEventsPeriodicJob enqueues the purge job on a cron schedule.
//
// Example cron: "30 3 * * *" (daily at 3:30 AM).
func AddPurgeConfirmationEventsPeriodicJob[T any](client *river.Client[T], cronSpec string, args PurgeConfirmationEventsArgs, runOnStart bool) error {
	schedule, err := ParseSchedule(cronSpec)
	if err != nil {
		return err
	}
	opts := args.InsertOpts()
	_ = client.PeriodicJobs().Add(
		river.NewPeriodicJob(
			schedule,
			func() (river.JobArgs, *river.InsertOpts) { return args, &opts },
			&river.PeriodicJobOpts{RunOnStart: runOnStart},
		),
	)
	return nil
}
