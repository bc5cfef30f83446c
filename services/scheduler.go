package services

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"

	"reward-ledger/logger"
)

// SchedulerConfig describes the background jobs. A zero SyncEvery or nil Sync
// disables the user sync job.
type SchedulerConfig struct {
	Location  *time.Location
	PruneCron string
	SyncEvery time.Duration
	Sync      func(ctx context.Context) error
}

// StartScheduler registers the nightly prune and the periodic user sync and
// starts the scheduler. The caller owns Shutdown.
func StartScheduler(log *logger.Logger, cfg SchedulerConfig, maint *MaintenanceService) (gocron.Scheduler, error) {
	log = log.With("component", "scheduler")

	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	sched, err := gocron.NewScheduler(gocron.WithLocation(loc))
	if err != nil {
		return nil, err
	}

	pruneCron := cfg.PruneCron
	if pruneCron == "" {
		pruneCron = "5 0 * * *"
	}
	_, err = sched.NewJob(
		gocron.CronJob(pruneCron, false),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
			defer cancel()
			if _, err := maint.PruneDailyLimits(ctx); err != nil {
				log.Error("prune job failed", "error", err)
			}
		}),
		gocron.WithName("prune-daily-limits"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = sched.Shutdown()
		return nil, err
	}

	if cfg.Sync != nil && cfg.SyncEvery > 0 {
		_, err = sched.NewJob(
			gocron.DurationJob(cfg.SyncEvery),
			gocron.NewTask(func() {
				ctx, cancel := context.WithTimeout(context.Background(), cfg.SyncEvery)
				defer cancel()
				if err := cfg.Sync(ctx); err != nil {
					log.Error("user sync failed", "error", err)
				}
			}),
			gocron.WithName("user-sync"),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
			gocron.WithStartAt(gocron.WithStartImmediately()),
		)
		if err != nil {
			_ = sched.Shutdown()
			return nil, err
		}
	}

	sched.Start()
	log.Info("scheduler started", "prune_cron", pruneCron, "sync_every", cfg.SyncEvery.String(), "location", loc.String())
	return sched, nil
}
