package services

import (
	"context"
	"testing"
	"time"

	"reward-ledger/testutil"
)

func TestSchedulerRunsSyncImmediately(t *testing.T) {
	f := newFixture(t)
	ran := make(chan struct{}, 1)

	sched, err := StartScheduler(testutil.Logger(t), SchedulerConfig{
		Location:  time.UTC,
		SyncEvery: time.Hour,
		Sync: func(context.Context) error {
			select {
			case ran <- struct{}{}:
			default:
			}
			return nil
		},
	}, f.engine.Maintenance)
	if err != nil {
		t.Fatalf("StartScheduler: %v", err)
	}
	t.Cleanup(func() { _ = sched.Shutdown() })

	select {
	case <-ran:
	case <-time.After(5 * time.Second):
		t.Fatal("sync job did not start immediately")
	}
	if got := len(sched.Jobs()); got != 2 {
		t.Fatalf("jobs = %d, want 2", got)
	}
}

func TestSchedulerRejectsBadCron(t *testing.T) {
	f := newFixture(t)
	if _, err := StartScheduler(testutil.Logger(t), SchedulerConfig{PruneCron: "not a cron"}, f.engine.Maintenance); err == nil {
		t.Fatal("expected an error for an invalid cron expression")
	}
}
