package services

import (
	"context"
	"testing"

	"reward-ledger/models"
)

func TestMaintenancePruneKeepsToday(t *testing.T) {
	f := newFixture(t)
	stale := f.user(t, withState(func(st *models.GamificationState) {
		st.DailyLimits = map[string]string{
			"like_project_a": "2026-03-13",
			"like_project_b": "2026-03-14",
			"daily_login":    "2026-02-01",
		}
		st.ViewCount = 7
	}))
	clean := f.user(t)

	report, err := f.engine.Maintenance.PruneDailyLimits(context.Background())
	if err != nil {
		t.Fatalf("PruneDailyLimits: %v", err)
	}
	if report.UsersScanned != 2 || report.UsersUpdated != 1 || report.MarkersRemoved != 2 {
		t.Fatalf("report = %+v", report)
	}

	st := f.reload(t, stale.ID).State()
	if len(st.DailyLimits) != 1 || st.DailyLimits["like_project_b"] != "2026-03-14" {
		t.Fatalf("limits = %v", st.DailyLimits)
	}
	if st.ViewCount != 7 {
		t.Fatalf("prune touched counters: views = %d", st.ViewCount)
	}
	if len(f.reload(t, clean.ID).State().DailyLimits) != 0 {
		t.Fatal("clean user gained markers")
	}

	// The surviving marker still blocks today's grant.
	res, err := f.engine.Ledger.AwardXP(context.Background(), stale.ID, 5, "like_project_b")
	if err != nil {
		t.Fatalf("AwardXP: %v", err)
	}
	if res.Outcome != OutcomeDailyLimitReached {
		t.Fatalf("outcome = %s", res.Outcome)
	}
}

func TestPruneDailyLimitsPagesThroughUsers(t *testing.T) {
	f := newFixture(t)
	const n = pruneBatchSize + 3
	for i := 0; i < n; i++ {
		f.user(t, withState(func(st *models.GamificationState) {
			st.DailyLimits = map[string]string{"old": "2026-01-01"}
		}))
	}

	report, err := f.engine.Maintenance.PruneDailyLimits(context.Background())
	if err != nil {
		t.Fatalf("PruneDailyLimits: %v", err)
	}
	if report.UsersScanned != n || report.UsersUpdated != n || report.MarkersRemoved != n {
		t.Fatalf("report = %+v", report)
	}
}
