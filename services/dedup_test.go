package services

import (
	"testing"
	"time"

	"reward-ledger/models"
)

func TestShouldGrant(t *testing.T) {
	st := models.NewGamificationState()
	if !ShouldGrant(st, "like_project_a", "2026-03-14") {
		t.Fatal("absent key must be granted")
	}

	st = MarkGranted(st, "like_project_a", "2026-03-14")
	if ShouldGrant(st, "like_project_a", "2026-03-14") {
		t.Fatal("key marked today must be denied")
	}
	if !ShouldGrant(st, "like_project_b", "2026-03-14") {
		t.Fatal("a different key must be independent")
	}
	if !ShouldGrant(st, "like_project_a", "2026-03-15") {
		t.Fatal("key marked yesterday must be granted again")
	}
}

func TestMarkGrantedCopiesLimits(t *testing.T) {
	st := models.NewGamificationState()
	st.DailyLimits["a"] = "2026-03-13"

	next := MarkGranted(st, "b", "2026-03-14")
	if _, ok := st.DailyLimits["b"]; ok {
		t.Fatal("MarkGranted mutated its input")
	}
	if next.DailyLimits["a"] != "2026-03-13" || next.DailyLimits["b"] != "2026-03-14" {
		t.Fatalf("unexpected limits %v", next.DailyLimits)
	}
}

func TestPruneDailyLimitsKeepsToday(t *testing.T) {
	st := models.NewGamificationState()
	st.DailyLimits = map[string]string{
		"old":   "2026-03-01",
		"older": "2025-12-31",
		"today": "2026-03-14",
	}
	pruned, removed := PruneDailyLimits(st, "2026-03-14")
	if removed != 2 {
		t.Fatalf("removed = %d, want 2", removed)
	}
	if len(pruned.DailyLimits) != 1 || pruned.DailyLimits["today"] != "2026-03-14" {
		t.Fatalf("pruned limits = %v", pruned.DailyLimits)
	}
	for _, key := range []string{"old", "older", "today"} {
		if ShouldGrant(st, key, "2026-03-14") != ShouldGrant(pruned, key, "2026-03-14") {
			t.Fatalf("pruning changed the decision for %q", key)
		}
	}
}

func TestCalendarUsesCanonicalZone(t *testing.T) {
	instant := time.Date(2026, 3, 14, 23, 30, 0, 0, time.UTC)

	utc := Calendar{Location: time.UTC, Now: func() time.Time { return instant }}
	if got := utc.Today(); got != "2026-03-14" {
		t.Fatalf("UTC day = %s", got)
	}
	tokyo := Calendar{Location: time.FixedZone("JST", 9*3600), Now: func() time.Time { return instant }}
	if got := tokyo.Today(); got != "2026-03-15" {
		t.Fatalf("JST day = %s", got)
	}
	if got := (Calendar{Now: func() time.Time { return instant }}).Today(); got != "2026-03-14" {
		t.Fatalf("default zone day = %s, want UTC", got)
	}
}
