package services

import (
	"context"
	"testing"
	"time"

	"gorm.io/gorm"

	"reward-ledger/models"
	"reward-ledger/testutil"
)

type fixture struct {
	db     *gorm.DB
	engine *Engine
	rec    *testutil.Recorder
	clock  *testutil.Clock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.DB(t)
	rec := &testutil.Recorder{}
	clock := testutil.FixedClock(time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC))
	engine := NewEngine(db, testutil.Logger(t), EngineOptions{
		Calendar: Calendar{Location: time.UTC, Now: clock.Now},
		Notifier: rec,
		Activity: rec,
	})
	return &fixture{db: db, engine: engine, rec: rec, clock: clock}
}

func (f *fixture) user(t *testing.T, mutate ...func(*models.User)) *models.User {
	t.Helper()
	return testutil.SeedUser(t, f.db, mutate...)
}

func (f *fixture) reload(t *testing.T, id string) *models.User {
	t.Helper()
	return testutil.Reload(t, f.db, id)
}

func (f *fixture) inventoryCount(t *testing.T, userID string) int64 {
	t.Helper()
	var n int64
	if err := f.db.Model(&models.InventoryItem{}).Where("user_id = ?", userID).Count(&n).Error; err != nil {
		t.Fatalf("count inventory: %v", err)
	}
	return n
}

func (f *fixture) track(t *testing.T, userID string, family CounterFamily, target string) *TrackResult {
	t.Helper()
	res, err := f.engine.Tracker.TrackEvent(context.Background(), userID, family, target)
	if err != nil {
		t.Fatalf("TrackEvent(%s, %q): %v", family, target, err)
	}
	return res
}

func withXP(xp int64) func(*models.User) {
	return func(u *models.User) {
		u.XP = xp
		u.Level = LevelForXP(xp)
	}
}

func withBalance(b int64) func(*models.User) {
	return func(u *models.User) { u.CurrencyBalance = b }
}

func badgeCount(u *models.User, id string) int {
	n := 0
	for _, b := range u.Badges {
		if b.ID == id {
			n++
		}
	}
	return n
}
