package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"reward-ledger/models"
)

func TestAwardBadgeIsIdempotent(t *testing.T) {
	f := newFixture(t)
	u := f.user(t)
	ctx := context.Background()

	res, err := f.engine.Badges.AwardBadge(ctx, u.ID, models.BadgeExplorer)
	if err != nil {
		t.Fatalf("AwardBadge: %v", err)
	}
	if res.Outcome != OutcomeGranted || res.Badge == nil {
		t.Fatalf("first award = %+v", res)
	}
	if res.Badge.XPReward == nil || *res.Badge.XPReward != 100 || res.Badge.CurrencyReward == nil || *res.Badge.CurrencyReward != 25 {
		t.Fatalf("badge rewards = %+v", res.Badge)
	}

	again, err := f.engine.Badges.AwardBadge(ctx, u.ID, models.BadgeExplorer)
	if err != nil {
		t.Fatalf("AwardBadge repeat: %v", err)
	}
	if again.Outcome != OutcomeAlreadyAwarded {
		t.Fatalf("repeat outcome = %s", again.Outcome)
	}

	stored := f.reload(t, u.ID)
	if badgeCount(stored, models.BadgeExplorer) != 1 {
		t.Fatalf("explorer held %d times", badgeCount(stored, models.BadgeExplorer))
	}
	if stored.XP != 100 || stored.CurrencyBalance != 25 || stored.Level != 2 {
		t.Fatalf("xp=%d balance=%d level=%d", stored.XP, stored.CurrencyBalance, stored.Level)
	}
	if f.rec.Count(models.NotificationBadgeAwarded) != 1 || f.rec.ActivityCount(models.ActivityBadgeEarned) != 1 {
		t.Fatalf("notifications %+v activities %+v", f.rec.Sent, f.rec.Activities)
	}
}

func TestAwardBadgeConcurrentAwardsOnce(t *testing.T) {
	f := newFixture(t)
	u := f.user(t)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		granted int
	)
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := f.engine.Badges.AwardBadge(context.Background(), u.ID, models.BadgeBookworm)
			if err != nil {
				t.Errorf("AwardBadge: %v", err)
				return
			}
			if res.Outcome == OutcomeGranted {
				mu.Lock()
				granted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if granted != 1 {
		t.Fatalf("granted %d times", granted)
	}
	stored := f.reload(t, u.ID)
	if badgeCount(stored, models.BadgeBookworm) != 1 || stored.XP != 15 {
		t.Fatalf("badges=%+v xp=%d", stored.Badges, stored.XP)
	}
}

func TestAwardBadgeUnknown(t *testing.T) {
	f := newFixture(t)
	u := f.user(t)

	if _, err := f.engine.Badges.AwardBadge(context.Background(), u.ID, "no_such_badge"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
	if stored := f.reload(t, u.ID); len(stored.Badges) != 0 {
		t.Fatalf("badges = %+v", stored.Badges)
	}
}

func TestDistinguishedBadgeAnnouncesAchievement(t *testing.T) {
	f := newFixture(t)
	u := f.user(t)

	if _, err := f.engine.Badges.AwardBadge(context.Background(), u.ID, models.BadgeTycoon); err != nil {
		t.Fatalf("AwardBadge: %v", err)
	}
	if f.rec.Count(models.NotificationAchievementUnlocked) != 1 {
		t.Fatalf("achievement notifications = %d", f.rec.Count(models.NotificationAchievementUnlocked))
	}
	if f.rec.Count(models.NotificationBadgeAwarded) != 0 {
		t.Fatal("distinguished badge also sent badge_awarded")
	}
	if bal := f.reload(t, u.ID).CurrencyBalance; bal != 500 {
		t.Fatalf("balance = %d, want 500", bal)
	}
}

func TestListBadges(t *testing.T) {
	f := newFixture(t)
	defs, err := f.engine.Badges.ListBadges(context.Background())
	if err != nil {
		t.Fatalf("ListBadges: %v", err)
	}
	if len(defs) != len(models.DefaultBadges) {
		t.Fatalf("got %d badges, want %d", len(defs), len(models.DefaultBadges))
	}
	for i := 1; i < len(defs); i++ {
		if defs[i-1].ID > defs[i].ID {
			t.Fatalf("catalog not ordered: %s before %s", defs[i-1].ID, defs[i].ID)
		}
	}
}
