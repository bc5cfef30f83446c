package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"reward-ledger/models"
	"reward-ledger/testutil"
)

func TestEnsureUserProvisionsOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := uuid.NewString()

	u, err := f.engine.Users.EnsureUser(ctx, id, " alice ")
	if err != nil {
		t.Fatalf("EnsureUser: %v", err)
	}
	if u.Username != "alice" || u.Level != 1 || u.Rank != models.DefaultRankName {
		t.Fatalf("user = %+v", u)
	}

	if _, err := f.engine.Ledger.AwardCurrency(ctx, id, 50, "gift"); err != nil {
		t.Fatalf("AwardCurrency: %v", err)
	}
	again, err := f.engine.Users.EnsureUser(ctx, id, "renamed")
	if err != nil {
		t.Fatalf("EnsureUser repeat: %v", err)
	}
	if again.CurrencyBalance != 50 || again.Username != "alice" {
		t.Fatalf("existing row rewritten: %+v", again)
	}

	if _, err := f.engine.Users.EnsureUser(ctx, "not-a-uuid", "x"); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("bad id err = %v", err)
	}
}

func TestGetProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := testutil.SeedShopItem(t, f.db, "gold-frame", models.ItemTypeFrame, 40)
	testutil.SeedShopItem(t, f.db, "other", models.ItemTypeTitle, 40)
	u := f.user(t, withBalance(100), withXP(420))

	f.buy(t, u.ID, item, true)
	f.track(t, u.ID, FamilyView, "")

	p, err := f.engine.Users.GetProfile(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	if p.CurrencyBalance != 60 || p.Equipment.Frame != item.Value {
		t.Fatalf("profile = %+v", p)
	}
	if len(p.OwnedItems) != 1 || p.OwnedItems[0] != item.ID {
		t.Fatalf("owned = %v", p.OwnedItems)
	}
	// 420 + first_purchase 10 + purchase bonus 15
	if p.XP != 445 || p.Level != 5 {
		t.Fatalf("xp=%d level=%d", p.XP, p.Level)
	}
	if p.Rank.Current != "Novice" || p.Rank.Next != "Adept" || p.Rank.XPRemaining != 55 {
		t.Fatalf("rank = %+v", p.Rank)
	}
	if p.Counters.Views != 1 || len(p.Badges) != 1 {
		t.Fatalf("counters=%+v badges=%+v", p.Counters, p.Badges)
	}

	if _, err := f.engine.Users.GetProfile(ctx, uuid.NewString()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown user err = %v", err)
	}
}
