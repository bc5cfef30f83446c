package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"reward-ledger/models"
	"reward-ledger/testutil"
)

func TestDBSinkAndInbox(t *testing.T) {
	db := testutil.DB(t)
	sink := NewDBSink(db)
	inbox := NewInboxService(db, testutil.Logger(t))
	ctx := context.Background()
	me, other := uuid.NewString(), uuid.NewString()

	if err := sink.Notify(ctx, me, models.SystemSender, models.NotificationXPGained, map[string]any{"amount": 5}); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if err := sink.Notify(ctx, me, models.UserSender(other), models.NotificationBadgeAwarded, nil); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if err := sink.Notify(ctx, other, models.SystemSender, models.NotificationLevelUp, nil); err != nil {
		t.Fatalf("Notify: %v", err)
	}

	items, err := inbox.List(ctx, me, 0, false)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("inbox = %+v", items)
	}
	var fromUser *models.Notification
	for i := range items {
		if items[i].SenderKind == models.SenderKindUser {
			fromUser = &items[i]
		}
	}
	if fromUser == nil || fromUser.SenderID == nil || *fromUser.SenderID != other {
		t.Fatalf("user-sent notification = %+v", fromUser)
	}

	counts, err := inbox.Counts(ctx, me)
	if err != nil {
		t.Fatalf("Counts: %v", err)
	}
	if counts.Total != 2 || counts.Unviewed != 2 {
		t.Fatalf("counts = %+v", counts)
	}

	if err := inbox.MarkViewed(ctx, me, items[0].ID); err != nil {
		t.Fatalf("MarkViewed: %v", err)
	}
	if err := inbox.MarkViewed(ctx, other, items[1].ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("foreign MarkViewed err = %v", err)
	}
	if err := inbox.MarkViewed(ctx, me, "nope"); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("bad id err = %v", err)
	}
	unviewed, err := inbox.List(ctx, me, 10, true)
	if err != nil {
		t.Fatalf("List unviewed: %v", err)
	}
	if len(unviewed) != 1 || unviewed[0].ID != items[1].ID {
		t.Fatalf("unviewed = %+v", unviewed)
	}

	n, err := inbox.MarkAllViewed(ctx, me)
	if err != nil || n != 1 {
		t.Fatalf("MarkAllViewed = %d, %v", n, err)
	}
	if counts, _ := inbox.Counts(ctx, me); counts.Unviewed != 0 {
		t.Fatalf("unviewed after MarkAllViewed = %d", counts.Unviewed)
	}

	latest, err := inbox.Latest(ctx, me)
	if err != nil || latest.IsZero() {
		t.Fatalf("Latest = %v, %v", latest, err)
	}
	since, err := inbox.Since(ctx, me, time.Time{})
	if err != nil || len(since) != 2 {
		t.Fatalf("Since = %d, %v", len(since), err)
	}
	none, err := inbox.Latest(ctx, uuid.NewString())
	if err != nil || !none.IsZero() {
		t.Fatalf("Latest for empty inbox = %v, %v", none, err)
	}
}

func TestDBSinkRecordsActivity(t *testing.T) {
	db := testutil.DB(t)
	sink := NewDBSink(db)
	id := uuid.NewString()

	if err := sink.RecordActivity(context.Background(), id, models.ActivityPurchase, map[string]any{"item_id": "a"}); err != nil {
		t.Fatalf("RecordActivity: %v", err)
	}
	var rows []models.Activity
	if err := db.Where("user_id = ?", id).Find(&rows).Error; err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].Kind != models.ActivityPurchase || rows[0].Details["item_id"] != "a" {
		t.Fatalf("rows = %+v", rows)
	}
}

func TestMultiNotifierAttemptsAll(t *testing.T) {
	rec := &testutil.Recorder{}
	m := MultiNotifier{testutil.Failing{}, nil, rec}

	err := m.Notify(context.Background(), "u", models.SystemSender, models.NotificationXPGained, nil)
	if !errors.Is(err, testutil.ErrSinkDown) {
		t.Fatalf("err = %v", err)
	}
	if rec.Count(models.NotificationXPGained) != 1 {
		t.Fatal("later notifier skipped after a failure")
	}
}

func TestNewRedisNotifierRequiresAddress(t *testing.T) {
	if _, err := NewRedisNotifier("", ""); err == nil {
		t.Fatal("expected an error for an empty address")
	}
}
