package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"reward-ledger/logger"
	"reward-ledger/models"
)

// Notifier delivers a notification. Callers treat it as fire-and-forget:
// errors are logged and never undo the reward that triggered them.
type Notifier interface {
	Notify(ctx context.Context, recipientID string, sender models.Sender, kind models.NotificationType, details map[string]any) error
}

// ActivitySink records an entry in a user's activity feed, with the same
// fire-and-forget contract as Notifier.
type ActivitySink interface {
	RecordActivity(ctx context.Context, userID, kind string, details map[string]any) error
}

// DBSink stores notifications and activity rows in the main database.
type DBSink struct {
	DB *gorm.DB
}

func NewDBSink(db *gorm.DB) *DBSink {
	return &DBSink{DB: db}
}

func (s *DBSink) Notify(ctx context.Context, recipientID string, sender models.Sender, kind models.NotificationType, details map[string]any) error {
	n := &models.Notification{
		ID:          uuid.NewString(),
		RecipientID: recipientID,
		SenderKind:  sender.Kind,
		Type:        kind,
		Details:     details,
	}
	if sender.IsSystem() {
		n.SenderKind = models.SenderKindSystem
	} else {
		id := sender.UserID
		n.SenderID = &id
	}
	return s.DB.WithContext(ctx).Create(n).Error
}

func (s *DBSink) RecordActivity(ctx context.Context, userID, kind string, details map[string]any) error {
	return s.DB.WithContext(ctx).Create(&models.Activity{
		ID:      uuid.NewString(),
		UserID:  userID,
		Kind:    kind,
		Details: details,
	}).Error
}

// RedisNotifier publishes notifications on a pub/sub channel for realtime
// delivery by another service.
type RedisNotifier struct {
	rdb     *goredis.Client
	channel string
}

type redisEnvelope struct {
	RecipientID string                  `json:"recipient_id"`
	Sender      models.Sender           `json:"sender"`
	Type        models.NotificationType `json:"type"`
	Details     map[string]any          `json:"details,omitempty"`
	SentAt      time.Time               `json:"sent_at"`
}

func NewRedisNotifier(addr, channel string) (*RedisNotifier, error) {
	if addr == "" {
		return nil, fmt.Errorf("missing redis address")
	}
	if channel == "" {
		channel = "reward-notifications"
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisNotifier{rdb: rdb, channel: channel}, nil
}

func (r *RedisNotifier) Notify(ctx context.Context, recipientID string, sender models.Sender, kind models.NotificationType, details map[string]any) error {
	raw, err := json.Marshal(redisEnvelope{
		RecipientID: recipientID,
		Sender:      sender,
		Type:        kind,
		Details:     details,
		SentAt:      time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	return r.rdb.Publish(ctx, r.channel, raw).Err()
}

func (r *RedisNotifier) Close() error {
	if r == nil || r.rdb == nil {
		return nil
	}
	return r.rdb.Close()
}

// MultiNotifier fans a notification out to every wrapped notifier. All of
// them are attempted; the joined error reports which failed.
type MultiNotifier []Notifier

func (m MultiNotifier) Notify(ctx context.Context, recipientID string, sender models.Sender, kind models.NotificationType, details map[string]any) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, recipientID, sender, kind, details); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type nopSink struct{}

func (nopSink) Notify(context.Context, string, models.Sender, models.NotificationType, map[string]any) error {
	return nil
}

func (nopSink) RecordActivity(context.Context, string, string, map[string]any) error {
	return nil
}

// logNotify wraps a notifier call for use as a post-commit hook.
func logNotify(n Notifier, log *logger.Logger, recipientID string, kind models.NotificationType, details map[string]any) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if n == nil {
			return nil
		}
		if err := n.Notify(ctx, recipientID, models.SystemSender, kind, details); err != nil {
			return fmt.Errorf("notify %s (%s): %w", recipientID, kind, err)
		}
		log.Debug("notification sent", "recipient_id", recipientID, "type", kind)
		return nil
	}
}
