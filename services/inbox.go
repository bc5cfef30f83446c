package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"reward-ledger/logger"
	"reward-ledger/models"
)

const (
	defaultInboxLimit = 50
	maxInboxLimit     = 200
)

type InboxCounts struct {
	Total    int64 `json:"total_count"`
	Unviewed int64 `json:"unviewed_count"`
}

// InboxService reads back the notifications written by DBSink.
type InboxService struct {
	DB  *gorm.DB
	Log *logger.Logger
}

func NewInboxService(db *gorm.DB, log *logger.Logger) *InboxService {
	return &InboxService{DB: db, Log: log.With("service", "InboxService")}
}

// List returns the newest notifications first.
func (s *InboxService) List(ctx context.Context, userID string, limit int, unviewedOnly bool) ([]models.Notification, error) {
	if limit <= 0 {
		limit = defaultInboxLimit
	}
	if limit > maxInboxLimit {
		limit = maxInboxLimit
	}
	q := s.DB.WithContext(ctx).Where("recipient_id = ?", userID)
	if unviewedOnly {
		q = q.Where("viewed = ?", false)
	}
	items := []models.Notification{}
	if err := q.Order("created_at DESC").Limit(limit).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *InboxService) Counts(ctx context.Context, userID string) (*InboxCounts, error) {
	var c InboxCounts
	base := s.DB.WithContext(ctx).Model(&models.Notification{}).Where("recipient_id = ?", userID)
	if err := base.Session(&gorm.Session{}).Count(&c.Total).Error; err != nil {
		return nil, err
	}
	if err := base.Session(&gorm.Session{}).Where("viewed = ?", false).Count(&c.Unviewed).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// MarkViewed is idempotent.
func (s *InboxService) MarkViewed(ctx context.Context, userID, notificationID string) error {
	if _, err := uuid.Parse(notificationID); err != nil {
		return invalid("notification id %q is not a uuid", notificationID)
	}
	res := s.DB.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND recipient_id = ?", notificationID, userID).
		Update("viewed", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return notFound("notification %s", notificationID)
	}
	return nil
}

func (s *InboxService) MarkAllViewed(ctx context.Context, userID string) (int64, error) {
	res := s.DB.WithContext(ctx).Model(&models.Notification{}).
		Where("recipient_id = ? AND viewed = ?", userID, false).
		Update("viewed", true)
	return res.RowsAffected, res.Error
}

// Since returns notifications created strictly after the cursor, oldest
// first, for the event stream.
func (s *InboxService) Since(ctx context.Context, userID string, after time.Time) ([]models.Notification, error) {
	var items []models.Notification
	err := s.DB.WithContext(ctx).
		Where("recipient_id = ? AND created_at > ?", userID, after).
		Order("created_at ASC").
		Limit(maxInboxLimit).
		Find(&items).Error
	return items, err
}

// Latest returns the creation time of the newest notification, or the zero
// time when there is none.
func (s *InboxService) Latest(ctx context.Context, userID string) (time.Time, error) {
	var n models.Notification
	err := s.DB.WithContext(ctx).
		Where("recipient_id = ?", userID).
		Order("created_at DESC").
		Limit(1).
		Find(&n).Error
	return n.CreatedAt, err
}
