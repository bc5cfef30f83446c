package models

import (
	"time"

	"gorm.io/datatypes"
)

// SenderKind distinguishes automated grants from user-originated events.
type SenderKind string

const (
	SenderKindSystem SenderKind = "system"
	SenderKindUser   SenderKind = "user"
)

// Sender identifies who a notification comes from.
type Sender struct {
	Kind   SenderKind `json:"kind"`
	UserID string     `json:"user_id,omitempty"`
}

// SystemSender is the sender of every automated reward notification.
var SystemSender = Sender{Kind: SenderKindSystem}

func UserSender(userID string) Sender {
	return Sender{Kind: SenderKindUser, UserID: userID}
}

func (s Sender) IsSystem() bool { return s.Kind != SenderKindUser }

// NotificationType indicates what a notification announces.
type NotificationType string

const (
	NotificationXPGained            NotificationType = "xp_gained"
	NotificationCurrencyGained      NotificationType = "currency_gained"
	NotificationCurrencySpent       NotificationType = "currency_spent"
	NotificationLevelUp             NotificationType = "level_up"
	NotificationBadgeAwarded        NotificationType = "badge_awarded"
	NotificationAchievementUnlocked NotificationType = "achievement_unlocked"
)

// Notification is the row written by the database notification sink.
type Notification struct {
	ID          string            `gorm:"primaryKey;type:uuid" json:"id"`
	RecipientID string            `gorm:"type:uuid;not null;index" json:"recipient_id"`
	SenderKind  SenderKind        `gorm:"size:16;not null" json:"sender_kind"`
	SenderID    *string           `gorm:"type:uuid" json:"sender_id,omitempty"`
	Type        NotificationType  `gorm:"size:32;not null" json:"type"`
	Details     datatypes.JSONMap `json:"details"`
	Viewed      bool              `gorm:"default:false;index" json:"viewed"`
	CreatedAt   time.Time         `gorm:"autoCreateTime;index" json:"created_at"`
}

const (
	ActivityBadgeEarned = "badge_earned"
	ActivityPurchase    = "purchase"
)

// Activity is an entry in a user's public activity feed.
type Activity struct {
	ID        string            `gorm:"primaryKey;type:uuid" json:"id"`
	UserID    string            `gorm:"type:uuid;not null;index" json:"user_id"`
	Kind      string            `gorm:"size:32;not null" json:"kind"`
	Details   datatypes.JSONMap `json:"details"`
	CreatedAt time.Time         `gorm:"autoCreateTime;index" json:"created_at"`
}
