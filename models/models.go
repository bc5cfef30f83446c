package models

import (
	"time"

	"gorm.io/gorm"
)

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// Migrate creates or updates every table the reward engine owns.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&Rank{},
		&BadgeDefinition{},
		&ShopItem{},
		&InventoryItem{},
		&ProfileVisit{},
		&Notification{},
		&Activity{},
	)
}
