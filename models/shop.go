package models

import (
	"time"
)

// ItemType selects which cosmetic slot a shop item occupies.
type ItemType string

const (
	ItemTypeFrame      ItemType = "frame"
	ItemTypeBackground ItemType = "background"
	ItemTypeTitle      ItemType = "title"
	ItemTypeEffect     ItemType = "effect"
)

func (t ItemType) Valid() bool {
	switch t {
	case ItemTypeFrame, ItemTypeBackground, ItemTypeTitle, ItemTypeEffect:
		return true
	}
	return false
}

// ShopItem is a purchasable cosmetic. The catalog grows over time, which is
// why shop completion is always computed from live counts.
type ShopItem struct {
	ID         string   `gorm:"primaryKey;size:128" json:"id"` // slug
	Name       string   `gorm:"not null" json:"name"`
	SearchName string   `gorm:"index" json:"-"`
	Type       ItemType `gorm:"size:32;not null" json:"type"`
	Value      string   `gorm:"type:text" json:"value"` // css value or asset URL
	Price      int64    `gorm:"not null;check:chk_shop_items_price,price >= 0" json:"price"`
	IconURL    string   `gorm:"type:text" json:"icon_url,omitempty"`
	Timestamps
}

// InventoryItem records ownership; (user_id, item_id) is unique.
type InventoryItem struct {
	ID          string    `gorm:"primaryKey;type:uuid" json:"id"`
	UserID      string    `gorm:"type:uuid;not null;uniqueIndex:idx_inventory_owner_item" json:"user_id"`
	ItemID      string    `gorm:"size:128;not null;uniqueIndex:idx_inventory_owner_item" json:"item_id"`
	PricePaid   int64     `gorm:"not null" json:"price_paid"`
	PurchasedAt time.Time `gorm:"autoCreateTime" json:"purchased_at"`
}

// ProfileVisit holds one row per distinct (visitor, target) pair.
type ProfileVisit struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"`
	VisitorID string    `gorm:"type:uuid;not null;uniqueIndex:idx_profile_visit_pair" json:"visitor_id"`
	TargetID  string    `gorm:"type:uuid;not null;uniqueIndex:idx_profile_visit_pair;index" json:"target_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
