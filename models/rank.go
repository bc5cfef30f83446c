package models

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Rank is one named tier of the rank catalog.
type Rank struct {
	Name     string `gorm:"primaryKey;size:64" json:"name"`
	MinXP    int64  `gorm:"not null;index" json:"min_xp"`
	Position int    `gorm:"not null;default:0" json:"position"` // tie-break among equal MinXP
	Icon     string `json:"icon,omitempty"`
	Color    string `gorm:"size:16" json:"color,omitempty"`
}

// DefaultRankName is used when the catalog is empty.
const DefaultRankName = "Visitor"

var DefaultRanks = []Rank{
	{Name: DefaultRankName, MinXP: 0, Position: 0, Icon: "🚶", Color: "#9ca3af"},
	{Name: "Novice", MinXP: 100, Position: 1, Icon: "🌱", Color: "#22c55e"},
	{Name: "Adept", MinXP: 500, Position: 2, Icon: "⚒️", Color: "#3b82f6"},
	{Name: "Veteran", MinXP: 1500, Position: 3, Icon: "🛡️", Color: "#8b5cf6"},
	{Name: "Elite", MinXP: 4000, Position: 4, Icon: "⚔️", Color: "#f59e0b"},
	{Name: "Master", MinXP: 10000, Position: 5, Icon: "🏆", Color: "#ef4444"},
	{Name: "Legend", MinXP: 25000, Position: 6, Icon: "🐉", Color: "#eab308"},
}

// SeedCatalogs provisions the rank and badge catalogs. Existing rows are left
// untouched so a re-run never rewrites live data.
func SeedCatalogs(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		ranks := make([]Rank, len(DefaultRanks))
		copy(ranks, DefaultRanks)
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&ranks).Error; err != nil {
			return err
		}
		badges := make([]BadgeDefinition, len(DefaultBadges))
		copy(badges, DefaultBadges)
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&badges).Error
	})
}
