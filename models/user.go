package models

import (
	"time"

	"gorm.io/datatypes"
)

// User is the reward-side view of an account. Rows are provisioned by the
// profile sync worker or on first access; reward fields are only ever written
// by the ledger services while the row is locked.
type User struct {
	ID       string `gorm:"primaryKey;type:uuid" json:"id"`
	Username string `gorm:"index" json:"username"`

	CurrencyBalance int64  `gorm:"not null;default:0;check:chk_users_currency_balance,currency_balance >= 0" json:"currency_balance"`
	XP              int64  `gorm:"not null;default:0" json:"xp"`
	Level           int    `gorm:"not null;default:1" json:"level"`
	Rank            string `gorm:"size:64" json:"rank"`

	Badges            datatypes.JSONSlice[Badge]            `gorm:"not null" json:"badges"`
	GamificationState datatypes.JSONType[GamificationState] `gorm:"not null" json:"-"`

	// Cosmetics
	EquippedFrame      string `json:"equipped_frame,omitempty"`
	EquippedBackground string `json:"equipped_background,omitempty"`
	BackgroundColor    string `gorm:"size:16" json:"background_color,omitempty"`
	EquippedTitle      string `json:"equipped_title,omitempty"`
	EquippedEffect     string `json:"equipped_effect,omitempty"`

	LastLevelUpAt *time.Time `json:"last_level_up_at,omitempty"`

	Timestamps
}

// NewUser returns a fresh account with an empty badge list and state document.
func NewUser(id, username string) *User {
	return &User{
		ID:                id,
		Username:          username,
		Level:             1,
		Rank:              DefaultRankName,
		Badges:            datatypes.NewJSONSlice([]Badge{}),
		GamificationState: datatypes.NewJSONType(NewGamificationState()),
	}
}

// State returns a normalized copy of the gamification document.
func (u *User) State() GamificationState {
	return u.GamificationState.Data().Normalize()
}

// SetState replaces the gamification document.
func (u *User) SetState(st GamificationState) {
	u.GamificationState = datatypes.NewJSONType(st.Normalize())
}

// HasBadge reports whether a badge with the given id has been awarded.
func (u *User) HasBadge(id string) bool {
	for _, b := range u.Badges {
		if b.ID == id {
			return true
		}
	}
	return false
}
