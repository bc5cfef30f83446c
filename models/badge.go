package models

import (
	"time"
)

// BadgeDefinition: static catalog row, seeded at startup
type BadgeDefinition struct {
	ID          string `gorm:"primaryKey;size:64" json:"id"` // e.g. "observer", "tycoon"
	Name        string `gorm:"not null" json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`

	XPReward       int64 `gorm:"not null;default:0" json:"xp_reward,omitempty"`
	CurrencyReward int64 `gorm:"not null;default:0" json:"currency_reward,omitempty"`

	// Distinguished badges announce themselves as achievements rather than
	// ordinary badge notifications.
	Distinguished bool `gorm:"not null;default:false" json:"distinguished,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// Badge is an awarded entry in User.Badges.
type Badge struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Icon           string    `json:"icon"`
	AwardedAt      time.Time `json:"awardedAt"`
	XPReward       *int64    `json:"xpReward,omitempty"`
	CurrencyReward *int64    `json:"currencyReward,omitempty"`
}

const (
	BadgeObserver        = "observer"
	BadgeScout           = "scout"
	BadgeExplorer        = "explorer"
	BadgeBookworm        = "bookworm"
	BadgeScholar         = "scholar"
	BadgeSocialButterfly = "social_butterfly"
	BadgeCommentator     = "commentator"
	BadgeCritic          = "critic"
	BadgeAdmirer         = "admirer"
	BadgePatron          = "patron"
	BadgeRisingStar      = "rising_star"
	BadgeCelebrity       = "celebrity"
	BadgeNetworker       = "networker"
	BadgeSocialite       = "socialite"
	BadgeRegular         = "regular"
	BadgeDevotee         = "devotee"
	BadgeFirstPurchase   = "first_purchase"
	BadgeTycoon          = "tycoon"
)

// DefaultBadges is the seed catalog.
var DefaultBadges = []BadgeDefinition{
	{ID: BadgeObserver, Name: "Observer", Description: "Viewed 10 projects", Icon: "👀", XPReward: 20},
	{ID: BadgeScout, Name: "Scout", Description: "Viewed 50 projects", Icon: "🔭", XPReward: 50},
	{ID: BadgeExplorer, Name: "Explorer", Description: "Viewed 200 projects", Icon: "🧭", XPReward: 100, CurrencyReward: 25},
	{ID: BadgeBookworm, Name: "Bookworm", Description: "Read 5 posts", Icon: "📖", XPReward: 15},
	{ID: BadgeScholar, Name: "Scholar", Description: "Read 25 posts", Icon: "🎓", XPReward: 60},
	{ID: BadgeSocialButterfly, Name: "Social Butterfly", Description: "Left 5 comments", Icon: "🦋", XPReward: 20},
	{ID: BadgeCommentator, Name: "Commentator", Description: "Commented on 10 different projects", Icon: "💬", XPReward: 40},
	{ID: BadgeCritic, Name: "Critic", Description: "Commented on 50 different projects", Icon: "🖋️", XPReward: 100},
	{ID: BadgeAdmirer, Name: "Admirer", Description: "Liked 10 different projects", Icon: "💖", XPReward: 25},
	{ID: BadgePatron, Name: "Patron", Description: "Liked 50 different projects", Icon: "🏛️", XPReward: 75},
	{ID: BadgeRisingStar, Name: "Rising Star", Description: "Received 10 likes", Icon: "🌟", XPReward: 30},
	{ID: BadgeCelebrity, Name: "Celebrity", Description: "Received 100 likes", Icon: "🎬", XPReward: 150, CurrencyReward: 50},
	{ID: BadgeNetworker, Name: "Networker", Description: "Visited 5 different profiles", Icon: "🤝", XPReward: 15},
	{ID: BadgeSocialite, Name: "Socialite", Description: "Visited 25 different profiles", Icon: "🥂", XPReward: 60},
	{ID: BadgeRegular, Name: "Regular", Description: "Checked in on 7 days", Icon: "📅", CurrencyReward: 20},
	{ID: BadgeDevotee, Name: "Devotee", Description: "Checked in on 30 days", Icon: "🔥", XPReward: 100, CurrencyReward: 100},
	{ID: BadgeFirstPurchase, Name: "First Purchase", Description: "Bought your first item", Icon: "🛍️", XPReward: 10},
	{ID: BadgeTycoon, Name: "Tycoon", Description: "Owns every item in the shop", Icon: "👑", CurrencyReward: 500, Distinguished: true},
}
