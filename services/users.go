package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"reward-ledger/logger"
	"reward-ledger/models"
)

// Profile is the read model returned to the profile page.
type Profile struct {
	ID              string         `json:"id"`
	Username        string         `json:"username"`
	CurrencyBalance int64          `json:"currency_balance"`
	XP              int64          `json:"xp"`
	Level           int            `json:"level"`
	Rank            RankProgress   `json:"rank"`
	Badges          []models.Badge `json:"badges"`
	Equipment       Equipment      `json:"equipment"`
	OwnedItems      []string       `json:"owned_items"`
	Counters        Counters       `json:"counters"`
}

type UserService struct {
	DB  *gorm.DB
	Log *logger.Logger
}

func NewUserService(db *gorm.DB, log *logger.Logger) *UserService {
	return &UserService{DB: db, Log: log.With("service", "UserService")}
}

// EnsureUser provisions an account row if none exists. Existing rows,
// including their reward fields, are left untouched.
func (s *UserService) EnsureUser(ctx context.Context, userID, username string) (*models.User, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return nil, invalid("user id %q is not a uuid", userID)
	}
	db := s.DB.WithContext(ctx)

	created := db.Clauses(clause.OnConflict{DoNothing: true}).Create(models.NewUser(userID, strings.TrimSpace(username)))
	if created.Error != nil {
		return nil, created.Error
	}
	if created.RowsAffected == 1 {
		s.Log.Info("user provisioned", "user_id", userID)
	}

	var user models.User
	if err := db.Where("id = ?", userID).First(&user).Error; err != nil {
		return nil, translate(err, "user", userID)
	}
	return &user, nil
}

// GetProfile assembles balances, rank progress, badges and inventory for a user.
func (s *UserService) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	db := s.DB.WithContext(ctx)

	var user models.User
	if err := db.Where("id = ?", userID).First(&user).Error; err != nil {
		return nil, translate(err, "user", userID)
	}
	ranks, err := loadRanks(db)
	if err != nil {
		return nil, err
	}
	owned := []string{}
	if err := db.Model(&models.InventoryItem{}).
		Where("user_id = ?", userID).
		Order("purchased_at ASC").
		Pluck("item_id", &owned).Error; err != nil {
		return nil, err
	}

	badges := []models.Badge(user.Badges)
	if badges == nil {
		badges = []models.Badge{}
	}
	return &Profile{
		ID:              user.ID,
		Username:        user.Username,
		CurrencyBalance: user.CurrencyBalance,
		XP:              user.XP,
		Level:           user.Level,
		Rank:            ResolveRankProgress(ranks, user.XP),
		Badges:          badges,
		Equipment:       equipmentOf(&user),
		OwnedItems:      owned,
		Counters:        countersOf(user.State()),
	}, nil
}
