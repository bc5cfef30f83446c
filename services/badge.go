package services

import (
	"context"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"reward-ledger/dbctx"
	"reward-ledger/logger"
	"reward-ledger/models"
)

type BadgeResult struct {
	Outcome Outcome       `json:"outcome"`
	Badge   *models.Badge `json:"badge,omitempty"`
}

// BadgeService appends badges to a user's collection and pays out their
// attached rewards through the ledger.
type BadgeService struct {
	DB       *gorm.DB
	Log      *logger.Logger
	Ledger   *LedgerService
	Notifier Notifier
	Activity ActivitySink
}

func NewBadgeService(db *gorm.DB, log *logger.Logger, ledger *LedgerService, notifier Notifier, activity ActivitySink) *BadgeService {
	if notifier == nil {
		notifier = nopSink{}
	}
	if activity == nil {
		activity = nopSink{}
	}
	return &BadgeService{
		DB:       db,
		Log:      log.With("service", "BadgeService"),
		Ledger:   ledger,
		Notifier: notifier,
		Activity: activity,
	}
}

// ListBadges returns the badge catalog.
func (s *BadgeService) ListBadges(ctx context.Context) ([]models.BadgeDefinition, error) {
	var defs []models.BadgeDefinition
	if err := s.DB.WithContext(ctx).Order("id ASC").Find(&defs).Error; err != nil {
		return nil, err
	}
	return defs, nil
}

// AwardBadge is the standalone entry point: it opens its own transaction and
// locks the user.
func (s *BadgeService) AwardBadge(ctx context.Context, userID, badgeID string) (*BadgeResult, error) {
	var res *BadgeResult
	err := dbctx.Run(ctx, s.DB, s.Log, func(dbc dbctx.Context) error {
		user, err := LockUser(dbc, userID)
		if err != nil {
			return err
		}
		r, err := s.AwardTx(dbc, user, badgeID)
		if err != nil {
			return err
		}
		if r.Outcome == OutcomeGranted {
			if err := SaveUser(dbc, user); err != nil {
				return err
			}
		}
		res = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// AwardTx awards badgeID to a user locked by dbc. Awarding a badge the user
// already holds is a no-op reported as OutcomeAlreadyAwarded. The caller
// persists the row.
func (s *BadgeService) AwardTx(dbc dbctx.Context, user *models.User, badgeID string) (*BadgeResult, error) {
	if user.HasBadge(badgeID) {
		return &BadgeResult{Outcome: OutcomeAlreadyAwarded}, nil
	}

	var def models.BadgeDefinition
	if err := dbc.Tx.WithContext(dbc.Ctx).Where("id = ?", badgeID).First(&def).Error; err != nil {
		return nil, translate(err, "badge", badgeID)
	}

	badge := models.Badge{
		ID:        def.ID,
		Name:      def.Name,
		Icon:      def.Icon,
		AwardedAt: s.Ledger.Calendar.now().UTC(),
	}
	if def.XPReward > 0 {
		xp := def.XPReward
		badge.XPReward = &xp
	}
	if def.CurrencyReward > 0 {
		cur := def.CurrencyReward
		badge.CurrencyReward = &cur
	}

	badges := make([]models.Badge, 0, len(user.Badges)+1)
	badges = append(badges, user.Badges...)
	user.Badges = datatypes.NewJSONSlice(append(badges, badge))

	if def.XPReward > 0 {
		if _, err := s.Ledger.GrantXP(dbc, user, def.XPReward, "badge_"+def.ID); err != nil {
			return nil, fmt.Errorf("badge %s xp reward: %w", def.ID, err)
		}
	}
	if def.CurrencyReward > 0 {
		if _, err := s.Ledger.CreditCurrency(dbc, user, def.CurrencyReward, "badge_"+def.ID); err != nil {
			return nil, fmt.Errorf("badge %s currency reward: %w", def.ID, err)
		}
	}

	s.Log.Info("badge awarded", "user_id", user.ID, "badge_id", def.ID)

	userID := user.ID
	details := map[string]any{
		"badge_id":   def.ID,
		"badge_name": def.Name,
		"icon":       def.Icon,
	}
	if def.XPReward > 0 {
		details["xp_reward"] = def.XPReward
	}
	if def.CurrencyReward > 0 {
		details["currency_reward"] = def.CurrencyReward
	}

	dbc.AfterCommit("record badge activity", func(ctx context.Context) error {
		return s.Activity.RecordActivity(ctx, userID, models.ActivityBadgeEarned, details)
	})
	kind := models.NotificationBadgeAwarded
	if def.Distinguished {
		kind = models.NotificationAchievementUnlocked
	}
	dbc.AfterCommit("notify badge", logNotify(s.Notifier, s.Log, userID, kind, details))

	return &BadgeResult{Outcome: OutcomeGranted, Badge: &badge}, nil
}

// CheckShopBadges re-derives the shop badges from live inventory and catalog
// counts. It returns the ids of badges newly awarded.
func (s *BadgeService) CheckShopBadges(ctx context.Context, userID string) ([]string, error) {
	var awarded []string
	err := dbctx.Run(ctx, s.DB, s.Log, func(dbc dbctx.Context) error {
		awarded = nil
		user, err := LockUser(dbc, userID)
		if err != nil {
			return err
		}
		tx := dbc.Tx.WithContext(dbc.Ctx)

		var owned int64
		if err := tx.Model(&models.InventoryItem{}).Where("user_id = ?", userID).Count(&owned).Error; err != nil {
			return err
		}

		// Items removed from the catalog no longer count towards completion.
		var ownedLive int64
		if err := tx.Model(&models.InventoryItem{}).
			Joins("JOIN shop_items ON shop_items.id = inventory_items.item_id AND shop_items.deleted_at IS NULL").
			Where("inventory_items.user_id = ?", userID).
			Count(&ownedLive).Error; err != nil {
			return err
		}
		var catalog int64
		if err := tx.Model(&models.ShopItem{}).Count(&catalog).Error; err != nil {
			return err
		}

		var candidates []string
		if owned >= 1 {
			candidates = append(candidates, models.BadgeFirstPurchase)
		}
		if catalog > 0 && ownedLive >= catalog {
			candidates = append(candidates, models.BadgeTycoon)
		}

		for _, id := range candidates {
			r, err := s.AwardTx(dbc, user, id)
			if err != nil {
				return err
			}
			if r.Outcome == OutcomeGranted {
				awarded = append(awarded, id)
			}
		}
		if len(awarded) == 0 {
			return nil
		}
		return SaveUser(dbc, user)
	})
	if err != nil {
		return nil, err
	}
	return awarded, nil
}
