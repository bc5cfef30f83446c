package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"reward-ledger/dbctx"
	"reward-ledger/logger"
	"reward-ledger/models"
)

// PurchaseXPBonus is granted once per item for buying it.
const PurchaseXPBonus = 15

var hexColor = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

type PurchaseRequest struct {
	ItemID    string          `json:"item_id"`
	Price     int64           `json:"price"`
	Type      models.ItemType `json:"type"`
	Value     string          `json:"value"`
	AutoEquip bool            `json:"auto_equip"`
}

type PurchaseResult struct {
	Outcome  Outcome `json:"outcome"`
	ItemID   string  `json:"item_id"`
	Price    int64   `json:"price"`
	Balance  int64   `json:"balance"`
	Equipped bool    `json:"equipped"`
}

// Equipment is the cosmetic loadout of a user.
type Equipment struct {
	Frame           string `json:"frame,omitempty"`
	Background      string `json:"background,omitempty"`
	BackgroundColor string `json:"background_color,omitempty"`
	Title           string `json:"title,omitempty"`
	Effect          string `json:"effect,omitempty"`
}

func equipmentOf(u *models.User) Equipment {
	return Equipment{
		Frame:           u.EquippedFrame,
		Background:      u.EquippedBackground,
		BackgroundColor: u.BackgroundColor,
		Title:           u.EquippedTitle,
		Effect:          u.EquippedEffect,
	}
}

type EquipResult struct {
	ItemID    string    `json:"item_id"`
	Equipment Equipment `json:"equipment"`
}

// ShopService sells catalog items and manages what a user has equipped.
type ShopService struct {
	DB       *gorm.DB
	Log      *logger.Logger
	Ledger   *LedgerService
	Badges   *BadgeService
	Notifier Notifier
	Activity ActivitySink
}

func NewShopService(db *gorm.DB, log *logger.Logger, ledger *LedgerService, badges *BadgeService, notifier Notifier, activity ActivitySink) *ShopService {
	if notifier == nil {
		notifier = nopSink{}
	}
	if activity == nil {
		activity = nopSink{}
	}
	return &ShopService{
		DB:       db,
		Log:      log.With("service", "ShopService"),
		Ledger:   ledger,
		Badges:   badges,
		Notifier: notifier,
		Activity: activity,
	}
}

// Purchase debits the item price, records ownership and optionally equips the
// item, all in one transaction. Owning the item already is reported as
// OutcomeAlreadyOwned with nothing changed.
func (s *ShopService) Purchase(ctx context.Context, userID string, req PurchaseRequest) (*PurchaseResult, error) {
	if req.ItemID == "" {
		return nil, invalid("missing item id")
	}

	var res *PurchaseResult
	err := dbctx.Run(ctx, s.DB, s.Log, func(dbc dbctx.Context) error {
		user, err := LockUser(dbc, userID)
		if err != nil {
			return err
		}
		tx := dbc.Tx.WithContext(dbc.Ctx)

		var item models.ShopItem
		if err := tx.Where("id = ?", req.ItemID).First(&item).Error; err != nil {
			return translate(err, "shop item", req.ItemID)
		}
		if req.Price != item.Price {
			return invalid("price %d does not match catalog price %d for %s", req.Price, item.Price, item.ID)
		}
		if req.Type != "" && req.Type != item.Type {
			return invalid("item %s is a %s, not a %s", item.ID, item.Type, req.Type)
		}
		if req.Value != "" && req.Value != item.Value {
			return invalid("value %q does not match catalog value for %s", req.Value, item.ID)
		}

		owned, err := ownsItem(tx, user.ID, item.ID)
		if err != nil {
			return err
		}
		if owned {
			res = &PurchaseResult{
				Outcome: OutcomeAlreadyOwned,
				ItemID:  item.ID,
				Price:   item.Price,
				Balance: user.CurrencyBalance,
			}
			return nil
		}

		if err := s.Ledger.DebitCurrency(dbc, user, item.Price); err != nil {
			return err
		}
		if err := tx.Create(&models.InventoryItem{
			ID:        uuid.NewString(),
			UserID:    user.ID,
			ItemID:    item.ID,
			PricePaid: item.Price,
		}).Error; err != nil {
			return fmt.Errorf("insert inventory row: %w", err)
		}
		if req.AutoEquip {
			applyEquip(user, item.Type, item.Value)
		}
		if err := SaveUser(dbc, user); err != nil {
			return err
		}

		res = &PurchaseResult{
			Outcome:  OutcomeGranted,
			ItemID:   item.ID,
			Price:    item.Price,
			Balance:  user.CurrencyBalance,
			Equipped: req.AutoEquip,
		}
		s.Log.Info("item purchased", "user_id", user.ID, "item_id", item.ID, "price", item.Price, "balance", user.CurrencyBalance)

		s.queuePurchaseHooks(dbc, user.ID, item, user.CurrencyBalance)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (s *ShopService) queuePurchaseHooks(dbc dbctx.Context, userID string, item models.ShopItem, balance int64) {
	details := map[string]any{
		"item_id":   item.ID,
		"item_name": item.Name,
		"item_type": string(item.Type),
		"price":     item.Price,
		"balance":   balance,
	}

	dbc.AfterCommit("check shop badges", func(ctx context.Context) error {
		_, err := s.Badges.CheckShopBadges(ctx, userID)
		return err
	})
	dbc.AfterCommit("notify currency spent", logNotify(s.Notifier, s.Log, userID, models.NotificationCurrencySpent, details))
	dbc.AfterCommit("record purchase activity", func(ctx context.Context) error {
		return s.Activity.RecordActivity(ctx, userID, models.ActivityPurchase, details)
	})
	dbc.AfterCommit("purchase xp bonus", func(ctx context.Context) error {
		_, err := s.Ledger.AwardXP(ctx, userID, PurchaseXPBonus, "purchase_item_"+item.ID)
		return err
	})
}

// Equip puts an owned item into its slot. The catalog value is always the one
// equipped; a caller-supplied value must match it.
func (s *ShopService) Equip(ctx context.Context, userID, itemID string, itemType models.ItemType, value string) (*EquipResult, error) {
	if itemID == "" {
		return nil, invalid("missing item id")
	}
	var res *EquipResult
	err := dbctx.Run(ctx, s.DB, s.Log, func(dbc dbctx.Context) error {
		user, err := LockUser(dbc, userID)
		if err != nil {
			return err
		}
		tx := dbc.Tx.WithContext(dbc.Ctx)

		owned, err := ownsItem(tx, user.ID, itemID)
		if err != nil {
			return err
		}
		if !owned {
			return notFound("item %s in inventory of %s", itemID, user.ID)
		}

		var item models.ShopItem
		if err := tx.Unscoped().Where("id = ?", itemID).First(&item).Error; err != nil {
			return translate(err, "shop item", itemID)
		}
		if itemType != "" && itemType != item.Type {
			return invalid("item %s is a %s, not a %s", item.ID, item.Type, itemType)
		}
		if value != "" && value != item.Value {
			return invalid("value %q does not match catalog value for %s", value, item.ID)
		}

		applyEquip(user, item.Type, item.Value)
		if err := SaveUser(dbc, user); err != nil {
			return err
		}
		res = &EquipResult{ItemID: item.ID, Equipment: equipmentOf(user)}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// SetBackgroundColor sets a solid colour background, which replaces any
// equipped background image.
func (s *ShopService) SetBackgroundColor(ctx context.Context, userID, color string) (*Equipment, error) {
	color = strings.TrimSpace(color)
	if !hexColor.MatchString(color) {
		return nil, invalid("background colour %q is not #rrggbb", color)
	}
	var eq Equipment
	err := dbctx.Run(ctx, s.DB, s.Log, func(dbc dbctx.Context) error {
		user, err := LockUser(dbc, userID)
		if err != nil {
			return err
		}
		user.BackgroundColor = strings.ToLower(color)
		user.EquippedBackground = ""
		if err := SaveUser(dbc, user); err != nil {
			return err
		}
		eq = equipmentOf(user)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &eq, nil
}

// applyEquip places value into the slot for t. A background image and a solid
// background colour are mutually exclusive; other slots leave both alone.
func applyEquip(u *models.User, t models.ItemType, value string) {
	switch t {
	case models.ItemTypeBackground:
		u.EquippedBackground = value
		u.BackgroundColor = ""
	case models.ItemTypeFrame:
		u.EquippedFrame = value
	case models.ItemTypeTitle:
		u.EquippedTitle = value
	case models.ItemTypeEffect:
		u.EquippedEffect = value
	}
}

func ownsItem(tx *gorm.DB, userID, itemID string) (bool, error) {
	var n int64
	err := tx.Model(&models.InventoryItem{}).
		Where("user_id = ? AND item_id = ?", userID, itemID).
		Count(&n).Error
	return n > 0, err
}
