package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"reward-ledger/dbctx"
	"reward-ledger/logger"
	"reward-ledger/models"
)

// XPResult reports the account after an XP grant. When Outcome is not
// OutcomeGranted the numbers describe the unchanged account.
type XPResult struct {
	Outcome       Outcome `json:"outcome"`
	Reason        string  `json:"reason"`
	Amount        int64   `json:"amount"`
	XP            int64   `json:"xp"`
	Level         int     `json:"level"`
	PreviousLevel int     `json:"previous_level"`
	LeveledUp     bool    `json:"leveled_up"`
	Rank          string  `json:"rank"`
}

type CurrencyResult struct {
	Outcome Outcome `json:"outcome"`
	Reason  string  `json:"reason"`
	Amount  int64   `json:"amount"`
	Balance int64   `json:"balance"`
}

// LedgerService owns every mutation of XP, level, rank and currency balance.
type LedgerService struct {
	DB       *gorm.DB
	Log      *logger.Logger
	Notifier Notifier
	Calendar Calendar
}

func NewLedgerService(db *gorm.DB, log *logger.Logger, notifier Notifier, cal Calendar) *LedgerService {
	if notifier == nil {
		notifier = nopSink{}
	}
	return &LedgerService{
		DB:       db,
		Log:      log.With("service", "LedgerService"),
		Notifier: notifier,
		Calendar: cal,
	}
}

// AwardXP grants amount XP once per calendar day per reason key.
func (s *LedgerService) AwardXP(ctx context.Context, userID string, amount int64, reason string) (*XPResult, error) {
	var res *XPResult
	err := dbctx.Run(ctx, s.DB, s.Log, func(dbc dbctx.Context) error {
		user, err := LockUser(dbc, userID)
		if err != nil {
			return err
		}
		r, err := s.GrantXP(dbc, user, amount, reason)
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

// AwardCurrency credits amount to the balance. Currency grants are not
// deduplicated; reason only labels the grant.
func (s *LedgerService) AwardCurrency(ctx context.Context, userID string, amount int64, reason string) (*CurrencyResult, error) {
	var res *CurrencyResult
	err := dbctx.Run(ctx, s.DB, s.Log, func(dbc dbctx.Context) error {
		user, err := LockUser(dbc, userID)
		if err != nil {
			return err
		}
		r, err := s.CreditCurrency(dbc, user, amount, reason)
		if err != nil {
			return err
		}
		if err := SaveUser(dbc, user); err != nil {
			return err
		}
		res = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// GrantXP applies an XP grant to a user already locked by dbc. The caller
// persists the row.
func (s *LedgerService) GrantXP(dbc dbctx.Context, user *models.User, amount int64, reason string) (*XPResult, error) {
	if amount <= 0 {
		return nil, invalid("xp amount must be positive, got %d", amount)
	}
	if reason == "" {
		return nil, invalid("xp grant requires a reason")
	}

	res := &XPResult{
		Reason:        reason,
		Amount:        amount,
		XP:            user.XP,
		Level:         user.Level,
		PreviousLevel: user.Level,
		Rank:          user.Rank,
	}

	today := s.Calendar.Today()
	st := user.State()
	if !ShouldGrant(st, reason, today) {
		res.Outcome = OutcomeDailyLimitReached
		s.Log.Debug("xp grant denied by daily limit", "user_id", user.ID, "reason", reason)
		return res, nil
	}

	ranks, err := loadRanks(dbc.Tx)
	if err != nil {
		return nil, fmt.Errorf("load rank catalog: %w", err)
	}

	prevLevel := LevelForXP(user.XP)
	user.XP += amount
	user.Level = LevelForXP(user.XP)
	user.Rank = ResolveRank(ranks, user.XP)
	user.SetState(MarkGranted(st, reason, today))

	res.Outcome = OutcomeGranted
	res.XP = user.XP
	res.Level = user.Level
	res.PreviousLevel = prevLevel
	res.LeveledUp = user.Level > prevLevel
	res.Rank = user.Rank
	if res.LeveledUp {
		now := s.Calendar.now()
		user.LastLevelUpAt = &now
	}

	s.Log.Info("xp awarded", "user_id", user.ID, "amount", amount, "xp", user.XP, "level", user.Level, "rank", user.Rank, "reason", reason)

	dbc.AfterCommit("notify xp", logNotify(s.Notifier, s.Log, user.ID, models.NotificationXPGained, map[string]any{
		"amount": amount,
		"reason": reason,
		"xp":     res.XP,
		"level":  res.Level,
	}))
	if res.LeveledUp {
		dbc.AfterCommit("notify level up", logNotify(s.Notifier, s.Log, user.ID, models.NotificationLevelUp, map[string]any{
			"level":          res.Level,
			"previous_level": prevLevel,
			"rank":           res.Rank,
		}))
	}
	return res, nil
}

// CreditCurrency applies a currency grant to a user already locked by dbc.
func (s *LedgerService) CreditCurrency(dbc dbctx.Context, user *models.User, amount int64, reason string) (*CurrencyResult, error) {
	if amount <= 0 {
		return nil, invalid("currency amount must be positive, got %d", amount)
	}
	user.CurrencyBalance += amount

	s.Log.Info("currency awarded", "user_id", user.ID, "amount", amount, "balance", user.CurrencyBalance, "reason", reason)

	dbc.AfterCommit("notify currency", logNotify(s.Notifier, s.Log, user.ID, models.NotificationCurrencyGained, map[string]any{
		"amount":  amount,
		"reason":  reason,
		"balance": user.CurrencyBalance,
	}))
	return &CurrencyResult{
		Outcome: OutcomeGranted,
		Reason:  reason,
		Amount:  amount,
		Balance: user.CurrencyBalance,
	}, nil
}

// DebitCurrency removes amount from a locked user's balance, refusing to go
// below zero.
func (s *LedgerService) DebitCurrency(dbc dbctx.Context, user *models.User, amount int64) error {
	if amount < 0 {
		return invalid("debit amount must not be negative, got %d", amount)
	}
	if user.CurrencyBalance < amount {
		return fmt.Errorf("%w: balance %d, need %d", ErrInsufficientFunds, user.CurrencyBalance, amount)
	}
	user.CurrencyBalance -= amount
	return nil
}

// LockUser loads a user row with SELECT ... FOR UPDATE inside dbc's
// transaction.
func LockUser(dbc dbctx.Context, userID string) (*models.User, error) {
	if userID == "" {
		return nil, invalid("missing user id")
	}
	if _, err := uuid.Parse(userID); err != nil {
		return nil, notFound("user %s", userID)
	}
	var user models.User
	err := dbc.Tx.WithContext(dbc.Ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", userID).
		First(&user).Error
	if err != nil {
		return nil, translate(err, "user", userID)
	}
	return &user, nil
}

// SaveUser writes the reward fields of a locked user back in one statement.
func SaveUser(dbc dbctx.Context, user *models.User) error {
	return dbc.Tx.WithContext(dbc.Ctx).
		Model(user).
		Select(
			"currency_balance", "xp", "level", "rank", "badges", "gamification_state",
			"equipped_frame", "equipped_background", "background_color", "equipped_title", "equipped_effect",
			"last_level_up_at", "updated_at",
		).
		Updates(user).Error
}
