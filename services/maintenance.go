package services

import (
	"context"

	"gorm.io/gorm"

	"reward-ledger/dbctx"
	"reward-ledger/logger"
	"reward-ledger/models"
)

const pruneBatchSize = 200

type PruneReport struct {
	UsersScanned   int `json:"users_scanned"`
	UsersUpdated   int `json:"users_updated"`
	MarkersRemoved int `json:"markers_removed"`
}

// MaintenanceService keeps the per-user state documents bounded.
type MaintenanceService struct {
	DB       *gorm.DB
	Log      *logger.Logger
	Calendar Calendar
}

func NewMaintenanceService(db *gorm.DB, log *logger.Logger, cal Calendar) *MaintenanceService {
	return &MaintenanceService{DB: db, Log: log.With("service", "MaintenanceService"), Calendar: cal}
}

// PruneDailyLimits removes daily-limit markers that are not dated today from
// every user. Each user is rewritten under its own row lock so pruning never
// races a grant.
func (s *MaintenanceService) PruneDailyLimits(ctx context.Context) (*PruneReport, error) {
	today := s.Calendar.Today()
	report := &PruneReport{}

	lastID := ""
	for {
		var ids []string
		q := s.DB.WithContext(ctx).Model(&models.User{})
		if lastID != "" {
			q = q.Where("id > ?", lastID)
		}
		if err := q.Order("id ASC").Limit(pruneBatchSize).Pluck("id", &ids).Error; err != nil {
			return report, err
		}
		if len(ids) == 0 {
			break
		}
		lastID = ids[len(ids)-1]

		for _, id := range ids {
			removed, err := s.pruneUser(ctx, id, today)
			if err != nil {
				s.Log.Warn("prune daily limits failed", "user_id", id, "error", err)
				continue
			}
			report.UsersScanned++
			if removed > 0 {
				report.UsersUpdated++
				report.MarkersRemoved += removed
			}
		}
		if err := ctx.Err(); err != nil {
			return report, err
		}
	}

	s.Log.Info("daily limits pruned", "day", today, "users_scanned", report.UsersScanned, "users_updated", report.UsersUpdated, "markers_removed", report.MarkersRemoved)
	return report, nil
}

func (s *MaintenanceService) pruneUser(ctx context.Context, userID, today string) (int, error) {
	removed := 0
	err := dbctx.Run(ctx, s.DB, s.Log, func(dbc dbctx.Context) error {
		removed = 0
		user, err := LockUser(dbc, userID)
		if err != nil {
			return err
		}
		st, n := PruneDailyLimits(user.State(), today)
		if n == 0 {
			return nil
		}
		user.SetState(st)
		removed = n
		return dbc.Tx.WithContext(dbc.Ctx).Model(user).Select("gamification_state", "updated_at").Updates(user).Error
	})
	return removed, err
}
