package services

import (
	"context"

	"gorm.io/gorm"

	"reward-ledger/logger"
	"reward-ledger/models"
)

// XPPerLevel is the flat amount of XP each level costs.
const XPPerLevel = 100

// LevelForXP derives the level from total XP.
func LevelForXP(xp int64) int {
	if xp < 0 {
		xp = 0
	}
	return int(xp/XPPerLevel) + 1
}

// ResolveRank returns the highest catalog entry whose MinXP does not exceed
// xp. The catalog must be ordered by MinXP ascending; among equal MinXP the
// later entry wins. Below every threshold the lowest entry is returned, and
// an empty catalog yields models.DefaultRankName.
func ResolveRank(catalog []models.Rank, xp int64) string {
	if len(catalog) == 0 {
		return models.DefaultRankName
	}
	name := catalog[0].Name
	for _, r := range catalog {
		if r.MinXP <= xp {
			name = r.Name
		}
	}
	return name
}

// RankProgress describes the next tier for a given XP total.
type RankProgress struct {
	Current     string `json:"current"`
	Next        string `json:"next,omitempty"`
	NextMinXP   int64  `json:"next_min_xp,omitempty"`
	XPRemaining int64  `json:"xp_remaining"`
}

func ResolveRankProgress(catalog []models.Rank, xp int64) RankProgress {
	p := RankProgress{Current: ResolveRank(catalog, xp)}
	for _, r := range catalog {
		if r.MinXP > xp {
			p.Next = r.Name
			p.NextMinXP = r.MinXP
			p.XPRemaining = r.MinXP - xp
			break
		}
	}
	return p
}

type RankService struct {
	DB  *gorm.DB
	Log *logger.Logger
}

func NewRankService(db *gorm.DB, log *logger.Logger) *RankService {
	return &RankService{DB: db, Log: log.With("service", "RankService")}
}

// GetRankCatalog returns the catalog ordered for ResolveRank.
func (s *RankService) GetRankCatalog(ctx context.Context) ([]models.Rank, error) {
	return loadRanks(s.DB.WithContext(ctx))
}

func loadRanks(tx *gorm.DB) ([]models.Rank, error) {
	var ranks []models.Rank
	if err := tx.Order("min_xp ASC").Order("position ASC").Find(&ranks).Error; err != nil {
		return nil, err
	}
	return ranks, nil
}
