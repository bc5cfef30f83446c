package services

import (
	"gorm.io/gorm"

	"reward-ledger/logger"
)

type EngineOptions struct {
	Calendar Calendar
	Notifier Notifier
	Activity ActivitySink
	Icons    IconStore
}

// Engine wires the reward services together over one database handle.
type Engine struct {
	Ledger      *LedgerService
	Badges      *BadgeService
	Tracker     *TrackerService
	Shop        *ShopService
	Catalog     *CatalogService
	Ranks       *RankService
	Users       *UserService
	Maintenance *MaintenanceService
	Inbox       *InboxService
}

func NewEngine(db *gorm.DB, log *logger.Logger, opts EngineOptions) *Engine {
	ledger := NewLedgerService(db, log, opts.Notifier, opts.Calendar)
	badges := NewBadgeService(db, log, ledger, opts.Notifier, opts.Activity)
	return &Engine{
		Ledger:      ledger,
		Badges:      badges,
		Tracker:     NewTrackerService(db, log, ledger, badges),
		Shop:        NewShopService(db, log, ledger, badges, opts.Notifier, opts.Activity),
		Catalog:     NewCatalogService(db, log, opts.Icons),
		Ranks:       NewRankService(db, log),
		Users:       NewUserService(db, log),
		Maintenance: NewMaintenanceService(db, log, opts.Calendar),
		Inbox:       NewInboxService(db, log),
	}
}
