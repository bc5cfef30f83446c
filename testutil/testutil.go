// Package testutil provides isolated databases and doubles for tests.
package testutil

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"reward-ledger/logger"
	"reward-ledger/models"
)

// DB opens a private in-memory SQLite database with the schema migrated and
// the catalogs seeded. It allows a single connection, so concurrent
// transactions are fully serialized the way row locks serialize them per user.
func DB(tb testing.TB) *gorm.DB {
	tb.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		tb.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		tb.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	tb.Cleanup(func() { _ = sqlDB.Close() })

	if err := models.Migrate(db); err != nil {
		tb.Fatalf("migrate: %v", err)
	}
	if err := models.SeedCatalogs(db); err != nil {
		tb.Fatalf("seed catalogs: %v", err)
	}
	return db
}

func Logger(tb testing.TB) *logger.Logger {
	tb.Helper()
	return logger.NewNop()
}

// SeedUser inserts a fresh user after applying the optional mutators.
func SeedUser(tb testing.TB, db *gorm.DB, mutate ...func(*models.User)) *models.User {
	tb.Helper()
	u := models.NewUser(uuid.NewString(), "user-"+uuid.NewString()[:8])
	for _, m := range mutate {
		m(u)
	}
	if err := db.Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

// SeedShopItem inserts a catalog item.
func SeedShopItem(tb testing.TB, db *gorm.DB, id string, t models.ItemType, price int64) *models.ShopItem {
	tb.Helper()
	item := &models.ShopItem{
		ID:         id,
		Name:       id,
		SearchName: id,
		Type:       t,
		Value:      "value-" + id,
		Price:      price,
	}
	if err := db.Create(item).Error; err != nil {
		tb.Fatalf("seed shop item: %v", err)
	}
	return item
}

// Reload reads a user back from the database.
func Reload(tb testing.TB, db *gorm.DB, id string) *models.User {
	tb.Helper()
	var u models.User
	if err := db.Where("id = ?", id).First(&u).Error; err != nil {
		tb.Fatalf("reload user %s: %v", id, err)
	}
	return &u
}

// Clock is a settable time source.
type Clock struct {
	mu sync.Mutex
	t  time.Time
}

func FixedClock(t time.Time) *Clock {
	return &Clock{t: t}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type Sent struct {
	RecipientID string
	Sender      models.Sender
	Type        models.NotificationType
	Details     map[string]any
}

type Activity struct {
	UserID  string
	Kind    string
	Details map[string]any
}

// Recorder captures notifications and activity entries.
type Recorder struct {
	mu         sync.Mutex
	Sent       []Sent
	Activities []Activity
}

func (r *Recorder) Notify(_ context.Context, recipientID string, sender models.Sender, kind models.NotificationType, details map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Sent = append(r.Sent, Sent{RecipientID: recipientID, Sender: sender, Type: kind, Details: details})
	return nil
}

func (r *Recorder) RecordActivity(_ context.Context, userID, kind string, details map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Activities = append(r.Activities, Activity{UserID: userID, Kind: kind, Details: details})
	return nil
}

// Count returns how many notifications of kind were sent.
func (r *Recorder) Count(kind models.NotificationType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range r.Sent {
		if s.Type == kind {
			n++
		}
	}
	return n
}

func (r *Recorder) ActivityCount(kind string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, a := range r.Activities {
		if a.Kind == kind {
			n++
		}
	}
	return n
}

// ErrSinkDown is returned by Failing.
var ErrSinkDown = errors.New("sink unavailable")

// Failing rejects every notification and activity entry.
type Failing struct{}

func (Failing) Notify(context.Context, string, models.Sender, models.NotificationType, map[string]any) error {
	return ErrSinkDown
}

func (Failing) RecordActivity(context.Context, string, string, map[string]any) error {
	return ErrSinkDown
}
