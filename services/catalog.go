package services

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/gosimple/slug"
	"github.com/gosimple/unidecode"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	"reward-ledger/logger"
	"reward-ledger/models"
)

const RoleAdmin = "admin"

// Actor is the caller of an operation as forwarded by the gateway.
type Actor struct {
	UserID string
	Roles  []string
}

func (a Actor) IsAdmin() bool {
	for _, r := range a.Roles {
		if strings.EqualFold(strings.TrimSpace(r), RoleAdmin) {
			return true
		}
	}
	return false
}

// IconStore uploads shop item icons and returns their public URL.
type IconStore interface {
	UploadIcon(ctx context.Context, file *multipart.FileHeader, key string) (string, error)
}

type CreateShopItemInput struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Type  models.ItemType `json:"type"`
	Value string          `json:"value"`
	Price int64           `json:"price"`

	Icon *multipart.FileHeader `json:"-"`
}

// CatalogService administers the shop catalog.
type CatalogService struct {
	DB    *gorm.DB
	Log   *logger.Logger
	Icons IconStore
}

func NewCatalogService(db *gorm.DB, log *logger.Logger, icons IconStore) *CatalogService {
	return &CatalogService{DB: db, Log: log.With("service", "CatalogService"), Icons: icons}
}

// searchKey folds accents and case so "Névé" and "neve" match.
func searchKey(s string) string {
	return strings.ToLower(strings.TrimSpace(unidecode.Unidecode(s)))
}

// CreateShopItem adds an item to the catalog. Only admins may call it.
func (s *CatalogService) CreateShopItem(ctx context.Context, actor Actor, in CreateShopItemInput) (*models.ShopItem, error) {
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: %s may not edit the shop catalog", ErrUnauthorized, actor.UserID)
	}

	name := strings.Join(strings.Fields(in.Name), " ")
	if name == "" {
		return nil, invalid("item name is required")
	}
	if !in.Type.Valid() {
		return nil, invalid("unknown item type %q", in.Type)
	}
	if in.Price < 0 {
		return nil, invalid("price must not be negative")
	}

	id := in.ID
	if id == "" {
		id = name
	}
	id = slug.Make(id)
	if id == "" {
		return nil, invalid("cannot derive an item id from %q", name)
	}

	item := &models.ShopItem{
		ID:         id,
		Name:       cases.Title(language.English).String(name),
		SearchName: searchKey(name),
		Type:       in.Type,
		Value:      in.Value,
		Price:      in.Price,
	}

	db := s.DB.WithContext(ctx)
	var existing models.ShopItem
	err := db.Unscoped().Where("id = ?", id).First(&existing).Error
	switch {
	case err == nil:
		return nil, invalid("shop item %s already exists", id)
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, err
	}

	if in.Icon != nil {
		if s.Icons == nil {
			return nil, invalid("icon uploads are not configured")
		}
		key := fmt.Sprintf("shop/%s%s", id, strings.ToLower(filepath.Ext(in.Icon.Filename)))
		url, err := s.Icons.UploadIcon(ctx, in.Icon, key)
		if err != nil {
			return nil, fmt.Errorf("upload icon: %w", err)
		}
		item.IconURL = url
	}

	if err := db.Create(item).Error; err != nil {
		return nil, err
	}
	s.Log.Info("shop item created", "item_id", item.ID, "type", item.Type, "price", item.Price, "by", actor.UserID)
	return item, nil
}

// DeleteShopItem retires an item. Owners keep their inventory row, but it no
// longer counts towards shop completion.
func (s *CatalogService) DeleteShopItem(ctx context.Context, actor Actor, itemID string) error {
	if !actor.IsAdmin() {
		return fmt.Errorf("%w: %s may not edit the shop catalog", ErrUnauthorized, actor.UserID)
	}
	res := s.DB.WithContext(ctx).Where("id = ?", itemID).Delete(&models.ShopItem{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return notFound("shop item %s", itemID)
	}
	s.Log.Info("shop item retired", "item_id", itemID, "by", actor.UserID)
	return nil
}

// ListShopItems returns the live catalog, optionally filtered by name.
func (s *CatalogService) ListShopItems(ctx context.Context, query string) ([]models.ShopItem, error) {
	db := s.DB.WithContext(ctx).Model(&models.ShopItem{})
	if q := searchKey(query); q != "" {
		db = db.Where("search_name LIKE ?", "%"+q+"%")
	}
	var items []models.ShopItem
	if err := db.Order("price ASC").Order("id ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}
