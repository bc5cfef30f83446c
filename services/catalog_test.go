package services

import (
	"context"
	"errors"
	"mime/multipart"
	"testing"

	"reward-ledger/models"
)

type fakeIcons struct {
	keys []string
}

func (f *fakeIcons) UploadIcon(_ context.Context, _ *multipart.FileHeader, key string) (string, error) {
	f.keys = append(f.keys, key)
	return "https://cdn.example.test/" + key, nil
}

var adminActor = Actor{UserID: "a1", Roles: []string{" Admin "}}

func TestCreateShopItem(t *testing.T) {
	f := newFixture(t)
	icons := &fakeIcons{}
	f.engine.Catalog.Icons = icons
	ctx := context.Background()

	item, err := f.engine.Catalog.CreateShopItem(ctx, adminActor, CreateShopItemInput{
		Name:  "  névé   frame ",
		Type:  models.ItemTypeFrame,
		Value: "#fff",
		Price: 120,
		Icon:  &multipart.FileHeader{Filename: "Frame.PNG"},
	})
	if err != nil {
		t.Fatalf("CreateShopItem: %v", err)
	}
	if item.ID != "neve-frame" || item.Name != "Névé Frame" || item.SearchName != "neve frame" {
		t.Fatalf("item = %+v", item)
	}
	if len(icons.keys) != 1 || icons.keys[0] != "shop/neve-frame.png" {
		t.Fatalf("uploaded keys = %v", icons.keys)
	}
	if item.IconURL != "https://cdn.example.test/shop/neve-frame.png" {
		t.Fatalf("icon url = %q", item.IconURL)
	}

	found, err := f.engine.Catalog.ListShopItems(ctx, "NEVE")
	if err != nil {
		t.Fatalf("ListShopItems: %v", err)
	}
	if len(found) != 1 || found[0].ID != item.ID {
		t.Fatalf("search = %+v", found)
	}

	_, err = f.engine.Catalog.CreateShopItem(ctx, adminActor, CreateShopItemInput{ID: "Neve Frame", Name: "Other", Type: models.ItemTypeTitle})
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("duplicate id err = %v", err)
	}
}

func TestCreateShopItemRejects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := []struct {
		name  string
		actor Actor
		in    CreateShopItemInput
		want  error
	}{
		{"not admin", Actor{UserID: "u", Roles: []string{"user"}}, CreateShopItemInput{Name: "x", Type: models.ItemTypeFrame}, ErrUnauthorized},
		{"no name", adminActor, CreateShopItemInput{Name: "   ", Type: models.ItemTypeFrame}, ErrInvalidArgument},
		{"bad type", adminActor, CreateShopItemInput{Name: "x", Type: "hat"}, ErrInvalidArgument},
		{"negative price", adminActor, CreateShopItemInput{Name: "x", Type: models.ItemTypeFrame, Price: -1}, ErrInvalidArgument},
		{"icon without store", adminActor, CreateShopItemInput{Name: "x", Type: models.ItemTypeFrame, Icon: &multipart.FileHeader{Filename: "x.png"}}, ErrInvalidArgument},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := f.engine.Catalog.CreateShopItem(ctx, tc.actor, tc.in); !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestDeleteShopItem(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.engine.Catalog.CreateShopItem(ctx, adminActor, CreateShopItemInput{Name: "Glow", Type: models.ItemTypeEffect, Price: 5}); err != nil {
		t.Fatalf("CreateShopItem: %v", err)
	}
	if err := f.engine.Catalog.DeleteShopItem(ctx, Actor{UserID: "u"}, "glow"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("non-admin delete err = %v", err)
	}
	if err := f.engine.Catalog.DeleteShopItem(ctx, adminActor, "glow"); err != nil {
		t.Fatalf("DeleteShopItem: %v", err)
	}
	if err := f.engine.Catalog.DeleteShopItem(ctx, adminActor, "glow"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete err = %v", err)
	}

	items, err := f.engine.Catalog.ListShopItems(ctx, "")
	if err != nil {
		t.Fatalf("ListShopItems: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("retired item still listed: %+v", items)
	}
	if _, err := f.engine.Catalog.CreateShopItem(ctx, adminActor, CreateShopItemInput{Name: "Glow", Type: models.ItemTypeEffect}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("reusing a retired id err = %v", err)
	}
}

func TestListShopItemsOrdersByPrice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, in := range []CreateShopItemInput{
		{Name: "c", Type: models.ItemTypeTitle, Price: 30},
		{Name: "b", Type: models.ItemTypeTitle, Price: 10},
		{Name: "a", Type: models.ItemTypeTitle, Price: 30},
	} {
		if _, err := f.engine.Catalog.CreateShopItem(ctx, adminActor, in); err != nil {
			t.Fatalf("CreateShopItem: %v", err)
		}
	}
	items, err := f.engine.Catalog.ListShopItems(ctx, "")
	if err != nil {
		t.Fatalf("ListShopItems: %v", err)
	}
	var ids []string
	for _, it := range items {
		ids = append(ids, it.ID)
	}
	if len(ids) != 3 || ids[0] != "b" || ids[1] != "a" || ids[2] != "c" {
		t.Fatalf("order = %v", ids)
	}
}
