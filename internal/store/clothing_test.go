package store

import (
	"context"
	"errors"
	"testing"

	"github.com/erazemk/omara/internal/db"
	"github.com/erazemk/omara/internal/model"
)

func TestCreateAndGetClothingItem(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	owner := newOwner(t, database, "a@example.com")

	item, err := CreateClothingItem(ctx, database, owner, ClothingInput{
		Name: "  Blue shirt ", Type: "Shirt", Color: "blue", Season: "Summer", Fabric: "Linen",
	})
	if err != nil {
		t.Fatalf("CreateClothingItem: %v", err)
	}
	if item.Name != "Blue shirt" {
		t.Errorf("expected trimmed name, got %q", item.Name)
	}
	if item.OwnerID != owner {
		t.Errorf("expected owner %q, got %q", owner, item.OwnerID)
	}
	if item.ImageURL != model.PlaceholderImageURL {
		t.Errorf("expected placeholder image, got %q", item.ImageURL)
	}

	other := newOwner(t, database, "b@example.com")
	got, err := GetClothingItem(ctx, database, other, item.ID)
	if err != nil {
		t.Fatalf("GetClothingItem: %v", err)
	}
	if got != nil {
		t.Error("expected another owner not to see the item")
	}
}

func TestClothingRequiresOwner(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	_, err := CreateClothingItem(ctx, database, "", ClothingInput{Name: "Shirt"})
	if !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("expected ErrNotAuthenticated, got %v", err)
	}
	if _, err := ListClothing(ctx, database, " ", model.ClothingFilter{}); !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("expected ErrNotAuthenticated, got %v", err)
	}
}

func TestClothingNameRequired(t *testing.T) {
	database := db.NewTestDB(t)
	owner := newOwner(t, database, "a@example.com")

	_, err := CreateClothingItem(context.Background(), database, owner, ClothingInput{Name: "  "})
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Field != "name" {
		t.Errorf("expected name validation error, got %v", err)
	}
}

func TestListClothingNewestFirstAndFiltered(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	owner := newOwner(t, database, "a@example.com")

	CreateClothingItem(ctx, database, owner, ClothingInput{Name: "Wool coat", Type: "Coat", Season: "Winter", Fabric: "Wool", Color: "grey"})
	CreateClothingItem(ctx, database, owner, ClothingInput{Name: "Linen shirt", Type: "Shirt", Season: "Summer", Fabric: "Linen", Color: "white"})
	CreateClothingItem(ctx, database, owner, ClothingInput{Name: "Denim jacket", Type: "Jacket", Season: "Spring", Fabric: "Denim", Color: "blue"})

	all, err := ListClothing(ctx, database, owner, model.ClothingFilter{})
	if err != nil {
		t.Fatalf("ListClothing: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 items, got %d", len(all))
	}
	if all[0].Name != "Denim jacket" || all[2].Name != "Wool coat" {
		t.Errorf("expected newest first, got %q ... %q", all[0].Name, all[2].Name)
	}

	winter, _ := ListClothing(ctx, database, owner, model.ClothingFilter{Season: "winter"})
	if len(winter) != 1 || winter[0].Name != "Wool coat" {
		t.Errorf("expected only the coat for winter, got %v", winter)
	}

	blue, _ := ListClothing(ctx, database, owner, model.ClothingFilter{Query: "BLUE"})
	if len(blue) != 1 || blue[0].Name != "Denim jacket" {
		t.Errorf("expected the jacket for 'blue', got %v", blue)
	}

	literal, _ := ListClothing(ctx, database, owner, model.ClothingFilter{Query: "%"})
	if len(literal) != 0 {
		t.Errorf("expected %% to be matched literally, got %d items", len(literal))
	}

	other := newOwner(t, database, "b@example.com")
	none, _ := ListClothing(ctx, database, other, model.ClothingFilter{})
	if len(none) != 0 {
		t.Errorf("expected other owner to see no items, got %d", len(none))
	}
}

func TestUpdateAndDeleteClothingItem(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	owner := newOwner(t, database, "a@example.com")
	other := newOwner(t, database, "b@example.com")

	item, _ := CreateClothingItem(ctx, database, owner, ClothingInput{Name: "Shirt"})

	err := UpdateClothingItem(ctx, database, other, item.ID, ClothingInput{Name: "Stolen"})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound updating another owner's item, got %v", err)
	}

	err = UpdateClothingItem(ctx, database, owner, item.ID, ClothingInput{Name: "Red shirt", Color: "red"})
	if err != nil {
		t.Fatalf("UpdateClothingItem: %v", err)
	}
	got, _ := GetClothingItem(ctx, database, owner, item.ID)
	if got.Name != "Red shirt" || got.Color != "red" {
		t.Errorf("update not applied: %+v", got)
	}

	if err := DeleteClothingItem(ctx, database, owner, item.ID); err != nil {
		t.Fatalf("DeleteClothingItem: %v", err)
	}
	if err := DeleteClothingItem(ctx, database, owner, item.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestClothingImage(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	owner := newOwner(t, database, "a@example.com")

	item, _ := CreateClothingItem(ctx, database, owner, ClothingInput{
		Name: "Photo item", Image: []byte("fake image data"), ImageMime: "image/jpeg",
	})
	if item.ImageURL != "/api/clothing/"+item.ID+"/image" {
		t.Errorf("expected inline image url, got %q", item.ImageURL)
	}

	data, mime, err := GetClothingImage(ctx, database, owner, item.ID)
	if err != nil {
		t.Fatalf("GetClothingImage: %v", err)
	}
	if string(data) != "fake image data" || mime != "image/jpeg" {
		t.Errorf("unexpected image %q (%s)", data, mime)
	}

	SetClothingImage(ctx, database, owner, item.ID, []byte("png"), "image/png")
	data, mime, _ = GetClothingImage(ctx, database, owner, item.ID)
	if string(data) != "png" || mime != "image/png" {
		t.Errorf("image not replaced: %q (%s)", data, mime)
	}
}

func TestUpdateClothingItemIsAtomic(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	owner := newOwner(t, database, "a@example.com")

	item, _ := CreateClothingItem(ctx, database, owner, ClothingInput{Name: "Old", Color: "grey"})

	_, err := database.Exec(`CREATE TRIGGER fail_image_write BEFORE UPDATE OF image ON clothing_items
		BEGIN SELECT RAISE(ABORT, 'disk full'); END`)
	if err != nil {
		t.Fatalf("creating trigger: %v", err)
	}

	err = UpdateClothingItem(ctx, database, owner, item.ID, ClothingInput{
		Name: "New", Color: "red", Image: []byte("jpeg"), ImageMime: "image/jpeg",
	})
	if err == nil {
		t.Fatal("expected the failed image write to fail the update")
	}

	got, _ := GetClothingItem(ctx, database, owner, item.ID)
	if got.Name != "Old" || got.Color != "grey" || got.HasPhoto() {
		t.Errorf("expected the item unchanged after a failed update, got %+v", got)
	}
}

func TestDeletingClothingKeepsOutfitReferences(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	owner := newOwner(t, database, "a@example.com")

	item, _ := CreateClothingItem(ctx, database, owner, ClothingInput{Name: "Shirt"})
	outfit := mustCreateOutfit(t, database, owner, OutfitInput{Name: "Office", ItemIDs: []string{item.ID}})

	DeleteClothingItem(ctx, database, owner, item.ID)

	got, _ := GetOutfit(ctx, database, owner, outfit.ID)
	if len(got.ItemIDs) != 1 || got.ItemIDs[0] != item.ID {
		t.Errorf("expected outfit to keep the dangling id, got %v", got.ItemIDs)
	}
}
