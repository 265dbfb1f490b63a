package store

import (
	"context"
	"database/sql"
	"testing"

	"github.com/erazemk/omara/internal/model"
)

// newOwner creates a user and returns its id for scoping wardrobe records.
func newOwner(t *testing.T, database *sql.DB, email string) string {
	t.Helper()
	user, err := CreateUser(context.Background(), database, email, "", "hash", model.RoleUser)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return user.ID
}

func mustCreateOutfit(t *testing.T, database *sql.DB, ownerID string, in OutfitInput) *model.Outfit {
	t.Helper()
	o, err := CreateOutfit(context.Background(), database, ownerID, in)
	if err != nil {
		t.Fatalf("CreateOutfit(%q): %v", in.Name, err)
	}
	return o
}

func collectionOf(t *testing.T, database *sql.DB, ownerID, outfitID string) string {
	t.Helper()
	o, err := GetOutfit(context.Background(), database, ownerID, outfitID)
	if err != nil || o == nil {
		t.Fatalf("GetOutfit(%s): %v", outfitID, err)
	}
	return o.CollectionName
}
