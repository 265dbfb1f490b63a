package model

import (
	"strings"
	"time"
)

// Reserved collection names.
const (
	// DefaultCollection holds outfits without an explicit collection.
	DefaultCollection = "General"
	// FavoritesCollection names the synthetic group of favorited outfits.
	// It is never stored as a real collection name.
	FavoritesCollection = "Favoritos"
)

// Outfit groups clothing items under a name. ItemIDs may reference items
// that no longer exist.
type Outfit struct {
	ID             string    `json:"id"`
	OwnerID        string    `json:"owner_id"`
	Name           string    `json:"name"`
	ItemIDs        []string  `json:"item_ids"`
	CollectionName string    `json:"collection_name"`
	IsFavorite     bool      `json:"is_favorite"`
	Description    string    `json:"description,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Collection returns the outfit's collection, falling back to the default.
func (o *Outfit) Collection() string {
	return CollectionOrDefault(o.CollectionName)
}

// CollectionOrDefault trims name and maps an empty name, or any casing of
// the default name, to DefaultCollection.
func CollectionOrDefault(name string) string {
	name = strings.TrimSpace(name)
	if name == "" || strings.EqualFold(name, DefaultCollection) {
		return DefaultCollection
	}
	return name
}

// IsReservedCollection reports whether name is one of the reserved names,
// ignoring case.
func IsReservedCollection(name string) bool {
	return strings.EqualFold(name, DefaultCollection) || IsFavoritesCollection(name)
}

// IsFavoritesCollection reports whether name is the favorites name in any
// casing.
func IsFavoritesCollection(name string) bool {
	return strings.EqualFold(name, FavoritesCollection)
}
