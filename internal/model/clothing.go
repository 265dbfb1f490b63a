package model

import "time"

// ClothingItem is a single garment in a user's wardrobe.
type ClothingItem struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	Color     string    `json:"color"`
	Season    string    `json:"season"`
	Fabric    string    `json:"fabric"`
	ImageURL  string    `json:"image_url"`
	ImageMime string    `json:"image_mime,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PlaceholderImageURL is shown for items without an uploaded photo.
const PlaceholderImageURL = "https://placehold.co/600x800.png?text=Omara"

// HasPhoto reports whether the item has an uploaded photo stored inline.
func (c *ClothingItem) HasPhoto() bool {
	return c.ImageMime != ""
}

// Values offered by the wardrobe forms. They are suggestions, not a closed
// set: autocompleted attributes are free text.
var (
	ClothingTypes = []string{
		"Top", "Shirt", "T-Shirt", "Sweater", "Jacket", "Coat", "Pants",
		"Jeans", "Shorts", "Skirt", "Dress", "Shoes", "Accessory",
	}
	ClothingSeasons = []string{"Spring", "Summer", "Autumn", "Winter", "All Season"}
	ClothingFabrics = []string{
		"Cotton", "Wool", "Linen", "Silk", "Denim", "Leather", "Polyester", "Other",
	}
)

// ClothingFilter narrows a wardrobe listing. Empty fields match everything.
type ClothingFilter struct {
	Type   string
	Season string
	Fabric string
	Query  string
}
