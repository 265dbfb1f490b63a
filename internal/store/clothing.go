package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/erazemk/omara/internal/model"
)

// ClothingInput holds the editable fields of a clothing item.
type ClothingInput struct {
	Name     string
	Type     string
	Color    string
	Season   string
	Fabric   string
	ImageURL string

	// Image, when set, is stored inline and takes precedence over ImageURL.
	Image     []byte
	ImageMime string
}

func (in *ClothingInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return ErrNameRequired
	}
	if len(in.Image) > 0 && in.ImageMime == "" {
		return &ValidationError{Field: "image", Message: "image media type required"}
	}
	return nil
}

const clothingColumns = `id, owner_id, name, type, color, season, fabric, image_mime, image_url, created_at, updated_at`

// CreateClothingItem adds an item to the owner's wardrobe.
func CreateClothingItem(ctx context.Context, db *sql.DB, ownerID string, in ClothingInput) (*model.ClothingItem, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	now := time.Now().UTC()

	var image any
	var mime any
	if len(in.Image) > 0 {
		image, mime = in.Image, in.ImageMime
	}

	_, err := db.ExecContext(ctx,
		`INSERT INTO clothing_items (id, owner_id, name, type, color, season, fabric, image, image_mime, image_url, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, ownerID, strings.TrimSpace(in.Name), in.Type, in.Color, in.Season, in.Fabric,
		image, mime, in.ImageURL, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("creating clothing item: %w", err)
	}

	return GetClothingItem(ctx, db, ownerID, id)
}

// GetClothingItem returns one of the owner's items, or nil if there is none.
func GetClothingItem(ctx context.Context, db *sql.DB, ownerID, id string) (*model.ClothingItem, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}

	item, err := scanClothing(db.QueryRowContext(ctx,
		`SELECT `+clothingColumns+` FROM clothing_items WHERE id = ? AND owner_id = ?`, id, ownerID,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting clothing item: %w", err)
	}
	return item, nil
}

// ListClothing returns the owner's items, newest first, narrowed by filter.
func ListClothing(ctx context.Context, db *sql.DB, ownerID string, filter model.ClothingFilter) ([]model.ClothingItem, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}

	query := `SELECT ` + clothingColumns + ` FROM clothing_items WHERE owner_id = ?`
	args := []any{ownerID}

	if filter.Type != "" {
		query += ` AND type = ? COLLATE NOCASE`
		args = append(args, filter.Type)
	}
	if filter.Season != "" {
		query += ` AND season = ? COLLATE NOCASE`
		args = append(args, filter.Season)
	}
	if filter.Fabric != "" {
		query += ` AND fabric = ? COLLATE NOCASE`
		args = append(args, filter.Fabric)
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		query += ` AND (name LIKE ? ESCAPE '\' OR color LIKE ? ESCAPE '\')`
		pattern := "%" + escapeLike(q) + "%"
		args = append(args, pattern, pattern)
	}

	query += ` ORDER BY created_at DESC, rowid DESC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing clothing: %w", err)
	}
	defer rows.Close()

	var items []model.ClothingItem
	for rows.Next() {
		item, err := scanClothing(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning clothing item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// UpdateClothingItem replaces an item's metadata. The stored photo is only
// replaced when in.Image is set; both writes commit together.
func UpdateClothingItem(ctx context.Context, db *sql.DB, ownerID, id string, in ClothingInput) error {
	if err := requireOwner(ownerID); err != nil {
		return err
	}
	if err := in.validate(); err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE clothing_items SET name = ?, type = ?, color = ?, season = ?, fabric = ?, image_url = ?, updated_at = ?
		 WHERE id = ? AND owner_id = ?`,
		strings.TrimSpace(in.Name), in.Type, in.Color, in.Season, in.Fabric, in.ImageURL, time.Now().UTC(),
		id, ownerID,
	)
	if err != nil {
		return fmt.Errorf("updating clothing item: %w", err)
	}
	if err := expectAffected(result); err != nil {
		return err
	}

	if len(in.Image) > 0 {
		if err := setClothingImage(ctx, tx, ownerID, id, in.Image, in.ImageMime); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing clothing update: %w", err)
	}
	return nil
}

// DeleteClothingItem removes an item. Outfits that reference it keep the id.
func DeleteClothingItem(ctx context.Context, db *sql.DB, ownerID, id string) error {
	if err := requireOwner(ownerID); err != nil {
		return err
	}

	result, err := db.ExecContext(ctx,
		`DELETE FROM clothing_items WHERE id = ? AND owner_id = ?`, id, ownerID,
	)
	if err != nil {
		return fmt.Errorf("deleting clothing item: %w", err)
	}
	return expectAffected(result)
}

// SetClothingImage stores an item's photo inline.
func SetClothingImage(ctx context.Context, db *sql.DB, ownerID, id string, image []byte, mime string) error {
	if err := requireOwner(ownerID); err != nil {
		return err
	}
	return setClothingImage(ctx, db, ownerID, id, image, mime)
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func setClothingImage(ctx context.Context, ex execer, ownerID, id string, image []byte, mime string) error {
	result, err := ex.ExecContext(ctx,
		`UPDATE clothing_items SET image = ?, image_mime = ?, updated_at = ?
		 WHERE id = ? AND owner_id = ?`,
		image, mime, time.Now().UTC(), id, ownerID,
	)
	if err != nil {
		return fmt.Errorf("setting clothing image: %w", err)
	}
	return expectAffected(result)
}

// GetClothingImage returns an item's photo and MIME type. data is nil when
// the item has no stored photo.
func GetClothingImage(ctx context.Context, db *sql.DB, ownerID, id string) ([]byte, string, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, "", err
	}

	var image []byte
	var mime sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT image, image_mime FROM clothing_items WHERE id = ? AND owner_id = ?`, id, ownerID,
	).Scan(&image, &mime)
	if err == sql.ErrNoRows {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting clothing image: %w", err)
	}
	return image, mime.String, nil
}

func scanClothing(row rowScanner) (*model.ClothingItem, error) {
	item := &model.ClothingItem{}
	var mime sql.NullString
	var imageURL string
	if err := row.Scan(&item.ID, &item.OwnerID, &item.Name, &item.Type, &item.Color, &item.Season, &item.Fabric,
		&mime, &imageURL, &item.CreatedAt, &item.UpdatedAt); err != nil {
		return nil, err
	}

	item.ImageMime = mime.String
	switch {
	case item.HasPhoto():
		item.ImageURL = "/api/clothing/" + item.ID + "/image"
	case imageURL != "":
		item.ImageURL = imageURL
	default:
		item.ImageURL = model.PlaceholderImageURL
	}
	return item, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
