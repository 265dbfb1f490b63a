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

// OutfitInput holds the editable fields of an outfit.
type OutfitInput struct {
	Name           string
	ItemIDs        []string
	CollectionName string
	Description    string
	// IsFavorite is only honoured on create; use ToggleFavorite afterwards.
	IsFavorite bool
}

func (in *OutfitInput) normalize() error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return ErrNameRequired
	}
	in.CollectionName = model.CollectionOrDefault(in.CollectionName)
	if model.IsFavoritesCollection(in.CollectionName) {
		return ErrReservedCollection
	}
	in.Description = strings.TrimSpace(in.Description)
	in.ItemIDs = uniqueIDs(in.ItemIDs)
	return nil
}

const outfitColumns = `id, owner_id, name, collection_name, is_favorite, description, created_at, updated_at`

// CreateOutfit creates an outfit and its item memberships in one transaction.
func CreateOutfit(ctx context.Context, db *sql.DB, ownerID string, in OutfitInput) (*model.Outfit, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	if err := in.normalize(); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	now := time.Now().UTC()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO outfits (id, owner_id, name, collection_name, is_favorite, description, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, ownerID, in.Name, in.CollectionName, in.IsFavorite, in.Description, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("creating outfit: %w", err)
	}

	if err := insertOutfitItems(ctx, tx, id, in.ItemIDs); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing outfit: %w", err)
	}

	return GetOutfit(ctx, db, ownerID, id)
}

// GetOutfit returns one of the owner's outfits, or nil if there is none.
func GetOutfit(ctx context.Context, db *sql.DB, ownerID, id string) (*model.Outfit, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}

	o, err := scanOutfit(db.QueryRowContext(ctx,
		`SELECT `+outfitColumns+` FROM outfits WHERE id = ? AND owner_id = ?`, id, ownerID,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting outfit: %w", err)
	}

	rows, err := db.QueryContext(ctx,
		`SELECT item_id FROM outfit_items WHERE outfit_id = ? ORDER BY position`, id,
	)
	if err != nil {
		return nil, fmt.Errorf("getting outfit items: %w", err)
	}
	defer rows.Close()

	o.ItemIDs = []string{}
	for rows.Next() {
		var itemID string
		if err := rows.Scan(&itemID); err != nil {
			return nil, fmt.Errorf("scanning outfit item: %w", err)
		}
		o.ItemIDs = append(o.ItemIDs, itemID)
	}
	return o, rows.Err()
}

// ListOutfits returns all of the owner's outfits, newest first.
func ListOutfits(ctx context.Context, db *sql.DB, ownerID string) ([]model.Outfit, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}

	outfits, err := queryOutfits(ctx, db, ownerID)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx,
		`SELECT oi.outfit_id, oi.item_id
		 FROM outfit_items oi
		 JOIN outfits o ON o.id = oi.outfit_id
		 WHERE o.owner_id = ?
		 ORDER BY oi.outfit_id, oi.position`, ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing outfit items: %w", err)
	}
	defer rows.Close()

	byOutfit := make(map[string][]string)
	for rows.Next() {
		var outfitID, itemID string
		if err := rows.Scan(&outfitID, &itemID); err != nil {
			return nil, fmt.Errorf("scanning outfit item: %w", err)
		}
		byOutfit[outfitID] = append(byOutfit[outfitID], itemID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range outfits {
		if ids, ok := byOutfit[outfits[i].ID]; ok {
			outfits[i].ItemIDs = ids
		}
	}
	return outfits, nil
}

func queryOutfits(ctx context.Context, db *sql.DB, ownerID string) ([]model.Outfit, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+outfitColumns+` FROM outfits WHERE owner_id = ? ORDER BY created_at DESC, rowid DESC`, ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing outfits: %w", err)
	}
	defer rows.Close()

	var outfits []model.Outfit
	for rows.Next() {
		o, err := scanOutfit(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning outfit: %w", err)
		}
		o.ItemIDs = []string{}
		outfits = append(outfits, *o)
	}
	return outfits, rows.Err()
}

// UpdateOutfit replaces an outfit's name, items, collection and description.
// The favorite flag is left alone.
func UpdateOutfit(ctx context.Context, db *sql.DB, ownerID, id string, in OutfitInput) error {
	if err := requireOwner(ownerID); err != nil {
		return err
	}
	if err := in.normalize(); err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE outfits SET name = ?, collection_name = ?, description = ?, updated_at = ?
		 WHERE id = ? AND owner_id = ?`,
		in.Name, in.CollectionName, in.Description, time.Now().UTC(), id, ownerID,
	)
	if err != nil {
		return fmt.Errorf("updating outfit: %w", err)
	}
	if err := expectAffected(result); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM outfit_items WHERE outfit_id = ?`, id); err != nil {
		return fmt.Errorf("clearing outfit items: %w", err)
	}
	if err := insertOutfitItems(ctx, tx, id, in.ItemIDs); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing outfit update: %w", err)
	}
	return nil
}

// ToggleFavorite flips an outfit's favorite flag and returns the result.
// The collection is not touched.
func ToggleFavorite(ctx context.Context, db *sql.DB, ownerID, id string) (*model.Outfit, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}

	result, err := db.ExecContext(ctx,
		`UPDATE outfits SET is_favorite = NOT is_favorite, updated_at = ?
		 WHERE id = ? AND owner_id = ?`,
		time.Now().UTC(), id, ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("toggling favorite: %w", err)
	}
	if err := expectAffected(result); err != nil {
		return nil, err
	}

	return GetOutfit(ctx, db, ownerID, id)
}

// DeleteOutfit removes an outfit. Referenced clothing items are not touched.
func DeleteOutfit(ctx context.Context, db *sql.DB, ownerID, id string) error {
	if err := requireOwner(ownerID); err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`DELETE FROM outfits WHERE id = ? AND owner_id = ?`, id, ownerID,
	)
	if err != nil {
		return fmt.Errorf("deleting outfit: %w", err)
	}
	if err := expectAffected(result); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM outfit_items WHERE outfit_id = ?`, id); err != nil {
		return fmt.Errorf("deleting outfit items: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing outfit deletion: %w", err)
	}
	return nil
}

func insertOutfitItems(ctx context.Context, tx *sql.Tx, outfitID string, itemIDs []string) error {
	for i, itemID := range itemIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO outfit_items (outfit_id, item_id, position) VALUES (?, ?, ?)`,
			outfitID, itemID, i,
		); err != nil {
			return fmt.Errorf("adding item to outfit: %w", err)
		}
	}
	return nil
}

func scanOutfit(row rowScanner) (*model.Outfit, error) {
	o := &model.Outfit{}
	if err := row.Scan(&o.ID, &o.OwnerID, &o.Name, &o.CollectionName, &o.IsFavorite, &o.Description,
		&o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	return o, nil
}

// uniqueIDs trims ids, drops blanks and keeps the first occurrence of each.
func uniqueIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
