package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/erazemk/omara/internal/model"
)

// RenameCollection moves every outfit in oldName to newName in one
// transaction. Renaming to the same name is a no-op; renaming an empty
// collection is an informational no-op.
func RenameCollection(ctx context.Context, db *sql.DB, ownerID, oldName, newName string) (*MutationResult, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}

	oldName = strings.TrimSpace(oldName)
	newName = strings.TrimSpace(newName)

	if model.IsReservedCollection(oldName) {
		return nil, ErrReservedName
	}
	if newName == "" {
		return nil, ErrNameRequired
	}
	if newName == oldName {
		return &MutationResult{NoOp: true, Message: "name unchanged"}, nil
	}
	if model.IsReservedCollection(newName) {
		return nil, ErrReservedName
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	exists, err := countInCollection(ctx, tx, ownerID, newName)
	if err != nil {
		return nil, err
	}
	if exists > 0 {
		return nil, ErrCollectionExists
	}

	count, err := countInCollection(ctx, tx, ownerID, oldName)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return &MutationResult{NoOp: true, Message: fmt.Sprintf("collection %q has no outfits", oldName)}, nil
	}

	n, err := reassign(ctx, tx, ownerID, oldName, newName)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing rename: %w", err)
	}
	return &MutationResult{Updated: n, Message: fmt.Sprintf("renamed %q to %q", oldName, newName)}, nil
}

// DeleteCollection moves every outfit in name back to the default collection.
// Outfits are never deleted.
func DeleteCollection(ctx context.Context, db *sql.DB, ownerID, name string) (*MutationResult, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNameRequired
	}
	if model.IsReservedCollection(name) {
		return nil, ErrReservedName
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	count, err := countInCollection(ctx, tx, ownerID, name)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return &MutationResult{NoOp: true, Message: fmt.Sprintf("collection %q has no outfits", name)}, nil
	}

	n, err := reassign(ctx, tx, ownerID, name, model.DefaultCollection)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing collection deletion: %w", err)
	}
	return &MutationResult{Updated: n, Message: fmt.Sprintf("moved %d outfits to %s", n, model.DefaultCollection)}, nil
}

// CreateCollectionAndAssign creates a collection by moving the selected
// outfits into it. Either every selected outfit moves or none does.
func CreateCollectionAndAssign(ctx context.Context, db *sql.DB, ownerID, name string, outfitIDs []string) (*MutationResult, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNameRequired
	}
	if model.IsReservedCollection(name) {
		return nil, ErrReservedName
	}
	outfitIDs = uniqueIDs(outfitIDs)
	if len(outfitIDs) == 0 {
		return nil, ErrSelectionRequired
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	exists, err := countInCollection(ctx, tx, ownerID, name)
	if err != nil {
		return nil, err
	}
	if exists > 0 {
		return nil, ErrCollectionExists
	}

	now := time.Now().UTC()
	for _, id := range outfitIDs {
		result, err := tx.ExecContext(ctx,
			`UPDATE outfits SET collection_name = ?, updated_at = ? WHERE id = ? AND owner_id = ?`,
			name, now, id, ownerID,
		)
		if err != nil {
			return nil, fmt.Errorf("assigning outfit to collection: %w", err)
		}
		if err := expectAffected(result); err != nil {
			return nil, fmt.Errorf("outfit %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing collection creation: %w", err)
	}
	return &MutationResult{Updated: len(outfitIDs), Message: fmt.Sprintf("created collection %q", name)}, nil
}

func countInCollection(ctx context.Context, tx *sql.Tx, ownerID, name string) (int, error) {
	var count int
	err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM outfits WHERE owner_id = ? AND collection_name = ?`, ownerID, name,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting outfits in collection: %w", err)
	}
	return count, nil
}

func reassign(ctx context.Context, tx *sql.Tx, ownerID, from, to string) (int, error) {
	result, err := tx.ExecContext(ctx,
		`UPDATE outfits SET collection_name = ?, updated_at = ? WHERE owner_id = ? AND collection_name = ?`,
		to, time.Now().UTC(), ownerID, from,
	)
	if err != nil {
		return 0, fmt.Errorf("reassigning outfits: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking reassigned outfits: %w", err)
	}
	return int(n), nil
}
