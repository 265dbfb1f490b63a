package store

import (
	"errors"
	"strings"
)

// ErrNotAuthenticated is returned when an operation is attempted without an
// owner id. Nothing is read or written.
var ErrNotAuthenticated = errors.New("not authenticated")

// ErrNotFound is returned by mutations when the target record does not exist
// or belongs to another owner.
var ErrNotFound = errors.New("not found")

// ValidationError rejects input before any write happens.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// Validation failures shared by the outfit and collection operations.
var (
	ErrNameRequired       = &ValidationError{Field: "name", Message: "name required"}
	ErrReservedName       = &ValidationError{Field: "name", Message: "reserved name"}
	ErrCollectionExists   = &ValidationError{Field: "name", Message: "collection already exists"}
	ErrSelectionRequired  = &ValidationError{Field: "outfit_ids", Message: "selection required"}
	ErrReservedCollection = &ValidationError{Field: "collection_name", Message: "reserved name"}
)

func requireOwner(ownerID string) error {
	if strings.TrimSpace(ownerID) == "" {
		return ErrNotAuthenticated
	}
	return nil
}

// MutationResult describes the outcome of a collection mutation. NoOp marks
// an informational success that wrote nothing.
type MutationResult struct {
	Updated int    `json:"updated"`
	NoOp    bool   `json:"no_op"`
	Message string `json:"message"`
}
