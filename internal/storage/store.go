package storage

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"waypointd/internal/coordinate"
)

// ErrNotFound is returned when a record lookup finds no matching document.
var ErrNotFound = errors.New("coordinate not found")

// FieldPatch names the mutable fields of a record. Nil fields are left
// unchanged. UpdateFields applies a patch verbatim: name uniqueness has
// already been cleared by the caller, so the store never re-checks it.
type FieldPatch struct {
	Name      *string
	Position  *coordinate.Position
	Dimension *string
}

// Empty reports whether the patch would change nothing.
func (p FieldPatch) Empty() bool {
	return p.Name == nil && p.Position == nil && p.Dimension == nil
}

// Store is the persistence interface for coordinate records. Every operation
// is scoped to one guild; implementations guarantee atomicity per document
// only, never across documents.
type Store interface {
	// Insert persists a new record, assigning ID and CreatedAt.
	Insert(ctx context.Context, rec coordinate.Record) (coordinate.Record, error)

	// FindByName returns every record in the guild whose name matches
	// exactly. Duplicate names can exist as legacy data, so this returns a
	// slice rather than a single record.
	FindByName(ctx context.Context, guildID, name string) ([]coordinate.Record, error)

	// FindByID returns the record with the given ID, or ErrNotFound.
	FindByID(ctx context.Context, guildID string, id uuid.UUID) (coordinate.Record, error)

	// ListByGuild returns all records for a guild ordered by CreatedAt
	// ascending, ties broken by ID. The order is stable across calls so an
	// external consumer can slice it into pages.
	ListByGuild(ctx context.Context, guildID string) ([]coordinate.Record, error)

	// UpdateFields applies a partial update and returns the updated record,
	// or ErrNotFound.
	UpdateFields(ctx context.Context, guildID string, id uuid.UUID, patch FieldPatch) (coordinate.Record, error)

	// DeleteByName removes every record in the guild with the given name and
	// reports how many were removed.
	DeleteByName(ctx context.Context, guildID, name string) (int64, error)

	// DeleteByID removes a single record.
	DeleteByID(ctx context.Context, guildID string, id uuid.UUID) (int64, error)

	// DeleteGuild removes all of a guild's records. The count is a
	// best-effort snapshot; concurrent inserts may make it inexact.
	DeleteGuild(ctx context.Context, guildID string) (int64, error)
}
