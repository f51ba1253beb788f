// Package registry implements the coordinate registry core: guild-scoped
// CRUD over the store, the name-uniqueness conflict protocol, and the
// disambiguation flow used when an operation matches more than one record.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"waypointd/internal/coordinate"
	"waypointd/internal/metrics"
	"waypointd/internal/session"
	"waypointd/internal/storage"
)

// Registry is the service façade consumed by the transport layer. It is
// stateless per call; the only in-process state is the session manager.
type Registry struct {
	store    storage.Store
	resolver *resolver
	sessions *session.Manager
	logger   *slog.Logger
}

func New(store storage.Store, scope Scope, sessions *session.Manager, logger *slog.Logger) *Registry {
	return &Registry{
		store:    store,
		resolver: &resolver{store: store, scope: scope},
		sessions: sessions,
		logger:   logger,
	}
}

// CreateRequest carries the caller-supplied fields of a new coordinate.
type CreateRequest struct {
	GuildID   string
	Name      string
	Position  coordinate.Position
	Dimension string
	Author    coordinate.Author
}

// Selection asks the user to pick one of several matching records. It is
// returned whenever an operation is ambiguous and must be answered through
// ResolveSelection (or CancelSelection) before the session expires.
type Selection struct {
	Token      uuid.UUID
	ExpiresAt  time.Time
	Candidates []coordinate.Record
}

// CreateResult is either a stored record or the set of records already
// holding the proposed name. A non-empty Conflict means nothing was
// inserted: the caller must decide between overwrite, rename, and cancel.
type CreateResult struct {
	Record   coordinate.Record
	Conflict []coordinate.Record
}

// Created reports whether the record was inserted.
func (r CreateResult) Created() bool { return len(r.Conflict) == 0 }

// UpdateResult is the outcome of a rename or overwrite: the updated record,
// or a Selection when the name matched several records.
type UpdateResult struct {
	Record    coordinate.Record
	Selection *Selection
}

// DeleteResult reports how many records a delete removed, or a Selection
// when the name matched several records.
type DeleteResult struct {
	Deleted   int64
	Selection *Selection
}

// Resolution is the outcome of the action deferred behind a selection.
type Resolution struct {
	Action  session.Action
	Record  coordinate.Record
	Deleted int64
}

// Create validates the request and gates it through the conflict resolver.
// A naming collision never inserts and never silently overwrites; the
// existing matches come back so the caller can decide.
func (g *Registry) Create(ctx context.Context, req CreateRequest) (CreateResult, error) {
	rec := coordinate.Record{
		GuildID:   req.GuildID,
		Name:      coordinate.CanonicalName(req.Name),
		Position:  req.Position,
		Dimension: strings.TrimSpace(req.Dimension),
		Author:    req.Author,
	}
	if err := coordinate.ValidateNew(rec); err != nil {
		metrics.Operation("create", "invalid")
		return CreateResult{}, err
	}

	verdict, matches, err := g.resolver.checkName(ctx, rec.GuildID, rec.Name, rec.Dimension)
	if err != nil {
		return CreateResult{}, err
	}
	if verdict != VerdictClear {
		g.logger.Info("create conflict",
			"guild_id", rec.GuildID, "name", rec.Name, "matches", len(matches))
		metrics.Operation("create", "conflict")
		return CreateResult{Conflict: matches}, nil
	}

	stored, err := g.store.Insert(ctx, rec)
	if err != nil {
		return CreateResult{}, fmt.Errorf("create coordinate: %w", err)
	}
	metrics.Operation("create", "created")
	return CreateResult{Record: stored}, nil
}

// Find returns every record in the guild with the given name. Legacy data
// may hold duplicates, so the result is a slice.
func (g *Registry) Find(ctx context.Context, guildID, name string) ([]coordinate.Record, error) {
	return g.store.FindByName(ctx, guildID, coordinate.CanonicalName(name))
}

// List returns all of a guild's records in a stable order (creation time,
// then ID) so the presentation layer can paginate them consistently.
func (g *Registry) List(ctx context.Context, guildID string) ([]coordinate.Record, error) {
	return g.store.ListByGuild(ctx, guildID)
}

// Rename changes a record's name, leaving ID, position, dimension, and
// creation time untouched. The new name must be free within the uniqueness
// scope. With several records under the old name, the caller gets a
// Selection instead.
func (g *Registry) Rename(ctx context.Context, guildID, userID, name, newName string) (UpdateResult, error) {
	name = coordinate.CanonicalName(name)
	newName = coordinate.CanonicalName(newName)
	if err := coordinate.ValidateName(newName); err != nil {
		metrics.Operation("rename", "invalid")
		return UpdateResult{}, err
	}

	matches, err := g.store.FindByName(ctx, guildID, name)
	if err != nil {
		return UpdateResult{}, err
	}

	switch len(matches) {
	case 0:
		metrics.Operation("rename", "not_found")
		return UpdateResult{}, storage.ErrNotFound
	case 1:
		target := matches[0]
		taken, err := g.resolver.nameTaken(ctx, guildID, newName, target.Dimension, target.ID)
		if err != nil {
			return UpdateResult{}, err
		}
		if taken {
			metrics.Operation("rename", "duplicate")
			return UpdateResult{}, ErrDuplicateName
		}
		updated, err := g.store.UpdateFields(ctx, guildID, target.ID, storage.FieldPatch{Name: &newName})
		if err != nil {
			return UpdateResult{}, fmt.Errorf("rename coordinate: %w", err)
		}
		metrics.Operation("rename", "ok")
		return UpdateResult{Record: updated}, nil
	default:
		sel := g.offer(session.Pending{
			GuildID:    guildID,
			UserID:     userID,
			Action:     session.ActionRename,
			Candidates: matches,
			Payload:    session.Payload{NewName: newName},
		})
		metrics.Operation("rename", "needs_selection")
		return UpdateResult{Selection: sel}, nil
	}
}

// Overwrite replaces a record's position and dimension in place, preserving
// its ID, name, and creation time.
func (g *Registry) Overwrite(ctx context.Context, guildID, userID, name string, pos coordinate.Position, dimension string) (UpdateResult, error) {
	name = coordinate.CanonicalName(name)
	dimension = strings.TrimSpace(dimension)
	if dimension == "" {
		metrics.Operation("overwrite", "invalid")
		return UpdateResult{}, fmt.Errorf("%w: dimension is empty", coordinate.ErrInvalid)
	}

	matches, err := g.store.FindByName(ctx, guildID, name)
	if err != nil {
		return UpdateResult{}, err
	}

	switch len(matches) {
	case 0:
		metrics.Operation("overwrite", "not_found")
		return UpdateResult{}, storage.ErrNotFound
	case 1:
		updated, err := g.applyOverwrite(ctx, guildID, matches[0], pos, dimension)
		if err != nil {
			return UpdateResult{}, err
		}
		metrics.Operation("overwrite", "ok")
		return UpdateResult{Record: updated}, nil
	default:
		sel := g.offer(session.Pending{
			GuildID:    guildID,
			UserID:     userID,
			Action:     session.ActionOverwrite,
			Candidates: matches,
			Payload:    session.Payload{NewPosition: &pos, NewDimension: &dimension},
		})
		metrics.Operation("overwrite", "needs_selection")
		return UpdateResult{Selection: sel}, nil
	}
}

// Delete removes the record with the given name, or asks for a selection
// when several records hold it so only the chosen one is removed.
func (g *Registry) Delete(ctx context.Context, guildID, userID, name string) (DeleteResult, error) {
	name = coordinate.CanonicalName(name)

	matches, err := g.store.FindByName(ctx, guildID, name)
	if err != nil {
		return DeleteResult{}, err
	}

	switch len(matches) {
	case 0:
		metrics.Operation("delete", "not_found")
		return DeleteResult{}, storage.ErrNotFound
	case 1:
		n, err := g.store.DeleteByName(ctx, guildID, name)
		if err != nil {
			return DeleteResult{}, fmt.Errorf("delete coordinate: %w", err)
		}
		metrics.Operation("delete", "ok")
		return DeleteResult{Deleted: n}, nil
	default:
		sel := g.offer(session.Pending{
			GuildID:    guildID,
			UserID:     userID,
			Action:     session.ActionDelete,
			Candidates: matches,
		})
		metrics.Operation("delete", "needs_selection")
		return DeleteResult{Selection: sel}, nil
	}
}

// ClearGuild removes every record belonging to the guild. The count is what
// the bulk delete reports; a concurrent insert may slip past it.
func (g *Registry) ClearGuild(ctx context.Context, guildID string) (int64, error) {
	n, err := g.store.DeleteGuild(ctx, guildID)
	if err != nil {
		return 0, fmt.Errorf("clear guild: %w", err)
	}
	g.logger.Info("cleared guild coordinates", "guild_id", guildID, "deleted", n)
	metrics.Operation("clear_guild", "ok")
	return n, nil
}

// ResolveSelection answers a pending selection with the chosen record and
// performs the deferred action. The token must belong to userID.
func (g *Registry) ResolveSelection(ctx context.Context, token uuid.UUID, userID string, chosenID uuid.UUID) (Resolution, error) {
	p, chosen, err := g.sessions.Select(token, userID, chosenID)
	if err != nil {
		return Resolution{}, err
	}

	switch p.Action {
	case session.ActionDelete:
		n, err := g.store.DeleteByID(ctx, p.GuildID, chosen.ID)
		if err != nil {
			return Resolution{}, fmt.Errorf("delete selected coordinate: %w", err)
		}
		metrics.Operation("delete", "ok")
		return Resolution{Action: p.Action, Record: chosen, Deleted: n}, nil

	case session.ActionOverwrite:
		updated, err := g.applyOverwrite(ctx, p.GuildID, chosen, *p.Payload.NewPosition, *p.Payload.NewDimension)
		if err != nil {
			return Resolution{}, err
		}
		metrics.Operation("overwrite", "ok")
		return Resolution{Action: p.Action, Record: updated}, nil

	case session.ActionRename:
		// The world may have changed while the question was pending, so the
		// new name is re-checked here.
		taken, err := g.resolver.nameTaken(ctx, p.GuildID, p.Payload.NewName, chosen.Dimension, chosen.ID)
		if err != nil {
			return Resolution{}, err
		}
		if taken {
			metrics.Operation("rename", "duplicate")
			return Resolution{}, ErrDuplicateName
		}
		updated, err := g.store.UpdateFields(ctx, p.GuildID, chosen.ID, storage.FieldPatch{Name: &p.Payload.NewName})
		if err != nil {
			return Resolution{}, fmt.Errorf("rename selected coordinate: %w", err)
		}
		metrics.Operation("rename", "ok")
		return Resolution{Action: p.Action, Record: updated}, nil

	default:
		return Resolution{}, fmt.Errorf("unknown pending action %q", p.Action)
	}
}

// CancelSelection discards a pending selection with no store mutation.
func (g *Registry) CancelSelection(token uuid.UUID, userID string) error {
	return g.sessions.Cancel(token, userID)
}

// applyOverwrite patches position and dimension. Under dimension-scoped
// uniqueness, moving a record into another dimension could collide with a
// same-named record already there; that collision is rejected.
func (g *Registry) applyOverwrite(ctx context.Context, guildID string, target coordinate.Record, pos coordinate.Position, dimension string) (coordinate.Record, error) {
	if dimension != target.Dimension {
		taken, err := g.resolver.nameTaken(ctx, guildID, target.Name, dimension, target.ID)
		if err != nil {
			return coordinate.Record{}, err
		}
		if taken {
			return coordinate.Record{}, ErrDuplicateName
		}
	}
	updated, err := g.store.UpdateFields(ctx, guildID, target.ID, storage.FieldPatch{
		Position:  &pos,
		Dimension: &dimension,
	})
	if err != nil {
		return coordinate.Record{}, fmt.Errorf("overwrite coordinate: %w", err)
	}
	return updated, nil
}

func (g *Registry) offer(p session.Pending) *Selection {
	offered := g.sessions.Offer(p)
	g.logger.Info("selection required",
		"guild_id", p.GuildID, "action", string(p.Action), "candidates", len(p.Candidates))
	return &Selection{
		Token:      offered.Token,
		ExpiresAt:  offered.ExpiresAt,
		Candidates: offered.Candidates,
	}
}
