package registry

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"waypointd/internal/coordinate"
	"waypointd/internal/storage"
)

// Scope is the uniqueness policy for coordinate names. The default scopes a
// name to its guild; deployments that want the same name reusable across
// dimensions select ScopeGuildDimension instead.
type Scope int

const (
	ScopeGuild Scope = iota
	ScopeGuildDimension
)

// ParseScope maps the UNIQUENESS_SCOPE config value to a Scope.
func ParseScope(s string) (Scope, error) {
	switch s {
	case "", "guild":
		return ScopeGuild, nil
	case "guild-dimension":
		return ScopeGuildDimension, nil
	default:
		return ScopeGuild, fmt.Errorf("unknown uniqueness scope %q", s)
	}
}

// Verdict is the conflict resolver's answer for a proposed name.
type Verdict int

const (
	// VerdictClear means no record holds the name; an insert may proceed.
	VerdictClear Verdict = iota
	// VerdictConflict means exactly one record holds the name; the caller
	// must choose to overwrite it, pick another name, or cancel.
	VerdictConflict
	// VerdictAmbiguous means several records hold the name (legacy data from
	// before uniqueness was enforced); "the" existing record is not
	// well-defined, so a selection is required before anything else.
	VerdictAmbiguous
)

// resolver gates every create and rename against the uniqueness policy.
type resolver struct {
	store storage.Store
	scope Scope
}

// checkName reports the verdict for a canonical name plus whichever records
// currently hold it within the scope. dimension is only consulted under
// ScopeGuildDimension.
func (r *resolver) checkName(ctx context.Context, guildID, name, dimension string) (Verdict, []coordinate.Record, error) {
	matches, err := r.store.FindByName(ctx, guildID, name)
	if err != nil {
		return VerdictClear, nil, fmt.Errorf("uniqueness check: %w", err)
	}
	if r.scope == ScopeGuildDimension {
		matches = filterDimension(matches, dimension)
	}

	switch len(matches) {
	case 0:
		return VerdictClear, nil, nil
	case 1:
		return VerdictConflict, matches, nil
	default:
		return VerdictAmbiguous, matches, nil
	}
}

// nameTaken reports whether newName is already held by a record other than
// the one identified by exclude. Used by rename, which must not collide with
// a third record but may keep its own name.
func (r *resolver) nameTaken(ctx context.Context, guildID, newName, dimension string, exclude uuid.UUID) (bool, error) {
	matches, err := r.store.FindByName(ctx, guildID, newName)
	if err != nil {
		return false, fmt.Errorf("uniqueness check: %w", err)
	}
	if r.scope == ScopeGuildDimension {
		matches = filterDimension(matches, dimension)
	}
	for _, m := range matches {
		if m.ID != exclude {
			return true, nil
		}
	}
	return false, nil
}

func filterDimension(recs []coordinate.Record, dimension string) []coordinate.Record {
	out := recs[:0]
	for _, rec := range recs {
		if rec.Dimension == dimension {
			out = append(out, rec)
		}
	}
	return out
}
