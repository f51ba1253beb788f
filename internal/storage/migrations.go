package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// RunMigrations creates the coordinates table and its lookup indexes.
//
// The (guild_id, name) index is deliberately non-unique: duplicate names can
// predate uniqueness enforcement, and lookups must still see them so the
// disambiguation flow can clean them up. Uniqueness is enforced by the
// conflict resolver, not the schema.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	ddl := `
		CREATE TABLE IF NOT EXISTS coordinates (
			id                UUID PRIMARY KEY,
			guild_id          TEXT NOT NULL,
			name              TEXT NOT NULL,
			x                 BIGINT NOT NULL,
			y                 BIGINT NOT NULL,
			z                 BIGINT NOT NULL,
			dimension         TEXT NOT NULL,
			author_id         TEXT NOT NULL,
			author_name       TEXT NOT NULL,
			author_avatar_url TEXT NOT NULL DEFAULT '',
			created_at        TIMESTAMPTZ NOT NULL DEFAULT now()
		);

		CREATE INDEX IF NOT EXISTS idx_coordinates_guild_name
			ON coordinates (guild_id, name);

		CREATE INDEX IF NOT EXISTS idx_coordinates_guild_order
			ON coordinates (guild_id, created_at, id);
	`

	if _, err := pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("migrate coordinates: %w", err)
	}
	return nil
}
