package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"waypointd/internal/coordinate"
)

const recordColumns = "id, guild_id, name, x, y, z, dimension, author_id, author_name, author_avatar_url, created_at"

// PostgresStore implements Store on a single coordinates table.
type PostgresStore struct {
	pool         *pgxpool.Pool
	queryTimeout time.Duration
}

// NewPostgresStore creates a Store backed by PostgreSQL. queryTimeout sets
// the per-query context deadline; zero means no timeout.
func NewPostgresStore(pool *pgxpool.Pool, queryTimeout time.Duration) *PostgresStore {
	return &PostgresStore{pool: pool, queryTimeout: queryTimeout}
}

// withTimeout derives a child context with the configured query timeout.
// If queryTimeout is zero, the parent context is returned unchanged.
func (s *PostgresStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.queryTimeout > 0 {
		return context.WithTimeout(ctx, s.queryTimeout)
	}
	return ctx, func() {}
}

func scanRecord(row pgx.Row) (coordinate.Record, error) {
	var rec coordinate.Record
	err := row.Scan(
		&rec.ID, &rec.GuildID, &rec.Name,
		&rec.Position.X, &rec.Position.Y, &rec.Position.Z,
		&rec.Dimension,
		&rec.Author.ID, &rec.Author.Name, &rec.Author.AvatarURL,
		&rec.CreatedAt,
	)
	return rec, err
}

func (s *PostgresStore) Insert(ctx context.Context, rec coordinate.Record) (coordinate.Record, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := `
		INSERT INTO coordinates (id, guild_id, name, x, y, z, dimension, author_id, author_name, author_avatar_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING ` + recordColumns

	row := s.pool.QueryRow(ctx, query,
		uuid.New(), rec.GuildID, rec.Name,
		rec.Position.X, rec.Position.Y, rec.Position.Z,
		rec.Dimension,
		rec.Author.ID, rec.Author.Name, rec.Author.AvatarURL,
	)
	stored, err := scanRecord(row)
	if err != nil {
		return coordinate.Record{}, fmt.Errorf("insert coordinate: %w", err)
	}
	return stored, nil
}

func (s *PostgresStore) FindByName(ctx context.Context, guildID, name string) ([]coordinate.Record, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := `
		SELECT ` + recordColumns + `
		FROM coordinates
		WHERE guild_id = $1 AND name = $2
		ORDER BY created_at ASC, id ASC`

	rows, err := s.pool.Query(ctx, query, guildID, name)
	if err != nil {
		return nil, fmt.Errorf("find by name: %w", err)
	}
	defer rows.Close()

	return collectRecords(rows, "find by name")
}

func (s *PostgresStore) FindByID(ctx context.Context, guildID string, id uuid.UUID) (coordinate.Record, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := `
		SELECT ` + recordColumns + `
		FROM coordinates
		WHERE guild_id = $1 AND id = $2`

	rec, err := scanRecord(s.pool.QueryRow(ctx, query, guildID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return coordinate.Record{}, ErrNotFound
		}
		return coordinate.Record{}, fmt.Errorf("find by id: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) ListByGuild(ctx context.Context, guildID string) ([]coordinate.Record, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := `
		SELECT ` + recordColumns + `
		FROM coordinates
		WHERE guild_id = $1
		ORDER BY created_at ASC, id ASC`

	rows, err := s.pool.Query(ctx, query, guildID)
	if err != nil {
		return nil, fmt.Errorf("list by guild: %w", err)
	}
	defer rows.Close()

	return collectRecords(rows, "list by guild")
}

func (s *PostgresStore) UpdateFields(ctx context.Context, guildID string, id uuid.UUID, patch FieldPatch) (coordinate.Record, error) {
	if patch.Empty() {
		return s.FindByID(ctx, guildID, id)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	sets := make([]string, 0, 5)
	args := []any{guildID, id}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if patch.Name != nil {
		sets = append(sets, "name = "+arg(*patch.Name))
	}
	if patch.Position != nil {
		sets = append(sets, "x = "+arg(patch.Position.X))
		sets = append(sets, "y = "+arg(patch.Position.Y))
		sets = append(sets, "z = "+arg(patch.Position.Z))
	}
	if patch.Dimension != nil {
		sets = append(sets, "dimension = "+arg(*patch.Dimension))
	}

	query := `
		UPDATE coordinates
		SET ` + strings.Join(sets, ", ") + `
		WHERE guild_id = $1 AND id = $2
		RETURNING ` + recordColumns

	rec, err := scanRecord(s.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return coordinate.Record{}, ErrNotFound
		}
		return coordinate.Record{}, fmt.Errorf("update fields: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) DeleteByName(ctx context.Context, guildID, name string) (int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	tag, err := s.pool.Exec(ctx, `DELETE FROM coordinates WHERE guild_id = $1 AND name = $2`, guildID, name)
	if err != nil {
		return 0, fmt.Errorf("delete by name: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) DeleteByID(ctx context.Context, guildID string, id uuid.UUID) (int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	tag, err := s.pool.Exec(ctx, `DELETE FROM coordinates WHERE guild_id = $1 AND id = $2`, guildID, id)
	if err != nil {
		return 0, fmt.Errorf("delete by id: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) DeleteGuild(ctx context.Context, guildID string) (int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	tag, err := s.pool.Exec(ctx, `DELETE FROM coordinates WHERE guild_id = $1`, guildID)
	if err != nil {
		return 0, fmt.Errorf("delete guild: %w", err)
	}
	return tag.RowsAffected(), nil
}

func collectRecords(rows pgx.Rows, op string) ([]coordinate.Record, error) {
	var recs []coordinate.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("%s scan: %w", op, err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s rows: %w", op, err)
	}
	return recs, nil
}
