package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/serroba/shadow-links/internal/links"
)

const postgresSchema = `
	CREATE TABLE IF NOT EXISTS links (
		short_id       TEXT PRIMARY KEY,
		destination    TEXT NOT NULL,
		description    TEXT,
		shadow_user_id TEXT NOT NULL,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	CREATE INDEX IF NOT EXISTS links_shadow_user_id_idx ON links (shadow_user_id, created_at);
`

// PostgresStore is a PostgreSQL implementation of links.Repository.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed link store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Migrate creates the links table and its owner index when missing.
func (p *PostgresStore) Migrate(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, postgresSchema)

	return err
}

func (p *PostgresStore) Save(ctx context.Context, link *links.Link) error {
	query := `
		INSERT INTO links (short_id, destination, description, shadow_user_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (short_id) DO NOTHING
	`

	tag, err := p.pool.Exec(ctx, query,
		link.ShortID,
		link.Destination,
		nullableString(link.Description),
		link.ShadowUserID,
		link.CreatedAt,
	)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return links.ErrDuplicateShortID
	}

	return nil
}

func (p *PostgresStore) GetByShortID(ctx context.Context, shortID string) (*links.Link, error) {
	query := `
		SELECT short_id, destination, description, shadow_user_id, created_at
		FROM links
		WHERE short_id = $1
	`

	link, err := scanLink(p.pool.QueryRow(ctx, query, shortID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, links.ErrNotFound
		}

		return nil, err
	}

	return link, nil
}

func (p *PostgresStore) ListByOwner(ctx context.Context, shadowUserID string) ([]*links.Link, error) {
	query := `
		SELECT short_id, destination, description, shadow_user_id, created_at
		FROM links
		WHERE shadow_user_id = $1
		ORDER BY created_at, short_id
	`

	rows, err := p.pool.Query(ctx, query, shadowUserID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	owned := make([]*links.Link, 0)

	for rows.Next() {
		link, err := scanLink(rows)
		if err != nil {
			return nil, err
		}

		owned = append(owned, link)
	}

	return owned, rows.Err()
}

func scanLink(row pgx.Row) (*links.Link, error) {
	var (
		link        links.Link
		description *string
	)

	if err := row.Scan(
		&link.ShortID,
		&link.Destination,
		&description,
		&link.ShadowUserID,
		&link.CreatedAt,
	); err != nil {
		return nil, err
	}

	if description != nil {
		link.Description = *description
	}

	return &link, nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}

	return &s
}

var _ links.Repository = (*PostgresStore)(nil)
