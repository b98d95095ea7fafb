package links

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"kwlnk/cmd/identity"
)

// PostgresStore implements Store over PostgreSQL. The primary key on
// links.key is the uniqueness constraint.
type PostgresStore struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

// NewPostgresStore constructs a PostgresStore. A nil logger uses slog.Default.
func NewPostgresStore(pool *pgxpool.Pool, log *slog.Logger) *PostgresStore {
	if log == nil {
		log = slog.Default()
	}
	return &PostgresStore{pool: pool, log: log}
}

type linkRow struct {
	Key       string     `db:"key"`
	URI       string     `db:"uri"`
	ExpiresAt *time.Time `db:"expires_at"`
	CreatedAt time.Time  `db:"created_at"`
	CreatedBy *string    `db:"created_by_id"`
	UpdatedAt time.Time  `db:"updated_at"`
	UpdatedBy *string    `db:"updated_by_id"`
}

func (r linkRow) link() Link {
	l := Link{
		Key: r.Key,
		URI: r.URI,
		Provenance: identity.Provenance{
			CreatedAt: r.CreatedAt.UTC(),
			UpdatedAt: r.UpdatedAt.UTC(),
		},
	}
	if r.ExpiresAt != nil {
		l.ExpiresAt = timePtr(r.ExpiresAt.UTC())
	}
	if r.CreatedBy != nil {
		l.CreatedBy = *r.CreatedBy
	}
	if r.UpdatedBy != nil {
		l.UpdatedBy = *r.UpdatedBy
	}
	return l
}

const linkColumns = `key, uri, expires_at, created_at, created_by_id, updated_at, updated_by_id`

// Exists reports whether key is taken.
func (s *PostgresStore) Exists(ctx context.Context, key string) (bool, error) {
	var ok bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM links WHERE key = $1)`, key).Scan(&ok); err != nil {
		return false, fmt.Errorf("links.Exists: %w", err)
	}
	return ok, nil
}

// Get returns the link stored under key or ErrLinkNotFound.
func (s *PostgresStore) Get(ctx context.Context, key string) (Link, error) {
	var row linkRow
	err := pgxscan.Get(ctx, s.pool, &row, `SELECT `+linkColumns+` FROM links WHERE key = $1`, key)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Link{}, ErrLinkNotFound
		}
		return Link{}, fmt.Errorf("links.Get: %w", err)
	}
	return row.link(), nil
}

// Insert adds a link; a unique violation is ErrKeyAlreadyExists.
func (s *PostgresStore) Insert(ctx context.Context, l Link) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO links (key, uri, expires_at, created_at, created_by_id, updated_at, updated_by_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		l.Key, l.URI, utcPtr(l.ExpiresAt),
		l.CreatedAt.UTC(), nullIfEmpty(l.CreatedBy),
		l.UpdatedAt.UTC(), nullIfEmpty(l.UpdatedBy),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
			return ErrKeyAlreadyExists
		}
		return fmt.Errorf("links.Insert: %w", err)
	}
	return nil
}

// Update replaces an existing link.
func (s *PostgresStore) Update(ctx context.Context, l Link) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE links
		SET uri = $2, expires_at = $3, updated_at = $4, updated_by_id = $5
		WHERE key = $1`,
		l.Key, l.URI, utcPtr(l.ExpiresAt), l.UpdatedAt.UTC(), nullIfEmpty(l.UpdatedBy),
	)
	if err != nil {
		return fmt.Errorf("links.Update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrLinkNotFound
	}
	return nil
}

// Delete removes the link stored under key.
func (s *PostgresStore) Delete(ctx context.Context, key string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM links WHERE key = $1`, key)
	if err != nil {
		return fmt.Errorf("links.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrLinkNotFound
	}
	return nil
}

// List returns links ordered by key, windowed by opts.
func (s *PostgresStore) List(ctx context.Context, opts ListOptions) ([]Link, error) {
	q := `SELECT ` + linkColumns + ` FROM links ORDER BY key`
	args := []any{}
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		q += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if opts.Offset > 0 {
		args = append(args, opts.Offset)
		q += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("links.List: %w", err)
	}
	defer rows.Close()

	scanner := pgxscan.NewRowScanner(rows)
	out := make([]Link, 0)
	for rows.Next() {
		var row linkRow
		if err := scanner.Scan(&row); err != nil {
			s.log.Warn("links.list.skip_row", "err", err)
			continue
		}
		out = append(out, row.link())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("links.List: %w", err)
	}
	return out, nil
}

// Count returns the number of stored links.
func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM links`).Scan(&n); err != nil {
		return 0, fmt.Errorf("links.Count: %w", err)
	}
	return n, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	return timePtr(t.UTC())
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
