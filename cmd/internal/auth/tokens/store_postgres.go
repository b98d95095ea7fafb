package tokens

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

// PostgresStore implements Store using PostgreSQL. The pool is owned by the
// caller.
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

type tokenRow struct {
	ID         string     `db:"id"`
	AccountID  string     `db:"account_id"`
	ExpiresAt  time.Time  `db:"expires_at"`
	LastUsedAt *time.Time `db:"last_used_at"`
	CreatedAt  time.Time  `db:"created_at"`
	CreatedBy  *string    `db:"created_by_id"`
	UpdatedAt  time.Time  `db:"updated_at"`
	UpdatedBy  *string    `db:"updated_by_id"`
}

func (r tokenRow) token() Token {
	t := Token{
		ID:        r.ID,
		AccountID: r.AccountID,
		ExpiresAt: r.ExpiresAt.UTC(),
		Provenance: identity.Provenance{
			CreatedAt: r.CreatedAt.UTC(),
			UpdatedAt: r.UpdatedAt.UTC(),
		},
	}
	if r.LastUsedAt != nil {
		v := r.LastUsedAt.UTC()
		t.LastUsedAt = &v
	}
	if r.CreatedBy != nil {
		t.CreatedBy = *r.CreatedBy
	}
	if r.UpdatedBy != nil {
		t.UpdatedBy = *r.UpdatedBy
	}
	return t
}

const tokenColumns = `id, account_id, expires_at, last_used_at, created_at, created_by_id, updated_at, updated_by_id`

// Get returns the token with id or ErrNotFound.
func (s *PostgresStore) Get(ctx context.Context, id string) (Token, error) {
	var row tokenRow
	err := pgxscan.Get(ctx, s.pool, &row, `SELECT `+tokenColumns+` FROM tokens WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Token{}, ErrNotFound
		}
		return Token{}, fmt.Errorf("tokens.Get: %w", err)
	}
	return row.token(), nil
}

// Insert adds a token; a unique violation wraps ErrConflict.
func (s *PostgresStore) Insert(ctx context.Context, t Token) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO tokens (id, account_id, expires_at, last_used_at, created_at, created_by_id, updated_at, updated_by_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		t.ID, t.AccountID, t.ExpiresAt.UTC(), t.LastUsedAt,
		t.CreatedAt.UTC(), nullIfEmpty(t.CreatedBy),
		t.UpdatedAt.UTC(), nullIfEmpty(t.UpdatedBy),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
			return fmt.Errorf("tokens.Insert: %w", ErrConflict)
		}
		return fmt.Errorf("tokens.Insert: %w", err)
	}
	return nil
}

// Update replaces an existing token.
func (s *PostgresStore) Update(ctx context.Context, t Token) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE tokens
		SET expires_at = $2, last_used_at = $3, updated_at = $4, updated_by_id = $5
		WHERE id = $1`,
		t.ID, t.ExpiresAt.UTC(), t.LastUsedAt, t.UpdatedAt.UTC(), nullIfEmpty(t.UpdatedBy),
	)
	if err != nil {
		return fmt.Errorf("tokens.Update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateLastUsed sets last_used_at and nothing else.
func (s *PostgresStore) UpdateLastUsed(ctx context.Context, id string, at time.Time) error {
	tag, err := s.pool.Exec(ctx, `UPDATE tokens SET last_used_at = $2 WHERE id = $1`, id, at.UTC())
	if err != nil {
		return fmt.Errorf("tokens.UpdateLastUsed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListByAccount returns every token of accountID, expired ones included.
func (s *PostgresStore) ListByAccount(ctx context.Context, accountID string) ([]Token, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+tokenColumns+` FROM tokens WHERE account_id = $1 ORDER BY id`, accountID)
	if err != nil {
		return nil, fmt.Errorf("tokens.ListByAccount: %w", err)
	}
	defer rows.Close()

	scanner := pgxscan.NewRowScanner(rows)
	out := make([]Token, 0)
	for rows.Next() {
		var row tokenRow
		if err := scanner.Scan(&row); err != nil {
			s.log.Warn("tokens.list.skip_row", "account_id", accountID, "err", err)
			continue
		}
		out = append(out, row.token())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("tokens.ListByAccount: %w", err)
	}
	return out, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
