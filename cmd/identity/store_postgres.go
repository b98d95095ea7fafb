package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store over PostgreSQL.
//
// The pgx pool is owned by the caller; this store must NOT close it.
// Table names are unqualified and resolve through the connection search_path.
type PostgresStore struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

// PostgresOption configures the store.
type PostgresOption func(*PostgresStore)

// WithLogger sets the logger used for rows skipped while listing.
func WithLogger(l *slog.Logger) PostgresOption {
	return func(s *PostgresStore) {
		if l != nil {
			s.log = l
		}
	}
}

// NewPostgresStore constructs a PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool, opts ...PostgresOption) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("identity: nil pool")
	}
	st := &PostgresStore{pool: pool, log: slog.Default()}
	for _, opt := range opts {
		if opt != nil {
			opt(st)
		}
	}
	return st, nil
}

type accountRow struct {
	ID           string    `db:"id"`
	PasswordHash string    `db:"password_hash"`
	Disabled     bool      `db:"disabled"`
	CreatedAt    time.Time `db:"created_at"`
	CreatedBy    *string   `db:"created_by_id"`
	UpdatedAt    time.Time `db:"updated_at"`
	UpdatedBy    *string   `db:"updated_by_id"`
}

func (r accountRow) account() Account {
	return Account{
		ID:           r.ID,
		PasswordHash: r.PasswordHash,
		Disabled:     r.Disabled,
		Provenance: Provenance{
			CreatedAt: r.CreatedAt.UTC(),
			CreatedBy: deref(r.CreatedBy),
			UpdatedAt: r.UpdatedAt.UTC(),
			UpdatedBy: deref(r.UpdatedBy),
		},
	}
}

const accountColumns = `id, password_hash, disabled, created_at, created_by_id, updated_at, updated_by_id`

// Get returns the account with id or a NotFoundError.
func (s *PostgresStore) Get(ctx context.Context, id string) (Account, error) {
	const op = "identity.Get"

	var row accountRow
	err := pgxscan.Get(ctx, s.pool, &row, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, NotFoundError{Op: op, Resource: "account"}
		}
		return Account{}, fmt.Errorf("%s: %w", op, err)
	}
	return row.account(), nil
}

// Insert adds a new account; a unique violation is a ConflictError.
func (s *PostgresStore) Insert(ctx context.Context, a Account) error {
	const op = "identity.Insert"

	if strings.TrimSpace(a.ID) == "" {
		return invalid(op, "missing id")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO accounts (id, password_hash, disabled, created_at, created_by_id, updated_at, updated_by_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		a.ID, a.PasswordHash, a.Disabled,
		a.CreatedAt.UTC(), nullIfEmpty(a.CreatedBy),
		a.UpdatedAt.UTC(), nullIfEmpty(a.UpdatedBy),
	)
	if err != nil {
		if field, ok := pgClassifyUniqueViolation(err); ok {
			return ConflictError{Op: op, Field: field}
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Update replaces an existing account.
func (s *PostgresStore) Update(ctx context.Context, a Account) error {
	const op = "identity.Update"

	tag, err := s.pool.Exec(ctx, `
		UPDATE accounts
		SET password_hash = $2, disabled = $3, updated_at = $4, updated_by_id = $5
		WHERE id = $1`,
		a.ID, a.PasswordHash, a.Disabled, a.UpdatedAt.UTC(), nullIfEmpty(a.UpdatedBy),
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return NotFoundError{Op: op, Resource: "account"}
	}
	return nil
}

// Delete removes the account with id; its tokens go with it.
func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	const op = "identity.Delete"

	tag, err := s.pool.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return NotFoundError{Op: op, Resource: "account"}
	}
	return nil
}

// List scans row by row so that a single undecodable row is logged and
// skipped instead of failing the whole listing.
func (s *PostgresStore) List(ctx context.Context, opts ListOptions) ([]Account, error) {
	const op = "identity.List"

	q := `SELECT ` + accountColumns + ` FROM accounts ORDER BY id`
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
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	scanner := pgxscan.NewRowScanner(rows)
	out := make([]Account, 0)
	for rows.Next() {
		var row accountRow
		if err := scanner.Scan(&row); err != nil {
			s.log.Warn("identity.list.skip_row", "err", err)
			continue
		}
		out = append(out, row.account())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

// Count returns the number of stored accounts.
func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM accounts`).Scan(&n); err != nil {
		return 0, fmt.Errorf("identity.Count: %w", err)
	}
	return n, nil
}

// ---- helpers ----

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func pgClassifyUniqueViolation(err error) (field string, ok bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return "", false
	}
	if pgErr.Code != "23505" { // unique_violation
		return "", false
	}
	c := strings.ToLower(strings.TrimSpace(pgErr.ConstraintName))
	switch {
	case c == "accounts_pkey":
		return "id", true
	case strings.Contains(c, "id"):
		return "id", true
	default:
		return "unique", true
	}
}
