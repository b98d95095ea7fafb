// Package migrations embeds the KwLnk schema and applies it with goose.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed *.sql
var FS embed.FS

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// Run applies all pending migrations through db.
func Run(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(FS)
	if err := goose.SetDialect("pgx"); err != nil {
		return fmt.Errorf("migrations: dialect: %w", err)
	}
	return gooseUpContext(ctx, db, ".")
}

// Up applies all pending migrations using a database/sql view of pool.
// The pool stays open; only the wrapper is closed.
func Up(ctx context.Context, pool *pgxpool.Pool) error {
	if pool == nil {
		return fmt.Errorf("migrations: nil pool")
	}
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	if err := Run(ctx, db); err != nil {
		return fmt.Errorf("migrations: up: %w", err)
	}
	return nil
}
