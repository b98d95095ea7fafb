package app

import (
	"context"
	"errors"
	"fmt"

	"kwlnk/cmd/identity"
	"kwlnk/cmd/internal/migrations"
)

// ErrDatabaseRequired is returned by commands that only make sense against
// a persistent store.
var ErrDatabaseRequired = errors.New("KWLNK_DATABASE_URL is required")

// Serve runs the server until ctx is canceled. migrate forces embedded
// migrations to be applied at startup.
func Serve(ctx context.Context, cfg Config, migrate bool) error {
	if migrate {
		cfg.AutoMigrate = true
	}

	log, closer, err := NewLogger(cfg.LogLevel, cfg.LogFormat, cfg.LogFile)
	if err != nil {
		return err
	}
	defer func() { _ = closer.Close() }()

	a, err := New(ctx, cfg, log)
	if err != nil {
		log.Error("server.init.fail", "err", err)
		return err
	}
	defer func() {
		if err := a.Close(context.WithoutCancel(ctx)); err != nil {
			log.Error("server.close.fail", "err", err)
		}
	}()

	return a.Run(ctx)
}

// Migrate applies the embedded migrations to cfg.DatabaseURL.
func Migrate(ctx context.Context, cfg Config) error {
	if cfg.DatabaseURL == "" {
		return ErrDatabaseRequired
	}
	pool, err := NewDBPool(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer pool.Close()

	return migrations.Up(ctx, pool)
}

// CreateAccount bootstraps an account in the configured database.
func CreateAccount(ctx context.Context, cfg Config, id, plain string, disabled bool) (identity.Account, error) {
	if cfg.DatabaseURL == "" {
		return identity.Account{}, ErrDatabaseRequired
	}

	log, closer, err := NewLogger(cfg.LogLevel, cfg.LogFormat, cfg.LogFile)
	if err != nil {
		return identity.Account{}, err
	}
	defer func() { _ = closer.Close() }()

	cfg.OTELEndpoint = ""
	cfg.NATSURL = ""
	cfg.RedisURL = ""
	a, err := New(ctx, cfg, log)
	if err != nil {
		return identity.Account{}, err
	}
	defer func() { _ = a.Close(context.WithoutCancel(ctx)) }()

	return a.CreateAccount(ctx, id, plain, disabled)
}
