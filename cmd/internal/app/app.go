// Package app wires the KwLnk server runtime: config, logging, storage,
// optional cache and event bus, tracing and the HTTP routes.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"kwlnk/cmd/identity"
	"kwlnk/cmd/internal/api"
	"kwlnk/cmd/internal/auth/security"
	"kwlnk/cmd/internal/auth/tokens"
	"kwlnk/cmd/internal/clock"
	"kwlnk/cmd/internal/links"
	"kwlnk/cmd/internal/migrations"
	"kwlnk/cmd/security/password"
)

// App is the KwLnk runtime. It owns the pool, the Redis client, the NATS
// connection and the tracer provider and releases them in Close.
type App struct {
	cfg    Config
	log    Logger
	domain Domain
	clock  clock.Clock

	dbPool *pgxpool.Pool
	rdb    *redis.Client
	bus    *NATSPublisher

	accounts identity.Store
	idPolicy identity.IDPolicy
	hasher   *password.Hasher

	handler *api.Handler

	shutdownTracing func(context.Context) error
}

// New constructs a fully wired App. Without a database URL every store is
// in memory.
func New(ctx context.Context, cfg Config, log Logger) (_ *App, err error) {
	if log == nil {
		return nil, errors.New("app: nil logger")
	}
	if err := ValidateSecurityConfig(cfg); err != nil {
		return nil, err
	}
	if routeKey(cfg.API.APIRoot) == routeKey(cfg.API.LinksRoot) {
		return nil, fmt.Errorf("%w: KWLNK_API_ROOT and KWLNK_LINKS_ROOT must differ", ErrConfig)
	}

	domain, err := LoadDomain(cfg.AppConfigPath, cfg.API.AppName)
	if err != nil {
		return nil, err
	}
	cfg.API.AppName = domain.AppName

	pwCfg, err := password.FromEnv()
	if err != nil {
		return nil, err
	}
	idPolicy, err := identity.NewIDPolicy(domain.IDPattern)
	if err != nil {
		return nil, err
	}

	a := &App{
		cfg:             cfg,
		log:             log,
		domain:          domain,
		clock:           clock.System{},
		idPolicy:        idPolicy,
		hasher:          password.NewHasher(pwCfg),
		shutdownTracing: func(context.Context) error { return nil },
	}
	defer func() {
		if err != nil {
			_ = a.Close(context.Background())
		}
	}()

	if a.shutdownTracing, err = InitTracing(ctx, cfg.OTELEndpoint); err != nil {
		return nil, err
	}

	var (
		tokenStore tokens.Store
		linkStore  links.Store
	)
	if cfg.DatabaseURL == "" {
		log.Info("db.disabled.inmemory_store")
		a.accounts = identity.NewMemoryStore()
		tokenStore = tokens.NewMemoryStore()
		linkStore = links.NewMemoryStore()
	} else {
		if a.dbPool, err = NewDBPool(ctx, cfg); err != nil {
			return nil, err
		}
		log.Info("db.enabled.postgres_store")
		if cfg.AutoMigrate {
			if err = migrations.Up(ctx, a.dbPool); err != nil {
				return nil, err
			}
			log.Info("db.migrate.done")
		}
		if a.accounts, err = identity.NewPostgresStore(a.dbPool, identity.WithLogger(log)); err != nil {
			return nil, err
		}
		tokenStore = tokens.NewPostgresStore(a.dbPool, log)
		linkStore = links.NewPostgresStore(a.dbPool, log)
	}

	linkOpts := []links.Option{links.WithLogger(log)}
	if cfg.RedisURL != "" {
		opt, perr := redis.ParseURL(cfg.RedisURL)
		if perr != nil {
			return nil, fmt.Errorf("%w: KWLNK_REDIS_URL: %v", ErrConfig, perr)
		}
		a.rdb = redis.NewClient(opt)
		if err = a.rdb.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}
		log.Info("cache.enabled.redis", "ttl", cfg.RedisCacheTTL.String())
		linkOpts = append(linkOpts, links.WithCache(links.NewRedisCache(a.rdb, cfg.RedisCacheTTL)))
	}
	if cfg.NATSURL != "" {
		if a.bus, err = NewNATSPublisher(cfg.NATSURL, cfg.NATSSubjectPrefix); err != nil {
			return nil, fmt.Errorf("nats: %w", err)
		}
		log.Info("events.enabled.nats", "prefix", cfg.NATSSubjectPrefix)
		linkOpts = append(linkOpts, links.WithPublisher(a.bus))
	}

	tm, err := tokens.NewManager(domain.Tokens, tokenStore, tokens.WithLogger(log))
	if err != nil {
		return nil, err
	}
	gen, err := links.NewKeyGenerator(domain.KeyGen, nil, linkStore)
	if err != nil {
		return nil, err
	}

	a.handler, err = api.NewHandler(log, cfg.API, api.Services{
		Accounts: a.accounts,
		IDPolicy: idPolicy,
		Hasher:   a.hasher,
		Tokens:   tm,
		Security: security.NewFactory(a.accounts, tm, a.hasher, security.WithLogger(log)),
		Links:    links.NewService(linkStore, gen, linkOpts...),
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Handler returns the root HTTP handler.
func (a *App) Handler() http.Handler {
	return newRouter(a.log, a.cfg, a.dbPool, a.handler)
}

// Run starts the HTTP server and blocks until context cancellation or fatal server error.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: nonZeroDuration(a.cfg.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       nonZeroDuration(a.cfg.ReadTimeout, 15*time.Second),
		WriteTimeout:      nonZeroDuration(a.cfg.WriteTimeout, 15*time.Second),
		IdleTimeout:       nonZeroDuration(a.cfg.IdleTimeout, 60*time.Second),
		MaxHeaderBytes:    nonZeroInt(a.cfg.MaxHeaderBytes, 1<<20),
	}

	a.log.Info("server.start",
		"addr", a.cfg.HTTPAddr,
		"db_enabled", a.dbPool != nil,
		"api_root", a.cfg.API.APIRoot,
		"links_root", a.cfg.API.LinksRoot,
	)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.log.Info("server.stop", "reason", "context_done")
	case err := <-errCh:
		a.log.Error("server.fail", "err", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), nonZeroDuration(a.cfg.ShutdownTimeout, 10*time.Second))
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error("server.shutdown.fail", "err", err)
		return err
	}

	a.log.Info("server.stopped")
	return nil
}

// Close releases every owned resource. It is safe on a partially built App.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.shutdownTracing != nil {
		if err := a.shutdownTracing(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracing: %w", err))
		}
	}
	if a.bus != nil {
		a.bus.Close()
	}
	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis: %w", err))
		}
	}
	if a.dbPool != nil {
		a.dbPool.Close()
	}
	return errors.Join(errs...)
}

// CreateAccount creates an account attributed to the bootstrap actor. A
// password already in a recognised hash format is stored as is.
func (a *App) CreateAccount(ctx context.Context, id, plain string, disabled bool) (identity.Account, error) {
	id = identity.NormalizeID(id)
	if err := a.idPolicy.ValidateNew(id); err != nil {
		return identity.Account{}, err
	}
	if !a.hasher.IsAlreadyHashed(plain) {
		if err := a.hasher.Validate(plain); err != nil {
			return identity.Account{}, err
		}
	}

	acct := identity.Account{ID: id, Disabled: disabled}
	if err := acct.SetPassword(a.hasher, plain); err != nil {
		return identity.Account{}, err
	}
	acct.Stamp(a.clock.Now(), identity.BootstrapActor)

	if err := a.accounts.Insert(ctx, acct); err != nil {
		return identity.Account{}, err
	}
	a.log.Info("accounts.create", "account_id", id, "actor", identity.BootstrapActor, "disabled", disabled)
	return acct, nil
}

// routeKey normalises a configured root for comparison.
func routeKey(root string) string {
	key := strings.Trim(strings.TrimSpace(root), "/")
	return "/" + key
}

func nonZeroDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

func nonZeroInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
