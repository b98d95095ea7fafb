package security

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"kwlnk/cmd/identity"
	"kwlnk/cmd/internal/auth/tokens"
	"kwlnk/cmd/internal/clock"
	sectoken "kwlnk/cmd/security/token"
)

// PasswordVerifier checks a plaintext against a stored hash.
type PasswordVerifier interface {
	Verify(plain, encodedHash string) bool
}

// Factory builds per-request Contexts over shared dependencies.
type Factory struct {
	accounts identity.Store
	tokens   *tokens.Manager
	verifier PasswordVerifier
	clock    clock.Clock
	log      *slog.Logger
}

// FactoryOption configures a Factory.
type FactoryOption func(*Factory)

// WithClock sets the time source used for token expiry checks.
func WithClock(c clock.Clock) FactoryOption { return func(f *Factory) { f.clock = c } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) FactoryOption { return func(f *Factory) { f.log = l } }

// NewFactory constructs a Factory.
func NewFactory(accounts identity.Store, tm *tokens.Manager, verifier PasswordVerifier, opts ...FactoryOption) *Factory {
	f := &Factory{accounts: accounts, tokens: tm, verifier: verifier}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	f.clock = clock.OrSystem(f.clock)
	if f.log == nil {
		f.log = slog.Default()
	}
	return f
}

// New returns an unauthenticated Context.
func (f *Factory) New() *Context {
	return &Context{f: f}
}

// Context is the acting identity for one request.
type Context struct {
	f *Factory

	mu        sync.Mutex
	accountID *string
}

// IsAuthenticated reports whether an identity is established.
func (c *Context) IsAuthenticated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.accountID != nil
}

// ID returns the authenticated account id.
func (c *Context) ID() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.accountID == nil {
		return "", ErrNotAuthenticated
	}
	return *c.accountID, nil
}

func (c *Context) set(id string) {
	c.mu.Lock()
	c.accountID = &id
	c.mu.Unlock()
}

func (c *Context) clear() {
	c.mu.Lock()
	c.accountID = nil
	c.mu.Unlock()
}

// Auth loads the account by id and authenticates it with password.
func (c *Context) Auth(ctx context.Context, id, password string) error {
	acct, err := c.f.accounts.Get(ctx, id)
	if err != nil {
		if identity.IsNotFound(err) {
			return ErrAccountNotFound
		}
		c.f.log.Error("auth.account.load.fail", "account_id", id, "err", err)
		return err
	}
	return c.AuthAccount(acct, password)
}

// AuthAccount authenticates an already loaded account with password.
// A successful call replaces any identity already established.
func (c *Context) AuthAccount(acct identity.Account, password string) error {
	if acct.Disabled {
		return ErrAccountDisabled
	}
	if !c.f.verifier.Verify(password, acct.PasswordHash) {
		return ErrPasswordIncorrect
	}
	c.set(acct.ID)
	return nil
}

// AuthWithToken loads the token by id and authenticates with it. The token
// is returned so callers can mark it used once the request succeeds.
func (c *Context) AuthWithToken(ctx context.Context, id string) (tokens.Token, error) {
	t, err := c.f.tokens.Get(ctx, id)
	if err != nil {
		if errors.Is(err, tokens.ErrNotFound) {
			return tokens.Token{}, ErrTokenNotFound
		}
		c.f.log.Error("auth.token.load.fail", "token", sectoken.Fingerprint(id), "err", err)
		return tokens.Token{}, err
	}
	if err := c.AuthWithTokenValue(ctx, t); err != nil {
		return tokens.Token{}, err
	}
	return t, nil
}

// AuthWithTokenValue authenticates with an already loaded token. It does not
// mark the token used.
func (c *Context) AuthWithTokenValue(ctx context.Context, t tokens.Token) error {
	if c.f.tokens.IsExpired(t) {
		return ErrTokenExpired
	}
	acct, err := c.f.accounts.Get(ctx, t.AccountID)
	if err != nil {
		if identity.IsNotFound(err) {
			return ErrTokenNotFound
		}
		return err
	}
	if acct.Disabled {
		return ErrAccountDisabled
	}
	c.set(acct.ID)
	return nil
}

// Deauth revokes every active token of the current account and clears the
// identity. If a revocation fails the Context stays authenticated.
func (c *Context) Deauth(ctx context.Context) error {
	id, err := c.ID()
	if err != nil {
		return err
	}
	active, err := c.f.tokens.ActiveTokens(ctx, id)
	if err != nil {
		return err
	}
	for _, t := range active {
		if _, err := c.f.tokens.Revoke(ctx, t); err != nil {
			return fmt.Errorf("security: revoke token: %w", err)
		}
	}
	c.clear()
	return nil
}

// Account reloads the current account from the store.
func (c *Context) Account(ctx context.Context) (identity.Account, error) {
	id, err := c.ID()
	if err != nil {
		return identity.Account{}, err
	}
	acct, err := c.f.accounts.Get(ctx, id)
	if err != nil {
		if identity.IsNotFound(err) {
			return identity.Account{}, ErrAccountNotFound
		}
		return identity.Account{}, err
	}
	return acct, nil
}

// NewToken issues a token for the current account.
func (c *Context) NewToken(ctx context.Context) (tokens.Token, error) {
	id, err := c.ID()
	if err != nil {
		return tokens.Token{}, err
	}
	return c.f.tokens.Issue(ctx, id)
}

// Token returns a token of the current account.
//
// With an empty id it returns the active token used most recently. A token
// never used counts as oldest; equal timestamps resolve to the greatest id.
// With an id it returns that token only when it belongs to the current
// account. The bool is false when nothing matches.
func (c *Context) Token(ctx context.Context, id string) (tokens.Token, bool, error) {
	accountID, err := c.ID()
	if err != nil {
		return tokens.Token{}, false, err
	}

	if id != "" {
		t, err := c.f.tokens.Get(ctx, id)
		if err != nil {
			if errors.Is(err, tokens.ErrNotFound) {
				return tokens.Token{}, false, nil
			}
			return tokens.Token{}, false, err
		}
		if t.AccountID != accountID {
			return tokens.Token{}, false, nil
		}
		return t, true, nil
	}

	active, err := c.f.tokens.ActiveTokens(ctx, accountID)
	if err != nil {
		return tokens.Token{}, false, err
	}
	if len(active) == 0 {
		return tokens.Token{}, false, nil
	}
	sort.Slice(active, func(i, j int) bool { return mostRecent(active[i], active[j]) })
	return active[0], true, nil
}

// mostRecent orders a before b when a was used later, or on a tie when its
// id is greater.
func mostRecent(a, b tokens.Token) bool {
	switch {
	case a.LastUsedAt == nil && b.LastUsedAt == nil:
	case a.LastUsedAt == nil:
		return false
	case b.LastUsedAt == nil:
		return true
	case !a.LastUsedAt.Equal(*b.LastUsedAt):
		return a.LastUsedAt.After(*b.LastUsedAt)
	}
	return a.ID > b.ID
}

type ctxKey struct{}

// WithContext returns a copy of ctx carrying sc.
func WithContext(ctx context.Context, sc *Context) context.Context {
	return context.WithValue(ctx, ctxKey{}, sc)
}

// FromContext returns the Context stored by WithContext.
func FromContext(ctx context.Context) (*Context, bool) {
	sc, ok := ctx.Value(ctxKey{}).(*Context)
	return sc, ok && sc != nil
}
