package tokens

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"kwlnk/cmd/internal/clock"
	"kwlnk/cmd/security/random"
	sectoken "kwlnk/cmd/security/token"
)

// Manager issues, inspects, marks used and revokes tokens.
type Manager struct {
	cfg   Config
	store Store
	clock clock.Clock
	rand  random.Source
	log   *slog.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock sets the time source.
func WithClock(c clock.Clock) Option { return func(m *Manager) { m.clock = c } }

// WithRandom sets the source for token ids.
func WithRandom(src random.Source) Option { return func(m *Manager) { m.rand = src } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(m *Manager) { m.log = l } }

// NewManager constructs a Manager. It returns ErrConfig for an invalid cfg.
func NewManager(cfg Config, store Store, opts ...Option) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if store == nil {
		return nil, fmt.Errorf("tokens: nil store")
	}
	m := &Manager{cfg: cfg, store: store}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	m.clock = clock.OrSystem(m.clock)
	m.rand = random.OrDefault(m.rand)
	if m.log == nil {
		m.log = slog.Default()
	}
	return m, nil
}

// Issue creates a token for accountID that expires DefaultTTL from now.
// Provenance is attributed to the owning account.
func (m *Manager) Issue(ctx context.Context, accountID string) (Token, error) {
	id, err := random.Hex(m.rand, m.cfg.IDBytes)
	if err != nil {
		return Token{}, fmt.Errorf("tokens: generate id: %w", err)
	}

	now := m.clock.Now()
	t := Token{
		ID:        id,
		AccountID: accountID,
		ExpiresAt: now.Add(m.cfg.DefaultTTL),
	}
	t.Stamp(now, accountID)

	if err := m.store.Insert(ctx, t); err != nil {
		m.log.Error("tokens.issue.fail", "account_id", accountID, "err", err)
		return Token{}, err
	}
	m.log.Info("tokens.issue", "account_id", accountID, "token", sectoken.Fingerprint(id))
	return t, nil
}

// Get loads a token by id. Unknown ids give ErrNotFound.
func (m *Manager) Get(ctx context.Context, id string) (Token, error) {
	if id == "" {
		return Token{}, ErrNotFound
	}
	return m.store.Get(ctx, id)
}

// FindByAccount returns every token of accountID, expired ones included.
func (m *Manager) FindByAccount(ctx context.Context, accountID string) ([]Token, error) {
	return m.store.ListByAccount(ctx, accountID)
}

// ActiveTokens returns the tokens of accountID that are not expired now.
func (m *Manager) ActiveTokens(ctx context.Context, accountID string) ([]Token, error) {
	all, err := m.store.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	now := m.clock.Now()
	out := make([]Token, 0, len(all))
	for _, t := range all {
		if !t.IsExpired(now) {
			out = append(out, t)
		}
	}
	return out, nil
}

// IsExpired reports whether t is expired at the manager's current time.
func (m *Manager) IsExpired(t Token) bool {
	return t.IsExpired(m.clock.Now())
}

// MarkUsed records now as the last use of t. Only last_used_at is written.
func (m *Manager) MarkUsed(ctx context.Context, t Token) (Token, error) {
	now := m.clock.Now()
	if err := m.store.UpdateLastUsed(ctx, t.ID, now); err != nil {
		if !errors.Is(err, ErrNotFound) {
			m.log.Error("tokens.mark_used.fail", "token", sectoken.Fingerprint(t.ID), "err", err)
		}
		return Token{}, err
	}
	t.LastUsedAt = &now
	return t, nil
}

// Revoke marks t used and moves its expiry to RevokedAt. Revoking an already
// revoked token is a no-op that returns it unchanged.
func (m *Manager) Revoke(ctx context.Context, t Token) (Token, error) {
	if t.IsRevoked() {
		return t, nil
	}

	now := m.clock.Now()
	t.LastUsedAt = &now
	t.ExpiresAt = RevokedAt
	t.Touch(now, t.AccountID)

	if err := m.store.Update(ctx, t); err != nil {
		m.log.Error("tokens.revoke.fail", "token", sectoken.Fingerprint(t.ID), "err", err)
		return Token{}, err
	}
	m.log.Info("tokens.revoke", "account_id", t.AccountID, "token", sectoken.Fingerprint(t.ID))
	return t, nil
}
