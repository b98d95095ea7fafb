package security

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kwlnk/cmd/identity"
	"kwlnk/cmd/internal/auth/tokens"
	"kwlnk/cmd/internal/clock"
	"kwlnk/cmd/security/password"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	factory  *Factory
	accounts *identity.MemoryStore
	tokens   *tokens.Manager
	store    *tokens.MemoryStore
	clock    *clock.Manual
	hasher   *password.Hasher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	cfg := password.DefaultConfig()
	cfg.Params.MemoryKiB = 8 * 1024
	cfg.Params.Iterations = 1
	cfg.Params.Parallelism = 1

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	clk := clock.NewManual(t0)
	ts := tokens.NewMemoryStore()
	tm, err := tokens.NewManager(tokens.DefaultConfig(), ts, tokens.WithClock(clk), tokens.WithLogger(log))
	require.NoError(t, err)

	fx := &fixture{
		accounts: identity.NewMemoryStore(),
		tokens:   tm,
		store:    ts,
		clock:    clk,
		hasher:   password.NewHasher(cfg),
	}
	fx.factory = NewFactory(fx.accounts, tm, fx.hasher, WithClock(clk), WithLogger(log))
	return fx
}

func (fx *fixture) addAccount(t *testing.T, id, pw string, disabled bool) identity.Account {
	t.Helper()
	a := identity.Account{ID: id, Disabled: disabled}
	require.NoError(t, a.SetPassword(fx.hasher, pw))
	a.Stamp(t0, identity.BootstrapActor)
	require.NoError(t, fx.accounts.Insert(context.Background(), a))
	return a
}

func TestAuth_AliceScenario(t *testing.T) {
	fx := newFixture(t)
	fx.addAccount(t, "alice", "correct-horse", false)
	ctx := context.Background()

	sc := fx.factory.New()
	require.NoError(t, sc.Auth(ctx, "alice", "correct-horse"))
	id, err := sc.ID()
	require.NoError(t, err)
	assert.Equal(t, "alice", id)

	other := fx.factory.New()
	err = other.Auth(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, ErrPasswordIncorrect)
	assert.False(t, other.IsAuthenticated())
	_, err = other.ID()
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestAuth_Failures(t *testing.T) {
	fx := newFixture(t)
	fx.addAccount(t, "alice", "correct-horse", false)
	fx.addAccount(t, "bob", "correct-horse", true)
	ctx := context.Background()

	tests := []struct {
		name    string
		id, pw  string
		wantErr error
	}{
		{"unknown account", "carol", "correct-horse", ErrAccountNotFound},
		{"disabled with right password", "bob", "correct-horse", ErrAccountDisabled},
		{"disabled with wrong password", "bob", "nope", ErrAccountDisabled},
		{"wrong password", "alice", "nope", ErrPasswordIncorrect},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc := fx.factory.New()
			err := sc.Auth(ctx, tt.id, tt.pw)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.False(t, sc.IsAuthenticated())
		})
	}
}

func TestAuth_FailureKeepsPreviousIdentity(t *testing.T) {
	fx := newFixture(t)
	fx.addAccount(t, "alice", "correct-horse", false)
	fx.addAccount(t, "bob", "battery-staple", false)
	ctx := context.Background()

	sc := fx.factory.New()
	require.NoError(t, sc.Auth(ctx, "alice", "correct-horse"))
	require.Error(t, sc.Auth(ctx, "bob", "wrong"))

	id, err := sc.ID()
	require.NoError(t, err)
	assert.Equal(t, "alice", id)

	require.NoError(t, sc.Auth(ctx, "bob", "battery-staple"))
	id, _ = sc.ID()
	assert.Equal(t, "bob", id)
}

func TestAuthWithToken(t *testing.T) {
	fx := newFixture(t)
	fx.addAccount(t, "alice", "correct-horse", false)
	ctx := context.Background()

	tok, err := fx.tokens.Issue(ctx, "alice")
	require.NoError(t, err)

	sc := fx.factory.New()
	got, err := sc.AuthWithToken(ctx, tok.ID)
	require.NoError(t, err)
	assert.Equal(t, tok.ID, got.ID)
	id, _ := sc.ID()
	assert.Equal(t, "alice", id)

	stored, err := fx.store.Get(ctx, tok.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.LastUsedAt, "authentication must not mark the token used")
}

func TestAuthWithToken_Failures(t *testing.T) {
	fx := newFixture(t)
	fx.addAccount(t, "alice", "correct-horse", false)
	disabled := fx.addAccount(t, "bob", "correct-horse", true)
	ctx := context.Background()

	expired, err := fx.tokens.Issue(ctx, "alice")
	require.NoError(t, err)
	fx.clock.Advance(61 * time.Minute)

	bobTok, err := fx.tokens.Issue(ctx, disabled.ID)
	require.NoError(t, err)

	orphan := tokens.Token{ID: "orphan", AccountID: "ghost", ExpiresAt: fx.clock.Now().Add(time.Hour)}
	require.NoError(t, fx.store.Insert(ctx, orphan))

	tests := []struct {
		name    string
		id      string
		wantErr error
	}{
		{"unknown token", "nope", ErrTokenNotFound},
		{"expired token", expired.ID, ErrTokenExpired},
		{"disabled owner", bobTok.ID, ErrAccountDisabled},
		{"missing owner", orphan.ID, ErrTokenNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc := fx.factory.New()
			_, err := sc.AuthWithToken(ctx, tt.id)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.False(t, sc.IsAuthenticated())
		})
	}
}

func TestDeauth_RevokesActiveTokens(t *testing.T) {
	fx := newFixture(t)
	fx.addAccount(t, "alice", "correct-horse", false)
	ctx := context.Background()

	sc := fx.factory.New()
	require.NoError(t, sc.Auth(ctx, "alice", "correct-horse"))

	first, err := sc.NewToken(ctx)
	require.NoError(t, err)
	second, err := sc.NewToken(ctx)
	require.NoError(t, err)

	require.NoError(t, sc.Deauth(ctx))
	assert.False(t, sc.IsAuthenticated())

	for _, id := range []string{first.ID, second.ID} {
		_, err := fx.factory.New().AuthWithToken(ctx, id)
		assert.ErrorIs(t, err, ErrTokenExpired)

		stored, err := fx.store.Get(ctx, id)
		require.NoError(t, err)
		assert.True(t, stored.IsRevoked())
	}
}

func TestDeauth_Unauthenticated(t *testing.T) {
	fx := newFixture(t)
	assert.ErrorIs(t, fx.factory.New().Deauth(context.Background()), ErrNotAuthenticated)
}

type failingUpdateStore struct {
	*tokens.MemoryStore
}

func (failingUpdateStore) Update(context.Context, tokens.Token) error {
	return errors.New("db down")
}

func TestDeauth_RevokeFailureKeepsIdentity(t *testing.T) {
	fx := newFixture(t)
	fx.addAccount(t, "alice", "correct-horse", false)
	ctx := context.Background()

	store := failingUpdateStore{tokens.NewMemoryStore()}
	tm, err := tokens.NewManager(tokens.DefaultConfig(), store, tokens.WithClock(fx.clock))
	require.NoError(t, err)
	f := NewFactory(fx.accounts, tm, fx.hasher, WithClock(fx.clock))

	sc := f.New()
	require.NoError(t, sc.Auth(ctx, "alice", "correct-horse"))
	_, err = sc.NewToken(ctx)
	require.NoError(t, err)

	require.Error(t, sc.Deauth(ctx))
	assert.True(t, sc.IsAuthenticated())
}

func TestAccount_ReloadsEveryCall(t *testing.T) {
	fx := newFixture(t)
	fx.addAccount(t, "alice", "correct-horse", false)
	ctx := context.Background()

	sc := fx.factory.New()
	_, err := sc.Account(ctx)
	require.ErrorIs(t, err, ErrNotAuthenticated)

	require.NoError(t, sc.Auth(ctx, "alice", "correct-horse"))
	acct, err := sc.Account(ctx)
	require.NoError(t, err)
	assert.False(t, acct.Disabled)

	acct.Disabled = true
	require.NoError(t, fx.accounts.Update(ctx, acct))
	acct, err = sc.Account(ctx)
	require.NoError(t, err)
	assert.True(t, acct.Disabled)

	require.NoError(t, fx.accounts.Delete(ctx, "alice"))
	_, err = sc.Account(ctx)
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestNewToken_RequiresAuthentication(t *testing.T) {
	fx := newFixture(t)
	_, err := fx.factory.New().NewToken(context.Background())
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestToken_MostRecentlyUsed(t *testing.T) {
	fx := newFixture(t)
	fx.addAccount(t, "alice", "correct-horse", false)
	ctx := context.Background()
	at := func(d time.Duration) *time.Time { v := t0.Add(d); return &v }

	seed := []tokens.Token{
		{ID: "a", AccountID: "alice", ExpiresAt: t0.Add(time.Hour)},
		{ID: "b", AccountID: "alice", ExpiresAt: t0.Add(time.Hour), LastUsedAt: at(time.Minute)},
		{ID: "c", AccountID: "alice", ExpiresAt: t0.Add(time.Hour), LastUsedAt: at(2 * time.Minute)},
		{ID: "d", AccountID: "alice", ExpiresAt: t0.Add(time.Hour), LastUsedAt: at(2 * time.Minute)},
		{ID: "e", AccountID: "alice", ExpiresAt: t0.Add(-time.Minute), LastUsedAt: at(time.Hour)},
		{ID: "z", AccountID: "bob", ExpiresAt: t0.Add(time.Hour), LastUsedAt: at(time.Hour)},
	}
	for _, tok := range seed {
		require.NoError(t, fx.store.Insert(ctx, tok))
	}

	sc := fx.factory.New()
	require.NoError(t, sc.Auth(ctx, "alice", "correct-horse"))

	got, ok, err := sc.Token(ctx, "")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "d", got.ID)
}

func TestToken_NeverUsedCountsAsOldest(t *testing.T) {
	fx := newFixture(t)
	fx.addAccount(t, "alice", "correct-horse", false)
	ctx := context.Background()
	used := t0.Add(-time.Hour)

	require.NoError(t, fx.store.Insert(ctx, tokens.Token{ID: "x", AccountID: "alice", ExpiresAt: t0.Add(time.Hour)}))
	require.NoError(t, fx.store.Insert(ctx, tokens.Token{ID: "a", AccountID: "alice", ExpiresAt: t0.Add(time.Hour), LastUsedAt: &used}))

	sc := fx.factory.New()
	require.NoError(t, sc.Auth(ctx, "alice", "correct-horse"))
	got, ok, err := sc.Token(ctx, "")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "a", got.ID)
}

func TestToken_ByID(t *testing.T) {
	fx := newFixture(t)
	fx.addAccount(t, "alice", "correct-horse", false)
	fx.addAccount(t, "bob", "correct-horse", false)
	ctx := context.Background()

	mine, err := fx.tokens.Issue(ctx, "alice")
	require.NoError(t, err)
	theirs, err := fx.tokens.Issue(ctx, "bob")
	require.NoError(t, err)

	sc := fx.factory.New()
	_, _, err = sc.Token(ctx, mine.ID)
	require.ErrorIs(t, err, ErrNotAuthenticated)

	require.NoError(t, sc.Auth(ctx, "alice", "correct-horse"))

	got, ok, err := sc.Token(ctx, mine.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, mine.ID, got.ID)

	_, ok, err = sc.Token(ctx, theirs.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = sc.Token(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestToken_NoActiveTokens(t *testing.T) {
	fx := newFixture(t)
	fx.addAccount(t, "alice", "correct-horse", false)
	ctx := context.Background()

	sc := fx.factory.New()
	require.NoError(t, sc.Auth(ctx, "alice", "correct-horse"))
	_, ok, err := sc.Token(ctx, "")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestWithContext_RoundTrip(t *testing.T) {
	fx := newFixture(t)
	sc := fx.factory.New()

	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	got, ok := FromContext(WithContext(context.Background(), sc))
	require.True(t, ok)
	assert.Same(t, sc, got)
}
