package tokens

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kwlnk/cmd/internal/clock"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestManager(t *testing.T, opts ...Option) (*Manager, *MemoryStore, *clock.Manual) {
	t.Helper()

	store := NewMemoryStore()
	clk := clock.NewManual(t0)
	base := []Option{
		WithClock(clk),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}
	m, err := NewManager(DefaultConfig(), store, append(base, opts...)...)
	require.NoError(t, err)
	return m, store, clk
}

func TestNewManager_RejectsInvalidConfig(t *testing.T) {
	_, err := NewManager(Config{DefaultTTL: time.Hour, IDBytes: 8}, NewMemoryStore())
	assert.ErrorIs(t, err, ErrConfig)

	_, err = NewManager(DefaultConfig(), nil)
	assert.Error(t, err, "nil store")
}

func TestIssue_SetsFields(t *testing.T) {
	src := bytes.NewReader(bytes.Repeat([]byte{0xab}, 16))
	m, store, _ := newTestManager(t, WithRandom(src))

	tok, err := m.Issue(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("ab", 16), tok.ID)
	assert.Equal(t, "alice", tok.AccountID)
	assert.True(t, tok.ExpiresAt.Equal(t0.Add(60*time.Minute)), "expires_at=%v", tok.ExpiresAt)
	assert.Nil(t, tok.LastUsedAt)
	assert.Equal(t, "alice", tok.CreatedBy)
	assert.True(t, tok.CreatedAt.Equal(t0))

	stored, err := store.Get(context.Background(), tok.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", stored.AccountID)
}

func TestIssue_ShortRandomFails(t *testing.T) {
	m, _, _ := newTestManager(t, WithRandom(bytes.NewReader([]byte{1, 2, 3})))
	_, err := m.Issue(context.Background(), "alice")
	assert.Error(t, err)
}

func TestIssue_DistinctIDs(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx := context.Background()

	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		tok, err := m.Issue(ctx, "alice")
		require.NoError(t, err)
		require.Len(t, tok.ID, 32)
		require.False(t, seen[tok.ID], "duplicate id %q", tok.ID)
		seen[tok.ID] = true
	}
}

func TestGet_NotFound(t *testing.T) {
	m, _, _ := newTestManager(t)
	for _, id := range []string{"", "nope"} {
		_, err := m.Get(context.Background(), id)
		assert.ErrorIs(t, err, ErrNotFound, "Get(%q)", id)
	}
}

func TestIsExpired_Boundary(t *testing.T) {
	m, _, clk := newTestManager(t)
	tok := Token{ExpiresAt: t0.Add(time.Minute)}

	assert.False(t, m.IsExpired(tok), "before expires_at")
	clk.Set(t0.Add(time.Minute))
	assert.True(t, m.IsExpired(tok), "exactly at expires_at")
}

func TestActiveTokens_ExcludesExpired(t *testing.T) {
	m, _, clk := newTestManager(t)
	ctx := context.Background()

	_, err := m.Issue(ctx, "alice")
	require.NoError(t, err)
	clk.Advance(30 * time.Minute)
	fresh, err := m.Issue(ctx, "alice")
	require.NoError(t, err)
	_, err = m.Issue(ctx, "bob")
	require.NoError(t, err)
	clk.Advance(31 * time.Minute)

	active, err := m.ActiveTokens(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, fresh.ID, active[0].ID)

	all, err := m.FindByAccount(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestMarkUsed_SetsLastUsedOnly(t *testing.T) {
	m, store, clk := newTestManager(t)
	ctx := context.Background()

	tok, err := m.Issue(ctx, "alice")
	require.NoError(t, err)
	clk.Advance(5 * time.Minute)
	want := t0.Add(5 * time.Minute)

	used, err := m.MarkUsed(ctx, tok)
	require.NoError(t, err)
	require.NotNil(t, used.LastUsedAt)
	assert.True(t, used.LastUsedAt.Equal(want))

	stored, err := store.Get(ctx, tok.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.LastUsedAt)
	assert.True(t, stored.LastUsedAt.Equal(want))
	assert.True(t, stored.ExpiresAt.Equal(tok.ExpiresAt), "expiry changed: %v", stored.ExpiresAt)
}

func TestMarkUsed_DoesNotUndoRevoke(t *testing.T) {
	m, store, clk := newTestManager(t)
	ctx := context.Background()

	tok, err := m.Issue(ctx, "alice")
	require.NoError(t, err)
	stale := tok

	_, err = m.Revoke(ctx, tok)
	require.NoError(t, err)
	clk.Advance(time.Minute)
	_, err = m.MarkUsed(ctx, stale)
	require.NoError(t, err)

	stored, err := store.Get(ctx, tok.ID)
	require.NoError(t, err)
	assert.True(t, stored.ExpiresAt.Equal(RevokedAt), "revocation undone: expires_at=%v", stored.ExpiresAt)
}

func TestMarkUsed_Unknown(t *testing.T) {
	m, _, _ := newTestManager(t)
	_, err := m.MarkUsed(context.Background(), Token{ID: "ghost"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRevoke_SetsSentinelAndIsIdempotent(t *testing.T) {
	m, store, clk := newTestManager(t)
	ctx := context.Background()

	tok, err := m.Issue(ctx, "alice")
	require.NoError(t, err)
	clk.Advance(2 * time.Minute)
	usedAt := t0.Add(2 * time.Minute)

	revoked, err := m.Revoke(ctx, tok)
	require.NoError(t, err)
	assert.True(t, revoked.ExpiresAt.Equal(RevokedAt))
	require.NotNil(t, revoked.LastUsedAt)
	assert.True(t, revoked.LastUsedAt.Equal(usedAt))
	assert.True(t, m.IsExpired(revoked), "revoked token must be expired")

	clk.Advance(time.Hour)
	again, err := m.Revoke(ctx, revoked)
	require.NoError(t, err)
	require.NotNil(t, again.LastUsedAt)
	assert.True(t, again.LastUsedAt.Equal(usedAt), "second revoke changed last used: %v", again.LastUsedAt)

	stored, err := store.Get(ctx, tok.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.LastUsedAt)
	assert.True(t, stored.LastUsedAt.Equal(usedAt))
}

func TestRevoke_Unknown(t *testing.T) {
	m, _, _ := newTestManager(t)
	_, err := m.Revoke(context.Background(), Token{ID: "ghost", ExpiresAt: t0.Add(time.Hour)})
	assert.ErrorIs(t, err, ErrNotFound)
}
