package tokens

import (
	"context"
	"time"
)

// Store abstracts persistence for tokens.
//
// Get returns ErrNotFound for unknown ids. Insert returns ErrConflict when
// the id is taken. UpdateLastUsed writes last_used_at only and must not touch
// expires_at so a concurrent revocation is never undone.
type Store interface {
	Get(ctx context.Context, id string) (Token, error)
	Insert(ctx context.Context, t Token) error
	Update(ctx context.Context, t Token) error
	UpdateLastUsed(ctx context.Context, id string, at time.Time) error
	ListByAccount(ctx context.Context, accountID string) ([]Token, error)
}
