package tokens

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps tokens in process memory.
type MemoryStore struct {
	mu     sync.Mutex
	tokens map[string]Token
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tokens: make(map[string]Token)}
}

// Get returns the token with id or ErrNotFound.
func (s *MemoryStore) Get(ctx context.Context, id string) (Token, error) {
	if err := ctx.Err(); err != nil {
		return Token{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tokens[id]
	if !ok {
		return Token{}, ErrNotFound
	}
	return cloneToken(t), nil
}

// Insert adds a token; a taken id wraps ErrConflict.
func (s *MemoryStore) Insert(ctx context.Context, t Token) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tokens[t.ID]; exists {
		return fmt.Errorf("tokens.Insert: %w", ErrConflict)
	}
	s.tokens[t.ID] = cloneToken(t)
	return nil
}

// Update replaces an existing token.
func (s *MemoryStore) Update(ctx context.Context, t Token) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tokens[t.ID]; !exists {
		return ErrNotFound
	}
	s.tokens[t.ID] = cloneToken(t)
	return nil
}

// UpdateLastUsed sets last_used_at and nothing else.
func (s *MemoryStore) UpdateLastUsed(ctx context.Context, id string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	t, exists := s.tokens[id]
	if !exists {
		return ErrNotFound
	}
	t.LastUsedAt = &at
	s.tokens[id] = t
	return nil
}

// ListByAccount returns every token of accountID, expired ones included.
func (s *MemoryStore) ListByAccount(ctx context.Context, accountID string) ([]Token, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	out := make([]Token, 0)
	for _, t := range s.tokens {
		if t.AccountID == accountID {
			out = append(out, cloneToken(t))
		}
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func cloneToken(t Token) Token {
	if t.LastUsedAt != nil {
		v := *t.LastUsedAt
		t.LastUsedAt = &v
	}
	return t
}
