package identity

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore keeps accounts in process memory. It is the development
// fallback when no database is configured.
type MemoryStore struct {
	mu       sync.Mutex
	accounts map[string]Account
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{accounts: make(map[string]Account)}
}

// Get returns the account with id or a NotFoundError.
func (s *MemoryStore) Get(ctx context.Context, id string) (Account, error) {
	if err := ctx.Err(); err != nil {
		return Account{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[id]
	if !ok {
		return Account{}, NotFoundError{Op: "identity.Get", Resource: "account"}
	}
	return a, nil
}

// Insert adds a new account; a taken id is a ConflictError.
func (s *MemoryStore) Insert(ctx context.Context, a Account) error {
	const op = "identity.Insert"
	if err := ctx.Err(); err != nil {
		return err
	}
	if a.ID == "" {
		return invalid(op, "missing id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.accounts[a.ID]; exists {
		return ConflictError{Op: op, Field: "id"}
	}
	s.accounts[a.ID] = a
	return nil
}

// Update replaces an existing account.
func (s *MemoryStore) Update(ctx context.Context, a Account) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.accounts[a.ID]; !exists {
		return NotFoundError{Op: "identity.Update", Resource: "account"}
	}
	s.accounts[a.ID] = a
	return nil
}

// Delete removes the account with id.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.accounts[id]; !exists {
		return NotFoundError{Op: "identity.Delete", Resource: "account"}
	}
	delete(s.accounts, id)
	return nil
}

// List returns accounts ordered by id, windowed by opts.
func (s *MemoryStore) List(ctx context.Context, opts ListOptions) ([]Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	out := make([]Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		out = append(out, a)
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return window(out, opts), nil
}

// Count returns the number of stored accounts.
func (s *MemoryStore) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.accounts), nil
}

func window[T any](items []T, opts ListOptions) []T {
	if opts.Offset > 0 {
		if opts.Offset >= len(items) {
			return []T{}
		}
		items = items[opts.Offset:]
	}
	if opts.Limit > 0 && opts.Limit < len(items) {
		items = items[:opts.Limit]
	}
	return items
}
