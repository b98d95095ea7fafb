package links

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps links in process memory. Uniqueness is checked under
// the store mutex.
type MemoryStore struct {
	mu    sync.Mutex
	links map[string]Link
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{links: make(map[string]Link)}
}

// Exists reports whether key is taken.
func (s *MemoryStore) Exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.links[key]
	return ok, nil
}

// Get returns the link stored under key or ErrLinkNotFound.
func (s *MemoryStore) Get(ctx context.Context, key string) (Link, error) {
	if err := ctx.Err(); err != nil {
		return Link{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.links[key]
	if !ok {
		return Link{}, ErrLinkNotFound
	}
	return cloneLink(l), nil
}

// Insert adds a link; a taken key is ErrKeyAlreadyExists.
func (s *MemoryStore) Insert(ctx context.Context, l Link) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.links[l.Key]; ok {
		return ErrKeyAlreadyExists
	}
	s.links[l.Key] = cloneLink(l)
	return nil
}

// Update replaces an existing link.
func (s *MemoryStore) Update(ctx context.Context, l Link) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.links[l.Key]; !ok {
		return ErrLinkNotFound
	}
	s.links[l.Key] = cloneLink(l)
	return nil
}

// Delete removes the link stored under key.
func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.links[key]; !ok {
		return ErrLinkNotFound
	}
	delete(s.links, key)
	return nil
}

// List returns links ordered by key, windowed by opts.
func (s *MemoryStore) List(ctx context.Context, opts ListOptions) ([]Link, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	out := make([]Link, 0, len(s.links))
	for _, l := range s.links {
		out = append(out, cloneLink(l))
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	if opts.Offset > 0 {
		if opts.Offset >= len(out) {
			return []Link{}, nil
		}
		out = out[opts.Offset:]
	}
	if opts.Limit > 0 && opts.Limit < len(out) {
		out = out[:opts.Limit]
	}
	return out, nil
}

// Count returns the number of stored links.
func (s *MemoryStore) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.links), nil
}

func cloneLink(l Link) Link {
	if l.ExpiresAt != nil {
		v := *l.ExpiresAt
		l.ExpiresAt = &v
	}
	return l
}

func timePtr(t time.Time) *time.Time { return &t }
