package links

import "context"

// Store is the link persistence boundary.
//
// Insert returns ErrKeyAlreadyExists when the key is taken; this is the
// uniqueness guarantee KeyGenerator relies on. Get, Update and Delete return
// ErrLinkNotFound for unknown keys.
type Store interface {
	KeyChecker
	Get(ctx context.Context, key string) (Link, error)
	Insert(ctx context.Context, l Link) error
	Update(ctx context.Context, l Link) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, opts ListOptions) ([]Link, error)
	Count(ctx context.Context) (int, error)
}
