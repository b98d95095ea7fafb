package identity

import "context"

// ListOptions selects a window of a listing. Limit <= 0 means no limit.
type ListOptions struct {
	Offset int
	Limit  int
}

// Store is the account persistence boundary.
//
// Insert fails with a ConflictError when the id is taken; Get, Update and
// Delete fail with ErrNotFound for unknown ids. List returns accounts ordered
// by id.
type Store interface {
	Get(ctx context.Context, id string) (Account, error)
	Insert(ctx context.Context, a Account) error
	Update(ctx context.Context, a Account) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, opts ListOptions) ([]Account, error)
	Count(ctx context.Context) (int, error)
}
