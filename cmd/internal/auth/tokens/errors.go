package tokens

import "errors"

var (
	// ErrNotFound is returned when no token row matches the id.
	ErrNotFound = errors.New("token not found")

	// ErrConflict is returned when a token id is already taken.
	ErrConflict = errors.New("token id conflict")

	// ErrConfig is returned for invalid configuration.
	ErrConfig = errors.New("invalid config")
)
