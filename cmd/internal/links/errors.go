package links

import (
	"errors"

	"kwlnk/cmd/identity"
)

var (
	// ErrKeyAlreadyExists is returned when a caller supplied key is taken.
	ErrKeyAlreadyExists = errors.New("key already exists")

	// ErrKeyGenerationExhausted is returned when every attempt in the retry
	// budget produced a key that was already taken.
	ErrKeyGenerationExhausted = errors.New("key generation exhausted")

	ErrLinkNotFound = errors.New("link not found")
	ErrLinkExpired  = errors.New("link expired")

	// ErrInvalidInput is the kind carried by validation failures.
	ErrInvalidInput = errors.New("invalid_input")

	// ErrConfig is returned for invalid key generator configuration.
	ErrConfig = errors.New("invalid config")
)

func invalid(op, msg string) error {
	return identity.OpError{Op: op, Kind: ErrInvalidInput, Msg: msg}
}
