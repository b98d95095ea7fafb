package security

import "errors"

var (
	ErrAccountNotFound   = errors.New("account not found")
	ErrAccountDisabled   = errors.New("account disabled")
	ErrPasswordIncorrect = errors.New("password incorrect")
	ErrTokenNotFound     = errors.New("token not found")
	ErrTokenExpired      = errors.New("token expired")

	// ErrNotAuthenticated is returned by identity accessors and Deauth on an
	// unauthenticated Context.
	ErrNotAuthenticated = errors.New("not authenticated")
)
