// Package identity holds KwLnk accounts: the Account record, its provenance
// stamps, id validation, and the persistence boundary with in-memory and
// Postgres implementations.
//
// Errors carry a stable kind (ErrNotFound, ErrConflict, ErrInvalidInput) so
// callers can map them with errors.Is without parsing messages.
package identity
