package tokens

import (
	"time"

	"kwlnk/cmd/identity"
)

// RevokedAt is the expires_at value written by revocation.
var RevokedAt = time.Date(1993, time.April, 29, 0, 0, 0, 0, time.UTC)

// Token is a bearer token bound to one account.
type Token struct {
	ID         string
	AccountID  string
	ExpiresAt  time.Time
	LastUsedAt *time.Time
	identity.Provenance
}

// IsExpired reports whether t is no longer usable at now.
func (t Token) IsExpired(now time.Time) bool {
	return !t.ExpiresAt.After(now)
}

// IsRevoked reports whether t carries the revocation sentinel.
func (t Token) IsRevoked() bool {
	return t.ExpiresAt.Equal(RevokedAt)
}
