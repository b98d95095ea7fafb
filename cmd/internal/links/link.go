package links

import (
	"time"

	"kwlnk/cmd/identity"
)

// Link maps a short key to a target URI.
type Link struct {
	Key       string
	URI       string
	ExpiresAt *time.Time
	identity.Provenance
}

// IsExpired reports whether l has an expiry strictly before now. Links
// without an expiry never expire.
func (l Link) IsExpired(now time.Time) bool {
	return l.ExpiresAt != nil && l.ExpiresAt.Before(now)
}

// ListOptions selects a window of a listing ordered by key.
type ListOptions = identity.ListOptions
