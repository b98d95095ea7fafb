// Package ids generates ULID identifiers for request correlation and test
// fixtures.
package ids

import (
	"crypto/rand"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	entropyMu sync.Mutex
	entropy   io.Reader = ulid.Monotonic(rand.Reader, 0)
)

// New returns a ULID string (26 chars) for now. ULIDs generated within the
// same millisecond sort in creation order.
func New(now time.Time) (string, error) {
	if now.IsZero() {
		now = time.Now().UTC()
	}

	entropyMu.Lock()
	defer entropyMu.Unlock()

	id, err := ulid.New(ulid.Timestamp(now), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// MustNew is New(time.Now()) for callers that cannot recover from an
// entropy failure.
func MustNew() string {
	id, err := New(time.Now().UTC())
	if err != nil {
		panic(err)
	}
	return id
}

// Valid reports whether s parses as a ULID.
func Valid(s string) bool {
	_, err := ulid.ParseStrict(s)
	return err == nil
}
