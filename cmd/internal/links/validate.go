package links

import (
	"net/url"
	"regexp"
	"strings"
	"time"
)

const maxKeyLength = 255

var keyRe = regexp.MustCompile(`^[A-Za-z0-9_\-]+$`)

// ValidateKey checks a caller supplied key. Keys are path segments, so only
// URL-safe characters are allowed.
func ValidateKey(key string) error {
	const op = "links.ValidateKey"

	if key == "" {
		return invalid(op, "key is required")
	}
	if len(key) > maxKeyLength {
		return invalid(op, "key is too long")
	}
	if !keyRe.MatchString(key) {
		return invalid(op, "key may only contain letters, digits, '-' and '_'")
	}
	return nil
}

// ValidateURI checks that raw is an absolute URL with a scheme and host.
func ValidateURI(raw string) error {
	const op = "links.ValidateURI"

	raw = strings.TrimSpace(raw)
	if raw == "" {
		return invalid(op, "uri is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return invalid(op, "uri is not a valid URL")
	}
	if u.Scheme == "" || u.Host == "" {
		return invalid(op, "uri must be absolute")
	}
	return nil
}

// ExpiryFromTTL converts a TTL in minutes into an expiry. Zero means the
// link never expires; negative values are rejected.
func ExpiryFromTTL(now time.Time, minutes int) (*time.Time, error) {
	if minutes < 0 {
		return nil, invalid("links.ExpiryFromTTL", "ttl_minutes must not be negative")
	}
	if minutes == 0 {
		return nil, nil
	}
	v := now.Add(time.Duration(minutes) * time.Minute)
	return &v, nil
}
