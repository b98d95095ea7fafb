package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"strings"
)

const (
	// FingerprintKeyEnv names the optional HMAC key for log fingerprints.
	// #nosec G101 -- not a credential; it's an environment variable name.
	FingerprintKeyEnv = "KWLNK_TOKEN_FINGERPRINT_KEY"

	// FingerprintLen is the number of hex characters kept in a fingerprint.
	FingerprintLen = 12
)

// HashSHA256Hex returns a SHA-256 hex digest of s.
func HashSHA256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// HashHMACSHA256Hex returns an HMAC-SHA256 hex digest of s using key.
func HashHMACSHA256Hex(s string, key []byte) string {
	m := hmac.New(sha256.New, key)
	_, _ = m.Write([]byte(s))
	return hex.EncodeToString(m.Sum(nil))
}

// FingerprintKeyFromEnv returns the configured fingerprint key, enforcing a minimum byte length.
// A missing or blank variable yields ErrFingerprintKeyMissing; a short one ErrFingerprintKeyTooShort.
func FingerprintKeyFromEnv(minBytes int) ([]byte, error) {
	raw := strings.TrimSpace(os.Getenv(FingerprintKeyEnv))
	if raw == "" {
		return nil, ErrFingerprintKeyMissing
	}
	if minBytes > 0 && len(raw) < minBytes {
		return nil, ErrFingerprintKeyTooShort
	}
	return []byte(raw), nil
}

// Fingerprint returns a short, stable, non-reversible label for a bearer token,
// safe to put in logs. With KWLNK_TOKEN_FINGERPRINT_KEY set it is keyed (HMAC),
// otherwise a plain SHA-256 prefix.
func Fingerprint(tok string) string {
	if tok == "" {
		return ""
	}
	var sum string
	if key := strings.TrimSpace(os.Getenv(FingerprintKeyEnv)); key != "" {
		sum = HashHMACSHA256Hex(tok, []byte(key))
	} else {
		sum = HashSHA256Hex(tok)
	}
	return sum[:FingerprintLen]
}
