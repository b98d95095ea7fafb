package tokens

import (
	"os"
	"strconv"
	"time"
)

// Config defines runtime configuration for token issuance.
type Config struct {
	// DefaultTTL is added to the issue time to compute expires_at.
	DefaultTTL time.Duration

	// IDBytes is the number of random bytes in a token id before hex
	// encoding. Never fewer than 16.
	IDBytes int
}

const (
	minIDBytes = 16
	maxIDBytes = 64
)

// DefaultConfig returns the default token configuration: one hour tokens
// with 16 byte ids.
func DefaultConfig() Config {
	return Config{
		DefaultTTL: 60 * time.Minute,
		IDBytes:    minIDBytes,
	}
}

// Validate reports ErrConfig when a field is out of range.
func (c Config) Validate() error {
	if c.DefaultTTL <= 0 {
		return ErrConfig
	}
	if c.IDBytes < minIDBytes || c.IDBytes > maxIDBytes {
		return ErrConfig
	}
	return nil
}

// LoadConfigFromEnv loads token configuration from environment variables.
//
// Optional:
//   - KWLNK_TOKEN_TTL (Go duration, > 0)
//   - KWLNK_TOKEN_ID_BYTES (16..64)
//
// Returns ErrConfig if configuration is invalid.
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v := os.Getenv("KWLNK_TOKEN_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, ErrConfig
		}
		cfg.DefaultTTL = d
	}

	if v := os.Getenv("KWLNK_TOKEN_ID_BYTES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < minIDBytes || n > maxIDBytes {
			return Config{}, ErrConfig
		}
		cfg.IDBytes = n
	}

	return cfg, nil
}
