package password

import (
	"fmt"
	"math"
	"os"
	"runtime"
	"strconv"
	"strings"
)

// Argon2idParams controls Argon2id hashing cost.
// MemoryKiB is in KiB as required by argon2.IDKey.
type Argon2idParams struct {
	MemoryKiB   uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// Policy controls password validation for new account passwords.
type Policy struct {
	MinLength int
	MaxLength int
	// If true, enable an extra, minimal weak-pattern rejection.
	RejectVeryWeak bool
}

// Config is the single configuration surface for this package.
type Config struct {
	Params Argon2idParams
	Policy Policy
}

// DefaultConfig returns the baseline used for account passwords.
func DefaultConfig() Config {
	// Parallelism follows the CPU count, clamped to [1..4].
	threads := runtime.NumCPU()
	if threads <= 0 {
		threads = 1
	}
	if threads > 4 {
		threads = 4
	}

	return Config{
		Params: Argon2idParams{
			MemoryKiB:   64 * 1024,
			Iterations:  3,
			Parallelism: uint8(threads), // #nosec G115 -- clamped to [1..4] above.
			SaltLength:  16,
			KeyLength:   32,
		},
		Policy: Policy{
			MinLength: 8,
			MaxLength: 256,
		},
	}
}

// FromEnv loads config from environment variables on top of DefaultConfig.
//
// Env surface:
//   - KWLNK_PASSWORD_MIN_LEN, KWLNK_PASSWORD_MAX_LEN
//   - KWLNK_PASSWORD_REJECT_VERY_WEAK (true/false)
//   - KWLNK_ARGON2_MEMORY_KIB, KWLNK_ARGON2_ITERATIONS, KWLNK_ARGON2_PARALLELISM
//   - KWLNK_ARGON2_SALT_LEN, KWLNK_ARGON2_KEY_LEN
//
// Every failure wraps ErrConfig and names the offending variable.
func FromEnv() (Config, error) {
	cfg := DefaultConfig()

	ints := []struct {
		key      string
		min, max int
		dst      *int
	}{
		{"KWLNK_PASSWORD_MIN_LEN", 1, 1024, &cfg.Policy.MinLength},
		{"KWLNK_PASSWORD_MAX_LEN", 1, 4096, &cfg.Policy.MaxLength},
	}
	for _, f := range ints {
		v, ok := os.LookupEnv(f.key)
		if !ok {
			continue
		}
		n, err := atoiPositiveInt(v, f.min, f.max)
		if err != nil {
			return Config{}, fmt.Errorf("%w: %s: %v", ErrConfig, f.key, err)
		}
		*f.dst = n
	}

	if v, ok := os.LookupEnv("KWLNK_PASSWORD_REJECT_VERY_WEAK"); ok {
		b, err := parseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("%w: KWLNK_PASSWORD_REJECT_VERY_WEAK: %v", ErrConfig, err)
		}
		cfg.Policy.RejectVeryWeak = b
	}

	u32s := []struct {
		key      string
		min, max uint32
		dst      *uint32
	}{
		{"KWLNK_ARGON2_MEMORY_KIB", 8 * 1024, 1024 * 1024, &cfg.Params.MemoryKiB},
		{"KWLNK_ARGON2_ITERATIONS", 1, 20, &cfg.Params.Iterations},
		{"KWLNK_ARGON2_SALT_LEN", 8, 64, &cfg.Params.SaltLength},
		{"KWLNK_ARGON2_KEY_LEN", 16, 64, &cfg.Params.KeyLength},
	}
	for _, f := range u32s {
		v, ok := os.LookupEnv(f.key)
		if !ok {
			continue
		}
		u, err := atou32(v, f.min, f.max)
		if err != nil {
			return Config{}, fmt.Errorf("%w: %s: %v", ErrConfig, f.key, err)
		}
		*f.dst = u
	}

	if v, ok := os.LookupEnv("KWLNK_ARGON2_PARALLELISM"); ok {
		u, err := atou32(v, 1, 64)
		if err == nil {
			var p uint8
			p, err = u32ToU8(u)
			cfg.Params.Parallelism = p
		}
		if err != nil {
			return Config{}, fmt.Errorf("%w: KWLNK_ARGON2_PARALLELISM: %v", ErrConfig, err)
		}
	}

	if cfg.Policy.MinLength > cfg.Policy.MaxLength {
		return Config{}, fmt.Errorf(
			"%w: password policy min_len(%d) > max_len(%d)",
			ErrConfig,
			cfg.Policy.MinLength,
			cfg.Policy.MaxLength,
		)
	}

	return cfg, nil
}

func atoiPositiveInt(s string, minVal, maxVal int) (int, error) {
	s = strings.TrimSpace(s)
	i64, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("not an integer")
	}

	i := int(i64)
	if i < minVal || i > maxVal {
		return 0, fmt.Errorf("out of range [%d..%d]", minVal, maxVal)
	}
	return i, nil
}

func atou32(s string, minVal, maxVal uint32) (uint32, error) {
	s = strings.TrimSpace(s)
	u64, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("not an unsigned integer")
	}

	u := uint32(u64)
	if u < minVal || u > maxVal {
		return 0, fmt.Errorf("out of range [%d..%d]", minVal, maxVal)
	}
	return u, nil
}

func u32ToU8(u uint32) (uint8, error) {
	if u > math.MaxUint8 {
		return 0, fmt.Errorf("out of range [0..%d]", math.MaxUint8)
	}
	return uint8(u), nil
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean")
	}
}
