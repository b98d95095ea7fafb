package app

import (
	"errors"

	"kwlnk/cmd/security/token"
)

// ValidateSecurityConfig enforces the startup security policy.
//
// With RequireFingerprintKey set, token fingerprints written to logs must be
// keyed, so a missing or short KWLNK_TOKEN_FINGERPRINT_KEY fails startup.
func ValidateSecurityConfig(cfg Config) error {
	if !cfg.RequireFingerprintKey {
		return nil
	}

	if _, err := token.FingerprintKeyFromEnv(32); err != nil {
		switch {
		case errors.Is(err, token.ErrFingerprintKeyMissing):
			return errors.New("security policy: KWLNK_REQUIRE_FINGERPRINT_KEY=true but KWLNK_TOKEN_FINGERPRINT_KEY is missing")
		case errors.Is(err, token.ErrFingerprintKeyTooShort):
			return errors.New("security policy: KWLNK_REQUIRE_FINGERPRINT_KEY=true but KWLNK_TOKEN_FINGERPRINT_KEY is too short (min 32 bytes)")
		default:
			return err
		}
	}
	return nil
}
