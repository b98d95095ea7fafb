package password

import (
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"kwlnk/cmd/security/random"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

const (
	argon2Version = 19 // argon2.Version is 0x13 (19)
)

// Hasher hashes new passwords with Argon2id and verifies stored hashes.
type Hasher struct {
	cfg  Config
	rand random.Source
}

// HasherOption configures a Hasher.
type HasherOption func(*Hasher)

// WithRandom overrides the salt source.
func WithRandom(src random.Source) HasherOption {
	return func(h *Hasher) {
		if src != nil {
			h.rand = src
		}
	}
}

// NewHasher returns a Hasher for cfg.
func NewHasher(cfg Config, opts ...HasherOption) *Hasher {
	h := &Hasher{cfg: cfg, rand: random.Reader}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Config returns the hasher configuration.
func (h *Hasher) Config() Config { return h.cfg }

// Validate checks plain against the configured policy.
func (h *Hasher) Validate(plain string) error { return h.cfg.Validate(plain) }

// Hash hashes a password using Argon2id and returns the encoded hash string.
// Policy is not applied here; call Validate on user input first.
func (h *Hasher) Hash(plain string) (string, error) {
	if plain == "" {
		return "", ErrEmptyPassword
	}

	p := h.cfg.Params
	salt, err := random.Bytes(h.rand, int(p.SaltLength))
	if err != nil {
		return "", fmt.Errorf("salt: %w", err)
	}

	key := argon2.IDKey([]byte(plain), salt, p.Iterations, p.MemoryKiB, p.Parallelism, p.KeyLength)

	b64 := base64.RawStdEncoding
	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2Version,
		p.MemoryKiB,
		p.Iterations,
		p.Parallelism,
		b64.EncodeToString(salt),
		b64.EncodeToString(key),
	), nil
}

// Verify reports whether plain matches encodedHash. A malformed or
// unsupported hash is a mismatch.
func (h *Hasher) Verify(plain, encodedHash string) bool {
	if isBcrypt(encodedHash) {
		return bcrypt.CompareHashAndPassword([]byte(encodedHash), []byte(plain)) == nil
	}
	ok, err := h.verifyArgon2id(encodedHash, plain)
	return err == nil && ok
}

// IsAlreadyHashed reports whether v is a hash this package can verify:
// an Argon2id PHC string whose parameters Verify accepts, or a bcrypt hash
// with a parseable cost.
func (h *Hasher) IsAlreadyHashed(v string) bool {
	if isBcrypt(v) {
		_, err := bcrypt.Cost([]byte(v))
		return err == nil
	}
	_, _, _, err := h.decodeVerifiable(v)
	return err == nil
}

// NeedsRehash reports whether encodedHash should be replaced by a fresh
// Argon2id hash with the current parameters.
func (h *Hasher) NeedsRehash(encodedHash string) bool {
	if isBcrypt(encodedHash) {
		return true
	}
	params, _, _, err := h.decodeVerifiable(encodedHash)
	if err != nil {
		return true
	}
	want := h.cfg.Params
	return params.MemoryKiB != want.MemoryKiB ||
		params.Iterations != want.Iterations ||
		params.Parallelism != want.Parallelism
}

// verifyArgon2id returns (true, nil) for a match, (false, nil) for mismatch,
// and (false, ErrInvalidHash) for malformed or out-of-bounds hashes.
func (h *Hasher) verifyArgon2id(encodedHash, plain string) (bool, error) {
	params, salt, expected, err := h.decodeVerifiable(encodedHash)
	if err != nil {
		return false, err
	}

	key := argon2.IDKey(
		[]byte(plain),
		salt,
		params.Iterations,
		params.MemoryKiB,
		params.Parallelism,
		uint32(len(expected)), // #nosec G115 -- bounded by withinReasonableBounds.
	)

	return subtle.ConstantTimeCompare(key, expected) == 1, nil
}

func isBcrypt(s string) bool {
	return strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$")
}

// decodeVerifiable is decode plus the bounds Verify enforces.
func (h *Hasher) decodeVerifiable(encoded string) (Argon2idParams, []byte, []byte, error) {
	params, salt, hash, err := decode(encoded)
	if err != nil {
		return Argon2idParams{}, nil, nil, err
	}
	if !withinReasonableBounds(params, h.cfg.Params) {
		return Argon2idParams{}, nil, nil, ErrInvalidHash
	}
	return params, salt, hash, nil
}

// withinReasonableBounds accepts hashes made with older or smaller settings
// and rejects wildly larger ones.
func withinReasonableBounds(got Argon2idParams, limits Argon2idParams) bool {
	if got.MemoryKiB > limits.MemoryKiB*2 {
		return false
	}
	if got.Iterations > limits.Iterations*2 {
		return false
	}
	if got.Parallelism > limits.Parallelism*2 {
		return false
	}
	if got.SaltLength < 8 || got.SaltLength > 64 {
		return false
	}
	if got.KeyLength < 16 || got.KeyLength > 128 {
		return false
	}
	return true
}

// decode parses $argon2id$v=19$m=65536,t=3,p=1$<salt>$<hash>.
func decode(encoded string) (Argon2idParams, []byte, []byte, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return Argon2idParams{}, nil, nil, ErrInvalidHash
	}
	if parts[2] != fmt.Sprintf("v=%d", argon2Version) {
		return Argon2idParams{}, nil, nil, ErrInvalidHash
	}

	var mem, it, par uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &mem, &it, &par); err != nil {
		return Argon2idParams{}, nil, nil, ErrInvalidHash
	}
	if mem == 0 || it == 0 || par == 0 || par > 255 {
		return Argon2idParams{}, nil, nil, ErrInvalidHash
	}

	b64 := base64.RawStdEncoding
	salt, err := b64.DecodeString(parts[4])
	if err != nil || len(salt) == 0 {
		return Argon2idParams{}, nil, nil, ErrInvalidHash
	}
	hash, err := b64.DecodeString(parts[5])
	if err != nil || len(hash) == 0 {
		return Argon2idParams{}, nil, nil, ErrInvalidHash
	}

	params := Argon2idParams{
		MemoryKiB:   mem,
		Iterations:  it,
		Parallelism: uint8(par),        // #nosec G115 -- checked <= 255 above.
		SaltLength:  uint32(len(salt)), // #nosec G115 -- decoded from a bounded string.
		KeyLength:   uint32(len(hash)), // #nosec G115 -- decoded from a bounded string.
	}

	return params, salt, hash, nil
}
