package links

import (
	"context"
	"fmt"
	"math/bits"

	"kwlnk/cmd/security/random"
)

// DefaultAlphabet is the default key alphabet.
const DefaultAlphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// KeyGenConfig controls generated keys.
type KeyGenConfig struct {
	Length      int
	Alphabet    string
	MaxAttempts int
}

// DefaultKeyGenConfig returns 8 character keys over DefaultAlphabet with up
// to 10 attempts.
func DefaultKeyGenConfig() KeyGenConfig {
	return KeyGenConfig{Length: 8, Alphabet: DefaultAlphabet, MaxAttempts: 10}
}

// Validate wraps ErrConfig when a field is out of range.
func (c KeyGenConfig) Validate() error {
	switch {
	case c.Length < 1:
		return fmt.Errorf("%w: key length must be >= 1", ErrConfig)
	case len([]rune(c.Alphabet)) == 0:
		return fmt.Errorf("%w: key alphabet must not be empty", ErrConfig)
	case len([]rune(c.Alphabet)) >= 1<<16:
		return fmt.Errorf("%w: key alphabet too large", ErrConfig)
	case c.MaxAttempts < 1:
		return fmt.Errorf("%w: max key generation attempts must be >= 1", ErrConfig)
	}
	return nil
}

// KeyChecker reports whether a key is already taken.
type KeyChecker interface {
	Exists(ctx context.Context, key string) (bool, error)
}

// KeyGenerator produces keys that were free when checked. The store's
// unique constraint settles races between the check and the insert.
type KeyGenerator struct {
	cfg      KeyGenConfig
	alphabet []rune
	mask     uint16
	width    int
	rand     random.Source
	checker  KeyChecker
}

// NewKeyGenerator validates cfg and builds a generator. A nil src uses
// crypto/rand.
func NewKeyGenerator(cfg KeyGenConfig, src random.Source, checker KeyChecker) (*KeyGenerator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if checker == nil {
		return nil, fmt.Errorf("links: nil key checker")
	}

	alphabet := []rune(cfg.Alphabet)
	n := len(alphabet)
	width := 1
	if n > 256 {
		width = 2
	}
	var mask uint16
	if n > 1 {
		mask = uint16(1)<<bits.Len(uint(n-1)) - 1
	}

	return &KeyGenerator{
		cfg:      cfg,
		alphabet: alphabet,
		mask:     mask,
		width:    width,
		rand:     random.OrDefault(src),
		checker:  checker,
	}, nil
}

// Config returns the generator configuration.
func (g *KeyGenerator) Config() KeyGenConfig { return g.cfg }

// Generate returns a key that is not in use.
//
// A non-empty override is checked as is: if taken, ErrKeyAlreadyExists is
// returned without drawing any randomness. Otherwise random candidates are
// drawn until a free one is found or MaxAttempts is spent, which gives
// ErrKeyGenerationExhausted.
func (g *KeyGenerator) Generate(ctx context.Context, override string) (string, error) {
	key, _, err := g.generate(ctx, override, g.cfg.MaxAttempts)
	return key, err
}

// generate is Generate with an explicit budget; it also reports how many
// random candidates were drawn.
func (g *KeyGenerator) generate(ctx context.Context, override string, budget int) (string, int, error) {
	if override != "" {
		taken, err := g.checker.Exists(ctx, override)
		if err != nil {
			return "", 0, err
		}
		if taken {
			return "", 0, ErrKeyAlreadyExists
		}
		return override, 0, nil
	}

	for attempt := 1; attempt <= budget; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", attempt - 1, err
		}
		candidate, err := g.draw()
		if err != nil {
			return "", attempt, err
		}
		taken, err := g.checker.Exists(ctx, candidate)
		if err != nil {
			return "", attempt, err
		}
		if !taken {
			return candidate, attempt, nil
		}
	}
	return "", budget, ErrKeyGenerationExhausted
}

// draw builds one candidate by rejection sampling: each character reads
// width bytes, masks them to the smallest power of two covering the
// alphabet, and retries values past its end.
func (g *KeyGenerator) draw() (string, error) {
	buf, err := random.Bytes(g.rand, g.cfg.Length*g.width)
	if err != nil {
		return "", err
	}

	out := make([]rune, 0, g.cfg.Length)
	n := uint16(len(g.alphabet))
	for len(out) < g.cfg.Length {
		if len(buf) < g.width {
			buf, err = random.Bytes(g.rand, g.width)
			if err != nil {
				return "", err
			}
		}
		v := uint16(buf[0])
		if g.width == 2 {
			v = v<<8 | uint16(buf[1])
		}
		buf = buf[g.width:]

		v &= g.mask
		if v < n {
			out = append(out, g.alphabet[v])
		}
	}
	return string(out), nil
}
