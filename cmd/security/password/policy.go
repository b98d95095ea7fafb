package password

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

var trivialPasswords = map[string]struct{}{
	"password":    {},
	"password123": {},
	"12345678":    {},
	"123456789":   {},
	"qwerty123":   {},
	"qwertyuiop":  {},
	"11111111":    {},
	"kwlnk123":    {},
}

// Validate checks plain against the policy. Length is counted in runes.
func (c Config) Validate(plain string) error {
	if plain == "" {
		return ErrEmptyPassword
	}

	n := utf8.RuneCountInString(plain)
	if n < c.Policy.MinLength {
		return ErrPasswordTooShort
	}
	if c.Policy.MaxLength > 0 && n > c.Policy.MaxLength {
		return ErrPasswordTooLong
	}
	if c.Policy.RejectVeryWeak && looksVeryWeak(plain) {
		return ErrWeakPassword
	}
	return nil
}

// looksVeryWeak catches a repeated single character, short all-digit PINs
// and a handful of well-known passwords. It is not a strength estimator.
func looksVeryWeak(pw string) bool {
	s := strings.TrimSpace(pw)
	if s == "" {
		return true
	}
	if _, ok := trivialPasswords[strings.ToLower(s)]; ok {
		return true
	}

	first, _ := utf8.DecodeRuneInString(s)
	sameChar, digits := true, true
	for _, r := range s {
		if r != first {
			sameChar = false
		}
		if !unicode.IsDigit(r) {
			digits = false
		}
	}
	return sameChar || (digits && utf8.RuneCountInString(s) < 12)
}
