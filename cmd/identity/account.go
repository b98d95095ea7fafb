package identity

import (
	"fmt"
	"regexp"
	"strings"
)

// BootstrapActor is the attribution used for accounts created outside any
// authenticated request (CLI bootstrap).
const BootstrapActor = "default_administrator"

// SelfAlias is the reserved account id that addresses the calling account.
const SelfAlias = "me"

// DefaultIDPattern is the account id pattern used when none is configured.
const DefaultIDPattern = `^[a-zA-Z0-9_\-]*$`

// Account is an administrator allowed to manage links.
type Account struct {
	ID           string
	PasswordHash string
	Disabled     bool
	Provenance
}

// PasswordHasher is what SetPassword needs from security/password.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	IsAlreadyHashed(v string) bool
}

// SetPassword stores value as the account password hash. Values already in
// a recognised hash format are stored as is; anything else is hashed.
func (a *Account) SetPassword(h PasswordHasher, value string) error {
	if h.IsAlreadyHashed(value) {
		a.PasswordHash = value
		return nil
	}
	hashed, err := h.Hash(value)
	if err != nil {
		return fmt.Errorf("identity: hash password: %w", err)
	}
	a.PasswordHash = hashed
	return nil
}

// IDPolicy validates account ids.
type IDPolicy struct {
	re *regexp.Regexp
}

// NewIDPolicy compiles pattern; an empty pattern means DefaultIDPattern.
func NewIDPolicy(pattern string) (IDPolicy, error) {
	if strings.TrimSpace(pattern) == "" {
		pattern = DefaultIDPattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return IDPolicy{}, fmt.Errorf("identity: account id pattern: %w", err)
	}
	return IDPolicy{re: re}, nil
}

// DefaultIDPolicy returns the policy for DefaultIDPattern.
func DefaultIDPolicy() IDPolicy {
	return IDPolicy{re: regexp.MustCompile(DefaultIDPattern)}
}

// Validate checks an id used to look up an existing account.
func (p IDPolicy) Validate(id string) error {
	const op = "identity.ValidateID"

	if id == "" {
		return invalid(op, "id is required")
	}
	if len(id) > 255 {
		return invalid(op, "id is too long")
	}
	re := p.re
	if re == nil {
		re = DefaultIDPolicy().re
	}
	if !re.MatchString(id) {
		return invalid(op, "id has an invalid format")
	}
	return nil
}

// ValidateNew checks an id for a new account; the self alias is reserved.
func (p IDPolicy) ValidateNew(id string) error {
	if err := p.Validate(id); err != nil {
		return err
	}
	if strings.EqualFold(id, SelfAlias) {
		return invalid("identity.ValidateID", "id is reserved")
	}
	return nil
}

// NormalizeID trims surrounding whitespace. Ids are case sensitive.
func NormalizeID(s string) string {
	return strings.TrimSpace(s)
}
