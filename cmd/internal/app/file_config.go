package app

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"kwlnk/cmd/identity"
	"kwlnk/cmd/internal/auth/tokens"
	"kwlnk/cmd/internal/links"
)

// ErrConfig is returned for an invalid application config file.
var ErrConfig = errors.New("invalid app config")

// FileConfig is the optional application config file. Every key is
// optional; zero values keep the built-in defaults. JSON files load too.
type FileConfig struct {
	App struct {
		Name string `yaml:"name"`
	} `yaml:"app"`
	Link struct {
		DefaultKeyLength         int    `yaml:"default_key_length"`
		DefaultKeyCharacters     string `yaml:"default_key_characters"`
		MaxKeyGenerationAttempts int    `yaml:"max_key_generation_attempts"`
	} `yaml:"link"`
	Token struct {
		DefaultExpirationMinutes int `yaml:"default_expiration_minutes"`
	} `yaml:"token"`
	Account struct {
		ID struct {
			Regex string `yaml:"regex"`
		} `yaml:"id"`
	} `yaml:"account"`
}

// LoadFileConfig reads path. An empty path yields the zero FileConfig.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	path = strings.TrimSpace(path)
	if path == "" {
		return fc, nil
	}

	raw, err := os.ReadFile(path) // #nosec G304 -- operator supplied path.
	if err != nil {
		return fc, fmt.Errorf("%w: read %s: %v", ErrConfig, path, err)
	}
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return fc, fmt.Errorf("%w: parse %s: %v", ErrConfig, path, err)
	}
	return fc, nil
}

// Domain is the domain configuration after the file overrides are applied.
type Domain struct {
	AppName   string
	KeyGen    links.KeyGenConfig
	Tokens    tokens.Config
	IDPattern string
}

// Apply layers the file over base and validates the result.
func (fc FileConfig) Apply(base Domain) (Domain, error) {
	out := base

	if v := strings.TrimSpace(fc.App.Name); v != "" {
		out.AppName = v
	}
	if v := fc.Link.DefaultKeyLength; v != 0 {
		out.KeyGen.Length = v
	}
	if v := fc.Link.DefaultKeyCharacters; v != "" {
		out.KeyGen.Alphabet = v
	}
	if v := fc.Link.MaxKeyGenerationAttempts; v != 0 {
		out.KeyGen.MaxAttempts = v
	}
	if v := fc.Token.DefaultExpirationMinutes; v != 0 {
		out.Tokens.DefaultTTL = time.Duration(v) * time.Minute
	}
	if v := strings.TrimSpace(fc.Account.ID.Regex); v != "" {
		out.IDPattern = v
	}

	if err := out.KeyGen.Validate(); err != nil {
		return Domain{}, fmt.Errorf("%w: link: %v", ErrConfig, err)
	}
	if err := out.Tokens.Validate(); err != nil {
		return Domain{}, fmt.Errorf("%w: token.default_expiration_minutes must be > 0", ErrConfig)
	}
	if _, err := identity.NewIDPolicy(out.IDPattern); err != nil {
		return Domain{}, fmt.Errorf("%w: account.id.regex: %v", ErrConfig, err)
	}
	return out, nil
}

// LoadDomain combines the package env defaults with the file at path.
func LoadDomain(path, appName string) (Domain, error) {
	tokCfg, err := tokens.LoadConfigFromEnv()
	if err != nil {
		return Domain{}, err
	}
	fc, err := LoadFileConfig(path)
	if err != nil {
		return Domain{}, err
	}
	return fc.Apply(Domain{
		AppName:   appName,
		KeyGen:    links.DefaultKeyGenConfig(),
		Tokens:    tokCfg,
		IDPattern: identity.DefaultIDPattern,
	})
}
