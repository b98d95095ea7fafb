package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"kwlnk/cmd/identity"
	"kwlnk/cmd/internal/auth/tokens"
	"kwlnk/cmd/internal/links"
)

type loginRequest struct {
	ID       string `json:"id"`
	Password string `json:"password"`
}

type createAccountRequest struct {
	ID       string `json:"id"`
	Password string `json:"password"`
	Disabled bool   `json:"disabled"`
}

type updateAccountRequest struct {
	Password *string `json:"password"`
	Disabled *bool   `json:"disabled"`
}

type createLinkRequest struct {
	Key        string       `json:"key"`
	URI        string       `json:"uri"`
	ExpiresAt  optionalTime `json:"expires_at"`
	TTLMinutes *int         `json:"ttl_minutes"`
}

type updateLinkRequest struct {
	URI        *string      `json:"uri"`
	ExpiresAt  optionalTime `json:"expires_at"`
	TTLMinutes *int         `json:"ttl_minutes"`
}

type accountResponse struct {
	ID        string    `json:"id"`
	Disabled  bool      `json:"disabled"`
	CreatedAt time.Time `json:"created_at"`
	CreatedBy string    `json:"created_by,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
	UpdatedBy string    `json:"updated_by,omitempty"`
}

type tokenResponse struct {
	ID         string     `json:"id"`
	AccountID  string     `json:"account_id"`
	ExpiresAt  time.Time  `json:"expires_at"`
	LastUsedAt *time.Time `json:"last_used_at"`
	CreatedAt  time.Time  `json:"created_at"`
}

type linkResponse struct {
	Key       string     `json:"key"`
	URI       string     `json:"uri"`
	ExpiresAt *time.Time `json:"expires_at"`
	CreatedAt time.Time  `json:"created_at"`
	CreatedBy string     `json:"created_by,omitempty"`
	UpdatedAt time.Time  `json:"updated_at"`
	UpdatedBy string     `json:"updated_by,omitempty"`
}

type loginResponse struct {
	Account accountResponse `json:"account"`
	Token   tokenResponse   `json:"token"`
}

func toAccountResponse(a identity.Account) accountResponse {
	return accountResponse{
		ID:        a.ID,
		Disabled:  a.Disabled,
		CreatedAt: a.CreatedAt,
		CreatedBy: a.CreatedBy,
		UpdatedAt: a.UpdatedAt,
		UpdatedBy: a.UpdatedBy,
	}
}

func toTokenResponse(t tokens.Token) tokenResponse {
	return tokenResponse{
		ID:         t.ID,
		AccountID:  t.AccountID,
		ExpiresAt:  t.ExpiresAt,
		LastUsedAt: t.LastUsedAt,
		CreatedAt:  t.CreatedAt,
	}
}

func toLinkResponse(l links.Link) linkResponse {
	return linkResponse{
		Key:       l.Key,
		URI:       l.URI,
		ExpiresAt: l.ExpiresAt,
		CreatedAt: l.CreatedAt,
		CreatedBy: l.CreatedBy,
		UpdatedAt: l.UpdatedAt,
		UpdatedBy: l.UpdatedBy,
	}
}

// plainTimeLayout is accepted alongside RFC 3339 and read as UTC.
const plainTimeLayout = "2006-01-02 15:04:05"

// optionalTime distinguishes an absent field from an explicit null.
type optionalTime struct {
	Set   bool
	Value *time.Time
}

func (o *optionalTime) UnmarshalJSON(b []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		o.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return errors.New("expires_at must be a string or null")
	}
	t, err := parseTime(s)
	if err != nil {
		return err
	}
	o.Value = &t
	return nil
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.ParseInLocation(plainTimeLayout, s, time.UTC); err == nil {
		return t, nil
	}
	return time.Time{}, errors.New("expires_at must be RFC 3339 or YYYY-MM-DD HH:MM:SS")
}
