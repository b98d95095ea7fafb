package api

import (
	"errors"
	"net/http"

	"kwlnk/cmd/identity"
	"kwlnk/cmd/internal/auth/security"
	"kwlnk/cmd/internal/auth/tokens"
	"kwlnk/cmd/internal/links"
	"kwlnk/cmd/security/password"
)

var errInvalidPagination = errors.New("invalid pagination")

type errorMapping struct {
	kind   error
	status int
	code    string
	msg     string
	details []string
}

// errorTable maps error kinds to responses. Order matters: the first kind
// matched with errors.Is wins.
var errorTable = []errorMapping{
	{security.ErrNotAuthenticated, http.StatusUnauthorized, "not_authenticated", "You must be authenticated to access this resource.", nil},
	{security.ErrTokenNotFound, http.StatusUnauthorized, "token_not_found", "Authentication error.", nil},
	{security.ErrTokenExpired, http.StatusUnauthorized, "token_expired", "Your session has expired.", nil},
	{security.ErrAccountDisabled, http.StatusForbidden, "account_disabled", "This account is disabled.", nil},
	{security.ErrAccountNotFound, http.StatusNotFound, "account_not_found", "Account not found.", nil},
	{tokens.ErrNotFound, http.StatusNotFound, "token_not_found", "Token not found.", nil},
	{identity.ErrNotFound, http.StatusNotFound, "account_not_found", "Account not found.", nil},
	{identity.ErrConflict, http.StatusBadRequest, "invalid_input", "Invalid input data.", []string{"ID must be unique"}},
	{links.ErrLinkNotFound, http.StatusNotFound, "link_not_found", "Link not found.", nil},
	{links.ErrLinkExpired, http.StatusGone, "link_expired", "Link has expired.", nil},
	{links.ErrKeyAlreadyExists, http.StatusBadRequest, "invalid_input", "Invalid input data.", []string{"Key must be unique"}},
	{links.ErrKeyGenerationExhausted, http.StatusInternalServerError, "key_generation_failed", "Failed to create link.", nil},
	{password.ErrEmptyPassword, http.StatusBadRequest, "invalid_password", "Password is required.", nil},
	{password.ErrPasswordTooShort, http.StatusBadRequest, "invalid_password", "Password is too short.", nil},
	{password.ErrPasswordTooLong, http.StatusBadRequest, "invalid_password", "Password is too long.", nil},
	{password.ErrWeakPassword, http.StatusBadRequest, "invalid_password", "Password is too weak.", nil},
	{identity.ErrInvalidInput, http.StatusBadRequest, "invalid_input", "Invalid input data.", nil},
	{links.ErrInvalidInput, http.StatusBadRequest, "invalid_input", "Invalid input data.", nil},
	{errInvalidPagination, http.StatusBadRequest, "invalid_pagination", "Invalid pagination parameters.", nil},
}

// writeServiceError maps err through errorTable; anything unmapped is logged
// and reported as a 500.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	for _, m := range errorTable {
		if errors.Is(err, m.kind) {
			details := errorDetails(err)
			if len(details) == 0 {
				details = m.details
			}
			writeError(w, m.status, m.code, m.msg, details...)
			return
		}
	}
	h.log.Error("api.request.fail", "method", r.Method, "path", r.URL.Path, "err", err)
	writeError(w, http.StatusInternalServerError, "internal_error", "An internal error has occurred.")
}

// errorDetails exposes validation messages; other errors carry none.
func errorDetails(err error) []string {
	var opErr identity.OpError
	if errors.As(err, &opErr) && opErr.Msg != "" {
		return []string{opErr.Msg}
	}
	var pageErr paginationError
	if errors.As(err, &pageErr) {
		return []string{pageErr.msg}
	}
	return nil
}
