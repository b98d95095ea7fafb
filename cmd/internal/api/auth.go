package api

import (
	"errors"
	"net/http"

	"kwlnk/cmd/identity"
	"kwlnk/cmd/internal/auth/security"
)

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "Invalid input data.", err.Error())
		return
	}

	id := identity.NormalizeID(req.ID)
	if err := h.idPolicy.Validate(id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if req.Password == "" {
		writeError(w, http.StatusBadRequest, "invalid_input", "Invalid input data.", "password is required")
		return
	}

	ctx := r.Context()
	sc := h.security.New()
	if err := sc.Auth(ctx, id, req.Password); err != nil {
		switch {
		case errors.Is(err, security.ErrAccountNotFound), errors.Is(err, security.ErrPasswordIncorrect):
			loginTotal.WithLabelValues("invalid_credentials").Inc()
			h.audit(r, "auth.login.fail", id, "reason", err.Error())
			writeError(w, http.StatusUnauthorized, "invalid_credentials", "Invalid account ID or password.")
		case errors.Is(err, security.ErrAccountDisabled):
			loginTotal.WithLabelValues("disabled").Inc()
			h.audit(r, "auth.login.fail", id, "reason", err.Error())
			writeError(w, http.StatusForbidden, "account_disabled", "Account is disabled.")
		default:
			loginTotal.WithLabelValues("error").Inc()
			h.log.Error("auth.login.fail", "account_id", id, "err", err)
			writeError(w, http.StatusInternalServerError, "internal_error", "An error occurred while logging in.")
		}
		return
	}

	acct, err := sc.Account(ctx)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	tok, err := sc.NewToken(ctx)
	if err != nil {
		loginTotal.WithLabelValues("error").Inc()
		h.log.Error("auth.login.token.fail", "account_id", id, "err", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "An error occurred while logging in.")
		return
	}

	loginTotal.WithLabelValues("success").Inc()
	h.audit(r, "auth.login.success", id)
	writeData(w, http.StatusOK, loginResponse{
		Account: toAccountResponse(acct),
		Token:   toTokenResponse(tok),
	}, "Login successful.")
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sc, id, err := actor(r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if err := sc.Deauth(r.Context()); err != nil {
		h.log.Error("auth.logout.fail", "account_id", id, "err", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "An error occurred while logging out.")
		return
	}
	h.audit(r, "auth.logout", id)
	writeJSON(w, http.StatusOK, envelope{Message: "Logout successful."})
}
