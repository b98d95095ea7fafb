package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"kwlnk/cmd/internal/auth/tokens"
)

func (h *Handler) handleListTokens(w http.ResponseWriter, r *http.Request) {
	sc, _, err := actor(r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	id, err := accountParam(r, sc)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	ctx := r.Context()
	if _, err := h.accounts.Get(ctx, id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	active, err := h.tokens.ActiveTokens(ctx, id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	out := make([]tokenResponse, 0, len(active))
	for _, t := range active {
		out = append(out, toTokenResponse(t))
	}
	writeData(w, http.StatusOK, out, "Tokens retrieved successfully.")
}

// currentTokenAlias selects the caller's most recently used token.
const currentTokenAlias = "current"

func (h *Handler) handleGetToken(w http.ResponseWriter, r *http.Request) {
	sc, callerID, err := actor(r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	id, err := accountParam(r, sc)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	ctx := r.Context()
	if _, err := h.accounts.Get(ctx, id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	tokenID := chi.URLParam(r, "token_id")
	var (
		tok   tokenResponse
		found bool
	)
	switch {
	case tokenID == currentTokenAlias:
		if id == callerID {
			t, ok, err := sc.Token(ctx, "")
			if err != nil {
				h.writeServiceError(w, r, err)
				return
			}
			tok, found = toTokenResponse(t), ok
		}
	default:
		t, err := h.tokens.Get(ctx, tokenID)
		if err == nil && t.AccountID == id {
			tok, found = toTokenResponse(t), true
		} else if err != nil && !errors.Is(err, tokens.ErrNotFound) {
			h.writeServiceError(w, r, err)
			return
		}
	}

	if !found {
		writeError(w, http.StatusNotFound, "token_not_found", "Token not found.")
		return
	}
	writeData(w, http.StatusOK, tok, "Token retrieved successfully.")
}
