package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"kwlnk/cmd/internal/auth/security"
	sectoken "kwlnk/cmd/security/token"
)

// requireAuth authenticates the bearer token into a per-request security
// context. The token is marked used only after the request completes with a
// status below 400.
func (h *Handler) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := bearerToken(r)
		if raw == "" {
			writeError(w, http.StatusUnauthorized, "missing_or_invalid_token", "Authentication error.",
				"Header 'Authorization' is missing or malformed.")
			return
		}

		sc := h.security.New()
		tok, err := sc.AuthWithToken(r.Context(), raw)
		if err != nil {
			h.log.Warn("auth.token.reject", "token", sectoken.Fingerprint(raw), "err", err)
			h.writeServiceError(w, r, err)
			return
		}

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(security.WithContext(r.Context(), sc)))

		if ww.Status() < http.StatusBadRequest {
			if _, err := h.tokens.MarkUsed(context.WithoutCancel(r.Context()), tok); err != nil {
				h.log.Warn("auth.token.mark_used.fail", "token", sectoken.Fingerprint(raw), "err", err)
			}
		}
	})
}

func bearerToken(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if raw == "" {
		return ""
	}
	parts := strings.SplitN(raw, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// actor returns the security context attached by requireAuth.
func actor(r *http.Request) (*security.Context, string, error) {
	sc, ok := security.FromContext(r.Context())
	if !ok {
		return nil, "", security.ErrNotAuthenticated
	}
	id, err := sc.ID()
	if err != nil {
		return nil, "", err
	}
	return sc, id, nil
}
