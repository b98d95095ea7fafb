package api

import (
	"log/slog"
	"net/http"
	"strings"
)

// audit writes a security relevant event to the log. Events are not
// persisted.
func (h *Handler) audit(r *http.Request, action, actor string, attrs ...any) {
	action = strings.TrimSpace(action)
	if action == "" {
		return
	}

	args := []any{
		slog.String("action", action),
		slog.String("actor", actor),
		slog.String("user_agent", strings.TrimSpace(r.UserAgent())),
	}
	if ip := clientIP(r, h.cfg.TrustProxy); ip != nil {
		args = append(args, slog.String("ip", ip.String()))
	}
	args = append(args, attrs...)
	h.log.Info("audit", args...)
}
