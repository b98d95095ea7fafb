package api

import (
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"kwlnk/cmd/identity"
	"kwlnk/cmd/internal/auth/security"
	"kwlnk/cmd/internal/auth/tokens"
	"kwlnk/cmd/internal/clock"
	"kwlnk/cmd/internal/links"
	"kwlnk/cmd/security/password"
)

// Services are the domain dependencies the handlers call into.
type Services struct {
	Accounts identity.Store
	IDPolicy identity.IDPolicy
	Hasher   *password.Hasher
	Tokens   *tokens.Manager
	Security *security.Factory
	Links    *links.Service
}

// Handler serves the administration API and the redirect route.
type Handler struct {
	log *slog.Logger
	cfg Config

	accounts identity.Store
	idPolicy identity.IDPolicy
	hasher   *password.Hasher
	tokens   *tokens.Manager
	security *security.Factory
	links    *links.Service
	clock    clock.Clock
}

// HandlerOption configures optional handler dependencies.
type HandlerOption func(*Handler)

// WithClock overrides the time source used for link TTLs.
func WithClock(c clock.Clock) HandlerOption {
	return func(h *Handler) {
		if c != nil {
			h.clock = c
		}
	}
}

// NewHandler constructs a Handler. Every service is required.
func NewHandler(log *slog.Logger, cfg Config, svc Services, opts ...HandlerOption) (*Handler, error) {
	if log == nil {
		log = slog.Default()
	}
	if svc.Accounts == nil || svc.Hasher == nil || svc.Tokens == nil || svc.Security == nil || svc.Links == nil {
		return nil, errors.New("api: missing service dependency")
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultConfig().MaxBodyBytes
	}
	if strings.TrimSpace(cfg.AppName) == "" {
		cfg.AppName = DefaultConfig().AppName
	}

	h := &Handler{
		log:      log,
		cfg:      cfg,
		accounts: svc.Accounts,
		idPolicy: svc.IDPolicy,
		hasher:   svc.Hasher,
		tokens:   svc.Tokens,
		security: svc.Security,
		links:    svc.Links,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	h.clock = clock.OrSystem(h.clock)
	return h, nil
}

// Register wires the API under cfg.APIRoot and the redirect route under
// cfg.LinksRoot. Static routes registered elsewhere on r take precedence
// over redirect keys.
func (h *Handler) Register(r chi.Router) {
	if h == nil || r == nil {
		return
	}

	api := chi.NewRouter()
	api.Post("/login", h.handleLogin)
	api.Group(func(r chi.Router) {
		r.Use(h.requireAuth)

		r.Get("/logout", h.handleLogout)
		r.Post("/logout", h.handleLogout)

		r.Get("/users", h.handleListAccounts)
		r.Post("/users", h.handleCreateAccount)
		r.Get("/users/{id}", h.handleGetAccount)
		r.Put("/users/{id}", h.handleUpdateAccount)
		r.Patch("/users/{id}", h.handleUpdateAccount)
		r.Delete("/users/{id}", h.handleDeleteAccount)
		r.Get("/users/{id}/tokens", h.handleListTokens)
		r.Get("/users/{id}/tokens/{token_id}", h.handleGetToken)

		r.Get("/links", h.handleListLinks)
		r.Post("/links", h.handleCreateLink)
		r.Get("/links/{key}", h.handleGetLink)
		r.Put("/links/{key}", h.handleUpdateLink)
		r.Patch("/links/{key}", h.handleUpdateLink)
		r.Delete("/links/{key}", h.handleDeleteLink)
	})

	if prefix := routePrefix(h.cfg.APIRoot); prefix != "" {
		r.Mount(prefix, api)
	} else {
		r.Mount("/", api)
	}

	r.Get(routePrefix(h.cfg.LinksRoot)+"/{key}", h.handleRedirect)
}

func clientIP(r *http.Request, trustProxy bool) net.IP {
	if trustProxy {
		if ip := parseForwardedIP(r.Header.Get("X-Forwarded-For")); ip != nil {
			return ip
		}
		if ip := net.ParseIP(strings.TrimSpace(r.Header.Get("X-Real-IP"))); ip != nil {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil {
		if ip := net.ParseIP(host); ip != nil {
			return ip
		}
	}
	return nil
}

func parseForwardedIP(raw string) net.IP {
	if raw == "" {
		return nil
	}
	for _, p := range strings.Split(raw, ",") {
		if ip := net.ParseIP(strings.TrimSpace(p)); ip != nil {
			return ip
		}
	}
	return nil
}
