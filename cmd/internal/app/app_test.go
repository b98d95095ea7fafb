package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"kwlnk/cmd/identity"
	"kwlnk/cmd/internal/api"
)

func newTestApp(t *testing.T, mutate func(*Config)) *App {
	t.Helper()
	t.Setenv("KWLNK_ARGON2_MEMORY_KIB", "8192")
	t.Setenv("KWLNK_ARGON2_ITERATIONS", "1")
	t.Setenv("KWLNK_ARGON2_PARALLELISM", "1")

	cfg := Config{API: api.DefaultConfig()}
	if mutate != nil {
		mutate(&cfg)
	}
	a, err := New(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = a.Close(context.Background()) })
	return a
}

func TestNew_RejectsSharedRoots(t *testing.T) {
	cfg := Config{API: api.Config{APIRoot: "/", LinksRoot: ""}}
	_, err := New(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if !errors.Is(err, ErrConfig) {
		t.Fatalf("expected ErrConfig, got %v", err)
	}
}

func TestNew_NilLogger(t *testing.T) {
	if _, err := New(context.Background(), Config{API: api.DefaultConfig()}, nil); err == nil {
		t.Fatalf("expected error for nil logger")
	}
}

func TestApp_OpsEndpoints(t *testing.T) {
	a := newTestApp(t, nil)
	h := a.Handler()

	for _, tc := range []struct {
		path   string
		status int
		body   string
	}{
		{path: "/healthz", status: http.StatusOK, body: "ok"},
		{path: "/readyz", status: http.StatusOK, body: "ready"},
		{path: "/metrics", status: http.StatusOK, body: "go_goroutines"},
	} {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, tc.path, nil))
		if rr.Code != tc.status {
			t.Fatalf("%s: status=%d want=%d", tc.path, rr.Code, tc.status)
		}
		if !strings.Contains(rr.Body.String(), tc.body) {
			t.Fatalf("%s: body %q missing %q", tc.path, rr.Body.String(), tc.body)
		}
		if rr.Header().Get(requestIDHeader) == "" {
			t.Fatalf("%s: missing %s header", tc.path, requestIDHeader)
		}
	}
}

func TestApp_ReadinessRequiresDB(t *testing.T) {
	a := newTestApp(t, func(c *Config) { c.ReadinessRequireDB = true })

	rr := httptest.NewRecorder()
	a.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d want=503", rr.Code)
	}
}

func TestApp_CreateAccountThenLoginAndRedirect(t *testing.T) {
	a := newTestApp(t, nil)
	ctx := context.Background()

	acct, err := a.CreateAccount(ctx, "  root ", "bootstrap-pass", false)
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	if acct.ID != "root" || acct.CreatedBy != identity.BootstrapActor || acct.UpdatedBy != identity.BootstrapActor {
		t.Fatalf("unexpected account: %+v", acct)
	}
	if _, err := a.CreateAccount(ctx, "root", "bootstrap-pass", false); !identity.IsConflict(err) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if _, err := a.CreateAccount(ctx, "me", "bootstrap-pass", false); !identity.IsInvalidInput(err) {
		t.Fatalf("expected invalid input for reserved id, got %v", err)
	}
	if _, err := a.CreateAccount(ctx, "other", "short", false); err == nil {
		t.Fatalf("expected password policy error")
	}

	h := a.Handler()
	do := func(method, path, token, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr
	}

	rr := do(http.MethodPost, "/api/login", "", `{"id":"root","password":"bootstrap-pass"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("login status=%d body=%s", rr.Code, rr.Body.String())
	}
	var login struct {
		Data struct {
			Token struct {
				ID string `json:"id"`
			} `json:"token"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &login); err != nil || login.Data.Token.ID == "" {
		t.Fatalf("decode login: %v (%s)", err, rr.Body.String())
	}

	rr = do(http.MethodPost, "/api/links", login.Data.Token.ID, `{"key":"home","uri":"https://example.com/"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create link status=%d body=%s", rr.Code, rr.Body.String())
	}

	rr = do(http.MethodGet, "/home", "", "")
	if rr.Code != http.StatusMovedPermanently || rr.Header().Get("Location") != "https://example.com/" {
		t.Fatalf("redirect status=%d location=%q", rr.Code, rr.Header().Get("Location"))
	}
	if rr.Header().Get("X-Redirected-By") != "KwLnk" {
		t.Fatalf("X-Redirected-By=%q", rr.Header().Get("X-Redirected-By"))
	}
}

func TestApp_FileConfigAppName(t *testing.T) {
	path := writeFile(t, "kwlnk.yaml", "app:\n  name: Shorty\n")
	a := newTestApp(t, func(c *Config) { c.AppConfigPath = path })

	if a.domain.AppName != "Shorty" || a.cfg.API.AppName != "Shorty" {
		t.Fatalf("app name not applied: %q / %q", a.domain.AppName, a.cfg.API.AppName)
	}
}

func TestDatabaseCommandsRequireURL(t *testing.T) {
	if err := Migrate(context.Background(), Config{}); !errors.Is(err, ErrDatabaseRequired) {
		t.Fatalf("Migrate: expected ErrDatabaseRequired, got %v", err)
	}
	if _, err := CreateAccount(context.Background(), Config{}, "root", "bootstrap-pass", false); !errors.Is(err, ErrDatabaseRequired) {
		t.Fatalf("CreateAccount: expected ErrDatabaseRequired, got %v", err)
	}
}
