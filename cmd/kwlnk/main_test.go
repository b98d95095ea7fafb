package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"kwlnk/cmd/identity"
	"kwlnk/cmd/internal/app"
)

type created struct {
	id, password string
	disabled     bool
}

func stubCommands(t *testing.T) *[]created {
	t.Helper()

	prevServe, prevMigrate, prevCreate, prevLoad := serveFn, migrateFn, createAccountFn, loadConfig
	prevTerm, prevRead := isTerminal, readPassword
	t.Cleanup(func() {
		serveFn, migrateFn, createAccountFn, loadConfig = prevServe, prevMigrate, prevCreate, prevLoad
		isTerminal, readPassword = prevTerm, prevRead
	})

	loadConfig = func() app.Config { return app.Config{DatabaseURL: "postgres://test"} }

	var calls []created
	createAccountFn = func(_ context.Context, cfg app.Config, id, pw string, disabled bool) (identity.Account, error) {
		if cfg.DatabaseURL == "" {
			t.Fatalf("config not passed through")
		}
		calls = append(calls, created{id: id, password: pw, disabled: disabled})
		return identity.Account{ID: id, Disabled: disabled}, nil
	}
	return &calls
}

func run(args ...string) (string, error) {
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestServe_PassesMigrateFlag(t *testing.T) {
	stubCommands(t)

	var gotMigrate bool
	serveFn = func(_ context.Context, _ app.Config, migrate bool) error {
		gotMigrate = migrate
		return nil
	}

	if _, err := run("serve", "--migrate"); err != nil {
		t.Fatalf("serve: %v", err)
	}
	if !gotMigrate {
		t.Fatalf("--migrate not passed to serve")
	}
}

func TestMigrate(t *testing.T) {
	stubCommands(t)

	called := false
	migrateFn = func(context.Context, app.Config) error {
		called = true
		return nil
	}
	out, err := run("migrate")
	if err != nil || !called {
		t.Fatalf("migrate: err=%v called=%v", err, called)
	}
	if !strings.Contains(out, "migrations applied") {
		t.Fatalf("unexpected output %q", out)
	}

	migrateFn = func(context.Context, app.Config) error { return app.ErrDatabaseRequired }
	if _, err := run("migrate"); !errors.Is(err, app.ErrDatabaseRequired) {
		t.Fatalf("expected ErrDatabaseRequired, got %v", err)
	}
}

func TestAccountsCreate_WithPasswordFlag(t *testing.T) {
	calls := stubCommands(t)

	out, err := run("accounts", "create", "root", "--password", "bootstrap-pass", "--disabled")
	if err != nil {
		t.Fatalf("accounts create: %v", err)
	}
	if len(*calls) != 1 || (*calls)[0] != (created{id: "root", password: "bootstrap-pass", disabled: true}) {
		t.Fatalf("calls=%+v", *calls)
	}
	if !strings.Contains(out, `account "root" created`) {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestAccountsCreate_Prompts(t *testing.T) {
	calls := stubCommands(t)
	isTerminal = func() bool { return true }

	answers := [][]byte{[]byte("typed-secret"), []byte("typed-secret")}
	readPassword = func() ([]byte, error) {
		next := answers[0]
		answers = answers[1:]
		return next, nil
	}

	if _, err := run("accounts", "create", "root"); err != nil {
		t.Fatalf("accounts create: %v", err)
	}
	if len(*calls) != 1 || (*calls)[0].password != "typed-secret" {
		t.Fatalf("calls=%+v", *calls)
	}
}

func TestAccountsCreate_PromptMismatch(t *testing.T) {
	calls := stubCommands(t)
	isTerminal = func() bool { return true }

	answers := [][]byte{[]byte("one-secret"), []byte("two-secret")}
	readPassword = func() ([]byte, error) {
		next := answers[0]
		answers = answers[1:]
		return next, nil
	}

	if _, err := run("accounts", "create", "root"); err == nil {
		t.Fatalf("expected mismatch error")
	}
	if len(*calls) != 0 {
		t.Fatalf("account created despite mismatch")
	}
}

func TestAccountsCreate_NoTerminal(t *testing.T) {
	stubCommands(t)
	isTerminal = func() bool { return false }

	if _, err := run("accounts", "create", "root"); !errors.Is(err, errNoTerminal) {
		t.Fatalf("expected errNoTerminal, got %v", err)
	}
	if _, err := run("accounts", "create"); err == nil {
		t.Fatalf("expected error for missing id")
	}
}
