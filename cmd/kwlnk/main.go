// Command kwlnk runs the KwLnk short-link server and its maintenance tasks.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"kwlnk/cmd/internal/app"
)

// Swapped in tests.
var (
	serveFn         = app.Serve
	migrateFn       = app.Migrate
	createAccountFn = app.CreateAccount
	loadConfig      = app.LoadConfig

	// #nosec G115 -- stdin's fd fits in int.
	isTerminal   = func() bool { return term.IsTerminal(int(os.Stdin.Fd())) }
	readPassword = func() ([]byte, error) { return term.ReadPassword(int(os.Stdin.Fd())) }
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		cancel()
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "kwlnk",
		Short:         "Short-link redirector with account-gated administration",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newServeCommand())
	cmd.AddCommand(newMigrateCommand())
	cmd.AddCommand(newAccountsCommand())
	return cmd
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func newServeCommand() *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serveFn(commandContext(cmd), loadConfig(), migrate)
		},
	}

	cmd.Flags().BoolVar(&migrate, "migrate", false, "Apply database migrations before serving")
	return cmd
}

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply embedded database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := migrateFn(commandContext(cmd), loadConfig()); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}

func newAccountsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Account administration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(newAccountsCreateCommand())
	return cmd
}

func newAccountsCreateCommand() *cobra.Command {
	var (
		password string
		disabled bool
	)

	cmd := &cobra.Command{
		Use:   "create <id>",
		Short: "Create an account attributed to the default administrator",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("password") {
				pw, err := promptPassword(cmd.ErrOrStderr())
				if err != nil {
					return err
				}
				password = pw
			}

			acct, err := createAccountFn(commandContext(cmd), loadConfig(), args[0], password, disabled)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "account %q created\n", acct.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&password, "password", "", "Account password or an existing argon2id/bcrypt hash (prompted when omitted)")
	cmd.Flags().BoolVar(&disabled, "disabled", false, "Create the account disabled")
	return cmd
}

var errNoTerminal = errors.New("stdin is not a terminal; pass --password")

// promptPassword reads the password twice without echo.
func promptPassword(out io.Writer) (string, error) {
	if !isTerminal() {
		return "", errNoTerminal
	}

	_, _ = fmt.Fprint(out, "Password: ")
	first, err := readPassword()
	_, _ = fmt.Fprintln(out)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}

	_, _ = fmt.Fprint(out, "Confirm password: ")
	second, err := readPassword()
	_, _ = fmt.Fprintln(out)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}

	if string(first) != string(second) {
		return "", errors.New("passwords do not match")
	}
	pw := strings.TrimRight(string(first), "\r\n")
	if pw == "" {
		return "", errors.New("password must not be empty")
	}
	return pw, nil
}
