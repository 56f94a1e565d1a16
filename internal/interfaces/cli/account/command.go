// Package account holds the login, logout and whoami commands.
package account

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	domainSession "github.com/shoozy-shop/storefront/internal/domain/session"
	"github.com/shoozy-shop/storefront/internal/interfaces/cli/bootstrap"
	"github.com/shoozy-shop/storefront/internal/shared/utils"
)

var (
	email    string
	password string
)

func NewLoginCommand(flags *bootstrap.Flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and persist the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(cmd, flags)
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Account password (prompted when omitted)")
	return cmd
}

func NewLogoutCommand(flags *bootstrap.Flags) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the persisted session",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := bootstrap.Build(flags)
			if err != nil {
				return err
			}
			defer c.Shutdown()

			ctx := cmd.Context()
			c.Session.CheckAuth(ctx)
			c.Session.Logout(ctx)
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		},
	}
}

func NewWhoamiCommand(flags *bootstrap.Flags) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Revalidate the persisted session and print it",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := bootstrap.Build(flags)
			if err != nil {
				return err
			}
			defer c.Shutdown()

			ctx := cmd.Context()
			c.Session.CheckAuth(ctx)

			out := cmd.OutOrStdout()
			if !c.Session.IsAuthenticated() {
				if reason := c.Session.ConsumeLogoutReason(ctx); reason != nil {
					fmt.Fprintf(out, "Not signed in (%s: %s)\n", reason.Code, reason.Message)
					return nil
				}
				fmt.Fprintln(out, "Not signed in")
				return nil
			}

			snap := c.Session.Snapshot()
			view := struct {
				Role    domainSession.Role  `json:"role"`
				Token   string              `json:"token"`
				User    *domainSession.User `json:"user,omitempty"`
				Expires string              `json:"expires,omitempty"`
			}{Role: snap.Role, Token: utils.MaskToken(snap.Token), User: snap.User}
			if exp, ok := snap.Expiry(); ok {
				view.Expires = exp.Local().Format("2006-01-02 15:04:05")
			}

			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(view)
		},
	}
}

func runLogin(cmd *cobra.Command, flags *bootstrap.Flags) error {
	in := bufio.NewReader(cmd.InOrStdin())
	out := cmd.OutOrStdout()

	if email == "" {
		fmt.Fprint(out, "Email: ")
		line, err := in.ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read email: %w", err)
		}
		email = strings.TrimSpace(line)
	}
	if password == "" {
		pw, err := readPassword(in)
		if err != nil {
			return err
		}
		password = pw
	}

	c, _, err := bootstrap.Build(flags)
	if err != nil {
		return err
	}
	defer c.Shutdown()

	creds := domainSession.Credentials{Email: email, Password: password}
	if err := c.Session.Login(cmd.Context(), creds); err != nil {
		return err
	}

	user := c.Session.User()
	name := email
	if user != nil && user.Fullname != "" {
		name = user.Fullname
	}
	fmt.Fprintf(out, "Signed in as %s (%s)\n", name, c.Session.Role())
	return nil
}

func readPassword(in *bufio.Reader) (string, error) {
	fmt.Fprint(os.Stderr, "Password: ")
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		pw, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(pw), nil
	}
	line, err := in.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimSpace(line), nil
}
