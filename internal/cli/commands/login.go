package commands

import (
	"context"
	"fmt"
	"os"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/oredesk/oredesk/internal/api"
	"github.com/oredesk/oredesk/internal/logger"
	"github.com/oredesk/oredesk/internal/session"
)

// NewLoginCmd creates the login command
func NewLoginCmd() *cobra.Command {
	var scopeFlag, email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and fill a session slot",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(scopeFlag, email, password)
		},
	}

	cmd.Flags().StringVar(&scopeFlag, "scope", "user", "Session slot to fill: user or admin")
	cmd.Flags().StringVar(&email, "email", "", "Email address (or set OREDESK_EMAIL)")
	cmd.Flags().StringVar(&password, "password", "", "Password (or set OREDESK_PASSWORD, will prompt if not provided)")

	return cmd
}

func runLogin(scopeFlag, email, password string) error {
	scope, err := parseScope(scopeFlag)
	if err != nil {
		return err
	}

	// Environment variables are useful for CI/CD
	if email == "" {
		email = os.Getenv("OREDESK_EMAIL")
	}
	if password == "" {
		password = os.Getenv("OREDESK_PASSWORD")
	}

	if email == "" {
		return fmt.Errorf("email is required (use --email flag or OREDESK_EMAIL env var)")
	}

	if password == "" {
		if term.IsTerminal(int(syscall.Stdin)) {
			fmt.Print("Password: ")
			bytePassword, err := term.ReadPassword(int(syscall.Stdin))
			if err != nil {
				return fmt.Errorf("failed to read password: %w", err)
			}
			password = string(bytePassword)
			fmt.Println()
		} else {
			return fmt.Errorf("password is required in non-interactive mode (use --password flag or OREDESK_PASSWORD env var)")
		}
	}

	cfg, store, err := setup()
	if err != nil {
		return err
	}

	client := api.New(cfg.API.BaseURL, scope, store, logger.GetLogger())

	loginPath := "/auth/login"
	if scope == session.ScopeAdmin {
		loginPath = "/admin/login"
	}

	fmt.Printf("Logging in to %s...\n", cfg.API.BaseURL)

	raw, err := client.Post(context.Background(), loginPath, map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	result, err := api.ParseAuth(raw)
	if err != nil {
		return fmt.Errorf("unexpected login response: %w", err)
	}
	if result.TwoFactor {
		return fmt.Errorf("account requires two-factor verification, use the web console to sign in")
	}

	if err := store.Write(scope, result.Token, result.Profile); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	fmt.Println("✓ Login successful!")
	sess := &session.Session{Token: result.Token, Profile: result.Profile}
	if name := sess.ProfileField("name"); name != "" {
		fmt.Printf("  User: %s (%s)\n", name, sess.ProfileField("email"))
	}
	fmt.Printf("  Scope: %s\n", scope)
	return nil
}
