package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/oredesk/oredesk/internal/session"
)

// NewWhoamiCmd creates the whoami command
func NewWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show which session slots are filled",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, store, err := setup()
			if err != nil {
				return err
			}

			fmt.Printf("Backend: %s (sessions in %s)\n\n", cfg.API.BaseURL, cfg.Session.Backend)

			for _, scope := range []session.Scope{session.ScopeUser, session.ScopeAdmin} {
				sess, err := store.Read(scope)
				if err != nil {
					return fmt.Errorf("failed to read %s session: %w", scope, err)
				}
				if sess == nil {
					fmt.Printf("%s: signed out\n", scope)
					continue
				}

				fmt.Printf("%s: signed in", scope)
				if email := sess.ProfileField("email"); email != "" {
					fmt.Printf(" as %s", email)
				}
				fmt.Println()

				claims, err := session.DecodeClaims(sess.Token)
				if err != nil {
					fmt.Println("  token: not a decodable JWT")
					continue
				}
				if claims.Subject != "" {
					fmt.Printf("  subject: %s\n", claims.Subject)
				}
				if claims.ExpiresAt != nil {
					state := "valid"
					if claims.ExpiresAt.Before(time.Now()) {
						state = "expired"
					}
					fmt.Printf("  expires: %s (%s)\n", claims.ExpiresAt.Format(time.RFC3339), state)
				}
			}
			return nil
		},
	}
}
