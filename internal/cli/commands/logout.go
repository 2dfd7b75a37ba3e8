package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewLogoutCmd creates the logout command
func NewLogoutCmd() *cobra.Command {
	var scopeFlag string

	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Clear a session slot",
		RunE: func(cmd *cobra.Command, args []string) error {
			scope, err := parseScope(scopeFlag)
			if err != nil {
				return err
			}

			_, store, err := setup()
			if err != nil {
				return err
			}

			if err := store.Clear(scope); err != nil {
				return fmt.Errorf("failed to clear session: %w", err)
			}
			fmt.Printf("✓ Cleared %s session\n", scope)
			return nil
		},
	}

	cmd.Flags().StringVar(&scopeFlag, "scope", "user", "Session slot to clear: user or admin")
	return cmd
}
