// Package cli wires the oredesk command tree.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/oredesk/oredesk/internal/cli/commands"
)

var version = "dev" // Will be set during build

var rootCmd = &cobra.Command{
	Use:   "oredesk",
	Short: "Oredesk - Self-hosted console for a mining rewards platform",
	Long: `Oredesk serves a local web console in front of a mining rewards
platform API: user dashboard, admin back-office, and session tooling.

Sessions are kept locally (database or OS keyring) and attached as
bearer tokens to every request the console proxies to the platform.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("oredesk version %s\n", version)
		},
	})

	rootCmd.AddCommand(commands.NewServeCmd(version))
	rootCmd.AddCommand(commands.NewLoginCmd())
	rootCmd.AddCommand(commands.NewLogoutCmd())
	rootCmd.AddCommand(commands.NewWhoamiCmd())
}

// Execute runs the root command
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}
