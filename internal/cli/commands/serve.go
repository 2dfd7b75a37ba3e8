package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oredesk/oredesk/internal/config"
	"github.com/oredesk/oredesk/internal/logger"
	"github.com/oredesk/oredesk/internal/web"
)

// NewServeCmd creates the serve command
func NewServeCmd(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the console web server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			logger.Init(cfg.Logging.Level, cfg.Logging.Format)
			zlog := logger.GetLogger()

			server, err := web.New(cfg, zlog, version)
			if err != nil {
				return fmt.Errorf("failed to initialize server: %w", err)
			}
			return server.Start()
		},
	}
}
