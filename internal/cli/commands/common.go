package commands

import (
	"fmt"

	"github.com/oredesk/oredesk/internal/config"
	"github.com/oredesk/oredesk/internal/db"
	"github.com/oredesk/oredesk/internal/logger"
	"github.com/oredesk/oredesk/internal/session"
)

// setup loads configuration, initializes logging and opens the session
// store. This is the common prelude for every command that touches a
// session slot.
func setup() (*config.Config, session.Store, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	zlog := logger.GetLogger()

	if cfg.Session.Backend == "keyring" {
		store, err := session.NewStore("keyring", "", nil, zlog)
		return cfg, store, err
	}

	gdb, err := db.Open(cfg, zlog)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open console database: %w", err)
	}

	store, err := session.NewStore(cfg.Session.Backend, cfg.Session.Secret, gdb, zlog)
	if err != nil {
		return nil, nil, err
	}
	return cfg, store, nil
}

// parseScope validates the --scope flag
func parseScope(value string) (session.Scope, error) {
	scope := session.Scope(value)
	if !scope.Valid() {
		return "", fmt.Errorf("invalid scope %q (must be %q or %q)", value, session.ScopeUser, session.ScopeAdmin)
	}
	return scope, nil
}
