package session

import (
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// NewStore selects a session backend. "keyring" uses the OS credential
// store and ignores db and secret; "db" stores sessions in the console
// database, sealing tokens at rest when a secret is configured.
func NewStore(backend, secret string, db *gorm.DB, logger zerolog.Logger) (Store, error) {
	switch backend {
	case "keyring":
		return NewKeyringStore(logger), nil
	case "db":
		var sealer *Sealer
		if secret != "" {
			var err error
			sealer, err = NewSealer(secret)
			if err != nil {
				return nil, fmt.Errorf("failed to initialize session sealer: %w", err)
			}
		} else {
			logger.Warn().Msg("SESSION_SECRET not set, tokens stored in the clear")
		}
		return NewDBStore(db, sealer, logger), nil
	default:
		return nil, fmt.Errorf("unknown session backend %q", backend)
	}
}
