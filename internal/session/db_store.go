package session

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/oredesk/oredesk/internal/models"
)

// DBStore persists credential slots in the local SQLite database.
// Tokens are sealed at rest when a Sealer is provided.
type DBStore struct {
	db     *gorm.DB
	sealer *Sealer // nil = tokens stored in the clear
	logger zerolog.Logger
}

// NewDBStore creates a database-backed session store
func NewDBStore(db *gorm.DB, sealer *Sealer, logger zerolog.Logger) *DBStore {
	return &DBStore{db: db, sealer: sealer, logger: logger}
}

// Read returns the session for the scope, or nil if the slot is absent,
// half-present, or cannot be decoded
func (s *DBStore) Read(scope Scope) (*Session, error) {
	if !scope.Valid() {
		return nil, ErrInvalidScope
	}

	var rec models.SessionRecord
	if err := s.db.Where("scope = ?", string(scope)).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read session: %w", err)
	}

	// A half-written slot is treated as logged out, not as an error
	if rec.Token == "" || rec.Profile == "" {
		s.logger.Warn().Str("scope", string(scope)).Msg("Partial session record, treating as absent")
		return nil, nil
	}

	token := rec.Token
	if s.sealer != nil {
		opened, err := s.sealer.Open(rec.Token)
		if err != nil {
			s.logger.Warn().Err(err).Str("scope", string(scope)).Msg("Undecryptable session token, treating as absent")
			return nil, nil
		}
		token = opened
	}

	if !json.Valid([]byte(rec.Profile)) {
		s.logger.Warn().Str("scope", string(scope)).Msg("Malformed session profile, treating as absent")
		return nil, nil
	}

	return &Session{Token: token, Profile: json.RawMessage(rec.Profile)}, nil
}

// Write persists both halves of the slot in a single transaction
func (s *DBStore) Write(scope Scope, token string, profile json.RawMessage) error {
	if !scope.Valid() {
		return ErrInvalidScope
	}
	if token == "" || len(profile) == 0 || !json.Valid(profile) {
		return ErrPartialSession
	}

	stored := token
	if s.sealer != nil {
		sealed, err := s.sealer.Seal(token)
		if err != nil {
			return fmt.Errorf("failed to seal token: %w", err)
		}
		stored = sealed
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("scope = ?", string(scope)).Delete(&models.SessionRecord{}).Error; err != nil {
			return fmt.Errorf("failed to replace session: %w", err)
		}
		rec := models.SessionRecord{
			Scope:   string(scope),
			Token:   stored,
			Profile: string(profile),
		}
		if err := tx.Create(&rec).Error; err != nil {
			return fmt.Errorf("failed to write session: %w", err)
		}
		return nil
	})
}

// Clear removes the slot entirely
func (s *DBStore) Clear(scope Scope) error {
	if !scope.Valid() {
		return ErrInvalidScope
	}
	if err := s.db.Where("scope = ?", string(scope)).Delete(&models.SessionRecord{}).Error; err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}
