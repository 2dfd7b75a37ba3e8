package session

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/zalando/go-keyring"
)

const keyringService = "oredesk"

// keyringSlot is the single secret stored per scope. Storing token and
// profile in one secret keeps the write atomic.
type keyringSlot struct {
	Token   string          `json:"token"`
	Profile json.RawMessage `json:"profile"`
}

// KeyringStore persists credential slots in the OS keychain/credential
// manager, one JSON secret per scope.
type KeyringStore struct {
	logger zerolog.Logger
}

// NewKeyringStore creates a keyring-backed session store
func NewKeyringStore(logger zerolog.Logger) *KeyringStore {
	return &KeyringStore{logger: logger}
}

func keyringKey(scope Scope) string {
	return fmt.Sprintf("session-%s", scope)
}

// Read returns the session for the scope, or nil if absent or unreadable
func (s *KeyringStore) Read(scope Scope) (*Session, error) {
	if !scope.Valid() {
		return nil, ErrInvalidScope
	}

	secret, err := keyring.Get(keyringService, keyringKey(scope))
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read session from keyring: %w", err)
	}

	var slot keyringSlot
	if err := json.Unmarshal([]byte(secret), &slot); err != nil {
		s.logger.Warn().Err(err).Str("scope", string(scope)).Msg("Malformed keyring session, treating as absent")
		return nil, nil
	}
	if slot.Token == "" || len(slot.Profile) == 0 || !json.Valid(slot.Profile) {
		s.logger.Warn().Str("scope", string(scope)).Msg("Partial keyring session, treating as absent")
		return nil, nil
	}

	return &Session{Token: slot.Token, Profile: slot.Profile}, nil
}

// Write persists both halves as one keyring secret
func (s *KeyringStore) Write(scope Scope, token string, profile json.RawMessage) error {
	if !scope.Valid() {
		return ErrInvalidScope
	}
	if token == "" || len(profile) == 0 || !json.Valid(profile) {
		return ErrPartialSession
	}

	secret, err := json.Marshal(keyringSlot{Token: token, Profile: profile})
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := keyring.Set(keyringService, keyringKey(scope), string(secret)); err != nil {
		return fmt.Errorf("failed to write session to keyring: %w", err)
	}
	return nil
}

// Clear removes the slot from the keyring
func (s *KeyringStore) Clear(scope Scope) error {
	if !scope.Valid() {
		return ErrInvalidScope
	}
	if err := keyring.Delete(keyringService, keyringKey(scope)); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil // Already cleared
		}
		return fmt.Errorf("failed to clear session from keyring: %w", err)
	}
	return nil
}
