package session

import (
	"encoding/json"
	"sync"
)

// MemoryStore is an in-memory Store used in tests and ephemeral runs
type MemoryStore struct {
	mu    sync.Mutex
	slots map[Scope]Session
}

// NewMemoryStore creates an empty in-memory session store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{slots: make(map[Scope]Session)}
}

func (s *MemoryStore) Read(scope Scope) (*Session, error) {
	if !scope.Valid() {
		return nil, ErrInvalidScope
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	slot, ok := s.slots[scope]
	if !ok || slot.Token == "" || len(slot.Profile) == 0 || !json.Valid(slot.Profile) {
		return nil, nil
	}
	out := Session{Token: slot.Token, Profile: append(json.RawMessage(nil), slot.Profile...)}
	return &out, nil
}

func (s *MemoryStore) Write(scope Scope, token string, profile json.RawMessage) error {
	if !scope.Valid() {
		return ErrInvalidScope
	}
	if token == "" || len(profile) == 0 || !json.Valid(profile) {
		return ErrPartialSession
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slots[scope] = Session{Token: token, Profile: append(json.RawMessage(nil), profile...)}
	return nil
}

func (s *MemoryStore) Clear(scope Scope) error {
	if !scope.Valid() {
		return ErrInvalidScope
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.slots, scope)
	return nil
}
