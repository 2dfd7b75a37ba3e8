package session

import (
	"encoding/json"
	"errors"
)

// Scope selects which credential slot a session lives in. The console can
// hold an end-user session and an admin session at the same time; the two
// slots are independent and never cross-read.
type Scope string

const (
	ScopeUser  Scope = "user"
	ScopeAdmin Scope = "admin"
)

// Valid reports whether the scope is one of the two known slots
func (s Scope) Valid() bool {
	return s == ScopeUser || s == ScopeAdmin
}

// LoginPath returns the console route an unauthenticated request for this
// scope is redirected to
func (s Scope) LoginPath() string {
	if s == ScopeAdmin {
		return "/admin/login"
	}
	return "/auth"
}

var (
	ErrInvalidScope   = errors.New("invalid session scope")
	ErrPartialSession = errors.New("refusing to store a partial session")
)

// Session is one stored credential pair. Both halves are always present on a
// returned Session; a slot holding only one half is reported as absent.
type Session struct {
	Token   string
	Profile json.RawMessage
}

// ProfileField returns a top-level string field from the profile, or ""
func (s *Session) ProfileField(key string) string {
	if s == nil || len(s.Profile) == 0 {
		return ""
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(s.Profile, &fields); err != nil {
		return ""
	}
	raw, ok := fields[key]
	if !ok {
		return ""
	}
	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return ""
	}
	return value
}

// Store is the persisted session repository. Implementations must treat a
// slot with a missing or malformed half as absent (Read returns nil, nil)
// rather than failing, and must write both halves together.
type Store interface {
	Read(scope Scope) (*Session, error)
	Write(scope Scope, token string, profile json.RawMessage) error
	Clear(scope Scope) error
}
