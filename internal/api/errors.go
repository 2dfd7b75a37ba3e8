package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ErrSessionExpired is returned after a 401 response. By the time a caller
// sees it the matching session slot has already been cleared; the web layer
// turns it into a redirect to that scope's login route.
var ErrSessionExpired = errors.New("session expired")

// Error is a non-401 failure response from the platform API
type Error struct {
	Status  int
	Message string
	Fields  map[string]string // field-keyed validation messages, if any
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api error (status %d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("api error (status %d)", e.Status)
}

// IsValidation reports whether the error should be surfaced verbatim as a
// form validation failure rather than a generic one
func (e *Error) IsValidation() bool {
	return e.Status == http.StatusUnprocessableEntity || len(e.Fields) > 0
}

// decodeError builds an *Error from a response body, tolerating the
// backend's error envelopes: {"message": ...}, {"error": ...} and
// field-keyed {"errors": {"field": ["msg"] | "msg"}}
func decodeError(status int, body []byte) *Error {
	out := &Error{Status: status}

	var envelope struct {
		Message string                     `json:"message"`
		Err     string                     `json:"error"`
		Errors  map[string]json.RawMessage `json:"errors"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		out.Message = http.StatusText(status)
		return out
	}

	out.Message = envelope.Message
	if out.Message == "" {
		out.Message = envelope.Err
	}
	if out.Message == "" {
		out.Message = http.StatusText(status)
	}

	if len(envelope.Errors) > 0 {
		out.Fields = make(map[string]string, len(envelope.Errors))
		for field, raw := range envelope.Errors {
			var many []string
			if err := json.Unmarshal(raw, &many); err == nil && len(many) > 0 {
				out.Fields[field] = many[0]
				continue
			}
			var one string
			if err := json.Unmarshal(raw, &one); err == nil {
				out.Fields[field] = one
			}
		}
	}

	return out
}
