package api

import (
	"net/http"
	"testing"
)

func TestDecodeError(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantMessage string
		wantFields  map[string]string
	}{
		{
			name:        "message envelope",
			status:      400,
			body:        `{"message":"Insufficient balance"}`,
			wantMessage: "Insufficient balance",
		},
		{
			name:        "error envelope",
			status:      500,
			body:        `{"error":"something broke"}`,
			wantMessage: "something broke",
		},
		{
			name:        "laravel validation with arrays",
			status:      422,
			body:        `{"message":"The given data was invalid.","errors":{"email":["The email is taken."],"amount":["Too small.","Second message"]}}`,
			wantMessage: "The given data was invalid.",
			wantFields:  map[string]string{"email": "The email is taken.", "amount": "Too small."},
		},
		{
			name:        "validation with string values",
			status:      422,
			body:        `{"message":"invalid","errors":{"code":"expired"}}`,
			wantMessage: "invalid",
			wantFields:  map[string]string{"code": "expired"},
		},
		{
			name:        "non-json body",
			status:      502,
			body:        `<html>Bad Gateway</html>`,
			wantMessage: "Bad Gateway",
		},
		{
			name:        "empty envelope",
			status:      404,
			body:        `{}`,
			wantMessage: "Not Found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := decodeError(tt.status, []byte(tt.body))
			if got.Status != tt.status {
				t.Errorf("Status = %d, want %d", got.Status, tt.status)
			}
			if got.Message != tt.wantMessage {
				t.Errorf("Message = %q, want %q", got.Message, tt.wantMessage)
			}
			if len(got.Fields) != len(tt.wantFields) {
				t.Fatalf("Fields = %v, want %v", got.Fields, tt.wantFields)
			}
			for field, want := range tt.wantFields {
				if got.Fields[field] != want {
					t.Errorf("Fields[%q] = %q, want %q", field, got.Fields[field], want)
				}
			}
		})
	}
}

func TestErrorIsValidation(t *testing.T) {
	if !(&Error{Status: http.StatusUnprocessableEntity}).IsValidation() {
		t.Error("422 should be a validation error")
	}
	if !(&Error{Status: 400, Fields: map[string]string{"email": "taken"}}).IsValidation() {
		t.Error("field-keyed errors should be validation errors")
	}
	if (&Error{Status: 400}).IsValidation() {
		t.Error("plain 400 is not a validation error")
	}
}
