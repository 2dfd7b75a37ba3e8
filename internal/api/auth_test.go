package api

import (
	"encoding/json"
	"testing"
)

func TestParseAuth(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantToken string
		wantTwoFA bool
		wantErr   bool
	}{
		{
			name:      "bare token and user",
			raw:       `{"token":"abc","user":{"email":"a@b.c"}}`,
			wantToken: "abc",
		},
		{
			name:      "access_token field name",
			raw:       `{"access_token":"xyz","user":{"email":"a@b.c"}}`,
			wantToken: "xyz",
		},
		{
			name:      "nested under data",
			raw:       `{"data":{"token":"abc","user":{"email":"a@b.c"}}}`,
			wantToken: "abc",
		},
		{
			name:      "two factor required",
			raw:       `{"two_factor_required":true}`,
			wantTwoFA: true,
		},
		{
			name:    "token without user",
			raw:     `{"token":"abc"}`,
			wantErr: true,
		},
		{
			name:    "user without token",
			raw:     `{"user":{"email":"a@b.c"}}`,
			wantErr: true,
		},
		{
			name:    "garbage",
			raw:     `[1,2,3]`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ParseAuth(json.RawMessage(tt.raw))
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseAuth: %v", err)
			}
			if result.TwoFactor != tt.wantTwoFA {
				t.Errorf("TwoFactor = %v, want %v", result.TwoFactor, tt.wantTwoFA)
			}
			if result.Token != tt.wantToken {
				t.Errorf("Token = %q, want %q", result.Token, tt.wantToken)
			}
		})
	}
}
