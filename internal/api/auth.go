package api

import (
	"encoding/json"
	"fmt"
)

// AuthResult is a decoded login/verification response
type AuthResult struct {
	Token     string
	Profile   json.RawMessage
	TwoFactor bool // backend wants a second factor before issuing a token
}

// ParseAuth decodes what the backend returns from login/verify endpoints.
// Token and user may arrive bare or nested under "data"; the token field
// name varies between deployments.
func ParseAuth(raw json.RawMessage) (*AuthResult, error) {
	payload := UnwrapItem(raw)

	var resp struct {
		Token       string          `json:"token"`
		AccessToken string          `json:"access_token"`
		TwoFactor   bool            `json:"two_factor_required"`
		User        json.RawMessage `json:"user"`
	}
	if err := json.Unmarshal(payload, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode auth response: %w", err)
	}

	if resp.TwoFactor {
		return &AuthResult{TwoFactor: true}, nil
	}

	token := resp.Token
	if token == "" {
		token = resp.AccessToken
	}
	if token == "" || len(resp.User) == 0 {
		return nil, fmt.Errorf("auth response missing token or user")
	}

	return &AuthResult{Token: token, Profile: resp.User}, nil
}
