package session

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims is what the console can read out of a backend-issued bearer
// token without holding the signing key. Used for display only; the route
// guard checks slot presence, never token validity.
type TokenClaims struct {
	Subject   string
	Email     string
	ExpiresAt *time.Time
	IssuedAt  *time.Time
}

// DecodeClaims decodes a JWT bearer token without verifying its signature.
// Tokens the backend issues in an opaque (non-JWT) format return an error,
// which callers present as "no claims available".
func DecodeClaims(token string) (*TokenClaims, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("failed to decode token: %w", err)
	}

	out := &TokenClaims{}
	if sub, err := claims.GetSubject(); err == nil {
		out.Subject = sub
	}
	if email, ok := claims["email"].(string); ok {
		out.Email = email
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		t := exp.Time
		out.ExpiresAt = &t
	}
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		t := iat.Time
		out.IssuedAt = &t
	}

	return out, nil
}
