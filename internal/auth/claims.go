package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNoToken is returned when claims are requested without a token.
var ErrNoToken = errors.New("not logged in")

// Claims is the part of the access token the client reads. The signature is
// not verified here; the backend remains the authority.
type Claims struct {
	jwt.RegisteredClaims
}

// Claims decodes the held token without verifying it.
func (s *Store) Claims() (*Claims, error) {
	tok := s.Token()
	if tok == "" {
		return nil, ErrNoToken
	}
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tok, claims); err != nil {
		return nil, fmt.Errorf("decoding token: %w", err)
	}
	return claims, nil
}

// Expired reports whether the held token's exp is at or before now. Tokens
// that are not JWTs, or carry no exp, are treated as unexpired.
func (s *Store) Expired(now time.Time) bool {
	claims, err := s.Claims()
	if err != nil || claims.ExpiresAt == nil {
		return false
	}
	return !now.Before(claims.ExpiresAt.Time)
}
