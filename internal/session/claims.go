package session

import (
	"fmt"
	"time"

	"github.com/desertthunder/tunemap/internal/shared"
	"github.com/golang-jwt/jwt/v5"
)

// Claims are the fields tunemap reads from the backend session token.
type Claims struct {
	UserID    string
	ExpiresAt time.Time
}

// Expired reports whether the claims carry an expiry before now.
//
// Informational only; requests are never blocked on it.
func (c Claims) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && now.After(c.ExpiresAt)
}

// ParseClaims decodes the session token's payload without verifying its signature.
//
// The client has no signing key; verification happens on the backend.
func ParseClaims(token string) (Claims, error) {
	if token == "" {
		return Claims{}, shared.ErrNotAuthenticated
	}

	mc := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, mc); err != nil {
		return Claims{}, fmt.Errorf("%w: session token: %v", shared.ErrMalformedPayload, err)
	}

	var c Claims
	if uid, ok := mc["user_id"].(string); ok {
		c.UserID = uid
	} else if sub, err := mc.GetSubject(); err == nil {
		c.UserID = sub
	}
	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		c.ExpiresAt = exp.Time
	}
	return c, nil
}
