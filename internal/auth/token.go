package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenExpired reports whether the session token carries an exp claim in
// the past. The signature is not checked here; the backend does that. Tokens
// that are not JWTs never expire on this side.
func (s *Store) TokenExpired(now time.Time) bool {
	tok := s.Token()
	if tok == "" {
		return false
	}
	return tokenExpired(tok, now)
}

func tokenExpired(token string, now time.Time) bool {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return !now.Before(claims.ExpiresAt.Time)
}
