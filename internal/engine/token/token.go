// Package token mints and verifies the opaque session tokens handed out at
// key exchange. Tokens bind a caller to one session UID so an intercepted
// envelope cannot be replayed against another session.
package token

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/polargamesbr/rpg-sub006/internal/errors"
)

// DefaultTTL bounds how long a session token stays valid. Browser sessions
// rarely outlive a day; terminal sessions drop their keys earlier anyway.
const DefaultTTL = 24 * time.Hour

// ErrInvalid is returned when a token fails verification for any reason.
var ErrInvalid = apperrors.New(apperrors.CodeTokenInvalid, "session token is invalid")

// Signer mints and verifies HS256 session tokens.
type Signer struct {
	key   []byte
	ttl   time.Duration
	clock func() time.Time
}

// NewSigner builds a Signer from the token signing key.
func NewSigner(key []byte, ttl time.Duration) (*Signer, error) {
	if len(key) == 0 {
		return nil, fmt.Errorf("token signing key is required")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Signer{key: key, ttl: ttl, clock: time.Now}, nil
}

// Mint issues a token whose subject is the session UID.
func (s *Signer) Mint(sessionUID string) (string, error) {
	if s == nil {
		return "", fmt.Errorf("signer is not configured")
	}
	if sessionUID == "" {
		return "", fmt.Errorf("session uid is required")
	}

	now := s.clock().UTC()
	claims := jwt.RegisteredClaims{
		Subject:   sessionUID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// Verify checks the token signature, expiry, and session binding.
func (s *Signer) Verify(tokenString, sessionUID string) error {
	if s == nil {
		return ErrInvalid
	}

	parsed, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.key, nil
	}, jwt.WithTimeFunc(func() time.Time { return s.clock() }))
	if err != nil || !parsed.Valid {
		return ErrInvalid
	}

	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject != sessionUID {
		return ErrInvalid
	}
	return nil
}
