package domain

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrTokenInvalid    = errors.New("token is invalid or expired")
	ErrForbidden       = errors.New("forbidden")
	ErrNotRegistered   = errors.New("email is not registered")
	ErrSessionNotFound = errors.New("session not found")
)

// MagicToken is a single-use sign-in credential. Only the hash of the
// secret is kept; the plaintext leaves the process in the emailed link.
type MagicToken struct {
	SecretHash []byte
	Email      string
	ExpiresAt  time.Time
}

// Session maps an opaque bearer id to an authenticated email.
// ExpiresAt is fixed at creation.
type Session struct {
	ID        string
	Email     string
	ExpiresAt time.Time
}

// NormalizeEmail trims surrounding whitespace and lower-cases s.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
