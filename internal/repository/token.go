package repository

import "github.com/ErlanBelekov/ops-dashboard/internal/domain"

// TokenRepository owns magic-token records keyed by the hash of their secret.
type TokenRepository interface {
	// Create issues a new secret for email and returns it in plaintext.
	Create(email string) (string, error)
	// Consume removes the record for secret unconditionally and returns it
	// only if it was live. Missing and expired both yield domain.ErrTokenInvalid.
	Consume(secret string) (*domain.MagicToken, error)
	// DeleteExpired removes every record whose expiry is at or before now.
	DeleteExpired() int
	Len() int
}
