package memory

import (
	"crypto/hmac"
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/ErlanBelekov/ops-dashboard/internal/clock"
	"github.com/ErlanBelekov/ops-dashboard/internal/domain"
)

type TokenRepository struct {
	mu      sync.Mutex
	tokens  map[string]domain.MagicToken
	hashKey []byte
	ttl     time.Duration
	clock   clock.Clock
}

// NewTokenRepository returns an empty store. hashKey keys the HMAC used to
// derive lookup keys from secrets.
func NewTokenRepository(hashKey []byte, ttl time.Duration, c clock.Clock) *TokenRepository {
	return &TokenRepository{
		tokens:  make(map[string]domain.MagicToken),
		hashKey: hashKey,
		ttl:     ttl,
		clock:   c,
	}
}

func (r *TokenRepository) hash(secret string) []byte {
	mac := hmac.New(sha256.New, r.hashKey)
	mac.Write([]byte(secret))
	return mac.Sum(nil)
}

func (r *TokenRepository) Create(email string) (string, error) {
	secret, err := randomHex(secretBytes)
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	sum := r.hash(secret)

	r.mu.Lock()
	r.tokens[string(sum)] = domain.MagicToken{
		SecretHash: sum,
		Email:      email,
		ExpiresAt:  r.clock.Now().Add(r.ttl),
	}
	r.mu.Unlock()

	return secret, nil
}

func (r *TokenRepository) Consume(secret string) (*domain.MagicToken, error) {
	key := string(r.hash(secret))

	r.mu.Lock()
	mt, ok := r.tokens[key]
	delete(r.tokens, key)
	r.mu.Unlock()

	if !ok || clock.IsExpired(r.clock, mt.ExpiresAt) {
		return nil, domain.ErrTokenInvalid
	}
	return &mt, nil
}

func (r *TokenRepository) DeleteExpired() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for k, mt := range r.tokens {
		if clock.IsExpired(r.clock, mt.ExpiresAt) {
			delete(r.tokens, k)
			removed++
		}
	}
	return removed
}

func (r *TokenRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tokens)
}
