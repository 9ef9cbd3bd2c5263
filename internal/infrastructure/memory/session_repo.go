package memory

import (
	"fmt"
	"sync"
	"time"

	"github.com/ErlanBelekov/ops-dashboard/internal/clock"
	"github.com/ErlanBelekov/ops-dashboard/internal/domain"
)

type SessionRepository struct {
	mu       sync.Mutex
	sessions map[string]domain.Session
	ttl      time.Duration
	clock    clock.Clock
}

func NewSessionRepository(ttl time.Duration, c clock.Clock) *SessionRepository {
	return &SessionRepository{
		sessions: make(map[string]domain.Session),
		ttl:      ttl,
		clock:    c,
	}
}

func (r *SessionRepository) Create(email string) (*domain.Session, error) {
	id, err := randomHex(secretBytes)
	if err != nil {
		return nil, fmt.Errorf("generate session id: %w", err)
	}
	s := domain.Session{
		ID:        id,
		Email:     email,
		ExpiresAt: r.clock.Now().Add(r.ttl),
	}

	r.mu.Lock()
	r.sessions[id] = s
	r.mu.Unlock()

	return &s, nil
}

func (r *SessionRepository) Get(id string) (*domain.Session, error) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	r.mu.Unlock()

	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return &s, nil
}

func (r *SessionRepository) Delete(id string) (domain.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	return s, ok
}

// List returns a copy of every stored session, expired or not.
func (r *SessionRepository) List() []domain.Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]domain.Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}

func (r *SessionRepository) DeleteExpired() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, s := range r.sessions {
		if clock.IsExpired(r.clock, s.ExpiresAt) {
			delete(r.sessions, id)
			removed++
		}
	}
	return removed
}

func (r *SessionRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
