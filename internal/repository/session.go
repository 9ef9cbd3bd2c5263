package repository

import "github.com/ErlanBelekov/ops-dashboard/internal/domain"

type SessionRepository interface {
	Create(email string) (*domain.Session, error)
	// Get returns the stored record without checking expiry.
	Get(id string) (*domain.Session, error)
	// Delete removes the session and returns it, or false if it was absent.
	Delete(id string) (domain.Session, bool)
	List() []domain.Session
	DeleteExpired() int
	Len() int
}
