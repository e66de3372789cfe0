package users

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryStore is a simple in-process account store for local/dev use.
type InMemoryStore struct {
	mu      sync.RWMutex
	byID    map[string]User
	pending map[string]PendingVerification
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		byID:    make(map[string]User),
		pending: make(map[string]PendingVerification),
	}
}

func (s *InMemoryStore) Create(_ context.Context, u User) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	s.byID[u.ID] = u
	return u, nil
}

func (s *InMemoryStore) FindByLogin(_ context.Context, usernameOrEmail string) (User, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.byID {
		if u.Username == usernameOrEmail || u.Email == usernameOrEmail {
			return u, true, nil
		}
	}
	return User{}, false, nil
}

func (s *InMemoryStore) FindConflict(_ context.Context, username, email string) (User, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.byID {
		if u.Username == username || u.Email == email {
			return u, true, nil
		}
	}
	return User{}, false, nil
}

func (s *InMemoryStore) Get(_ context.Context, id string) (User, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.byID[id]
	return u, ok, nil
}

func (s *InMemoryStore) MarkVerified(_ context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, u := range s.byID {
		if u.Email == email {
			u.Verified = true
			s.byID[id] = u
		}
	}
	return nil
}

func (s *InMemoryStore) UpsertPending(_ context.Context, email, otp string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[email] = PendingVerification{Email: email, OTP: otp, CreatedAt: time.Now()}
	return nil
}

func (s *InMemoryStore) GetPending(_ context.Context, email string) (PendingVerification, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.pending[email]
	return p, ok, nil
}

func (s *InMemoryStore) DeletePending(_ context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, email)
	return nil
}

func (s *InMemoryStore) Close() error { return nil }
