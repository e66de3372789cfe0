package history

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryStore is a simple in-process history store for local/dev use.
type InMemoryStore struct {
	mu        sync.RWMutex
	turns     map[string][]Turn
	summaries map[string][]string
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		turns:     make(map[string][]Turn),
		summaries: make(map[string][]string),
	}
}

func (s *InMemoryStore) AppendTurn(_ context.Context, turn Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if turn.ID == "" {
		turn.ID = uuid.NewString()
	}
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now()
	}
	s.turns[turn.UserID] = append(s.turns[turn.UserID], turn)
	return nil
}

func (s *InMemoryStore) Recent(_ context.Context, userID string, limit int) ([]Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	arr := s.turns[userID]
	if len(arr) == 0 {
		return nil, nil
	}
	if limit <= 0 || limit > len(arr) {
		limit = len(arr)
	}
	out := make([]Turn, 0, limit)
	for i := len(arr) - limit; i < len(arr); i++ {
		out = append(out, arr[i])
	}
	return out, nil
}

func (s *InMemoryStore) TurnsOn(_ context.Context, userID string, day time.Time) ([]Turn, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.AddDate(0, 0, 1)

	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Turn
	for _, t := range s.turns[userID] {
		if !t.CreatedAt.Before(start) && t.CreatedAt.Before(end) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *InMemoryStore) AppendSummary(_ context.Context, userID, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summaries[userID] = append(s.summaries[userID], text)
	return nil
}

func (s *InMemoryStore) LatestSummary(_ context.Context, userID string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	arr := s.summaries[userID]
	if len(arr) == 0 {
		return "", false, nil
	}
	return arr[len(arr)-1], true, nil
}

func (s *InMemoryStore) Close() error { return nil }
