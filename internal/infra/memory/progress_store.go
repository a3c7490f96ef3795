package memory

import (
	"context"
	"sync"

	"quiz-progress-service/internal/domain"
)

// ProgressStore is an in-memory implementation of app.ProgressStore.
// Documents are cloned on the way in and out so callers never share state.
type ProgressStore struct {
	mu    sync.RWMutex
	users map[string]domain.User
}

func NewProgressStore() *ProgressStore {
	return &ProgressStore{
		users: make(map[string]domain.User),
	}
}

func (s *ProgressStore) Load(_ context.Context, userID string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[userID]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return user.Clone(), nil
}

// Save stores user if its Version matches the stored one and bumps the version.
func (s *ProgressStore) Save(_ context.Context, user domain.User) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.users[user.ID]
	switch {
	case !ok && user.Version != 0:
		return domain.User{}, domain.ErrVersionConflict
	case ok && current.Version != user.Version:
		return domain.User{}, domain.ErrVersionConflict
	}
	saved := user.Clone()
	saved.Version++
	s.users[user.ID] = saved
	return saved.Clone(), nil
}
