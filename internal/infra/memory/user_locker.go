package memory

import (
	"context"
	"fmt"
	"sync"

	"quiz-progress-service/internal/domain"
)

// UserLocker is an in-process implementation of app.UserLocker: one mutex per
// user id, dropped when nobody holds or waits for it.
type UserLocker struct {
	mu    sync.Mutex
	locks map[string]*userLock
}

type userLock struct {
	ch   chan struct{}
	refs int
}

func NewUserLocker() *UserLocker {
	return &UserLocker{
		locks: make(map[string]*userLock),
	}
}

// Lock blocks until userID is free or ctx is done.
func (l *UserLocker) Lock(ctx context.Context, userID string) (func(), error) {
	l.mu.Lock()
	lock, ok := l.locks[userID]
	if !ok {
		lock = &userLock{ch: make(chan struct{}, 1)}
		l.locks[userID] = lock
	}
	lock.refs++
	l.mu.Unlock()

	select {
	case lock.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(userID, lock)
		return nil, fmt.Errorf("%w: %v", domain.ErrLockNotAcquired, ctx.Err())
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-lock.ch
			l.release(userID, lock)
		})
	}, nil
}

func (l *UserLocker) release(userID string, lock *userLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	lock.refs--
	if lock.refs == 0 {
		delete(l.locks, userID)
	}
}

// Held reports how many goroutines hold or wait for userID.
func (l *UserLocker) Held(userID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if lock, ok := l.locks[userID]; ok {
		return lock.refs
	}
	return 0
}
