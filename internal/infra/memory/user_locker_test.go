package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"quiz-progress-service/internal/domain"
)

func TestUserLockerLifecycle(t *testing.T) {
	locker := NewUserLocker()

	unlock, err := locker.Lock(context.Background(), "u1")
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	if locker.Held("u1") != 1 {
		t.Fatalf("expected lock held")
	}

	unlock()
	unlock() // idempotent
	if locker.Held("u1") != 0 {
		t.Fatalf("expected lock entry removed when released")
	}
}

func TestUserLockerSerializes(t *testing.T) {
	locker := NewUserLocker()
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		inside  int
		maxSeen int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := locker.Lock(context.Background(), "u1")
			if err != nil {
				t.Errorf("lock: %v", err)
				return
			}
			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()
			time.Sleep(time.Millisecond)
			mu.Lock()
			inside--
			mu.Unlock()
			unlock()
		}()
	}
	wg.Wait()
	if maxSeen != 1 {
		t.Fatalf("expected one holder at a time, saw %d", maxSeen)
	}
}

func TestUserLockerHonorsContext(t *testing.T) {
	locker := NewUserLocker()
	unlock, _ := locker.Lock(context.Background(), "u1")
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := locker.Lock(ctx, "u1"); !errors.Is(err, domain.ErrLockNotAcquired) {
		t.Fatalf("expected lock timeout, got %v", err)
	}
	if locker.Held("u1") != 1 {
		t.Fatalf("waiter must be released on timeout")
	}

	if unlockOther, err := locker.Lock(context.Background(), "u2"); err != nil {
		t.Fatalf("other users must not be blocked: %v", err)
	} else {
		unlockOther()
	}
}
