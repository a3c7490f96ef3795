package redis

import (
	"context"
	"fmt"
	"time"

	"quiz-progress-service/internal/domain"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const lockRetryInterval = 25 * time.Millisecond

var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// UserLocker serializes progress writes for a user across service instances.
// The lock is a SET NX key with a TTL so a crashed holder cannot wedge a user.
type UserLocker struct {
	client *redis.Client
	ttl    time.Duration
	wait   time.Duration
}

// NewUserLocker returns a locker whose keys expire after ttl. Lock gives up
// after wait unless the caller's context ends first.
func NewUserLocker(client *redis.Client, ttl, wait time.Duration) *UserLocker {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	if wait <= 0 {
		wait = ttl
	}
	return &UserLocker{client: client, ttl: ttl, wait: wait}
}

func (l *UserLocker) Lock(ctx context.Context, userID string) (func(), error) {
	key := l.key(userID)
	token := uuid.NewString()

	ctx, cancel := context.WithTimeout(ctx, l.wait)
	defer cancel()

	ticker := time.NewTicker(lockRetryInterval)
	defer ticker.Stop()
	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil && ctx.Err() == nil {
			return nil, fmt.Errorf("acquire lock: %w", err)
		}
		if ok {
			return func() {
				_ = unlockScript.Run(context.Background(), l.client, []string{key}, token).Err()
			}, nil
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", domain.ErrLockNotAcquired, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (l *UserLocker) key(userID string) string {
	return "progress:lock:" + userID
}
