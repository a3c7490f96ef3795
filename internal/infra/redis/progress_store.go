package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"quiz-progress-service/internal/domain"

	"github.com/redis/go-redis/v9"
)

// ProgressStore keeps one JSON document per user at progress:user:{id}.
// Save is optimistic: WATCH the key, compare versions, write in MULTI.
type ProgressStore struct {
	client *redis.Client
}

func NewProgressStore(client *redis.Client) *ProgressStore {
	return &ProgressStore{client: client}
}

func (s *ProgressStore) Load(ctx context.Context, userID string) (domain.User, error) {
	return s.get(ctx, s.client, userID)
}

func (s *ProgressStore) Save(ctx context.Context, user domain.User) (domain.User, error) {
	key := s.key(user.ID)
	var saved domain.User
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := s.get(ctx, tx, user.ID)
		switch {
		case errors.Is(err, domain.ErrUserNotFound):
			if user.Version != 0 {
				return domain.ErrVersionConflict
			}
		case err != nil:
			return err
		case current.Version != user.Version:
			return domain.ErrVersionConflict
		}

		saved = user.Clone()
		saved.Version++
		raw, err := json.Marshal(saved)
		if err != nil {
			return fmt.Errorf("marshal progress: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, raw, 0)
			return nil
		})
		return err
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		return domain.User{}, domain.ErrVersionConflict
	}
	if err != nil {
		return domain.User{}, err
	}
	return saved, nil
}

func (s *ProgressStore) get(ctx context.Context, c redis.Cmdable, userID string) (domain.User, error) {
	raw, err := c.Get(ctx, s.key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.User{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("load progress: %w", err)
	}
	var user domain.User
	if err := json.Unmarshal(raw, &user); err != nil {
		return domain.User{}, fmt.Errorf("unmarshal progress: %w", err)
	}
	return user, nil
}

func (s *ProgressStore) key(userID string) string {
	return "progress:user:" + userID
}
