package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"quiz-progress-service/internal/domain"
	"quiz-progress-service/internal/infra/memory"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// CourseRepository caches course documents in Redis and falls back to a
// loader on cache miss. Each course is stored as JSON at course:{slug}.
type CourseRepository struct {
	client *redis.Client
	loader memory.CourseLoader
	ttl    time.Duration
	sf     singleflight.Group
	rndMu  sync.Mutex
	rnd    *rand.Rand
}

func NewCourseRepository(client *redis.Client, loader memory.CourseLoader, ttl time.Duration) *CourseRepository {
	return &CourseRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *CourseRepository) GetCourse(ctx context.Context, slug string) (domain.Course, error) {
	if course, ok := r.cached(ctx, slug); ok {
		return course, nil
	}

	result, err, _ := r.sf.Do(slug, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if course, ok := r.cached(ctx, slug); ok {
			return course, nil
		}

		course, err := r.loader.LoadCourse(ctx, slug)
		if err != nil {
			return domain.Course{}, err
		}

		// best-effort fill, a failed write only costs a reload
		if raw, err := json.Marshal(course); err == nil {
			_ = r.client.Set(ctx, r.key(slug), raw, r.ttlWithJitter()).Err()
		}
		return course, nil
	})
	if err != nil {
		return domain.Course{}, err
	}
	return result.(domain.Course), nil
}

// Invalidate drops the cached copy of slug, typically after a reseed.
func (r *CourseRepository) Invalidate(ctx context.Context, slug string) error {
	return r.client.Del(ctx, r.key(slug)).Err()
}

func (r *CourseRepository) cached(ctx context.Context, slug string) (domain.Course, bool) {
	raw, err := r.client.Get(ctx, r.key(slug)).Bytes()
	if err != nil {
		return domain.Course{}, false
	}
	var course domain.Course
	if err := json.Unmarshal(raw, &course); err != nil {
		return domain.Course{}, false
	}
	return course, true
}

func (r *CourseRepository) key(slug string) string {
	return "course:" + slug
}

func (r *CourseRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
