package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"quiz-progress-service/internal/domain"
)

// CourseLoader fetches course content from a backing store (e.g., document DB).
type CourseLoader interface {
	LoadCourse(ctx context.Context, slug string) (domain.Course, error)
}

// CourseRepository caches courses with TTL to avoid repeated DB hits.
type CourseRepository struct {
	loader CourseLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand
	rndMu  sync.Mutex

	mu    sync.RWMutex
	cache map[string]cachedCourse
}

type cachedCourse struct {
	course    domain.Course
	expiresAt time.Time
}

func NewCourseRepository(loader CourseLoader, ttl time.Duration) *CourseRepository {
	return &CourseRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedCourse),
	}
}

func (r *CourseRepository) GetCourse(ctx context.Context, slug string) (domain.Course, error) {
	if course, ok := r.cached(slug); ok {
		return course, nil
	}

	result, err, _ := r.sf.Do(slug, func() (interface{}, error) {
		if course, ok := r.cached(slug); ok {
			return course, nil
		}

		course, err := r.loader.LoadCourse(ctx, slug)
		if err != nil {
			return domain.Course{}, err
		}

		r.mu.Lock()
		r.cache[slug] = cachedCourse{
			course:    course,
			expiresAt: r.clock().Add(r.ttlWithJitter()),
		}
		r.mu.Unlock()
		return course, nil
	})
	if err != nil {
		return domain.Course{}, err
	}
	return result.(domain.Course), nil
}

// Invalidate drops a cached course so the next read reloads it.
func (r *CourseRepository) Invalidate(slug string) {
	r.mu.Lock()
	delete(r.cache, slug)
	r.mu.Unlock()
}

func (r *CourseRepository) cached(slug string) (domain.Course, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if entry, ok := r.cache[slug]; ok && entry.expiresAt.After(r.clock()) {
		return entry.course, true
	}
	return domain.Course{}, false
}

func (r *CourseRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticCourseLoader is a simple loader backed by an in-memory map keyed by slug (useful for tests/demos).
type StaticCourseLoader struct {
	courses map[string]domain.Course
}

func NewStaticCourseLoader(courses map[string]domain.Course) *StaticCourseLoader {
	return &StaticCourseLoader{courses: courses}
}

func (l *StaticCourseLoader) LoadCourse(_ context.Context, slug string) (domain.Course, error) {
	if course, ok := l.courses[slug]; ok {
		return course, nil
	}
	return domain.Course{}, domain.ErrCourseNotFound
}
