package redis

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"quiz-progress-service/internal/domain"
	"quiz-progress-service/internal/infra/memory"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestCourseRepositoryCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := newClient(mr)

	loader := &countingLoader{
		CourseLoader: memory.NewStaticCourseLoader(map[string]domain.Course{
			"go-basics": sampleCourse(),
		}),
	}
	repo := NewCourseRepository(client, loader, time.Minute)

	course, err := repo.GetCourse(context.Background(), "go-basics")
	if err != nil {
		t.Fatalf("get course: %v", err)
	}
	if course.ID != "course-1" || len(course.Chapters) != 1 {
		t.Fatalf("unexpected course %+v", course)
	}
	if loader.count() != 1 {
		t.Fatalf("expected loader called once, got %d", loader.count())
	}
	if !mr.Exists("course:go-basics") {
		t.Fatalf("expected course cached in redis")
	}
	if ttl := mr.TTL("course:go-basics"); ttl < time.Minute || ttl > time.Minute+6*time.Second {
		t.Fatalf("unexpected ttl %v", ttl)
	}

	// Second call should hit cache, loader not incremented.
	cached, _ := repo.GetCourse(context.Background(), "go-basics")
	if loader.count() != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.count())
	}
	quiz := cached.Chapters[0].EndOfChapterQuiz
	if quiz == nil || quiz.Questions[0].Options[1].Correct != true {
		t.Fatalf("cached course lost quiz content: %+v", cached.Chapters[0])
	}

	if err := repo.Invalidate(context.Background(), "go-basics"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	_, _ = repo.GetCourse(context.Background(), "go-basics")
	if loader.count() != 2 {
		t.Fatalf("expected reload after invalidate, loader calls=%d", loader.count())
	}
}

func TestCourseRepositoryMissingCourse(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	repo := NewCourseRepository(newClient(mr), memory.NewStaticCourseLoader(nil), time.Minute)
	if _, err := repo.GetCourse(context.Background(), "nope"); !errors.Is(err, domain.ErrCourseNotFound) {
		t.Fatalf("expected course not found, got %v", err)
	}
	if mr.Exists("course:nope") {
		t.Fatalf("misses must not be cached")
	}
}

type countingLoader struct {
	memory.CourseLoader
	mu    sync.Mutex
	calls int
}

func (l *countingLoader) LoadCourse(ctx context.Context, slug string) (domain.Course, error) {
	l.mu.Lock()
	l.calls++
	l.mu.Unlock()
	return l.CourseLoader.LoadCourse(ctx, slug)
}

func (l *countingLoader) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

func sampleCourse() domain.Course {
	return domain.Course{
		ID:    "course-1",
		Slug:  "go-basics",
		Title: "Go Basics",
		Chapters: []domain.Chapter{
			{
				Title: "Types",
				EndOfChapterQuiz: &domain.Quiz{
					ID: "quiz-1",
					Questions: []domain.Question{
						{
							ID:     "q1",
							Prompt: "What is 2 + 2?",
							Options: []domain.Option{
								{ID: "o1", Text: "3", Correct: false},
								{ID: "o2", Text: "4", Correct: true},
							},
							Points: 1,
						},
					},
				},
			},
		},
	}
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
