package postgres

import (
	"context"
	"fmt"
	"time"

	"quiz-progress-service/internal/domain"

	"github.com/uptrace/bun"
)

type courseRow struct {
	bun.BaseModel `bun:"table:courses"`

	Slug      string        `bun:"slug,pk"`
	ID        string        `bun:"id,notnull"`
	Title     string        `bun:"title"`
	Data      domain.Course `bun:"data,type:jsonb,notnull"`
	UpdatedAt time.Time     `bun:"updated_at,notnull"`
}

// CourseStore writes course documents; reads go through CourseLoader.
type CourseStore struct {
	db  *bun.DB
	now func() time.Time
}

func NewCourseStore(db *bun.DB) *CourseStore {
	return &CourseStore{db: db, now: time.Now}
}

// Upsert inserts or replaces each course keyed by slug.
func (s *CourseStore) Upsert(ctx context.Context, courses ...domain.Course) error {
	if len(courses) == 0 {
		return nil
	}
	rows := make([]courseRow, 0, len(courses))
	for _, c := range courses {
		if c.Slug == "" || c.ID == "" {
			return fmt.Errorf("course %q: id and slug are required", c.Title)
		}
		rows = append(rows, courseRow{
			Slug:      c.Slug,
			ID:        c.ID,
			Title:     c.Title,
			Data:      c,
			UpdatedAt: s.now().UTC(),
		})
	}
	_, err := s.db.NewInsert().
		Model(&rows).
		On("CONFLICT (slug) DO UPDATE").
		Set("id = EXCLUDED.id").
		Set("title = EXCLUDED.title").
		Set("data = EXCLUDED.data").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("upsert courses: %w", err)
	}
	return nil
}
