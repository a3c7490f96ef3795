package memory

import (
	"fmt"
	"os"

	"quiz-progress-service/internal/domain"

	"gopkg.in/yaml.v3"
)

type courseFile struct {
	Courses []domain.Course `yaml:"courses"`
}

// LoadCourseFile reads a YAML catalogue of courses. Every course needs an id
// and a unique slug.
func LoadCourseFile(path string) ([]domain.Course, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file courseFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	seen := make(map[string]struct{}, len(file.Courses))
	for i, c := range file.Courses {
		if c.ID == "" || c.Slug == "" {
			return nil, fmt.Errorf("parse %s: course %d: id and slug are required", path, i)
		}
		if _, dup := seen[c.Slug]; dup {
			return nil, fmt.Errorf("parse %s: duplicate slug %q", path, c.Slug)
		}
		seen[c.Slug] = struct{}{}
	}
	return file.Courses, nil
}

// CoursesBySlug indexes courses for NewStaticCourseLoader.
func CoursesBySlug(courses []domain.Course) map[string]domain.Course {
	out := make(map[string]domain.Course, len(courses))
	for _, c := range courses {
		out[c.Slug] = c
	}
	return out
}
