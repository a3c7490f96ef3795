// Package badges holds the badge catalogue and the award-if-absent operation.
package badges

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"quiz-progress-service/internal/domain"
)

// Kind is the closed set of badge variants.
type Kind string

const (
	KindFirstQuiz        Kind = "first-quiz"
	KindPerfectScore     Kind = "perfect-score"
	KindCourseCompletion Kind = "course-completion"
)

// Scope says which collection a badge is stored in.
type Scope int

const (
	ScopeGlobal Scope = iota
	ScopeCourse
)

// Stable ids of the built-in badges.
const (
	FirstQuizCompleted = "FIRST_QUIZ_COMPLETED"
	PerfectScore       = "PERFECT_SCORE"

	courseCompletePrefix = "COURSE_COMPLETE_"
)

// Definition describes one badge.
type Definition struct {
	ID          string
	Name        string
	Description string
	IconURL     string
	Kind        Kind
	Scope       Scope
}

// Registry is an append-only catalogue keyed by stable id.
type Registry struct {
	mu   sync.RWMutex
	defs map[string]Definition
}

// NewRegistry returns a registry pre-loaded with the built-in badges.
func NewRegistry() *Registry {
	r := &Registry{defs: make(map[string]Definition)}
	for _, def := range builtins() {
		r.defs[def.ID] = def
	}
	return r
}

func builtins() []Definition {
	return []Definition{
		{
			ID:          FirstQuizCompleted,
			Name:        "First Steps",
			Description: "Completed your first quiz",
			IconURL:     "/badges/first-quiz.svg",
			Kind:        KindFirstQuiz,
			Scope:       ScopeGlobal,
		},
		{
			ID:          PerfectScore,
			Name:        "Flawless",
			Description: "Scored 100% on a quiz or exam",
			IconURL:     "/badges/perfect-score.svg",
			Kind:        KindPerfectScore,
			Scope:       ScopeGlobal,
		},
	}
}

// Register adds a new definition. Existing ids are never redefined.
func (r *Registry) Register(def Definition) error {
	if def.ID == "" {
		return fmt.Errorf("badge id is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.defs[def.ID]; ok {
		return fmt.Errorf("badge %q already registered", def.ID)
	}
	r.defs[def.ID] = def
	return nil
}

// Lookup returns the definition registered under id.
func (r *Registry) Lookup(id string) (Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.defs[id]
	return def, ok
}

// MustLookup panics on unknown ids; reserved for the built-in constants.
func (r *Registry) MustLookup(id string) Definition {
	def, ok := r.Lookup(id)
	if !ok {
		panic("badges: unknown badge " + id)
	}
	return def
}

// Definitions returns the catalogue sorted by id.
func (r *Registry) Definitions() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Definition, 0, len(r.defs))
	for _, def := range r.defs {
		out = append(out, def)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// CourseCompletion synthesizes the course-completion badge, using the course's
// custom metadata when present.
func CourseCompletion(course domain.Course) Definition {
	def := Definition{
		ID:          CourseBadgeID(course.Slug),
		Name:        course.Title + " Master",
		Description: fmt.Sprintf("Completed the %s course", course.Title),
		IconURL:     "/badges/course-completion.svg",
		Kind:        KindCourseCompletion,
		Scope:       ScopeCourse,
	}
	if b := course.Badge; b != nil {
		if b.Name != "" {
			def.Name = b.Name
		}
		if b.Description != "" {
			def.Description = b.Description
		}
		if b.IconURL != "" {
			def.IconURL = b.IconURL
		}
	}
	return def
}

// CourseBadgeID is COURSE_COMPLETE_<SLUG_UPPER> with non-alphanumerics folded to '_'.
func CourseBadgeID(slug string) string {
	var b strings.Builder
	b.WriteString(courseCompletePrefix)
	for _, r := range strings.ToUpper(slug) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}

// Has reports whether list already holds badgeID.
func Has(list []domain.BadgeAward, badgeID string) bool {
	for _, b := range list {
		if b.BadgeID == badgeID {
			return true
		}
	}
	return false
}

// Award appends def to list unless an award with the same id is present.
// It returns the award and true only when a new entry was inserted.
func Award(list *[]domain.BadgeAward, def Definition, courseID string, now time.Time) (domain.BadgeAward, bool) {
	if Has(*list, def.ID) {
		return domain.BadgeAward{}, false
	}
	award := domain.BadgeAward{
		BadgeID:     def.ID,
		Name:        def.Name,
		Description: def.Description,
		IconURL:     def.IconURL,
		Type:        string(def.Kind),
		DateEarned:  now,
		CourseID:    courseID,
	}
	*list = append(*list, award)
	return award, true
}
