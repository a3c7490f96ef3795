package domain

import (
	"math"
	"sort"
	"time"
)

// NewUser returns an empty progress document, used on first write.
func NewUser(id string, tier Tier) User {
	if tier == "" {
		tier = TierFree
	}
	return User{
		ID:           id,
		Level:        1,
		Badges:       []BadgeAward{},
		Subscription: Subscription{Tier: tier},
		Progress:     Progress{Courses: make(map[string]*CourseProgress)},
	}
}

// NewCourseProgress returns an empty enrollment for courseID.
func NewCourseProgress(courseID string, now time.Time) *CourseProgress {
	return &CourseProgress{
		CourseID:          courseID,
		EnrolledAt:        now,
		CompletedChapters: []int{},
		CompletedLessons:  []string{},
		QuizScores:        make(map[string]int),
		Badges:            []BadgeAward{},
	}
}

// CourseProgress returns the enrollment for courseID, if any.
func (u *User) CourseProgress(courseID string) (*CourseProgress, bool) {
	if u.Progress.Courses == nil {
		return nil, false
	}
	cp, ok := u.Progress.Courses[courseID]
	return cp, ok && cp != nil
}

// Enroll returns the enrollment for courseID, creating it when missing.
// The boolean is true when a new entry was created.
func (u *User) Enroll(courseID string, now time.Time) (*CourseProgress, bool) {
	if cp, ok := u.CourseProgress(courseID); ok {
		return cp, false
	}
	if u.Progress.Courses == nil {
		u.Progress.Courses = make(map[string]*CourseProgress)
	}
	cp := NewCourseProgress(courseID, now)
	u.Progress.Courses[courseID] = cp
	return cp, true
}

// Clone deep-copies the document so a failed save never leaks in-memory mutation.
func (u User) Clone() User {
	out := u
	out.LastQuizDate = cloneTime(u.LastQuizDate)
	out.LastQuizCompletion = cloneTime(u.LastQuizCompletion)
	out.Badges = append([]BadgeAward{}, u.Badges...)
	out.Progress.Courses = make(map[string]*CourseProgress, len(u.Progress.Courses))
	for id, cp := range u.Progress.Courses {
		if cp == nil {
			continue
		}
		out.Progress.Courses[id] = cp.clone()
	}
	return out
}

func (cp *CourseProgress) clone() *CourseProgress {
	out := *cp
	out.CompletionDate = cloneTime(cp.CompletionDate)
	out.CompletedChapters = append([]int{}, cp.CompletedChapters...)
	out.CompletedLessons = append([]string{}, cp.CompletedLessons...)
	out.QuizScores = make(map[string]int, len(cp.QuizScores))
	for k, v := range cp.QuizScores {
		out.QuizScores[k] = v
	}
	out.EndOfCourseExam.LastAttemptDate = cloneTime(cp.EndOfCourseExam.LastAttemptDate)
	out.Badges = append([]BadgeAward{}, cp.Badges...)
	return &out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// HasCompletedChapter reports whether the chapter index is already recorded.
func (cp *CourseProgress) HasCompletedChapter(index int) bool {
	for _, c := range cp.CompletedChapters {
		if c == index {
			return true
		}
	}
	return false
}

// MarkChapterCompleted inserts index once and keeps the set sorted.
func (cp *CourseProgress) MarkChapterCompleted(index int) bool {
	if cp.HasCompletedChapter(index) {
		return false
	}
	cp.CompletedChapters = append(cp.CompletedChapters, index)
	sort.Ints(cp.CompletedChapters)
	return true
}

// MarkLessonCompleted inserts the lesson key once.
func (cp *CourseProgress) MarkLessonCompleted(key string) bool {
	for _, k := range cp.CompletedLessons {
		if k == key {
			return false
		}
	}
	cp.CompletedLessons = append(cp.CompletedLessons, key)
	return true
}

// BestScore returns the best recorded score for quizID.
func (cp *CourseProgress) BestScore(quizID string) (int, bool) {
	s, ok := cp.QuizScores[quizID]
	return s, ok
}

// RecordScore keeps the best score seen and reports whether score is a new high.
func (cp *CourseProgress) RecordScore(quizID string, score int) bool {
	if cp.QuizScores == nil {
		cp.QuizScores = make(map[string]int)
	}
	if prev, ok := cp.QuizScores[quizID]; ok && score <= prev {
		return false
	}
	cp.QuizScores[quizID] = score
	return true
}

// RecalculateCompletion derives CompletionPercentage from the completed chapter set.
func (cp *CourseProgress) RecalculateCompletion(totalChapters int) int {
	cp.CompletionPercentage = CompletionPercentage(len(cp.CompletedChapters), totalChapters)
	return cp.CompletionPercentage
}

// CompletionPercentage is round(100 * completed / total), 0 for an empty course.
func CompletionPercentage(completed, total int) int {
	if total <= 0 {
		return 0
	}
	if completed > total {
		completed = total
	}
	return int(math.Round(100 * float64(completed) / float64(total)))
}

// UTCDay truncates t to midnight UTC.
func UTCDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
