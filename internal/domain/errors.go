package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnauthenticated is returned when no user id could be resolved.
	ErrUnauthenticated = errors.New("user not authenticated")
	// ErrCourseNotFound indicates the course content could not be loaded.
	ErrCourseNotFound = errors.New("course not found")
	// ErrChapterNotFound indicates a chapter index outside the course.
	ErrChapterNotFound = errors.New("chapter not found")
	// ErrLessonNotFound indicates a lesson index outside the chapter.
	ErrLessonNotFound = errors.New("lesson not found")
	// ErrQuizNotFound indicates the targeted chapter, lesson or course has no quiz.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrUserNotFound is returned by progress stores for unknown users.
	ErrUserNotFound = errors.New("user progress not found")
	// ErrQuestionNotFound indicates a submitted question ID is invalid.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrVersionConflict is returned when a progress document changed since it was loaded.
	ErrVersionConflict = errors.New("progress document modified concurrently")
	// ErrLockNotAcquired is returned when the per-user lock could not be taken in time.
	ErrLockNotAcquired = errors.New("user lock not acquired")
)

// AuthError maps to 401.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string {
	if e.Err == nil {
		return ErrUnauthenticated.Error()
	}
	return e.Err.Error()
}

func (e *AuthError) Unwrap() error { return e.Err }

// NotFoundError maps to 404.
type NotFoundError struct {
	Resource string
	Err      error
}

func (e *NotFoundError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Resource + " not found"
}

func (e *NotFoundError) Unwrap() error { return e.Err }

// FieldError is used to indicate an error with a specific payload field.
type FieldError struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

// ValidationError maps to 400.
type ValidationError struct {
	Err    error
	Fields []FieldError
}

// NewValidationError wraps err with optional field errors.
func NewValidationError(err error, fields ...FieldError) *ValidationError {
	return &ValidationError{Err: err, Fields: fields}
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Error)
	}
	return "invalid submission: " + strings.Join(parts, ", ")
}

func (e *ValidationError) Unwrap() error { return e.Err }

// EligibilityReason is a machine-readable rejection reason.
type EligibilityReason string

const (
	ReasonNotEnrolled              EligibilityReason = "not_enrolled"
	ReasonCompletionBelowThreshold EligibilityReason = "completion_below_threshold"
	ReasonDailyLimitReached        EligibilityReason = "daily_limit_reached"
)

// EligibilityError maps to 403. Quota and completion fields are set for the matching reasons.
type EligibilityError struct {
	Reason               EligibilityReason
	Message              string
	QuizzesTakenToday    int
	MaxQuizzesToday      int
	CompletionPercentage int
	RequiredPercentage   int
}

func (e *EligibilityError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return string(e.Reason)
}

// NotEnrolled builds the rejection for a missing course progress entry.
func NotEnrolled(courseSlug string) *EligibilityError {
	return &EligibilityError{
		Reason:  ReasonNotEnrolled,
		Message: fmt.Sprintf("not enrolled in course %q", courseSlug),
	}
}

// CompletionBelowThreshold builds the final-exam gate rejection.
func CompletionBelowThreshold(have, required int) *EligibilityError {
	return &EligibilityError{
		Reason:               ReasonCompletionBelowThreshold,
		Message:              fmt.Sprintf("complete at least %d%% of the course before taking the final exam (currently %d%%)", required, have),
		CompletionPercentage: have,
		RequiredPercentage:   required,
	}
}

// DailyLimitReached builds the quota rejection.
func DailyLimitReached(taken, max int) *EligibilityError {
	return &EligibilityError{
		Reason:            ReasonDailyLimitReached,
		Message:           fmt.Sprintf("daily quiz limit reached (%d/%d), try again tomorrow", taken, max),
		QuizzesTakenToday: taken,
		MaxQuizzesToday:   max,
	}
}

// PersistenceError maps to 500.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string {
	if e.Err == nil {
		return "failed to save progress"
	}
	return "failed to save progress: " + e.Err.Error()
}

func (e *PersistenceError) Unwrap() error { return e.Err }
