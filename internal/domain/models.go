package domain

import "time"

// Tier is the subscription class supplied by the identity provider.
type Tier string

const (
	TierFree       Tier = "FREE"
	TierPro        Tier = "PRO"
	TierEnterprise Tier = "ENTERPRISE"
)

// Paid reports whether the tier unlocks the larger daily quota.
func (t Tier) Paid() bool {
	return t == TierPro || t == TierEnterprise
}

// Identity is the authenticated caller of a submission.
type Identity struct {
	UserID string
	Tier   Tier
}

// DefaultPassingScore applies to quizzes that do not declare their own threshold.
const DefaultPassingScore = 50

// Option represents a possible answer for a question.
type Option struct {
	ID      string `json:"id" yaml:"id"`
	Text    string `json:"text" yaml:"text"`
	Correct bool   `json:"correct,omitempty" yaml:"correct"`
}

// Question models a graded question. CorrectAnswer wins over Option.Correct when both are set.
type Question struct {
	ID            string   `json:"id" yaml:"id"`
	Prompt        string   `json:"prompt" yaml:"prompt"`
	Options       []Option `json:"options,omitempty" yaml:"options"`
	CorrectAnswer string   `json:"correctAnswer,omitempty" yaml:"correctAnswer"`
	Points        int      `json:"points" yaml:"points"` // defaults to 1 if zero
}

// Quiz is an end-of-lesson, end-of-chapter or end-of-course assessment.
type Quiz struct {
	ID           string     `json:"id" yaml:"id"`
	Title        string     `json:"title,omitempty" yaml:"title"`
	PassingScore int        `json:"passingScore" yaml:"passingScore"`
	Questions    []Question `json:"questions" yaml:"questions"`
}

// Threshold returns the passing score, falling back to def when the quiz has none.
func (q Quiz) Threshold(def int) int {
	if q.PassingScore > 0 {
		return q.PassingScore
	}
	return def
}

// Lesson is a unit inside a chapter.
type Lesson struct {
	Title           string `json:"title" yaml:"title"`
	EndOfLessonQuiz *Quiz  `json:"endOfLessonQuiz,omitempty" yaml:"endOfLessonQuiz"`
}

// Chapter groups lessons and owns the quiz that marks it completed.
type Chapter struct {
	Title            string   `json:"title" yaml:"title"`
	Lessons          []Lesson `json:"lessons,omitempty" yaml:"lessons"`
	EndOfChapterQuiz *Quiz    `json:"endOfChapterQuiz,omitempty" yaml:"endOfChapterQuiz"`
}

// CourseBadge is optional custom metadata for the course-completion badge.
type CourseBadge struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	IconURL     string `json:"iconUrl" yaml:"iconUrl"`
}

// Course is read-only content owned by the course store.
type Course struct {
	ID              string       `json:"id" yaml:"id"`
	Slug            string       `json:"slug" yaml:"slug"`
	Title           string       `json:"title" yaml:"title"`
	Chapters        []Chapter    `json:"chapters" yaml:"chapters"`
	EndOfCourseExam *Quiz        `json:"endOfCourseExam,omitempty" yaml:"endOfCourseExam"`
	Badge           *CourseBadge `json:"badge,omitempty" yaml:"badge"`
}

// BadgeAward is an earned badge stored on a user or a course progress entry.
type BadgeAward struct {
	BadgeID     string    `json:"badgeId"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	IconURL     string    `json:"iconUrl"`
	Type        string    `json:"type"`
	DateEarned  time.Time `json:"dateEarned"`
	CourseID    string    `json:"courseId,omitempty"`
}

// ExamAttemptState tracks the end-of-course exam for one course.
type ExamAttemptState struct {
	Attempts        int        `json:"attempts"`
	Completed       bool       `json:"completed"`
	Score           int        `json:"score"`
	LastAttemptDate *time.Time `json:"lastAttemptDate,omitempty"`
}

// CourseProgress is the per-course part of the progress document.
type CourseProgress struct {
	CourseID             string           `json:"courseId"`
	EnrolledAt           time.Time        `json:"enrolledAt"`
	Completed            bool             `json:"completed"`
	CompletionDate       *time.Time       `json:"completionDate,omitempty"`
	CompletionPercentage int              `json:"completionPercentage"`
	CompletedChapters    []int            `json:"completedChapters"`
	CompletedLessons     []string         `json:"completedLessons"`
	QuizScores           map[string]int   `json:"quizScores"`
	EndOfCourseExam      ExamAttemptState `json:"endOfCourseExam"`
	Badges               []BadgeAward     `json:"badges"`
}

// Subscription carries the tier last seen for the user.
type Subscription struct {
	Tier Tier `json:"tier"`
}

// Progress indexes course progress by course ID.
type Progress struct {
	Courses map[string]*CourseProgress `json:"courses"`
}

// User is the mutable per-user progress document. Version is bumped on every save.
type User struct {
	ID                 string       `json:"id"`
	Version            int64        `json:"version"`
	XP                 int          `json:"xp"`
	Level              int          `json:"level"`
	Gems               int          `json:"gems"`
	DailyQuizCount     int          `json:"dailyQuizCount"`
	LastQuizDate       *time.Time   `json:"lastQuizDate,omitempty"`
	LastQuizCompletion *time.Time   `json:"lastQuizCompletion,omitempty"`
	Badges             []BadgeAward `json:"badges"`
	Subscription       Subscription `json:"subscription"`
	Progress           Progress     `json:"progress"`
}

// Variant names the submission surface.
type Variant string

const (
	VariantChapterQuiz Variant = "chapter-quiz"
	VariantLessonQuiz  Variant = "lesson-quiz"
	VariantFinalExam   Variant = "final-exam"
)

// Submission is what a client sends for grading. Score is advisory only.
type Submission struct {
	Answers map[string]string
	Score   *int
}

// QuotaStatus reports the daily quota after a submission.
type QuotaStatus struct {
	QuizzesTakenToday int `json:"quizzesTakenToday"`
	MaxQuizzesToday   int `json:"maxQuizzesToday"`
}

// CompletionResult summarizes a persisted submission.
type CompletionResult struct {
	Variant              Variant      `json:"variant"`
	CourseID             string       `json:"courseId"`
	CourseSlug           string       `json:"courseSlug"`
	QuizID               string       `json:"quizId"`
	Score                int          `json:"score"`
	Passed               bool         `json:"passed"`
	IsNewHighScore       bool         `json:"isNewHighScore"`
	FirstPass            bool         `json:"firstPass"`
	XPGained             int          `json:"xpGained"`
	GemsGained           int          `json:"gemsGained"`
	LevelUp              bool         `json:"levelUp"`
	NewLevel             int          `json:"newLevel,omitempty"`
	CompletionPercentage int          `json:"completionPercentage"`
	NewlyAwardedBadges   []BadgeAward `json:"newlyAwardedBadges"`
	Quota                QuotaStatus  `json:"quota"`
	RedirectURL          string       `json:"redirectUrl,omitempty"`
}

// ExamView is the final exam as shown to a student, without answers.
type ExamView struct {
	CourseID         string     `json:"courseId"`
	CourseSlug       string     `json:"courseSlug"`
	CourseTitle      string     `json:"courseTitle"`
	Exam             Quiz       `json:"exam"`
	Attempts         int        `json:"attempts"`
	Completed        bool       `json:"completed"`
	LastAttemptScore int        `json:"lastAttemptScore"`
	LastAttemptDate  *time.Time `json:"lastAttemptDate,omitempty"`
}

// EventKind classifies progress feed events.
type EventKind string

const (
	EventQuizCompleted   EventKind = "quiz-completed"
	EventCourseCompleted EventKind = "course-completed"
)

// ProgressEvent is pushed to live subscribers after a rewarded submission is persisted.
type ProgressEvent struct {
	ID         string       `json:"id"`
	UserID     string       `json:"userId"`
	Kind       EventKind    `json:"kind"`
	Variant    Variant      `json:"variant"`
	CourseID   string       `json:"courseId"`
	XPGained   int          `json:"xpGained"`
	GemsGained int          `json:"gemsGained"`
	LevelUp    bool         `json:"levelUp"`
	NewLevel   int          `json:"newLevel,omitempty"`
	Badges     []BadgeAward `json:"badges,omitempty"`
	At         time.Time    `json:"at"`
}
