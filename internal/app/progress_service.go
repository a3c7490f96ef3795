package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"quiz-progress-service/internal/app/badges"
	"quiz-progress-service/internal/app/quota"
	"quiz-progress-service/internal/app/rewards"
	"quiz-progress-service/internal/domain"
	"quiz-progress-service/internal/logger"
	"quiz-progress-service/internal/metrics"
)

// CourseRepository loads course content (from cache/backing store).
type CourseRepository interface {
	GetCourse(ctx context.Context, slug string) (domain.Course, error)
}

// ProgressStore persists user progress documents with optimistic versioning.
// Load returns domain.ErrUserNotFound for unknown users. Save must reject a
// document whose Version differs from the stored one with domain.ErrVersionConflict
// (Version 0 means "create") and returns the document with its new version.
type ProgressStore interface {
	Load(ctx context.Context, userID string) (domain.User, error)
	Save(ctx context.Context, user domain.User) (domain.User, error)
}

// UserLocker serializes mutations of one user's document.
type UserLocker interface {
	Lock(ctx context.Context, userID string) (unlock func(), err error)
}

// EventPublisher receives events after a rewarded submission is persisted.
type EventPublisher interface {
	Publish(event domain.ProgressEvent)
}

// Options tunes thresholds and retry behavior.
type Options struct {
	PassingScore         int
	ExamUnlockPercentage int
	MaxRetries           int
	Quota                quota.Limits
}

// DefaultOptions mirrors the production defaults.
func DefaultOptions() Options {
	return Options{
		PassingScore:         domain.DefaultPassingScore,
		ExamUnlockPercentage: 90,
		MaxRetries:           3,
		Quota:                quota.DefaultLimits(),
	}
}

// ProgressService orchestrates quiz and exam submissions against the progress document.
type ProgressService struct {
	courses CourseRepository
	store   ProgressStore
	locks   UserLocker
	events  EventPublisher
	badges  *badges.Registry
	quota   *quota.Tracker
	opts    Options
	log     *logger.Logger
	now     func() time.Time
}

func NewProgressService(courses CourseRepository, store ProgressStore, locks UserLocker, events EventPublisher, log *logger.Logger, opts Options) *ProgressService {
	return NewProgressServiceWithClock(courses, store, locks, events, log, opts, time.Now)
}

// NewProgressServiceWithClock allows deterministic days and timestamps in tests.
func NewProgressServiceWithClock(courses CourseRepository, store ProgressStore, locks UserLocker, events EventPublisher, log *logger.Logger, opts Options, now func() time.Time) *ProgressService {
	def := DefaultOptions()
	if opts.PassingScore <= 0 {
		opts.PassingScore = def.PassingScore
	}
	if opts.ExamUnlockPercentage <= 0 {
		opts.ExamUnlockPercentage = def.ExamUnlockPercentage
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = def.MaxRetries
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &ProgressService{
		courses: courses,
		store:   store,
		locks:   locks,
		events:  events,
		badges:  badges.NewRegistry(),
		quota:   quota.NewTrackerWithClock(opts.Quota, now),
		opts:    opts,
		log:     log.With("service", "ProgressService"),
		now:     now,
	}
}

// Badges exposes the catalogue so callers can register additional definitions.
func (s *ProgressService) Badges() *badges.Registry {
	return s.badges
}

// UserSummary is the global part of the progress document plus quota status.
type UserSummary struct {
	UserID string              `json:"userId"`
	XP     int                 `json:"xp"`
	Level  int                 `json:"level"`
	Gems   int                 `json:"gems"`
	Tier   domain.Tier         `json:"tier"`
	Badges []domain.BadgeAward `json:"badges"`
	Quota  domain.QuotaStatus  `json:"quota"`
}

// Summary returns the caller's global progress. Unknown users read as empty.
func (s *ProgressService) Summary(ctx context.Context, id domain.Identity) (UserSummary, error) {
	user, err := s.read(ctx, id)
	if err != nil {
		return UserSummary{}, err
	}
	return UserSummary{
		UserID: user.ID,
		XP:     user.XP,
		Level:  user.Level,
		Gems:   user.Gems,
		Tier:   user.Subscription.Tier,
		Badges: user.Badges,
		Quota:  s.quota.Status(user),
	}, nil
}

// CourseProgress returns the caller's progress for one course.
func (s *ProgressService) CourseProgress(ctx context.Context, id domain.Identity, courseSlug string) (domain.CourseProgress, error) {
	course, err := s.resolveCourse(ctx, courseSlug)
	if err != nil {
		return domain.CourseProgress{}, err
	}
	user, err := s.read(ctx, id)
	if err != nil {
		return domain.CourseProgress{}, err
	}
	cp, ok := user.CourseProgress(course.ID)
	if !ok {
		return domain.CourseProgress{}, domain.NotEnrolled(courseSlug)
	}
	return *cp, nil
}

// Enroll creates the caller's course progress entry if it does not exist yet.
func (s *ProgressService) Enroll(ctx context.Context, id domain.Identity, courseSlug string) (domain.CourseProgress, error) {
	course, err := s.resolveCourse(ctx, courseSlug)
	if err != nil {
		return domain.CourseProgress{}, err
	}
	var out domain.CourseProgress
	_, err = s.mutate(ctx, id, func(u *domain.User, now time.Time) error {
		cp, created := u.Enroll(course.ID, now)
		if !created {
			out = *cp
			return errNothingToSave
		}
		cp.RecalculateCompletion(len(course.Chapters))
		out = *cp
		return nil
	})
	if err != nil && !errors.Is(err, errNothingToSave) {
		return domain.CourseProgress{}, err
	}
	return out, nil
}

// errNothingToSave lets a mutation finish without writing the document.
var errNothingToSave = errors.New("nothing to save")

// read loads the document without locking. Missing documents read as empty.
func (s *ProgressService) read(ctx context.Context, id domain.Identity) (domain.User, error) {
	if id.UserID == "" {
		return domain.User{}, &domain.AuthError{Err: domain.ErrUnauthenticated}
	}
	user, err := s.store.Load(ctx, id.UserID)
	if errors.Is(err, domain.ErrUserNotFound) {
		return domain.NewUser(id.UserID, id.Tier), nil
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("load progress: %w", err)
	}
	if id.Tier != "" {
		user.Subscription.Tier = id.Tier
	}
	return user, nil
}

// mutate runs fn on a fresh copy of the caller's document under the per-user lock and
// saves it with an optimistic version check, rerunning the whole cycle on conflict.
// An error from fn aborts without saving, so rejected submissions never mutate state.
func (s *ProgressService) mutate(ctx context.Context, id domain.Identity, fn func(u *domain.User, now time.Time) error) (domain.User, error) {
	if id.UserID == "" {
		return domain.User{}, &domain.AuthError{Err: domain.ErrUnauthenticated}
	}
	unlock, err := s.locks.Lock(ctx, id.UserID)
	if err != nil {
		return domain.User{}, &domain.PersistenceError{Err: fmt.Errorf("lock user: %w", err)}
	}
	defer unlock()

	for attempt := 0; attempt <= s.opts.MaxRetries; attempt++ {
		user, err := s.read(ctx, id)
		if err != nil {
			return domain.User{}, &domain.PersistenceError{Err: err}
		}
		if err := fn(&user, s.now()); err != nil {
			return domain.User{}, err
		}
		saved, err := s.store.Save(ctx, user)
		if errors.Is(err, domain.ErrVersionConflict) {
			metrics.VersionConflicts.Inc()
			s.log.Warn("progress save conflict, retrying", "user_id", id.UserID, "attempt", attempt+1)
			continue
		}
		if err != nil {
			return domain.User{}, &domain.PersistenceError{Err: err}
		}
		return saved, nil
	}
	return domain.User{}, &domain.PersistenceError{Err: domain.ErrVersionConflict}
}

func (s *ProgressService) resolveCourse(ctx context.Context, slug string) (domain.Course, error) {
	if slug == "" {
		return domain.Course{}, domain.NewValidationError(nil, domain.FieldError{Field: "courseSlug", Error: "is required"})
	}
	course, err := s.courses.GetCourse(ctx, slug)
	if errors.Is(err, domain.ErrCourseNotFound) {
		return domain.Course{}, &domain.NotFoundError{Resource: "course", Err: err}
	}
	if err != nil {
		return domain.Course{}, fmt.Errorf("load course %q: %w", slug, err)
	}
	return course, nil
}

// grade recomputes the score and logs when the client's advisory score disagrees.
func (s *ProgressService) grade(quiz domain.Quiz, sub domain.Submission, userID string) (int, error) {
	score, err := gradeQuiz(quiz, sub.Answers)
	if err != nil {
		return 0, err
	}
	if sub.Score != nil && *sub.Score != score {
		s.log.Warn("client score disagrees with server grading", "user_id", userID, "quiz", quiz.ID, "client_score", *sub.Score, "score", score)
	}
	return score, nil
}

// applyReward credits XP and gems, refreshes the persisted level and consumes
// quota. It runs only for rewarded submissions.
func (s *ProgressService) applyReward(u *domain.User, r rewards.Reward, res *domain.CompletionResult) {
	u.XP += r.XP
	u.Gems += r.Gems
	u.Level = rewards.LevelFromCourseXP(u.XP)

	res.XPGained = r.XP
	res.GemsGained = r.Gems
	res.LevelUp = r.LevelUp
	if r.LevelUp {
		res.NewLevel = r.NewLevel
	}
	res.Quota = s.quota.CheckAndConsume(u, true).Status()
}

// awardGlobalBadges grants the badges any passing submission can unlock.
func (s *ProgressService) awardGlobalBadges(u *domain.User, score int, now time.Time, res *domain.CompletionResult) {
	s.award(&u.Badges, s.badges.MustLookup(badges.FirstQuizCompleted), "", now, res)
	if score == 100 {
		s.award(&u.Badges, s.badges.MustLookup(badges.PerfectScore), "", now, res)
	}
}

func (s *ProgressService) award(list *[]domain.BadgeAward, def badges.Definition, courseID string, now time.Time, res *domain.CompletionResult) {
	award, ok := badges.Award(list, def, courseID, now)
	if !ok {
		return
	}
	for _, b := range res.NewlyAwardedBadges {
		if b.BadgeID == award.BadgeID {
			return
		}
	}
	res.NewlyAwardedBadges = append(res.NewlyAwardedBadges, award)
}

// checkQuota rejects a counted attempt once today's quota is spent.
func (s *ProgressService) checkQuota(u domain.User, counts bool) (quota.Decision, error) {
	d := s.quota.Check(u, counts)
	if !d.Allowed {
		return d, domain.DailyLimitReached(d.Taken, d.Max)
	}
	return d, nil
}

// finish records metrics, logs and publishes the live event for a persisted submission.
func (s *ProgressService) finish(userID string, started time.Time, res domain.CompletionResult) {
	outcome := "failed"
	if res.Passed {
		outcome = "passed"
	}
	variant := string(res.Variant)
	metrics.Submissions.WithLabelValues(variant, outcome).Inc()
	metrics.SubmissionLatency.WithLabelValues(variant).Observe(time.Since(started).Seconds())
	if res.XPGained > 0 {
		metrics.XPAwarded.WithLabelValues(variant).Add(float64(res.XPGained))
	}
	if res.GemsGained > 0 {
		metrics.GemsAwarded.WithLabelValues(variant).Add(float64(res.GemsGained))
	}
	for _, b := range res.NewlyAwardedBadges {
		metrics.BadgesAwarded.WithLabelValues(b.Type).Inc()
	}

	s.log.Info("submission persisted",
		"user_id", userID,
		"variant", variant,
		"course", res.CourseSlug,
		"quiz", res.QuizID,
		"score", res.Score,
		"passed", res.Passed,
		"xp", res.XPGained,
		"gems", res.GemsGained,
		"badges", len(res.NewlyAwardedBadges),
	)

	if s.events == nil || (res.XPGained == 0 && len(res.NewlyAwardedBadges) == 0) {
		return
	}
	kind := domain.EventQuizCompleted
	if res.Variant == domain.VariantFinalExam && res.FirstPass {
		kind = domain.EventCourseCompleted
	}
	s.events.Publish(domain.ProgressEvent{
		ID:         uuid.NewString(),
		UserID:     userID,
		Kind:       kind,
		Variant:    res.Variant,
		CourseID:   res.CourseID,
		XPGained:   res.XPGained,
		GemsGained: res.GemsGained,
		LevelUp:    res.LevelUp,
		NewLevel:   res.NewLevel,
		Badges:     res.NewlyAwardedBadges,
		At:         s.now(),
	})
}

// reject records a gate failure.
func (s *ProgressService) reject(variant domain.Variant, userID string, err error) error {
	reason := "error"
	var elig *domain.EligibilityError
	var verr *domain.ValidationError
	var nf *domain.NotFoundError
	var perr *domain.PersistenceError
	switch {
	case errors.As(err, &elig):
		reason = string(elig.Reason)
	case errors.As(err, &verr):
		reason = "validation"
	case errors.As(err, &nf):
		reason = "not_found"
	case errors.As(err, &perr):
		reason = "persistence"
		s.log.Error("progress save failed", "user_id", userID, "variant", variant, "error", err)
	}
	metrics.Rejections.WithLabelValues(string(variant), reason).Inc()
	s.log.Info("submission rejected", "user_id", userID, "variant", variant, "reason", reason, "error", err)
	return err
}
