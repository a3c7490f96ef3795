package app

import (
	"context"
	"fmt"
	"time"

	"quiz-progress-service/internal/app/badges"
	"quiz-progress-service/internal/app/rewards"
	"quiz-progress-service/internal/domain"
)

// GetFinalExam returns the end-of-course exam without answer keys, together with the
// caller's attempt state. It applies the same enrollment and completion gates as submission.
func (s *ProgressService) GetFinalExam(ctx context.Context, id domain.Identity, courseSlug string) (domain.ExamView, error) {
	if id.UserID == "" {
		return domain.ExamView{}, &domain.AuthError{Err: domain.ErrUnauthenticated}
	}
	course, err := s.resolveCourse(ctx, courseSlug)
	if err != nil {
		return domain.ExamView{}, err
	}
	exam, err := finalExam(course)
	if err != nil {
		return domain.ExamView{}, err
	}
	user, err := s.read(ctx, id)
	if err != nil {
		return domain.ExamView{}, err
	}
	cp, err := s.examGate(user, course)
	if err != nil {
		return domain.ExamView{}, err
	}
	state := cp.EndOfCourseExam
	return domain.ExamView{
		CourseID:         course.ID,
		CourseSlug:       course.Slug,
		CourseTitle:      course.Title,
		Exam:             redactQuiz(exam),
		Attempts:         state.Attempts,
		Completed:        state.Completed,
		LastAttemptScore: state.Score,
		LastAttemptDate:  state.LastAttemptDate,
	}, nil
}

// SubmitFinalExam grades the end-of-course exam. The first passing attempt completes the
// course, grants the exam reward and the course-completion badge.
func (s *ProgressService) SubmitFinalExam(ctx context.Context, id domain.Identity, courseSlug string, sub domain.Submission) (domain.CompletionResult, error) {
	started := time.Now()
	const variant = domain.VariantFinalExam
	if id.UserID == "" {
		return domain.CompletionResult{}, s.reject(variant, id.UserID, &domain.AuthError{Err: domain.ErrUnauthenticated})
	}

	course, err := s.resolveCourse(ctx, courseSlug)
	if err != nil {
		return domain.CompletionResult{}, s.reject(variant, id.UserID, err)
	}
	exam, err := finalExam(course)
	if err != nil {
		return domain.CompletionResult{}, s.reject(variant, id.UserID, err)
	}
	score, err := s.grade(exam, sub, id.UserID)
	if err != nil {
		return domain.CompletionResult{}, s.reject(variant, id.UserID, err)
	}
	passed := score >= exam.Threshold(s.opts.PassingScore)

	var res domain.CompletionResult
	_, err = s.mutate(ctx, id, func(u *domain.User, now time.Time) error {
		res = domain.CompletionResult{
			Variant:            variant,
			CourseID:           course.ID,
			CourseSlug:         course.Slug,
			QuizID:             exam.ID,
			Score:              score,
			Passed:             passed,
			NewlyAwardedBadges: []domain.BadgeAward{},
		}

		cp, err := s.examGate(*u, course)
		if err != nil {
			return err
		}
		state := &cp.EndOfCourseExam
		firstPass := passed && !state.Completed
		if _, err := s.checkQuota(*u, firstPass); err != nil {
			return err
		}

		state.Attempts++
		attemptAt := now
		state.LastAttemptDate = &attemptAt
		res.IsNewHighScore = state.Attempts == 1 || score > state.Score
		if res.IsNewHighScore || firstPass {
			state.Score = score
		}
		cp.RecordScore(exam.ID, score)
		res.FirstPass = firstPass
		res.CompletionPercentage = cp.RecalculateCompletion(len(course.Chapters))
		res.Quota = s.quota.Status(*u)

		if firstPass {
			state.Completed = true
			cp.Completed = true
			completedAt := now
			cp.CompletionDate = &completedAt
			s.applyReward(u, rewards.FinalExam(u.XP, score), &res)
		}
		if passed {
			s.awardGlobalBadges(u, score, now, &res)
			def := badges.CourseCompletion(course)
			s.award(&cp.Badges, def, course.ID, now, &res)
			s.award(&u.Badges, def, course.ID, now, &res)
		}
		res.RedirectURL = examRedirect(course.Slug, passed)
		return nil
	})
	if err != nil {
		return domain.CompletionResult{}, s.reject(variant, id.UserID, err)
	}

	s.finish(id.UserID, started, res)
	return res, nil
}

// examGate enforces enrollment and the completion threshold, recomputing the
// percentage from the completed chapters against the current course content.
func (s *ProgressService) examGate(user domain.User, course domain.Course) (*domain.CourseProgress, error) {
	cp, ok := user.CourseProgress(course.ID)
	if !ok {
		return nil, domain.NotEnrolled(course.Slug)
	}
	have := domain.CompletionPercentage(len(cp.CompletedChapters), len(course.Chapters))
	if have < s.opts.ExamUnlockPercentage {
		return nil, domain.CompletionBelowThreshold(have, s.opts.ExamUnlockPercentage)
	}
	return cp, nil
}

func finalExam(course domain.Course) (domain.Quiz, error) {
	if course.EndOfCourseExam == nil {
		return domain.Quiz{}, &domain.NotFoundError{Resource: "exam", Err: domain.ErrQuizNotFound}
	}
	exam := *course.EndOfCourseExam
	if exam.ID == "" {
		exam.ID = fmt.Sprintf("%s:final-exam", course.ID)
	}
	return exam, nil
}

func examRedirect(slug string, passed bool) string {
	if passed {
		return fmt.Sprintf("/courses/%s/completed", slug)
	}
	return fmt.Sprintf("/courses/%s/final-exam", slug)
}
