package app

import (
	"context"
	"fmt"
	"time"

	"quiz-progress-service/internal/app/rewards"
	"quiz-progress-service/internal/domain"
)

// CompleteChapterQuiz grades an end-of-chapter quiz and updates the caller's course progress.
// Rewards are granted for a passing submission that beats the best recorded score.
func (s *ProgressService) CompleteChapterQuiz(ctx context.Context, id domain.Identity, courseSlug string, chapterIndex int, sub domain.Submission) (domain.CompletionResult, error) {
	started := time.Now()
	const variant = domain.VariantChapterQuiz
	if id.UserID == "" {
		return domain.CompletionResult{}, s.reject(variant, id.UserID, &domain.AuthError{Err: domain.ErrUnauthenticated})
	}

	course, err := s.resolveCourse(ctx, courseSlug)
	if err != nil {
		return domain.CompletionResult{}, s.reject(variant, id.UserID, err)
	}
	quiz, err := chapterQuiz(course, chapterIndex)
	if err != nil {
		return domain.CompletionResult{}, s.reject(variant, id.UserID, err)
	}
	score, err := s.grade(quiz, sub, id.UserID)
	if err != nil {
		return domain.CompletionResult{}, s.reject(variant, id.UserID, err)
	}
	passed := score >= quiz.Threshold(s.opts.PassingScore)

	var res domain.CompletionResult
	_, err = s.mutate(ctx, id, func(u *domain.User, now time.Time) error {
		res = domain.CompletionResult{
			Variant:            variant,
			CourseID:           course.ID,
			CourseSlug:         course.Slug,
			QuizID:             quiz.ID,
			Score:              score,
			Passed:             passed,
			NewlyAwardedBadges: []domain.BadgeAward{},
		}

		cp, ok := u.CourseProgress(course.ID)
		if !ok {
			return domain.NotEnrolled(courseSlug)
		}
		prev, seen := cp.BestScore(quiz.ID)
		isNewHighScore := !seen || score > prev
		rewarded := passed && isNewHighScore
		if _, err := s.checkQuota(*u, rewarded); err != nil {
			return err
		}

		res.IsNewHighScore = cp.RecordScore(quiz.ID, score)
		res.FirstPass = passed && !cp.HasCompletedChapter(chapterIndex)
		if passed {
			cp.MarkChapterCompleted(chapterIndex)
		}
		res.CompletionPercentage = cp.RecalculateCompletion(len(course.Chapters))
		res.Quota = s.quota.Status(*u)

		if rewarded {
			s.applyReward(u, rewards.ChapterQuiz(u.XP, score), &res)
		}
		if passed {
			s.awardGlobalBadges(u, score, now, &res)
		}
		return nil
	})
	if err != nil {
		return domain.CompletionResult{}, s.reject(variant, id.UserID, err)
	}

	s.finish(id.UserID, started, res)
	return res, nil
}

func chapterQuiz(course domain.Course, chapterIndex int) (domain.Quiz, error) {
	if chapterIndex < 0 || chapterIndex >= len(course.Chapters) {
		return domain.Quiz{}, &domain.NotFoundError{Resource: "chapter", Err: fmt.Errorf("%w: %d", domain.ErrChapterNotFound, chapterIndex)}
	}
	quiz := course.Chapters[chapterIndex].EndOfChapterQuiz
	if quiz == nil {
		return domain.Quiz{}, &domain.NotFoundError{Resource: "quiz", Err: domain.ErrQuizNotFound}
	}
	if quiz.ID == "" {
		q := *quiz
		q.ID = fmt.Sprintf("%s:chapter:%d", course.ID, chapterIndex)
		return q, nil
	}
	return *quiz, nil
}

// ChapterQuizMessage is the human message returned with a chapter quiz result.
func ChapterQuizMessage(res domain.CompletionResult) string {
	switch {
	case !res.Passed:
		return fmt.Sprintf("Score %d%% is below the passing score, review the chapter and try again.", res.Score)
	case res.IsNewHighScore && res.XPGained > 0:
		return fmt.Sprintf("New high score! You earned %d XP and %d gems.", res.XPGained, res.GemsGained)
	default:
		return "Quiz passed. Beat your best score to earn more rewards."
	}
}
