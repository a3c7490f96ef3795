package app

import (
	"context"
	"fmt"
	"time"

	"quiz-progress-service/internal/app/rewards"
	"quiz-progress-service/internal/domain"
)

// CompleteLessonQuiz grades an end-of-lesson quiz. The course progress entry is created
// on first write and rewards are granted only the first time the quiz is passed.
func (s *ProgressService) CompleteLessonQuiz(ctx context.Context, id domain.Identity, courseSlug string, chapterIndex, lessonIndex int, sub domain.Submission) (domain.CompletionResult, error) {
	started := time.Now()
	const variant = domain.VariantLessonQuiz
	if id.UserID == "" {
		return domain.CompletionResult{}, s.reject(variant, id.UserID, &domain.AuthError{Err: domain.ErrUnauthenticated})
	}

	course, err := s.resolveCourse(ctx, courseSlug)
	if err != nil {
		return domain.CompletionResult{}, s.reject(variant, id.UserID, err)
	}
	quiz, err := lessonQuiz(course, chapterIndex, lessonIndex)
	if err != nil {
		return domain.CompletionResult{}, s.reject(variant, id.UserID, err)
	}
	score, err := s.grade(quiz, sub, id.UserID)
	if err != nil {
		return domain.CompletionResult{}, s.reject(variant, id.UserID, err)
	}
	threshold := quiz.Threshold(s.opts.PassingScore)
	passed := score >= threshold

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

		cp, _ := u.Enroll(course.ID, now)
		prev, seen := cp.BestScore(quiz.ID)
		firstPass := passed && !(seen && prev >= threshold)
		if _, err := s.checkQuota(*u, firstPass); err != nil {
			return err
		}

		res.FirstPass = firstPass
		res.IsNewHighScore = cp.RecordScore(quiz.ID, score)
		if passed {
			cp.MarkLessonCompleted(lessonKey(chapterIndex, lessonIndex))
		}
		res.CompletionPercentage = cp.RecalculateCompletion(len(course.Chapters))
		res.Quota = s.quota.Status(*u)

		if firstPass {
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

func lessonKey(chapterIndex, lessonIndex int) string {
	return fmt.Sprintf("%d:%d", chapterIndex, lessonIndex)
}

func lessonQuiz(course domain.Course, chapterIndex, lessonIndex int) (domain.Quiz, error) {
	if chapterIndex < 0 || chapterIndex >= len(course.Chapters) {
		return domain.Quiz{}, &domain.NotFoundError{Resource: "chapter", Err: fmt.Errorf("%w: %d", domain.ErrChapterNotFound, chapterIndex)}
	}
	lessons := course.Chapters[chapterIndex].Lessons
	if lessonIndex < 0 || lessonIndex >= len(lessons) {
		return domain.Quiz{}, &domain.NotFoundError{Resource: "lesson", Err: fmt.Errorf("%w: %d", domain.ErrLessonNotFound, lessonIndex)}
	}
	quiz := lessons[lessonIndex].EndOfLessonQuiz
	if quiz == nil {
		return domain.Quiz{}, &domain.NotFoundError{Resource: "quiz", Err: domain.ErrQuizNotFound}
	}
	if quiz.ID == "" {
		q := *quiz
		q.ID = fmt.Sprintf("%s:lesson:%s", course.ID, lessonKey(chapterIndex, lessonIndex))
		return q, nil
	}
	return *quiz, nil
}
