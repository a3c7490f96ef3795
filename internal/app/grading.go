package app

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"quiz-progress-service/internal/domain"
)

var errNoQuestions = errors.New("quiz has no gradable questions")

// gradeQuiz recomputes the score server-side from answers keyed by question ID.
// Unanswered questions earn nothing; unknown question IDs reject the submission.
func gradeQuiz(quiz domain.Quiz, answers map[string]string) (int, error) {
	if len(quiz.Questions) == 0 {
		return 0, domain.NewValidationError(errNoQuestions)
	}
	if len(answers) == 0 {
		return 0, domain.NewValidationError(nil, domain.FieldError{Field: "answers", Error: "at least one answer is required"})
	}

	byID := make(map[string]*domain.Question, len(quiz.Questions))
	for i := range quiz.Questions {
		byID[quiz.Questions[i].ID] = &quiz.Questions[i]
	}
	var unknown []domain.FieldError
	for questionID := range answers {
		if _, ok := byID[questionID]; !ok {
			unknown = append(unknown, domain.FieldError{
				Field: "answers." + questionID,
				Error: domain.ErrQuestionNotFound.Error(),
			})
		}
	}
	if len(unknown) > 0 {
		return 0, domain.NewValidationError(fmt.Errorf("%w: %d unknown", domain.ErrQuestionNotFound, len(unknown)), unknown...)
	}

	earned, total := 0, 0
	for _, q := range quiz.Questions {
		points := questionPoints(q)
		total += points
		if answer, ok := answers[q.ID]; ok && isCorrect(q, answer) {
			earned += points
		}
	}
	return int(math.Round(100 * float64(earned) / float64(total))), nil
}

func questionPoints(q domain.Question) int {
	if q.Points <= 0 {
		return 1
	}
	return q.Points
}

func isCorrect(q domain.Question, answer string) bool {
	expected := correctAnswer(q)
	if expected == "" {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(answer), strings.TrimSpace(expected))
}

// correctAnswer prefers the explicit answer key, then the first option flagged correct.
func correctAnswer(q domain.Question) string {
	if q.CorrectAnswer != "" {
		return q.CorrectAnswer
	}
	for _, opt := range q.Options {
		if opt.Correct {
			return opt.ID
		}
	}
	return ""
}

// redactQuiz strips answer keys before a quiz is shown to a student.
func redactQuiz(quiz domain.Quiz) domain.Quiz {
	out := quiz
	out.Questions = make([]domain.Question, len(quiz.Questions))
	for i, q := range quiz.Questions {
		q.CorrectAnswer = ""
		opts := make([]domain.Option, len(q.Options))
		for j, opt := range q.Options {
			opt.Correct = false
			opts[j] = opt
		}
		q.Options = opts
		out.Questions[i] = q
	}
	return out
}
