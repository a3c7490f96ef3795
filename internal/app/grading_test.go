package app

import (
	"errors"
	"testing"

	"quiz-progress-service/internal/domain"
)

func TestGradeQuiz(t *testing.T) {
	quiz := domain.Quiz{
		ID: "quiz-1",
		Questions: []domain.Question{
			{ID: "q1", Options: []domain.Option{{ID: "o1"}, {ID: "o2", Correct: true}}},
			{ID: "q2", CorrectAnswer: "Select", Points: 2},
			{ID: "q3", CorrectAnswer: "b", Options: []domain.Option{{ID: "a", Correct: true}, {ID: "b"}}},
		},
	}

	tests := []struct {
		name    string
		answers map[string]string
		want    int
	}{
		{"all correct", map[string]string{"q1": "o2", "q2": "select", "q3": "b"}, 100},
		{"answer key beats option flag", map[string]string{"q1": "o2", "q2": "select", "q3": "a"}, 75},
		{"weighted question only", map[string]string{"q2": " SELECT "}, 50},
		{"one point of four", map[string]string{"q1": "o2"}, 25},
		{"all wrong", map[string]string{"q1": "o1", "q2": "switch", "q3": "a"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := gradeQuiz(quiz, tt.answers)
			if err != nil {
				t.Fatalf("grade: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestGradeQuizRounds(t *testing.T) {
	quiz := domain.Quiz{Questions: []domain.Question{
		{ID: "q1", CorrectAnswer: "a"},
		{ID: "q2", CorrectAnswer: "a"},
		{ID: "q3", CorrectAnswer: "a"},
	}}
	got, err := gradeQuiz(quiz, map[string]string{"q1": "a", "q2": "a"})
	if err != nil {
		t.Fatalf("grade: %v", err)
	}
	if got != 67 {
		t.Fatalf("expected 2/3 to round to 67, got %d", got)
	}
}

func TestGradeQuizRejects(t *testing.T) {
	quiz := domain.Quiz{Questions: []domain.Question{{ID: "q1", CorrectAnswer: "a"}}}

	_, err := gradeQuiz(quiz, map[string]string{"q1": "a", "nope": "a"})
	var verr *domain.ValidationError
	if !errors.As(err, &verr) || !errors.Is(err, domain.ErrQuestionNotFound) {
		t.Fatalf("expected unknown question validation error, got %v", err)
	}
	if len(verr.Fields) != 1 || verr.Fields[0].Field != "answers.nope" {
		t.Fatalf("unexpected fields %+v", verr.Fields)
	}

	if _, err := gradeQuiz(quiz, nil); !errors.As(err, &verr) {
		t.Fatalf("expected validation error without answers, got %v", err)
	}
	if _, err := gradeQuiz(domain.Quiz{}, map[string]string{"q1": "a"}); !errors.As(err, &verr) {
		t.Fatalf("expected validation error for an empty quiz, got %v", err)
	}
}

func TestRedactQuizKeepsOriginal(t *testing.T) {
	quiz := domain.Quiz{Questions: []domain.Question{
		{ID: "q1", CorrectAnswer: "a", Options: []domain.Option{{ID: "a", Correct: true}}},
	}}
	redacted := redactQuiz(quiz)
	if redacted.Questions[0].CorrectAnswer != "" || redacted.Questions[0].Options[0].Correct {
		t.Fatalf("answer key leaked: %+v", redacted.Questions[0])
	}
	if quiz.Questions[0].CorrectAnswer != "a" || !quiz.Questions[0].Options[0].Correct {
		t.Fatalf("redaction mutated the course content")
	}
}
