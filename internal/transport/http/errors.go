package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"quiz-progress-service/internal/domain"
)

type errorResponse struct {
	Success              bool                `json:"success"`
	Error                string              `json:"error"`
	Reason               string              `json:"reason,omitempty"`
	Fields               []domain.FieldError `json:"fields,omitempty"`
	DailyLimitReached    bool                `json:"dailyLimitReached,omitempty"`
	QuizzesTakenToday    *int                `json:"quizzesTakenToday,omitempty"`
	MaxQuizzesToday      *int                `json:"maxQuizzesToday,omitempty"`
	CompletionPercentage *int                `json:"completionPercentage,omitempty"`
	RequiredPercentage   *int                `json:"requiredPercentage,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps the domain error taxonomy to HTTP status codes.
func statusFor(err error) int {
	var (
		authErr     *domain.AuthError
		notFoundErr *domain.NotFoundError
		validErr    *domain.ValidationError
		eligErr     *domain.EligibilityError
	)
	switch {
	case errors.As(err, &authErr):
		return http.StatusUnauthorized
	case errors.As(err, &notFoundErr):
		return http.StatusNotFound
	case errors.As(err, &validErr):
		return http.StatusBadRequest
	case errors.As(err, &eligErr):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	resp := errorResponse{Error: err.Error()}

	var (
		validErr *domain.ValidationError
		eligErr  *domain.EligibilityError
	)
	switch {
	case errors.As(err, &validErr):
		resp.Fields = validErr.Fields
	case errors.As(err, &eligErr):
		resp.Reason = string(eligErr.Reason)
		switch eligErr.Reason {
		case domain.ReasonDailyLimitReached:
			resp.DailyLimitReached = true
			resp.QuizzesTakenToday = &eligErr.QuizzesTakenToday
			resp.MaxQuizzesToday = &eligErr.MaxQuizzesToday
		case domain.ReasonCompletionBelowThreshold:
			resp.CompletionPercentage = &eligErr.CompletionPercentage
			resp.RequiredPercentage = &eligErr.RequiredPercentage
		}
	}
	if status == http.StatusInternalServerError {
		// internal details stay in the logs
		var persistErr *domain.PersistenceError
		if errors.As(err, &persistErr) {
			resp.Error = "failed to save progress"
		} else {
			resp.Error = "internal error"
		}
	}
	writeJSON(w, status, resp)
}
