package http

import (
	"net/http"

	"quiz-progress-service/internal/app"
	"quiz-progress-service/internal/domain"
	"quiz-progress-service/internal/logger"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// ProgressHandler exposes the progress use cases over REST.
type ProgressHandler struct {
	service *app.ProgressService
	log     *logger.Logger
}

func NewProgressHandler(service *app.ProgressService, log *logger.Logger) *ProgressHandler {
	if log == nil {
		log = logger.NewNop()
	}
	return &ProgressHandler{service: service, log: log.With("component", "http")}
}

type chapterQuizResponse struct {
	Success              bool                `json:"success"`
	Score                int                 `json:"score"`
	Passed               bool                `json:"passed"`
	IsNewHighScore       bool                `json:"isNewHighScore"`
	XPEarned             int                 `json:"xpEarned"`
	GemsEarned           int                 `json:"gemsEarned"`
	LevelUp              bool                `json:"levelUp"`
	NewLevel             *int                `json:"newLevel,omitempty"`
	CompletionPercentage int                 `json:"completionPercentage"`
	NewlyAwardedBadges   []domain.BadgeAward `json:"newlyAwardedBadges"`
	QuizzesTakenToday    int                 `json:"quizzesTakenToday"`
	MaxQuizzesToday      int                 `json:"maxQuizzesToday"`
	Message              string              `json:"message"`
}

type lessonQuizResponse struct {
	chapterQuizResponse
	FirstPass bool `json:"firstPass"`
}

type examResponse struct {
	Success              bool                `json:"success"`
	Score                int                 `json:"score"`
	Passed               bool                `json:"passed"`
	XPGained             int                 `json:"xpGained"`
	GemsGained           int                 `json:"gemsGained"`
	LevelUp              bool                `json:"levelUp"`
	NewLevel             *int                `json:"newLevel,omitempty"`
	NewlyAwardedBadges   []domain.BadgeAward `json:"newlyAwardedBadges"`
	DailyLimitReached    bool                `json:"dailyLimitReached"`
	QuizzesTakenToday    int                 `json:"quizzesTakenToday"`
	MaxQuizzesToday      int                 `json:"maxQuizzesToday"`
	CompletionPercentage int                 `json:"completionPercentage"`
	RedirectURL          string              `json:"redirectUrl"`
}

func newChapterQuizResponse(res domain.CompletionResult) chapterQuizResponse {
	return chapterQuizResponse{
		Success:              true,
		Score:                res.Score,
		Passed:               res.Passed,
		IsNewHighScore:       res.IsNewHighScore,
		XPEarned:             res.XPGained,
		GemsEarned:           res.GemsGained,
		LevelUp:              res.LevelUp,
		NewLevel:             newLevel(res),
		CompletionPercentage: res.CompletionPercentage,
		NewlyAwardedBadges:   res.NewlyAwardedBadges,
		QuizzesTakenToday:    res.Quota.QuizzesTakenToday,
		MaxQuizzesToday:      res.Quota.MaxQuizzesToday,
		Message:              app.ChapterQuizMessage(res),
	}
}

func newLevel(res domain.CompletionResult) *int {
	if !res.LevelUp {
		return nil
	}
	n := res.NewLevel
	return &n
}

// CompleteChapterQuiz handles POST /api/courses/{courseSlug}/chapters/{chapterIndex}/quiz/complete.
func (h *ProgressHandler) CompleteChapterQuiz(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())
	chapter, err := indexParam(chi.URLParam(r, "chapterIndex"), "chapterIndex")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req submissionRequest
	if err := decodeAndValidate(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	res, err := h.service.CompleteChapterQuiz(r.Context(), id, chi.URLParam(r, "courseSlug"), chapter, req.submission())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newChapterQuizResponse(res))
}

// CompleteLessonQuiz handles POST /api/courses/{courseSlug}/chapters/{chapterIndex}/lessons/{lessonIndex}/quiz.
func (h *ProgressHandler) CompleteLessonQuiz(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())
	chapter, err := indexParam(chi.URLParam(r, "chapterIndex"), "chapterIndex")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	lesson, err := indexParam(chi.URLParam(r, "lessonIndex"), "lessonIndex")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req submissionRequest
	if err := decodeAndValidate(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	res, err := h.service.CompleteLessonQuiz(r.Context(), id, chi.URLParam(r, "courseSlug"), chapter, lesson, req.submission())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, lessonQuizResponse{
		chapterQuizResponse: newChapterQuizResponse(res),
		FirstPass:           res.FirstPass,
	})
}

// GetFinalExam handles GET /api/exam?courseSlug=.
func (h *ProgressHandler) GetFinalExam(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())
	slug := r.URL.Query().Get("courseSlug")
	if slug == "" {
		h.fail(w, r, domain.NewValidationError(nil, domain.FieldError{Field: "courseSlug", Error: "courseSlug is a required field"}))
		return
	}
	view, err := h.service.GetFinalExam(r.Context(), id, slug)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// SubmitFinalExam handles POST /api/exam.
func (h *ProgressHandler) SubmitFinalExam(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())
	var req examSubmissionRequest
	if err := decodeAndValidate(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	res, err := h.service.SubmitFinalExam(r.Context(), id, req.CourseSlug, req.submission())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, examResponse{
		Success:              true,
		Score:                res.Score,
		Passed:               res.Passed,
		XPGained:             res.XPGained,
		GemsGained:           res.GemsGained,
		LevelUp:              res.LevelUp,
		NewLevel:             newLevel(res),
		NewlyAwardedBadges:   res.NewlyAwardedBadges,
		QuizzesTakenToday:    res.Quota.QuizzesTakenToday,
		MaxQuizzesToday:      res.Quota.MaxQuizzesToday,
		CompletionPercentage: res.CompletionPercentage,
		RedirectURL:          res.RedirectURL,
	})
}

// Enroll handles POST /api/courses/{courseSlug}/enroll.
func (h *ProgressHandler) Enroll(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())
	cp, err := h.service.Enroll(r.Context(), id, chi.URLParam(r, "courseSlug"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cp)
}

// MyProgress handles GET /api/me/progress.
func (h *ProgressHandler) MyProgress(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())
	summary, err := h.service.Summary(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// CourseProgress handles GET /api/courses/{courseSlug}/progress.
func (h *ProgressHandler) CourseProgress(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())
	cp, err := h.service.CourseProgress(r.Context(), id, chi.URLParam(r, "courseSlug"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cp)
}

func (h *ProgressHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if statusFor(err) == http.StatusInternalServerError {
		h.log.Error("request failed",
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
			"error", err,
		)
	}
	writeError(w, err)
}
