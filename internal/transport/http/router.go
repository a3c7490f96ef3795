package http

import (
	"net/http"
	"time"

	"quiz-progress-service/internal/app"
	"quiz-progress-service/internal/logger"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter mounts health, metrics, the REST API and the live feed.
func NewRouter(service *app.ProgressService, hub *app.EventHub, auth *Authenticator, log *logger.Logger) http.Handler {
	progress := NewProgressHandler(service, log)
	feed := NewFeedHandler(service, hub, log)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(15 * time.Second))
		r.Use(auth.Middleware)

		r.Get("/me/progress", progress.MyProgress)
		r.Get("/exam", progress.GetFinalExam)
		r.Post("/exam", progress.SubmitFinalExam)

		r.Route("/courses/{courseSlug}", func(r chi.Router) {
			r.Post("/enroll", progress.Enroll)
			r.Get("/progress", progress.CourseProgress)
			r.Post("/chapters/{chapterIndex}/quiz/complete", progress.CompleteChapterQuiz)
			r.Post("/chapters/{chapterIndex}/lessons/{lessonIndex}/quiz", progress.CompleteLessonQuiz)
		})
	})

	r.With(auth.Middleware).Get("/ws/progress", feed.ServeWS)
	return r
}
