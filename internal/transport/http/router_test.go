package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"quiz-progress-service/internal/app"
	"quiz-progress-service/internal/domain"
	"quiz-progress-service/internal/infra/memory"
)

const testSecret = "test-secret"

type testEnv struct {
	server *httptest.Server
	auth   *Authenticator
	hub    *app.EventHub
	clock  *testClock
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{clock: &testClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}}
	courses := memory.NewCourseRepository(memory.NewStaticCourseLoader(map[string]domain.Course{
		"go-basics": sampleCourse(),
	}), time.Minute)
	env.hub = app.NewEventHub()
	service := app.NewProgressServiceWithClock(
		courses,
		memory.NewProgressStore(),
		memory.NewUserLocker(),
		env.hub,
		nil,
		app.DefaultOptions(),
		env.clock.Now,
	)
	env.auth = NewAuthenticator(testSecret, "quiz-progress")
	env.server = httptest.NewServer(NewRouter(service, env.hub, env.auth, nil))
	t.Cleanup(env.server.Close)
	return env
}

func (e *testEnv) token(t *testing.T, userID string, tier domain.Tier) string {
	t.Helper()
	token, err := e.auth.IssueToken(userID, tier, time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return token
}

func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) (int, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, e.server.URL+path, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()
	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t)
	for _, path := range []string{"/healthz", "/metrics"} {
		resp, err := http.Get(env.server.URL + path)
		if err != nil {
			t.Fatalf("get %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, resp.StatusCode)
		}
	}
}

func TestAPIRequiresToken(t *testing.T) {
	env := newTestEnv(t)
	status, body := env.do(t, http.MethodGet, "/api/me/progress", "", nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", status)
	}
	if body["success"] != false {
		t.Fatalf("expected success=false, got %v", body)
	}

	status, _ = env.do(t, http.MethodGet, "/api/me/progress", "not-a-jwt", nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("expected 401 for garbage token, got %d", status)
	}

	other := NewAuthenticator("other-secret", "quiz-progress")
	forged, _ := other.IssueToken("u1", domain.TierPro, time.Hour)
	status, _ = env.do(t, http.MethodGet, "/api/me/progress", forged, nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong signature, got %d", status)
	}
}

func TestChapterQuizFlow(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t, "u1", domain.TierFree)
	path := "/api/courses/go-basics/chapters/0/quiz/complete"
	perfect := map[string]any{"answers": map[string]string{"q1": "o2", "q2": "b"}}

	status, body := env.do(t, http.MethodPost, path, token, perfect)
	if status != http.StatusForbidden || body["reason"] != string(domain.ReasonNotEnrolled) {
		t.Fatalf("expected 403 not_enrolled, got %d %v", status, body)
	}

	status, _ = env.do(t, http.MethodPost, "/api/courses/go-basics/enroll", token, nil)
	if status != http.StatusOK {
		t.Fatalf("enroll: expected 200, got %d", status)
	}

	status, body = env.do(t, http.MethodPost, path, token, perfect)
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d %v", status, body)
	}
	if body["isNewHighScore"] != true || body["xpEarned"] != float64(200) || body["gemsEarned"] != float64(45) {
		t.Fatalf("unexpected reward %v", body)
	}
	if body["levelUp"] != true || body["newLevel"] != float64(3) {
		t.Fatalf("expected level up to 3, got %v", body)
	}
	if body["completionPercentage"] != float64(50) || body["quizzesTakenToday"] != float64(1) {
		t.Fatalf("unexpected progress %v", body)
	}
	if badges, _ := body["newlyAwardedBadges"].([]any); len(badges) != 2 {
		t.Fatalf("expected first-quiz and perfect-score badges, got %v", body["newlyAwardedBadges"])
	}

	// same score again: no reward, no quota consumed, still allowed
	status, body = env.do(t, http.MethodPost, path, token, perfect)
	if status != http.StatusOK || body["isNewHighScore"] != false || body["xpEarned"] != float64(0) {
		t.Fatalf("expected idempotent resubmission, got %d %v", status, body)
	}

	// a second rewarded quiz on the same day exceeds the FREE quota
	status, body = env.do(t, http.MethodPost, "/api/courses/go-basics/chapters/1/quiz/complete", token,
		map[string]any{"answers": map[string]string{"q1": "o2"}})
	if status != http.StatusForbidden {
		t.Fatalf("expected 403, got %d %v", status, body)
	}
	if body["dailyLimitReached"] != true || body["quizzesTakenToday"] != float64(1) || body["maxQuizzesToday"] != float64(1) {
		t.Fatalf("unexpected quota body %v", body)
	}

	// next UTC day the quota resets
	env.clock.Advance(24 * time.Hour)
	status, body = env.do(t, http.MethodPost, "/api/courses/go-basics/chapters/1/quiz/complete", token,
		map[string]any{"answers": map[string]string{"q1": "o2"}})
	if status != http.StatusOK || body["completionPercentage"] != float64(100) {
		t.Fatalf("expected pass after reset, got %d %v", status, body)
	}
}

func TestChapterQuizValidation(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t, "u1", domain.TierPro)
	env.do(t, http.MethodPost, "/api/courses/go-basics/enroll", token, nil)

	cases := []struct {
		name   string
		path   string
		body   interface{}
		status int
	}{
		{"missing answers", "/api/courses/go-basics/chapters/0/quiz/complete", map[string]any{}, http.StatusBadRequest},
		{"score out of range", "/api/courses/go-basics/chapters/0/quiz/complete", map[string]any{"answers": map[string]string{"q1": "o2"}, "score": 120}, http.StatusBadRequest},
		{"unknown question", "/api/courses/go-basics/chapters/0/quiz/complete", map[string]any{"answers": map[string]string{"zzz": "o2"}}, http.StatusBadRequest},
		{"bad chapter index", "/api/courses/go-basics/chapters/abc/quiz/complete", map[string]any{"answers": map[string]string{"q1": "o2"}}, http.StatusBadRequest},
		{"chapter out of range", "/api/courses/go-basics/chapters/9/quiz/complete", map[string]any{"answers": map[string]string{"q1": "o2"}}, http.StatusNotFound},
		{"unknown course", "/api/courses/nope/chapters/0/quiz/complete", map[string]any{"answers": map[string]string{"q1": "o2"}}, http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, body := env.do(t, http.MethodPost, tc.path, token, tc.body)
			if status != tc.status {
				t.Fatalf("expected %d, got %d %v", tc.status, status, body)
			}
		})
	}

	status, body := env.do(t, http.MethodPost, "/api/courses/go-basics/chapters/0/quiz/complete", token, map[string]any{})
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", status)
	}
	fields, _ := body["fields"].([]any)
	if len(fields) != 1 || fields[0].(map[string]any)["field"] != "answers" {
		t.Fatalf("expected answers field error, got %v", body)
	}
}

func TestLessonQuizEnrollsOnFirstWrite(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t, "u1", domain.TierPro)

	status, body := env.do(t, http.MethodPost, "/api/courses/go-basics/chapters/0/lessons/0/quiz", token,
		map[string]any{"answers": map[string]string{"q1": " 4 "}})
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d %v", status, body)
	}
	if body["firstPass"] != true || body["xpEarned"] != float64(200) {
		t.Fatalf("unexpected lesson result %v", body)
	}

	status, body = env.do(t, http.MethodGet, "/api/courses/go-basics/progress", token, nil)
	if status != http.StatusOK {
		t.Fatalf("progress: expected 200, got %d", status)
	}
	lessons, _ := body["completedLessons"].([]any)
	if len(lessons) != 1 || lessons[0] != "0:0" {
		t.Fatalf("expected lesson recorded, got %v", body["completedLessons"])
	}
}

func TestFinalExamFlow(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t, "u1", domain.TierPro)
	env.do(t, http.MethodPost, "/api/courses/go-basics/enroll", token, nil)

	status, body := env.do(t, http.MethodGet, "/api/exam", token, nil)
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400 without courseSlug, got %d", status)
	}

	env.do(t, http.MethodPost, "/api/courses/go-basics/chapters/0/quiz/complete", token,
		map[string]any{"answers": map[string]string{"q1": "o2", "q2": "b"}})

	status, body = env.do(t, http.MethodGet, "/api/exam?courseSlug=go-basics", token, nil)
	if status != http.StatusForbidden || body["reason"] != string(domain.ReasonCompletionBelowThreshold) {
		t.Fatalf("expected 403 below threshold, got %d %v", status, body)
	}
	if body["completionPercentage"] != float64(50) || body["requiredPercentage"] != float64(90) {
		t.Fatalf("expected percentages in body, got %v", body)
	}

	env.do(t, http.MethodPost, "/api/courses/go-basics/chapters/1/quiz/complete", token,
		map[string]any{"answers": map[string]string{"q1": "o2"}})

	status, body = env.do(t, http.MethodGet, "/api/exam?courseSlug=go-basics", token, nil)
	if status != http.StatusOK {
		t.Fatalf("expected exam, got %d %v", status, body)
	}
	exam := body["exam"].(map[string]any)
	for _, q := range exam["questions"].([]any) {
		for _, opt := range q.(map[string]any)["options"].([]any) {
			if _, leaked := opt.(map[string]any)["correct"]; leaked {
				t.Fatalf("exam leaked answer key: %v", opt)
			}
		}
	}

	status, body = env.do(t, http.MethodPost, "/api/exam", token, map[string]any{
		"courseSlug": "go-basics",
		"passed":     true,
		"answers":    map[string]string{"q1": "o1"},
	})
	if status != http.StatusOK || body["passed"] != false || body["redirectUrl"] != "/courses/go-basics/final-exam" {
		t.Fatalf("expected failed attempt, got %d %v", status, body)
	}

	status, body = env.do(t, http.MethodPost, "/api/exam", token, map[string]any{
		"courseSlug": "go-basics",
		"answers":    map[string]string{"q1": "o2"},
	})
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d %v", status, body)
	}
	if body["passed"] != true || body["xpGained"] != float64(750) || body["redirectUrl"] != "/courses/go-basics/completed" {
		t.Fatalf("unexpected exam result %v", body)
	}
	if body["dailyLimitReached"] != false {
		t.Fatalf("expected dailyLimitReached=false, got %v", body)
	}
}

func sampleCourse() domain.Course {
	return domain.Course{
		ID:    "course-1",
		Slug:  "go-basics",
		Title: "Go Basics",
		Chapters: []domain.Chapter{
			{
				Title: "Types",
				Lessons: []domain.Lesson{
					{
						Title: "Integers",
						EndOfLessonQuiz: &domain.Quiz{
							ID:        "lesson-1",
							Questions: []domain.Question{{ID: "q1", Prompt: "2 + 2?", CorrectAnswer: "4"}},
						},
					},
				},
				EndOfChapterQuiz: &domain.Quiz{
					ID:           "quiz-1",
					PassingScore: 50,
					Questions: []domain.Question{
						{
							ID:     "q1",
							Prompt: "What is 2 + 2?",
							Options: []domain.Option{
								{ID: "o1", Text: "3"},
								{ID: "o2", Text: "4", Correct: true},
							},
						},
						{ID: "q2", Prompt: "Zero value of bool?", CorrectAnswer: "b"},
					},
				},
			},
			{
				Title: "Concurrency",
				EndOfChapterQuiz: &domain.Quiz{
					ID: "quiz-2",
					Questions: []domain.Question{
						{
							ID:     "q1",
							Prompt: "Keyword for goroutines?",
							Options: []domain.Option{
								{ID: "o1", Text: "async"},
								{ID: "o2", Text: "go", Correct: true},
							},
						},
					},
				},
			},
		},
		EndOfCourseExam: &domain.Quiz{
			ID:           "exam-1",
			PassingScore: 70,
			Questions: []domain.Question{
				{
					ID:     "q1",
					Prompt: "Which statement waits on channels?",
					Options: []domain.Option{
						{ID: "o1", Text: "switch"},
						{ID: "o2", Text: "select", Correct: true},
					},
				},
			},
		},
	}
}
