package quota

import (
	"testing"
	"time"

	"quiz-progress-service/internal/domain"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func TestFreeTierOnePerDay(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	tracker := NewTrackerWithClock(DefaultLimits(), clock.Now)
	user := domain.NewUser("u1", domain.TierFree)

	d := tracker.CheckAndConsume(&user, true)
	if !d.Allowed || d.Taken != 1 || d.Max != 1 {
		t.Fatalf("expected first attempt allowed with 1/1, got %+v", d)
	}
	if user.LastQuizDate == nil || !user.LastQuizDate.Equal(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected last quiz date truncated to midnight, got %v", user.LastQuizDate)
	}

	clock.now = clock.now.Add(10 * time.Hour)
	d = tracker.CheckAndConsume(&user, true)
	if d.Allowed || d.Taken != 1 || d.Max != 1 {
		t.Fatalf("expected second passing attempt rejected, got %+v", d)
	}
	if user.DailyQuizCount != 1 {
		t.Fatalf("rejected attempt must not change the counter, got %d", user.DailyQuizCount)
	}

	clock.now = time.Date(2026, 3, 2, 0, 0, 1, 0, time.UTC)
	d = tracker.CheckAndConsume(&user, true)
	if !d.Allowed || d.Taken != 1 {
		t.Fatalf("expected quota reset on the next UTC day, got %+v", d)
	}
}

func TestFailingAttemptsDoNotConsume(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	tracker := NewTrackerWithClock(DefaultLimits(), clock.Now)
	user := domain.NewUser("u1", domain.TierFree)

	for i := 0; i < 3; i++ {
		d := tracker.CheckAndConsume(&user, false)
		if !d.Allowed || d.Taken != 0 {
			t.Fatalf("expected non-counted attempt allowed without consuming, got %+v", d)
		}
	}
	if user.LastQuizDate != nil {
		t.Fatalf("non-counted attempts must not advance the last quiz date")
	}

	_ = tracker.CheckAndConsume(&user, true)
	d := tracker.CheckAndConsume(&user, false)
	if !d.Allowed {
		t.Fatalf("failing attempt must stay allowed once quota is exhausted")
	}
}

func TestPaidTiersGetFive(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	tracker := NewTrackerWithClock(DefaultLimits(), clock.Now)

	for _, tier := range []domain.Tier{domain.TierPro, domain.TierEnterprise} {
		user := domain.NewUser("u-"+string(tier), tier)
		for i := 1; i <= 5; i++ {
			d := tracker.CheckAndConsume(&user, true)
			if !d.Allowed || d.Taken != i || d.Max != 5 {
				t.Fatalf("%s attempt %d: unexpected %+v", tier, i, d)
			}
		}
		if d := tracker.CheckAndConsume(&user, true); d.Allowed {
			t.Fatalf("%s: sixth attempt should be rejected", tier)
		}
	}
}

func TestStaleCounterReadsAsZero(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 5, 9, 0, 0, 0, time.UTC)}
	tracker := NewTrackerWithClock(DefaultLimits(), clock.Now)
	yesterday := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)
	user := domain.NewUser("u1", domain.TierFree)
	user.DailyQuizCount = 1
	user.LastQuizDate = &yesterday

	status := tracker.Status(user)
	if status.QuizzesTakenToday != 0 || status.MaxQuizzesToday != 1 {
		t.Fatalf("unexpected status %+v", status)
	}
	if user.DailyQuizCount != 1 {
		t.Fatalf("status must not reset the stored counter")
	}
}
