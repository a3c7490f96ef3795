// Package quota enforces the per-UTC-day limit on counted quiz completions.
package quota

import (
	"time"

	"quiz-progress-service/internal/domain"
)

// Limits holds the daily maximum per tier class.
type Limits struct {
	Free int
	Paid int
}

// DefaultLimits is one counted completion per day for FREE, five for PRO and ENTERPRISE.
func DefaultLimits() Limits {
	return Limits{Free: 1, Paid: 5}
}

// Decision is the outcome of a quota check.
type Decision struct {
	Allowed bool
	// Taken is the logical count for today after the call.
	Taken int
	Max   int
}

// Status converts the decision into the client-facing shape.
func (d Decision) Status() domain.QuotaStatus {
	return domain.QuotaStatus{QuizzesTakenToday: d.Taken, MaxQuizzesToday: d.Max}
}

// Tracker reads and advances the quota counters stored on the user document.
type Tracker struct {
	limits Limits
	now    func() time.Time
}

func NewTracker(limits Limits) *Tracker {
	return NewTrackerWithClock(limits, time.Now)
}

// NewTrackerWithClock allows deterministic days in tests.
func NewTrackerWithClock(limits Limits, now func() time.Time) *Tracker {
	if limits.Free <= 0 {
		limits.Free = DefaultLimits().Free
	}
	if limits.Paid <= 0 {
		limits.Paid = DefaultLimits().Paid
	}
	return &Tracker{limits: limits, now: now}
}

// Max returns the daily maximum for the tier.
func (t *Tracker) Max(tier domain.Tier) int {
	if tier.Paid() {
		return t.limits.Paid
	}
	return t.limits.Free
}

// TakenToday returns the logical count for today. A counter last touched on an
// earlier UTC day counts as zero without being written back.
func (t *Tracker) TakenToday(user domain.User) int {
	if user.LastQuizDate == nil || user.LastQuizDate.Before(domain.UTCDay(t.now())) {
		return 0
	}
	return user.DailyQuizCount
}

// Status reports the current quota without changing anything.
func (t *Tracker) Status(user domain.User) domain.QuotaStatus {
	return domain.QuotaStatus{
		QuizzesTakenToday: t.TakenToday(user),
		MaxQuizzesToday:   t.Max(user.Subscription.Tier),
	}
}

// Check decides whether an attempt may proceed. Attempts that do not count
// against the quota are always allowed.
func (t *Tracker) Check(user domain.User, counts bool) Decision {
	taken := t.TakenToday(user)
	max := t.Max(user.Subscription.Tier)
	if counts && taken >= max {
		return Decision{Allowed: false, Taken: taken, Max: max}
	}
	return Decision{Allowed: true, Taken: taken, Max: max}
}

// CheckAndConsume checks the quota and, when allowed and counted, resets a
// stale counter, increments it and stamps today's date. A rejected call leaves
// the user untouched.
func (t *Tracker) CheckAndConsume(user *domain.User, counts bool) Decision {
	d := t.Check(*user, counts)
	if !d.Allowed || !counts {
		return d
	}
	now := t.now()
	today := domain.UTCDay(now)
	if user.LastQuizDate == nil || user.LastQuizDate.Before(today) {
		user.DailyQuizCount = 0
	}
	user.DailyQuizCount++
	user.LastQuizDate = &today
	completedAt := now.UTC()
	user.LastQuizCompletion = &completedAt
	d.Taken = user.DailyQuizCount
	return d
}
