package quota

import (
	"errors"
	"time"

	"github.com/barrixlabs/barrix-api/app/models"
	"github.com/barrixlabs/barrix-api/app/repository"
	"github.com/barrixlabs/barrix-api/internal/pkg/plans"
)

var (
	// ErrQuotaExceeded is returned by TryConsume when the account has no
	// calls left in the current window. The returned snapshot is still valid.
	ErrQuotaExceeded = errors.New("usage limit exceeded")

	// ErrConcurrentUpdate is returned when the optimistic increment kept
	// losing against concurrent writers. Callers may retry.
	ErrConcurrentUpdate = errors.New("usage counter contention")
)

const maxConsumeAttempts = 3

// Snapshot reports an account's position in its current usage window.
type Snapshot struct {
	Current   int    `json:"current"`
	Limit     int    `json:"limit"`
	Remaining int    `json:"remaining"`
	Plan      string `json:"plan"`
}

// MonthToken returns the calendar-month token for t, e.g. "2025-03".
// Tokens are computed in UTC so every instance agrees on window boundaries.
func MonthToken(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// Meter enforces the monthly call quota for accounts. Resets are lazy: the
// window rolls forward on access, never via a background sweep.
type Meter struct {
	repo repository.UserRepository
	now  func() time.Time
}

// NewMeter creates a usage meter over the given account store.
func NewMeter(repo repository.UserRepository) *Meter {
	return &Meter{repo: repo, now: time.Now}
}

// ResolveWindow rolls the account's usage window forward when the wall-clock
// month has moved on. Calling it twice within the same month is a no-op. The
// reset is persisted through the store's month guard, so concurrent callers
// crossing the same boundary reset the counter exactly once.
func (m *Meter) ResolveWindow(user *models.User) error {
	token := MonthToken(m.now())
	if user.UsageMonth == token {
		return nil
	}

	at := m.now()
	applied, err := m.repo.ResetUsageWindow(user.ID, user.UsageMonth, token, at)
	if err != nil {
		return err
	}
	if applied {
		user.UsageMonth = token
		user.UsageCount = 0
		user.LastReset = &at
		return nil
	}

	// Another writer moved the window first; pick up its result.
	fresh, err := m.repo.GetByID(user.ID)
	if err != nil {
		return err
	}
	*user = *fresh
	return nil
}

// Check reports the account's usage snapshot without mutating anything.
func (m *Meter) Check(user *models.User) Snapshot {
	limit := plans.QuotaFor(user.Plan)
	remaining := limit - user.UsageCount
	if remaining < 0 {
		remaining = 0
	}
	return Snapshot{
		Current:   user.UsageCount,
		Limit:     limit,
		Remaining: remaining,
		Plan:      string(plans.NormalizeTier(user.Plan)),
	}
}

// TryConsume spends one call from the account's quota. It resolves the usage
// window first, rejects with ErrQuotaExceeded (and the unchanged snapshot)
// when the limit is reached, and otherwise increments the counter through the
// store's compare-and-swap. Lost races reload fresh state and retry a bounded
// number of times.
func (m *Meter) TryConsume(user *models.User) (Snapshot, error) {
	for attempt := 0; attempt < maxConsumeAttempts; attempt++ {
		if err := m.ResolveWindow(user); err != nil {
			return Snapshot{}, err
		}

		limit := plans.QuotaFor(user.Plan)
		if user.UsageCount >= limit {
			return m.Check(user), ErrQuotaExceeded
		}

		ok, err := m.repo.ConsumeUsage(user.ID, user.UsageMonth, user.UsageCount)
		if err != nil {
			return Snapshot{}, err
		}
		if ok {
			user.UsageCount++
			return m.Check(user), nil
		}

		fresh, err := m.repo.GetByID(user.ID)
		if err != nil {
			return Snapshot{}, err
		}
		*user = *fresh
	}
	return Snapshot{}, ErrConcurrentUpdate
}
