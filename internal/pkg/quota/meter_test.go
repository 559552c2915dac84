package quota

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/barrixlabs/barrix-api/app/models"
)

// fakeStore is an in-memory UserRepository that mimics the store's guarded
// usage writes, including forced CAS conflicts.
type fakeStore struct {
	users           map[uint]*models.User
	consumeFailures int
	resetCalls      int
	consumeCalls    int
}

func newFakeStore(users ...*models.User) *fakeStore {
	s := &fakeStore{users: make(map[uint]*models.User)}
	for _, u := range users {
		cp := *u
		s.users[u.ID] = &cp
	}
	return s
}

func (s *fakeStore) Create(user *models.User) error {
	cp := *user
	s.users[user.ID] = &cp
	return nil
}

func (s *fakeStore) GetByID(id uint) (*models.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, assert.AnError
	}
	cp := *u
	return &cp, nil
}

func (s *fakeStore) GetByEmail(email string) (*models.User, error) {
	for _, u := range s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, assert.AnError
}

func (s *fakeStore) Update(user *models.User) error {
	cp := *user
	s.users[user.ID] = &cp
	return nil
}

func (s *fakeStore) UpdateLastLogin(id uint, at time.Time) error { return nil }

func (s *fakeStore) SetBillingCustomerRef(id uint, customerID string) error {
	if u, ok := s.users[id]; ok {
		u.StripeCustomerID = customerID
	}
	return nil
}

func (s *fakeStore) ResetUsageWindow(id uint, fromMonth, toMonth string, at time.Time) (bool, error) {
	s.resetCalls++
	u, ok := s.users[id]
	if !ok || u.UsageMonth != fromMonth {
		return false, nil
	}
	u.UsageMonth = toMonth
	u.UsageCount = 0
	reset := at
	u.LastReset = &reset
	return true, nil
}

func (s *fakeStore) ConsumeUsage(id uint, month string, expectedCount int) (bool, error) {
	s.consumeCalls++
	if s.consumeFailures > 0 {
		s.consumeFailures--
		return false, nil
	}
	u, ok := s.users[id]
	if !ok || u.UsageMonth != month || u.UsageCount != expectedCount {
		return false, nil
	}
	u.UsageCount = expectedCount + 1
	return true, nil
}

func (s *fakeStore) Count() (int64, error) { return int64(len(s.users)), nil }

func meterAt(store *fakeStore, at time.Time) *Meter {
	m := NewMeter(store)
	m.now = func() time.Time { return at }
	return m
}

func TestMonthToken(t *testing.T) {
	assert.Equal(t, "2025-03", MonthToken(time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC)))
	// Token follows UTC, not the local zone of the timestamp.
	loc := time.FixedZone("UTC+10", 10*3600)
	assert.Equal(t, "2025-02", MonthToken(time.Date(2025, 3, 1, 5, 0, 0, 0, loc)))
}

func TestResolveWindowResetsStaleMonth(t *testing.T) {
	store := newFakeStore(&models.User{ID: 1, Plan: "basic", UsageMonth: "2025-02", UsageCount: 50})
	m := meterAt(store, time.Date(2025, 3, 2, 12, 0, 0, 0, time.UTC))

	user, err := store.GetByID(1)
	require.NoError(t, err)
	require.NoError(t, m.ResolveWindow(user))

	assert.Equal(t, "2025-03", user.UsageMonth)
	assert.Equal(t, 0, user.UsageCount)
	require.NotNil(t, user.LastReset)

	stored, err := store.GetByID(1)
	require.NoError(t, err)
	assert.Equal(t, "2025-03", stored.UsageMonth)
	assert.Equal(t, 0, stored.UsageCount)
}

func TestResolveWindowIdempotent(t *testing.T) {
	store := newFakeStore(&models.User{ID: 1, Plan: "free", UsageMonth: "2025-02", UsageCount: 7})
	m := meterAt(store, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))

	user, err := store.GetByID(1)
	require.NoError(t, err)

	require.NoError(t, m.ResolveWindow(user))
	first := *user
	require.NoError(t, m.ResolveWindow(user))

	assert.Equal(t, first.UsageMonth, user.UsageMonth)
	assert.Equal(t, first.UsageCount, user.UsageCount)
	assert.Equal(t, 1, store.resetCalls, "second resolve in the same month must not hit the store")
}

func TestResolveWindowLostRaceReloads(t *testing.T) {
	// Store already rolled forward: the guard on the old month fails and the
	// meter picks up the winner's state instead of resetting again.
	store := newFakeStore(&models.User{ID: 1, Plan: "basic", UsageMonth: "2025-03", UsageCount: 4})
	m := meterAt(store, time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC))

	stale := &models.User{ID: 1, Plan: "basic", UsageMonth: "2025-02", UsageCount: 99}
	require.NoError(t, m.ResolveWindow(stale))

	assert.Equal(t, "2025-03", stale.UsageMonth)
	assert.Equal(t, 4, stale.UsageCount)
}

func TestCheckSnapshot(t *testing.T) {
	store := newFakeStore()
	m := meterAt(store, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))

	snap := m.Check(&models.User{Plan: "standard", UsageCount: 123})
	assert.Equal(t, Snapshot{Current: 123, Limit: 500, Remaining: 377, Plan: "standard"}, snap)

	// Unknown plans fall back to the free limit; remaining never goes negative.
	snap = m.Check(&models.User{Plan: "mystery", UsageCount: 42})
	assert.Equal(t, Snapshot{Current: 42, Limit: 10, Remaining: 0, Plan: "free"}, snap)
}

func TestTryConsumeIncrements(t *testing.T) {
	now := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	store := newFakeStore(&models.User{ID: 1, Plan: "basic", UsageMonth: MonthToken(now), UsageCount: 99})
	m := meterAt(store, now)

	user, err := store.GetByID(1)
	require.NoError(t, err)

	snap, err := m.TryConsume(user)
	require.NoError(t, err)
	assert.Equal(t, Snapshot{Current: 100, Limit: 100, Remaining: 0, Plan: "basic"}, snap)

	snap, err = m.TryConsume(user)
	require.ErrorIs(t, err, ErrQuotaExceeded)
	assert.Equal(t, Snapshot{Current: 100, Limit: 100, Remaining: 0, Plan: "basic"}, snap)

	stored, err := store.GetByID(1)
	require.NoError(t, err)
	assert.Equal(t, 100, stored.UsageCount, "rejected consume must not mutate the store")
}

func TestTryConsumeNeverExceedsLimit(t *testing.T) {
	now := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	store := newFakeStore(&models.User{ID: 1, Plan: "free", UsageMonth: MonthToken(now)})
	m := meterAt(store, now)

	user, err := store.GetByID(1)
	require.NoError(t, err)

	granted := 0
	for i := 0; i < 25; i++ {
		if _, err := m.TryConsume(user); err == nil {
			granted++
		} else {
			require.ErrorIs(t, err, ErrQuotaExceeded)
		}
	}
	assert.Equal(t, 10, granted)

	stored, err := store.GetByID(1)
	require.NoError(t, err)
	assert.Equal(t, 10, stored.UsageCount)
}

func TestTryConsumeResetsAcrossMonthBoundary(t *testing.T) {
	store := newFakeStore(&models.User{ID: 1, Plan: "free", UsageMonth: "2025-02", UsageCount: 10})
	m := meterAt(store, time.Date(2025, 3, 1, 0, 0, 1, 0, time.UTC))

	user, err := store.GetByID(1)
	require.NoError(t, err)

	snap, err := m.TryConsume(user)
	require.NoError(t, err)
	assert.Equal(t, Snapshot{Current: 1, Limit: 10, Remaining: 9, Plan: "free"}, snap)
	assert.Equal(t, "2025-03", user.UsageMonth)
}

func TestTryConsumeRetriesLostRace(t *testing.T) {
	now := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	store := newFakeStore(&models.User{ID: 1, Plan: "basic", UsageMonth: MonthToken(now), UsageCount: 5})
	store.consumeFailures = 1
	m := meterAt(store, now)

	user, err := store.GetByID(1)
	require.NoError(t, err)

	snap, err := m.TryConsume(user)
	require.NoError(t, err)
	assert.Equal(t, 6, snap.Current)
	assert.Equal(t, 2, store.consumeCalls)
}

func TestTryConsumeGivesUpUnderContention(t *testing.T) {
	now := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	store := newFakeStore(&models.User{ID: 1, Plan: "basic", UsageMonth: MonthToken(now), UsageCount: 5})
	store.consumeFailures = maxConsumeAttempts
	m := meterAt(store, now)

	user, err := store.GetByID(1)
	require.NoError(t, err)

	_, err = m.TryConsume(user)
	require.ErrorIs(t, err, ErrConcurrentUpdate)
}
