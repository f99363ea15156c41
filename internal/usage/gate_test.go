package usage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubUsageStore struct {
	count     int
	err       error
	gotUserID string
	gotSince  time.Time
}

func (s *stubUsageStore) CountSince(ctx context.Context, userID string, since time.Time) (int, error) {
	s.gotUserID = userID
	s.gotSince = since
	return s.count, s.err
}

func TestCheckUnderLimit(t *testing.T) {
	gate := NewGate(&stubUsageStore{count: 42})

	status, err := gate.Check(context.Background(), "user-1", DefaultMaxPerMonth)

	require.NoError(t, err)
	assert.True(t, status.Allowed)
	assert.Equal(t, 42, status.CurrentCount)
	assert.Equal(t, 58, status.Remaining)
	assert.Equal(t, DefaultMaxPerMonth, status.MaxQueries)
}

func TestCheckOneBelowLimit(t *testing.T) {
	gate := NewGate(&stubUsageStore{count: 99})

	status, err := gate.Check(context.Background(), "user-1", 100)

	require.NoError(t, err)
	assert.True(t, status.Allowed)
	assert.Equal(t, 1, status.Remaining)
}

func TestCheckAtLimit(t *testing.T) {
	gate := NewGate(&stubUsageStore{count: 100})

	status, err := gate.Check(context.Background(), "user-1", 100)

	require.NoError(t, err)
	assert.False(t, status.Allowed)
	assert.Equal(t, 100, status.CurrentCount)
	assert.Equal(t, 0, status.Remaining)
}

func TestCheckOverLimitClampsRemaining(t *testing.T) {
	gate := NewGate(&stubUsageStore{count: 103})

	status, err := gate.Check(context.Background(), "user-1", 100)

	require.NoError(t, err)
	assert.False(t, status.Allowed)
	assert.Equal(t, 0, status.Remaining)
}

func TestCheckUsesStartOfCurrentMonth(t *testing.T) {
	store := &stubUsageStore{}
	gate := NewGate(store)
	gate.Now = func() time.Time {
		return time.Date(2026, time.August, 29, 15, 4, 5, 0, time.UTC)
	}

	_, err := gate.Check(context.Background(), "user-1", 100)

	require.NoError(t, err)
	assert.Equal(t, "user-1", store.gotUserID)
	assert.Equal(t, time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC), store.gotSince)
}

func TestCheckStoreErrorPropagates(t *testing.T) {
	storeErr := errors.New("connection lost")
	gate := NewGate(&stubUsageStore{err: storeErr})

	_, err := gate.Check(context.Background(), "user-1", 100)

	require.Error(t, err)
	assert.ErrorIs(t, err, storeErr)
}
