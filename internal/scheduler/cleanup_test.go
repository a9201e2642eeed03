package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanupService_PurgesBeyondRetentionHorizon(t *testing.T) {
	now := time.Date(2026, 6, 15, 2, 0, 0, 0, time.UTC)
	store := &fakeStore{purged: 7}
	janitor := &fakeJanitor{purged: 2}

	svc := NewCleanupService(store, janitor, 90*24*time.Hour, fixedClock{now: now}, noopLogger{})

	deleted, err := svc.Purge(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(7), deleted)

	require.Len(t, store.cutoffs, 1)
	assert.Equal(t, now.Add(-90*24*time.Hour), store.cutoffs[0])
	assert.Equal(t, 1, janitor.calls)
}

func TestCleanupService_PurgeErrorIsFatal(t *testing.T) {
	store := &fakeStore{purgedErr: errors.New("relation locked")}
	janitor := &fakeJanitor{}

	svc := NewCleanupService(store, janitor, 24*time.Hour, nil, noopLogger{})

	_, err := svc.Purge(context.Background())
	require.Error(t, err)
	assert.Equal(t, 0, janitor.calls, "lock housekeeping must not run after a failed purge")
}

func TestCleanupService_LockJanitorFailureIsNonFatal(t *testing.T) {
	store := &fakeStore{purged: 3}
	janitor := &fakeJanitor{err: errors.New("timeout")}

	svc := NewCleanupService(store, janitor, 24*time.Hour, nil, noopLogger{})

	deleted, err := svc.Purge(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), deleted)
}

func TestCleanupService_NilJanitorSkipsLockHousekeeping(t *testing.T) {
	store := &fakeStore{purged: 1}

	svc := NewCleanupService(store, nil, 24*time.Hour, nil, noopLogger{})

	deleted, err := svc.Purge(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
}
