package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"rooster/internal/types"
)

type noopLogger struct{}

func (noopLogger) Info(msg string, args ...any)    {}
func (noopLogger) Error(msg string, args ...any)   {}
func (noopLogger) Warn(msg string, args ...any)    {}
func (l noopLogger) With(args ...any) types.Logger { return l }

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

// --- User source ---

type fakeUserSource struct {
	byZone    map[string][]*types.User
	zones     []string
	findErr   error
	zonesErr  error
	findCalls []string
}

func (f *fakeUserSource) FindUsersByTimezone(ctx context.Context, zone string) ([]*types.User, error) {
	f.findCalls = append(f.findCalls, zone)
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.byZone[zone], nil
}

func (f *fakeUserSource) DistinctTimezones(ctx context.Context) ([]string, error) {
	if f.zonesErr != nil {
		return nil, f.zonesErr
	}
	return f.zones, nil
}

// --- Event log store ---

type createCall struct {
	userID   string
	kind     types.EventKind
	year     int
	metadata types.EventMetadata
}

type fakeStore struct {
	mu sync.Mutex

	// existing dedup keys for which CreateIfAbsent reports created=false,
	// mapped to the surviving entry's status.
	existing map[string]types.EventLogStatus

	creates     []createCall
	createErr   error
	nextEntryID int

	pending       []*types.EventLogEntry
	pendingErr    error
	pendingFloors []time.Time

	eligible    []*types.EventLogEntry
	eligibleErr error

	transitions []string
	updateErr   error

	purged    int64
	purgedErr error
	cutoffs   []time.Time
}

func dedupKey(userID string, kind types.EventKind, year int) string {
	return fmt.Sprintf("%s|%s|%d", userID, kind, year)
}

func (s *fakeStore) CreateIfAbsent(ctx context.Context, userID string, kind types.EventKind, year int, metadata types.EventMetadata) (*types.EventLogEntry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return nil, false, s.createErr
	}
	s.creates = append(s.creates, createCall{userID: userID, kind: kind, year: year, metadata: metadata})

	key := dedupKey(userID, kind, year)
	if status, ok := s.existing[key]; ok {
		return &types.EventLogEntry{
			ID:         "existing-" + key,
			UserID:     userID,
			EventKind:  kind,
			PeriodYear: year,
			Status:     status,
		}, false, nil
	}
	s.nextEntryID++
	return &types.EventLogEntry{
		ID:         fmt.Sprintf("log-%d", s.nextEntryID),
		UserID:     userID,
		EventKind:  kind,
		PeriodYear: year,
		Status:     types.StatusPending,
		Metadata:   metadata,
	}, true, nil
}

func (s *fakeStore) GetByID(ctx context.Context, id string) (*types.EventLogEntry, error) {
	return nil, types.NewAppError(types.ErrCodeNotFoundEventLog, "not implemented", nil)
}

func (s *fakeStore) UpdateStatus(ctx context.Context, id string, status types.EventLogStatus, errText string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updateErr != nil {
		return s.updateErr
	}
	s.transitions = append(s.transitions, fmt.Sprintf("%s:%s", id, status))
	return nil
}

func (s *fakeStore) PendingEntries(ctx context.Context, olderThan time.Time, limit int) ([]*types.EventLogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pendingFloors = append(s.pendingFloors, olderThan)
	if s.pendingErr != nil {
		return nil, s.pendingErr
	}
	return s.pending, nil
}

func (s *fakeStore) RetryEligible(ctx context.Context, now time.Time, maxRetries int, coolDown time.Duration, limit int) ([]*types.EventLogEntry, error) {
	if s.eligibleErr != nil {
		return nil, s.eligibleErr
	}
	return s.eligible, nil
}

func (s *fakeStore) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cutoffs = append(s.cutoffs, cutoff)
	if s.purgedErr != nil {
		return 0, s.purgedErr
	}
	return s.purged, nil
}

// --- Dispatch queue ---

type publishedMessage struct {
	msg   types.DispatchMessage
	delay time.Duration
}

type fakeQueue struct {
	mu        sync.Mutex
	published []publishedMessage
	pubErr    error
}

func (q *fakeQueue) Publish(ctx context.Context, msg types.DispatchMessage, delay time.Duration) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.pubErr != nil {
		return q.pubErr
	}
	q.published = append(q.published, publishedMessage{msg: msg, delay: delay})
	return nil
}

// --- Lock janitor ---

type fakeJanitor struct {
	purged int64
	err    error
	calls  int
}

func (j *fakeJanitor) PurgeExpired(ctx context.Context) (int64, error) {
	j.calls++
	return j.purged, j.err
}
