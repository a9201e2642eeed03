package core

import (
	"context"
	"sync"
	"time"

	"rooster/internal/types"
)

// --- Logger ---

type noopLogger struct{}

func (noopLogger) Info(msg string, args ...any)    {}
func (noopLogger) Error(msg string, args ...any)   {}
func (noopLogger) Warn(msg string, args ...any)    {}
func (l noopLogger) With(args ...any) types.Logger { return l }

// --- Clock ---

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

// --- Event log store ---

type fakeStore struct {
	mu      sync.Mutex
	entries map[string]*types.EventLogEntry

	getErr    error
	updateErr error

	// transitions records (id, status, errText) in order.
	transitions []transition
}

type transition struct {
	id      string
	status  types.EventLogStatus
	errText string
}

func newFakeStore(entries ...*types.EventLogEntry) *fakeStore {
	s := &fakeStore{entries: make(map[string]*types.EventLogEntry)}
	for _, e := range entries {
		s.entries[e.ID] = e
	}
	return s
}

func (s *fakeStore) CreateIfAbsent(ctx context.Context, userID string, kind types.EventKind, year int, metadata types.EventMetadata) (*types.EventLogEntry, bool, error) {
	panic("not used by dispatcher tests")
}

func (s *fakeStore) GetByID(ctx context.Context, id string) (*types.EventLogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	entry, ok := s.entries[id]
	if !ok {
		return nil, types.NewAppError(types.ErrCodeNotFoundEventLog, "event log entry not found", nil)
	}
	copied := *entry
	return &copied, nil
}

func (s *fakeStore) UpdateStatus(ctx context.Context, id string, status types.EventLogStatus, errText string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updateErr != nil {
		return s.updateErr
	}
	entry, ok := s.entries[id]
	if !ok {
		return types.NewAppError(types.ErrCodeNotFoundEventLog, "event log entry not found", nil)
	}
	entry.Status = status
	entry.LastError = errText
	if status == types.StatusRetry {
		entry.RetryCount++
	}
	s.transitions = append(s.transitions, transition{id: id, status: status, errText: errText})
	return nil
}

func (s *fakeStore) PendingEntries(ctx context.Context, olderThan time.Time, limit int) ([]*types.EventLogEntry, error) {
	return nil, nil
}

func (s *fakeStore) RetryEligible(ctx context.Context, now time.Time, maxRetries int, coolDown time.Duration, limit int) ([]*types.EventLogEntry, error) {
	return nil, nil
}

func (s *fakeStore) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

// --- User reader ---

type fakeUsers struct {
	users map[string]*types.User
}

func (f *fakeUsers) GetByID(ctx context.Context, id string) (*types.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, types.NewAppError(types.ErrCodeNotFoundUser, "user not found", nil)
	}
	return u, nil
}

// --- Dispatch lock ---

type fakeLock struct {
	mu       sync.Mutex
	held     map[string]string
	denyAll  bool
	acquires []string
	owners   []string
	releases []string
}

func newFakeLock() *fakeLock {
	return &fakeLock{held: make(map[string]string)}
}

// TryAcquire mirrors the lock table's upsert: a held key blocks other
// owners, while the holder itself may re-acquire.
func (l *fakeLock) TryAcquire(ctx context.Context, key string, owner string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.owners = append(l.owners, owner)
	if l.denyAll {
		return false, nil
	}
	if holder, ok := l.held[key]; ok && holder != owner {
		return false, nil
	}
	l.held[key] = owner
	l.acquires = append(l.acquires, key)
	return true, nil
}

func (l *fakeLock) Release(ctx context.Context, key string, owner string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if holder, ok := l.held[key]; ok && holder == owner {
		delete(l.held, key)
	}
	l.releases = append(l.releases, key)
	return nil
}

// --- Dispatch queue ---

type fakeQueue struct {
	mu        sync.Mutex
	published []publishedMessage
	pubErr    error
}

type publishedMessage struct {
	msg   types.DispatchMessage
	delay time.Duration
}

func (q *fakeQueue) Publish(ctx context.Context, msg types.DispatchMessage, delay time.Duration) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.pubErr != nil {
		return q.pubErr
	}
	if msg.Kind == types.DispatchDeliver {
		msg.RetryCount++
	}
	q.published = append(q.published, publishedMessage{msg: msg, delay: delay})
	return nil
}

// --- Notification channel ---

type fakeChannel struct {
	kind       types.ChannelType
	result     types.DeliveryResult
	deliverErr error

	mu       sync.Mutex
	payloads []types.DeliveryPayload
}

func (c *fakeChannel) Kind() types.ChannelType { return c.kind }

func (c *fakeChannel) Deliver(ctx context.Context, payload types.DeliveryPayload) (types.DeliveryResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.deliverErr != nil {
		return types.DeliveryResult{}, c.deliverErr
	}
	c.payloads = append(c.payloads, payload)
	return c.result, nil
}

// gatedChannel holds each delivery open until released, signalling entry on
// entered. Used to pin one attempt mid-delivery while a duplicate races it.
type gatedChannel struct {
	fakeChannel
	entered chan struct{}
	release chan struct{}
}

func (c *gatedChannel) Deliver(ctx context.Context, payload types.DeliveryPayload) (types.DeliveryResult, error) {
	c.entered <- struct{}{}
	<-c.release
	return c.fakeChannel.Deliver(ctx, payload)
}
