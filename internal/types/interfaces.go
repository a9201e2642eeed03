package types

import (
	"context"
	"time"
)

// Logger defines the structured logging interface used throughout the
// pipeline. Each binary wraps *slog.Logger in an adapter satisfying this
// interface so library packages never depend on a concrete logger.
type Logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
	With(args ...any) Logger
}

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

// RealClock implements Clock using the real system time (always UTC).
type RealClock struct{}

// Now returns the current time in UTC.
func (RealClock) Now() time.Time { return time.Now().UTC() }

// EventTrigger is a pluggable definition of one recurring event kind.
// Implementations are registered into the trigger registry at startup;
// adding a new recurring-event type requires only a new implementation,
// no change to the scan scheduler.
type EventTrigger interface {
	// Kind returns the event kind this trigger produces (e.g. "birthday").
	Kind() EventKind

	// ShouldTrigger reports whether the event is due for this user today,
	// evaluated against the user's local date at the given instant.
	ShouldTrigger(now time.Time, user *User) bool

	// BuildMessage renders the notification text for this user.
	BuildMessage(user *User) string

	// Schedule returns the nominal cron expression for this trigger.
	// Informational only: actual firing is driven by the scan tick plus
	// the timezone resolver, not by this string.
	Schedule() string
}

// DeliveryResult reports the outcome of a channel delivery attempt.
type DeliveryResult struct {
	// Delivered is true when the channel accepted the message.
	Delivered bool

	// FailureReason holds a short machine-greppable reason when
	// Delivered is false (e.g. "missing_webhook_url", "http_503").
	FailureReason string

	// Code classifies the failure for the retry decision: upstream codes
	// mark transient transport failures worth re-attempting, skip codes
	// (see IsSkipCode) mark deterministic configuration problems that
	// retrying cannot fix. Zero when Delivered is true.
	Code ErrorCode
}

// NotificationChannel is a pluggable delivery backend. A channel with no
// configured destination must report a deterministic failure carrying
// ErrCodeChannelNotConfigured rather than attempting a call.
type NotificationChannel interface {
	// Kind returns the channel identifier (e.g. "webhook", "email").
	Kind() ChannelType

	// Deliver sends the payload to the recipient described within it.
	// Expected failures are reported through DeliveryResult, not through
	// the error return; the error is reserved for payload marshaling and
	// similar programming-contract problems.
	Deliver(ctx context.Context, payload DeliveryPayload) (DeliveryResult, error)
}

// UserSource is the read-only query interface the pipeline issues against
// the external user-storage collaborator.
type UserSource interface {
	// FindUsersByTimezone returns all users whose timezone equals zone.
	FindUsersByTimezone(ctx context.Context, zone string) ([]*User, error)

	// DistinctTimezones returns the set of timezone identifiers in use.
	DistinctTimezones(ctx context.Context) ([]string, error)
}

// EventLogStore is the idempotent append-only record of event occurrences.
type EventLogStore interface {
	// CreateIfAbsent inserts an entry for the dedup key, or returns the
	// existing one unchanged. Safe under concurrent callers racing on the
	// same key; the store-level unique constraint is the backstop.
	CreateIfAbsent(ctx context.Context, userID string, kind EventKind, year int, metadata EventMetadata) (*EventLogEntry, bool, error)

	// GetByID returns the entry or an AppError with ErrCodeNotFoundEventLog.
	GetByID(ctx context.Context, id string) (*EventLogEntry, error)

	// UpdateStatus transitions an entry. On sent it stamps sent_at; on
	// failed it records errText; on retry it atomically increments
	// retry_count at the store layer.
	UpdateStatus(ctx context.Context, id string, status EventLogStatus, errText string) error

	// PendingEntries returns up to limit pending entries created before
	// olderThan, oldest first. The age floor keeps freshly created
	// entries out of the recovery sweep while their first job is still
	// in flight.
	PendingEntries(ctx context.Context, olderThan time.Time, limit int) ([]*EventLogEntry, error)

	// RetryEligible returns entries due for a recovery re-feed, oldest
	// first: failed entries with retry_count below maxRetries, plus
	// retry entries whose announced job was lost. Both classes must have
	// sat untouched for at least coolDown before now.
	RetryEligible(ctx context.Context, now time.Time, maxRetries int, coolDown time.Duration, limit int) ([]*EventLogEntry, error)

	// PurgeOlderThan deletes entries created before the horizon and
	// returns the count removed.
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// DispatchLock is the TTL-bounded advisory lock used by the dispatcher to
// guarantee at most one concurrent delivery per entry. TTL expiry is the
// sole liveness mechanism: a lock whose owner crashed becomes stealable
// once expired.
type DispatchLock interface {
	// TryAcquire attempts to take the lock for key. Returns false without
	// error when another live owner holds it.
	TryAcquire(ctx context.Context, key string, owner string, ttl time.Duration) (bool, error)

	// Release frees the lock if (and only if) owner still holds it.
	Release(ctx context.Context, key string, owner string) error
}

// DispatchQueue enqueues dispatch messages for the worker pool.
type DispatchQueue interface {
	// Publish sends msg, made visible after delay (zero for immediate).
	Publish(ctx context.Context, msg DispatchMessage, delay time.Duration) error
}
