// Package types defines the shared domain entities, enums, error taxonomy,
// and capability interfaces for the Rooster recurring-event notification
// pipeline. It has no dependencies on other internal packages so that every
// layer (db, queue, scheduler, channels) can share these definitions without
// import cycles.
package types

import "time"

// EventKind identifies a category of recurring per-user event.
type EventKind string

const (
	EventBirthday    EventKind = "birthday"
	EventAnniversary EventKind = "anniversary"
)

// EventLogStatus represents the delivery lifecycle state of an EventLogEntry.
//
// State machine:
//
//	pending --(delivery succeeds)--> sent              [terminal]
//	pending --(delivery fails)-----> failed
//	failed  --(sweep, eligible)----> retry --(one-shot attempt)--> sent | failed
//	failed  --(retries exhausted)--> failed            [terminal by policy]
type EventLogStatus string

const (
	StatusPending EventLogStatus = "pending"
	StatusSent    EventLogStatus = "sent"
	StatusFailed  EventLogStatus = "failed"
	StatusRetry   EventLogStatus = "retry"
)

// ChannelType identifies a notification delivery channel.
type ChannelType string

const (
	ChannelWebhook ChannelType = "webhook"
	ChannelEmail   ChannelType = "email"
)

// User is the read-only view of a user record consumed by the scan pipeline.
// User storage and CRUD live outside this system; the scanner only queries
// by timezone and reads the fields below.
//
// Timezone must be a recognized IANA identifier. Users with unrecognized
// values are excluded from scan results rather than failing the scan.
type User struct {
	ID         string
	FullName   string
	Email      string
	BirthDate  time.Time
	HireDate   *time.Time // nil when the user has no recorded hire date
	Timezone   string
	WebhookURL string // optional per-user override of the global webhook destination
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// EventLogEntry is the unit of idempotency and delivery state. Exactly one
// entry may exist per (UserID, EventKind, PeriodYear) regardless of how many
// times the trigger fires; the database unique constraint is the guarantee
// and the read-check in the repository is only an optimization.
//
// Lifecycle ownership: created by the scan scheduler, mutated only by the
// dispatcher (Status, SentAt, RetryCount, LastError), deleted only by the
// retention purge.
type EventLogEntry struct {
	ID         string
	UserID     string
	EventKind  EventKind
	PeriodYear int
	Status     EventLogStatus
	SentAt     *time.Time
	RetryCount int
	LastError  string
	Metadata   EventMetadata
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// CachedMessage returns the notification message snapshot taken at entry
// creation, or "" when none was recorded. The dispatcher prefers this over
// recomputing so that delivered content stays stable even if trigger logic
// changes between creation and delivery.
func (e *EventLogEntry) CachedMessage() string {
	if e.Metadata == nil {
		return ""
	}
	msg, _ := e.Metadata["message"].(string)
	return msg
}

// OriginTimezone returns the timezone that produced this entry, recorded in
// metadata at creation time.
func (e *EventLogEntry) OriginTimezone() string {
	if e.Metadata == nil {
		return ""
	}
	tz, _ := e.Metadata["timezone"].(string)
	return tz
}

// EventLogStats aggregates event log counts for operational visibility.
type EventLogStats struct {
	Total           int64               `json:"total"`
	ByKindAndStatus []EventLogStatsCell `json:"by_kind_and_status"`
}

// EventLogStatsCell is one (kind, status) bucket in EventLogStats.
type EventLogStatsCell struct {
	EventKind EventKind      `json:"event_kind"`
	Status    EventLogStatus `json:"status"`
	Count     int64          `json:"count"`
}
