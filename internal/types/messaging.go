package types

import "time"

// DispatchKind distinguishes first-send jobs from sweeper-produced retries.
type DispatchKind string

const (
	// DispatchDeliver is a first-send job created by the scan scheduler.
	// It participates in the queue-level burst retry policy (re-published
	// with backoff up to the attempt ceiling).
	DispatchDeliver DispatchKind = "deliver"

	// DispatchRetry is a single-shot job produced only by the recovery
	// sweeper. It marks the entry retry (incrementing retry_count) and
	// performs exactly one delivery attempt; if that fails the entry waits
	// for the next sweep cycle instead of re-entering the burst policy.
	DispatchRetry DispatchKind = "retry"
)

// DispatchMessage is the queue envelope for one delivery job. It references
// the event-log entry by id and deliberately carries no payload beyond that:
// the dispatcher re-reads authoritative state at execution time, which
// prevents stale-payload bugs when an entry changes between enqueue and
// execution.
//
// RetryCount carries the queue-level attempt number across the
// publish-subscribe retry cycle for deliver-kind messages. It is distinct
// from EventLogEntry.RetryCount, which counts sweeper retries.
type DispatchMessage struct {
	EntryID    string       `json:"entry_id"`
	Kind       DispatchKind `json:"kind"`
	RetryCount int          `json:"retry_count"`
	TraceID    string       `json:"trace_id"`
	EnqueuedAt time.Time    `json:"enqueued_at"`
}

// Recipient identifies the event occurrence a delivery belongs to.
type Recipient struct {
	UserID     string    `json:"userId"`
	EventKind  EventKind `json:"eventKind"`
	PeriodYear int       `json:"periodYear"`
}

// DeliveryPayload is the shape handed to a notification channel. Timestamp
// is ISO-8601. Destination carries the channel-specific target (webhook URL
// or email address) resolved by the dispatcher; channels fall back to their
// configured default when it is empty.
type DeliveryPayload struct {
	Message     string    `json:"message"`
	Timestamp   string    `json:"timestamp"`
	Recipient   Recipient `json:"recipient"`
	Destination string    `json:"-"`
}
