// Package core implements the notification dispatch pipeline: the retry
// policy, the channel registry, delivery metrics, and the Dispatcher that
// executes one locked, idempotent delivery attempt per dispatch message.
package core

import "time"

// RetryPolicy holds the knobs of the two-tier retry scheme.
//
// Tier one is the queue-level burst: a failed first send is re-published to
// the dispatch queue with exponential backoff until MaxAttempts is reached.
// Tier two is the recovery sweeper: entries still failed after the burst are
// re-fed one attempt per sweep cycle, bounded by the entry's retry_count
// against the same MaxAttempts ceiling.
type RetryPolicy struct {
	// MaxAttempts is the attempt ceiling for both tiers.
	MaxAttempts int

	// BaseDelay is the backoff unit; attempt n waits BaseDelay * 2^n.
	BaseDelay time.Duration
}

// DefaultRetryPolicy mirrors the standard configuration: three attempts on a
// one-minute base.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: time.Minute}
}

// Backoff returns the delay before attempt number attempt (zero-based):
// BaseDelay * 2^attempt. Negative attempts are treated as zero.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	// Shift overflow guard; anything past 2^20 units is absurd and the
	// queue clamps real delays far below that.
	if attempt > 20 {
		attempt = 20
	}
	return p.BaseDelay * time.Duration(1<<uint(attempt))
}

// Exhausted reports whether the given attempt count has consumed the ceiling.
func (p RetryPolicy) Exhausted(attempts int) bool {
	return attempts >= p.MaxAttempts
}
