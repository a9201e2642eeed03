package scheduler

import (
	"context"
	"time"

	"github.com/google/uuid"

	"rooster/internal/notifications/core"
	"rooster/internal/types"
)

// RecoveryReport summarizes one recovery sweep.
type RecoveryReport struct {
	PendingRequeued int
	RetriesFed      int
}

// RecoveryService is the safety net under the dispatch pipeline. Each sweep
// it re-feeds two classes of entries into the queue:
//
//   - pending entries: created but never delivered, typically because the
//     original enqueue failed or a worker crashed before settling them. They
//     are re-published as first-send jobs. Only entries older than the
//     cool-down qualify, so a fresh entry whose first job is still in flight
//     is not immediately doubled; the dispatch lock and status guard absorb
//     whatever duplicates remain.
//   - failed entries under the attempt ceiling whose cool-down has elapsed:
//     marked retry (incrementing retry_count) and re-published as one-shot
//     retry jobs with exponential backoff. Entries already sitting in retry
//     past the cool-down lost their announced job; they are re-published
//     without a second mark.
type RecoveryService struct {
	store  types.EventLogStore
	queue  types.DispatchQueue
	policy core.RetryPolicy

	coolDown  time.Duration
	batchSize int

	clock  types.Clock
	logger types.Logger
}

// NewRecoveryService creates a RecoveryService.
func NewRecoveryService(
	store types.EventLogStore,
	queue types.DispatchQueue,
	policy core.RetryPolicy,
	coolDown time.Duration,
	batchSize int,
	clock types.Clock,
	logger types.Logger,
) *RecoveryService {
	if clock == nil {
		clock = types.RealClock{}
	}
	if batchSize <= 0 {
		batchSize = 50
	}
	return &RecoveryService{
		store:     store,
		queue:     queue,
		policy:    policy,
		coolDown:  coolDown,
		batchSize: batchSize,
		clock:     clock,
		logger:    logger,
	}
}

// Sweep runs one recovery pass. Entry-level failures are logged and skipped;
// the sweep itself fails only when a batch query does.
func (r *RecoveryService) Sweep(ctx context.Context) (RecoveryReport, error) {
	var report RecoveryReport

	pending, err := r.store.PendingEntries(ctx, r.clock.Now().Add(-r.coolDown), r.batchSize)
	if err != nil {
		return report, err
	}
	for _, entry := range pending {
		msg := types.DispatchMessage{
			EntryID:    entry.ID,
			Kind:       types.DispatchDeliver,
			TraceID:    "trace_" + uuid.NewString(),
			EnqueuedAt: r.clock.Now(),
		}
		if err := r.queue.Publish(ctx, msg, 0); err != nil {
			r.logger.Error("failed to requeue pending entry",
				"entry_id", entry.ID,
				"error", err,
			)
			continue
		}
		report.PendingRequeued++
	}

	eligible, err := r.store.RetryEligible(ctx, r.clock.Now(), r.policy.MaxAttempts, r.coolDown, r.batchSize)
	if err != nil {
		return report, err
	}
	for _, entry := range eligible {
		// Mark first: the retry_count increment must land before the job is
		// visible, or a crash between the two steps would grant the entry a
		// free attempt. A row already in retry was marked by an earlier sweep
		// whose publish never landed; re-feed it without a second mark so the
		// lost job costs no extra attempt.
		attempt := entry.RetryCount + 1
		if entry.Status == types.StatusRetry {
			attempt = entry.RetryCount
		} else if err := r.store.UpdateStatus(ctx, entry.ID, types.StatusRetry, ""); err != nil {
			r.logger.Error("failed to mark entry for retry",
				"entry_id", entry.ID,
				"error", err,
			)
			continue
		}

		msg := types.DispatchMessage{
			EntryID:    entry.ID,
			Kind:       types.DispatchRetry,
			RetryCount: attempt,
			TraceID:    "trace_" + uuid.NewString(),
			EnqueuedAt: r.clock.Now(),
		}
		delay := r.policy.Backoff(attempt - 1)
		if err := r.queue.Publish(ctx, msg, delay); err != nil {
			r.logger.Error("failed to enqueue retry",
				"entry_id", entry.ID,
				"error", err,
			)
			continue
		}
		report.RetriesFed++
	}

	r.logger.Info("recovery sweep complete",
		"pending_requeued", report.PendingRequeued,
		"retries_fed", report.RetriesFed,
	)
	return report, nil
}
