package scheduler

import (
	"context"
	"time"

	"rooster/internal/types"
)

// LockJanitor removes expired lock rows. Satisfied by db.LockRepository.
type LockJanitor interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// CleanupService enforces the retention horizon on the event log and keeps
// the lock table from accumulating expired rows.
type CleanupService struct {
	store     types.EventLogStore
	locks     LockJanitor
	retention time.Duration
	clock     types.Clock
	logger    types.Logger
}

// NewCleanupService creates a CleanupService. locks may be nil when lock
// housekeeping is handled elsewhere.
func NewCleanupService(store types.EventLogStore, locks LockJanitor, retention time.Duration, clock types.Clock, logger types.Logger) *CleanupService {
	if clock == nil {
		clock = types.RealClock{}
	}
	return &CleanupService{
		store:     store,
		locks:     locks,
		retention: retention,
		clock:     clock,
		logger:    logger,
	}
}

// Purge deletes event log entries older than the retention horizon and
// expired lock rows, returning the entry count removed.
func (c *CleanupService) Purge(ctx context.Context) (int64, error) {
	cutoff := c.clock.Now().Add(-c.retention)
	deleted, err := c.store.PurgeOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	if c.locks != nil {
		locksPurged, err := c.locks.PurgeExpired(ctx)
		if err != nil {
			// Housekeeping only; acquisition treats expired rows as absent.
			c.logger.Warn("failed to purge expired locks", "error", err)
		} else if locksPurged > 0 {
			c.logger.Info("expired locks purged", "count", locksPurged)
		}
	}

	c.logger.Info("retention purge complete",
		"cutoff", cutoff.Format(time.RFC3339),
		"entries_deleted", deleted,
	)
	return deleted, nil
}
