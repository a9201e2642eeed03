package db

import (
	"context"
	"time"

	"rooster/internal/types"
)

// LockRepository implements the TTL-bounded advisory lock on the
// dispatch_locks table: one row per lock key, holding the current owner and
// an expiry timestamp.
//
// Acquisition is a single set-if-absent-or-expired upsert, so two dispatchers
// racing on the same key resolve at the database without a separate lock
// service. Expiry is the only liveness mechanism: a crashed owner never
// releases, and its lock simply becomes stealable once expires_at passes.
type LockRepository struct {
	db DBTX
}

var _ types.DispatchLock = (*LockRepository)(nil)

// NewLockRepository creates a new LockRepository backed by the given
// database connection (pool or transaction).
func NewLockRepository(db DBTX) *LockRepository {
	return &LockRepository{db: db}
}

// TryAcquire attempts to take the lock for key on behalf of owner for ttl.
// Returns false without error when another live (unexpired) owner holds it.
// Re-acquiring a lock the same owner already holds extends its expiry.
func (r *LockRepository) TryAcquire(ctx context.Context, key string, owner string, ttl time.Duration) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`INSERT INTO dispatch_locks (lock_key, owner, expires_at)
		 VALUES ($1, $2, NOW() + make_interval(secs => $3))
		 ON CONFLICT (lock_key) DO UPDATE SET
			owner = EXCLUDED.owner,
			expires_at = EXCLUDED.expires_at
		 WHERE dispatch_locks.expires_at <= NOW()
		    OR dispatch_locks.owner = EXCLUDED.owner`,
		key,
		owner,
		ttl.Seconds(),
	)
	if err != nil {
		return false, types.NewAppError(types.ErrCodeInternalDB, "failed to acquire dispatch lock", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Release frees the lock if (and only if) owner still holds it. Releasing a
// lock that expired and was stolen is a no-op, never an error: the late
// releaser must not free somebody else's lock.
func (r *LockRepository) Release(ctx context.Context, key string, owner string) error {
	_, err := r.db.Exec(ctx,
		`DELETE FROM dispatch_locks WHERE lock_key = $1 AND owner = $2`,
		key,
		owner,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to release dispatch lock", err)
	}
	return nil
}

// PurgeExpired removes expired lock rows. Housekeeping only: acquisition
// treats expired rows as absent, so this exists to keep the table small.
func (r *LockRepository) PurgeExpired(ctx context.Context) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM dispatch_locks WHERE expires_at <= NOW()`,
	)
	if err != nil {
		return 0, types.NewAppError(types.ErrCodeInternalDB, "failed to purge expired locks", err)
	}
	return tag.RowsAffected(), nil
}
