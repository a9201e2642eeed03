package db

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"rooster/internal/types"
)

// EventLogRepository provides data access for the event_logs table: the
// idempotent, append-mostly record of event occurrences and their delivery
// state.
//
// Idempotency rests on the UNIQUE (user_id, event_kind, period_year)
// constraint. CreateIfAbsent uses INSERT ... ON CONFLICT DO NOTHING followed
// by a re-read, so two schedulers racing on the same occurrence both end up
// holding the same single row.
type EventLogRepository struct {
	db DBTX
}

var _ types.EventLogStore = (*EventLogRepository)(nil)

// NewEventLogRepository creates a new EventLogRepository backed by the given
// database connection (pool or transaction).
func NewEventLogRepository(db DBTX) *EventLogRepository {
	return &EventLogRepository{db: db}
}

const eventLogColumns = `id, user_id, event_kind, period_year, status,
	        sent_at, retry_count, last_error, metadata, created_at, updated_at`

// CreateIfAbsent inserts a pending entry for (userID, kind, year), or returns
// the existing entry untouched when one is already present. The boolean is
// true only when this call created the row.
//
// A pre-insert read is deliberately omitted: the conflict clause is both the
// correctness mechanism and the fast path, and a read-then-insert would only
// widen the race window it exists to close.
func (r *EventLogRepository) CreateIfAbsent(ctx context.Context, userID string, kind types.EventKind, year int, metadata types.EventMetadata) (*types.EventLogEntry, bool, error) {
	id := "evt_" + uuid.NewString()
	tag, err := r.db.Exec(ctx,
		`INSERT INTO event_logs
		 (id, user_id, event_kind, period_year, status, retry_count, metadata, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, 0, $6, NOW(), NOW())
		 ON CONFLICT (user_id, event_kind, period_year) DO NOTHING`,
		id,
		userID,
		string(kind),
		year,
		string(types.StatusPending),
		metadata,
	)
	if err != nil {
		return nil, false, types.NewAppError(types.ErrCodeInternalDB, "failed to create event log entry", err)
	}

	created := tag.RowsAffected() == 1

	// Re-read through the dedup key rather than the generated id: on
	// conflict the surviving row carries a different id.
	row := r.db.QueryRow(ctx,
		`SELECT `+eventLogColumns+`
		 FROM event_logs
		 WHERE user_id = $1 AND event_kind = $2 AND period_year = $3`,
		userID,
		string(kind),
		year,
	)
	entry, err := scanEventLog(row)
	if err != nil {
		return nil, false, types.NewAppError(types.ErrCodeInternalDB, "failed to read back event log entry", err)
	}
	return entry, created, nil
}

// GetByID returns the entry or an AppError with ErrCodeNotFoundEventLog.
func (r *EventLogRepository) GetByID(ctx context.Context, id string) (*types.EventLogEntry, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+eventLogColumns+`
		 FROM event_logs
		 WHERE id = $1`,
		id,
	)
	entry, err := scanEventLog(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundEventLog, "event log entry not found", nil)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to get event log entry", err)
	}
	return entry, nil
}

// UpdateStatus transitions an entry to the given status. On sent, sent_at is
// stamped and last_error cleared. On failed, errText is recorded. On retry,
// retry_count is incremented atomically in the same statement so concurrent
// sweeps never lose an increment.
func (r *EventLogRepository) UpdateStatus(ctx context.Context, id string, status types.EventLogStatus, errText string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE event_logs SET
			status = $1,
			sent_at = CASE WHEN $1 = 'sent' THEN NOW() ELSE sent_at END,
			last_error = CASE WHEN $1 = 'sent' THEN NULL ELSE COALESCE($2, last_error) END,
			retry_count = CASE WHEN $1 = 'retry' THEN retry_count + 1 ELSE retry_count END,
			updated_at = NOW()
		 WHERE id = $3`,
		string(status),
		nilIfEmpty(errText),
		id,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to update event log status", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundEventLog, "event log entry not found", nil)
	}
	return nil
}

// PendingEntries returns up to limit pending entries created before
// olderThan, oldest first, so long-waiting occurrences are recovered before
// fresh ones. The age floor keeps entries whose first job is still in flight
// out of the result.
func (r *EventLogRepository) PendingEntries(ctx context.Context, olderThan time.Time, limit int) ([]*types.EventLogEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Query(ctx,
		`SELECT `+eventLogColumns+`
		 FROM event_logs
		 WHERE status = 'pending'
		   AND created_at < $1
		 ORDER BY created_at ASC
		 LIMIT $2`,
		olderThan,
		limit,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to query pending entries", err)
	}
	defer rows.Close()
	return collectEventLogs(rows)
}

// RetryEligible returns entries due for a recovery re-feed, oldest first:
// failed entries with retry_count below maxRetries, plus retry entries whose
// announced job was lost (publish failure, or a crash between the mark and
// the publish). Retry rows carry no ceiling filter: their increment already
// landed, so re-feeding re-delivers a consumed attempt rather than granting
// a new one. The cool-down keeps the sweeper from re-attacking an entry the
// dispatcher touched moments ago.
func (r *EventLogRepository) RetryEligible(ctx context.Context, now time.Time, maxRetries int, coolDown time.Duration, limit int) ([]*types.EventLogEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Query(ctx,
		`SELECT `+eventLogColumns+`
		 FROM event_logs
		 WHERE ((status = 'failed' AND retry_count < $1) OR status = 'retry')
		   AND updated_at < $2
		 ORDER BY updated_at ASC
		 LIMIT $3`,
		maxRetries,
		now.Add(-coolDown),
		limit,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to query retry-eligible entries", err)
	}
	defer rows.Close()
	return collectEventLogs(rows)
}

// PurgeOlderThan hard-deletes entries created before the cutoff and returns
// the count removed. Used by the retention sweep.
func (r *EventLogRepository) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM event_logs WHERE created_at < $1`,
		cutoff,
	)
	if err != nil {
		return 0, types.NewAppError(types.ErrCodeInternalDB, "failed to purge old event log entries", err)
	}
	return tag.RowsAffected(), nil
}

// Stats aggregates entry counts by (event_kind, status) for the ops
// endpoint.
func (r *EventLogRepository) Stats(ctx context.Context) (*types.EventLogStats, error) {
	rows, err := r.db.Query(ctx,
		`SELECT event_kind, status, COUNT(*)
		 FROM event_logs
		 GROUP BY event_kind, status
		 ORDER BY event_kind, status`,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to query event log stats", err)
	}
	defer rows.Close()

	stats := &types.EventLogStats{}
	for rows.Next() {
		var cell types.EventLogStatsCell
		if err := rows.Scan(&cell.EventKind, &cell.Status, &cell.Count); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan stats row", err)
		}
		stats.ByKindAndStatus = append(stats.ByKindAndStatus, cell)
		stats.Total += cell.Count
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating stats rows", err)
	}
	return stats, nil
}

// collectEventLogs drains a result set into entries, wrapping scan and
// iteration errors.
func collectEventLogs(rows pgx.Rows) ([]*types.EventLogEntry, error) {
	var results []*types.EventLogEntry
	for rows.Next() {
		entry, err := scanEventLog(rows)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan event log row", err)
		}
		results = append(results, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating event log rows", err)
	}
	return results, nil
}

// scanEventLog scans one event_logs row. Handles nullable columns with
// pointer types.
func scanEventLog(row pgx.Row) (*types.EventLogEntry, error) {
	var (
		e         types.EventLogEntry
		sentAt    *time.Time
		lastError *string
	)
	err := row.Scan(
		&e.ID,
		&e.UserID,
		&e.EventKind,
		&e.PeriodYear,
		&e.Status,
		&sentAt,
		&e.RetryCount,
		&lastError,
		&e.Metadata,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	e.SentAt = sentAt
	if lastError != nil {
		e.LastError = *lastError
	}
	return &e, nil
}
