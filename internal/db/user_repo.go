package db

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"rooster/internal/types"
)

// UserRepository provides the read-only user queries the scan pipeline
// issues. User CRUD lives outside this system; the pipeline only needs to
// partition the population by timezone.
type UserRepository struct {
	db DBTX
}

var _ types.UserSource = (*UserRepository)(nil)

// NewUserRepository creates a new UserRepository backed by the given
// database connection (pool or transaction).
func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

// FindUsersByTimezone returns all users whose timezone column equals zone,
// ordered by id for deterministic scan batches.
func (r *UserRepository) FindUsersByTimezone(ctx context.Context, zone string) ([]*types.User, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, full_name, email, birth_date, hire_date, timezone,
		        webhook_url, created_at, updated_at
		 FROM users
		 WHERE timezone = $1
		 ORDER BY id`,
		zone,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to query users by timezone", err)
	}
	defer rows.Close()

	var results []*types.User
	for rows.Next() {
		u, scanErr := scanUserFromRows(rows)
		if scanErr != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan user row", scanErr)
		}
		results = append(results, u)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating user rows", err)
	}

	return results, nil
}

// DistinctTimezones returns the set of timezone identifiers currently in use
// across the user table. Used as the candidate-zone fallback when no explicit
// supported-timezone list is configured.
func (r *UserRepository) DistinctTimezones(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx,
		`SELECT DISTINCT timezone FROM users WHERE timezone <> '' ORDER BY timezone`,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to query distinct timezones", err)
	}
	defer rows.Close()

	var zones []string
	for rows.Next() {
		var zone string
		if err := rows.Scan(&zone); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan timezone row", err)
		}
		zones = append(zones, zone)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating timezone rows", err)
	}

	return zones, nil
}

// GetByID returns a single user or an AppError with ErrCodeNotFoundUser.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*types.User, error) {
	row := r.db.QueryRow(ctx,
		`SELECT id, full_name, email, birth_date, hire_date, timezone,
		        webhook_url, created_at, updated_at
		 FROM users
		 WHERE id = $1`,
		id,
	)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundUser, "user not found", nil)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to get user", err)
	}
	return u, nil
}

// scanUserFromRows scans a user row from a pgx.Rows result set.
func scanUserFromRows(rows pgx.Rows) (*types.User, error) {
	return scanUser(rows)
}

// scanUser scans one user row. Handles nullable columns with pointer types.
func scanUser(row pgx.Row) (*types.User, error) {
	var (
		u          types.User
		hireDate   *time.Time
		webhookURL *string
	)
	err := row.Scan(
		&u.ID,
		&u.FullName,
		&u.Email,
		&u.BirthDate,
		&hireDate,
		&u.Timezone,
		&webhookURL,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	u.HireDate = hireDate
	if webhookURL != nil {
		u.WebhookURL = *webhookURL
	}
	return &u, nil
}
