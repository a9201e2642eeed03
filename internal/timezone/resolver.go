// Package timezone implements the pure timezone resolution helpers that
// drive the scan schedule: which zones are currently at the target local
// hour, whether an annual event falls on today's local date, and what the
// current local year is in a given zone.
//
// All functions take the reference instant explicitly so that every zone in
// one resolution pass is compared against the same "now". Invalid zone
// identifiers are treated as "no match", never as fatal errors.
package timezone

import (
	"time"

	"rooster/internal/types"
)

// ZonesAtLocalHour returns the subset of candidate zones whose local
// wall-clock hour at the given instant equals hour. Candidate order is
// preserved. Unresolvable zone identifiers are skipped and reported through
// the returned skipped slice so the caller can log them.
func ZonesAtLocalHour(now time.Time, hour int, candidates []string) (matched []string, skipped []string) {
	for _, zone := range candidates {
		loc, err := time.LoadLocation(zone)
		if err != nil {
			skipped = append(skipped, zone)
			continue
		}
		if now.In(loc).Hour() == hour {
			matched = append(matched, zone)
		}
	}
	return matched, skipped
}

// LocalYear returns the current year in zone at the given instant. The year
// of a recurring event must be computed in the user's zone, not the server's,
// to avoid off-by-one errors around the New Year boundary. An unresolvable
// zone returns an AppError with ErrCodeValidationInvalidTimezone.
func LocalYear(now time.Time, zone string) (int, error) {
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return 0, types.NewAppError(types.ErrCodeValidationInvalidTimezone,
			"unrecognized timezone "+zone, err)
	}
	return now.In(loc).Year(), nil
}

// IsAnnualEventToday reports whether the month/day of reference matches
// today's local date in zone at the given instant. A zero reference or an
// unresolvable zone yields false, never an error: a user with bad data is
// excluded from the scan rather than failing it.
//
// Feb 29 anniversaries match Feb 28 in non-leap years so leap-day users are
// not silently skipped three years out of four.
func IsAnnualEventToday(now time.Time, reference time.Time, zone string) bool {
	if reference.IsZero() {
		return false
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return false
	}
	local := now.In(loc)
	month, day := reference.Month(), reference.Day()
	if month == time.February && day == 29 && !isLeapYear(local.Year()) {
		month, day = time.February, 28
	}
	return local.Month() == month && local.Day() == day
}

func isLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}
