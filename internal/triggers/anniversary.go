package triggers

import (
	"fmt"
	"time"

	"rooster/internal/timezone"
	"rooster/internal/types"
)

// AnniversaryTrigger fires on the month/day of the user's hire date,
// evaluated in the user's own timezone. Users without a recorded hire date
// never match.
type AnniversaryTrigger struct{}

var _ types.EventTrigger = (*AnniversaryTrigger)(nil)

// NewAnniversaryTrigger creates the work-anniversary trigger.
func NewAnniversaryTrigger() *AnniversaryTrigger {
	return &AnniversaryTrigger{}
}

// Kind returns the anniversary event kind.
func (*AnniversaryTrigger) Kind() types.EventKind {
	return types.EventAnniversary
}

// ShouldTrigger reports whether today, in the user's zone, is the user's
// work anniversary.
func (*AnniversaryTrigger) ShouldTrigger(now time.Time, user *types.User) bool {
	if user.HireDate == nil {
		return false
	}
	return timezone.IsAnnualEventToday(now, *user.HireDate, user.Timezone)
}

// BuildMessage renders the anniversary greeting.
func (*AnniversaryTrigger) BuildMessage(user *types.User) string {
	return fmt.Sprintf("Happy Anniversary, %s!", user.FullName)
}

// Schedule is the nominal daily cadence. Informational only.
func (*AnniversaryTrigger) Schedule() string {
	return "0 9 * * *"
}
