package triggers

import (
	"fmt"
	"time"

	"rooster/internal/timezone"
	"rooster/internal/types"
)

// BirthdayTrigger fires on the month/day of the user's birth date, evaluated
// in the user's own timezone.
type BirthdayTrigger struct{}

var _ types.EventTrigger = (*BirthdayTrigger)(nil)

// NewBirthdayTrigger creates the birthday trigger.
func NewBirthdayTrigger() *BirthdayTrigger {
	return &BirthdayTrigger{}
}

// Kind returns the birthday event kind.
func (*BirthdayTrigger) Kind() types.EventKind {
	return types.EventBirthday
}

// ShouldTrigger reports whether today, in the user's zone, is the user's
// birthday. Users with a zero birth date or an unrecognized zone never match.
func (*BirthdayTrigger) ShouldTrigger(now time.Time, user *types.User) bool {
	return timezone.IsAnnualEventToday(now, user.BirthDate, user.Timezone)
}

// BuildMessage renders the birthday greeting.
func (*BirthdayTrigger) BuildMessage(user *types.User) string {
	return fmt.Sprintf("Hey, %s it's your birthday", user.FullName)
}

// Schedule is the nominal daily cadence. Informational only: firing is
// driven by the scan tick and the timezone resolver.
func (*BirthdayTrigger) Schedule() string {
	return "0 9 * * *"
}
