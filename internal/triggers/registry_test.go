package triggers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rooster/internal/types"
)

func mustTime(t *testing.T, value string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, value)
	require.NoError(t, err)
	return ts
}

func timePtr(ts time.Time) *time.Time { return &ts }

func TestRegistry_RejectsDuplicateKind(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(NewBirthdayTrigger()))

	err := reg.Register(NewBirthdayTrigger())
	require.Error(t, err)
	assert.Equal(t, types.ErrCodeConflictDuplicateTrigger, types.CodeOf(err))
	assert.Len(t, reg.All(), 1)
}

func TestRegistry_EvaluateInRegistrationOrder(t *testing.T) {
	reg := NewRegistry()
	reg.MustRegister(NewAnniversaryTrigger())
	reg.MustRegister(NewBirthdayTrigger())

	// Birthday and hire date on the same calendar day, so both triggers
	// are due; registration order must be preserved in the result.
	user := &types.User{
		FullName:  "Ada Lovelace",
		BirthDate: mustTime(t, "1990-06-15T00:00:00Z"),
		HireDate:  timePtr(mustTime(t, "2018-06-15T00:00:00Z")),
		Timezone:  "UTC",
	}
	now := mustTime(t, "2026-06-15T09:00:00Z")

	due := reg.Evaluate(now, user)
	require.Len(t, due, 2)
	assert.Equal(t, types.EventAnniversary, due[0].Kind())
	assert.Equal(t, types.EventBirthday, due[1].Kind())
}

func TestRegistry_Get(t *testing.T) {
	reg := NewRegistry()
	reg.MustRegister(NewBirthdayTrigger())

	got, ok := reg.Get(types.EventBirthday)
	require.True(t, ok)
	assert.Equal(t, types.EventBirthday, got.Kind())

	_, ok = reg.Get(types.EventAnniversary)
	assert.False(t, ok)
}

func TestBirthdayTrigger(t *testing.T) {
	trigger := NewBirthdayTrigger()
	user := &types.User{
		FullName:  "Grace Hopper",
		BirthDate: mustTime(t, "1906-12-09T00:00:00Z"),
		Timezone:  "America/New_York",
	}

	// 17:00 UTC on Dec 9 is Dec 9 noon in New York.
	assert.True(t, trigger.ShouldTrigger(mustTime(t, "2026-12-09T17:00:00Z"), user))
	// 03:00 UTC on Dec 9 is still Dec 8 in New York.
	assert.False(t, trigger.ShouldTrigger(mustTime(t, "2026-12-09T03:00:00Z"), user))

	assert.Equal(t, "Hey, Grace Hopper it's your birthday", trigger.BuildMessage(user))
}

func TestAnniversaryTrigger(t *testing.T) {
	trigger := NewAnniversaryTrigger()
	now := mustTime(t, "2026-03-02T09:00:00Z")

	hired := &types.User{
		FullName: "Alan Turing",
		HireDate: timePtr(mustTime(t, "2020-03-02T00:00:00Z")),
		Timezone: "UTC",
	}
	assert.True(t, trigger.ShouldTrigger(now, hired))
	assert.Equal(t, "Happy Anniversary, Alan Turing!", trigger.BuildMessage(hired))

	// No hire date recorded: never due.
	unhired := &types.User{FullName: "Alan Turing", Timezone: "UTC"}
	assert.False(t, trigger.ShouldTrigger(now, unhired))
}
