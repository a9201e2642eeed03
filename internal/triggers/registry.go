// Package triggers holds the pluggable recurring-event definitions and the
// registry the scan scheduler evaluates them through. Adding a new recurring
// event kind means implementing types.EventTrigger and registering it at
// startup; the scheduler itself never changes.
package triggers

import (
	"fmt"
	"time"

	"rooster/internal/types"
)

// Registry is the startup-time collection of event triggers. Registration
// happens once during process initialization; afterwards the registry is
// read-only and safe for concurrent use.
type Registry struct {
	order []types.EventKind
	byKey map[types.EventKind]types.EventTrigger
}

// NewRegistry creates an empty trigger registry.
func NewRegistry() *Registry {
	return &Registry{byKey: make(map[types.EventKind]types.EventTrigger)}
}

// Register adds a trigger. Registering two triggers for the same kind is a
// programming-contract violation and returns ErrCodeConflictDuplicateTrigger.
func (r *Registry) Register(trigger types.EventTrigger) error {
	kind := trigger.Kind()
	if _, exists := r.byKey[kind]; exists {
		return types.NewAppError(types.ErrCodeConflictDuplicateTrigger,
			fmt.Sprintf("trigger already registered for kind %q", kind), nil)
	}
	r.byKey[kind] = trigger
	r.order = append(r.order, kind)
	return nil
}

// MustRegister is Register for wiring code where a duplicate means a broken
// build, not a runtime condition.
func (r *Registry) MustRegister(trigger types.EventTrigger) {
	if err := r.Register(trigger); err != nil {
		panic(err)
	}
}

// Get returns the trigger for kind, or false when none is registered.
func (r *Registry) Get(kind types.EventKind) (types.EventTrigger, bool) {
	t, ok := r.byKey[kind]
	return t, ok
}

// All returns the registered triggers in registration order.
func (r *Registry) All() []types.EventTrigger {
	out := make([]types.EventTrigger, 0, len(r.order))
	for _, kind := range r.order {
		out = append(out, r.byKey[kind])
	}
	return out
}

// Evaluate runs every registered trigger against the user at the given
// instant and returns the ones that are due, in registration order.
func (r *Registry) Evaluate(now time.Time, user *types.User) []types.EventTrigger {
	var due []types.EventTrigger
	for _, kind := range r.order {
		trigger := r.byKey[kind]
		if trigger.ShouldTrigger(now, user) {
			due = append(due, trigger)
		}
	}
	return due
}
