// Package scheduler implements the periodic drivers of the pipeline: the
// timezone-aware scan that creates and enqueues event occurrences, the
// recovery sweeper that re-feeds stuck and failed entries, the retention
// purge, and the Runner that ticks them.
package scheduler

import (
	"context"
	"time"

	"github.com/google/uuid"

	"rooster/internal/timezone"
	"rooster/internal/triggers"
	"rooster/internal/types"
)

// ScanReport summarizes one scan tick for logging and tests.
type ScanReport struct {
	ZonesDue       []string
	ZonesSkipped   []string
	UsersEvaluated int
	EntriesCreated int
	Enqueued       int
	Duplicates     int
}

// ScanService drives the event scan. Every tick it resolves which timezones
// are at the target local hour, evaluates each zone's users against the
// trigger registry, idempotently records due occurrences, and enqueues
// dispatch work for the ones it created.
type ScanService struct {
	users    types.UserSource
	store    types.EventLogStore
	queue    types.DispatchQueue
	triggers *triggers.Registry

	targetHour int
	zones      []string

	clock  types.Clock
	logger types.Logger
}

// NewScanService creates a ScanService. zones is the candidate timezone set;
// empty means "fall back to the distinct timezones present in the user
// population" at each tick.
func NewScanService(
	users types.UserSource,
	store types.EventLogStore,
	queue types.DispatchQueue,
	registry *triggers.Registry,
	targetHour int,
	zones []string,
	clock types.Clock,
	logger types.Logger,
) *ScanService {
	if clock == nil {
		clock = types.RealClock{}
	}
	return &ScanService{
		users:      users,
		store:      store,
		queue:      queue,
		triggers:   registry,
		targetHour: targetHour,
		zones:      zones,
		clock:      clock,
		logger:     logger,
	}
}

// ScanTick runs one scan pass. The reference instant is captured once so
// every zone is resolved against the same "now". Zone-level failures are
// isolated: one zone's broken query must not starve the rest of the world.
func (s *ScanService) ScanTick(ctx context.Context) (ScanReport, error) {
	now := s.clock.Now()

	candidates := s.zones
	if len(candidates) == 0 {
		var err error
		candidates, err = s.users.DistinctTimezones(ctx)
		if err != nil {
			return ScanReport{}, err
		}
	}

	matched, skipped := timezone.ZonesAtLocalHour(now, s.targetHour, candidates)
	for _, zone := range skipped {
		s.logger.Warn("unrecognized timezone excluded from scan", "timezone", zone)
	}

	report := ScanReport{ZonesDue: matched, ZonesSkipped: skipped}
	for _, zone := range matched {
		if err := s.scanZone(ctx, now, zone, &report); err != nil {
			s.logger.Error("zone scan failed",
				"timezone", zone,
				"error", err,
			)
		}
	}

	s.logger.Info("scan tick complete",
		"zones_due", len(report.ZonesDue),
		"users_evaluated", report.UsersEvaluated,
		"entries_created", report.EntriesCreated,
		"enqueued", report.Enqueued,
		"duplicates", report.Duplicates,
	)
	return report, nil
}

// scanZone evaluates one due timezone. User-level failures are logged and
// skipped so a single bad record cannot block the batch.
func (s *ScanService) scanZone(ctx context.Context, now time.Time, zone string, report *ScanReport) error {
	users, err := s.users.FindUsersByTimezone(ctx, zone)
	if err != nil {
		return err
	}

	// The occurrence year belongs to the user's zone, not the server's;
	// around New Year the two disagree.
	year, err := timezone.LocalYear(now, zone)
	if err != nil {
		return err
	}

	for _, user := range users {
		report.UsersEvaluated++
		for _, trigger := range s.triggers.Evaluate(now, user) {
			if err := s.recordAndEnqueue(ctx, now, zone, year, user, trigger, report); err != nil {
				s.logger.Error("failed to record event occurrence",
					"user_id", user.ID,
					"event_kind", string(trigger.Kind()),
					"timezone", zone,
					"error", err,
				)
			}
		}
	}
	return nil
}

// recordAndEnqueue creates the idempotent entry for one due (user, trigger)
// pair and enqueues dispatch work for it. The message text is rendered here
// and cached in metadata so delivered content stays stable regardless of
// later trigger changes. A pre-existing entry is re-enqueued only while still
// pending (its original enqueue was lost); any other status means the entry's
// lifecycle has moved on and the dispatcher or sweeper owns it.
func (s *ScanService) recordAndEnqueue(ctx context.Context, now time.Time, zone string, year int, user *types.User, trigger types.EventTrigger, report *ScanReport) error {
	metadata := types.EventMetadata{
		"message":  trigger.BuildMessage(user),
		"timezone": zone,
	}

	entry, created, err := s.store.CreateIfAbsent(ctx, user.ID, trigger.Kind(), year, metadata)
	if err != nil {
		return err
	}
	if !created {
		report.Duplicates++
		if entry.Status != types.StatusPending {
			return nil
		}
	} else {
		report.EntriesCreated++
	}

	msg := types.DispatchMessage{
		EntryID:    entry.ID,
		Kind:       types.DispatchDeliver,
		TraceID:    "trace_" + uuid.NewString(),
		EnqueuedAt: now,
	}
	if err := s.queue.Publish(ctx, msg, 0); err != nil {
		// The entry stays pending; the recovery sweeper re-feeds it.
		return err
	}
	report.Enqueued++
	return nil
}
