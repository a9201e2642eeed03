package core

import (
	"context"
	"time"

	"github.com/google/uuid"

	"rooster/internal/triggers"
	"rooster/internal/types"
)

// UserReader is the narrow user lookup the dispatcher needs to resolve the
// recipient and any per-user destination override.
type UserReader interface {
	GetByID(ctx context.Context, id string) (*types.User, error)
}

// Dispatcher executes one delivery attempt per dispatch message under an
// entry-scoped advisory lock.
//
// The sequence for every message:
//
//	acquire lock -> re-read entry -> status guard -> resolve message and
//	destination -> channel delivery -> mark sent/failed -> release lock
//
// The lock guarantees at most one concurrent attempt per entry; the status
// guard makes duplicate and redelivered messages no-ops; the re-read ensures
// decisions are made on current state, not on whatever was true at enqueue
// time.
type Dispatcher struct {
	store    types.EventLogStore
	users    UserReader
	lock     types.DispatchLock
	queue    types.DispatchQueue
	channels *ChannelRegistry
	triggers *triggers.Registry
	policy   RetryPolicy
	lockTTL  time.Duration
	metrics  DeliveryMetrics
	clock    types.Clock
	logger   types.Logger
}

// DispatcherDeps bundles the collaborators for NewDispatcher.
type DispatcherDeps struct {
	Store    types.EventLogStore
	Users    UserReader
	Lock     types.DispatchLock
	Queue    types.DispatchQueue
	Channels *ChannelRegistry
	Triggers *triggers.Registry
	Policy   RetryPolicy
	LockTTL  time.Duration
	Metrics  DeliveryMetrics
	Clock    types.Clock
	Logger   types.Logger
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(deps DispatcherDeps) *Dispatcher {
	if deps.LockTTL <= 0 {
		deps.LockTTL = 30 * time.Second
	}
	if deps.Metrics == nil {
		deps.Metrics = NoopDeliveryMetrics{}
	}
	if deps.Clock == nil {
		deps.Clock = types.RealClock{}
	}
	return &Dispatcher{
		store:    deps.Store,
		users:    deps.Users,
		lock:     deps.Lock,
		queue:    deps.Queue,
		channels: deps.Channels,
		triggers: deps.Triggers,
		policy:   deps.Policy,
		lockTTL:  deps.LockTTL,
		metrics:  deps.Metrics,
		clock:    deps.Clock,
		logger:   deps.Logger,
	}
}

// lockKey namespaces entry ids in the shared lock table.
func lockKey(entryID string) string { return "dispatch:" + entryID }

// Handle processes one dispatch message. A nil return acknowledges the
// message; errors are returned only for transient infrastructure failures
// where queue redelivery is the right recovery.
func (d *Dispatcher) Handle(ctx context.Context, msg types.DispatchMessage) error {
	log := d.logger.With(
		"entry_id", msg.EntryID,
		"kind", string(msg.Kind),
		"trace_id", msg.TraceID,
	)

	if !msg.EnqueuedAt.IsZero() {
		d.metrics.RecordQueueLag(ctx, d.clock.Now().Sub(msg.EnqueuedAt))
	}

	// The owner is minted per attempt, not per Dispatcher: workers sharing
	// one Dispatcher must contend with each other, and the lock's same-owner
	// re-acquire arm would otherwise let two of them in at once.
	owner := uuid.NewString()
	acquired, err := d.lock.TryAcquire(ctx, lockKey(msg.EntryID), owner, d.lockTTL)
	if err != nil {
		return err
	}
	if !acquired {
		// Another worker holds the entry. Ack and move on: whichever holder
		// finishes will have settled the entry's state.
		log.Info("entry locked by another worker, skipping")
		return nil
	}
	defer func() {
		// Release must survive a cancelled handler context; TTL expiry is
		// the backstop if even this fails.
		if err := d.lock.Release(context.WithoutCancel(ctx), lockKey(msg.EntryID), owner); err != nil {
			log.Warn("failed to release dispatch lock", "error", err)
		}
	}()

	entry, err := d.store.GetByID(ctx, msg.EntryID)
	if err != nil {
		if types.CodeOf(err) == types.ErrCodeNotFoundEventLog {
			// A job referencing a missing entry can never succeed; drop it.
			log.Error("dispatch message references missing entry, dropping")
			return nil
		}
		return err
	}

	if entry.Status == types.StatusSent {
		log.Info("entry already sent, duplicate dispatch ignored")
		return nil
	}

	return d.deliver(ctx, log, msg, entry)
}

// deliver runs the channel call for a locked, unsent entry and settles its
// status.
func (d *Dispatcher) deliver(ctx context.Context, log types.Logger, msg types.DispatchMessage, entry *types.EventLogEntry) error {
	user, message, err := d.resolveContent(ctx, entry)
	if err != nil {
		if types.CodeOf(err) == types.ErrCodeNotFoundUser {
			// The user vanished between scan and dispatch. Terminal: record
			// and drop rather than retry what cannot recover.
			log.Error("recipient user no longer exists, marking failed")
			if uerr := d.store.UpdateStatus(ctx, entry.ID, types.StatusFailed, "user_not_found"); uerr != nil {
				return uerr
			}
			return nil
		}
		return err
	}

	channel, err := d.channels.Default()
	if err != nil {
		if types.IsSkip(err) {
			// No deliverable channel is a deployment problem; redelivery
			// cannot fix it. Record and drop.
			log.Error("no default channel available, marking failed", "error", err)
			if uerr := d.store.UpdateStatus(ctx, entry.ID, types.StatusFailed, string(types.CodeOf(err))); uerr != nil {
				return uerr
			}
			return nil
		}
		return err
	}

	payload := types.DeliveryPayload{
		Message:   message,
		Timestamp: d.clock.Now().Format(time.RFC3339),
		Recipient: types.Recipient{
			UserID:     entry.UserID,
			EventKind:  entry.EventKind,
			PeriodYear: entry.PeriodYear,
		},
		Destination: destinationFor(channel.Kind(), user),
	}

	start := d.clock.Now()
	result, err := channel.Deliver(ctx, payload)
	d.metrics.RecordLatency(ctx, channel.Kind(), d.clock.Now().Sub(start))
	if err != nil {
		// Contract errors (marshal failures and kin), not delivery outcomes.
		return err
	}

	if result.Delivered {
		if err := d.store.UpdateStatus(ctx, entry.ID, types.StatusSent, ""); err != nil {
			// Delivered but not recorded: redelivery will re-read the row
			// and the status guard plus this update retry converge.
			return err
		}
		d.metrics.RecordDelivery(ctx, channel.Kind(), MetricResultSuccess)
		log.Info("notification delivered",
			"channel", string(channel.Kind()),
			"user_id", entry.UserID,
		)
		return nil
	}

	skip := types.IsSkipCode(result.Code)
	if skip {
		d.metrics.RecordDelivery(ctx, channel.Kind(), MetricResultSkipped)
	} else {
		d.metrics.RecordDelivery(ctx, channel.Kind(), MetricResultFailure)
	}
	log.Warn("delivery failed",
		"channel", string(channel.Kind()),
		"reason", result.FailureReason,
		"code", string(result.Code),
	)

	if err := d.store.UpdateStatus(ctx, entry.ID, types.StatusFailed, result.FailureReason); err != nil {
		return err
	}

	// Tier-one burst retry applies only to first-send jobs; sweeper jobs are
	// single-shot and the next sweep cycle owns any further attempts.
	// Configuration skips are deterministic and re-attempting them is noise.
	if msg.Kind == types.DispatchDeliver && !skip && !d.policy.Exhausted(msg.RetryCount) {
		retry := msg
		retry.EnqueuedAt = d.clock.Now()
		delay := d.policy.Backoff(msg.RetryCount - 1)
		if err := d.queue.Publish(ctx, retry, delay); err != nil {
			// The sweeper will pick the failed entry up later.
			log.Error("failed to re-publish for retry", "error", err)
			return nil
		}
		log.Info("re-published for retry",
			"attempt", msg.RetryCount,
			"delay", delay.String(),
		)
	}

	return nil
}

// resolveContent loads the user and picks the message text: the snapshot
// cached at entry creation wins, with trigger re-rendering as the fallback
// for entries created without one.
func (d *Dispatcher) resolveContent(ctx context.Context, entry *types.EventLogEntry) (*types.User, string, error) {
	user, err := d.users.GetByID(ctx, entry.UserID)
	if err != nil {
		return nil, "", err
	}

	message := entry.CachedMessage()
	if message == "" && d.triggers != nil {
		if trigger, ok := d.triggers.Get(entry.EventKind); ok {
			message = trigger.BuildMessage(user)
		}
	}
	return user, message, nil
}

// destinationFor resolves the per-user destination override for the channel,
// or "" to use the channel's configured default.
func destinationFor(kind types.ChannelType, user *types.User) string {
	switch kind {
	case types.ChannelWebhook:
		return user.WebhookURL
	case types.ChannelEmail:
		return user.Email
	default:
		return ""
	}
}
