package core

import (
	"fmt"

	"rooster/internal/types"
)

// ChannelRegistry holds the notification channels available to the
// dispatcher, plus the default channel used when an entry does not select
// one. Registration happens at startup; afterwards the registry is read-only
// and safe for concurrent use.
type ChannelRegistry struct {
	channels    map[types.ChannelType]types.NotificationChannel
	defaultKind types.ChannelType
}

// NewChannelRegistry creates a registry whose Default() resolves to
// defaultKind once a channel of that kind is registered.
func NewChannelRegistry(defaultKind types.ChannelType) *ChannelRegistry {
	return &ChannelRegistry{
		channels:    make(map[types.ChannelType]types.NotificationChannel),
		defaultKind: defaultKind,
	}
}

// Register adds a channel. A second channel of the same kind is a
// programming-contract violation and returns ErrCodeConflictDuplicateChannel.
func (r *ChannelRegistry) Register(channel types.NotificationChannel) error {
	kind := channel.Kind()
	if _, exists := r.channels[kind]; exists {
		return types.NewAppError(types.ErrCodeConflictDuplicateChannel,
			fmt.Sprintf("channel already registered for kind %q", kind), nil)
	}
	r.channels[kind] = channel
	return nil
}

// MustRegister is Register for wiring code where a duplicate means a broken
// build.
func (r *ChannelRegistry) MustRegister(channel types.NotificationChannel) {
	if err := r.Register(channel); err != nil {
		panic(err)
	}
}

// Get returns the channel for kind, or ErrCodeChannelUnknown.
func (r *ChannelRegistry) Get(kind types.ChannelType) (types.NotificationChannel, error) {
	channel, ok := r.channels[kind]
	if !ok {
		return nil, types.NewAppError(types.ErrCodeChannelUnknown,
			fmt.Sprintf("no channel registered for kind %q", kind), nil)
	}
	return channel, nil
}

// Default returns the configured default channel. When no channel of the
// default kind was registered the deployment has no deliverable route, which
// is a configuration skip (ErrCodeChannelNotConfigured), not an unknown kind.
func (r *ChannelRegistry) Default() (types.NotificationChannel, error) {
	channel, ok := r.channels[r.defaultKind]
	if !ok {
		return nil, types.NewAppError(types.ErrCodeChannelNotConfigured,
			fmt.Sprintf("default channel %q not registered", r.defaultKind), nil)
	}
	return channel, nil
}
