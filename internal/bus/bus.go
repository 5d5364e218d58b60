// Package bus fans typed notification events out to the live delivery
// channels registered for a participant. It is present-tense delivery only:
// no queuing, no persistence, silent drop when nobody is listening.
package bus

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/markdotcom5/markmvp5-sub000/internal/domain/model"
	"github.com/markdotcom5/markmvp5-sub000/pkg/logger"
	"github.com/markdotcom5/markmvp5-sub000/pkg/metrics"
)

// Channel is one live delivery endpoint, e.g. a single open client
// connection. A participant may hold several at once.
type Channel interface {
	// ID identifies the registration for unsubscribe.
	ID() string
	// Send pushes one serialized event. Implementations must be safe for
	// sequential calls from the bus.
	Send(ctx context.Context, payload []byte) error
}

// registration holds a participant's channels. Its mutex serializes
// deliveries so per-channel order matches publish order even with
// concurrent publishers.
type registration struct {
	mu       sync.Mutex
	channels []Channel
}

// Bus maps participant ids to live channels and delivers events to them.
type Bus struct {
	mu            sync.RWMutex
	registrations map[string]*registration
	channelCount  int

	log logger.Logger
}

// Option applies a configuration option to the Bus.
type Option func(*Bus)

// WithLogger sets a custom logger.
func WithLogger(log logger.Logger) Option {
	return func(b *Bus) {
		if log != nil {
			b.log = log
		}
	}
}

// New creates an empty bus.
func New(opts ...Option) *Bus {
	b := &Bus{registrations: make(map[string]*registration)}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe registers a channel for the participant.
func (b *Bus) Subscribe(participantID string, ch Channel) {
	b.mu.Lock()
	reg, ok := b.registrations[participantID]
	if !ok {
		reg = &registration{}
		b.registrations[participantID] = reg
	}
	b.channelCount++
	count := b.channelCount
	b.mu.Unlock()

	reg.mu.Lock()
	reg.channels = append(reg.channels, ch)
	reg.mu.Unlock()

	metrics.UpdateLiveChannels(count)
}

// Unsubscribe removes one registration. Removing the last channel leaves an
// empty registration in place; unsubscribing an unknown channel is a no-op.
func (b *Bus) Unsubscribe(participantID string, ch Channel) {
	b.mu.Lock()
	reg, ok := b.registrations[participantID]
	b.mu.Unlock()
	if !ok {
		return
	}

	removed := false
	reg.mu.Lock()
	for i, c := range reg.channels {
		if c.ID() == ch.ID() {
			reg.channels = append(reg.channels[:i], reg.channels[i+1:]...)
			removed = true
			break
		}
	}
	reg.mu.Unlock()

	if removed {
		b.mu.Lock()
		b.channelCount--
		count := b.channelCount
		b.mu.Unlock()
		metrics.UpdateLiveChannels(count)
	}
}

// Publish delivers the event to every channel currently registered for the
// participant, in registration order. A failing channel is logged and
// skipped; it never blocks sibling channels and never raises to the caller.
func (b *Bus) Publish(ctx context.Context, participantID string, ev model.NotificationEvent) {
	payload, err := json.Marshal(ev)
	if err != nil {
		if b.log != nil {
			b.log.Error(ctx, "failed to encode notification event", logger.Error(err))
		}
		return
	}
	metrics.RecordEventPublished(string(ev.Type))

	b.mu.RLock()
	reg, ok := b.registrations[participantID]
	b.mu.RUnlock()
	if !ok {
		return
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()
	for _, ch := range reg.channels {
		if err := ch.Send(ctx, payload); err != nil {
			metrics.RecordDeliveryDropped()
			if b.log != nil {
				b.log.Warn(ctx, "dropped delivery to channel",
					logger.String("participant", participantID),
					logger.String("channel", ch.ID()),
					logger.Error(err),
				)
			}
		}
	}
}

// ChannelCount returns the number of live channels for a participant.
func (b *Bus) ChannelCount(participantID string) int {
	b.mu.RLock()
	reg, ok := b.registrations[participantID]
	b.mu.RUnlock()
	if !ok {
		return 0
	}
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return len(reg.channels)
}

// TotalChannels returns the number of live channels across all participants.
func (b *Bus) TotalChannels() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.channelCount
}
