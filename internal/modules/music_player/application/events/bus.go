package events

import (
	"log/slog"
	"sync"

	"github.com/sglre6355/sgrtune/internal/modules/music_player/application/ports"
)

// Event types carried by the bus, shared with the publishers in ports.
type (
	TrackEndedEvent       = ports.TrackEndedEvent
	TrackExceptionEvent   = ports.TrackExceptionEvent
	PlaybackStartedEvent  = ports.PlaybackStartedEvent
	PlaybackFinishedEvent = ports.PlaybackFinishedEvent
	PlaybackErrorEvent    = ports.PlaybackErrorEvent
)

// DefaultEventBufferSize is the default buffer size for event channels.
const DefaultEventBufferSize = 100

// Compile-time check that Bus implements ports.EventPublisher.
var _ ports.EventPublisher = (*Bus)(nil)

// Bus provides a channel-based event bus for async event handling.
type Bus struct {
	trackEnded       chan TrackEndedEvent
	trackException   chan TrackExceptionEvent
	playbackStarted  chan PlaybackStartedEvent
	playbackFinished chan PlaybackFinishedEvent
	playbackError    chan PlaybackErrorEvent

	closed bool
	mu     sync.RWMutex
}

// NewBus creates a new Bus with the given buffer size.
func NewBus(bufferSize int) *Bus {
	if bufferSize <= 0 {
		bufferSize = DefaultEventBufferSize
	}

	return &Bus{
		trackEnded:       make(chan TrackEndedEvent, bufferSize),
		trackException:   make(chan TrackExceptionEvent, bufferSize),
		playbackStarted:  make(chan PlaybackStartedEvent, bufferSize),
		playbackFinished: make(chan PlaybackFinishedEvent, bufferSize),
		playbackError:    make(chan PlaybackErrorEvent, bufferSize),
	}
}

// publish sends event on ch without blocking. If the buffer is full the event
// is dropped with a warning.
func publish[E any](b *Bus, ch chan E, event E, eventType string, guildID any) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		slog.Warn("attempted to publish to closed event bus", "type", eventType)
		return
	}

	select {
	case ch <- event:
		slog.Debug("published event", "type", eventType, "guild", guildID)
	default:
		slog.Warn("event buffer full, dropping event", "type", eventType, "guild", guildID)
	}
}

// PublishTrackEnded publishes a TrackEndedEvent.
func (b *Bus) PublishTrackEnded(event TrackEndedEvent) {
	publish(b, b.trackEnded, event, "TrackEnded", event.GuildID)
}

// PublishTrackException publishes a TrackExceptionEvent.
func (b *Bus) PublishTrackException(event TrackExceptionEvent) {
	publish(b, b.trackException, event, "TrackException", event.GuildID)
}

// PublishPlaybackStarted publishes a PlaybackStartedEvent.
func (b *Bus) PublishPlaybackStarted(event PlaybackStartedEvent) {
	publish(b, b.playbackStarted, event, "PlaybackStarted", event.GuildID)
}

// PublishPlaybackFinished publishes a PlaybackFinishedEvent.
func (b *Bus) PublishPlaybackFinished(event PlaybackFinishedEvent) {
	publish(b, b.playbackFinished, event, "PlaybackFinished", event.GuildID)
}

// PublishPlaybackError publishes a PlaybackErrorEvent.
func (b *Bus) PublishPlaybackError(event PlaybackErrorEvent) {
	publish(b, b.playbackError, event, "PlaybackError", event.GuildID)
}

// TrackEnded returns the channel for receiving TrackEndedEvents.
func (b *Bus) TrackEnded() <-chan TrackEndedEvent {
	return b.trackEnded
}

// TrackException returns the channel for receiving TrackExceptionEvents.
func (b *Bus) TrackException() <-chan TrackExceptionEvent {
	return b.trackException
}

// PlaybackStarted returns the channel for receiving PlaybackStartedEvents.
func (b *Bus) PlaybackStarted() <-chan PlaybackStartedEvent {
	return b.playbackStarted
}

// PlaybackFinished returns the channel for receiving PlaybackFinishedEvents.
func (b *Bus) PlaybackFinished() <-chan PlaybackFinishedEvent {
	return b.playbackFinished
}

// PlaybackError returns the channel for receiving PlaybackErrorEvents.
func (b *Bus) PlaybackError() <-chan PlaybackErrorEvent {
	return b.playbackError
}

// Close closes all event channels. Publishing after Close is a no-op.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true

	close(b.trackEnded)
	close(b.trackException)
	close(b.playbackStarted)
	close(b.playbackFinished)
	close(b.playbackError)

	slog.Debug("event bus closed")
}
