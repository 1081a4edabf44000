package events

import (
	"context"
	"log/slog"
	"sync"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/sgrtune/internal/modules/music_player/application/ports"
	"github.com/sglre6355/sgrtune/internal/modules/music_player/domain"
)

// PlaybackController reacts to what the audio engine reports.
type PlaybackController interface {
	HandleTrackEnded(ctx context.Context, event ports.TrackEndedEvent)
	HandlePlaybackError(ctx context.Context, event ports.TrackExceptionEvent)
}

// StateViewer gives serialized access to a guild's player state.
type StateViewer interface {
	View(guildID snowflake.ID, fn func(state *domain.PlayerState)) error
}

// consume drains ch until ctx is done, done is closed or ch is closed.
func consume[E any](ctx context.Context, done <-chan struct{}, ch <-chan E, handle func(E)) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			handle(event)
		}
	}
}

// PlaybackEventHandler forwards engine events to the playback controller.
// It listens for TrackEnded and TrackException events to drive the timeline.
type PlaybackEventHandler struct {
	controller PlaybackController
	bus        *Bus

	wg   sync.WaitGroup
	done chan struct{}
}

// NewPlaybackEventHandler creates a new PlaybackEventHandler.
func NewPlaybackEventHandler(controller PlaybackController, bus *Bus) *PlaybackEventHandler {
	return &PlaybackEventHandler{
		controller: controller,
		bus:        bus,
		done:       make(chan struct{}),
	}
}

// Start begins listening for events in background goroutines.
func (h *PlaybackEventHandler) Start(ctx context.Context) {
	h.wg.Add(2)

	go func() {
		defer h.wg.Done()
		consume(ctx, h.done, h.bus.TrackEnded(), func(event TrackEndedEvent) {
			slog.Debug("track ended",
				"guild", event.GuildID,
				"track", event.TrackID,
				"reason", event.Reason,
			)
			h.controller.HandleTrackEnded(ctx, event)
		})
	}()

	go func() {
		defer h.wg.Done()
		consume(ctx, h.done, h.bus.TrackException(), func(event TrackExceptionEvent) {
			slog.Debug("track exception",
				"guild", event.GuildID,
				"track", event.TrackID,
				"message", event.Message,
			)
			h.controller.HandlePlaybackError(ctx, event)
		})
	}()

	slog.Debug("playback event handler started")
}

// Stop stops the event handler and waits for goroutines to finish.
func (h *PlaybackEventHandler) Stop() {
	close(h.done)
	h.wg.Wait()
	slog.Debug("playback event handler stopped")
}

// NotificationEventHandler handles events related to Discord notifications.
// It listens for PlaybackStarted, PlaybackFinished and PlaybackError events.
type NotificationEventHandler struct {
	notifier ports.NotificationSender
	states   StateViewer
	bus      *Bus

	wg   sync.WaitGroup
	done chan struct{}
}

// NewNotificationEventHandler creates a new NotificationEventHandler.
func NewNotificationEventHandler(
	notifier ports.NotificationSender,
	states StateViewer,
	bus *Bus,
) *NotificationEventHandler {
	return &NotificationEventHandler{
		notifier: notifier,
		states:   states,
		bus:      bus,
		done:     make(chan struct{}),
	}
}

// Start begins listening for events in background goroutines.
func (h *NotificationEventHandler) Start(ctx context.Context) {
	h.wg.Add(3)

	go func() {
		defer h.wg.Done()
		consume(ctx, h.done, h.bus.PlaybackStarted(), func(event PlaybackStartedEvent) {
			h.handlePlaybackStarted(ctx, event)
		})
	}()

	go func() {
		defer h.wg.Done()
		consume(ctx, h.done, h.bus.PlaybackFinished(), func(event PlaybackFinishedEvent) {
			h.handlePlaybackFinished(ctx, event)
		})
	}()

	go func() {
		defer h.wg.Done()
		consume(ctx, h.done, h.bus.PlaybackError(), func(event PlaybackErrorEvent) {
			h.handlePlaybackError(ctx, event)
		})
	}()

	slog.Debug("notification event handler started")
}

// Stop stops the event handler and waits for goroutines to finish.
func (h *NotificationEventHandler) Stop() {
	close(h.done)
	h.wg.Wait()
	slog.Debug("notification event handler stopped")
}

func isCurrent(state *domain.PlayerState, id domain.TrackID) bool {
	current := state.CurrentTrackID()
	return current != nil && *current == id
}

func (h *NotificationEventHandler) handlePlaybackStarted(ctx context.Context, event PlaybackStartedEvent) {
	// Items that were replaced before the event got here get no message.
	stillCurrent := false
	if err := h.states.View(event.GuildID, func(state *domain.PlayerState) {
		stillCurrent = isCurrent(state, event.Track.ID)
	}); err != nil || !stillCurrent {
		slog.Debug("skipping now playing notification, track no longer current",
			"guild", event.GuildID,
			"track", event.Track.ID,
		)
		return
	}

	info := event.Info
	messageID, err := h.notifier.SendNowPlaying(ctx, event.NotificationChannelID, &info)
	if err != nil {
		slog.Error("failed to send now playing notification",
			"guild", event.GuildID,
			"error", err,
		)
		return
	}

	var stale *domain.NowPlayingMessage
	kept := false
	_ = h.states.View(event.GuildID, func(state *domain.PlayerState) {
		if !isCurrent(state, event.Track.ID) {
			return
		}
		kept = true
		if previous := state.GetNowPlayingMessage(); previous != nil && previous.MessageID != messageID {
			stale = previous
		}
		state.SetNowPlayingMessage(event.NotificationChannelID, messageID)
	})

	// The item moved on while the message was in flight.
	if !kept {
		stale = &domain.NowPlayingMessage{ChannelID: event.NotificationChannelID, MessageID: messageID}
	}
	if stale != nil {
		h.deleteMessage(ctx, event.GuildID, stale.ChannelID, stale.MessageID)
	}
}

func (h *NotificationEventHandler) handlePlaybackFinished(ctx context.Context, event PlaybackFinishedEvent) {
	if event.LastMessageID == nil {
		return
	}

	h.deleteMessage(ctx, event.GuildID, event.NotificationChannelID, *event.LastMessageID)

	// Only clear the message info if it matches the one just deleted, so a newer
	// message stored meanwhile survives.
	_ = h.states.View(event.GuildID, func(state *domain.PlayerState) {
		current := state.GetNowPlayingMessage()
		if current != nil && current.MessageID == *event.LastMessageID {
			state.ClearNowPlayingMessage()
		}
	})
}

func (h *NotificationEventHandler) handlePlaybackError(ctx context.Context, event PlaybackErrorEvent) {
	if event.NotificationChannelID == 0 {
		return
	}

	message := event.Message
	if event.Skipped {
		message += " Skipping to the next track."
	}

	if err := h.notifier.SendError(ctx, event.NotificationChannelID, message); err != nil {
		slog.Warn("failed to send playback error notification",
			"guild", event.GuildID,
			"track", event.TrackID,
			"error", err,
		)
	}
}

func (h *NotificationEventHandler) deleteMessage(ctx context.Context, guildID, channelID, messageID snowflake.ID) {
	slog.Debug("deleting now playing message",
		"guild", guildID,
		"message_id", messageID,
	)

	if err := h.notifier.DeleteMessage(ctx, channelID, messageID); err != nil {
		slog.Warn("failed to delete now playing message",
			"guild", guildID,
			"error", err,
		)
	}
}
