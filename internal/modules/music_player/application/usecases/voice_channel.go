package usecases

import (
	"context"
	"log/slog"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/sgrtune/internal/modules/music_player/application/ports"
	"github.com/sglre6355/sgrtune/internal/modules/music_player/domain"
)

// QueueLifecycle loads a guild's queues when its engine starts and flushes them
// when it goes away. View gives access to the state under the guild lock.
type QueueLifecycle interface {
	StateViewer
	InitQueue(ctx context.Context, guildID snowflake.ID) error
	DeInitQueue(ctx context.Context, guildID snowflake.ID)
}

// JoinInput contains the input for the Join use case.
type JoinInput struct {
	GuildID               snowflake.ID
	UserID                snowflake.ID
	NotificationChannelID snowflake.ID
	VoiceChannelID        snowflake.ID // Optional: specific channel to join (0 means use user's channel)
}

// JoinOutput contains the result of the Join use case.
type JoinOutput struct {
	VoiceChannelID snowflake.ID
}

// LeaveInput contains the input for the Leave use case.
type LeaveInput struct {
	GuildID snowflake.ID
}

// BotVoiceStateChangeInput contains the input for handling bot voice state changes.
type BotVoiceStateChangeInput struct {
	GuildID      snowflake.ID
	NewChannelID *snowflake.ID // nil means disconnected
}

// VoiceChannelService handles voice channel operations.
type VoiceChannelService struct {
	repo            domain.PlayerStateRepository
	voiceConnection ports.VoiceConnection
	voiceState      ports.VoiceStateProvider
	lifecycle       QueueLifecycle
	publisher       ports.EventPublisher
	boardOptions    []domain.BoardOption
}

// NewVoiceChannelService creates a new VoiceChannelService.
// boardOptions configure the queue board of every new player.
func NewVoiceChannelService(
	repo domain.PlayerStateRepository,
	voiceConnection ports.VoiceConnection,
	voiceState ports.VoiceStateProvider,
	lifecycle QueueLifecycle,
	publisher ports.EventPublisher,
	boardOptions ...domain.BoardOption,
) *VoiceChannelService {
	return &VoiceChannelService{
		repo:            repo,
		voiceConnection: voiceConnection,
		voiceState:      voiceState,
		lifecycle:       lifecycle,
		publisher:       publisher,
		boardOptions:    boardOptions,
	}
}

// Join joins the bot to a voice channel and restores the guild's queues.
func (v *VoiceChannelService) Join(ctx context.Context, input JoinInput) (*JoinOutput, error) {
	var connectedTo snowflake.ID
	connected := v.lifecycle.View(input.GuildID, func(state *domain.PlayerState) {
		connectedTo = state.GetVoiceChannelID()
	}) == nil

	// Determine which channel to join
	voiceChannelID := input.VoiceChannelID
	if voiceChannelID == 0 {
		userChannel, ok, err := v.voiceState.UserVoiceChannel(input.GuildID, input.UserID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrUserNotInVoice
		}
		voiceChannelID = userChannel
	}
	output := &JoinOutput{VoiceChannelID: voiceChannelID}

	// Already connected to the same channel: just update the notification channel
	if connected && connectedTo == voiceChannelID {
		err := v.lifecycle.View(input.GuildID, func(state *domain.PlayerState) {
			state.SetNotificationChannelID(input.NotificationChannelID)
		})
		if err == nil {
			return output, nil
		}
	}

	if err := v.voiceConnection.JoinChannel(ctx, input.GuildID, voiceChannelID); err != nil {
		return nil, err
	}

	if connected {
		// Moving channels keeps the board
		err := v.lifecycle.View(input.GuildID, func(state *domain.PlayerState) {
			state.SetVoiceChannelID(voiceChannelID)
			state.SetNotificationChannelID(input.NotificationChannelID)
		})
		if err == nil {
			return output, nil
		}
		// The state was torn down while joining; start over with a new board.
	}

	state := domain.NewPlayerState(
		input.GuildID,
		voiceChannelID,
		input.NotificationChannelID,
		v.boardOptions...,
	)
	v.repo.Save(state)

	if err := v.lifecycle.InitQueue(ctx, input.GuildID); err != nil {
		slog.Warn("failed to restore queues", "guild", input.GuildID, "error", err)
	}

	return output, nil
}

// HandleBotVoiceStateChange handles external voice state changes (bot moved or disconnected).
func (v *VoiceChannelService) HandleBotVoiceStateChange(ctx context.Context, input BotVoiceStateChangeInput) {
	if input.NewChannelID == nil {
		v.teardown(ctx, input.GuildID)
		return
	}

	// Bot was moved to a different channel
	_ = v.lifecycle.View(input.GuildID, func(state *domain.PlayerState) {
		state.SetVoiceChannelID(*input.NewChannelID)
	})
}

// Leave leaves the voice channel, flushes the queues and deletes the player state.
func (v *VoiceChannelService) Leave(ctx context.Context, input LeaveInput) error {
	if v.repo.Get(input.GuildID) == nil {
		return ErrNotConnected
	}

	if err := v.voiceConnection.LeaveChannel(ctx, input.GuildID); err != nil {
		return err
	}

	v.teardown(ctx, input.GuildID)
	return nil
}

// teardown deletes the "Now Playing" message, flushes the board and drops the state.
func (v *VoiceChannelService) teardown(ctx context.Context, guildID snowflake.ID) {
	var msg *domain.NowPlayingMessage
	err := v.lifecycle.View(guildID, func(state *domain.PlayerState) {
		msg = state.GetNowPlayingMessage()
	})
	if err != nil {
		return
	}

	if msg != nil && v.publisher != nil {
		v.publisher.PublishPlaybackFinished(ports.PlaybackFinishedEvent{
			GuildID:               guildID,
			NotificationChannelID: msg.ChannelID,
			LastMessageID:         &msg.MessageID,
		})
	}

	v.lifecycle.DeInitQueue(ctx, guildID)
	v.repo.Delete(guildID)
}
