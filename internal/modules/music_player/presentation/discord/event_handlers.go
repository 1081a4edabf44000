package discord

import (
	"context"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/sgrtune/internal/modules/music_player/application/usecases"
)

// voiceEventTimeout bounds the queue flush triggered by a forced disconnect.
const voiceEventTimeout = 10 * time.Second

// EventHandlers reacts to gateway events about the bot's own voice connection.
type EventHandlers struct {
	botID        snowflake.ID
	voiceChannel *usecases.VoiceChannelService
}

func NewEventHandlers(botID snowflake.ID, voiceChannel *usecases.VoiceChannelService) *EventHandlers {
	return &EventHandlers{botID: botID, voiceChannel: voiceChannel}
}

// HandleVoiceStateUpdate follows the bot being moved or kicked from voice.
func (h *EventHandlers) HandleVoiceStateUpdate(_ *discordgo.Session, event *discordgo.VoiceStateUpdate) {
	input, ok := h.botVoiceStateChange(event)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), voiceEventTimeout)
	defer cancel()
	h.voiceChannel.HandleBotVoiceStateChange(ctx, input)
}

// botVoiceStateChange reports false for other users and malformed events.
// An empty channel means the bot was disconnected.
func (h *EventHandlers) botVoiceStateChange(
	event *discordgo.VoiceStateUpdate,
) (usecases.BotVoiceStateChangeInput, bool) {
	var input usecases.BotVoiceStateChangeInput
	if event.VoiceState == nil || event.UserID != h.botID.String() {
		return input, false
	}

	guildID, err := snowflake.Parse(event.GuildID)
	if err != nil {
		slog.Warn("ignoring voice state update with invalid guild", "guild_id", event.GuildID, "error", err)
		return input, false
	}
	input.GuildID = guildID

	if event.ChannelID == "" {
		return input, true
	}
	channelID, err := snowflake.Parse(event.ChannelID)
	if err != nil {
		slog.Warn("ignoring voice state update with invalid channel",
			"guild_id", guildID,
			"channel_id", event.ChannelID,
			"error", err,
		)
		return input, false
	}
	input.NewChannelID = &channelID
	return input, true
}
