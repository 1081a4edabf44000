package ports

import (
	"context"

	"github.com/disgoorg/snowflake/v2"
)

// VoiceConnection moves the bot in and out of a guild's voice channels.
type VoiceConnection interface {
	// JoinChannel connects to channelID, moving the bot if it is elsewhere in the guild.
	JoinChannel(ctx context.Context, guildID, channelID snowflake.ID) error

	// LeaveChannel disconnects the bot from the guild's voice channel.
	LeaveChannel(ctx context.Context, guildID snowflake.ID) error
}

// VoiceStateProvider looks up where guild members are connected.
type VoiceStateProvider interface {
	// UserVoiceChannel returns the voice channel userID is connected to.
	// ok is false when the user is not in a voice channel.
	UserVoiceChannel(guildID, userID snowflake.ID) (channelID snowflake.ID, ok bool, err error)
}
