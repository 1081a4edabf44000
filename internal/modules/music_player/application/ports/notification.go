package ports

import (
	"context"

	"github.com/disgoorg/snowflake/v2"
)

// NotificationSender posts playback notifications to a guild's text channel.
// Every call is bounded by ctx, including any lookups made to decorate a message.
type NotificationSender interface {
	// SendNowPlaying posts the now-playing message and returns its ID.
	SendNowPlaying(ctx context.Context, channelID snowflake.ID, info *NowPlayingInfo) (messageID snowflake.ID, err error)

	// DeleteMessage removes a message posted earlier.
	DeleteMessage(ctx context.Context, channelID, messageID snowflake.ID) error

	// SendError posts a user-facing playback failure.
	SendError(ctx context.Context, channelID snowflake.ID, message string) error
}
