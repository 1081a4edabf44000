package ports

import (
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/sgrtune/internal/modules/music_player/domain"
)

// TrackEndedEvent is emitted by the engine when an item stops playing.
type TrackEndedEvent struct {
	GuildID snowflake.ID
	TrackID domain.TrackID
	Reason  domain.TrackEndReason
}

// TrackExceptionEvent is emitted by the engine when an item fails while loading or playing.
type TrackExceptionEvent struct {
	GuildID snowflake.ID
	TrackID domain.TrackID
	Message string
}

// PlaybackStartedEvent is published when an item starts playing.
type PlaybackStartedEvent struct {
	GuildID               snowflake.ID
	Track                 domain.Track
	Info                  NowPlayingInfo
	NotificationChannelID snowflake.ID
}

// PlaybackFinishedEvent is published when the "Now Playing" message should go away.
type PlaybackFinishedEvent struct {
	GuildID               snowflake.ID
	NotificationChannelID snowflake.ID
	LastMessageID         *snowflake.ID
}

// PlaybackErrorEvent is published for every playback failure.
type PlaybackErrorEvent struct {
	GuildID               snowflake.ID
	TrackID               domain.TrackID
	NotificationChannelID snowflake.ID
	Message               string
	Skipped               bool
}
