package ports

import (
	"context"
	"time"

	"github.com/disgoorg/snowflake/v2"
)

// AudioPlayer defines the interface for audio playback operations.
type AudioPlayer interface {
	// Play starts playback of the given source, replacing whatever is playing.
	Play(ctx context.Context, guildID snowflake.ID, request PlayRequest) error

	// Stop stops the current playback.
	Stop(ctx context.Context, guildID snowflake.ID) error

	// Pause pauses the current playback.
	Pause(ctx context.Context, guildID snowflake.ID) error

	// Resume resumes the paused playback.
	Resume(ctx context.Context, guildID snowflake.ID) error

	// Seek moves the playback position within the current item.
	Seek(ctx context.Context, guildID snowflake.ID, position time.Duration) error

	// Position returns the playback position within the current item.
	Position(guildID snowflake.ID) time.Duration
}
