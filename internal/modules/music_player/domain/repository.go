package domain

import (
	"context"
	"time"

	"github.com/disgoorg/snowflake/v2"
)

// PlayerStateRepository defines the interface for storing and retrieving player states.
type PlayerStateRepository interface {
	// Get returns the PlayerState for the given guild, or nil if not exists.
	Get(guildID snowflake.ID) *PlayerState

	// Save stores the PlayerState.
	Save(state *PlayerState)

	// Delete removes the PlayerState for the given guild.
	Delete(guildID snowflake.ID)

	// All returns every stored PlayerState.
	All() []*PlayerState
}

// QueueRepository persists the queues of a board, scoped by owner (the guild).
type QueueRepository interface {
	// ReadQueues returns the owner's queues in board order, the current queue last.
	ReadQueues(ctx context.Context, owner snowflake.ID) ([]*MultiQueue, error)

	// WriteQueues replaces every persisted queue of owner. Empty queues are skipped.
	WriteQueues(ctx context.Context, owner snowflake.ID, queues []*MultiQueue) error

	// ReadLastPosition returns the saved playback position, or 0.
	ReadLastPosition(ctx context.Context, owner snowflake.ID) (time.Duration, error)

	// WriteLastPosition saves the playback position. Zero clears it.
	WriteLastPosition(ctx context.Context, owner snowflake.ID, position time.Duration) error
}

// FormatRepository stores the format of resolved streams.
type FormatRepository interface {
	// ReadFormat returns the stored format, or nil if the track was never resolved.
	ReadFormat(ctx context.Context, id TrackID) (*FormatRecord, error)

	// UpsertFormat inserts or replaces the format of a track.
	UpsertFormat(ctx context.Context, format FormatRecord) error
}

// SongRepository stores track metadata and related-track links.
type SongRepository interface {
	// GetSong returns the stored track, or nil if unknown.
	GetSong(ctx context.Context, id TrackID) (*Track, error)

	// InsertSongs stores tracks that are not stored yet. Existing rows are left untouched.
	InsertSongs(ctx context.Context, tracks []Track) error

	// UpdateDuration sets the duration of a stored track.
	UpdateDuration(ctx context.Context, id TrackID, seconds int) error

	// HasRelatedSongs reports whether related tracks are stored for id.
	HasRelatedSongs(ctx context.Context, id TrackID) (bool, error)

	// InsertRelatedSongs stores related tracks and links them to id.
	InsertRelatedSongs(ctx context.Context, id TrackID, related []Track) error

	// ListLocalSongs returns every track with a local path.
	ListLocalSongs(ctx context.Context) ([]Track, error)

	// MarkDownloaded records whether the track's bytes are fully cached.
	MarkDownloaded(ctx context.Context, id TrackID, downloaded bool) error
}
