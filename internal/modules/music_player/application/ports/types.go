package ports

import (
	"time"

	"github.com/sglre6355/sgrtune/internal/modules/music_player/domain"
)

// LoadResult represents the result of loading tracks.
type LoadResult struct {
	Type          LoadType
	Tracks        []domain.Track
	PlaylistID    string
	PlaylistTitle string
}

// LoadType represents the type of load result.
type LoadType string

const (
	LoadTypeTrack    LoadType = "track"
	LoadTypePlaylist LoadType = "playlist"
	LoadTypeSearch   LoadType = "search"
	LoadTypeEmpty    LoadType = "empty"
	LoadTypeError    LoadType = "error"
)

// SourceKind tells where a stream source comes from.
type SourceKind string

const (
	SourceLocal  SourceKind = "local"
	SourceCache  SourceKind = "cache"
	SourceMemory SourceKind = "memory"
	SourceRemote SourceKind = "remote"
)

// StreamSource is a playable source for a track.
type StreamSource struct {
	Kind SourceKind
	// URI is a local path, a byte-cache reference or a remote stream URL.
	URI string
	// Encoded is the engine handle of a remote stream, if known.
	Encoded string
	// Offset and Length delimit the byte range the source serves. Length -1 means open-ended.
	Offset int64
	Length int64
	Format *domain.FormatRecord
}

// PlayRequest is what the engine needs to start an item.
type PlayRequest struct {
	Track    domain.Track
	Source   StreamSource
	Volume   int // percent
	Position time.Duration
}

// NowPlayingInfo contains information for the "Now Playing" notification.
type NowPlayingInfo struct {
	Identifier    string
	Title         string
	Artist        string
	Album         string
	Duration      string
	ArtworkURL    string
	Source        SourceKind
	QueueTitle    string
	QueuePosition int
	QueueLength   int
	Shuffled      bool
	RepeatMode    string
}
