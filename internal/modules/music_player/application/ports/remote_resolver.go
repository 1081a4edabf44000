package ports

import (
	"context"
	"time"

	"github.com/sglre6355/sgrtune/internal/modules/music_player/domain"
)

// AudioQuality is the preferred stream quality.
type AudioQuality string

const (
	AudioQualityAuto AudioQuality = "auto"
	AudioQualityHigh AudioQuality = "high"
	AudioQualityLow  AudioQuality = "low"
)

// PlaybackData is the result of a remote playback resolution.
type PlaybackData struct {
	// StreamURI is the playable URI of the stream.
	StreamURI string
	// Encoded is the engine-specific handle of the resolved stream, if any.
	Encoded string
	// ExpiresIn is how long StreamURI stays valid. Zero means unknown.
	ExpiresIn time.Duration
	// Format describes the resolved stream, including its loudness.
	Format domain.FormatRecord
	// TrackingURL is reported back to the remote when playback starts.
	TrackingURL string
	// Track holds the metadata reported by the remote.
	Track domain.Track
}

// RejectedError is a structured failure reported by the remote, such as an
// unavailable or region-blocked stream.
type RejectedError struct {
	TrackID domain.TrackID
	Reason  string
}

func (e *RejectedError) Error() string {
	return "remote rejected " + string(e.TrackID) + ": " + e.Reason
}

// RemoteResolver resolves playback streams and metadata from the remote service.
type RemoteResolver interface {
	// ResolvePlayback resolves a playable stream for id. known is the previously
	// stored format of the track, used to keep the quality consistent.
	ResolvePlayback(
		ctx context.Context,
		id domain.TrackID,
		known *domain.FormatRecord,
		quality AudioQuality,
	) (*PlaybackData, error)

	// ResolveRelated returns tracks related to id.
	ResolveRelated(ctx context.Context, id domain.TrackID) ([]domain.Track, error)

	// ResolveMetadata returns the remote metadata of id.
	ResolveMetadata(ctx context.Context, id domain.TrackID) (*domain.Track, error)
}
