package ports

import (
	"context"
)

// TrackSearcher defines the interface for loading/searching tracks.
type TrackSearcher interface {
	// LoadTracks searches for tracks using the given query.
	LoadTracks(ctx context.Context, query string) (*LoadResult, error)
}
