package ports

import (
	"context"
	"errors"
	"io"

	"github.com/sglre6355/sgrtune/internal/modules/music_player/domain"
)

// ErrNotCached is returned when the byte cache holds no data for a track.
var ErrNotCached = errors.New("not cached")

// ByteCache is the durable cache of stream bytes, keyed by track id and byte range.
type ByteCache interface {
	// IsCached reports whether [offset, offset+length) of the track is cached.
	IsCached(ctx context.Context, id domain.TrackID, offset, length int64) bool

	// Size returns the total cached size of the track, or ErrNotCached.
	Size(ctx context.Context, id domain.TrackID) (int64, error)

	// ReadRange returns up to length bytes starting at offset.
	ReadRange(ctx context.Context, id domain.TrackID, offset, length int64) ([]byte, error)

	// Put stores the full content of a track.
	Put(ctx context.Context, id domain.TrackID, r io.Reader, size int64) error
}
