package rest

import (
	"context"
	"errors"
	"io"

	"github.com/sglre6355/sgrtune/internal/modules/music_player/application/ports"
	"github.com/sglre6355/sgrtune/internal/modules/music_player/domain"
)

var errNegativeOffset = errors.New("negative offset")

// cacheReader reads a cached track through ReadRange so the standard library
// can serve HTTP range requests from it.
type cacheReader struct {
	ctx    context.Context
	cache  ports.ByteCache
	id     domain.TrackID
	size   int64
	offset int64
}

func newCacheReader(ctx context.Context, cache ports.ByteCache, id domain.TrackID, size int64) *cacheReader {
	return &cacheReader{ctx: ctx, cache: cache, id: id, size: size}
}

func (r *cacheReader) Read(p []byte) (int, error) {
	if r.offset >= r.size {
		return 0, io.EOF
	}
	if len(p) == 0 {
		return 0, nil
	}

	data, err := r.cache.ReadRange(r.ctx, r.id, r.offset, int64(len(p)))
	if err != nil {
		return 0, err
	}
	if len(data) == 0 {
		return 0, io.EOF
	}
	n := copy(p, data)
	r.offset += int64(n)
	return n, nil
}

func (r *cacheReader) Seek(offset int64, whence int) (int64, error) {
	var next int64
	switch whence {
	case io.SeekStart:
		next = offset
	case io.SeekCurrent:
		next = r.offset + offset
	case io.SeekEnd:
		next = r.size + offset
	default:
		return 0, errors.New("invalid whence")
	}
	if next < 0 {
		return 0, errNegativeOffset
	}
	r.offset = next
	return next, nil
}
