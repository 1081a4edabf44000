package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sglre6355/sgrtune/internal/modules/music_player/application/ports"
	"github.com/sglre6355/sgrtune/internal/modules/music_player/domain"
)

// ByteChunkSize is the size of one stored chunk. It matches the byte range the
// engine requests per remote source.
const ByteChunkSize = 512 * 1024

// DefaultByteCacheTTL is how long cached bytes are kept when no TTL is configured.
const DefaultByteCacheTTL = 7 * 24 * time.Hour

// Key prefixes for Redis byte cache.
const (
	keyBytesPrefix = "sgrtune:bytes:" // + track_id
)

// RedisConfig contains Redis byte cache configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// RedisByteCache stores track bytes in Redis as fixed-size chunks.
//
// A track is stored as one key per chunk plus a size key that is written last,
// so a present size key means every chunk is present.
type RedisByteCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewRedisClient creates a Redis client and checks the connection.
func NewRedisClient(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	slog.Info("connected to redis", "addr", cfg.Addr)
	return client, nil
}

// NewRedisByteCache creates a new RedisByteCache on top of client.
func NewRedisByteCache(client redis.Cmdable, ttl time.Duration) *RedisByteCache {
	if ttl <= 0 {
		ttl = DefaultByteCacheTTL
	}
	return &RedisByteCache{
		client: client,
		ttl:    ttl,
	}
}

func sizeKey(id domain.TrackID) string {
	return keyBytesPrefix + string(id) + ":size"
}

func chunkKey(id domain.TrackID, chunk int64) string {
	return keyBytesPrefix + string(id) + ":chunk:" + strconv.FormatInt(chunk, 10)
}

// IsCached reports whether [offset, offset+length) of the track is cached.
func (c *RedisByteCache) IsCached(ctx context.Context, id domain.TrackID, offset, length int64) bool {
	size, err := c.Size(ctx, id)
	if err != nil {
		return false
	}
	return rangeWithin(size, offset, length)
}

// Size returns the total cached size of the track, or ports.ErrNotCached.
func (c *RedisByteCache) Size(ctx context.Context, id domain.TrackID) (int64, error) {
	size, err := c.client.Get(ctx, sizeKey(id)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, ports.ErrNotCached
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read cached size: %w", err)
	}
	return size, nil
}

// ReadRange returns up to length bytes starting at offset.
func (c *RedisByteCache) ReadRange(
	ctx context.Context,
	id domain.TrackID,
	offset, length int64,
) ([]byte, error) {
	size, err := c.Size(ctx, id)
	if err != nil {
		return nil, err
	}
	offset, length = clampRange(size, offset, length)
	if length == 0 {
		return nil, nil
	}

	first, last := chunkSpan(offset, length)
	keys := make([]string, 0, last-first+1)
	for chunk := first; chunk <= last; chunk++ {
		keys = append(keys, chunkKey(id, chunk))
	}

	values, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read cached chunks: %w", err)
	}

	data := make([]byte, 0, length+ByteChunkSize)
	for i, value := range values {
		chunk, ok := value.(string)
		if !ok {
			// A chunk expired before the size key.
			slog.Debug("cached chunk missing", "track", id, "chunk", first+int64(i))
			return nil, ports.ErrNotCached
		}
		data = append(data, chunk...)
	}

	start := offset - first*ByteChunkSize
	end := min(start+length, int64(len(data)))
	return data[start:end], nil
}

// Put stores the full content of a track. size is advisory; the stored size is
// the number of bytes read from r.
func (c *RedisByteCache) Put(ctx context.Context, id domain.TrackID, r io.Reader, size int64) error {
	buf := make([]byte, ByteChunkSize)
	var total int64

	for chunk := int64(0); ; chunk++ {
		n, err := io.ReadFull(r, buf)
		if n > 0 {
			if err := c.client.Set(ctx, chunkKey(id, chunk), buf[:n], c.ttl).Err(); err != nil {
				return fmt.Errorf("failed to store chunk %d: %w", chunk, err)
			}
			total += int64(n)
		}
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read track bytes: %w", err)
		}
	}

	if size > 0 && total != size {
		slog.Warn("cached size differs from declared size",
			"track", id,
			"declared", size,
			"stored", total,
		)
	}

	if err := c.client.Set(ctx, sizeKey(id), total, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store cached size: %w", err)
	}
	return nil
}

// rangeWithin reports whether [offset, offset+length) lies inside [0, size).
func rangeWithin(size, offset, length int64) bool {
	return offset >= 0 && length > 0 && offset+length <= size
}

// clampRange bounds [offset, offset+length) to [0, size). A negative length
// means the rest of the content.
func clampRange(size, offset, length int64) (int64, int64) {
	if offset < 0 {
		offset = 0
	}
	if offset >= size {
		return size, 0
	}
	if length < 0 || offset+length > size {
		length = size - offset
	}
	return offset, length
}

// chunkSpan returns the first and last chunk covering a non-empty range.
func chunkSpan(offset, length int64) (int64, int64) {
	return offset / ByteChunkSize, (offset + length - 1) / ByteChunkSize
}

// Ensure RedisByteCache implements ports.ByteCache.
var _ ports.ByteCache = (*RedisByteCache)(nil)
