package infrastructure

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/sglre6355/sgrtune/internal/modules/music_player/application/ports"
	"github.com/sglre6355/sgrtune/internal/modules/music_player/domain"
)

// MinioConfig contains MinIO byte cache configuration.
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// MinioByteCache stores one object per track in an S3-compatible bucket.
type MinioByteCache struct {
	client *minio.Client
	bucket string
}

// NewMinioByteCache connects to MinIO and creates the bucket if missing.
func NewMinioByteCache(ctx context.Context, cfg MinioConfig) (*MinioByteCache, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
		slog.Info("created byte cache bucket", "bucket", cfg.Bucket)
	}

	slog.Info("connected to minio", "endpoint", cfg.Endpoint, "bucket", cfg.Bucket)
	return &MinioByteCache{
		client: client,
		bucket: cfg.Bucket,
	}, nil
}

func objectName(id domain.TrackID) string {
	return "tracks/" + string(id)
}

// IsCached reports whether [offset, offset+length) of the track is cached.
func (c *MinioByteCache) IsCached(ctx context.Context, id domain.TrackID, offset, length int64) bool {
	size, err := c.Size(ctx, id)
	if err != nil {
		return false
	}
	return rangeWithin(size, offset, length)
}

// Size returns the total cached size of the track, or ports.ErrNotCached.
func (c *MinioByteCache) Size(ctx context.Context, id domain.TrackID) (int64, error) {
	info, err := c.client.StatObject(ctx, c.bucket, objectName(id), minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).StatusCode == http.StatusNotFound {
			return 0, ports.ErrNotCached
		}
		return 0, fmt.Errorf("failed to stat cached object: %w", err)
	}
	return info.Size, nil
}

// ReadRange returns up to length bytes starting at offset.
func (c *MinioByteCache) ReadRange(
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

	opts := minio.GetObjectOptions{}
	if err := opts.SetRange(offset, offset+length-1); err != nil {
		return nil, fmt.Errorf("invalid range: %w", err)
	}

	object, err := c.client.GetObject(ctx, c.bucket, objectName(id), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to get cached object: %w", err)
	}
	defer func() { _ = object.Close() }()

	data, err := io.ReadAll(object)
	if err != nil {
		return nil, fmt.Errorf("failed to read cached object: %w", err)
	}
	return data, nil
}

// Put stores the full content of a track. A size of -1 streams an unknown length.
func (c *MinioByteCache) Put(ctx context.Context, id domain.TrackID, r io.Reader, size int64) error {
	if size <= 0 {
		size = -1
	}
	if _, err := c.client.PutObject(ctx, c.bucket, objectName(id), r, size, minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	}); err != nil {
		return fmt.Errorf("failed to store cached object: %w", err)
	}
	return nil
}

// Ensure MinioByteCache implements ports.ByteCache.
var _ ports.ByteCache = (*MinioByteCache)(nil)
