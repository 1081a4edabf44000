package music_player

import (
	"context"
	"errors"
	"fmt"

	"github.com/sglre6355/sgrtune/internal/modules/music_player/application/ports"
	"github.com/sglre6355/sgrtune/internal/modules/music_player/infrastructure"
	"gorm.io/gorm"
)

// Storage bundles the persistence backends of the music player.
type Storage struct {
	DB    *gorm.DB
	Store *infrastructure.GormStore
	// Cache is nil when no byte cache backend is configured.
	Cache ports.ByteCache

	closeCache func() error
}

// OpenStorage opens the database, migrates its schema and connects the
// configured byte cache.
func OpenStorage(ctx context.Context, cfg *StorageConfig) (*Storage, error) {
	db, err := infrastructure.OpenDatabase(cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}
	if err := infrastructure.Migrate(db); err != nil {
		_ = infrastructure.CloseDatabase(db)
		return nil, err
	}

	storage := &Storage{
		DB:    db,
		Store: infrastructure.NewGormStore(db),
	}
	if err := storage.openByteCache(ctx, cfg); err != nil {
		_ = infrastructure.CloseDatabase(db)
		return nil, err
	}
	return storage, nil
}

// Close closes the byte cache and database connections.
func (s *Storage) Close() error {
	var errs []error
	if s.closeCache != nil {
		errs = append(errs, s.closeCache())
	}
	errs = append(errs, infrastructure.CloseDatabase(s.DB))
	return errors.Join(errs...)
}

func (s *Storage) openByteCache(ctx context.Context, cfg *StorageConfig) error {
	switch cfg.ByteCacheBackend {
	case byteCacheRedis:
		client, err := infrastructure.NewRedisClient(ctx, infrastructure.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.ByteCacheTTL,
		})
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		s.Cache = infrastructure.NewRedisByteCache(client, cfg.ByteCacheTTL)
		s.closeCache = client.Close
	case byteCacheMinio:
		cache, err := infrastructure.NewMinioByteCache(ctx, infrastructure.MinioConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		})
		if err != nil {
			return fmt.Errorf("failed to connect to minio: %w", err)
		}
		s.Cache = cache
	}
	return nil
}
