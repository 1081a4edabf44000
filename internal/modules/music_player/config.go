package music_player

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/sglre6355/sgrtune/internal/modules/music_player/application/ports"
	"github.com/sglre6355/sgrtune/internal/modules/music_player/infrastructure"
)

// Byte cache backends.
const (
	byteCacheNone  = "none"
	byteCacheRedis = "redis"
	byteCacheMinio = "minio"
)

// StorageConfig holds the persistence settings shared by the bot and the CLI.
type StorageConfig struct {
	DatabaseDriver string `env:"DATABASE_DRIVER" envDefault:"sqlite"`
	DatabaseDSN    string `env:"DATABASE_DSN"    envDefault:"sgrtune.db"`

	ByteCacheBackend string        `env:"BYTE_CACHE_BACKEND" envDefault:"none"`
	ByteCacheTTL     time.Duration `env:"BYTE_CACHE_TTL"     envDefault:"168h"`

	RedisAddr     string `env:"REDIS_ADDR"     envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB"       envDefault:"0"`

	MinioEndpoint  string `env:"MINIO_ENDPOINT"`
	MinioAccessKey string `env:"MINIO_ACCESS_KEY"`
	MinioSecretKey string `env:"MINIO_SECRET_KEY"`
	MinioBucket    string `env:"MINIO_BUCKET"     envDefault:"sgrtune-cache"`
	MinioUseSSL    bool   `env:"MINIO_USE_SSL"    envDefault:"false"`
}

// Config holds the music player module configuration.
type Config struct {
	StorageConfig

	LavalinkAddress  string `env:"LAVALINK_ADDRESS,notEmpty"`
	LavalinkPassword string `env:"LAVALINK_PASSWORD,notEmpty"`
	LavalinkSecure   bool   `env:"LAVALINK_SECURE"            envDefault:"false"`

	StreamValidity time.Duration `env:"STREAM_VALIDITY" envDefault:"6h"`
	ResolveTimeout time.Duration `env:"RESOLVE_TIMEOUT" envDefault:"15s"`
	AudioQuality   string        `env:"AUDIO_QUALITY"   envDefault:"auto"`
	PublicBaseURL  string        `env:"PUBLIC_BASE_URL" envDefault:"http://localhost:8080"`
	URLCacheSize   int           `env:"URL_CACHE_SIZE"  envDefault:"512"`

	PersistentQueue      bool `env:"PERSISTENT_QUEUE"       envDefault:"true"`
	SkipOnError          bool `env:"SKIP_ON_ERROR"          envDefault:"true"`
	MaxConsecutiveErrors int  `env:"MAX_CONSECUTIVE_ERRORS" envDefault:"3"`
	NormalizeAudio       bool `env:"NORMALIZE_AUDIO"        envDefault:"true"`
	MaxQueues            int  `env:"MAX_QUEUES"             envDefault:"20"`
}

// LoadConfig parses the module configuration from environment variables.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadStorageConfig parses only the persistence settings.
func LoadStorageConfig() (*StorageConfig, error) {
	cfg := &StorageConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *StorageConfig) validate() error {
	switch c.DatabaseDriver {
	case infrastructure.DriverSQLite, infrastructure.DriverPostgres, infrastructure.DriverMySQL:
	default:
		return fmt.Errorf("unsupported DATABASE_DRIVER %q", c.DatabaseDriver)
	}

	switch c.ByteCacheBackend {
	case byteCacheNone, byteCacheRedis:
	case byteCacheMinio:
		if c.MinioEndpoint == "" {
			return errors.New("MINIO_ENDPOINT is required for the minio byte cache")
		}
	default:
		return fmt.Errorf("unsupported BYTE_CACHE_BACKEND %q", c.ByteCacheBackend)
	}
	return nil
}

func (c *Config) validate() error {
	if err := c.StorageConfig.validate(); err != nil {
		return err
	}

	switch ports.AudioQuality(c.AudioQuality) {
	case ports.AudioQualityAuto, ports.AudioQualityHigh, ports.AudioQualityLow:
	default:
		return fmt.Errorf("unsupported AUDIO_QUALITY %q", c.AudioQuality)
	}

	if c.MaxQueues <= 0 {
		return fmt.Errorf("MAX_QUEUES must be positive, got %d", c.MaxQueues)
	}
	return nil
}
