package music_player

import (
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/sglre6355/sgrtune/internal/bot"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("LAVALINK_ADDRESS", "localhost:2333")
	t.Setenv("LAVALINK_PASSWORD", "youshallnotpass")
}

func TestLoadConfig_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.DatabaseDriver != "sqlite" {
		t.Errorf("expected driver sqlite, got %q", cfg.DatabaseDriver)
	}
	if cfg.ByteCacheBackend != byteCacheNone {
		t.Errorf("expected byte cache %q, got %q", byteCacheNone, cfg.ByteCacheBackend)
	}
	if cfg.ByteCacheTTL != 168*time.Hour {
		t.Errorf("expected byte cache TTL 168h, got %v", cfg.ByteCacheTTL)
	}
	if cfg.StreamValidity != 6*time.Hour {
		t.Errorf("expected stream validity 6h, got %v", cfg.StreamValidity)
	}
	if cfg.ResolveTimeout != 15*time.Second {
		t.Errorf("expected resolve timeout 15s, got %v", cfg.ResolveTimeout)
	}
	if !cfg.PersistentQueue || !cfg.SkipOnError || !cfg.NormalizeAudio {
		t.Error("expected persistent queue, skip on error and normalization to be enabled")
	}
	if cfg.MaxConsecutiveErrors != 3 {
		t.Errorf("expected 3 consecutive errors, got %d", cfg.MaxConsecutiveErrors)
	}
	if cfg.MaxQueues != 20 {
		t.Errorf("expected 20 queues, got %d", cfg.MaxQueues)
	}
	if cfg.URLCacheSize != 512 {
		t.Errorf("expected URL cache size 512, got %d", cfg.URLCacheSize)
	}
	if cfg.PublicBaseURL != "http://localhost:8080" {
		t.Errorf("expected default public base URL, got %q", cfg.PublicBaseURL)
	}
}

func TestLoadConfig_MissingLavalink(t *testing.T) {
	t.Setenv("LAVALINK_ADDRESS", "")
	t.Setenv("LAVALINK_PASSWORD", "")

	if _, err := LoadConfig(); err == nil {
		t.Error("expected error for missing Lavalink settings, got nil")
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{
			name: "unknown database driver",
			env:  map[string]string{"DATABASE_DRIVER": "oracle"},
		},
		{
			name: "unknown byte cache backend",
			env:  map[string]string{"BYTE_CACHE_BACKEND": "memcached"},
		},
		{
			name: "minio without endpoint",
			env:  map[string]string{"BYTE_CACHE_BACKEND": "minio"},
		},
		{
			name: "unknown audio quality",
			env:  map[string]string{"AUDIO_QUALITY": "lossless"},
		},
		{
			name: "non-positive queue limit",
			env:  map[string]string{"MAX_QUEUES": "0"},
		},
		{
			name: "malformed duration",
			env:  map[string]string{"RESOLVE_TIMEOUT": "soon"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			for key, value := range tt.env {
				t.Setenv(key, value)
			}

			if _, err := LoadConfig(); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestLoadStorageConfig_DoesNotNeedLavalink(t *testing.T) {
	t.Setenv("LAVALINK_ADDRESS", "")
	t.Setenv("LAVALINK_PASSWORD", "")
	t.Setenv("DATABASE_DRIVER", "postgres")
	t.Setenv("DATABASE_DSN", "host=localhost user=sgrtune")
	t.Setenv("BYTE_CACHE_BACKEND", "redis")
	t.Setenv("REDIS_DB", "2")

	cfg, err := LoadStorageConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.DatabaseDriver != "postgres" {
		t.Errorf("expected driver postgres, got %q", cfg.DatabaseDriver)
	}
	if cfg.RedisDB != 2 {
		t.Errorf("expected redis DB 2, got %d", cfg.RedisDB)
	}
	if cfg.RedisAddr != "localhost:6379" {
		t.Errorf("expected default redis address, got %q", cfg.RedisAddr)
	}
}

func TestOpenStorage_SQLite(t *testing.T) {
	storage, err := OpenStorage(t.Context(), &StorageConfig{
		DatabaseDriver:   "sqlite",
		DatabaseDSN:      ":memory:",
		ByteCacheBackend: byteCacheNone,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer storage.Close()

	if storage.Cache != nil {
		t.Error("expected no byte cache")
	}
	queues, err := storage.Store.ReadQueues(t.Context(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(queues) != 0 {
		t.Errorf("expected no queues, got %d", len(queues))
	}
}

func TestModule_CommandHandlersCoverCommands(t *testing.T) {
	m := &MusicPlayerModule{}
	handlers := m.CommandHandlers()

	for _, cmd := range m.Commands() {
		if _, ok := handlers[cmd.Name]; !ok {
			t.Errorf("command %q has no handler", cmd.Name)
		}
	}
	if len(handlers) != len(m.Commands()) {
		t.Errorf("expected %d handlers, got %d", len(m.Commands()), len(handlers))
	}
}

func TestModule_AutocompleteHandlersCoverAutocompletedOptions(t *testing.T) {
	m := &MusicPlayerModule{}
	handlers := m.AutocompleteHandlers()

	for _, cmd := range m.Commands() {
		_, ok := handlers[cmd.Name]
		if hasAutocomplete(cmd.Options) != ok {
			t.Errorf("command %q: autocomplete handler registered = %v", cmd.Name, ok)
		}
	}
}

func hasAutocomplete(options []*discordgo.ApplicationCommandOption) bool {
	for _, opt := range options {
		if opt.Autocomplete || hasAutocomplete(opt.Options) {
			return true
		}
	}
	return false
}

func TestModule_InitWithoutSession(t *testing.T) {
	m := &MusicPlayerModule{config: &Config{}}

	if err := m.Init(bot.ModuleDependencies{}); err == nil {
		t.Error("expected error without session, got nil")
	}
	if err := m.Shutdown(); err != nil {
		t.Errorf("unexpected shutdown error: %v", err)
	}
}
