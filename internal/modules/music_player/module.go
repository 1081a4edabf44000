package music_player

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/sglre6355/sgrtune/internal/bot"
	"github.com/sglre6355/sgrtune/internal/modules/music_player/application/events"
	"github.com/sglre6355/sgrtune/internal/modules/music_player/application/ports"
	"github.com/sglre6355/sgrtune/internal/modules/music_player/application/usecases"
	"github.com/sglre6355/sgrtune/internal/modules/music_player/domain"
	"github.com/sglre6355/sgrtune/internal/modules/music_player/infrastructure"
	"github.com/sglre6355/sgrtune/internal/modules/music_player/presentation/discord"
	"github.com/sglre6355/sgrtune/internal/modules/music_player/presentation/rest"
)

// shutdownTimeout bounds how long Shutdown waits for in-flight queue flushes.
const shutdownTimeout = 30 * time.Second

var errNoSession = errors.New("music_player requires a Discord session")

func init() {
	bot.Register(&MusicPlayerModule{})
}

// Compile-time interface checks.
var (
	_ bot.ConfigurableModule = (*MusicPlayerModule)(nil)
	_ bot.AutocompleteModule = (*MusicPlayerModule)(nil)
)

// MusicPlayerModule provides music playback commands.
type MusicPlayerModule struct {
	config          *Config
	storage         *Storage
	commandHandlers *discord.CommandHandlers
	autocomplete    *discord.AutocompleteHandler
	eventHandlers   *discord.EventHandlers
	lavalinkAdapter *infrastructure.LavalinkAdapter

	playback   *usecases.PlaybackService
	resolver   *usecases.StreamResolver
	backfiller *usecases.Backfiller

	// Event-driven components
	eventBus            *events.Bus
	playbackHandler     *events.PlaybackEventHandler
	notificationHandler *events.NotificationEventHandler

	// Context for background work
	ctx    context.Context
	cancel context.CancelFunc
}

// Name returns the module name.
func (m *MusicPlayerModule) Name() string {
	return "music_player"
}

// Commands returns the slash commands for this module.
func (m *MusicPlayerModule) Commands() []*discordgo.ApplicationCommand {
	return discord.Commands()
}

// CommandHandlers returns the command handlers for this module.
func (m *MusicPlayerModule) CommandHandlers() map[string]bot.InteractionHandler {
	return map[string]bot.InteractionHandler{
		"join":     m.commandHandlers.HandleJoin,
		"leave":    m.commandHandlers.HandleLeave,
		"play":     m.commandHandlers.HandlePlay,
		"playnext": m.commandHandlers.HandlePlayNext,
		"enqueue":  m.commandHandlers.HandleEnqueue,
		"pause":    m.commandHandlers.HandlePause,
		"resume":   m.commandHandlers.HandleResume,
		"skip":     m.commandHandlers.HandleSkip,
		"seek":     m.commandHandlers.HandleSeek,
		"shuffle":  m.commandHandlers.HandleShuffle,
		"repeat":   m.commandHandlers.HandleRepeat,
		"queue":    m.commandHandlers.HandleQueue,
		"library":  m.commandHandlers.HandleLibrary,
	}
}

// AutocompleteHandlers returns the autocomplete handlers for this module.
// Every command with an autocompleted option shares one handler that
// switches on the focused option.
func (m *MusicPlayerModule) AutocompleteHandlers() map[string]bot.AutocompleteHandler {
	handlers := make(map[string]bot.AutocompleteHandler)
	for _, name := range []string{"play", "playnext", "enqueue", "seek", "queue", "library"} {
		handlers[name] = m.autocomplete.Choices
	}
	return handlers
}

// EventHandlers returns the event handlers for this module.
func (m *MusicPlayerModule) EventHandlers() []bot.EventHandler {
	return []bot.EventHandler{
		func(s *discordgo.Session, event *discordgo.VoiceServerUpdate) {
			m.handleVoiceServerUpdate(s, event)
		},
		func(s *discordgo.Session, event *discordgo.VoiceStateUpdate) {
			m.handleVoiceStateUpdate(s, event)
		},
	}
}

// LoadConfig loads module-specific configuration from environment variables.
func (m *MusicPlayerModule) LoadConfig() error {
	cfg, err := LoadConfig()
	if err != nil {
		return err
	}
	m.config = cfg
	return nil
}

// Init initializes the module.
func (m *MusicPlayerModule) Init(deps bot.ModuleDependencies) error {
	if deps.Session == nil {
		return errNoSession
	}
	m.ctx, m.cancel = context.WithCancel(context.Background())

	storage, err := OpenStorage(m.ctx, &m.config.StorageConfig)
	if err != nil {
		return err
	}
	m.storage = storage

	metrics := infrastructure.NewMetrics(deps.Registry)

	// Create event bus (needed by Lavalink adapter for publishing events)
	m.eventBus = events.NewBus(events.DefaultEventBufferSize)

	lavalinkAdapter, err := infrastructure.NewLavalinkAdapter(
		m.ctx,
		deps.Session,
		deps.BotID,
		infrastructure.LavalinkConfig{
			Address:  m.config.LavalinkAddress,
			Password: m.config.LavalinkPassword,
			Secure:   m.config.LavalinkSecure,
		},
	)
	if err != nil {
		return err
	}
	lavalinkAdapter.SetEventPublisher(m.eventBus)
	m.lavalinkAdapter = lavalinkAdapter

	m.backfiller = usecases.NewBackfiller(storage.Store, lavalinkAdapter)

	resolverOptions := []usecases.StreamResolverOption{
		usecases.WithResolutionObserver(metrics),
	}
	if storage.Cache != nil {
		resolverOptions = append(resolverOptions, usecases.WithByteCache(storage.Cache))
	}
	m.resolver, err = usecases.NewStreamResolver(
		storage.Store,
		storage.Store,
		lavalinkAdapter,
		m.backfiller,
		usecases.StreamResolverConfig{
			PublicBaseURL:  m.config.PublicBaseURL,
			StreamValidity: m.config.StreamValidity,
			ResolveTimeout: m.config.ResolveTimeout,
			AudioQuality:   ports.AudioQuality(m.config.AudioQuality),
			URLCacheSize:   m.config.URLCacheSize,
		},
		resolverOptions...,
	)
	if err != nil {
		return err
	}

	// Create infrastructure
	repo := infrastructure.NewMemoryRepository()
	voiceState := infrastructure.NewVoiceStateProvider(deps.Session)
	notifier := infrastructure.NewNotifier(deps.Session)

	// Create services
	m.playback = usecases.NewPlaybackService(
		repo,
		storage.Store,
		m.resolver,
		lavalinkAdapter,
		m.eventBus,
		metrics,
		usecases.PlaybackConfig{
			PersistentQueue:      m.config.PersistentQueue,
			SkipOnError:          m.config.SkipOnError,
			MaxConsecutiveErrors: m.config.MaxConsecutiveErrors,
			NormalizeAudio:       m.config.NormalizeAudio,
		},
	)
	voiceChannel := usecases.NewVoiceChannelService(
		repo,
		lavalinkAdapter,
		voiceState,
		m.playback,
		m.eventBus,
		domain.WithMaxQueues(m.config.MaxQueues),
	)
	queue := usecases.NewQueueService(m.playback)
	library := usecases.NewLibraryService(storage.Store, m.playback)
	trackLoader := usecases.NewTrackLoaderService(lavalinkAdapter, storage.Store)
	notificationChannel := usecases.NewNotificationChannelService(m.playback)

	// Create application event handlers
	m.playbackHandler = events.NewPlaybackEventHandler(m.playback, m.eventBus)
	m.notificationHandler = events.NewNotificationEventHandler(notifier, m.playback, m.eventBus)
	m.playbackHandler.Start(m.ctx)
	m.notificationHandler.Start(m.ctx)

	// Create presentation handlers
	m.commandHandlers = discord.NewCommandHandlers(
		voiceChannel,
		m.playback,
		queue,
		trackLoader,
		library,
		notificationChannel,
	)
	m.autocomplete = discord.NewAutocompleteHandler(
		usecases.NewAutocompleteService(m.playback, trackLoader, library),
	)
	m.eventHandlers = discord.NewEventHandlers(deps.BotID, voiceChannel)

	if deps.Router != nil {
		rest.NewRoutes(storage.Cache, queue).Mount(deps.Router)
	}

	slog.Info("initialized music player",
		"database", m.config.DatabaseDriver,
		"byte_cache", m.config.ByteCacheBackend,
		"max_queues", m.config.MaxQueues,
	)

	return nil
}

// Shutdown cleans up module resources.
func (m *MusicPlayerModule) Shutdown() error {
	// Cancel context first to signal event handlers to stop
	if m.cancel != nil {
		m.cancel()
	}
	if m.playbackHandler != nil {
		m.playbackHandler.Stop()
	}
	if m.notificationHandler != nil {
		m.notificationHandler.Stop()
	}

	var errs []error
	if m.playback != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		if err := m.playback.Close(ctx); err != nil {
			errs = append(errs, err)
		}
		cancel()
	}
	if m.resolver != nil {
		m.resolver.Close()
	}
	if m.backfiller != nil {
		m.backfiller.Close()
	}
	if m.eventBus != nil {
		m.eventBus.Close()
	}
	if m.lavalinkAdapter != nil {
		m.lavalinkAdapter.Close()
	}
	if m.storage != nil {
		if err := m.storage.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// Event handlers.

func (m *MusicPlayerModule) handleVoiceServerUpdate(
	_ *discordgo.Session,
	event *discordgo.VoiceServerUpdate,
) {
	if m.lavalinkAdapter != nil {
		m.lavalinkAdapter.OnVoiceServerUpdate(event)
	}
}

func (m *MusicPlayerModule) handleVoiceStateUpdate(
	s *discordgo.Session,
	event *discordgo.VoiceStateUpdate,
) {
	if m.lavalinkAdapter != nil {
		m.lavalinkAdapter.OnVoiceStateUpdate(event)
	}
	if m.eventHandlers != nil {
		m.eventHandlers.HandleVoiceStateUpdate(s, event)
	}
}
