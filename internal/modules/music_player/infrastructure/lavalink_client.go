package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/disgolink/v3/disgolink"
	"github.com/disgoorg/disgolink/v3/lavalink"
	"github.com/disgoorg/snowflake/v2"
	"github.com/samber/lo"
	"github.com/sglre6355/sgrtune/internal/modules/music_player/application/ports"
	"github.com/sglre6355/sgrtune/internal/modules/music_player/domain"
)

// ErrNoNode is returned when no Lavalink node is available.
var ErrNoNode = errors.New("no available Lavalink node")

// LavalinkConfig contains Lavalink connection configuration.
type LavalinkConfig struct {
	Address  string
	Password string
	Secure   bool
}

// playing is the item the engine was last told to play in a guild.
type playing struct {
	trackID domain.TrackID
	encoded string
}

// LavalinkAdapter wraps DisGoLink to implement the engine, voice, search and
// remote resolution ports.
type LavalinkAdapter struct {
	link    disgolink.Client
	session *discordgo.Session
	botID   snowflake.ID

	voiceMu    sync.Mutex
	handshakes map[snowflake.ID]*voiceHandshake

	playingMu sync.Mutex
	playing   map[snowflake.ID]playing

	publisher ports.EventPublisher
}

// NewLavalinkAdapter creates a new LavalinkAdapter and connects to the node.
func NewLavalinkAdapter(
	ctx context.Context,
	session *discordgo.Session,
	botID snowflake.ID,
	config LavalinkConfig,
) (*LavalinkAdapter, error) {
	adapter := &LavalinkAdapter{
		session:    session,
		botID:      botID,
		handshakes: make(map[snowflake.ID]*voiceHandshake),
		playing:    make(map[snowflake.ID]playing),
	}

	adapter.link = disgolink.New(botID,
		disgolink.WithListenerFunc(adapter.onTrackStart),
		disgolink.WithListenerFunc(adapter.onTrackEnd),
		disgolink.WithListenerFunc(adapter.onTrackException),
		disgolink.WithListenerFunc(adapter.onTrackStuck),
	)

	node, err := adapter.link.AddNode(ctx, disgolink.NodeConfig{
		Name:     "main",
		Address:  config.Address,
		Password: config.Password,
		Secure:   config.Secure,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add Lavalink node: %w", err)
	}

	slog.Info("connected to Lavalink", "node", node.Config().Name, "address", config.Address)

	return adapter, nil
}

// SetEventPublisher sets where engine events are published.
func (c *LavalinkAdapter) SetEventPublisher(publisher ports.EventPublisher) {
	c.publisher = publisher
}

// Close disconnects from every node.
func (c *LavalinkAdapter) Close() {
	c.link.Close()
}

// Play starts the source of request, replacing whatever is playing.
// Sources without an engine handle are loaded by URI first.
func (c *LavalinkAdapter) Play(ctx context.Context, guildID snowflake.ID, request ports.PlayRequest) error {
	encoded := request.Source.Encoded
	if encoded == "" {
		track, err := c.loadOne(ctx, request.Track.ID, request.Source.URI)
		if err != nil {
			return fmt.Errorf("failed to load source: %w", err)
		}
		encoded = track.Encoded
	}

	c.playingMu.Lock()
	c.playing[guildID] = playing{trackID: request.Track.ID, encoded: encoded}
	c.playingMu.Unlock()

	opts := []lavalink.PlayerUpdateOpt{
		lavalink.WithEncodedTrack(encoded),
		lavalink.WithPaused(false),
	}
	if request.Volume > 0 {
		opts = append(opts, lavalink.WithVolume(request.Volume))
	}
	if request.Position > 0 {
		opts = append(opts, lavalink.WithPosition(toLavalinkDuration(request.Position)))
	}

	if err := c.link.Player(guildID).Update(ctx, opts...); err != nil {
		return fmt.Errorf("failed to play track: %w", err)
	}
	return nil
}

// Stop stops the current playback.
func (c *LavalinkAdapter) Stop(ctx context.Context, guildID snowflake.ID) error {
	c.forget(guildID)
	if err := c.link.Player(guildID).Update(ctx, lavalink.WithNullTrack()); err != nil {
		return fmt.Errorf("failed to stop playback: %w", err)
	}
	return nil
}

// Pause pauses the current playback.
func (c *LavalinkAdapter) Pause(ctx context.Context, guildID snowflake.ID) error {
	if err := c.link.Player(guildID).Update(ctx, lavalink.WithPaused(true)); err != nil {
		return fmt.Errorf("failed to pause playback: %w", err)
	}
	return nil
}

// Resume resumes the current playback.
func (c *LavalinkAdapter) Resume(ctx context.Context, guildID snowflake.ID) error {
	if err := c.link.Player(guildID).Update(ctx, lavalink.WithPaused(false)); err != nil {
		return fmt.Errorf("failed to resume playback: %w", err)
	}
	return nil
}

// Seek moves the playback position within the current item.
func (c *LavalinkAdapter) Seek(ctx context.Context, guildID snowflake.ID, position time.Duration) error {
	if err := c.link.Player(guildID).Update(ctx, lavalink.WithPosition(toLavalinkDuration(position))); err != nil {
		return fmt.Errorf("failed to seek: %w", err)
	}
	return nil
}

// Position returns the playback position within the current item.
func (c *LavalinkAdapter) Position(guildID snowflake.ID) time.Duration {
	player := c.link.ExistingPlayer(guildID)
	if player == nil || player.Track() == nil {
		return 0
	}
	return fromLavalinkDuration(player.Position())
}

func (c *LavalinkAdapter) forget(guildID snowflake.ID) {
	c.playingMu.Lock()
	defer c.playingMu.Unlock()
	delete(c.playing, guildID)
}

// trackIDOf maps an engine track back to the item it was played for.
func (c *LavalinkAdapter) trackIDOf(guildID snowflake.ID, track lavalink.Track) domain.TrackID {
	c.playingMu.Lock()
	current, ok := c.playing[guildID]
	c.playingMu.Unlock()

	if ok && current.encoded == track.Encoded {
		return current.trackID
	}
	return domain.TrackID(track.Info.Identifier)
}

// LoadTracks loads tracks from Lavalink.
func (c *LavalinkAdapter) LoadTracks(ctx context.Context, query string) (*ports.LoadResult, error) {
	result, err := c.load(ctx, query)
	if err != nil {
		return nil, err
	}
	return convertLoadResult(query, result), nil
}

// ResolvePlayback resolves a playable stream for id. The engine does not report
// loudness, so a known loudness is carried over.
func (c *LavalinkAdapter) ResolvePlayback(
	ctx context.Context,
	id domain.TrackID,
	known *domain.FormatRecord,
	quality ports.AudioQuality,
) (*ports.PlaybackData, error) {
	track, err := c.loadOne(ctx, id, domain.TrackQuery(id).LavalinkQuery())
	if err != nil {
		return nil, err
	}

	format := domain.FormatRecord{
		TrackID:     id,
		PlaybackURL: lo.FromPtr(track.Info.URI),
	}
	if known != nil {
		format.LoudnessDB = known.LoudnessDB
		format.Itag = known.Itag
	}

	slog.Debug("resolved playback",
		"track", id,
		"source", track.Info.SourceName,
		"quality", quality,
	)

	return &ports.PlaybackData{
		StreamURI:   lo.FromPtr(track.Info.URI),
		Encoded:     track.Encoded,
		Format:      format,
		TrackingURL: lo.FromPtr(track.Info.URI),
		Track:       convertTrack(track),
	}, nil
}

// ResolveRelated returns the tracks of the id's radio mix, without id itself.
func (c *LavalinkAdapter) ResolveRelated(ctx context.Context, id domain.TrackID) ([]domain.Track, error) {
	result, err := c.load(ctx, mixURL(id))
	if err != nil {
		return nil, err
	}

	loaded := convertLoadResult("", result)
	if loaded.Type == ports.LoadTypeError {
		return nil, &ports.RejectedError{TrackID: id, Reason: "related tracks unavailable"}
	}
	return lo.Filter(loaded.Tracks, func(t domain.Track, _ int) bool {
		return t.ID != id
	}), nil
}

// ResolveMetadata returns the remote metadata of id.
func (c *LavalinkAdapter) ResolveMetadata(ctx context.Context, id domain.TrackID) (*domain.Track, error) {
	track, err := c.loadOne(ctx, id, domain.TrackQuery(id).LavalinkQuery())
	if err != nil {
		return nil, err
	}
	converted := convertTrack(track)
	return &converted, nil
}

func (c *LavalinkAdapter) load(ctx context.Context, query string) (*lavalink.LoadResult, error) {
	node := c.link.BestNode()
	if node == nil {
		return nil, ErrNoNode
	}

	result, err := node.LoadTracks(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to load tracks: %w", err)
	}
	return result, nil
}

// loadOne loads query and returns its first track. Load failures reported by
// the node become a ports.RejectedError for id.
func (c *LavalinkAdapter) loadOne(ctx context.Context, id domain.TrackID, query string) (lavalink.Track, error) {
	result, err := c.load(ctx, query)
	if err != nil {
		return lavalink.Track{}, err
	}

	switch data := result.Data.(type) {
	case lavalink.Track:
		return data, nil
	case lavalink.Playlist:
		if len(data.Tracks) > 0 {
			return data.Tracks[max(data.Info.SelectedTrack, 0)%len(data.Tracks)], nil
		}
	case lavalink.Search:
		if len(data) > 0 {
			return data[0], nil
		}
	case lavalink.Exception:
		return lavalink.Track{}, &ports.RejectedError{TrackID: id, Reason: data.Message}
	}
	return lavalink.Track{}, &ports.RejectedError{TrackID: id, Reason: "no matches"}
}

func mixURL(id domain.TrackID) string {
	return "https://www.youtube.com/watch?v=" + string(id) + "&list=RD" + string(id)
}

// convertLoadResult converts Lavalink result to ports result.
func convertLoadResult(query string, result *lavalink.LoadResult) *ports.LoadResult {
	switch data := result.Data.(type) {
	case lavalink.Track:
		return &ports.LoadResult{
			Type:   ports.LoadTypeTrack,
			Tracks: []domain.Track{convertTrack(data)},
		}

	case lavalink.Playlist:
		playlistID := ""
		if strings.Contains(query, "://") {
			playlistID = query
		}
		return &ports.LoadResult{
			Type:          ports.LoadTypePlaylist,
			Tracks:        lo.Map(data.Tracks, func(t lavalink.Track, _ int) domain.Track { return convertTrack(t) }),
			PlaylistID:    playlistID,
			PlaylistTitle: data.Info.Name,
		}

	case lavalink.Search:
		return &ports.LoadResult{
			Type:   ports.LoadTypeSearch,
			Tracks: lo.Map(data, func(t lavalink.Track, _ int) domain.Track { return convertTrack(t) }),
		}

	case lavalink.Exception:
		return &ports.LoadResult{Type: ports.LoadTypeError}

	default:
		return &ports.LoadResult{Type: ports.LoadTypeEmpty}
	}
}

// convertTrack converts a Lavalink track to a domain track.
func convertTrack(track lavalink.Track) domain.Track {
	info := track.Info

	duration := domain.UnknownDuration
	if !info.IsStream {
		duration = int(fromLavalinkDuration(info.Length) / time.Second)
	}

	converted := domain.Track{
		ID:           domain.TrackID(info.Identifier),
		Title:        info.Title,
		Duration:     duration,
		ThumbnailURL: lo.FromPtr(info.ArtworkURL),
	}
	if info.Author != "" {
		converted.Artists = []domain.ArtistRef{{Name: info.Author}}
	}
	return converted
}

func toLavalinkDuration(d time.Duration) lavalink.Duration {
	return lavalink.Duration(d.Milliseconds())
}

func fromLavalinkDuration(d lavalink.Duration) time.Duration {
	return time.Duration(d) * time.Millisecond
}

func (c *LavalinkAdapter) onTrackStart(player disgolink.Player, event lavalink.TrackStartEvent) {
	slog.Debug("track started", "guild", player.GuildID(), "track", event.Track.Info.Title)
}

func (c *LavalinkAdapter) onTrackEnd(player disgolink.Player, event lavalink.TrackEndEvent) {
	slog.Debug("track ended", "guild", player.GuildID(), "reason", event.Reason)

	if c.publisher == nil {
		return
	}
	c.publisher.PublishTrackEnded(ports.TrackEndedEvent{
		GuildID: player.GuildID(),
		TrackID: c.trackIDOf(player.GuildID(), event.Track),
		Reason:  convertEndReason(event.Reason),
	})
}

func (c *LavalinkAdapter) onTrackException(player disgolink.Player, event lavalink.TrackExceptionEvent) {
	slog.Warn("track exception", "guild", player.GuildID(), "error", event.Exception.Message)

	if c.publisher == nil {
		return
	}
	c.publisher.PublishTrackException(ports.TrackExceptionEvent{
		GuildID: player.GuildID(),
		TrackID: c.trackIDOf(player.GuildID(), event.Track),
		Message: event.Exception.Message,
	})
}

func (c *LavalinkAdapter) onTrackStuck(player disgolink.Player, event lavalink.TrackStuckEvent) {
	slog.Warn("track stuck", "guild", player.GuildID(), "threshold", event.Threshold)

	if c.publisher == nil {
		return
	}
	c.publisher.PublishTrackException(ports.TrackExceptionEvent{
		GuildID: player.GuildID(),
		TrackID: c.trackIDOf(player.GuildID(), event.Track),
		Message: "the track got stuck",
	})
}

func convertEndReason(reason lavalink.TrackEndReason) domain.TrackEndReason {
	switch reason {
	case lavalink.TrackEndReasonFinished:
		return domain.TrackEndFinished
	case lavalink.TrackEndReasonLoadFailed:
		return domain.TrackEndLoadFailed
	case lavalink.TrackEndReasonStopped:
		return domain.TrackEndStopped
	case lavalink.TrackEndReasonReplaced:
		return domain.TrackEndReplaced
	case lavalink.TrackEndReasonCleanup:
		return domain.TrackEndCleanup
	default:
		return domain.TrackEndStopped
	}
}

// Ensure LavalinkAdapter implements port interfaces.
var (
	_ ports.AudioPlayer     = (*LavalinkAdapter)(nil)
	_ ports.VoiceConnection = (*LavalinkAdapter)(nil)
	_ ports.TrackSearcher   = (*LavalinkAdapter)(nil)
	_ ports.RemoteResolver  = (*LavalinkAdapter)(nil)
)
