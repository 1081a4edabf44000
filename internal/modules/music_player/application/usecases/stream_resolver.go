package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/sglre6355/sgrtune/internal/modules/music_player/application/ports"
	"github.com/sglre6355/sgrtune/internal/modules/music_player/domain"
)

// ChunkLength is the byte range served per remote source request.
const ChunkLength = 512 * 1024

const (
	defaultStreamValidity = 6 * time.Hour
	defaultResolveTimeout = 15 * time.Second
	defaultURLCacheSize   = 512
)

// StreamResolverConfig configures a StreamResolver.
type StreamResolverConfig struct {
	// PublicBaseURL is the base of byte-cache references handed to the engine.
	PublicBaseURL string
	// StreamValidity is used when the remote does not report how long a stream stays valid.
	StreamValidity time.Duration
	// ResolveTimeout bounds one remote resolution.
	ResolveTimeout time.Duration
	AudioQuality   ports.AudioQuality
	URLCacheSize   int
}

// ResolveRequest asks for a playable source of a byte range of a track.
type ResolveRequest struct {
	TrackID domain.TrackID
	Offset  int64
	// Length of the range, -1 for the rest of the stream.
	Length int64
}

// SourceResolver produces playable sources for tracks.
type SourceResolver interface {
	Resolve(ctx context.Context, request ResolveRequest) (*ports.StreamSource, error)
}

// Compile-time check that StreamResolver implements SourceResolver.
var _ SourceResolver = (*StreamResolver)(nil)

// urlEntry is an in-memory cached stream. Entries are replaced, never mutated.
type urlEntry struct {
	uri       string
	encoded   string
	format    *domain.FormatRecord
	expiresAt time.Time
}

// StreamResolver maps track ids to playable sources: local files first, then the
// durable byte cache, then still-valid cached stream URLs and finally the remote.
type StreamResolver struct {
	songs    domain.SongRepository
	formats  domain.FormatRepository
	remote   ports.RemoteResolver
	cache    ports.ByteCache
	backfill *Backfiller
	observer ports.ResolutionObserver
	cfg      StreamResolverConfig

	urls  *lru.Cache[domain.TrackID, urlEntry]
	group singleflight.Group

	now      func() time.Time
	statFile func(name string) error

	// ctx outlives callers; remote resolutions run on it so a caller giving up
	// does not abort a resolution other callers share.
	ctx    context.Context
	cancel context.CancelFunc
	mu     sync.RWMutex
	closed bool
}

// StreamResolverOption configures a StreamResolver.
type StreamResolverOption func(*StreamResolver)

// WithByteCache sets the durable byte cache.
func WithByteCache(cache ports.ByteCache) StreamResolverOption {
	return func(r *StreamResolver) {
		r.cache = cache
	}
}

// WithResolutionObserver sets the observer notified of resolution outcomes.
func WithResolutionObserver(observer ports.ResolutionObserver) StreamResolverOption {
	return func(r *StreamResolver) {
		r.observer = observer
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) StreamResolverOption {
	return func(r *StreamResolver) {
		r.now = now
	}
}

// WithFileCheck overrides how local files are checked for existence.
func WithFileCheck(stat func(name string) error) StreamResolverOption {
	return func(r *StreamResolver) {
		r.statFile = stat
	}
}

// NewStreamResolver creates a new StreamResolver.
func NewStreamResolver(
	songs domain.SongRepository,
	formats domain.FormatRepository,
	remote ports.RemoteResolver,
	backfill *Backfiller,
	cfg StreamResolverConfig,
	opts ...StreamResolverOption,
) (*StreamResolver, error) {
	if cfg.StreamValidity <= 0 {
		cfg.StreamValidity = defaultStreamValidity
	}
	if cfg.ResolveTimeout <= 0 {
		cfg.ResolveTimeout = defaultResolveTimeout
	}
	if cfg.URLCacheSize <= 0 {
		cfg.URLCacheSize = defaultURLCacheSize
	}
	if cfg.AudioQuality == "" {
		cfg.AudioQuality = ports.AudioQualityAuto
	}
	cfg.PublicBaseURL = strings.TrimRight(cfg.PublicBaseURL, "/")

	urls, err := lru.New[domain.TrackID, urlEntry](cfg.URLCacheSize)
	if err != nil {
		return nil, fmt.Errorf("create url cache: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	r := &StreamResolver{
		songs:    songs,
		formats:  formats,
		remote:   remote,
		backfill: backfill,
		cfg:      cfg,
		urls:     urls,
		now:      time.Now,
		statFile: func(name string) error {
			_, err := os.Stat(name)
			return err
		},
		ctx:    ctx,
		cancel: cancel,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Resolve returns a playable source for the request.
// Failures are returned as *PlaybackError.
func (r *StreamResolver) Resolve(
	ctx context.Context,
	request ResolveRequest,
) (*ports.StreamSource, error) {
	source, err := r.resolve(ctx, request)
	if err != nil {
		playbackErr := ClassifyError(request.TrackID, err)
		if r.observer != nil {
			r.observer.ResolutionFailed(playbackErr.Kind.String())
		}
		return nil, playbackErr
	}
	if r.observer != nil {
		r.observer.ResolutionServed(source.Kind)
	}
	return source, nil
}

func (r *StreamResolver) resolve(
	ctx context.Context,
	request ResolveRequest,
) (*ports.StreamSource, error) {
	id := request.TrackID

	if id.IsLocal() {
		return r.resolveLocal(ctx, request)
	}

	if r.cache != nil {
		if r.isCached(ctx, request) {
			r.triggerBackfill(id, nil)
			return &ports.StreamSource{
				Kind:   ports.SourceCache,
				URI:    r.cfg.PublicBaseURL + "/stream/" + url.PathEscape(string(id)),
				Offset: request.Offset,
				Length: request.Length,
			}, nil
		}
	}

	if entry, ok := r.urls.Get(id); ok && r.now().Before(entry.expiresAt) {
		r.triggerBackfill(id, nil)
		return &ports.StreamSource{
			Kind:    ports.SourceMemory,
			URI:     entry.uri,
			Encoded: entry.encoded,
			Offset:  request.Offset,
			Length:  request.Length,
			Format:  entry.format,
		}, nil
	}

	entry, err := r.resolveShared(ctx, id)
	if err != nil {
		return nil, err
	}
	return &ports.StreamSource{
		Kind:    ports.SourceRemote,
		URI:     entry.uri,
		Encoded: entry.encoded,
		Offset:  request.Offset,
		Length:  ChunkLength,
		Format:  entry.format,
	}, nil
}

// isCached reports whether the requested range can be served from the byte
// cache. A negative length reads to the end, which an object holding the whole
// track covers whenever the offset lies within it.
func (r *StreamResolver) isCached(ctx context.Context, request ResolveRequest) bool {
	if request.Length >= 0 {
		return r.cache.IsCached(ctx, request.TrackID, request.Offset, request.Length)
	}
	size, err := r.cache.Size(ctx, request.TrackID)
	return err == nil && request.Offset <= size
}

func (r *StreamResolver) resolveLocal(
	ctx context.Context,
	request ResolveRequest,
) (*ports.StreamSource, error) {
	notFound := &PlaybackError{Kind: KindNotFound, TrackID: request.TrackID}

	song, err := r.songs.GetSong(ctx, request.TrackID)
	if err != nil {
		return nil, fmt.Errorf("get song: %w", err)
	}
	if song == nil || song.LocalPath == "" {
		return nil, notFound
	}
	if err := r.statFile(song.LocalPath); err != nil {
		notFound.Cause = song.LocalPath
		notFound.Err = err
		return nil, notFound
	}

	return &ports.StreamSource{
		Kind:   ports.SourceLocal,
		URI:    song.LocalPath,
		Offset: request.Offset,
		Length: request.Length,
	}, nil
}

// resolveShared collapses concurrent remote resolutions of the same id into one.
func (r *StreamResolver) resolveShared(ctx context.Context, id domain.TrackID) (urlEntry, error) {
	ch := r.group.DoChan(string(id), func() (any, error) {
		return r.resolveRemote(id)
	})

	select {
	case <-ctx.Done():
		return urlEntry{}, ctx.Err()
	case result := <-ch:
		if result.Err != nil {
			return urlEntry{}, result.Err
		}
		return result.Val.(urlEntry), nil
	}
}

func (r *StreamResolver) resolveRemote(id domain.TrackID) (urlEntry, error) {
	ctx, cancel := context.WithTimeout(r.ctx, r.cfg.ResolveTimeout)
	defer cancel()

	known, err := r.formats.ReadFormat(ctx, id)
	if err != nil {
		slog.Warn("failed to read stored format", "track", id, "error", err)
		known = nil
	}

	started := r.now()
	data, err := r.remote.ResolvePlayback(ctx, id, known, r.cfg.AudioQuality)
	if r.observer != nil {
		r.observer.RemoteResolveDuration(r.now().Sub(started))
	}
	if err != nil {
		if r.isClosed() {
			return urlEntry{}, ErrResolverClosed
		}
		return urlEntry{}, err
	}
	if data == nil || data.StreamURI == "" {
		return urlEntry{}, &ports.RejectedError{TrackID: id, Reason: "no playable stream"}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return urlEntry{}, ErrResolverClosed
	}

	format := data.Format
	format.TrackID = id
	if data.TrackingURL != "" {
		format.PlaybackURL = data.TrackingURL
	}
	if err := r.formats.UpsertFormat(ctx, format); err != nil {
		slog.Warn("failed to store format", "track", id, "error", err)
	}

	validity := data.ExpiresIn
	if validity <= 0 {
		validity = r.cfg.StreamValidity
	}
	entry := urlEntry{
		uri:       data.StreamURI,
		encoded:   data.Encoded,
		format:    &format,
		expiresAt: r.now().Add(validity),
	}
	r.urls.Add(id, entry)

	r.triggerBackfill(id, data)

	return entry, nil
}

func (r *StreamResolver) triggerBackfill(id domain.TrackID, data *ports.PlaybackData) {
	if r.backfill != nil {
		r.backfill.Trigger(id, data)
	}
}

// Invalidate drops the cached stream URL of id, e.g. after the engine failed to open it.
func (r *StreamResolver) Invalidate(id domain.TrackID) {
	r.urls.Remove(id)
}

func (r *StreamResolver) isClosed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.closed
}

// Close abandons in-flight remote resolutions. Their results are discarded.
func (r *StreamResolver) Close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.cancel()
}

// IsAbandoned reports whether err comes from a resolution abandoned by Close.
func IsAbandoned(err error) bool {
	return errors.Is(err, ErrResolverClosed)
}
