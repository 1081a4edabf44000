package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/samber/lo"
	"github.com/sglre6355/sgrtune/internal/modules/music_player/application/ports"
	"github.com/sglre6355/sgrtune/internal/modules/music_player/domain"
)

// backfillTimeout bounds one background backfill.
const backfillTimeout = 30 * time.Second

// Backfiller enriches stored track metadata after a successful resolution:
// it inserts unknown tracks, corrects unknown durations and populates related tracks.
// Running it more than once for the same track is harmless.
type Backfiller struct {
	songs  domain.SongRepository
	remote ports.RemoteResolver

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	inflight map[domain.TrackID]struct{}
}

// NewBackfiller creates a new Backfiller.
func NewBackfiller(songs domain.SongRepository, remote ports.RemoteResolver) *Backfiller {
	ctx, cancel := context.WithCancel(context.Background())
	return &Backfiller{
		songs:    songs,
		remote:   remote,
		ctx:      ctx,
		cancel:   cancel,
		inflight: make(map[domain.TrackID]struct{}),
	}
}

// Trigger runs the backfill for id in the background. Failures are logged and
// never reach the caller. A trigger for an id that is already being backfilled is dropped.
func (b *Backfiller) Trigger(id domain.TrackID, data *ports.PlaybackData) {
	if id.IsLocal() {
		return
	}

	b.mu.Lock()
	if _, ok := b.inflight[id]; ok || b.ctx.Err() != nil {
		b.mu.Unlock()
		return
	}
	b.inflight[id] = struct{}{}
	b.wg.Add(1)
	b.mu.Unlock()

	go func() {
		defer b.wg.Done()
		defer func() {
			b.mu.Lock()
			delete(b.inflight, id)
			b.mu.Unlock()
		}()

		ctx, cancel := context.WithTimeout(b.ctx, backfillTimeout)
		defer cancel()

		if err := b.Run(ctx, id, data); err != nil {
			slog.Warn("failed to backfill track metadata", "track", id, "error", err)
		}
	}()
}

// Run backfills id synchronously. data is the result of the resolution that
// triggered the backfill, if any.
func (b *Backfiller) Run(ctx context.Context, id domain.TrackID, data *ports.PlaybackData) error {
	song, err := b.songs.GetSong(ctx, id)
	if err != nil {
		return fmt.Errorf("get song: %w", err)
	}

	if song == nil || !song.HasDuration() {
		if err := b.recoverSong(ctx, id, song, data); err != nil {
			return err
		}
	}

	hasRelated, err := b.songs.HasRelatedSongs(ctx, id)
	if err != nil {
		return fmt.Errorf("check related songs: %w", err)
	}
	if hasRelated {
		return nil
	}

	related, err := b.remote.ResolveRelated(ctx, id)
	if err != nil {
		return fmt.Errorf("resolve related songs: %w", err)
	}
	related = lo.Filter(related, func(t domain.Track, _ int) bool {
		return t.ID != id
	})
	if len(related) == 0 {
		return nil
	}
	if err := b.songs.InsertRelatedSongs(ctx, id, related); err != nil {
		return fmt.Errorf("insert related songs: %w", err)
	}
	return nil
}

// recoverSong stores an unknown track or fixes its unknown duration, preferring
// the stored duration, then the resolution's, then the remote metadata's.
func (b *Backfiller) recoverSong(
	ctx context.Context,
	id domain.TrackID,
	song *domain.Track,
	data *ports.PlaybackData,
) error {
	var metadata *domain.Track
	if data != nil {
		metadata = &data.Track
	}
	if metadata == nil || !metadata.HasDuration() {
		remote, err := b.remote.ResolveMetadata(ctx, id)
		if err != nil {
			slog.Debug("failed to resolve track metadata", "track", id, "error", err)
		} else if remote != nil {
			metadata = remote
		}
	}

	duration := domain.UnknownDuration
	if metadata != nil && metadata.HasDuration() {
		duration = metadata.Duration
	}

	if song == nil {
		track := domain.Track{ID: id, Duration: duration}
		if metadata != nil {
			track = metadata.WithDuration(duration)
			track.ID = id
		}
		if err := b.songs.InsertSongs(ctx, []domain.Track{track}); err != nil {
			return fmt.Errorf("insert song: %w", err)
		}
		return nil
	}

	if duration == domain.UnknownDuration {
		return nil
	}
	if err := b.songs.UpdateDuration(ctx, id, duration); err != nil {
		return fmt.Errorf("update duration: %w", err)
	}
	return nil
}

// Close cancels running backfills and waits for them to return.
func (b *Backfiller) Close() {
	b.mu.Lock()
	b.cancel()
	b.mu.Unlock()
	b.wg.Wait()
}
