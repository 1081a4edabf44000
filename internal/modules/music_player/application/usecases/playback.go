package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/sgrtune/internal/modules/music_player/application/ports"
	"github.com/sglre6355/sgrtune/internal/modules/music_player/domain"
)

// DefaultMaxConsecutiveErrors is the skip budget used when none is configured.
const DefaultMaxConsecutiveErrors = 3

// flushTimeout bounds a background queue flush.
const flushTimeout = 30 * time.Second

// PlaybackConfig tunes the playback policies.
type PlaybackConfig struct {
	// PersistentQueue loads queues on init and flushes them on deinit.
	PersistentQueue bool
	// SkipOnError skips to the next item when an item fails.
	SkipOnError          bool
	MaxConsecutiveErrors int
	// NormalizeAudio scales the volume by the track's loudness.
	NormalizeAudio bool
}

// PlayQueueInput contains the input for the PlayQueue use case.
type PlayQueueInput struct {
	GuildID    snowflake.ID
	Title      string
	Tracks     []domain.Track
	StartIndex int
	// Replace swaps the contents of the current queue instead of adding a queue.
	Replace bool
	// ForceInsert always creates a new queue.
	ForceInsert bool
	// Shuffle shuffles the queue before playback starts.
	Shuffle               bool
	PlaylistID            string
	NotificationChannelID snowflake.ID // Optional: updates notification channel if non-zero
}

// PlayQueueOutput contains the result of the PlayQueue use case.
type PlayQueueOutput struct {
	Track      *domain.Track // nil if another item was started meanwhile
	QueueTitle string
	QueueSize  int
}

// EnqueueInput contains the input for the EnqueueNext and EnqueueEnd use cases.
type EnqueueInput struct {
	GuildID               snowflake.ID
	Tracks                []domain.Track
	NotificationChannelID snowflake.ID // Optional: updates notification channel if non-zero
}

// EnqueueOutput contains the result of the EnqueueNext and EnqueueEnd use cases.
type EnqueueOutput struct {
	// Started is the item that started playing, if the player was idle.
	Started *domain.Track
	// NewQueue reports whether the items were played as a new queue.
	NewQueue bool
	// Position is the timeline index of the first enqueued item.
	Position int
}

// PauseInput contains the input for the Pause use case.
type PauseInput struct {
	GuildID               snowflake.ID
	NotificationChannelID snowflake.ID // Optional: updates notification channel if non-zero
}

// ResumeInput contains the input for the Resume use case.
type ResumeInput struct {
	GuildID               snowflake.ID
	NotificationChannelID snowflake.ID // Optional: updates notification channel if non-zero
}

// SkipInput contains the input for the Skip use case.
type SkipInput struct {
	GuildID               snowflake.ID
	NotificationChannelID snowflake.ID // Optional: updates notification channel if non-zero
}

// SkipOutput contains the result of the Skip use case.
type SkipOutput struct {
	SkippedTrack *domain.Track
	NextTrack    *domain.Track // nil if the timeline ended
}

// SeekInput contains the input for the Seek use case.
type SeekInput struct {
	GuildID               snowflake.ID
	Index                 int // 0-indexed timeline position
	NotificationChannelID snowflake.ID
}

// SetRepeatModeInput contains the input for the SetRepeatMode use case.
type SetRepeatModeInput struct {
	GuildID               snowflake.ID
	Mode                  string // "off", "one", "all"
	NotificationChannelID snowflake.ID
}

// PlaybackService orchestrates a guild's queue board, its timeline and the
// playback engine.
//
// Board and timeline mutations for a guild are serialized by a per-guild lock.
// Stream resolution runs without the lock; its result is dropped when another
// item was started in the meantime.
type PlaybackService struct {
	repo        domain.PlayerStateRepository
	queues      domain.QueueRepository
	resolver    SourceResolver
	audioPlayer ports.AudioPlayer
	publisher   ports.EventPublisher
	observer    ports.PlaybackObserver
	cfg         PlaybackConfig

	locksMu sync.Mutex
	locks   map[snowflake.ID]*sync.Mutex

	flushes sync.WaitGroup
}

// NewPlaybackService creates a new PlaybackService.
func NewPlaybackService(
	repo domain.PlayerStateRepository,
	queues domain.QueueRepository,
	resolver SourceResolver,
	audioPlayer ports.AudioPlayer,
	publisher ports.EventPublisher,
	observer ports.PlaybackObserver,
	cfg PlaybackConfig,
) *PlaybackService {
	if cfg.MaxConsecutiveErrors <= 0 {
		cfg.MaxConsecutiveErrors = DefaultMaxConsecutiveErrors
	}
	return &PlaybackService{
		repo:        repo,
		queues:      queues,
		resolver:    resolver,
		audioPlayer: audioPlayer,
		publisher:   publisher,
		observer:    observer,
		cfg:         cfg,
		locks:       make(map[snowflake.ID]*sync.Mutex),
	}
}

func (p *PlaybackService) lock(guildID snowflake.ID) func() {
	p.locksMu.Lock()
	mu, ok := p.locks[guildID]
	if !ok {
		mu = &sync.Mutex{}
		p.locks[guildID] = mu
	}
	p.locksMu.Unlock()

	mu.Lock()
	return mu.Unlock
}

// View runs fn with the guild's state while holding the guild lock.
// fn must not retain the state.
func (p *PlaybackService) View(guildID snowflake.ID, fn func(state *domain.PlayerState)) error {
	unlock := p.lock(guildID)
	defer unlock()

	state := p.repo.Get(guildID)
	if state == nil {
		return ErrNotConnected
	}
	fn(state)
	return nil
}

// getState returns the guild's state, updating its notification channel if provided.
func (p *PlaybackService) getState(guildID, notificationChannelID snowflake.ID) (*domain.PlayerState, error) {
	state := p.repo.Get(guildID)
	if state == nil {
		return nil, ErrNotConnected
	}
	if notificationChannelID != 0 {
		state.SetNotificationChannelID(notificationChannelID)
	}
	return state, nil
}

// InitQueue hydrates the guild's board from persisted queues. It is a no-op when
// the board is already initialized or persistence is disabled. The board is
// marked initialized only if a current queue was loaded.
func (p *PlaybackService) InitQueue(ctx context.Context, guildID snowflake.ID) error {
	unlock := p.lock(guildID)
	defer unlock()

	state := p.repo.Get(guildID)
	if state == nil {
		return ErrNotConnected
	}
	return p.initLocked(ctx, state)
}

func (p *PlaybackService) initLocked(ctx context.Context, state *domain.PlayerState) error {
	board := state.Board()
	if board.Initialized() || !p.cfg.PersistentQueue || p.queues == nil {
		return nil
	}

	queues, err := p.queues.ReadQueues(ctx, state.GetGuildID())
	if err != nil {
		return fmt.Errorf("read queues: %w", err)
	}
	board.Hydrate(queues)

	current := board.GetCurrentQueue()
	if current == nil {
		return nil
	}

	position, err := p.queues.ReadLastPosition(ctx, state.GetGuildID())
	if err != nil {
		slog.Warn("failed to read last playback position",
			"guild", state.GetGuildID(),
			"error", err,
		)
	}
	state.SetLastPosition(position)
	// Load the restored queue into the timeline without starting it, so the
	// cursor of later enqueues and flushes is the saved one.
	board.SetCurrQueue(true)
	board.SetInitialized(true)

	slog.Info("restored queues",
		"guild", state.GetGuildID(),
		"queues", board.Len(),
		"current", current.Title(),
	)
	return nil
}

// syncPositionLocked records the engine's index as the current queue's
// position. An empty timeline never held the queue, so its position stands.
func syncPositionLocked(state *domain.PlayerState) {
	if state.Len() == 0 {
		return
	}
	state.Board().SetCurrQueuePosIndex(state.CurrentIndex())
}

// DeInitQueue marks the board uninitialized and flushes a snapshot of its queues
// and the playback position in the background. The flush is skipped when nothing
// was loaded or played, so persisted queues are not overwritten by an empty board.
func (p *PlaybackService) DeInitQueue(ctx context.Context, guildID snowflake.ID) {
	unlock := p.lock(guildID)
	defer unlock()

	state := p.repo.Get(guildID)
	if state == nil {
		return
	}

	board := state.Board()
	initialized := board.Initialized()
	board.SetInitialized(false)
	if !initialized || !p.cfg.PersistentQueue || p.queues == nil {
		return
	}

	syncPositionLocked(state)
	snapshot := board.GetAllQueues()
	var position time.Duration
	if state.IsPlaybackActive() {
		position = p.audioPlayer.Position(guildID)
	}

	p.flushes.Add(1)
	go func() {
		defer p.flushes.Done()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), flushTimeout)
		defer cancel()

		p.flush(ctx, guildID, snapshot, position)
	}()
}

func (p *PlaybackService) flush(
	ctx context.Context,
	guildID snowflake.ID,
	queues []*domain.MultiQueue,
	position time.Duration,
) {
	result := "ok"
	defer func() {
		if p.observer != nil {
			p.observer.QueueFlushed(result)
		}
	}()

	if err := p.queues.WriteQueues(ctx, guildID, queues); err != nil {
		result = "error"
		slog.Warn("failed to flush queues", "guild", guildID, "error", err)
		return
	}
	if err := p.queues.WriteLastPosition(ctx, guildID, position); err != nil {
		result = "error"
		slog.Warn("failed to flush playback position", "guild", guildID, "error", err)
		return
	}
	slog.Debug("flushed queues", "guild", guildID, "queues", len(queues))
}

// PlayQueue plays tracks as a queue, initializing the board first if needed.
func (p *PlaybackService) PlayQueue(ctx context.Context, input PlayQueueInput) (*PlayQueueOutput, error) {
	if len(input.Tracks) == 0 {
		return nil, ErrQueueEmpty
	}

	unlock := p.lock(input.GuildID)
	state, err := p.getState(input.GuildID, input.NotificationChannelID)
	if err != nil {
		unlock()
		return nil, err
	}

	board := state.Board()
	if !board.Initialized() {
		if err := p.initLocked(ctx, state); err != nil {
			slog.Warn("failed to restore queues", "guild", input.GuildID, "error", err)
		}
		board.SetInitialized(true)
	}

	title := input.Title
	if title == "" {
		title = domain.DefaultQueueTitle
	}
	board.AddQueue(title, input.Tracks, domain.AddQueueOptions{
		StartIndex:  max(0, input.StartIndex),
		Replace:     input.Replace,
		ForceInsert: input.ForceInsert,
		PlaylistID:  input.PlaylistID,
	})
	if board.SetCurrQueue(true) == nil {
		unlock()
		return nil, ErrQueueEmpty
	}
	if input.Shuffle {
		board.ShuffleCurrent(true)
	}

	current := board.GetCurrentQueue()
	output := &PlayQueueOutput{QueueTitle: current.Title(), QueueSize: current.Len()}
	p.publishFinishedLocked(state)
	generation := state.NextGeneration()
	unlock()

	track, err := p.play(ctx, input.GuildID, generation, 0)
	if err != nil {
		return nil, err
	}
	output.Track = track
	return output, nil
}

// EnqueueNext inserts tracks right after the playing item of the current queue.
// Without an initialized board the tracks are played as a new queue titled after
// the first track.
func (p *PlaybackService) EnqueueNext(ctx context.Context, input EnqueueInput) (*EnqueueOutput, error) {
	return p.enqueue(ctx, input, func(state *domain.PlayerState, queueID string) int {
		at := state.CurrentIndex() + 1
		state.Board().AddSongsToQueue(queueID, at, input.Tracks)
		return at
	})
}

// EnqueueEnd appends tracks to the current queue. Without a current queue it
// behaves like EnqueueNext.
func (p *PlaybackService) EnqueueEnd(ctx context.Context, input EnqueueInput) (*EnqueueOutput, error) {
	return p.enqueue(ctx, input, func(state *domain.PlayerState, _ string) int {
		at := state.Len()
		state.Board().EnqueueEnd(input.Tracks)
		return at
	})
}

func (p *PlaybackService) enqueue(
	ctx context.Context,
	input EnqueueInput,
	insert func(state *domain.PlayerState, queueID string) int,
) (*EnqueueOutput, error) {
	if len(input.Tracks) == 0 {
		return nil, ErrQueueEmpty
	}

	unlock := p.lock(input.GuildID)
	state, err := p.getState(input.GuildID, input.NotificationChannelID)
	if err != nil {
		unlock()
		return nil, err
	}

	board := state.Board()
	current := board.GetCurrentQueue()
	if !board.Initialized() || current == nil {
		unlock()
		out, err := p.PlayQueue(ctx, PlayQueueInput{
			GuildID: input.GuildID,
			Title:   input.Tracks[0].Title,
			Tracks:  input.Tracks,
		})
		if err != nil {
			return nil, err
		}
		return &EnqueueOutput{Started: out.Track, NewQueue: true}, nil
	}

	syncPositionLocked(state)
	at := insert(state, current.ID())
	output := &EnqueueOutput{Position: at}

	if state.IsPlaybackActive() || !state.SetCurrentIndex(at) {
		unlock()
		return output, nil
	}

	// Idle player: start the first enqueued item.
	board.SetCurrQueuePosIndex(at)
	generation := state.NextGeneration()
	unlock()

	track, err := p.play(ctx, input.GuildID, generation, 0)
	if err != nil {
		return nil, err
	}
	output.Started = track
	return output, nil
}

// TriggerShuffle toggles shuffle on the current queue without restarting the
// playing item. It returns whether shuffle is now enabled.
func (p *PlaybackService) TriggerShuffle(ctx context.Context, guildID snowflake.ID) (bool, error) {
	unlock := p.lock(guildID)
	defer unlock()

	state := p.repo.Get(guildID)
	if state == nil {
		return false, ErrNotConnected
	}
	board := state.Board()
	current := board.GetCurrentQueue()
	if current == nil {
		return false, ErrQueueEmpty
	}

	syncPositionLocked(state)
	if current.IsShuffled() {
		board.UnShuffleCurrent()
		board.SetCurrQueue(true)
		return false, nil
	}
	board.ShuffleCurrent(true)
	return true, nil
}

// HandleTransition moves the guild's engine from one item to another and starts it.
func (p *PlaybackService) HandleTransition(
	ctx context.Context,
	guildID snowflake.ID,
	to int,
	reason domain.TransitionReason,
) (*domain.Track, error) {
	unlock := p.lock(guildID)
	state := p.repo.Get(guildID)
	if state == nil {
		unlock()
		return nil, ErrNotConnected
	}
	if to < 0 || to >= state.Len() {
		unlock()
		return nil, ErrInvalidPosition
	}

	p.publishFinishedLocked(state)
	p.transitionLocked(state, state.CurrentIndex(), to, reason)
	generation := state.NextGeneration()
	unlock()

	return p.play(ctx, guildID, generation, 0)
}

// transitionLocked records a move from one timeline index to another. When
// shuffle and repeat-all are on and playback wraps from the last item to the
// first, the queue is reshuffled so loops do not replay the same order.
func (p *PlaybackService) transitionLocked(
	state *domain.PlayerState,
	from, to int,
	reason domain.TransitionReason,
) {
	state.RecordTransition()
	board := state.Board()

	if state.ShuffleEnabled() && state.RepeatMode() == domain.RepeatAll &&
		domain.IsWrapAround(from, to, state.Len(), reason) {
		board.SetCurrQueuePosIndex(to)
		board.ShuffleCurrent(false)
		if board.SetCurrQueue(false) != nil {
			slog.Debug("reshuffled queue on wrap-around", "guild", state.GetGuildID())
			return
		}
	}

	state.SetCurrentIndex(to)
	board.SetCurrQueuePosIndex(to)
}

// Seek jumps to a timeline index.
func (p *PlaybackService) Seek(ctx context.Context, input SeekInput) (*domain.Track, error) {
	unlock := p.lock(input.GuildID)
	_, err := p.getState(input.GuildID, input.NotificationChannelID)
	unlock()
	if err != nil {
		return nil, err
	}
	return p.HandleTransition(ctx, input.GuildID, input.Index, domain.TransitionSeek)
}

// HandleTrackEnded advances the timeline after the engine finished an item.
func (p *PlaybackService) HandleTrackEnded(ctx context.Context, event ports.TrackEndedEvent) {
	if !event.Reason.ShouldAdvance() {
		slog.Debug("track ended but should not advance",
			"guild", event.GuildID,
			"reason", event.Reason,
		)
		return
	}

	unlock := p.lock(event.GuildID)
	state := p.repo.Get(event.GuildID)
	if state == nil {
		unlock()
		return
	}
	if current := state.CurrentTrack(); current == nil || current.ID != event.TrackID {
		unlock()
		slog.Debug("ignoring end of stale track", "guild", event.GuildID, "track", event.TrackID)
		return
	}

	p.publishFinishedLocked(state)

	next := state.NextIndex()
	if next < 0 {
		state.SetPlaybackActive(false)
		unlock()
		slog.Debug("reached end of queue", "guild", event.GuildID)
		return
	}

	reason := domain.TransitionAuto
	if state.RepeatMode() == domain.RepeatOne {
		reason = domain.TransitionRepeat
	}
	p.transitionLocked(state, state.CurrentIndex(), next, reason)
	generation := state.NextGeneration()
	unlock()

	if _, err := p.play(ctx, event.GuildID, generation, 0); err != nil {
		slog.Error("failed to play next track after track ended",
			"guild", event.GuildID,
			"error", err,
		)
	}
}

// HandlePlaybackError applies the skip policy after the engine failed an item.
func (p *PlaybackService) HandlePlaybackError(ctx context.Context, event ports.TrackExceptionEvent) {
	unlock := p.lock(event.GuildID)
	state := p.repo.Get(event.GuildID)
	if state == nil {
		unlock()
		return
	}
	current := state.CurrentTrack()
	if current == nil || current.ID != event.TrackID {
		unlock()
		return
	}

	if invalidator, ok := p.resolver.(interface{ Invalidate(domain.TrackID) }); ok {
		invalidator.Invalidate(current.ID)
	}

	err := &PlaybackError{Kind: KindRemote, TrackID: current.ID, Cause: event.Message}
	if !p.failLocked(ctx, state, *current, err) {
		unlock()
		return
	}
	generation := state.Generation()
	unlock()

	if _, err := p.play(ctx, event.GuildID, generation, 0); err != nil {
		slog.Error("failed to play next track after playback error",
			"guild", event.GuildID,
			"error", err,
		)
	}
}

// failLocked publishes a playback failure and applies the skip policy. Each
// failure adds two to the error counter and every transition takes one off;
// while the counter stays within the budget and an item follows, playback
// skips to it, otherwise it stops and the counter resets. It reports whether
// a skip happened.
func (p *PlaybackService) failLocked(
	ctx context.Context,
	state *domain.PlayerState,
	track domain.Track,
	err error,
) bool {
	playbackErr := ClassifyError(track.ID, err)
	slog.Warn("playback failed",
		"guild", state.GetGuildID(),
		"track", track.ID,
		"kind", playbackErr.Kind.String(),
		"error", err,
	)

	next := p.skipIndex(state)
	skip := false
	if p.cfg.SkipOnError {
		count := state.RecordError()
		skip = count <= p.cfg.MaxConsecutiveErrors && next >= 0
	}

	p.publishError(state, track.ID, playbackErr.UserMessage(), skip)

	if skip {
		p.observePlaybackError("skip")
		p.transitionLocked(state, state.CurrentIndex(), next, domain.TransitionAuto)
		state.NextGeneration()
		return true
	}

	p.observePlaybackError("pause")
	state.ResetErrors()
	state.SetPlaybackActive(false)
	state.SetPaused(false)
	if err := p.audioPlayer.Stop(ctx, state.GetGuildID()); err != nil {
		slog.Debug("failed to stop player after playback error",
			"guild", state.GetGuildID(),
			"error", err,
		)
	}
	return false
}

// skipIndex returns the item a skip moves to, or -1. Repeat-one does not hold
// a skip on the same item.
func (p *PlaybackService) skipIndex(state *domain.PlayerState) int {
	if state.HasNext() {
		return state.CurrentIndex() + 1
	}
	if state.RepeatMode() == domain.RepeatAll && state.Len() > 1 {
		return 0
	}
	return -1
}

// play resolves and starts the guild's current item for generation. Resolution
// failures go through the skip policy, which may move on to the next item.
// It returns nil without error when a newer item superseded the request.
func (p *PlaybackService) play(
	ctx context.Context,
	guildID snowflake.ID,
	generation uint64,
	startAt time.Duration,
) (*domain.Track, error) {
	for {
		unlock := p.lock(guildID)
		state := p.repo.Get(guildID)
		if state == nil {
			unlock()
			return nil, ErrNotConnected
		}
		if state.Generation() != generation {
			unlock()
			return nil, nil
		}
		track := state.CurrentTrack()
		if track == nil {
			unlock()
			return nil, ErrQueueEmpty
		}
		unlock()

		source, err := p.resolver.Resolve(ctx, ResolveRequest{TrackID: track.ID, Length: -1})

		unlock = p.lock(guildID)
		state = p.repo.Get(guildID)
		if state == nil || state.Generation() != generation {
			unlock()
			return nil, nil
		}

		if err == nil {
			err = p.audioPlayer.Play(ctx, guildID, ports.PlayRequest{
				Track:    *track,
				Source:   *source,
				Volume:   p.volume(source.Format),
				Position: startAt,
			})
		}
		if err == nil {
			state.SetPlaybackActive(true)
			state.SetPaused(false)
			p.publishStartedLocked(state, *track, source.Kind)
			unlock()
			return track, nil
		}

		if IsAbandoned(err) || !p.failLocked(ctx, state, *track, err) {
			unlock()
			return nil, err
		}
		generation = state.Generation()
		startAt = 0
		unlock()
	}
}

// volume converts the loudness normalization factor to an engine volume.
func (p *PlaybackService) volume(format *domain.FormatRecord) int {
	return int(math.Round(format.NormalizeFactor(p.cfg.NormalizeAudio) * 100))
}

// ResumeQueue pushes the current queue to the engine and plays it from the saved
// queue position and playback position.
func (p *PlaybackService) ResumeQueue(ctx context.Context, guildID snowflake.ID) (*domain.Track, error) {
	unlock := p.lock(guildID)
	state := p.repo.Get(guildID)
	if state == nil {
		unlock()
		return nil, ErrNotConnected
	}

	board := state.Board()
	if !board.Initialized() {
		if err := p.initLocked(ctx, state); err != nil {
			unlock()
			return nil, err
		}
	}
	if board.SetCurrQueue(false) == nil {
		unlock()
		return nil, ErrQueueEmpty
	}

	position := state.LastPosition()
	state.SetLastPosition(0)
	generation := state.NextGeneration()
	unlock()

	return p.play(ctx, guildID, generation, position)
}

// SwitchQueue makes a queue current and plays it from its saved position.
func (p *PlaybackService) SwitchQueue(
	ctx context.Context,
	guildID snowflake.ID,
	queueID string,
) (*domain.Track, error) {
	unlock := p.lock(guildID)
	state := p.repo.Get(guildID)
	if state == nil {
		unlock()
		return nil, ErrNotConnected
	}

	syncPositionLocked(state)
	board := state.Board()
	if !board.SetCurrentQueue(queueID) {
		unlock()
		return nil, ErrQueueNotFound
	}
	if board.SetCurrQueue(true) == nil {
		unlock()
		return nil, ErrQueueEmpty
	}
	p.publishFinishedLocked(state)
	generation := state.NextGeneration()
	unlock()

	return p.play(ctx, guildID, generation, 0)
}

// DeleteQueue removes a queue. Deleting the current queue plays the most recently
// used remaining queue, or stops playback when none is left.
func (p *PlaybackService) DeleteQueue(ctx context.Context, guildID snowflake.ID, queueID string) error {
	unlock := p.lock(guildID)
	state := p.repo.Get(guildID)
	if state == nil {
		unlock()
		return ErrNotConnected
	}

	board := state.Board()
	current := board.GetCurrentQueue()
	if !board.DeleteQueue(queueID) {
		unlock()
		return ErrQueueNotFound
	}
	if current == nil || current.ID() != queueID {
		unlock()
		return nil
	}

	p.publishFinishedLocked(state)
	if board.SetCurrQueue(true) == nil {
		state.ClearTimeline()
		state.NextGeneration()
		unlock()
		return p.audioPlayer.Stop(ctx, guildID)
	}
	generation := state.NextGeneration()
	unlock()

	_, err := p.play(ctx, guildID, generation, 0)
	return err
}

// Pause pauses the current playback.
func (p *PlaybackService) Pause(ctx context.Context, input PauseInput) error {
	unlock := p.lock(input.GuildID)
	defer unlock()

	state, err := p.getState(input.GuildID, input.NotificationChannelID)
	if err != nil {
		return err
	}
	if !state.IsPlaybackActive() {
		return ErrNotPlaying
	}
	if state.IsPaused() {
		return ErrAlreadyPaused
	}

	if err := p.audioPlayer.Pause(ctx, input.GuildID); err != nil {
		return err
	}
	state.SetPaused(true)
	return nil
}

// Resume resumes the paused playback.
func (p *PlaybackService) Resume(ctx context.Context, input ResumeInput) error {
	unlock := p.lock(input.GuildID)
	defer unlock()

	state, err := p.getState(input.GuildID, input.NotificationChannelID)
	if err != nil {
		return err
	}
	if !state.IsPlaybackActive() {
		return ErrNotPlaying
	}
	if !state.IsPaused() {
		return ErrNotPaused
	}

	if err := p.audioPlayer.Resume(ctx, input.GuildID); err != nil {
		return err
	}
	state.SetPaused(false)
	return nil
}

// Skip skips the current item, regardless of repeat-one.
func (p *PlaybackService) Skip(ctx context.Context, input SkipInput) (*SkipOutput, error) {
	unlock := p.lock(input.GuildID)
	state, err := p.getState(input.GuildID, input.NotificationChannelID)
	if err != nil {
		unlock()
		return nil, err
	}

	skipped := state.CurrentTrack()
	if skipped == nil || !state.IsPlaybackActive() {
		unlock()
		return nil, ErrNotPlaying
	}

	p.publishFinishedLocked(state)

	next := p.skipIndex(state)
	if next < 0 {
		state.SetPlaybackActive(false)
		state.SetPaused(false)
		state.NextGeneration()
		unlock()
		if err := p.audioPlayer.Stop(ctx, input.GuildID); err != nil {
			return nil, err
		}
		return &SkipOutput{SkippedTrack: skipped}, nil
	}

	p.transitionLocked(state, state.CurrentIndex(), next, domain.TransitionSeek)
	generation := state.NextGeneration()
	unlock()

	nextTrack, err := p.play(ctx, input.GuildID, generation, 0)
	if err != nil {
		return nil, err
	}
	return &SkipOutput{SkippedTrack: skipped, NextTrack: nextTrack}, nil
}

// SetRepeatMode sets the repeat mode for the guild's player.
func (p *PlaybackService) SetRepeatMode(ctx context.Context, input SetRepeatModeInput) error {
	unlock := p.lock(input.GuildID)
	defer unlock()

	state, err := p.getState(input.GuildID, input.NotificationChannelID)
	if err != nil {
		return err
	}
	state.SetRepeatMode(domain.ParseRepeatMode(input.Mode))
	return nil
}

// CycleRepeatMode cycles through repeat modes: off -> one -> all -> off.
func (p *PlaybackService) CycleRepeatMode(ctx context.Context, guildID snowflake.ID) (string, error) {
	unlock := p.lock(guildID)
	defer unlock()

	state := p.repo.Get(guildID)
	if state == nil {
		return "", ErrNotConnected
	}
	mode := state.RepeatMode().Next()
	state.SetRepeatMode(mode)
	return mode.String(), nil
}

// Close waits for pending queue flushes.
func (p *PlaybackService) Close(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		p.flushes.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *PlaybackService) publishStartedLocked(
	state *domain.PlayerState,
	track domain.Track,
	source ports.SourceKind,
) {
	if p.publisher == nil {
		return
	}

	info := ports.NowPlayingInfo{
		Identifier:    string(track.ID),
		Title:         track.Title,
		Artist:        track.ArtistNames(),
		Duration:      track.FormattedDuration(),
		ArtworkURL:    track.ThumbnailURL,
		Source:        source,
		QueuePosition: state.CurrentIndex() + 1,
		QueueLength:   state.Len(),
		Shuffled:      state.ShuffleEnabled(),
		RepeatMode:    state.RepeatMode().String(),
	}
	if track.Album != nil {
		info.Album = track.Album.Title
	}
	if current := state.Board().GetCurrentQueue(); current != nil {
		info.QueueTitle = current.Title()
	}

	p.publisher.PublishPlaybackStarted(ports.PlaybackStartedEvent{
		GuildID:               state.GetGuildID(),
		Track:                 track,
		Info:                  info,
		NotificationChannelID: state.GetNotificationChannelID(),
	})
}

// publishFinishedLocked asks for the "Now Playing" message to be deleted.
func (p *PlaybackService) publishFinishedLocked(state *domain.PlayerState) {
	nowPlayingMsg := state.GetNowPlayingMessage()
	if nowPlayingMsg == nil || p.publisher == nil {
		return
	}
	p.publisher.PublishPlaybackFinished(ports.PlaybackFinishedEvent{
		GuildID:               state.GetGuildID(),
		NotificationChannelID: nowPlayingMsg.ChannelID,
		LastMessageID:         &nowPlayingMsg.MessageID,
	})
}

func (p *PlaybackService) publishError(
	state *domain.PlayerState,
	id domain.TrackID,
	message string,
	skipped bool,
) {
	if p.publisher == nil {
		return
	}
	p.publisher.PublishPlaybackError(ports.PlaybackErrorEvent{
		GuildID:               state.GetGuildID(),
		TrackID:               id,
		NotificationChannelID: state.GetNotificationChannelID(),
		Message:               message,
		Skipped:               skipped,
	})
}

func (p *PlaybackService) observePlaybackError(action string) {
	if p.observer != nil {
		p.observer.PlaybackErrorHandled(action)
	}
}
