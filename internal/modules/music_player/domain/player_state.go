package domain

import (
	"slices"
	"time"

	"github.com/disgoorg/snowflake/v2"
)

// NowPlayingMessage stores the channel and message ID for a "Now Playing" message.
// Both values are needed for deletion since the message may be in a different channel
// than the current notification channel if the user switched channels while playing.
type NowPlayingMessage struct {
	ChannelID snowflake.ID
	MessageID snowflake.ID
}

// PlayerState is the playback engine of one guild. It owns the guild's QueueBoard
// and holds the timeline the board pushes into.
//
// PlayerState is not synchronized; callers serialize access per guild.
type PlayerState struct {
	guildID               snowflake.ID
	voiceChannelID        snowflake.ID       // Voice channel the bot is connected to
	notificationChannelID snowflake.ID       // Text channel for notifications
	nowPlayingMessage     *NowPlayingMessage // "Now Playing" message info (for deletion)

	board *QueueBoard

	timeline       []Track // media list pushed by the board
	currentIndex   int
	shuffleEnabled bool
	repeatMode     RepeatMode

	isPlaybackActive  bool
	isPaused          bool
	consecutiveErrors int
	lastPosition      time.Duration // playback position restored on resume

	// generation changes whenever the playing item is replaced, so results of
	// resolutions started for an older item can be discarded.
	generation uint64
}

// NewPlayerState creates a new PlayerState for the given guild and channels.
func NewPlayerState(
	guildID, voiceChannelID, notificationChannelID snowflake.ID,
	opts ...BoardOption,
) *PlayerState {
	p := &PlayerState{
		guildID:               guildID,
		voiceChannelID:        voiceChannelID,
		notificationChannelID: notificationChannelID,
		repeatMode:            RepeatOff,
	}
	p.board = NewQueueBoard(p, opts...)
	return p
}

// Board returns the guild's queue board.
func (p *PlayerState) Board() *QueueBoard {
	return p.board
}

// SetMediaList replaces the timeline. The index is clamped to the new list.
func (p *PlayerState) SetMediaList(items []Track, startIndex int) {
	p.timeline = slices.Clone(items)
	p.currentIndex = 0
	if startIndex > 0 && startIndex < len(p.timeline) {
		p.currentIndex = startIndex
	}
}

// SetShuffleEnabled mirrors the current queue's shuffle flag.
func (p *PlayerState) SetShuffleEnabled(enabled bool) {
	p.shuffleEnabled = enabled
}

// ShuffleEnabled reports whether the engine plays a shuffled order.
func (p *PlayerState) ShuffleEnabled() bool {
	return p.shuffleEnabled
}

// Timeline returns a copy of the media list.
func (p *PlayerState) Timeline() []Track {
	return slices.Clone(p.timeline)
}

// Len returns the number of items in the timeline.
func (p *PlayerState) Len() int {
	return len(p.timeline)
}

// CurrentIndex returns the timeline index of the current item.
func (p *PlayerState) CurrentIndex() int {
	return p.currentIndex
}

// SetCurrentIndex moves the engine to index. Out-of-range indexes are ignored.
func (p *PlayerState) SetCurrentIndex(index int) bool {
	if index < 0 || index >= len(p.timeline) {
		return false
	}
	p.currentIndex = index
	return true
}

// TrackAt returns the item at index, or nil.
func (p *PlayerState) TrackAt(index int) *Track {
	if index < 0 || index >= len(p.timeline) {
		return nil
	}
	track := p.timeline[index]
	return &track
}

// CurrentTrack returns the current item, or nil when the timeline is empty.
func (p *PlayerState) CurrentTrack() *Track {
	return p.TrackAt(p.currentIndex)
}

// HasNext reports whether an item follows the current one.
func (p *PlayerState) HasNext() bool {
	return p.currentIndex+1 < len(p.timeline)
}

// NextIndex returns the index playback continues at after the current item ends,
// or -1 when it should stop.
func (p *PlayerState) NextIndex() int {
	return p.repeatMode.NextIndex(p.currentIndex, len(p.timeline))
}

// ClearTimeline empties the timeline and stops playback.
func (p *PlayerState) ClearTimeline() {
	p.timeline = nil
	p.currentIndex = 0
	p.isPlaybackActive = false
	p.isPaused = false
}

// IsPlaybackActive returns true if playback is currently active.
func (p *PlayerState) IsPlaybackActive() bool {
	return p.isPlaybackActive
}

// SetPlaybackActive sets whether playback is active.
func (p *PlayerState) SetPlaybackActive(active bool) {
	p.isPlaybackActive = active
}

// IsPaused returns true if playback is paused.
func (p *PlayerState) IsPaused() bool {
	return p.isPaused
}

// SetPaused sets the paused state.
func (p *PlayerState) SetPaused(isPaused bool) {
	p.isPaused = isPaused
}

// CurrentTrackID returns the currently playing track ID, or nil if playback is not active.
func (p *PlayerState) CurrentTrackID() *TrackID {
	if !p.isPlaybackActive {
		return nil
	}
	if track := p.CurrentTrack(); track != nil {
		return &track.ID
	}
	return nil
}

// GetGuildID returns the guild ID.
func (p *PlayerState) GetGuildID() snowflake.ID {
	// No read mutex: guildID must not be modified after initialization
	return p.guildID
}

// GetVoiceChannelID returns the current voice channel ID.
func (p *PlayerState) GetVoiceChannelID() snowflake.ID {
	return p.voiceChannelID
}

// SetVoiceChannelID updates the voice channel ID.
func (p *PlayerState) SetVoiceChannelID(channelID snowflake.ID) {
	p.voiceChannelID = channelID
}

// GetNotificationChannelID returns the current notification channel ID.
func (p *PlayerState) GetNotificationChannelID() snowflake.ID {
	return p.notificationChannelID
}

// SetNotificationChannelID updates the notification channel ID.
func (p *PlayerState) SetNotificationChannelID(channelID snowflake.ID) {
	p.notificationChannelID = channelID
}

// RepeatMode returns the current repeat mode.
func (p *PlayerState) RepeatMode() RepeatMode {
	return p.repeatMode
}

// SetRepeatMode sets the repeat mode.
func (p *PlayerState) SetRepeatMode(mode RepeatMode) {
	p.repeatMode = mode
}

// ConsecutiveErrors returns the playback error counter.
func (p *PlayerState) ConsecutiveErrors() int {
	return p.consecutiveErrors
}

// RecordError adds an error to the counter and returns the new value.
// An error weighs two transitions, so alternating errors and successes still add up.
func (p *PlayerState) RecordError() int {
	p.consecutiveErrors += 2
	return p.consecutiveErrors
}

// RecordTransition decays the error counter.
func (p *PlayerState) RecordTransition() {
	p.consecutiveErrors = max(0, p.consecutiveErrors-1)
}

// ResetErrors clears the error counter.
func (p *PlayerState) ResetErrors() {
	p.consecutiveErrors = 0
}

// LastPosition returns the playback position to restore on resume.
func (p *PlayerState) LastPosition() time.Duration {
	return p.lastPosition
}

// SetLastPosition records the playback position to restore on resume.
func (p *PlayerState) SetLastPosition(position time.Duration) {
	p.lastPosition = position
}

// Generation returns the playing-item generation.
func (p *PlayerState) Generation() uint64 {
	return p.generation
}

// NextGeneration invalidates work started for the previous item.
func (p *PlayerState) NextGeneration() uint64 {
	p.generation++
	return p.generation
}

// GetNowPlayingMessage returns a copy of the "Now Playing" message info.
func (p *PlayerState) GetNowPlayingMessage() *NowPlayingMessage {
	if p.nowPlayingMessage == nil {
		return nil
	}
	return &NowPlayingMessage{
		ChannelID: p.nowPlayingMessage.ChannelID,
		MessageID: p.nowPlayingMessage.MessageID,
	}
}

// SetNowPlayingMessage stores the "Now Playing" message info for later deletion.
func (p *PlayerState) SetNowPlayingMessage(channelID, messageID snowflake.ID) {
	p.nowPlayingMessage = &NowPlayingMessage{
		ChannelID: channelID,
		MessageID: messageID,
	}
}

// ClearNowPlayingMessage clears the stored "Now Playing" message info.
func (p *PlayerState) ClearNowPlayingMessage() {
	p.nowPlayingMessage = nil
}
