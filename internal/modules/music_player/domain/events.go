package domain

// TrackEndReason represents why the engine stopped playing an item.
type TrackEndReason string

const (
	// TrackEndFinished means the item played to its end.
	TrackEndFinished TrackEndReason = "finished"
	// TrackEndLoadFailed means the engine could not load the item.
	TrackEndLoadFailed TrackEndReason = "load_failed"
	// TrackEndStopped means playback was stopped.
	TrackEndStopped TrackEndReason = "stopped"
	// TrackEndReplaced means another item was started over it.
	TrackEndReplaced TrackEndReason = "replaced"
	// TrackEndCleanup means the player was torn down.
	TrackEndCleanup TrackEndReason = "cleanup"
)

// ShouldAdvance reports whether the timeline moves on after this end reason.
// Load failures are reported separately as playback errors and handled by the skip policy.
func (r TrackEndReason) ShouldAdvance() bool {
	return r == TrackEndFinished
}

// TransitionReason represents why the engine moved to another item.
type TransitionReason int

const (
	// TransitionAuto is an automatic move after the previous item ended.
	TransitionAuto TransitionReason = iota
	// TransitionSeek is an explicit seek to an item.
	TransitionSeek
	// TransitionRepeat is a replay of the same item.
	TransitionRepeat
	// TransitionPlaylistChanged is a move caused by a new timeline.
	TransitionPlaylistChanged
)

// String returns a human-readable representation of the transition reason.
func (r TransitionReason) String() string {
	switch r {
	case TransitionSeek:
		return "seek"
	case TransitionRepeat:
		return "repeat"
	case TransitionPlaylistChanged:
		return "playlist_changed"
	default:
		return "auto"
	}
}

// IsWrapAround reports whether a transition looped from the last item of a
// timeline of count items back to the first.
func IsWrapAround(from, to, count int, reason TransitionReason) bool {
	if reason != TransitionAuto && reason != TransitionSeek {
		return false
	}
	return count > 1 && from == count-1 && to == 0
}
