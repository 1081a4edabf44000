package ports

import "time"

// ResolutionObserver records stream resolution outcomes.
type ResolutionObserver interface {
	ResolutionServed(source SourceKind)
	ResolutionFailed(kind string)
	RemoteResolveDuration(d time.Duration)
}

// PlaybackObserver records queue persistence and playback error handling.
type PlaybackObserver interface {
	QueueFlushed(result string)
	PlaybackErrorHandled(action string)
}
