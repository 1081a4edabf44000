package ports

// EventPublisher defines the interface for publishing events asynchronously.
type EventPublisher interface {
	PublishTrackEnded(event TrackEndedEvent)
	PublishTrackException(event TrackExceptionEvent)
	PublishPlaybackStarted(event PlaybackStartedEvent)
	PublishPlaybackFinished(event PlaybackFinishedEvent)
	PublishPlaybackError(event PlaybackErrorEvent)
}
