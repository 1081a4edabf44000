package usecases

import (
	"context"
	"errors"
	"net"
	"syscall"

	"github.com/sglre6355/sgrtune/internal/modules/music_player/application/ports"
	"github.com/sglre6355/sgrtune/internal/modules/music_player/domain"
)

// Domain errors for the music player module.
var (
	// ErrNotConnected is returned when an operation requires the bot to be in a voice channel.
	ErrNotConnected = errors.New("not connected to a voice channel")

	// ErrUserNotInVoice is returned when the user is not in a voice channel.
	ErrUserNotInVoice = errors.New("you must be in a voice channel")

	// ErrNotPlaying is returned when no track is currently playing.
	ErrNotPlaying = errors.New("nothing is currently playing")

	// ErrAlreadyPaused is returned when trying to pause while already paused.
	ErrAlreadyPaused = errors.New("playback is already paused")

	// ErrNotPaused is returned when trying to resume while not paused.
	ErrNotPaused = errors.New("playback is not paused")

	// ErrNoResults is returned when a search yields no results.
	ErrNoResults = errors.New("no results found")

	// ErrQueueEmpty is returned when there is no queue to play.
	ErrQueueEmpty = errors.New("the queue is empty")

	// ErrQueueNotFound is returned when a queue id is unknown.
	ErrQueueNotFound = errors.New("queue not found")

	// ErrInvalidPosition is returned when an invalid queue position is specified.
	ErrInvalidPosition = errors.New("invalid queue position")

	// ErrFolderNotFound is returned when a library folder does not exist.
	ErrFolderNotFound = errors.New("folder not found")

	// ErrResolverClosed is returned for resolutions abandoned because the resolver shut down.
	ErrResolverClosed = errors.New("stream resolver closed")
)

// Playback error classifications. A PlaybackError matches the sentinel of its kind with errors.Is.
var (
	ErrTrackNotFound      = errors.New("file not found")
	ErrNetworkUnavailable = errors.New("no internet connection")
	ErrTimeout            = errors.New("connection timed out")
	ErrRemoteRejected     = errors.New("remote rejected the stream")
	ErrRemote             = errors.New("remote error")
)

// PlaybackErrorKind classifies why a track could not be played.
type PlaybackErrorKind int

const (
	KindRemote PlaybackErrorKind = iota
	KindNotFound
	KindNetworkUnavailable
	KindTimeout
	KindRemoteRejected
)

// String returns the metric label of the kind.
func (k PlaybackErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindNetworkUnavailable:
		return "network_unavailable"
	case KindTimeout:
		return "timeout"
	case KindRemoteRejected:
		return "remote_rejected"
	default:
		return "remote"
	}
}

// UserMessage renders the kind for users.
func (k PlaybackErrorKind) UserMessage() string {
	switch k {
	case KindNotFound:
		return "File not found."
	case KindNetworkUnavailable:
		return "No internet connection."
	case KindTimeout:
		return "The connection timed out."
	default:
		return "Something went wrong while loading the track."
	}
}

func (k PlaybackErrorKind) sentinel() error {
	switch k {
	case KindNotFound:
		return ErrTrackNotFound
	case KindNetworkUnavailable:
		return ErrNetworkUnavailable
	case KindTimeout:
		return ErrTimeout
	case KindRemoteRejected:
		return ErrRemoteRejected
	default:
		return ErrRemote
	}
}

// PlaybackError is a typed failure to produce a playable source.
type PlaybackError struct {
	Kind    PlaybackErrorKind
	TrackID domain.TrackID
	Cause   string
	Err     error
}

func (e *PlaybackError) Error() string {
	msg := e.Kind.sentinel().Error() + ": " + string(e.TrackID)
	if e.Cause != "" {
		msg += ": " + e.Cause
	}
	return msg
}

func (e *PlaybackError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel of the error's kind.
func (e *PlaybackError) Is(target error) bool {
	return target == e.Kind.sentinel()
}

// UserMessage renders the failure for users. Remote rejections are shown verbatim.
func (e *PlaybackError) UserMessage() string {
	if e.Kind == KindRemoteRejected && e.Cause != "" {
		return e.Cause
	}
	return e.Kind.UserMessage()
}

// ClassifyError turns err into a PlaybackError for id.
func ClassifyError(id domain.TrackID, err error) *PlaybackError {
	if err == nil {
		return nil
	}

	var playbackErr *PlaybackError
	if errors.As(err, &playbackErr) {
		return playbackErr
	}

	classified := &PlaybackError{Kind: KindRemote, TrackID: id, Cause: err.Error(), Err: err}

	var rejected *ports.RejectedError
	var netErr net.Error
	var dnsErr *net.DNSError
	var opErr *net.OpError
	switch {
	case errors.As(err, &rejected):
		classified.Kind = KindRemoteRejected
		classified.Cause = rejected.Reason
	case errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &netErr) && netErr.Timeout():
		classified.Kind = KindTimeout
	case errors.As(err, &dnsErr),
		errors.As(err, &opErr),
		errors.Is(err, syscall.ECONNREFUSED):
		classified.Kind = KindNetworkUnavailable
	}
	return classified
}
