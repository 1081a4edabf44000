package domain

import (
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"
)

// TrackID is the stable, globally unique identifier of a track.
type TrackID string

// LocalTrackPrefix marks ids of tracks that live on local storage.
const LocalTrackPrefix = "LA"

// UnknownDuration is the duration of a track whose length has not been resolved yet.
const UnknownDuration = -1

// IsLocal reports whether the id denotes a local file.
func (id TrackID) IsLocal() bool {
	return strings.HasPrefix(string(id), LocalTrackPrefix)
}

// ArtistRef references an artist of a track.
type ArtistRef struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

// AlbumRef references the album a track belongs to.
type AlbumRef struct {
	ID    string `json:"id,omitempty"`
	Title string `json:"title"`
}

// Track is an immutable metadata value object. Two tracks are the same track when their ids match.
type Track struct {
	ID           TrackID
	Title        string
	Artists      []ArtistRef
	Album        *AlbumRef
	Duration     int // seconds, UnknownDuration when unknown
	IsLocal      bool
	LocalPath    string
	ThumbnailURL string

	// Library metadata.
	DateAdded    time.Time
	DateModified time.Time
	ReleaseDate  time.Time
	PlayTime     time.Duration
	PlayCount    int
	Downloaded   bool
}

// Equal reports whether both values describe the same track.
func (t Track) Equal(other Track) bool {
	return t.ID == other.ID
}

// HasDuration reports whether the duration is known.
func (t Track) HasDuration() bool {
	return t.Duration != UnknownDuration && t.Duration >= 0
}

// WithDuration returns a copy of the track with the given duration.
func (t Track) WithDuration(seconds int) Track {
	t.Duration = seconds
	return t
}

// ArtistNames joins the artist names for display.
func (t Track) ArtistNames() string {
	return strings.Join(lo.Map(t.Artists, func(a ArtistRef, _ int) string {
		return a.Name
	}), ", ")
}

// IsAvailableOffline reports whether the track can be played without a network connection.
func (t Track) IsAvailableOffline() bool {
	return t.IsLocal || t.Downloaded
}

// FormattedDuration returns the duration as mm:ss or hh:mm:ss, or "--:--" when unknown.
func (t Track) FormattedDuration() string {
	if !t.HasDuration() {
		return "--:--"
	}

	hours := t.Duration / 3600
	minutes := (t.Duration % 3600) / 60
	seconds := t.Duration % 60

	if hours > 0 {
		return pad(hours) + ":" + pad(minutes) + ":" + pad(seconds)
	}
	return pad(minutes) + ":" + pad(seconds)
}

func pad(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}

// AvailableTracks filters tracks down to the playable ones.
// When online every track is playable; offline only local or downloaded tracks are.
func AvailableTracks(tracks []Track, online bool) []Track {
	if online {
		return tracks
	}
	return lo.Filter(tracks, func(t Track, _ int) bool {
		return t.IsAvailableOffline()
	})
}

// TrackIDs projects tracks onto their ids.
func TrackIDs(tracks []Track) []TrackID {
	return lo.Map(tracks, func(t Track, _ int) TrackID {
		return t.ID
	})
}
