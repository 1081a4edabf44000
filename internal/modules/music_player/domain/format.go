package domain

import "math"

// FormatRecord is the technical metadata of a resolved stream. It is stored once
// per successful resolution and reused so later resolutions keep the same quality.
type FormatRecord struct {
	TrackID       TrackID
	Itag          int
	MimeType      string
	Codecs        string
	Bitrate       int
	SampleRate    int
	ContentLength int64
	LoudnessDB    *float64
	PlaybackURL   string
}

// NormalizeFactor returns the gain that brings the track to reference loudness,
// capped at 1 so quiet tracks are never amplified. It is 1 when normalization is
// disabled or the loudness is unknown.
func (f *FormatRecord) NormalizeFactor(enabled bool) float64 {
	if !enabled || f == nil || f.LoudnessDB == nil {
		return 1
	}
	return math.Min(math.Pow(10, -*f.LoudnessDB/20), 1)
}
