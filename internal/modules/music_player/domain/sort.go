package domain

import (
	"cmp"
	"slices"
	"strings"
)

// SongSortType selects the key library listings are ordered by.
type SongSortType int

const (
	SortByCreateDate SongSortType = iota
	SortByModifiedDate
	SortByReleaseDate
	SortByName
	SortByArtist
	SortByPlayTime
	SortByPlayCount
)

// songSortKeys holds the comparison function of each sort type.
var songSortKeys = map[SongSortType]func(a, b Track) int{
	SortByCreateDate: func(a, b Track) int {
		return cmp.Compare(addedAt(a), addedAt(b))
	},
	SortByModifiedDate: func(a, b Track) int {
		return a.DateModified.Compare(b.DateModified)
	},
	SortByReleaseDate: func(a, b Track) int {
		return a.ReleaseDate.Compare(b.ReleaseDate)
	},
	SortByName: func(a, b Track) int {
		return strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
	},
	SortByArtist: func(a, b Track) int {
		return strings.Compare(strings.ToLower(a.ArtistNames()), strings.ToLower(b.ArtistNames()))
	},
	SortByPlayTime: func(a, b Track) int {
		return cmp.Compare(a.PlayTime, b.PlayTime)
	},
	SortByPlayCount: func(a, b Track) int {
		return cmp.Compare(a.PlayCount, b.PlayCount)
	},
}

// addedAt is -1 for tracks that were never added to the library.
func addedAt(t Track) int64 {
	if t.DateAdded.IsZero() {
		return -1
	}
	return t.DateAdded.Unix()
}

// String returns the name of the sort type.
func (s SongSortType) String() string {
	switch s {
	case SortByCreateDate:
		return "create_date"
	case SortByModifiedDate:
		return "modified_date"
	case SortByReleaseDate:
		return "release_date"
	case SortByName:
		return "name"
	case SortByArtist:
		return "artist"
	case SortByPlayTime:
		return "play_time"
	case SortByPlayCount:
		return "play_count"
	default:
		return "unknown"
	}
}

// ParseSongSortType converts a name produced by String back to a sort type.
func ParseSongSortType(s string) (SongSortType, bool) {
	for sortType := range songSortKeys {
		if sortType.String() == s {
			return sortType, true
		}
	}
	return SortByCreateDate, false
}

// Compare orders two tracks by the sort type's key.
func (s SongSortType) Compare(a, b Track) int {
	compare, ok := songSortKeys[s]
	if !ok {
		return 0
	}
	return compare(a, b)
}

// SortTracks returns a sorted copy of tracks. Tracks with equal keys keep their relative order.
func SortTracks(tracks []Track, sortType SongSortType, descending bool) []Track {
	sorted := slices.Clone(tracks)
	slices.SortStableFunc(sorted, func(a, b Track) int {
		if descending {
			return sortType.Compare(b, a)
		}
		return sortType.Compare(a, b)
	})
	return sorted
}
