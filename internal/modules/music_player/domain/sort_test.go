package domain

import (
	"slices"
	"testing"
	"time"
)

func TestSortTracks(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tracks := []Track{
		{
			ID: "a", Title: "beta", Artists: []ArtistRef{{Name: "Zed"}},
			DateAdded: base.Add(2 * time.Hour), DateModified: base, ReleaseDate: base.AddDate(-1, 0, 0),
			PlayTime: 3 * time.Minute, PlayCount: 5,
		},
		{
			ID: "b", Title: "Alpha", Artists: []ArtistRef{{Name: "amy"}},
			DateAdded: base, DateModified: base.Add(time.Hour), ReleaseDate: base,
			PlayTime: time.Minute, PlayCount: 9,
		},
		{
			ID: "c", Title: "gamma", Artists: []ArtistRef{{Name: "Bob"}},
			DateModified: base.Add(-time.Hour), ReleaseDate: base.AddDate(1, 0, 0),
			PlayTime: 10 * time.Minute, PlayCount: 1,
		},
	}

	tests := []struct {
		sortType   SongSortType
		descending bool
		expected   []string
	}{
		{sortType: SortByCreateDate, expected: []string{"c", "b", "a"}},
		{sortType: SortByCreateDate, descending: true, expected: []string{"a", "b", "c"}},
		{sortType: SortByModifiedDate, expected: []string{"c", "a", "b"}},
		{sortType: SortByReleaseDate, expected: []string{"a", "b", "c"}},
		{sortType: SortByName, expected: []string{"b", "a", "c"}},
		{sortType: SortByArtist, expected: []string{"b", "c", "a"}},
		{sortType: SortByPlayTime, expected: []string{"b", "a", "c"}},
		{sortType: SortByPlayCount, descending: true, expected: []string{"b", "a", "c"}},
	}

	for _, tt := range tests {
		name := tt.sortType.String()
		if tt.descending {
			name += "_desc"
		}
		t.Run(name, func(t *testing.T) {
			got := idsOf(SortTracks(tracks, tt.sortType, tt.descending))
			if !slices.Equal(got, tt.expected) {
				t.Errorf("SortTracks() = %v, expected %v", got, tt.expected)
			}
		})
	}

	if got := idsOf(tracks); !slices.Equal(got, []string{"a", "b", "c"}) {
		t.Errorf("expected input to be left untouched, got %v", got)
	}
}

func TestSortTracks_Stable(t *testing.T) {
	tracks := []Track{
		{ID: "a", PlayCount: 1},
		{ID: "b", PlayCount: 0},
		{ID: "c", PlayCount: 1},
		{ID: "d", PlayCount: 0},
	}

	got := idsOf(SortTracks(tracks, SortByPlayCount, false))
	if !slices.Equal(got, []string{"b", "d", "a", "c"}) {
		t.Errorf("SortTracks() = %v, expected [b d a c]", got)
	}
}

func TestParseSongSortType(t *testing.T) {
	for sortType := SortByCreateDate; sortType <= SortByPlayCount; sortType++ {
		got, ok := ParseSongSortType(sortType.String())
		if !ok || got != sortType {
			t.Errorf("ParseSongSortType(%q) = %v, %v", sortType.String(), got, ok)
		}
	}
	if _, ok := ParseSongSortType("bogus"); ok {
		t.Error("expected unknown sort type to be rejected")
	}
}
