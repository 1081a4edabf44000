package domain

import (
	"fmt"
	"slices"
)

func testTracks(ids ...string) []Track {
	tracks := make([]Track, len(ids))
	for i, id := range ids {
		tracks[i] = Track{ID: TrackID(id), Title: "title " + id, Duration: UnknownDuration}
	}
	return tracks
}

func idsOf(tracks []Track) []string {
	ids := make([]string, len(tracks))
	for i, track := range tracks {
		ids[i] = string(track.ID)
	}
	return ids
}

func sortedIDs(tracks []Track) []string {
	ids := idsOf(tracks)
	slices.Sort(ids)
	return ids
}

// reverseShuffle is a deterministic ShuffleFunc that reverses the elements.
func reverseShuffle(n int, swap func(i, j int)) {
	for i := 0; i < n/2; i++ {
		swap(i, n-1-i)
	}
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("q%d", n)
	}
}

type mockSink struct {
	items          []Track
	startIndex     int
	setCalls       int
	shuffleEnabled []bool
}

func (m *mockSink) SetMediaList(items []Track, startIndex int) {
	m.items = slices.Clone(items)
	m.startIndex = startIndex
	m.setCalls++
}

func (m *mockSink) SetShuffleEnabled(enabled bool) {
	m.shuffleEnabled = append(m.shuffleEnabled, enabled)
}

func newTestBoard(opts ...BoardOption) (*QueueBoard, *mockSink) {
	sink := &mockSink{}
	opts = append([]BoardOption{WithIDGenerator(sequentialIDs())}, opts...)
	return NewQueueBoard(sink, opts...), sink
}
