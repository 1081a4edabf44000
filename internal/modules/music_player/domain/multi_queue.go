package domain

import (
	"math/rand/v2"
	"slices"
)

// ShuffleFunc permutes n elements through swap. rand.Shuffle satisfies it.
type ShuffleFunc func(n int, swap func(i, j int))

// queueItem is one placement of a track inside a queue.
// The key identifies the placement, so duplicate track ids stay distinguishable
// across shuffle and unshuffle.
type queueItem struct {
	track Track
	key   uint64
}

// MultiQueue is a named queue with a canonical order, an independently shuffled
// play order and a cursor into whichever order is active.
type MultiQueue struct {
	id         string
	title      string
	playlistID string

	unshuffled []queueItem
	shuffled   []queueItem
	isShuffled bool
	position   int

	nextKey uint64
}

// QueueSnapshot is the plain-data form of a MultiQueue used by persistence.
type QueueSnapshot struct {
	ID              string
	Title           string
	PlaylistID      string
	UnshuffledOrder []Track
	ShuffledOrder   []Track
	// ShuffledIndexes holds, for each shuffled item, its index in UnshuffledOrder.
	// It is optional; without it duplicates are matched by occurrence.
	ShuffledIndexes []int
	IsShuffled      bool
	Position        int
}

// NewMultiQueue creates an unshuffled queue positioned at the given index (clamped).
func NewMultiQueue(id, title string, tracks []Track, position int) *MultiQueue {
	if title == "" {
		title = DefaultQueueTitle
	}

	q := &MultiQueue{
		id:    id,
		title: title,
	}
	q.unshuffled = q.newItems(tracks)
	q.shuffled = slices.Clone(q.unshuffled)
	q.position = q.clamp(position)
	return q
}

// RestoreMultiQueue rebuilds a queue from persisted state.
// Shuffled items are matched to canonical ones through ShuffledIndexes when it is
// consistent, otherwise the n-th occurrence of a track id in the shuffled order is
// matched to its n-th occurrence in the canonical order. A shuffled order that is
// not a permutation of the canonical one is discarded and the queue comes back unshuffled.
func RestoreMultiQueue(s QueueSnapshot) *MultiQueue {
	q := NewMultiQueue(s.ID, s.Title, s.UnshuffledOrder, 0)
	q.playlistID = s.PlaylistID

	if s.IsShuffled {
		shuffled, ok := mapOrder(q.unshuffled, s.ShuffledOrder, s.ShuffledIndexes)
		if !ok {
			shuffled, ok = matchOrder(q.unshuffled, s.ShuffledOrder)
		}
		if ok {
			q.shuffled = shuffled
			q.isShuffled = true
		}
	}

	q.position = q.clamp(s.Position)
	return q
}

func mapOrder(items []queueItem, order []Track, indexes []int) ([]queueItem, bool) {
	if len(order) != len(items) || len(indexes) != len(items) {
		return nil, false
	}

	seen := make([]bool, len(items))
	mapped := make([]queueItem, len(order))
	for i, index := range indexes {
		if index < 0 || index >= len(items) || seen[index] || items[index].track.ID != order[i].ID {
			return nil, false
		}
		seen[index] = true
		mapped[i] = items[index]
	}
	return mapped, true
}

func matchOrder(items []queueItem, order []Track) ([]queueItem, bool) {
	if len(order) != len(items) {
		return nil, false
	}

	pending := make(map[TrackID][]queueItem, len(items))
	for _, item := range items {
		pending[item.track.ID] = append(pending[item.track.ID], item)
	}

	matched := make([]queueItem, 0, len(order))
	for _, track := range order {
		candidates := pending[track.ID]
		if len(candidates) == 0 {
			return nil, false
		}
		matched = append(matched, candidates[0])
		pending[track.ID] = candidates[1:]
	}
	return matched, true
}

// ID returns the queue id.
func (q *MultiQueue) ID() string {
	return q.id
}

// Title returns the display title.
func (q *MultiQueue) Title() string {
	return q.title
}

// PlaylistID returns the remote playlist this queue mirrors, or "".
func (q *MultiQueue) PlaylistID() string {
	return q.playlistID
}

// SetPlaylistID sets the mirrored remote playlist.
func (q *MultiQueue) SetPlaylistID(id string) {
	q.playlistID = id
}

// IsShuffled reports whether the shuffled order is active.
func (q *MultiQueue) IsShuffled() bool {
	return q.isShuffled
}

// Position returns the cursor into the active order.
func (q *MultiQueue) Position() int {
	return q.position
}

// Len returns the number of items in the queue.
func (q *MultiQueue) Len() int {
	return len(q.unshuffled)
}

// IsEmpty reports whether the queue has no items.
func (q *MultiQueue) IsEmpty() bool {
	return q.Len() == 0
}

// UnshuffledOrder returns a copy of the canonical order.
func (q *MultiQueue) UnshuffledOrder() []Track {
	return tracksOf(q.unshuffled)
}

// ShuffledOrder returns a copy of the shuffled order.
// While shuffle is inactive it equals the canonical order.
func (q *MultiQueue) ShuffledOrder() []Track {
	return tracksOf(q.shuffled)
}

// ActiveOrder returns a copy of the order playback follows.
func (q *MultiQueue) ActiveOrder() []Track {
	return tracksOf(q.active())
}

// Current returns the item at the cursor, or nil if the queue is empty.
func (q *MultiQueue) Current() *Track {
	if q.IsEmpty() {
		return nil
	}
	track := q.active()[q.position].track
	return &track
}

// SetPosition moves the cursor. Out-of-range indexes are ignored.
func (q *MultiQueue) SetPosition(index int) bool {
	if index < 0 || index >= q.Len() {
		return false
	}
	q.position = index
	return true
}

// Shuffle draws a new shuffled order and activates it. The item at the cursor
// leads the new order and the cursor moves to 0. The canonical order is untouched.
func (q *MultiQueue) Shuffle(shuffle ShuffleFunc) {
	if shuffle == nil {
		shuffle = rand.Shuffle
	}

	q.isShuffled = true
	if q.IsEmpty() {
		q.shuffled = nil
		q.position = 0
		return
	}

	pinned := q.active()[q.position]
	rest := make([]queueItem, 0, q.Len()-1)
	for _, item := range q.unshuffled {
		if item.key != pinned.key {
			rest = append(rest, item)
		}
	}
	shuffle(len(rest), func(i, j int) {
		rest[i], rest[j] = rest[j], rest[i]
	})

	q.shuffled = append([]queueItem{pinned}, rest...)
	q.position = 0
}

// Unshuffle reactivates the canonical order and returns the canonical index of
// the item that was at the cursor.
func (q *MultiQueue) Unshuffle() int {
	index := 0
	if !q.IsEmpty() {
		index = indexOfKey(q.unshuffled, q.active()[q.position].key)
	}

	q.isShuffled = false
	q.shuffled = slices.Clone(q.unshuffled)
	q.position = index
	return index
}

// Insert places tracks at insertAt of the active order.
// While shuffled, the canonical copy goes right after the canonical position of
// the item that precedes insertAt in play order. Items already at or past
// insertAt keep their identity and the cursor follows the item it pointed at.
func (q *MultiQueue) Insert(insertAt int, tracks []Track) {
	if len(tracks) == 0 {
		return
	}

	items := q.newItems(tracks)
	wasEmpty := q.IsEmpty()
	insertAt = max(0, min(insertAt, q.Len()))

	if q.isShuffled {
		canonical := 0
		if insertAt > 0 {
			canonical = indexOfKey(q.unshuffled, q.shuffled[insertAt-1].key) + 1
		}
		q.unshuffled = slices.Insert(q.unshuffled, canonical, items...)
		q.shuffled = slices.Insert(q.shuffled, insertAt, items...)
	} else {
		q.unshuffled = slices.Insert(q.unshuffled, insertAt, items...)
		q.shuffled = slices.Clone(q.unshuffled)
	}

	if !wasEmpty && insertAt <= q.position {
		q.position += len(items)
	}
}

// Append adds tracks to the end of both orders.
func (q *MultiQueue) Append(tracks []Track) {
	if len(tracks) == 0 {
		return
	}
	items := q.newItems(tracks)
	q.unshuffled = append(q.unshuffled, items...)
	q.shuffled = append(q.shuffled, items...)
}

// Replace swaps the whole content for tracks, unshuffled, with the cursor at position (clamped).
func (q *MultiQueue) Replace(title string, tracks []Track, position int) {
	if title != "" {
		q.title = title
	}
	q.unshuffled = q.newItems(tracks)
	q.shuffled = slices.Clone(q.unshuffled)
	q.isShuffled = false
	q.position = q.clamp(position)
}

// MergeMissing appends the tracks whose ids are not in the queue yet and returns how many were added.
func (q *MultiQueue) MergeMissing(tracks []Track) int {
	present := make(map[TrackID]struct{}, q.Len()+len(tracks))
	for _, item := range q.unshuffled {
		present[item.track.ID] = struct{}{}
	}

	var missing []Track
	for _, track := range tracks {
		if _, ok := present[track.ID]; ok {
			continue
		}
		present[track.ID] = struct{}{}
		missing = append(missing, track)
	}

	q.Append(missing)
	return len(missing)
}

// Clone returns a deep copy that shares no mutable state with q.
func (q *MultiQueue) Clone() *MultiQueue {
	c := *q
	c.unshuffled = slices.Clone(q.unshuffled)
	c.shuffled = slices.Clone(q.shuffled)
	return &c
}

// Snapshot returns the plain-data form of the queue.
func (q *MultiQueue) Snapshot() QueueSnapshot {
	return QueueSnapshot{
		ID:              q.id,
		Title:           q.title,
		PlaylistID:      q.playlistID,
		UnshuffledOrder: q.UnshuffledOrder(),
		ShuffledOrder:   q.ShuffledOrder(),
		ShuffledIndexes: q.shuffledIndexes(),
		IsShuffled:      q.isShuffled,
		Position:        q.position,
	}
}

func (q *MultiQueue) shuffledIndexes() []int {
	positions := make(map[uint64]int, len(q.unshuffled))
	for i, item := range q.unshuffled {
		positions[item.key] = i
	}
	indexes := make([]int, len(q.shuffled))
	for i, item := range q.shuffled {
		indexes[i] = positions[item.key]
	}
	return indexes
}

func (q *MultiQueue) active() []queueItem {
	if q.isShuffled {
		return q.shuffled
	}
	return q.unshuffled
}

func (q *MultiQueue) clamp(index int) int {
	if q.IsEmpty() || index < 0 {
		return 0
	}
	return min(index, q.Len()-1)
}

func (q *MultiQueue) newItems(tracks []Track) []queueItem {
	items := make([]queueItem, len(tracks))
	for i, track := range tracks {
		q.nextKey++
		items[i] = queueItem{track: track, key: q.nextKey}
	}
	return items
}

func indexOfKey(items []queueItem, key uint64) int {
	return slices.IndexFunc(items, func(item queueItem) bool {
		return item.key == key
	})
}

func tracksOf(items []queueItem) []Track {
	tracks := make([]Track, len(items))
	for i, item := range items {
		tracks[i] = item.track
	}
	return tracks
}
