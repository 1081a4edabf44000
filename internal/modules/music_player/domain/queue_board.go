package domain

import (
	"math/rand/v2"
	"slices"

	"github.com/google/uuid"
)

// DefaultQueueTitle is used when a queue is created without a title.
const DefaultQueueTitle = "Queue"

// DefaultMaxQueues bounds how many queues a board keeps.
const DefaultMaxQueues = 20

// MediaSink is the playback timeline a board pushes its current queue into.
type MediaSink interface {
	// SetMediaList replaces the timeline with items, positioned at startIndex.
	SetMediaList(items []Track, startIndex int)
	// SetShuffleEnabled mirrors the queue's shuffle flag onto the engine.
	SetShuffleEnabled(enabled bool)
}

// AddQueueOptions tunes AddQueue.
type AddQueueOptions struct {
	StartIndex int
	// Replace swaps the contents of the current queue.
	Replace bool
	// ForceInsert always creates a new queue, even if one with the same title exists.
	ForceInsert bool
	// Delta appends only the items the queue does not contain yet.
	Delta bool
	// PlaylistID records the remote playlist the queue mirrors.
	PlaylistID string
}

// BoardOption configures a QueueBoard.
type BoardOption func(*QueueBoard)

// WithIDGenerator overrides how queue ids are minted.
func WithIDGenerator(gen func() string) BoardOption {
	return func(b *QueueBoard) {
		b.newID = gen
	}
}

// WithShuffleFunc overrides the permutation source.
func WithShuffleFunc(shuffle ShuffleFunc) BoardOption {
	return func(b *QueueBoard) {
		b.shuffle = shuffle
	}
}

// WithMaxQueues bounds the number of queues kept by the board.
func WithMaxQueues(n int) BoardOption {
	return func(b *QueueBoard) {
		if n > 0 {
			b.maxQueues = n
		}
	}
}

// QueueBoard owns every queue of one playback engine and the current-queue pointer.
//
// It is not synchronized: callers mutate it from a single control context and
// hand readers the copies returned by GetAllQueues and GetCurrentQueue.
type QueueBoard struct {
	// queues is kept in most-recently-used order; the current queue is last.
	queues      []*MultiQueue
	currentID   string
	initialized bool

	sink      MediaSink
	newID     func() string
	shuffle   ShuffleFunc
	maxQueues int
}

// NewQueueBoard creates an empty, uninitialized board that pushes into sink.
func NewQueueBoard(sink MediaSink, opts ...BoardOption) *QueueBoard {
	b := &QueueBoard{
		sink:      sink,
		newID:     uuid.NewString,
		shuffle:   rand.Shuffle,
		maxQueues: DefaultMaxQueues,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Initialized reports whether persisted state has been loaded and attached to the engine.
func (b *QueueBoard) Initialized() bool {
	return b.initialized
}

// SetInitialized sets the lifecycle flag.
func (b *QueueBoard) SetInitialized(initialized bool) {
	b.initialized = initialized
}

// Hydrate replaces the board's queues with loaded ones. Empty queues are skipped,
// the last queue becomes current and the oldest ones beyond the bound are dropped.
func (b *QueueBoard) Hydrate(queues []*MultiQueue) {
	b.queues = b.queues[:0]
	for _, q := range queues {
		if q == nil || q.IsEmpty() {
			continue
		}
		b.queues = append(b.queues, q)
	}
	b.currentID = ""
	if len(b.queues) > 0 {
		b.currentID = b.queues[len(b.queues)-1].ID()
	}
	b.evict()
}

// AddQueue creates or merges a queue and reports whether the caller should push
// the current queue to the engine again.
//   - Replace: the current queue's contents are replaced.
//   - ForceInsert: a new queue is always created.
//   - otherwise a queue with the same title is reused: Delta merges missing items and
//     keeps the current pointer, a full update replaces its contents and makes it current.
//   - with no queue to reuse, a new queue is created and made current.
func (b *QueueBoard) AddQueue(title string, items []Track, opts AddQueueOptions) bool {
	if len(items) == 0 {
		return false
	}
	if title == "" {
		title = DefaultQueueTitle
	}

	if opts.Replace {
		if current := b.current(); current != nil {
			current.Replace(title, items, opts.StartIndex)
			current.SetPlaylistID(opts.PlaylistID)
			return true
		}
	}

	if !opts.ForceInsert {
		if existing := b.findByTitle(title); existing != nil {
			if opts.Delta {
				existing.MergeMissing(items)
				return existing.ID() == b.currentID
			}
			existing.Replace(title, items, opts.StartIndex)
			existing.SetPlaylistID(opts.PlaylistID)
			b.makeCurrent(existing)
			return true
		}
	}

	q := NewMultiQueue(b.newID(), title, items, opts.StartIndex)
	q.SetPlaylistID(opts.PlaylistID)
	b.queues = append(b.queues, q)
	b.makeCurrent(q)
	b.evict()
	return true
}

// SetCurrQueue pushes the current queue's active order into the engine and returns
// the index to seek to, or nil if there is no current queue or it is empty.
// resetShuffle resynchronizes the engine's shuffle flag from the queue.
func (b *QueueBoard) SetCurrQueue(resetShuffle bool) *int {
	current := b.current()
	if current == nil || current.IsEmpty() {
		return nil
	}

	position := current.Position()
	if b.sink != nil {
		if resetShuffle {
			b.sink.SetShuffleEnabled(current.IsShuffled())
		}
		b.sink.SetMediaList(current.ActiveOrder(), position)
	}
	return &position
}

// SetCurrQueuePosIndex records the engine's position in the current queue.
func (b *QueueBoard) SetCurrQueuePosIndex(index int) {
	if current := b.current(); current != nil {
		current.SetPosition(index)
	}
}

// ShuffleCurrent reshuffles the current queue, keeping the playing item first.
// With apply the new order is pushed to the engine.
func (b *QueueBoard) ShuffleCurrent(apply bool) {
	current := b.current()
	if current == nil {
		return
	}
	current.Shuffle(b.shuffle)
	if apply {
		b.SetCurrQueue(true)
	}
}

// UnShuffleCurrent restores the canonical order of the current queue and returns the
// canonical index of the playing item, or -1 if there is no current queue.
func (b *QueueBoard) UnShuffleCurrent() int {
	current := b.current()
	if current == nil {
		return -1
	}
	return current.Unshuffle()
}

// AddSongsToQueue inserts items at insertAt of the queue's active order.
// The engine is refreshed when the queue is current.
func (b *QueueBoard) AddSongsToQueue(queueID string, insertAt int, items []Track) bool {
	q := b.find(queueID)
	if q == nil || len(items) == 0 {
		return false
	}
	q.Insert(insertAt, items)
	if q.ID() == b.currentID {
		b.SetCurrQueue(false)
	}
	return true
}

// EnqueueEnd appends items to the current queue.
func (b *QueueBoard) EnqueueEnd(items []Track) bool {
	current := b.current()
	if current == nil || len(items) == 0 {
		return false
	}
	current.Append(items)
	b.SetCurrQueue(false)
	return true
}

// SetCurrentQueue switches the current queue.
func (b *QueueBoard) SetCurrentQueue(queueID string) bool {
	q := b.find(queueID)
	if q == nil {
		return false
	}
	b.makeCurrent(q)
	return true
}

// DeleteQueue removes a queue. Deleting the current queue makes the most recently
// used remaining queue current.
func (b *QueueBoard) DeleteQueue(queueID string) bool {
	index := b.indexOf(queueID)
	if index < 0 {
		return false
	}

	b.queues = slices.Delete(b.queues, index, index+1)
	if queueID == b.currentID {
		b.currentID = ""
		if len(b.queues) > 0 {
			b.currentID = b.queues[len(b.queues)-1].ID()
		}
	}
	return true
}

// GetAllQueues returns copies of every queue in most-recently-used order.
func (b *QueueBoard) GetAllQueues() []*MultiQueue {
	out := make([]*MultiQueue, len(b.queues))
	for i, q := range b.queues {
		out[i] = q.Clone()
	}
	return out
}

// GetQueue returns a copy of the queue with the given id, or nil.
func (b *QueueBoard) GetQueue(queueID string) *MultiQueue {
	if q := b.find(queueID); q != nil {
		return q.Clone()
	}
	return nil
}

// GetCurrentQueue returns a copy of the current queue, or nil.
func (b *QueueBoard) GetCurrentQueue() *MultiQueue {
	if current := b.current(); current != nil {
		return current.Clone()
	}
	return nil
}

// Len returns the number of queues on the board.
func (b *QueueBoard) Len() int {
	return len(b.queues)
}

func (b *QueueBoard) current() *MultiQueue {
	if b.currentID == "" {
		return nil
	}
	return b.find(b.currentID)
}

func (b *QueueBoard) find(queueID string) *MultiQueue {
	if i := b.indexOf(queueID); i >= 0 {
		return b.queues[i]
	}
	return nil
}

func (b *QueueBoard) indexOf(queueID string) int {
	return slices.IndexFunc(b.queues, func(q *MultiQueue) bool {
		return q.ID() == queueID
	})
}

func (b *QueueBoard) findByTitle(title string) *MultiQueue {
	for i := len(b.queues) - 1; i >= 0; i-- {
		if b.queues[i].Title() == title {
			return b.queues[i]
		}
	}
	return nil
}

func (b *QueueBoard) makeCurrent(q *MultiQueue) {
	if i := b.indexOf(q.ID()); i >= 0 {
		b.queues = append(slices.Delete(b.queues, i, i+1), q)
	}
	b.currentID = q.ID()
}

func (b *QueueBoard) evict() {
	for len(b.queues) > b.maxQueues {
		i := slices.IndexFunc(b.queues, func(q *MultiQueue) bool {
			return q.ID() != b.currentID
		})
		if i < 0 {
			return
		}
		b.queues = slices.Delete(b.queues, i, i+1)
	}
}
