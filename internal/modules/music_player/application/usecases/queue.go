package usecases

import (
	"context"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/sgrtune/internal/modules/music_player/domain"
)

const DefaultPageSize = 10

// QueueSummary describes one queue of a board.
type QueueSummary struct {
	ID         string
	Title      string
	Length     int
	Position   int
	IsShuffled bool
	IsCurrent  bool
	PlaylistID string
}

// QueueListInput contains the input for the QueueList use case.
type QueueListInput struct {
	GuildID               snowflake.ID
	Page                  int          // 1-indexed page number
	PageSize              int          // Items per page (optional, defaults to 10)
	NotificationChannelID snowflake.ID // Optional: updates notification channel if non-zero
}

// QueueListOutput contains the result of the QueueList use case.
// Queues are listed most recently used first.
type QueueListOutput struct {
	Queues      []QueueSummary
	TotalQueues int
	CurrentPage int
	TotalPages  int
}

// QueueShowInput contains the input for the QueueShow use case.
type QueueShowInput struct {
	GuildID snowflake.ID
	// QueueID selects the queue to show; empty means the current queue.
	QueueID  string
	Page     int // 1-indexed page number; 0 means the page holding the cursor
	PageSize int
}

// QueueShowOutput contains the result of the QueueShow use case.
type QueueShowOutput struct {
	Queue QueueSummary
	// Tracks is the page of the active order; FirstIndex is the index of Tracks[0].
	Tracks      []domain.Track
	FirstIndex  int
	CurrentPage int
	TotalPages  int
}

// QueueService lists, switches and deletes the queues of a guild's board.
type QueueService struct {
	playback *PlaybackService
}

// NewQueueService creates a new QueueService.
func NewQueueService(playback *PlaybackService) *QueueService {
	return &QueueService{playback: playback}
}

// List returns the board's queues with pagination.
func (q *QueueService) List(input QueueListInput) (*QueueListOutput, error) {
	var summaries []QueueSummary
	err := q.playback.View(input.GuildID, func(state *domain.PlayerState) {
		if input.NotificationChannelID != 0 {
			state.SetNotificationChannelID(input.NotificationChannelID)
		}

		board := state.Board()
		queues := board.GetAllQueues()
		current := board.GetCurrentQueue()
		for i := len(queues) - 1; i >= 0; i-- {
			summary := summarize(queues[i], current)
			if summary.IsCurrent {
				summary.Position = state.CurrentIndex()
			}
			summaries = append(summaries, summary)
		}
	})
	if err != nil {
		return nil, err
	}

	page, totalPages, start, end := paginate(len(summaries), input.Page, input.PageSize)
	return &QueueListOutput{
		Queues:      summaries[start:end],
		TotalQueues: len(summaries),
		CurrentPage: page,
		TotalPages:  totalPages,
	}, nil
}

// Show returns a page of a queue's active order. Without an explicit page it
// returns the page holding the queue's cursor.
func (q *QueueService) Show(input QueueShowInput) (*QueueShowOutput, error) {
	var (
		queue    *domain.MultiQueue
		summary  QueueSummary
		notFound bool
	)
	err := q.playback.View(input.GuildID, func(state *domain.PlayerState) {
		board := state.Board()
		current := board.GetCurrentQueue()
		if input.QueueID == "" {
			queue = current
		} else {
			queue = board.GetQueue(input.QueueID)
		}
		if queue == nil {
			notFound = true
			return
		}
		summary = summarize(queue, current)
		if summary.IsCurrent {
			summary.Position = state.CurrentIndex()
		}
	})
	if err != nil {
		return nil, err
	}
	if notFound {
		return nil, ErrQueueNotFound
	}

	pageSize := input.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	requested := input.Page
	if requested <= 0 {
		requested = summary.Position/pageSize + 1
	}

	items := queue.ActiveOrder()
	page, totalPages, start, end := paginate(len(items), requested, pageSize)
	return &QueueShowOutput{
		Queue:       summary,
		Tracks:      items[start:end],
		FirstIndex:  start,
		CurrentPage: page,
		TotalPages:  totalPages,
	}, nil
}

// Switch makes a queue current and starts playing it.
func (q *QueueService) Switch(ctx context.Context, guildID snowflake.ID, queueID string) (*domain.Track, error) {
	return q.playback.SwitchQueue(ctx, guildID, queueID)
}

// Delete removes a queue from the board.
func (q *QueueService) Delete(ctx context.Context, guildID snowflake.ID, queueID string) error {
	return q.playback.DeleteQueue(ctx, guildID, queueID)
}

func summarize(queue, current *domain.MultiQueue) QueueSummary {
	return QueueSummary{
		ID:         queue.ID(),
		Title:      queue.Title(),
		Length:     queue.Len(),
		Position:   queue.Position(),
		IsShuffled: queue.IsShuffled(),
		IsCurrent:  current != nil && current.ID() == queue.ID(),
		PlaylistID: queue.PlaylistID(),
	}
}

// paginate clamps a 1-indexed page and returns the slice bounds for it.
func paginate(total, page, pageSize int) (clamped, totalPages, start, end int) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	totalPages = (total + pageSize - 1) / pageSize
	if totalPages == 0 {
		totalPages = 1
	}

	clamped = min(max(page, 1), totalPages)
	start = min((clamped-1)*pageSize, total)
	end = min(start+pageSize, total)
	return clamped, totalPages, start, end
}
