package rest

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/go-chi/chi/v5"
	"github.com/sglre6355/sgrtune/internal/modules/music_player/application/ports"
	"github.com/sglre6355/sgrtune/internal/modules/music_player/application/usecases"
	"github.com/sglre6355/sgrtune/internal/modules/music_player/domain"
)

// QueueLister lists the queues of a guild's board.
type QueueLister interface {
	List(input usecases.QueueListInput) (*usecases.QueueListOutput, error)
}

// Routes serves cached track bytes to the audio engine and exposes the queue boards.
type Routes struct {
	cache  ports.ByteCache // nil when no byte cache is configured
	queues QueueLister
}

// NewRoutes creates the music player HTTP routes.
func NewRoutes(cache ports.ByteCache, queues QueueLister) *Routes {
	return &Routes{
		cache:  cache,
		queues: queues,
	}
}

// Mount registers the routes on r.
func (rt *Routes) Mount(r chi.Router) {
	r.Get("/stream/{trackID}", rt.stream)
	r.Get("/guilds/{guildID}/queues", rt.listQueues)
}

func (rt *Routes) stream(w http.ResponseWriter, r *http.Request) {
	id := domain.TrackID(chi.URLParam(r, "trackID"))
	if rt.cache == nil || id == "" {
		http.NotFound(w, r)
		return
	}

	size, err := rt.cache.Size(r.Context(), id)
	if errors.Is(err, ports.ErrNotCached) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		slog.Error("failed to read cached size", "track", id, "error", err)
		http.Error(w, "cache unavailable", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	http.ServeContent(w, r, "", time.Time{}, newCacheReader(r.Context(), rt.cache, id, size))
}

type queueResponse struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Length     int    `json:"length"`
	Position   int    `json:"position"`
	IsShuffled bool   `json:"shuffled"`
	IsCurrent  bool   `json:"current"`
	PlaylistID string `json:"playlist_id,omitempty"`
}

type queueListResponse struct {
	Queues      []queueResponse `json:"queues"`
	TotalQueues int             `json:"total_queues"`
	Page        int             `json:"page"`
	TotalPages  int             `json:"total_pages"`
}

func (rt *Routes) listQueues(w http.ResponseWriter, r *http.Request) {
	guildID, err := snowflake.Parse(chi.URLParam(r, "guildID"))
	if err != nil {
		http.Error(w, "invalid guild id", http.StatusBadRequest)
		return
	}

	page := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		page, err = strconv.Atoi(raw)
		if err != nil {
			http.Error(w, "invalid page", http.StatusBadRequest)
			return
		}
	}

	output, err := rt.queues.List(usecases.QueueListInput{
		GuildID: guildID,
		Page:    page,
	})
	if errors.Is(err, usecases.ErrNotConnected) {
		http.Error(w, "no player for guild", http.StatusNotFound)
		return
	}
	if err != nil {
		slog.Error("failed to list queues", "guild", guildID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	response := queueListResponse{
		Queues:      make([]queueResponse, len(output.Queues)),
		TotalQueues: output.TotalQueues,
		Page:        output.CurrentPage,
		TotalPages:  output.TotalPages,
	}
	for i, q := range output.Queues {
		response.Queues[i] = queueResponse{
			ID:         q.ID,
			Title:      q.Title,
			Length:     q.Length,
			Position:   q.Position,
			IsShuffled: q.IsShuffled,
			IsCurrent:  q.IsCurrent,
			PlaylistID: q.PlaylistID,
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		slog.Warn("failed to write queue list", "guild", guildID, "error", err)
	}
}
