package usecases

import (
	"context"
	"log/slog"

	"github.com/sglre6355/sgrtune/internal/modules/music_player/application/ports"
	"github.com/sglre6355/sgrtune/internal/modules/music_player/domain"
)

// LoadTracksInput contains the input for the LoadTracks use case.
type LoadTracksInput struct {
	Query string
}

// LoadTracksOutput contains the result of the LoadTracks use case.
type LoadTracksOutput struct {
	Tracks []domain.Track
	// Title names the queue the tracks should be played as.
	Title      string
	PlaylistID string
	IsPlaylist bool
}

// TrackLoaderService handles track loading operations.
type TrackLoaderService struct {
	searcher ports.TrackSearcher
	songs    domain.SongRepository
}

// NewTrackLoaderService creates a new TrackLoaderService.
// songs is optional; when set, loaded tracks are recorded in the library.
func NewTrackLoaderService(searcher ports.TrackSearcher, songs domain.SongRepository) *TrackLoaderService {
	return &TrackLoaderService{
		searcher: searcher,
		songs:    songs,
	}
}

// LoadTracks loads the tracks for a query. A playlist yields all of its tracks,
// a search only the best match.
func (s *TrackLoaderService) LoadTracks(
	ctx context.Context,
	input LoadTracksInput,
) (*LoadTracksOutput, error) {
	query := domain.NewSearchQuery(input.Query)
	if !query.IsValid() {
		return nil, ErrNoResults
	}

	result, err := s.searcher.LoadTracks(ctx, query.LavalinkQuery())
	if err != nil {
		return nil, err
	}
	if result.Type == ports.LoadTypeEmpty || result.Type == ports.LoadTypeError ||
		len(result.Tracks) == 0 {
		return nil, ErrNoResults
	}

	output := &LoadTracksOutput{Tracks: result.Tracks}
	switch result.Type {
	case ports.LoadTypePlaylist:
		output.IsPlaylist = true
		output.Title = result.PlaylistTitle
		output.PlaylistID = result.PlaylistID
	case ports.LoadTypeSearch:
		output.Tracks = result.Tracks[:1]
	}
	if output.Title == "" {
		output.Title = output.Tracks[0].Title
	}

	s.record(ctx, output.Tracks)
	return output, nil
}

// record stores loaded tracks in the library. Failures only cost the library entry.
func (s *TrackLoaderService) record(ctx context.Context, tracks []domain.Track) {
	if s.songs == nil {
		return
	}
	if err := s.songs.InsertSongs(ctx, tracks); err != nil {
		slog.Warn("failed to record loaded tracks", "count", len(tracks), "error", err)
	}
}

// SearchTracksInput contains the input for the SearchTracks use case.
type SearchTracksInput struct {
	Query string
	Limit int
}

// SearchTracksOutput contains the result of the SearchTracks use case.
type SearchTracksOutput struct {
	Tracks []domain.Track
}

// SearchTracks searches for tracks matching the query.
func (s *TrackLoaderService) SearchTracks(
	ctx context.Context,
	input SearchTracksInput,
) (*SearchTracksOutput, error) {
	if input.Query == "" {
		return &SearchTracksOutput{Tracks: nil}, nil
	}

	query := domain.NewSearchQuery(input.Query)
	result, err := s.searcher.LoadTracks(ctx, query.LavalinkQuery())
	if err != nil {
		return nil, err
	}

	if result.Type == ports.LoadTypeEmpty || result.Type == ports.LoadTypeError {
		return &SearchTracksOutput{Tracks: nil}, nil
	}

	limit := input.Limit
	if limit <= 0 || limit > len(result.Tracks) {
		limit = len(result.Tracks)
	}

	return &SearchTracksOutput{
		Tracks: result.Tracks[:limit],
	}, nil
}
