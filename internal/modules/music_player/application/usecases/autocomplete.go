package usecases

import (
	"context"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/sgrtune/internal/modules/music_player/application/ports"
	"github.com/sglre6355/sgrtune/internal/modules/music_player/domain"
)

// AutocompleteQueue is a queue suggestion.
type AutocompleteQueue struct {
	ID        string
	Title     string
	Length    int
	IsCurrent bool
}

// AutocompleteService handles autocomplete-related operations.
type AutocompleteService struct {
	playback *PlaybackService
	loader   *TrackLoaderService
	library  *LibraryService
}

// NewAutocompleteService creates a new AutocompleteService.
func NewAutocompleteService(
	playback *PlaybackService,
	loader *TrackLoaderService,
	library *LibraryService,
) *AutocompleteService {
	return &AutocompleteService{
		playback: playback,
		loader:   loader,
		library:  library,
	}
}

// Queues returns the guild's queues, most recently used first.
func (s *AutocompleteService) Queues(guildID snowflake.ID) []AutocompleteQueue {
	var out []AutocompleteQueue
	_ = s.playback.View(guildID, func(state *domain.PlayerState) {
		board := state.Board()
		current := board.GetCurrentQueue()
		queues := board.GetAllQueues()
		for i := len(queues) - 1; i >= 0; i-- {
			out = append(out, AutocompleteQueue{
				ID:        queues[i].ID(),
				Title:     queues[i].Title(),
				Length:    queues[i].Len(),
				IsCurrent: current != nil && current.ID() == queues[i].ID(),
			})
		}
	})
	return out
}

// Timeline returns the items of the guild's current timeline.
func (s *AutocompleteService) Timeline(guildID snowflake.ID) []domain.Track {
	var tracks []domain.Track
	_ = s.playback.View(guildID, func(state *domain.PlayerState) {
		tracks = state.Timeline()
	})
	return tracks
}

// SearchTracks searches for tracks matching the query.
func (s *AutocompleteService) SearchTracks(
	ctx context.Context,
	input SearchTracksInput,
) (*SearchTracksOutput, error) {
	if s.loader == nil {
		return &SearchTracksOutput{Tracks: nil}, nil
	}
	return s.loader.SearchTracks(ctx, input)
}

// Folders returns the paths of every library folder.
func (s *AutocompleteService) Folders(ctx context.Context) ([]string, error) {
	if s.library == nil {
		return nil, nil
	}
	root, err := s.library.FolderTree(ctx)
	if err != nil {
		return nil, err
	}

	var paths []string
	var walk func(*domain.Folder)
	walk = func(f *domain.Folder) {
		paths = append(paths, f.Path)
		for _, sub := range f.Subfolders {
			walk(sub)
		}
	}
	walk(root)
	return paths, nil
}

// LoadTracksForAutocompleteInput contains the input for playlist-aware autocomplete.
type LoadTracksForAutocompleteInput struct {
	Query string
	Limit int // Max individual tracks to return (default 24, leaving room for playlist option)
}

// LoadTracksForAutocompleteOutput contains the result for playlist-aware autocomplete.
type LoadTracksForAutocompleteOutput struct {
	IsPlaylist   bool
	PlaylistName string
	PlaylistURL  string // Original URL for "add all" option
	TrackCount   int    // Total tracks in playlist
	Tracks       []domain.Track
}

// LoadTracksForAutocomplete loads tracks for autocomplete, with special handling for playlists.
func (s *AutocompleteService) LoadTracksForAutocomplete(
	ctx context.Context,
	input LoadTracksForAutocompleteInput,
) (*LoadTracksForAutocompleteOutput, error) {
	if s.loader == nil {
		return &LoadTracksForAutocompleteOutput{}, nil
	}

	query := domain.NewSearchQuery(input.Query)
	result, err := s.loader.searcher.LoadTracks(ctx, query.LavalinkQuery())
	if err != nil {
		return nil, err
	}

	if result.Type == ports.LoadTypeEmpty || result.Type == ports.LoadTypeError ||
		len(result.Tracks) == 0 {
		return &LoadTracksForAutocompleteOutput{}, nil
	}

	limit := input.Limit
	if limit <= 0 {
		limit = 24
	}

	tracks := result.Tracks
	if len(tracks) > limit {
		tracks = tracks[:limit]
	}

	return &LoadTracksForAutocompleteOutput{
		IsPlaylist:   result.Type == ports.LoadTypePlaylist,
		PlaylistName: result.PlaylistTitle,
		PlaylistURL:  input.Query,
		TrackCount:   len(result.Tracks),
		Tracks:       tracks,
	}, nil
}
