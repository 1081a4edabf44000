package usecases

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/sgrtune/internal/modules/music_player/domain"
)

// BrowseOutput contains the result of the Browse use case.
type BrowseOutput struct {
	// Stack is the navigation path from the root to Folder.
	Stack  domain.FolderStack
	Folder *domain.Folder
	// Parent is the path one level up, or "" at the root.
	Parent string
}

// PlayFolderInput contains the input for the PlayFolder use case.
type PlayFolderInput struct {
	GuildID    snowflake.ID
	Path       string
	Sort       domain.SongSortType
	Descending bool
	Shuffle    bool
	// OfflineOnly keeps only tracks playable without a network connection.
	OfflineOnly           bool
	NotificationChannelID snowflake.ID
}

// LibraryService browses and plays the local library.
type LibraryService struct {
	songs    domain.SongRepository
	playback *PlaybackService
}

// NewLibraryService creates a new LibraryService.
func NewLibraryService(songs domain.SongRepository, playback *PlaybackService) *LibraryService {
	return &LibraryService{
		songs:    songs,
		playback: playback,
	}
}

// FolderTree builds the folder tree of the local library.
func (l *LibraryService) FolderTree(ctx context.Context) (*domain.Folder, error) {
	tracks, err := l.songs.ListLocalSongs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list local songs: %w", err)
	}
	return domain.BuildFolderTree(tracks), nil
}

// Browse walks the folder tree down to p.
func (l *LibraryService) Browse(ctx context.Context, p string) (*BrowseOutput, error) {
	root, err := l.FolderTree(ctx)
	if err != nil {
		return nil, err
	}

	stack := domain.NewFolderStack(root)
	folder := root
	for _, name := range strings.Split(strings.Trim(path.Clean("/"+p), "/"), "/") {
		if name == "" {
			continue
		}
		folder = folder.Find(path.Join(folder.Path, name))
		if folder == nil {
			return nil, ErrFolderNotFound
		}
		stack = stack.Push(folder)
	}

	output := &BrowseOutput{Stack: stack, Folder: folder}
	if stack.Depth() > 1 {
		output.Parent = stack.Pop().Path()
	}
	return output, nil
}

// PlayFolder plays every track below a folder as a new queue titled after the folder.
func (l *LibraryService) PlayFolder(ctx context.Context, input PlayFolderInput) (*PlayQueueOutput, error) {
	browse, err := l.Browse(ctx, input.Path)
	if err != nil {
		return nil, err
	}

	tracks := domain.SortTracks(browse.Folder.Flatten(), input.Sort, input.Descending)
	tracks = domain.AvailableTracks(tracks, !input.OfflineOnly)
	if len(tracks) == 0 {
		return nil, ErrQueueEmpty
	}

	return l.playback.PlayQueue(ctx, PlayQueueInput{
		GuildID:               input.GuildID,
		Title:                 browse.Folder.Name,
		Tracks:                tracks,
		ForceInsert:           true,
		Shuffle:               input.Shuffle,
		NotificationChannelID: input.NotificationChannelID,
	})
}
