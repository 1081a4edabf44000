package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/sgrtune/internal/modules/music_player"
	"github.com/sglre6355/sgrtune/internal/modules/music_player/domain"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, _ []string) error {
		storage, err := openStorage(cmd)
		if err != nil {
			return err
		}
		defer storage.Close()

		fmt.Fprintln(cmd.OutOrStdout(), "migrated database schema")
		return nil
	},
}

var queuesGuildID string

var queuesCmd = &cobra.Command{
	Use:   "queues",
	Short: "Inspect persisted queues",
}

var queuesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the persisted queues of a guild",
	RunE: func(cmd *cobra.Command, _ []string) error {
		guildID, err := snowflake.Parse(queuesGuildID)
		if err != nil {
			return fmt.Errorf("invalid guild ID %q: %w", queuesGuildID, err)
		}

		storage, err := openStorage(cmd)
		if err != nil {
			return err
		}
		defer storage.Close()

		queues, err := storage.Store.ReadQueues(cmd.Context(), guildID)
		if err != nil {
			return err
		}
		lastPosition, err := storage.Store.ReadLastPosition(cmd.Context(), guildID)
		if err != nil {
			return err
		}

		return printQueues(cmd.OutOrStdout(), queues, lastPosition.String())
	},
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the byte cache",
}

var cachePutCmd = &cobra.Command{
	Use:   "put TRACK_ID FILE",
	Short: "Store a file in the byte cache and mark the track downloaded",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := domain.TrackID(args[0])

		storage, err := openStorage(cmd)
		if err != nil {
			return err
		}
		defer storage.Close()

		if storage.Cache == nil {
			return errors.New("no byte cache configured, set BYTE_CACHE_BACKEND")
		}

		file, err := os.Open(args[1])
		if err != nil {
			return err
		}
		defer file.Close()

		info, err := file.Stat()
		if err != nil {
			return err
		}

		if err := storage.Cache.Put(cmd.Context(), id, file, info.Size()); err != nil {
			return fmt.Errorf("failed to store %s: %w", id, err)
		}
		if err := storage.Store.MarkDownloaded(cmd.Context(), id, true); err != nil {
			return fmt.Errorf("failed to mark %s downloaded: %w", id, err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "cached %s (%d bytes)\n", id, info.Size())
		return nil
	},
}

var libraryCmd = &cobra.Command{
	Use:   "library",
	Short: "Inspect the local library",
}

var libraryTreeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Print the local folder tree",
	RunE: func(cmd *cobra.Command, _ []string) error {
		storage, err := openStorage(cmd)
		if err != nil {
			return err
		}
		defer storage.Close()

		tracks, err := storage.Store.ListLocalSongs(cmd.Context())
		if err != nil {
			return err
		}
		printFolder(cmd.OutOrStdout(), domain.BuildFolderTree(tracks), 0)
		return nil
	},
}

func init() {
	queuesListCmd.Flags().StringVar(&queuesGuildID, "guild", "", "guild ID owning the queues")
	_ = queuesListCmd.MarkFlagRequired("guild")

	queuesCmd.AddCommand(queuesListCmd)
	cacheCmd.AddCommand(cachePutCmd)
	libraryCmd.AddCommand(libraryTreeCmd)
}

func openStorage(cmd *cobra.Command) (*music_player.Storage, error) {
	cfg, err := music_player.LoadStorageConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return music_player.OpenStorage(cmd.Context(), cfg)
}

// printQueues writes one row per queue in board order, the current queue last.
func printQueues(w io.Writer, queues []*domain.MultiQueue, lastPosition string) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "INDEX\tID\tTITLE\tTRACKS\tPOSITION\tSHUFFLED")
	for idx, queue := range queues {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\t%t\n",
			idx, queue.ID(), queue.Title(), queue.Len(), queue.Position()+1, queue.IsShuffled())
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if len(queues) > 0 {
		_, err := fmt.Fprintf(w, "last playback position: %s\n", lastPosition)
		return err
	}
	return nil
}

// printFolder writes the folder tree, a folder's tracks before its subfolders.
func printFolder(w io.Writer, folder *domain.Folder, depth int) {
	indent := strings.Repeat("  ", depth)
	fmt.Fprintf(w, "%s%s/ (%d tracks)\n", indent, strings.TrimSuffix(folder.Name, "/"), len(folder.Flatten()))
	for _, track := range folder.Tracks {
		fmt.Fprintf(w, "%s  %s - %s\n", indent, track.Title, track.ArtistNames())
	}
	for _, sub := range folder.Subfolders {
		printFolder(w, sub, depth+1)
	}
}
