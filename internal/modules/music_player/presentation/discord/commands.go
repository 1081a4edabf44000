package discord

import (
	"github.com/bwmarrin/discordgo"
	"github.com/sglre6355/sgrtune/internal/modules/music_player/domain"
)

// Commands returns all slash commands for the music player module.
func Commands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        "join",
			Description: "Join a voice channel",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionChannel,
					Name:        "channel",
					Description: "Voice channel to join (defaults to your current channel)",
					Required:    false,
					ChannelTypes: []discordgo.ChannelType{
						discordgo.ChannelTypeGuildVoice,
						discordgo.ChannelTypeGuildStageVoice,
					},
				},
			},
		},
		{
			Name:        "leave",
			Description: "Leave the voice channel",
		},
		{
			Name:        "play",
			Description: "Play a track or playlist as a new queue",
			Options: []*discordgo.ApplicationCommandOption{
				queryOption(),
				{
					Type:        discordgo.ApplicationCommandOptionBoolean,
					Name:        "shuffle",
					Description: "Shuffle the queue before playing",
					Required:    false,
				},
				{
					Type:        discordgo.ApplicationCommandOptionBoolean,
					Name:        "replace",
					Description: "Replace the current queue instead of adding a new one",
					Required:    false,
				},
			},
		},
		{
			Name:        "playnext",
			Description: "Play tracks right after the current one",
			Options:     []*discordgo.ApplicationCommandOption{queryOption()},
		},
		{
			Name:        "enqueue",
			Description: "Add tracks to the end of the current queue",
			Options:     []*discordgo.ApplicationCommandOption{queryOption()},
		},
		{
			Name:        "pause",
			Description: "Pause playback",
		},
		{
			Name:        "resume",
			Description: "Resume playback",
		},
		{
			Name:        "skip",
			Description: "Skip the current track",
		},
		{
			Name:        "seek",
			Description: "Jump to a track of the current queue",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:         discordgo.ApplicationCommandOptionInteger,
					Name:         "position",
					Description:  "Position of the track (1-indexed, as shown in queue show)",
					Required:     true,
					MinValue:     floatPtr(1),
					Autocomplete: true,
				},
			},
		},
		{
			Name:        "shuffle",
			Description: "Toggle shuffle on the current queue",
		},
		{
			Name:        "repeat",
			Description: "Set the repeat mode (or cycle through modes if no option provided)",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "mode",
					Description: "Repeat mode to set (omit to cycle through modes)",
					Required:    false,
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "Off", Value: domain.RepeatOff.String()},
						{Name: "One", Value: domain.RepeatOne.String()},
						{Name: "All", Value: domain.RepeatAll.String()},
					},
				},
			},
		},
		{
			Name:        "queue",
			Description: "Manage the queues",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "list",
					Description: "List the queues",
					Options:     []*discordgo.ApplicationCommandOption{pageOption()},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "show",
					Description: "Show the tracks of a queue",
					Options: []*discordgo.ApplicationCommandOption{
						queueOption(false),
						pageOption(),
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "switch",
					Description: "Switch to another queue",
					Options:     []*discordgo.ApplicationCommandOption{queueOption(true)},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "delete",
					Description: "Delete a queue",
					Options:     []*discordgo.ApplicationCommandOption{queueOption(true)},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "resume",
					Description: "Resume the saved queue where it was left",
				},
			},
		},
		{
			Name:        "library",
			Description: "Browse and play the local library",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "browse",
					Description: "List the contents of a folder",
					Options:     []*discordgo.ApplicationCommandOption{folderOption(false)},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "play",
					Description: "Play every track below a folder",
					Options: []*discordgo.ApplicationCommandOption{
						folderOption(true),
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "sort",
							Description: "Sort order",
							Required:    false,
							Choices:     sortChoices(),
						},
						{
							Type:        discordgo.ApplicationCommandOptionBoolean,
							Name:        "descending",
							Description: "Reverse the sort order",
							Required:    false,
						},
						{
							Type:        discordgo.ApplicationCommandOptionBoolean,
							Name:        "shuffle",
							Description: "Shuffle the folder",
							Required:    false,
						},
						{
							Type:        discordgo.ApplicationCommandOptionBoolean,
							Name:        "offline",
							Description: "Only play tracks available offline",
							Required:    false,
						},
					},
				},
			},
		},
	}
}

func queryOption() *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:         discordgo.ApplicationCommandOptionString,
		Name:         "query",
		Description:  "URL or search term",
		Required:     true,
		Autocomplete: true,
	}
}

func pageOption() *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionInteger,
		Name:        "page",
		Description: "Page number",
		Required:    false,
		MinValue:    floatPtr(1),
	}
}

func queueOption(required bool) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:         discordgo.ApplicationCommandOptionString,
		Name:         "queue",
		Description:  "Queue (defaults to the current queue)",
		Required:     required,
		Autocomplete: true,
	}
}

func folderOption(required bool) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:         discordgo.ApplicationCommandOptionString,
		Name:         "folder",
		Description:  "Library folder",
		Required:     required,
		Autocomplete: true,
	}
}

func sortChoices() []*discordgo.ApplicationCommandOptionChoice {
	names := map[domain.SongSortType]string{
		domain.SortByCreateDate:   "Date added",
		domain.SortByModifiedDate: "Date modified",
		domain.SortByReleaseDate:  "Release date",
		domain.SortByName:         "Name",
		domain.SortByArtist:       "Artist",
		domain.SortByPlayTime:     "Play time",
		domain.SortByPlayCount:    "Play count",
	}

	choices := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(names))
	for sortType := domain.SortByCreateDate; sortType <= domain.SortByPlayCount; sortType++ {
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{
			Name:  names[sortType],
			Value: sortType.String(),
		})
	}
	return choices
}

func floatPtr(f float64) *float64 {
	return &f
}
