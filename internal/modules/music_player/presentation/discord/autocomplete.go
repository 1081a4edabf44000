package discord

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/sgrtune/internal/modules/music_player/application/usecases"
	"github.com/sglre6355/sgrtune/internal/modules/music_player/domain"
)

// maxChoices is the number of choices Discord accepts for autocomplete.
const maxChoices = 25

// AutocompleteHandler handles autocomplete requests.
type AutocompleteHandler struct {
	autocomplete *usecases.AutocompleteService
}

// NewAutocompleteHandler creates a new AutocompleteHandler.
func NewAutocompleteHandler(autocomplete *usecases.AutocompleteService) *AutocompleteHandler {
	return &AutocompleteHandler{
		autocomplete: autocomplete,
	}
}

// Choices returns suggestions for the focused option of an autocomplete
// interaction.
func (h *AutocompleteHandler) Choices(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
) []*discordgo.ApplicationCommandOptionChoice {
	data := i.ApplicationCommandData()

	options := data.Options
	if len(options) > 0 && options[0].Type == discordgo.ApplicationCommandOptionSubCommand {
		options = options[0].Options
	}

	var focused *discordgo.ApplicationCommandInteractionDataOption
	for _, opt := range options {
		if opt.Focused {
			focused = opt
			break
		}
	}
	if focused == nil {
		return nil
	}

	switch focused.Name {
	case "query":
		return h.queryChoices(focused.StringValue())
	case "position":
		return h.positionChoices(i.GuildID, focusedText(focused))
	case "queue":
		return h.queueChoices(i.GuildID, focused.StringValue())
	case "folder":
		return h.folderChoices(focused.StringValue())
	}
	return nil
}

// queryChoices suggests tracks for a query, offering a whole playlist first.
func (h *AutocompleteHandler) queryChoices(query string) []*discordgo.ApplicationCommandOptionChoice {
	// Don't search for very short queries
	if len(query) < 2 {
		return nil
	}

	output, err := h.autocomplete.LoadTracksForAutocomplete(
		context.Background(),
		usecases.LoadTracksForAutocompleteInput{Query: query},
	)
	if err != nil {
		slog.Debug("failed to load autocomplete tracks", "query", query, "error", err)
		return nil
	}

	choices := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(output.Tracks)+1)
	if output.IsPlaylist {
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{
			Name: truncate(
				fmt.Sprintf("\U0001F4CB %s (%d tracks)", output.PlaylistName, output.TrackCount), // 📋
				100,
			),
			Value: output.PlaylistURL,
		})
	}
	for idx, track := range output.Tracks {
		var optionName string
		if output.IsPlaylist {
			optionName = fmt.Sprintf("\U0001F3B5 %d. %s - %s", idx+1, track.Title, track.ArtistNames()) // 🎵
		} else {
			optionName = fmt.Sprintf("\U0001F3B5 %s - %s", track.Title, track.ArtistNames()) // 🎵
		}
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{
			Name:  truncate(optionName, 100),
			Value: trackURLPrefix + string(track.ID),
		})
	}
	return limitChoices(choices)
}

// positionChoices suggests items of the current timeline.
func (h *AutocompleteHandler) positionChoices(
	rawGuildID string,
	typed string,
) []*discordgo.ApplicationCommandOptionChoice {
	guildID, err := snowflake.Parse(rawGuildID)
	if err != nil {
		slog.Warn("failed to parse guild ID in autocomplete", "error", err, "guildID", rawGuildID)
		return nil
	}

	return timelineChoices(h.autocomplete.Timeline(guildID), typed)
}

// queueChoices suggests the guild's queues, most recently used first.
func (h *AutocompleteHandler) queueChoices(
	rawGuildID string,
	typed string,
) []*discordgo.ApplicationCommandOptionChoice {
	guildID, err := snowflake.Parse(rawGuildID)
	if err != nil {
		slog.Warn("failed to parse guild ID in autocomplete", "error", err, "guildID", rawGuildID)
		return nil
	}

	var choices []*discordgo.ApplicationCommandOptionChoice
	for _, queue := range h.autocomplete.Queues(guildID) {
		if !containsFold(queue.Title, typed) {
			continue
		}
		name := fmt.Sprintf("%s (%d tracks)", queue.Title, queue.Length)
		if queue.IsCurrent {
			name = "\u25B6 " + name // ▶
		}
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{
			Name:  truncate(name, 100),
			Value: queue.ID,
		})
	}
	return limitChoices(choices)
}

// folderChoices suggests library folders.
func (h *AutocompleteHandler) folderChoices(typed string) []*discordgo.ApplicationCommandOptionChoice {
	paths, err := h.autocomplete.Folders(context.Background())
	if err != nil {
		slog.Warn("failed to list library folders", "error", err)
		return nil
	}

	var choices []*discordgo.ApplicationCommandOptionChoice
	for _, p := range paths {
		if !containsFold(p, typed) {
			continue
		}
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{
			Name:  truncate(p, 100),
			Value: p,
		})
	}
	return limitChoices(choices)
}

// timelineChoices builds 1-indexed position choices, filtered by the typed
// position prefix or title.
func timelineChoices(tracks []domain.Track, typed string) []*discordgo.ApplicationCommandOptionChoice {
	choices := make([]*discordgo.ApplicationCommandOptionChoice, 0, min(len(tracks), maxChoices))
	for idx, track := range tracks {
		displayPos := idx + 1
		if typed != "" &&
			!strings.HasPrefix(strconv.Itoa(displayPos), typed) &&
			!containsFold(track.Title, typed) {
			continue
		}
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{
			Name:  fmt.Sprintf("%d. %s", displayPos, truncate(track.Title, 90)),
			Value: displayPos,
		})
		if len(choices) == maxChoices {
			break
		}
	}
	return choices
}

// focusedText returns what the user typed into an option, whatever its type.
func focusedText(opt *discordgo.ApplicationCommandInteractionDataOption) string {
	if opt.Value == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(opt.Value))
}

func limitChoices(
	choices []*discordgo.ApplicationCommandOptionChoice,
) []*discordgo.ApplicationCommandOptionChoice {
	if len(choices) > maxChoices {
		return choices[:maxChoices]
	}
	return choices
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-3]) + "..."
}
