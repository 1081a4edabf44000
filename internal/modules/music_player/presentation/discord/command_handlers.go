package discord

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/sgrtune/internal/bot"
	"github.com/sglre6355/sgrtune/internal/modules/music_player/application/usecases"
	"github.com/sglre6355/sgrtune/internal/modules/music_player/domain"
)

// Embed colors.
const (
	colorSuccess = 0x08c404
	colorError   = 0xE74C3C
)

const trackURLPrefix = "https://music.youtube.com/watch?v="

var (
	errInvalidGuild   = errors.New("invalid guild")
	errInvalidUser    = errors.New("invalid user")
	errInvalidChannel = errors.New("invalid notification channel")
)

// CommandHandlers holds all the command handlers.
type CommandHandlers struct {
	voiceChannel        *usecases.VoiceChannelService
	playback            *usecases.PlaybackService
	queue               *usecases.QueueService
	trackLoader         *usecases.TrackLoaderService
	library             *usecases.LibraryService
	notificationChannel *usecases.NotificationChannelService
}

// NewCommandHandlers creates new CommandHandlers.
func NewCommandHandlers(
	voiceChannel *usecases.VoiceChannelService,
	playback *usecases.PlaybackService,
	queue *usecases.QueueService,
	trackLoader *usecases.TrackLoaderService,
	library *usecases.LibraryService,
	notificationChannel *usecases.NotificationChannelService,
) *CommandHandlers {
	return &CommandHandlers{
		voiceChannel:        voiceChannel,
		playback:            playback,
		queue:               queue,
		trackLoader:         trackLoader,
		library:             library,
		notificationChannel: notificationChannel,
	}
}

// HandleJoin handles the /join command.
func (h *CommandHandlers) HandleJoin(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	ctx := context.Background()

	guildID, notificationChannelID, err := interactionTarget(i)
	if err != nil {
		return respondError(r, err)
	}
	userID, err := interactionUser(i)
	if err != nil {
		return respondError(r, err)
	}

	var voiceChannelID snowflake.ID
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Name == "channel" {
			voiceChannelID, err = snowflake.Parse(opt.ChannelValue(s).ID)
			if err != nil {
				return respondError(r, errors.New("invalid voice channel"))
			}
		}
	}

	output, err := h.voiceChannel.Join(ctx, usecases.JoinInput{
		GuildID:               guildID,
		UserID:                userID,
		NotificationChannelID: notificationChannelID,
		VoiceChannelID:        voiceChannelID,
	})
	if err != nil {
		return respondError(r, err)
	}

	return respondSuccess(r, fmt.Sprintf("Connected to <#%d>.", output.VoiceChannelID))
}

// HandleLeave handles the /leave command.
func (h *CommandHandlers) HandleLeave(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	ctx := context.Background()

	guildID, err := snowflake.Parse(i.GuildID)
	if err != nil {
		return respondError(r, errInvalidGuild)
	}

	if err := h.voiceChannel.Leave(ctx, usecases.LeaveInput{GuildID: guildID}); err != nil {
		return respondError(r, err)
	}

	return respondSuccess(r, "Disconnected.")
}

// HandlePlay handles the /play command.
// The loaded tracks are played as a new queue, or replace the current one.
func (h *CommandHandlers) HandlePlay(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	ctx := context.Background()

	// Loading and resolving can outlast the interaction deadline.
	if err := r.Defer(); err != nil {
		return err
	}

	guildID, notificationChannelID, loaded, err := h.joinAndLoad(ctx, i)
	if err != nil {
		return respondError(r, err)
	}

	options := i.ApplicationCommandData().Options
	output, err := h.playback.PlayQueue(ctx, usecases.PlayQueueInput{
		GuildID:               guildID,
		Title:                 loaded.Title,
		Tracks:                loaded.Tracks,
		Replace:               boolOption(options, "replace"),
		Shuffle:               boolOption(options, "shuffle"),
		PlaylistID:            loaded.PlaylistID,
		NotificationChannelID: notificationChannelID,
	})
	if err != nil {
		return respondError(r, err)
	}

	var description string
	if loaded.IsPlaylist {
		description = fmt.Sprintf(
			"Playing **%d tracks** from playlist **%s**.",
			output.QueueSize,
			output.QueueTitle,
		)
	} else {
		description = fmt.Sprintf("Playing %s.", trackLink(loaded.Tracks[0]))
	}

	return respondSuccess(r, description)
}

// HandlePlayNext handles the /playnext command.
func (h *CommandHandlers) HandlePlayNext(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	return h.handleEnqueue(i, r, h.playback.EnqueueNext)
}

// HandleEnqueue handles the /enqueue command.
func (h *CommandHandlers) HandleEnqueue(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	return h.handleEnqueue(i, r, h.playback.EnqueueEnd)
}

func (h *CommandHandlers) handleEnqueue(
	i *discordgo.InteractionCreate,
	r bot.Responder,
	enqueue func(context.Context, usecases.EnqueueInput) (*usecases.EnqueueOutput, error),
) error {
	ctx := context.Background()

	// Loading and resolving can outlast the interaction deadline.
	if err := r.Defer(); err != nil {
		return err
	}

	guildID, notificationChannelID, loaded, err := h.joinAndLoad(ctx, i)
	if err != nil {
		return respondError(r, err)
	}

	output, err := enqueue(ctx, usecases.EnqueueInput{
		GuildID:               guildID,
		Tracks:                loaded.Tracks,
		NotificationChannelID: notificationChannelID,
	})
	if err != nil {
		return respondError(r, err)
	}

	var what string
	if len(loaded.Tracks) == 1 {
		what = trackLink(loaded.Tracks[0])
	} else {
		what = fmt.Sprintf("**%d tracks**", len(loaded.Tracks))
	}

	var description string
	switch {
	case output.NewQueue:
		description = fmt.Sprintf("Playing %s as a new queue.", what)
	case output.Started != nil:
		description = fmt.Sprintf("Playing %s.", what)
	default:
		description = fmt.Sprintf("Added %s at position %d.", what, output.Position+1)
	}

	return respondSuccess(r, description)
}

// joinAndLoad joins the caller's voice channel (or updates the notification
// channel if already connected) and loads the tracks of the query option.
func (h *CommandHandlers) joinAndLoad(
	ctx context.Context,
	i *discordgo.InteractionCreate,
) (snowflake.ID, snowflake.ID, *usecases.LoadTracksOutput, error) {
	guildID, notificationChannelID, err := interactionTarget(i)
	if err != nil {
		return 0, 0, nil, err
	}
	userID, err := interactionUser(i)
	if err != nil {
		return 0, 0, nil, err
	}

	if _, err := h.voiceChannel.Join(ctx, usecases.JoinInput{
		GuildID:               guildID,
		UserID:                userID,
		NotificationChannelID: notificationChannelID,
	}); err != nil {
		return 0, 0, nil, err
	}

	loaded, err := h.trackLoader.LoadTracks(ctx, usecases.LoadTracksInput{
		Query: stringOption(i.ApplicationCommandData().Options, "query"),
	})
	if err != nil {
		return 0, 0, nil, err
	}
	return guildID, notificationChannelID, loaded, nil
}

// HandlePause handles the /pause command.
func (h *CommandHandlers) HandlePause(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	ctx := context.Background()

	guildID, notificationChannelID, err := interactionTarget(i)
	if err != nil {
		return respondError(r, err)
	}

	if err := h.playback.Pause(ctx, usecases.PauseInput{
		GuildID:               guildID,
		NotificationChannelID: notificationChannelID,
	}); err != nil {
		return respondError(r, err)
	}

	return respondSuccess(r, "Paused playback.")
}

// HandleResume handles the /resume command.
func (h *CommandHandlers) HandleResume(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	ctx := context.Background()

	guildID, notificationChannelID, err := interactionTarget(i)
	if err != nil {
		return respondError(r, err)
	}

	if err := h.playback.Resume(ctx, usecases.ResumeInput{
		GuildID:               guildID,
		NotificationChannelID: notificationChannelID,
	}); err != nil {
		return respondError(r, err)
	}

	return respondSuccess(r, "Resumed playback.")
}

// HandleSkip handles the /skip command.
func (h *CommandHandlers) HandleSkip(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	ctx := context.Background()

	guildID, notificationChannelID, err := interactionTarget(i)
	if err != nil {
		return respondError(r, err)
	}

	output, err := h.playback.Skip(ctx, usecases.SkipInput{
		GuildID:               guildID,
		NotificationChannelID: notificationChannelID,
	})
	if err != nil {
		return respondError(r, err)
	}

	// "Now Playing" is sent by the notification handler.
	description := fmt.Sprintf("Skipped %s.", trackLink(*output.SkippedTrack))
	if output.NextTrack == nil {
		description += " Reached the end of the queue."
	}
	return respondSuccess(r, description)
}

// HandleSeek handles the /seek command.
func (h *CommandHandlers) HandleSeek(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	ctx := context.Background()

	guildID, notificationChannelID, err := interactionTarget(i)
	if err != nil {
		return respondError(r, err)
	}

	// Convert from 1-indexed (user input) to 0-indexed (internal)
	index := intOption(i.ApplicationCommandData().Options, "position") - 1

	track, err := h.playback.Seek(ctx, usecases.SeekInput{
		GuildID:               guildID,
		Index:                 index,
		NotificationChannelID: notificationChannelID,
	})
	if err != nil {
		return respondError(r, err)
	}

	description := fmt.Sprintf("Jumped to position %d.", index+1)
	if track != nil {
		description = fmt.Sprintf("Jumped to position %d: %s.", index+1, trackLink(*track))
	}
	return respondSuccess(r, description)
}

// HandleShuffle handles the /shuffle command.
func (h *CommandHandlers) HandleShuffle(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	ctx := context.Background()

	guildID, notificationChannelID, err := interactionTarget(i)
	if err != nil {
		return respondError(r, err)
	}
	h.setNotificationChannel(ctx, guildID, notificationChannelID)

	enabled, err := h.playback.TriggerShuffle(ctx, guildID)
	if err != nil {
		return respondError(r, err)
	}

	if enabled {
		return respondSuccess(r, "Shuffle enabled.")
	}
	return respondSuccess(r, "Shuffle disabled.")
}

// HandleRepeat handles the /repeat command.
func (h *CommandHandlers) HandleRepeat(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	ctx := context.Background()

	guildID, notificationChannelID, err := interactionTarget(i)
	if err != nil {
		return respondError(r, err)
	}

	mode := stringOption(i.ApplicationCommandData().Options, "mode")
	if mode != "" {
		err = h.playback.SetRepeatMode(ctx, usecases.SetRepeatModeInput{
			GuildID:               guildID,
			Mode:                  mode,
			NotificationChannelID: notificationChannelID,
		})
	} else {
		h.setNotificationChannel(ctx, guildID, notificationChannelID)
		mode, err = h.playback.CycleRepeatMode(ctx, guildID)
	}
	if err != nil {
		return respondError(r, err)
	}

	var description string
	switch domain.ParseRepeatMode(mode) {
	case domain.RepeatOne:
		description = "Now repeating the current track."
	case domain.RepeatAll:
		description = "Now repeating the queue."
	default:
		description = "Repeat disabled."
	}
	return respondSuccess(r, description)
}

// HandleQueue handles the /queue command.
func (h *CommandHandlers) HandleQueue(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	options := i.ApplicationCommandData().Options
	if len(options) == 0 {
		return respondError(r, errors.New("invalid subcommand"))
	}

	guildID, notificationChannelID, err := interactionTarget(i)
	if err != nil {
		return respondError(r, err)
	}

	subCmd := options[0]
	switch subCmd.Name {
	case "list":
		return h.handleQueueList(r, guildID, notificationChannelID, subCmd.Options)
	case "show":
		return h.handleQueueShow(r, guildID, subCmd.Options)
	case "switch":
		return h.handleQueueSwitch(r, guildID, notificationChannelID, subCmd.Options)
	case "delete":
		return h.handleQueueDelete(r, guildID, notificationChannelID, subCmd.Options)
	case "resume":
		return h.handleQueueResume(r, guildID, notificationChannelID)
	default:
		return respondError(r, errors.New("unknown subcommand"))
	}
}

func (h *CommandHandlers) handleQueueList(
	r bot.Responder,
	guildID, notificationChannelID snowflake.ID,
	options []*discordgo.ApplicationCommandInteractionDataOption,
) error {
	output, err := h.queue.List(usecases.QueueListInput{
		GuildID:               guildID,
		Page:                  intOption(options, "page"),
		NotificationChannelID: notificationChannelID,
	})
	if err != nil {
		return respondError(r, err)
	}

	return respondEmbed(r, queueListEmbed(output))
}

func (h *CommandHandlers) handleQueueShow(
	r bot.Responder,
	guildID snowflake.ID,
	options []*discordgo.ApplicationCommandInteractionDataOption,
) error {
	output, err := h.queue.Show(usecases.QueueShowInput{
		GuildID: guildID,
		QueueID: stringOption(options, "queue"),
		Page:    intOption(options, "page"),
	})
	if err != nil {
		return respondError(r, err)
	}

	return respondEmbed(r, queueShowEmbed(output))
}

func (h *CommandHandlers) handleQueueSwitch(
	r bot.Responder,
	guildID, notificationChannelID snowflake.ID,
	options []*discordgo.ApplicationCommandInteractionDataOption,
) error {
	ctx := context.Background()
	h.setNotificationChannel(ctx, guildID, notificationChannelID)

	track, err := h.queue.Switch(ctx, guildID, stringOption(options, "queue"))
	if err != nil {
		return respondError(r, err)
	}

	if track == nil {
		return respondSuccess(r, "Switched queue.")
	}
	return respondSuccess(r, fmt.Sprintf("Switched queue. Playing %s.", trackLink(*track)))
}

func (h *CommandHandlers) handleQueueDelete(
	r bot.Responder,
	guildID, notificationChannelID snowflake.ID,
	options []*discordgo.ApplicationCommandInteractionDataOption,
) error {
	ctx := context.Background()
	h.setNotificationChannel(ctx, guildID, notificationChannelID)

	if err := h.queue.Delete(ctx, guildID, stringOption(options, "queue")); err != nil {
		return respondError(r, err)
	}
	return respondSuccess(r, "Deleted the queue.")
}

func (h *CommandHandlers) handleQueueResume(
	r bot.Responder,
	guildID, notificationChannelID snowflake.ID,
) error {
	ctx := context.Background()
	h.setNotificationChannel(ctx, guildID, notificationChannelID)

	track, err := h.playback.ResumeQueue(ctx, guildID)
	if err != nil {
		return respondError(r, err)
	}

	if track == nil {
		return respondSuccess(r, "Resumed the queue.")
	}
	return respondSuccess(r, fmt.Sprintf("Resumed the queue with %s.", trackLink(*track)))
}

// HandleLibrary handles the /library command.
func (h *CommandHandlers) HandleLibrary(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	ctx := context.Background()

	options := i.ApplicationCommandData().Options
	if len(options) == 0 {
		return respondError(r, errors.New("invalid subcommand"))
	}
	if h.library == nil {
		return respondError(r, errors.New("the library is not available"))
	}

	subCmd := options[0]
	switch subCmd.Name {
	case "browse":
		output, err := h.library.Browse(ctx, stringOption(subCmd.Options, "folder"))
		if err != nil {
			return respondError(r, err)
		}
		return respondEmbed(r, folderEmbed(output))

	case "play":
		if err := r.Defer(); err != nil {
			return err
		}
		guildID, notificationChannelID, err := interactionTarget(i)
		if err != nil {
			return respondError(r, err)
		}
		userID, err := interactionUser(i)
		if err != nil {
			return respondError(r, err)
		}

		sortType, ok := domain.ParseSongSortType(stringOption(subCmd.Options, "sort"))
		if !ok {
			sortType = domain.SortByName
		}

		if _, err := h.voiceChannel.Join(ctx, usecases.JoinInput{
			GuildID:               guildID,
			UserID:                userID,
			NotificationChannelID: notificationChannelID,
		}); err != nil {
			return respondError(r, err)
		}

		output, err := h.library.PlayFolder(ctx, usecases.PlayFolderInput{
			GuildID:               guildID,
			Path:                  stringOption(subCmd.Options, "folder"),
			Sort:                  sortType,
			Descending:            boolOption(subCmd.Options, "descending"),
			Shuffle:               boolOption(subCmd.Options, "shuffle"),
			OfflineOnly:           boolOption(subCmd.Options, "offline"),
			NotificationChannelID: notificationChannelID,
		})
		if err != nil {
			return respondError(r, err)
		}
		return respondSuccess(r, fmt.Sprintf(
			"Playing **%d tracks** from **%s**.",
			output.QueueSize,
			output.QueueTitle,
		))

	default:
		return respondError(r, errors.New("unknown subcommand"))
	}
}

// setNotificationChannel updates the notification channel (best-effort).
func (h *CommandHandlers) setNotificationChannel(ctx context.Context, guildID, channelID snowflake.ID) {
	_ = h.notificationChannel.Set(ctx, usecases.SetNotificationChannelInput{
		GuildID:   guildID,
		ChannelID: channelID,
	})
}

// Embed builders.

func queueListEmbed(output *usecases.QueueListOutput) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title: "Queues",
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Page %d/%d", output.CurrentPage, output.TotalPages),
		},
	}

	if output.TotalQueues == 0 {
		embed.Description = "There are no queues."
		return embed
	}

	var sb strings.Builder
	for _, queue := range output.Queues {
		marker := ""
		if queue.IsCurrent {
			marker = "\u25B6 " // ▶
		}
		shuffled := ""
		if queue.IsShuffled {
			shuffled = " \U0001F500" // 🔀
		}
		fmt.Fprintf(&sb, "%s**%s** (%d/%d)%s\n",
			marker, queue.Title, queue.Position+1, queue.Length, shuffled)
	}
	embed.Description = sb.String()
	return embed
}

func queueShowEmbed(output *usecases.QueueShowOutput) *discordgo.MessageEmbed {
	title := output.Queue.Title
	if output.Queue.IsShuffled {
		title += " \U0001F500" // 🔀
	}

	var sb strings.Builder
	for idx, track := range output.Tracks {
		index := output.FirstIndex + idx
		writeTrackLine(&sb, index+1, track, index == output.Queue.Position)
	}
	if sb.Len() == 0 {
		sb.WriteString("Queue is empty.")
	}

	return &discordgo.MessageEmbed{
		Title:       title,
		Description: sb.String(),
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Page %d/%d", output.CurrentPage, output.TotalPages),
		},
	}
}

func folderEmbed(output *usecases.BrowseOutput) *discordgo.MessageEmbed {
	var sb strings.Builder
	if output.Parent != "" {
		fmt.Fprintf(&sb, "\u2B06 `%s`\n", output.Parent) // ⬆
	}
	for _, sub := range output.Folder.Subfolders {
		fmt.Fprintf(&sb, "\U0001F4C1 `%s`\n", sub.Name) // 📁
	}
	for idx, track := range output.Folder.Tracks {
		writeTrackLine(&sb, idx+1, track, false)
	}
	if sb.Len() == 0 {
		sb.WriteString("This folder is empty.")
	}

	return &discordgo.MessageEmbed{
		Title:       output.Stack.Path(),
		Description: sb.String(),
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("%d tracks", len(output.Folder.Flatten())),
		},
	}
}

// Response helpers.

func respondSuccess(r bot.Responder, description string) error {
	return respondEmbed(r, &discordgo.MessageEmbed{
		Description: description,
		Color:       colorSuccess,
	})
}

func respondEmbed(r bot.Responder, embed *discordgo.MessageEmbed) error {
	return r.Respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
		},
	})
}

func respondError(r bot.Responder, err error) error {
	return respondEmbed(r, &discordgo.MessageEmbed{
		Title:       "Error",
		Description: errorMessage(err),
		Color:       colorError,
	})
}

// errorMessage renders err for users. Playback failures use their classified message.
func errorMessage(err error) string {
	var playbackErr *usecases.PlaybackError
	if errors.As(err, &playbackErr) {
		return playbackErr.UserMessage()
	}

	message := err.Error()
	if message == "" {
		return message
	}
	return strings.ToUpper(message[:1]) + message[1:] + "."
}

func interactionTarget(i *discordgo.InteractionCreate) (guildID, channelID snowflake.ID, err error) {
	guildID, err = snowflake.Parse(i.GuildID)
	if err != nil {
		return 0, 0, errInvalidGuild
	}
	channelID, err = snowflake.Parse(i.ChannelID)
	if err != nil {
		return 0, 0, errInvalidChannel
	}
	return guildID, channelID, nil
}

func interactionUser(i *discordgo.InteractionCreate) (snowflake.ID, error) {
	if i.Member == nil || i.Member.User == nil {
		return 0, errInvalidUser
	}
	userID, err := snowflake.Parse(i.Member.User.ID)
	if err != nil {
		return 0, errInvalidUser
	}
	return userID, nil
}

// Option helpers.

func findOption(
	options []*discordgo.ApplicationCommandInteractionDataOption,
	name string,
) *discordgo.ApplicationCommandInteractionDataOption {
	for _, opt := range options {
		if opt.Name == name {
			return opt
		}
	}
	return nil
}

func stringOption(options []*discordgo.ApplicationCommandInteractionDataOption, name string) string {
	if opt := findOption(options, name); opt != nil {
		return opt.StringValue()
	}
	return ""
}

func intOption(options []*discordgo.ApplicationCommandInteractionDataOption, name string) int {
	if opt := findOption(options, name); opt != nil {
		return int(opt.IntValue())
	}
	return 0
}

func boolOption(options []*discordgo.ApplicationCommandInteractionDataOption, name string) bool {
	if opt := findOption(options, name); opt != nil {
		return opt.BoolValue()
	}
	return false
}

// trackLink renders a track title, linked for remote tracks.
func trackLink(track domain.Track) string {
	if track.IsLocal || track.ID.IsLocal() {
		return fmt.Sprintf("**%s**", track.Title)
	}
	return fmt.Sprintf("[%s](%s%s)", track.Title, trackURLPrefix, track.ID)
}

// writeTrackLine writes a single track line to the string builder.
// Escapes period to prevent Discord markdown list formatting.
func writeTrackLine(sb *strings.Builder, displayIndex int, track domain.Track, current bool) {
	line := trackLink(track)
	if artists := track.ArtistNames(); artists != "" {
		line += " - " + artists
	}
	if current {
		line = "\u25B6 " + line // ▶
	}
	fmt.Fprintf(sb, "%d\\. %s\n", displayIndex, line)
}
