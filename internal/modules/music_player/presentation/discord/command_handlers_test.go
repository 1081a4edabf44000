package discord

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/sgrtune/internal/bot"
	"github.com/sglre6355/sgrtune/internal/modules/music_player/application/ports"
	"github.com/sglre6355/sgrtune/internal/modules/music_player/application/usecases"
	"github.com/sglre6355/sgrtune/internal/modules/music_player/domain"
	"github.com/sglre6355/sgrtune/internal/modules/music_player/infrastructure"
)

func newTestHandlers() *CommandHandlers {
	repo := infrastructure.NewMemoryRepository()
	playback := usecases.NewPlaybackService(
		repo, nil, nil, nil, nil, nil, usecases.PlaybackConfig{},
	)
	return NewCommandHandlers(
		nil,
		playback,
		usecases.NewQueueService(playback),
		nil,
		nil,
		usecases.NewNotificationChannelService(playback),
	)
}

func newInteraction(
	guildID, channelID string,
	options ...*discordgo.ApplicationCommandInteractionDataOption,
) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{
		Interaction: &discordgo.Interaction{
			Type:      discordgo.InteractionApplicationCommand,
			GuildID:   guildID,
			ChannelID: channelID,
			Member:    &discordgo.Member{User: &discordgo.User{ID: "3"}},
			Data:      discordgo.ApplicationCommandInteractionData{Options: options},
		},
	}
}

func subCommand(
	name string,
	options ...*discordgo.ApplicationCommandInteractionDataOption,
) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{
		Name:    name,
		Type:    discordgo.ApplicationCommandOptionSubCommand,
		Options: options,
	}
}

func responseEmbed(t *testing.T, responder *bot.MockResponder) *discordgo.MessageEmbed {
	t.Helper()

	if responder.LastResponse == nil {
		t.Fatal("expected response, got nil")
	}
	if responder.LastResponse.Type != discordgo.InteractionResponseChannelMessageWithSource {
		t.Errorf("expected response type %d, got %d",
			discordgo.InteractionResponseChannelMessageWithSource,
			responder.LastResponse.Type)
	}
	data := responder.LastResponse.Data
	if data == nil || len(data.Embeds) != 1 {
		t.Fatal("expected a single embed")
	}
	return data.Embeds[0]
}

func TestCommandHandlers_Errors(t *testing.T) {
	h := newTestHandlers()

	tests := []struct {
		name        string
		handler     bot.InteractionHandler
		interaction *discordgo.InteractionCreate
		wantMessage string
	}{
		{
			name:        "invalid guild",
			handler:     h.HandlePause,
			interaction: newInteraction("not-a-guild", "2"),
			wantMessage: "Invalid guild.",
		},
		{
			name:        "invalid channel",
			handler:     h.HandleResume,
			interaction: newInteraction("1", ""),
			wantMessage: "Invalid notification channel.",
		},
		{
			name:        "pause without connection",
			handler:     h.HandlePause,
			interaction: newInteraction("1", "2"),
			wantMessage: "Not connected to a voice channel.",
		},
		{
			name:        "skip without connection",
			handler:     h.HandleSkip,
			interaction: newInteraction("1", "2"),
			wantMessage: "Not connected to a voice channel.",
		},
		{
			name:        "shuffle without connection",
			handler:     h.HandleShuffle,
			interaction: newInteraction("1", "2"),
			wantMessage: "Not connected to a voice channel.",
		},
		{
			name:        "queue list without connection",
			handler:     h.HandleQueue,
			interaction: newInteraction("1", "2", subCommand("list")),
			wantMessage: "Not connected to a voice channel.",
		},
		{
			name:        "queue without subcommand",
			handler:     h.HandleQueue,
			interaction: newInteraction("1", "2"),
			wantMessage: "Invalid subcommand.",
		},
		{
			name:        "library unavailable",
			handler:     h.HandleLibrary,
			interaction: newInteraction("1", "2", subCommand("browse")),
			wantMessage: "The library is not available.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			responder := &bot.MockResponder{}

			if err := tt.handler(nil, tt.interaction, responder); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			embed := responseEmbed(t, responder)
			if embed.Color != colorError {
				t.Errorf("expected error color, got %x", embed.Color)
			}
			if embed.Description != tt.wantMessage {
				t.Errorf("expected %q, got %q", tt.wantMessage, embed.Description)
			}
		})
	}
}

func TestCommandHandlers_ResponderError(t *testing.T) {
	h := newTestHandlers()
	expectedErr := errors.New("responder failed")
	responder := &bot.MockResponder{Err: expectedErr}

	err := h.HandlePause(nil, newInteraction("1", "2"), responder)
	if !errors.Is(err, expectedErr) {
		t.Errorf("expected error %v, got %v", expectedErr, err)
	}
}

func TestCommandHandlers_SlowCommandsDefer(t *testing.T) {
	h := newTestHandlers()

	tests := []struct {
		name    string
		handler bot.InteractionHandler
	}{
		{name: "play", handler: h.HandlePlay},
		{name: "playnext", handler: h.HandlePlayNext},
		{name: "enqueue", handler: h.HandleEnqueue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			responder := &bot.MockResponder{}

			if err := tt.handler(nil, newInteraction("not-a-guild", "2"), responder); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if !responder.Deferred {
				t.Error("expected the interaction to be deferred")
			}
			if embed := responseEmbed(t, responder); embed.Description != "Invalid guild." {
				t.Errorf("expected %q, got %q", "Invalid guild.", embed.Description)
			}
		})
	}
}

func TestCommandHandlers_FastCommandsDoNotDefer(t *testing.T) {
	h := newTestHandlers()
	responder := &bot.MockResponder{}

	if err := h.HandleSkip(nil, newInteraction("1", "2"), responder); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if responder.Deferred {
		t.Error("expected skip to respond without deferring")
	}
}

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "sentinel",
			err:  usecases.ErrNotPlaying,
			want: "Nothing is currently playing.",
		},
		{
			name: "timeout",
			err:  usecases.ClassifyError("a", context.DeadlineExceeded),
			want: "The connection timed out.",
		},
		{
			name: "remote rejection is verbatim",
			err: usecases.ClassifyError("a", &ports.RejectedError{
				TrackID: "a",
				Reason:  "This video is private",
			}),
			want: "This video is private",
		},
		{
			name: "wrapped playback error",
			err:  errors.Join(errors.New("outer"), usecases.ClassifyError("a", context.DeadlineExceeded)),
			want: "The connection timed out.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errorMessage(tt.err); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestQueueListEmbed(t *testing.T) {
	embed := queueListEmbed(&usecases.QueueListOutput{
		Queues: []usecases.QueueSummary{
			{ID: "q2", Title: "Current", Length: 3, Position: 1, IsCurrent: true, IsShuffled: true},
			{ID: "q1", Title: "Older", Length: 5, Position: 0},
		},
		TotalQueues: 2,
		CurrentPage: 1,
		TotalPages:  1,
	})

	lines := strings.Split(strings.TrimSpace(embed.Description), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), embed.Description)
	}
	if !strings.HasPrefix(lines[0], "▶ **Current** (2/3)") {
		t.Errorf("expected current queue marker, got %q", lines[0])
	}
	if lines[1] != "**Older** (1/5)" {
		t.Errorf("unexpected line %q", lines[1])
	}
	if embed.Footer.Text != "Page 1/1" {
		t.Errorf("expected page footer, got %q", embed.Footer.Text)
	}

	empty := queueListEmbed(&usecases.QueueListOutput{CurrentPage: 1, TotalPages: 1})
	if empty.Description != "There are no queues." {
		t.Errorf("unexpected empty description %q", empty.Description)
	}
}

func TestQueueShowEmbed_MarksCursor(t *testing.T) {
	embed := queueShowEmbed(&usecases.QueueShowOutput{
		Queue: usecases.QueueSummary{Title: "Mix", Position: 11},
		Tracks: []domain.Track{
			{ID: "a", Title: "A"},
			{ID: "b", Title: "B", Artists: []domain.ArtistRef{{Name: "Band"}}},
		},
		FirstIndex:  10,
		CurrentPage: 2,
		TotalPages:  2,
	})

	lines := strings.Split(strings.TrimSpace(embed.Description), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if !strings.HasPrefix(lines[0], "11\\. [A]") {
		t.Errorf("unexpected first line %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "12\\. ▶ [B]") || !strings.HasSuffix(lines[1], " - Band") {
		t.Errorf("expected cursor marker on second line, got %q", lines[1])
	}
}

func TestTrackLink(t *testing.T) {
	tests := []struct {
		name  string
		track domain.Track
		want  string
	}{
		{
			name:  "remote",
			track: domain.Track{ID: "abc", Title: "Song"},
			want:  "[Song](https://music.youtube.com/watch?v=abc)",
		},
		{
			name:  "local id",
			track: domain.Track{ID: "LA1", Title: "Local"},
			want:  "**Local**",
		},
		{
			name:  "local flag",
			track: domain.Track{ID: "x", Title: "File", IsLocal: true},
			want:  "**File**",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := trackLink(tt.track); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestOptionHelpers(t *testing.T) {
	options := []*discordgo.ApplicationCommandInteractionDataOption{
		{Name: "query", Type: discordgo.ApplicationCommandOptionString, Value: "song"},
		{Name: "page", Type: discordgo.ApplicationCommandOptionInteger, Value: float64(3)},
		{Name: "shuffle", Type: discordgo.ApplicationCommandOptionBoolean, Value: true},
	}

	if got := stringOption(options, "query"); got != "song" {
		t.Errorf("expected query %q, got %q", "song", got)
	}
	if got := intOption(options, "page"); got != 3 {
		t.Errorf("expected page 3, got %d", got)
	}
	if !boolOption(options, "shuffle") {
		t.Error("expected shuffle to be true")
	}
	if stringOption(options, "missing") != "" || intOption(options, "missing") != 0 || boolOption(options, "missing") {
		t.Error("expected zero values for missing options")
	}
}

func TestCommands_NamesAreUnique(t *testing.T) {
	seen := make(map[string]bool)
	for _, cmd := range Commands() {
		if seen[cmd.Name] {
			t.Errorf("duplicate command %q", cmd.Name)
		}
		seen[cmd.Name] = true
		if cmd.Description == "" {
			t.Errorf("command %q has no description", cmd.Name)
		}
	}
}

func TestEventHandlers_BotVoiceStateChange(t *testing.T) {
	botID := snowflake.ID(100)
	h := NewEventHandlers(botID, nil)

	tests := []struct {
		name        string
		event       *discordgo.VoiceStateUpdate
		wantOK      bool
		wantChannel *snowflake.ID
	}{
		{
			name: "other user",
			event: &discordgo.VoiceStateUpdate{VoiceState: &discordgo.VoiceState{
				UserID: "5", GuildID: "1", ChannelID: "2",
			}},
			wantOK: false,
		},
		{
			name: "moved",
			event: &discordgo.VoiceStateUpdate{VoiceState: &discordgo.VoiceState{
				UserID: "100", GuildID: "1", ChannelID: "2",
			}},
			wantOK:      true,
			wantChannel: idPtr(2),
		},
		{
			name: "disconnected",
			event: &discordgo.VoiceStateUpdate{VoiceState: &discordgo.VoiceState{
				UserID: "100", GuildID: "1",
			}},
			wantOK: true,
		},
		{
			name: "invalid guild",
			event: &discordgo.VoiceStateUpdate{VoiceState: &discordgo.VoiceState{
				UserID: "100", GuildID: "x",
			}},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input, ok := h.botVoiceStateChange(tt.event)
			if ok != tt.wantOK {
				t.Fatalf("expected ok=%v, got %v", tt.wantOK, ok)
			}
			if !ok {
				return
			}
			if input.GuildID != 1 {
				t.Errorf("expected guild 1, got %d", input.GuildID)
			}
			switch {
			case tt.wantChannel == nil && input.NewChannelID != nil:
				t.Errorf("expected nil channel, got %d", *input.NewChannelID)
			case tt.wantChannel != nil && (input.NewChannelID == nil || *input.NewChannelID != *tt.wantChannel):
				t.Errorf("expected channel %d, got %v", *tt.wantChannel, input.NewChannelID)
			}
		})
	}
}

func idPtr(id snowflake.ID) *snowflake.ID {
	return &id
}
