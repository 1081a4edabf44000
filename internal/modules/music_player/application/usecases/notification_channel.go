package usecases

import (
	"context"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/sgrtune/internal/modules/music_player/domain"
)

// StateViewer gives serialized access to a guild's player state.
type StateViewer interface {
	View(guildID snowflake.ID, fn func(state *domain.PlayerState)) error
}

// NotificationChannelService points a guild's playback messages at the text
// channel the last command came from.
type NotificationChannelService struct {
	states StateViewer
}

// NewNotificationChannelService creates a new NotificationChannelService.
func NewNotificationChannelService(states StateViewer) *NotificationChannelService {
	return &NotificationChannelService{states: states}
}

// SetNotificationChannelInput contains the input for the Set use case.
type SetNotificationChannelInput struct {
	GuildID   snowflake.ID
	ChannelID snowflake.ID
}

// Set moves the guild's notifications to the channel. A zero channel is ignored.
func (n *NotificationChannelService) Set(_ context.Context, input SetNotificationChannelInput) error {
	if input.ChannelID == 0 {
		return nil
	}
	return n.states.View(input.GuildID, func(state *domain.PlayerState) {
		state.SetNotificationChannelID(input.ChannelID)
	})
}
