package infrastructure

import (
	"errors"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/sgrtune/internal/modules/music_player/application/ports"
)

// VoiceStateProvider reads member voice states from the session's state cache.
type VoiceStateProvider struct {
	state *discordgo.State
}

// NewVoiceStateProvider creates a new VoiceStateProvider.
func NewVoiceStateProvider(session *discordgo.Session) *VoiceStateProvider {
	return &VoiceStateProvider{
		state: session.State,
	}
}

// UserVoiceChannel returns the voice channel the user is connected to.
func (v *VoiceStateProvider) UserVoiceChannel(guildID, userID snowflake.ID) (snowflake.ID, bool, error) {
	voiceState, err := v.state.VoiceState(guildID.String(), userID.String())
	if errors.Is(err, discordgo.ErrStateNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	if voiceState.ChannelID == "" {
		return 0, false, nil
	}

	channelID, err := snowflake.Parse(voiceState.ChannelID)
	if err != nil {
		return 0, false, err
	}
	return channelID, true, nil
}

var _ ports.VoiceStateProvider = (*VoiceStateProvider)(nil)
