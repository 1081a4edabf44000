package infrastructure

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/sgrtune/internal/modules/music_player/application/ports"
	"github.com/sglre6355/sgrtune/internal/modules/music_player/domain"
)

// Embed colors.
const (
	colorRed    = 0xE74C3C
	colorRemote = 0xFF0000
	colorLocal  = 0x2ECC71
)

// Notifier sends notifications to Discord channels.
type Notifier struct {
	session    *discordgo.Session
	httpClient *http.Client
}

// NewNotifier creates a new Notifier.
func NewNotifier(session *discordgo.Session) *Notifier {
	return &Notifier{
		session: session,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// SendNowPlaying sends a "Now Playing" embed to the channel and returns the message ID.
func (n *Notifier) SendNowPlaying(
	ctx context.Context,
	channelID snowflake.ID,
	info *ports.NowPlayingInfo,
) (snowflake.ID, error) {
	embed := nowPlayingEmbed(info)

	if thumbnailURL := n.bestThumbnail(ctx, info); thumbnailURL != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{
			URL: thumbnailURL,
		}
	}

	msg, err := n.session.ChannelMessageSendEmbed(channelID.String(), embed, discordgo.WithContext(ctx))
	if err != nil {
		return 0, err
	}
	messageID, err := snowflake.Parse(msg.ID)
	if err != nil {
		return 0, err
	}
	return messageID, nil
}

// DeleteMessage deletes a message from the channel.
func (n *Notifier) DeleteMessage(ctx context.Context, channelID, messageID snowflake.ID) error {
	return n.session.ChannelMessageDelete(channelID.String(), messageID.String(), discordgo.WithContext(ctx))
}

// SendError sends an error message embed to the channel.
func (n *Notifier) SendError(ctx context.Context, channelID snowflake.ID, message string) error {
	embed := &discordgo.MessageEmbed{
		Description: message,
		Color:       colorRed,
	}

	_, err := n.session.ChannelMessageSendEmbed(channelID.String(), embed, discordgo.WithContext(ctx))
	return err
}

func nowPlayingEmbed(info *ports.NowPlayingInfo) *discordgo.MessageEmbed {
	color := colorRemote
	if info.Source == ports.SourceLocal {
		color = colorLocal
	}

	embed := &discordgo.MessageEmbed{
		Author: &discordgo.MessageEmbedAuthor{
			Name: "Now Playing",
		},
		Title: info.Title,
		Color: color,
		Fields: []*discordgo.MessageEmbedField{
			{
				Name:   "Artist",
				Value:  orDash(info.Artist),
				Inline: true,
			},
			{
				Name:   "Duration",
				Value:  orDash(info.Duration),
				Inline: true,
			},
		},
		Footer: &discordgo.MessageEmbedFooter{
			Text: queueFooter(info),
		},
	}

	if info.Album != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   "Album",
			Value:  info.Album,
			Inline: true,
		})
	}
	if info.Source != ports.SourceLocal && !domain.TrackID(info.Identifier).IsLocal() {
		embed.URL = "https://www.youtube.com/watch?v=" + info.Identifier
	}
	return embed
}

func queueFooter(info *ports.NowPlayingInfo) string {
	footer := fmt.Sprintf("%s · %d/%d", info.QueueTitle, info.QueuePosition, info.QueueLength)
	if info.Shuffled {
		footer += " · shuffled"
	}
	if info.RepeatMode != "" && info.RepeatMode != domain.RepeatOff.String() {
		footer += " · repeat " + info.RepeatMode
	}
	return footer
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// bestThumbnail returns the highest quality thumbnail available for remote
// tracks, falling back to the artwork URL.
func (n *Notifier) bestThumbnail(ctx context.Context, info *ports.NowPlayingInfo) string {
	if info.Source == ports.SourceLocal || domain.TrackID(info.Identifier).IsLocal() {
		return info.ArtworkURL
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	for _, quality := range []string{"maxresdefault", "sddefault", "hqdefault"} {
		url := fmt.Sprintf("https://img.youtube.com/vi/%s/%s.jpg", info.Identifier, quality)
		if n.urlExists(ctx, url) {
			return url
		}
	}

	return info.ArtworkURL
}

// urlExists checks if a URL returns a successful response using a HEAD request.
func (n *Notifier) urlExists(ctx context.Context, url string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return false
	}

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()

	return resp.StatusCode == http.StatusOK
}

// Ensure Notifier implements ports.NotificationSender.
var _ ports.NotificationSender = (*Notifier)(nil)
