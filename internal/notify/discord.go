package notify

import (
	"context"
	"fmt"
	"log"

	"github.com/bwmarrin/discordgo"
)

// discordSession abstracts the discordgo.Session methods we use, enabling
// test mocks.
type discordSession interface {
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// DiscordSink posts notifications to a Discord channel over the REST API.
type DiscordSink struct {
	sess      discordSession
	channelID string
}

// NewDiscordSink builds a sink posting to the given channel with a bot token.
func NewDiscordSink(botToken, channelID string) (*DiscordSink, error) {
	sess, err := discordgo.New("Bot " + botToken)
	if err != nil {
		return nil, fmt.Errorf("notify: discord session: %w", err)
	}
	return &DiscordSink{sess: sess, channelID: channelID}, nil
}

// Send posts the notification. Errors are logged, not returned.
func (d *DiscordSink) Send(ctx context.Context, n Notification) {
	if _, err := d.sess.ChannelMessageSend(d.channelID, Format(n)); err != nil {
		log.Printf("notify: discord post to %s failed: %v", d.channelID, err)
	}
}
