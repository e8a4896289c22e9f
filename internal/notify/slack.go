package notify

import (
	"context"
	"log"

	slackapi "github.com/slack-go/slack"
)

// slackClient abstracts the Slack API methods we use, enabling test mocks.
type slackClient interface {
	PostMessage(channelID string, options ...slackapi.MsgOption) (string, string, error)
}

// SlackSink posts notifications to a Slack channel.
type SlackSink struct {
	client    slackClient
	channelID string
}

// NewSlackSink builds a sink posting to the given channel with a bot token.
func NewSlackSink(botToken, channelID string) *SlackSink {
	return &SlackSink{
		client:    slackapi.New(botToken),
		channelID: channelID,
	}
}

// Send posts the notification. Errors are logged, not returned.
func (s *SlackSink) Send(ctx context.Context, n Notification) {
	_, _, err := s.client.PostMessage(s.channelID,
		slackapi.MsgOptionText(Format(n), false),
	)
	if err != nil {
		log.Printf("notify: slack post to %s failed: %v", s.channelID, err)
	}
}
