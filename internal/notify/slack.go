package notify

import (
	"context"
	"fmt"

	slackapi "github.com/slack-go/slack"
)

// slackClient abstracts the Slack API methods we use, enabling test mocks.
type slackClient interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slackapi.MsgOption) (string, string, error)
}

// Slack posts events to a Slack channel as colored attachments.
type Slack struct {
	client    slackClient
	channelID string
}

// NewSlack creates a Slack notifier from a bot token and target channel.
func NewSlack(botToken, channelID string) (*Slack, error) {
	if botToken == "" {
		return nil, fmt.Errorf("notify: slack bot token is required")
	}
	if channelID == "" {
		return nil, fmt.Errorf("notify: slack channel is required")
	}
	return &Slack{
		client:    slackapi.New(botToken),
		channelID: channelID,
	}, nil
}

// Post implements Notifier.
func (s *Slack) Post(ctx context.Context, ev Event) error {
	fields := make([]slackapi.AttachmentField, 0, len(ev.Fields))
	for _, f := range ev.Fields {
		fields = append(fields, slackapi.AttachmentField{
			Title: f.Name,
			Value: f.Value,
			Short: true,
		})
	}

	attachment := slackapi.Attachment{
		Title:  ev.Title,
		Text:   ev.Body,
		Color:  severityColor(ev.Severity),
		Fields: fields,
	}

	_, _, err := s.client.PostMessageContext(ctx, s.channelID,
		slackapi.MsgOptionAttachments(attachment))
	if err != nil {
		return fmt.Errorf("notify: slack post: %w", err)
	}
	return nil
}
