package slackbot

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/slack-go/slack"
)

// Poster wraps a Slack client for outbound messages only: citizen
// notifications when the front-end runs on Slack, and the open-report digest.
type Poster struct {
	api *slack.Client
}

func NewPoster(api *slack.Client) *Poster {
	return &Poster{api: api}
}

// Send implements notify.Dispatcher. Recipients that look like user ids get a
// DM; anything else is treated as a channel id.
func (p *Poster) Send(ctx context.Context, recipient, message string) error {
	recipient = strings.TrimSpace(recipient)
	if recipient == "" {
		return fmt.Errorf("slack: empty recipient")
	}
	channelID := recipient
	if isUserID(recipient) {
		channel, _, _, err := p.api.OpenConversationContext(ctx, &slack.OpenConversationParameters{
			Users: []string{recipient},
		})
		if err != nil {
			return fmt.Errorf("slack: opening DM with %s: %w", recipient, err)
		}
		channelID = channel.ID
	}
	return p.PostText(ctx, channelID, message)
}

func (p *Poster) PostText(ctx context.Context, channelID, text string) error {
	_, _, err := p.api.PostMessageContext(ctx, channelID, slack.MsgOptionText(text, false))
	if err != nil {
		return fmt.Errorf("slack: posting to %s: %w", channelID, err)
	}
	log.Printf("slack posted channel=%s chars=%d", channelID, len(text))
	return nil
}

func isUserID(id string) bool {
	return strings.HasPrefix(id, "U") || strings.HasPrefix(id, "W")
}
