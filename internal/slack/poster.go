// Package slack posts messages to a Slack channel.
package slack

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/slack-go/slack"
)

// Poster sends messages as the token's user.
type Poster struct {
	client *slack.Client
	logger *slog.Logger
}

// NewPoster creates a Poster. apiURL overrides the Slack endpoint when
// non-empty and must end with a slash.
func NewPoster(token, apiURL string, logger *slog.Logger) *Poster {
	var opts []slack.Option
	if apiURL != "" {
		opts = append(opts, slack.OptionAPIURL(apiURL))
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Poster{
		client: slack.New(token, opts...),
		logger: logger.With("component", "slack.poster"),
	}
}

// Post sends text to channel and returns the message timestamp.
func (p *Poster) Post(ctx context.Context, channel, text string) (string, error) {
	if channel == "" {
		return "", errors.New("slack channel is empty")
	}

	start := time.Now()
	_, ts, err := p.client.PostMessageContext(ctx, channel,
		slack.MsgOptionText(text, false),
		slack.MsgOptionAsUser(true),
	)
	if err != nil {
		p.logger.ErrorContext(ctx, "Failed to post message",
			"channel", channel,
			"error", err,
			"duration_ms", time.Since(start).Milliseconds())
		return "", fmt.Errorf("posting to %s: %w", channel, err)
	}

	p.logger.InfoContext(ctx, "Message posted",
		"channel", channel,
		"ts", ts,
		"duration_ms", time.Since(start).Milliseconds())
	return ts, nil
}
