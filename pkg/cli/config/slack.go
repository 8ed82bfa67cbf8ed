package config

import (
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	slacksvc "github.com/secmon-lab/epimetheus/pkg/service/slack"
	"github.com/urfave/cli/v3"
)

// Slack holds CLI flags for the Slack diff presentation surface
type Slack struct {
	botToken  string
	channelID string
}

// Flags returns CLI flags for Slack configuration
func (x *Slack) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "slack-bot-token",
			Usage:       "Slack Bot User OAuth Token (for posting diff summaries)",
			Category:    "Slack",
			Sources:     cli.EnvVars("EPIMETHEUS_SLACK_BOT_TOKEN"),
			Destination: &x.botToken,
		},
		&cli.StringFlag{
			Name:        "slack-channel",
			Usage:       "Slack channel ID for diff summaries",
			Category:    "Slack",
			Sources:     cli.EnvVars("EPIMETHEUS_SLACK_CHANNEL"),
			Destination: &x.channelID,
		},
	}
}

func (x Slack) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("bot-token.len", len(x.botToken)),
		slog.String("channel", x.channelID),
	)
}

// BotToken returns the Slack bot token
func (x *Slack) BotToken() string {
	return x.botToken
}

// IsConfigured checks if Slack configuration is complete
func (x *Slack) IsConfigured() bool {
	return x.botToken != "" && x.channelID != ""
}

// Configure creates a diff presenter posting to the configured channel.
// Returns nil when Slack is not configured; presentation is optional.
func (x *Slack) Configure() (*slacksvc.Presenter, error) {
	if x.botToken == "" && x.channelID == "" {
		return nil, nil
	}
	if !x.IsConfigured() {
		return nil, goerr.New("both --slack-bot-token and --slack-channel are required for diff presentation")
	}

	svc, err := slacksvc.New(x.botToken)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to initialize slack service")
	}

	presenter, err := slacksvc.NewPresenter(svc, x.channelID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to initialize slack presenter")
	}

	return presenter, nil
}
