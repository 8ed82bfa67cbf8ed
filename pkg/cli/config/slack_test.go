package config_test

import (
	"testing"

	"github.com/secmon-lab/epimetheus/pkg/cli/config"
)

func TestSlackIsConfigured(t *testing.T) {
	tests := []struct {
		name           string
		botToken       string
		channelID      string
		wantConfigured bool
	}{
		{"both set", "xoxb-token", "C0123456789", true},
		{"only bot token", "xoxb-token", "", false},
		{"only channel", "", "C0123456789", false},
		{"neither set", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slack := config.NewSlackForTest(tt.botToken, tt.channelID)
			if got := slack.IsConfigured(); got != tt.wantConfigured {
				t.Errorf("IsConfigured() = %v, want %v", got, tt.wantConfigured)
			}
		})
	}
}

func TestSlackConfigure(t *testing.T) {
	t.Run("returns nil presenter when not configured", func(t *testing.T) {
		slack := config.NewSlackForTest("", "")
		presenter, err := slack.Configure()
		if err != nil {
			t.Fatalf("Configure should not fail when Slack is unset, got: %v", err)
		}
		if presenter != nil {
			t.Error("expected nil presenter when Slack is not configured")
		}
	})

	t.Run("fails on partial configuration", func(t *testing.T) {
		slack := config.NewSlackForTest("xoxb-token", "")
		if _, err := slack.Configure(); err == nil {
			t.Error("Configure should fail when only the bot token is set")
		}

		slack = config.NewSlackForTest("", "C0123456789")
		if _, err := slack.Configure(); err == nil {
			t.Error("Configure should fail when only the channel is set")
		}
	})

	t.Run("builds a presenter when fully configured", func(t *testing.T) {
		slack := config.NewSlackForTest("xoxb-token", "C0123456789")
		presenter, err := slack.Configure()
		if err != nil {
			t.Fatalf("Configure failed: %v", err)
		}
		if presenter == nil {
			t.Error("expected a presenter when Slack is fully configured")
		}
	})
}
