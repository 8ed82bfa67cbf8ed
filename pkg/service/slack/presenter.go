package slack

import (
	"context"
	"fmt"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/epimetheus/pkg/domain/interfaces"
	"github.com/secmon-lab/epimetheus/pkg/domain/model"
	"github.com/secmon-lab/epimetheus/pkg/domain/types"
	"github.com/slack-go/slack"
)

// maxListedFiles limits how many changed files a notification lists before
// collapsing the remainder into a count.
const maxListedFiles = 20

// Presenter posts a summary of a dispatched follow-up to a Slack channel.
type Presenter struct {
	svc       Service
	channelID string
}

var _ interfaces.DiffPresenter = &Presenter{}

// NewPresenter creates a Presenter that posts to the given channel
func NewPresenter(svc Service, channelID string) (*Presenter, error) {
	if svc == nil {
		return nil, goerr.New("Slack service is required")
	}
	if channelID == "" {
		return nil, goerr.New("Slack channel ID is required")
	}

	return &Presenter{svc: svc, channelID: channelID}, nil
}

// Present posts a Block Kit summary of the changed files for a follow-up dispatch
func (p *Presenter) Present(ctx context.Context, task *model.Task, span model.DiffSpan, changes []model.FileChange) error {
	blocks := buildDispatchBlocks(task, span, changes)
	fallback := fmt.Sprintf("Follow-up: %s (%d changed files)", task.Title, len(changes))

	if _, err := p.svc.PostMessage(ctx, p.channelID, blocks, fallback); err != nil {
		return goerr.Wrap(err, "failed to post follow-up summary",
			goerr.V("channelID", p.channelID), goerr.V("taskID", task.ID))
	}

	return nil
}

// buildDispatchBlocks constructs Block Kit blocks for a follow-up notification
func buildDispatchBlocks(task *model.Task, span model.DiffSpan, changes []model.FileChange) []slack.Block {
	blocks := []slack.Block{
		// Header: "Follow-up: {title}"
		slack.NewHeaderBlock(
			slack.NewTextBlockObject(slack.PlainTextType, "Follow-up: "+task.Title, true, false),
		),
	}

	// Section: changed file list with git-style markers
	if len(changes) > 0 {
		var lines []string
		for i, c := range changes {
			if i == maxListedFiles {
				lines = append(lines, fmt.Sprintf("... and %d more files", len(changes)-maxListedFiles))
				break
			}
			lines = append(lines, fmt.Sprintf("`%s` %s", changeMarker(c.Kind), c.Path))
		}
		blocks = append(blocks, slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType, strings.Join(lines, "\n"), false, false),
			nil, nil,
		))
	} else {
		blocks = append(blocks, slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType, "No changed files recorded for this span.", false, false),
			nil, nil,
		))
	}

	// Context: checkpoint span
	if span.Complete() {
		blocks = append(blocks, slack.NewContextBlock("",
			slack.NewTextBlockObject(slack.MarkdownType,
				fmt.Sprintf("Checkpoints: `%s` to `%s`", span.Baseline.Short(), span.Current.Short()), false, false),
		))
	}

	return blocks
}

func changeMarker(kind types.ChangeKind) string {
	switch kind {
	case types.ChangeKindCreated:
		return "A"
	case types.ChangeKindDeleted:
		return "D"
	default:
		return "M"
	}
}
