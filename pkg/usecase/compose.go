package usecase

import (
	"bytes"
	_ "embed"
	"strings"
	"text/template"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/epimetheus/pkg/domain/model"
	"github.com/secmon-lab/epimetheus/pkg/domain/model/config"
	"github.com/secmon-lab/epimetheus/pkg/domain/types"
)

//go:embed prompt/followup_review.md
var followupReviewPromptTmpl string

//go:embed prompt/followup_document.md
var followupDocumentPromptTmpl string

var (
	followupReviewPrompt   = template.Must(template.New("followup_review").Parse(followupReviewPromptTmpl))
	followupDocumentPrompt = template.Must(template.New("followup_document").Parse(followupDocumentPromptTmpl))
)

// PromptComposer builds follow-up prompts from a directive and a resolved
// diff. Review and Document use fixed templates; the Custom directive
// reproduces the user-supplied text byte-for-byte as the prompt body. The
// composer never fabricates diff content: only the available state embeds
// a diff block.
type PromptComposer struct {
	cfg config.FollowUpConfig
}

func NewPromptComposer(cfg config.FollowUpConfig) *PromptComposer {
	return &PromptComposer{cfg: cfg}
}

// Compose returns the full prompt text for a follow-up task: the
// directive body followed by a diff context section.
func (c *PromptComposer) Compose(directive types.Directive, customText string, diff model.DiffResult) (string, error) {
	body, err := c.body(directive, customText)
	if err != nil {
		return "", err
	}
	return body + "\n\n" + diffSection(diff), nil
}

func (c *PromptComposer) body(directive types.Directive, customText string) (string, error) {
	switch directive {
	case types.DirectiveReview:
		return c.render(followupReviewPrompt)
	case types.DirectiveDocument:
		return c.render(followupDocumentPrompt)
	case types.DirectiveCustom:
		if customText == "" {
			return "", goerr.Wrap(ErrMissingPrompt, "cannot compose custom follow-up")
		}
		// The user text is the entire body, byte-for-byte. No template
		// wrapping, no language or extra-instruction tuning.
		return customText, nil
	default:
		return "", goerr.New("unknown directive", goerr.V(DirectiveKey, directive))
	}
}

func (c *PromptComposer) render(tmpl *template.Template) (string, error) {
	data := struct {
		Language          string
		ExtraInstructions string
	}{
		Language:          c.cfg.Language,
		ExtraInstructions: c.cfg.ExtraInstructions,
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", goerr.Wrap(err, "failed to render follow-up prompt", goerr.V("template", tmpl.Name()))
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

// diffSection renders the change context appended to every composed
// prompt. The empty and unavailable states get distinct sentences so the
// follow-up agent knows whether a diff was computed at all.
func diffSection(diff model.DiffResult) string {
	switch diff.State() {
	case types.DiffStateAvailable:
		return "Below is the unified diff of the changes made since the previous completion. Use it as the scope of your analysis:\n\n```diff\n" +
			strings.TrimSuffix(diff.Text(), "\n") + "\n```"
	case types.DiffStateEmpty:
		return "The workspace snapshots before and after this work are textually identical: no visible changes were recorded for this span."
	default:
		return "No diff is available for this span. Inspect the current state of the relevant files in the workspace directly instead of relying on a change summary."
	}
}
