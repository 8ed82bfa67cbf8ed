package usecase_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/epimetheus/pkg/domain/model"
	"github.com/secmon-lab/epimetheus/pkg/domain/model/config"
	"github.com/secmon-lab/epimetheus/pkg/domain/types"
	"github.com/secmon-lab/epimetheus/pkg/usecase"
)

func TestCompose_ReviewBullets(t *testing.T) {
	composer := usecase.NewPromptComposer(config.FollowUpConfig{})

	prompt, err := composer.Compose(types.DirectiveReview, "", model.NewDiffResult("+added line"))
	gt.NoError(t, err).Required()

	for _, want := range []string{
		"Bugs and logic errors",
		"Type-safety",
		"error handling",
		"Performance",
		"Security",
	} {
		gt.B(t, strings.Contains(prompt, want)).
			Describef("review prompt should mention %q", want).
			True()
	}
}

func TestCompose_DocumentBullets(t *testing.T) {
	composer := usecase.NewPromptComposer(config.FollowUpConfig{})

	prompt, err := composer.Compose(types.DirectiveDocument, "", model.NewDiffResult("+added line"))
	gt.NoError(t, err).Required()

	for _, want := range []string{
		"purpose of the changes",
		"integrate",
		"components",
		"Usage examples",
		"Caveats",
	} {
		gt.B(t, strings.Contains(prompt, want)).
			Describef("document prompt should mention %q", want).
			True()
	}
}

func TestCompose_CustomIsVerbatim(t *testing.T) {
	composer := usecase.NewPromptComposer(config.FollowUpConfig{
		Language:          "Japanese",
		ExtraInstructions: "Always check the changelog.",
	})
	customText := "  Check the auth flow again.\n\tPay attention to token expiry. "

	prompt, err := composer.Compose(types.DirectiveCustom, customText, model.NewDiffResult("+x"))
	gt.NoError(t, err).Required()

	// The user text must open the prompt byte-for-byte, with no template
	// wrapping and no config tuning applied.
	gt.S(t, prompt[:len(customText)]).Equal(customText)
	gt.B(t, strings.Contains(prompt, "Japanese")).False()
	gt.B(t, strings.Contains(prompt, "changelog")).False()
}

func TestCompose_CustomWithoutTextFails(t *testing.T) {
	composer := usecase.NewPromptComposer(config.FollowUpConfig{})

	_, err := composer.Compose(types.DirectiveCustom, "", model.NewDiffResult("+x"))
	gt.Error(t, err)
	gt.B(t, errors.Is(err, usecase.ErrMissingPrompt)).True()
}

func TestCompose_UnknownDirectiveFails(t *testing.T) {
	composer := usecase.NewPromptComposer(config.FollowUpConfig{})

	_, err := composer.Compose(types.Directive("summarize"), "", model.UnavailableDiff())
	gt.Error(t, err)
}

func TestCompose_AvailableDiffIsFenced(t *testing.T) {
	composer := usecase.NewPromptComposer(config.FollowUpConfig{})
	diffText := "--- a/main.go\n+++ b/main.go\n@@ -1 +1 @@\n-old\n+new\n"

	prompt, err := composer.Compose(types.DirectiveReview, "", model.NewDiffResult(diffText))
	gt.NoError(t, err).Required()

	gt.B(t, strings.Contains(prompt, "```diff\n--- a/main.go")).True()
	gt.B(t, strings.Contains(prompt, "-old\n+new\n```")).True()
}

func TestCompose_UnavailableDiffHasNoFence(t *testing.T) {
	composer := usecase.NewPromptComposer(config.FollowUpConfig{})

	prompt, err := composer.Compose(types.DirectiveReview, "", model.UnavailableDiff())
	gt.NoError(t, err).Required()

	gt.B(t, strings.Contains(prompt, "```diff")).False()
	gt.B(t, strings.Contains(prompt, "Inspect the current state")).True()
}

func TestCompose_EmptyDiffDistinctFromUnavailable(t *testing.T) {
	composer := usecase.NewPromptComposer(config.FollowUpConfig{})

	empty, err := composer.Compose(types.DirectiveReview, "", model.NewDiffResult(""))
	gt.NoError(t, err).Required()
	unavailable, err := composer.Compose(types.DirectiveReview, "", model.UnavailableDiff())
	gt.NoError(t, err).Required()

	gt.B(t, strings.Contains(empty, "```diff")).False()
	gt.B(t, strings.Contains(empty, "textually identical")).True()
	gt.S(t, empty).NotEqual(unavailable)
}

func TestCompose_AppliesFollowUpConfig(t *testing.T) {
	composer := usecase.NewPromptComposer(config.FollowUpConfig{
		Language:          "Japanese",
		ExtraInstructions: "Focus on the exported API surface.",
	})

	prompt, err := composer.Compose(types.DirectiveReview, "", model.UnavailableDiff())
	gt.NoError(t, err).Required()

	gt.B(t, strings.Contains(prompt, "Respond in Japanese.")).True()
	gt.B(t, strings.Contains(prompt, "Focus on the exported API surface.")).True()
}

func TestDiffSection_FenceClosesCleanly(t *testing.T) {
	section := usecase.DiffSection(model.NewDiffResult("+line\n"))

	// A trailing newline in the diff text must not leave a blank line
	// before the closing fence.
	gt.B(t, strings.HasSuffix(section, "+line\n```")).True()
}
