package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/epimetheus/pkg/domain/interfaces"
	"github.com/secmon-lab/epimetheus/pkg/domain/model"
	"github.com/secmon-lab/epimetheus/pkg/domain/types"
	"github.com/secmon-lab/epimetheus/pkg/utils/logging"
	"golang.org/x/sync/errgroup"
)

// FollowUpUseCase dispatches follow-up directives against the active
// task: it locates the checkpoint span of the latest completion, resolves
// the diff, composes the directive prompt, and seeds a new task with it.
type FollowUpUseCase struct {
	repo        interfaces.Repository
	tasks       *TaskUseCase
	checkpoints interfaces.CheckpointStore
	presenter   interfaces.DiffPresenter
	composer    *PromptComposer
}

func NewFollowUpUseCase(repo interfaces.Repository, tasks *TaskUseCase, checkpoints interfaces.CheckpointStore, presenter interfaces.DiffPresenter, composer *PromptComposer) *FollowUpUseCase {
	return &FollowUpUseCase{
		repo:        repo,
		tasks:       tasks,
		checkpoints: checkpoints,
		presenter:   presenter,
		composer:    composer,
	}
}

// Dispatch runs one follow-up for the active task. Only precondition
// violations are returned as errors: ErrNoActiveTask when no task is
// active and ErrMissingPrompt for a Custom directive without text, both
// before any message is emitted. Every failure after that point is
// logged, reported in-band as an error entry on the task's own log, and
// the call returns nil.
func (u *FollowUpUseCase) Dispatch(ctx context.Context, directive types.Directive, customText string) error {
	logger := logging.From(ctx)

	if !directive.IsValid() {
		return goerr.New("unknown directive", goerr.V(DirectiveKey, directive))
	}

	task, err := u.tasks.Active(ctx)
	if err != nil {
		return err
	}
	if directive.RequiresPrompt() && strings.TrimSpace(customText) == "" {
		return goerr.Wrap(ErrMissingPrompt, "cannot dispatch follow-up", goerr.V(TaskIDKey, task.ID))
	}

	logger.Info("dispatching follow-up", "task_id", task.ID, "directive", directive)

	history, err := u.repo.Message().List(ctx, task.ID)
	if err != nil {
		u.reportFailure(ctx, task, goerr.Wrap(err, "failed to read task history"))
		return nil
	}

	span, found := history.CompletionSpan()
	if !found {
		// No completion entry at all: nothing to follow up on. The
		// checkpoint store is not consulted on this path.
		u.notice(ctx, task, "No new changes found since the last completion: nothing to follow up on.")
		return nil
	}

	// Cheap existence check before paying for full diff retrieval. With a
	// missing checkpoint id the predicate cannot run; the dispatch then
	// proceeds with an unavailable diff rather than claiming "no changes".
	if u.checkpoints != nil && span.Complete() {
		changed, err := u.checkpoints.HasChanges(ctx, span.Baseline, span.Current)
		if err != nil {
			u.reportFailure(ctx, task, goerr.Wrap(err, "failed to check for new changes"))
			return nil
		}
		if !changed {
			u.notice(ctx, task, "No new changes found since the last completion: nothing to follow up on.")
			return nil
		}
	}

	// Presentation is independent of diff retrieval, so the two run
	// concurrently; composition waits only for the diff.
	var diff model.DiffResult
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		resolved, err := resolveDiff(egCtx, u.checkpoints, span)
		if err != nil {
			return err
		}
		diff = resolved
		return nil
	})
	eg.Go(func() error {
		u.present(egCtx, task, span)
		return nil
	})
	if err := eg.Wait(); err != nil {
		u.reportFailure(ctx, task, err)
		return nil
	}

	prompt, err := u.composer.Compose(directive, customText, diff)
	if err != nil {
		u.reportFailure(ctx, task, err)
		return nil
	}

	next, err := u.submit(ctx, task, directive, prompt)
	if err != nil {
		u.reportFailure(ctx, task, err)
		return nil
	}

	logger.Info("follow-up dispatched",
		"origin_task_id", task.ID,
		"task_id", next.ID,
		"directive", directive,
		"diff_state", diff.State())
	return nil
}

// submit starts the follow-up task and retires the origin. All three
// directives seed a new task so the follow-up works from a fresh context;
// the origin records which task continued it and is closed out, keeping
// the single-active-task invariant.
func (u *FollowUpUseCase) submit(ctx context.Context, origin *model.Task, directive types.Directive, prompt string) (*model.Task, error) {
	next := model.NewTask(prompt)

	u.notice(ctx, origin, fmt.Sprintf("Started %s follow-up task %s", directive, next.ID))

	if err := u.tasks.finish(ctx, origin, types.TaskStatusCompleted); err != nil {
		return nil, err
	}
	if err := u.tasks.launch(ctx, next, prompt); err != nil {
		return nil, err
	}
	return next, nil
}

// present fires the UI side effect. Failures are logged and swallowed;
// presentation never blocks or fails a dispatch.
func (u *FollowUpUseCase) present(ctx context.Context, task *model.Task, span model.DiffSpan) {
	if u.presenter == nil {
		return
	}
	logger := logging.From(ctx)

	var files []model.FileChange
	if u.checkpoints != nil && span.Complete() {
		listed, err := u.checkpoints.ChangedFiles(ctx, span.Baseline, span.Current)
		if err != nil {
			logger.Warn("failed to list changed files for presentation", "error", err, "task_id", task.ID)
		} else {
			files = listed
		}
	}

	if err := u.presenter.Present(ctx, task, span, files); err != nil {
		logger.Warn("failed to present diff", "error", err, "task_id", task.ID)
	}
}

// notice appends an informational follow-up entry to the task log.
func (u *FollowUpUseCase) notice(ctx context.Context, task *model.Task, text string) {
	if _, err := u.tasks.Say(ctx, task.ID, types.MessageKindSay, types.MessageTagFollowupNotice, text, ""); err != nil {
		logging.From(ctx).Warn("failed to record follow-up notice", "error", err, "task_id", task.ID)
	}
}

// reportFailure absorbs a downstream dispatch failure: it is logged and
// surfaced to the user as a plain-text error entry on the task's own log
// instead of failing the dispatch call.
func (u *FollowUpUseCase) reportFailure(ctx context.Context, task *model.Task, err error) {
	logging.From(ctx).Error("follow-up dispatch failed", "error", err, "task_id", task.ID)

	text := "Follow-up dispatch failed: " + err.Error()
	if _, serr := u.tasks.Say(ctx, task.ID, types.MessageKindSay, types.MessageTagErrorReport, text, ""); serr != nil {
		logging.From(ctx).Warn("failed to record dispatch failure", "error", serr, "task_id", task.ID)
	}
}

// resolveDiff turns a checkpoint span into a DiffResult. A missing store
// or a missing id on either end yields the unavailable state, never an
// error; only store failures propagate.
func resolveDiff(ctx context.Context, store interfaces.CheckpointStore, span model.DiffSpan) (model.DiffResult, error) {
	if store == nil || !span.Complete() {
		return model.UnavailableDiff(), nil
	}
	text, err := store.Diff(ctx, span.Baseline, span.Current)
	if err != nil {
		return model.UnavailableDiff(), goerr.Wrap(err, "failed to compute checkpoint diff",
			goerr.V("baseline", span.Baseline), goerr.V("current", span.Current))
	}
	return model.NewDiffResult(text), nil
}
