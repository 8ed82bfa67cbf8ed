package cli

import (
	"context"
	"errors"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/epimetheus/pkg/cli/config"
	"github.com/secmon-lab/epimetheus/pkg/domain/model"
	"github.com/secmon-lab/epimetheus/pkg/domain/types"
	"github.com/secmon-lab/epimetheus/pkg/usecase"
	"github.com/secmon-lab/epimetheus/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdDispatch() *cli.Command {
	var directive string
	var promptText string
	var taskID string
	var appCfg config.AppConfig
	var repoCfg config.Repository
	var checkpointCfg config.Checkpoint
	var slackCfg config.Slack
	var archiveCfg config.Archive

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "directive",
			Aliases:     []string{"d"},
			Usage:       "Follow-up directive (review, document, or custom)",
			Required:    true,
			Destination: &directive,
		},
		&cli.StringFlag{
			Name:        "prompt",
			Aliases:     []string{"p"},
			Usage:       "Prompt text for the custom directive",
			Destination: &promptText,
		},
		&cli.StringFlag{
			Name:        "task",
			Usage:       "Task ID to dispatch against (defaults to the active task, then the most recent completed one)",
			Destination: &taskID,
		},
	}

	// Add shared config flags
	flags = append(flags, appCfg.Flags()...)
	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, checkpointCfg.Flags()...)
	flags = append(flags, slackCfg.Flags()...)
	flags = append(flags, archiveCfg.Flags()...)

	return &cli.Command{
		Name:  "dispatch",
		Usage: "Dispatch a follow-up directive against a task",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			d, err := types.ParseDirective(directive)
			if err != nil {
				return err
			}

			ucOpts, cleanup, err := buildUseCaseOptions(ctx, &appCfg, &checkpointCfg, &slackCfg, &archiveCfg)
			if err != nil {
				return err
			}
			defer cleanup()

			// Initialize repository
			repo, err := repoCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize repository")
			}
			defer func() {
				if err := repo.Close(); err != nil {
					logging.Default().Error("failed to close repository", "error", err.Error())
				}
			}()

			// The one-shot path wires no LLM client: the dispatched task is
			// seeded and left for a serving instance or external agent.
			uc := usecase.New(repo, ucOpts...)

			task, err := resolveDispatchTask(ctx, uc, taskID)
			if err != nil {
				return err
			}

			release, err := uc.Task.AcquireDispatch(task.ID)
			if err != nil {
				return err
			}
			defer release()

			logging.Default().Info("Dispatching follow-up",
				"task_id", task.ID,
				"directive", d,
			)

			if err := uc.FollowUp.Dispatch(ctx, d, promptText); err != nil {
				return goerr.Wrap(err, "dispatch failed")
			}

			// Downstream outcomes are reported on the task's message log;
			// surface the final entry so the invoker sees what happened.
			if history, err := uc.Task.Messages(ctx, task.ID); err == nil && len(history) > 0 {
				last := history[len(history)-1]
				logging.Default().Info("Dispatch finished", "result", last.Text)
			}

			return nil
		},
	}
}

// resolveDispatchTask picks the task a follow-up runs against: an explicit
// id is resumed, otherwise the active task, otherwise the most recently
// completed task is resumed.
func resolveDispatchTask(ctx context.Context, uc *usecase.UseCases, taskID string) (*model.Task, error) {
	if taskID != "" {
		task, err := uc.Task.Resume(ctx, types.TaskID(taskID))
		if err != nil {
			return nil, goerr.Wrap(err, "failed to resume task", goerr.V("task_id", taskID))
		}
		return task, nil
	}

	task, err := uc.Task.Active(ctx)
	if err == nil {
		return task, nil
	}
	if !errors.Is(err, usecase.ErrNoActiveTask) {
		return nil, err
	}

	tasks, err := uc.Task.List(ctx, 0)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list tasks")
	}
	for _, t := range tasks {
		if t.Status == types.TaskStatusCompleted {
			resumed, err := uc.Task.Resume(ctx, t.ID)
			if err != nil {
				return nil, goerr.Wrap(err, "failed to resume completed task", goerr.V("task_id", t.ID))
			}
			return resumed, nil
		}
	}

	return nil, goerr.Wrap(usecase.ErrNoActiveTask, "no completed task to resume")
}
