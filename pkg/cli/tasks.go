package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/epimetheus/pkg/cli/config"
	"github.com/secmon-lab/epimetheus/pkg/domain/types"
	"github.com/secmon-lab/epimetheus/pkg/usecase"
	"github.com/secmon-lab/epimetheus/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdTasks() *cli.Command {
	var limit int
	var repoCfg config.Repository

	flags := []cli.Flag{
		&cli.IntFlag{
			Name:        "limit",
			Aliases:     []string{"n"},
			Usage:       "Maximum number of tasks to list",
			Sources:     cli.EnvVars("EPIMETHEUS_TASKS_LIMIT"),
			Value:       20,
			Destination: &limit,
		},
	}

	// Add shared config flags
	flags = append(flags, repoCfg.Flags()...)

	return &cli.Command{
		Name:      "tasks",
		Aliases:   []string{"t"},
		Usage:     "List recent tasks, or show one task's message log",
		ArgsUsage: "[task-id]",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			repo, err := repoCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize repository")
			}
			defer func() {
				if err := repo.Close(); err != nil {
					logging.Default().Error("failed to close repository", "error", err.Error())
				}
			}()

			uc := usecase.New(repo)

			if c.Args().Len() > 0 {
				return showTask(ctx, uc, types.TaskID(c.Args().First()))
			}
			return listTasks(ctx, uc, limit)
		},
	}
}

func statusColor(status types.TaskStatus) *color.Color {
	switch status {
	case types.TaskStatusActive:
		return color.New(color.FgGreen, color.Bold)
	case types.TaskStatusCompleted:
		return color.New(color.FgCyan)
	case types.TaskStatusAborted:
		return color.New(color.FgRed)
	default:
		return color.New()
	}
}

func listTasks(ctx context.Context, uc *usecase.UseCases, limit int) error {
	tasks, err := uc.Task.List(ctx, limit)
	if err != nil {
		return err
	}
	if len(tasks) == 0 {
		fmt.Println("No tasks found")
		return nil
	}

	for _, task := range tasks {
		// Pad before coloring so escape codes do not skew the column
		status := statusColor(task.Status).Sprintf("%-9s", task.Status)
		fmt.Printf("%s  %s  %s  %s\n",
			task.ID,
			status,
			task.CreatedAt.Local().Format("2006-01-02 15:04"),
			task.Title,
		)
	}
	return nil
}

func showTask(ctx context.Context, uc *usecase.UseCases, taskID types.TaskID) error {
	if err := taskID.Validate(); err != nil {
		return goerr.Wrap(err, "invalid task ID", goerr.V("task_id", taskID))
	}

	task, err := uc.Task.Get(ctx, taskID)
	if err != nil {
		return err
	}

	fmt.Printf("Task:    %s\n", task.ID)
	fmt.Printf("Status:  %s\n", statusColor(task.Status).Sprint(task.Status.String()))
	fmt.Printf("Title:   %s\n", task.Title)
	fmt.Printf("Created: %s\n", task.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Println()

	history, err := uc.Task.Messages(ctx, taskID)
	if err != nil {
		return err
	}

	faint := color.New(color.Faint)
	for _, msg := range history {
		label := string(msg.Tag)
		if msg.HasCheckpoint() {
			label += " @" + msg.Checkpoint.Short()
		}
		fmt.Printf("%4d  %s  %s\n",
			msg.Seq,
			msg.CreatedAt.Local().Format("15:04:05"),
			faint.Sprint(label),
		)
		for _, line := range strings.Split(msg.Text, "\n") {
			fmt.Printf("      %s\n", line)
		}
	}
	return nil
}
