package usecase

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/epimetheus/pkg/domain/interfaces"
	"github.com/secmon-lab/epimetheus/pkg/domain/model"
	"github.com/secmon-lab/epimetheus/pkg/domain/types"
	"github.com/secmon-lab/epimetheus/pkg/utils/async"
	"github.com/secmon-lab/epimetheus/pkg/utils/logging"
)

const defaultTaskListLimit = 50

// TaskUseCase is the task runtime: it owns the task lifecycle, the
// append-only message log, and the workspace snapshots taken at task
// boundaries. At most one task is active at a time.
type TaskUseCase struct {
	repo        interfaces.Repository
	checkpoints interfaces.CheckpointStore
	archive     interfaces.TranscriptArchive
	agent       *agentRunner

	dispatchMu sync.Mutex
	inFlight   map[types.TaskID]struct{}
}

func NewTaskUseCase(repo interfaces.Repository, checkpoints interfaces.CheckpointStore, archive interfaces.TranscriptArchive) *TaskUseCase {
	return &TaskUseCase{
		repo:        repo,
		checkpoints: checkpoints,
		archive:     archive,
		inFlight:    make(map[types.TaskID]struct{}),
	}
}

// Start creates a new active task seeded with the given prompt. It rejects
// the call with ErrTaskActive while another task is active. When an LLM
// client is configured the agent loop runs asynchronously; otherwise the
// task is driven externally through Say and Complete.
func (u *TaskUseCase) Start(ctx context.Context, prompt string) (*model.Task, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, goerr.New("task prompt is required")
	}

	active, err := u.repo.Task().GetActive(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to check active task")
	}
	if active != nil {
		return nil, goerr.Wrap(ErrTaskActive, "cannot start task", goerr.V(TaskIDKey, active.ID))
	}

	task := model.NewTask(prompt)
	if err := u.launch(ctx, task, prompt); err != nil {
		return nil, err
	}
	return task, nil
}

// launch persists a freshly built task, records its seed and baseline
// checkpoint entries, and spawns the agent loop when one is configured.
// The caller is responsible for the single-active-task check.
func (u *TaskUseCase) launch(ctx context.Context, task *model.Task, prompt string) error {
	logger := logging.From(ctx)

	if err := u.repo.Task().Create(ctx, task); err != nil {
		return goerr.Wrap(err, "failed to create task", goerr.V(TaskIDKey, task.ID))
	}

	seed := model.NewTaskMessage(task.ID, types.MessageKindSay, types.MessageTagTaskStarted, prompt)
	if _, err := u.repo.Message().Append(ctx, seed); err != nil {
		return goerr.Wrap(err, "failed to record task seed", goerr.V(TaskIDKey, task.ID))
	}

	// The baseline snapshot is best-effort: without it the task still
	// runs, and follow-up diffs degrade to the unavailable state.
	if u.checkpoints != nil {
		if id, err := u.checkpoints.Snapshot(ctx); err != nil {
			logger.Warn("failed to take baseline checkpoint", "error", err, "task_id", task.ID)
		} else {
			msg := model.NewTaskMessage(task.ID, types.MessageKindSay, types.MessageTagCheckpointCreated,
				"Baseline workspace checkpoint recorded").WithCheckpoint(id)
			if _, err := u.repo.Message().Append(ctx, msg); err != nil {
				logger.Warn("failed to record baseline checkpoint", "error", err, "task_id", task.ID)
			}
		}
	}

	logger.Info("task started", "task_id", task.ID, "title", task.Title)

	if u.agent != nil {
		async.Dispatch(ctx, func(ctx context.Context) error {
			return u.agent.run(ctx, task, prompt)
		})
	}

	return nil
}

// Say appends an entry to a task's message log. Kind defaults to say and
// tag defaults to text when empty. The stored entry is returned with its
// assigned sequence number.
func (u *TaskUseCase) Say(ctx context.Context, taskID types.TaskID, kind types.MessageKind, tag types.MessageTag, text string, checkpoint types.CheckpointID) (*model.TaskMessage, error) {
	if text == "" {
		return nil, goerr.New("message text is required", goerr.V(TaskIDKey, taskID))
	}
	if _, err := u.repo.Task().Get(ctx, taskID); err != nil {
		return nil, goerr.Wrap(err, "failed to get task", goerr.V(TaskIDKey, taskID))
	}

	msg := model.NewTaskMessage(taskID, kind.Normalize(), tag, text)
	if checkpoint != "" {
		msg.WithCheckpoint(checkpoint)
	}

	stored, err := u.repo.Message().Append(ctx, msg)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to append message", goerr.V(TaskIDKey, taskID))
	}
	return stored, nil
}

// Complete records a completion result on an active task and transitions
// it to COMPLETED. The workspace is snapshotted so the follow-up diff has
// a current checkpoint; the completion entry is still appended without a
// checkpoint id if the snapshot fails.
func (u *TaskUseCase) Complete(ctx context.Context, taskID types.TaskID, resultText string) (*model.Task, error) {
	logger := logging.From(ctx)

	task, err := u.repo.Task().Get(ctx, taskID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get task", goerr.V(TaskIDKey, taskID))
	}
	if task.Status.Normalize() != types.TaskStatusActive {
		return nil, goerr.Wrap(ErrTaskNotActive, "cannot complete task", goerr.V(TaskIDKey, taskID))
	}
	if strings.TrimSpace(resultText) == "" {
		resultText = "(no result text)"
	}

	msg := model.NewTaskMessage(taskID, types.MessageKindSay, types.MessageTagCompletionResult, resultText)
	if u.checkpoints != nil {
		if id, err := u.checkpoints.Snapshot(ctx); err != nil {
			logger.Warn("failed to snapshot workspace at completion", "error", err, "task_id", taskID)
		} else {
			msg.WithCheckpoint(id)
		}
	}
	if _, err := u.repo.Message().Append(ctx, msg); err != nil {
		return nil, goerr.Wrap(err, "failed to record completion", goerr.V(TaskIDKey, taskID))
	}

	if err := u.finish(ctx, task, types.TaskStatusCompleted); err != nil {
		return nil, err
	}
	return task, nil
}

// Abort transitions an active task to ABORTED, recording the reason as an
// error report entry when one is given.
func (u *TaskUseCase) Abort(ctx context.Context, taskID types.TaskID, reason string) (*model.Task, error) {
	task, err := u.repo.Task().Get(ctx, taskID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get task", goerr.V(TaskIDKey, taskID))
	}
	if task.Status.Normalize() != types.TaskStatusActive {
		return nil, goerr.Wrap(ErrTaskNotActive, "cannot abort task", goerr.V(TaskIDKey, taskID))
	}

	if reason != "" {
		report := model.NewTaskMessage(taskID, types.MessageKindSay, types.MessageTagErrorReport, reason)
		if _, err := u.repo.Message().Append(ctx, report); err != nil {
			logging.From(ctx).Warn("failed to record abort reason", "error", err, "task_id", taskID)
		}
	}

	if err := u.finish(ctx, task, types.TaskStatusAborted); err != nil {
		return nil, err
	}
	return task, nil
}

// Resume makes an existing finished task the active one. Resuming a task
// that is already active is a no-op. It rejects the call with
// ErrTaskActive while a different task is active.
func (u *TaskUseCase) Resume(ctx context.Context, taskID types.TaskID) (*model.Task, error) {
	task, err := u.repo.Task().Get(ctx, taskID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get task", goerr.V(TaskIDKey, taskID))
	}
	if task.Status.Normalize() == types.TaskStatusActive {
		return task, nil
	}

	active, err := u.repo.Task().GetActive(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to check active task")
	}
	if active != nil {
		return nil, goerr.Wrap(ErrTaskActive, "cannot resume task", goerr.V(TaskIDKey, active.ID))
	}

	if err := u.repo.Task().UpdateStatus(ctx, taskID, types.TaskStatusActive); err != nil {
		return nil, goerr.Wrap(err, "failed to update task status", goerr.V(TaskIDKey, taskID))
	}
	task.Status = types.TaskStatusActive
	task.UpdatedAt = time.Now().UTC()

	logging.From(ctx).Info("task resumed", "task_id", task.ID)
	return task, nil
}

// Active returns the task currently in ACTIVE status, or ErrNoActiveTask.
func (u *TaskUseCase) Active(ctx context.Context) (*model.Task, error) {
	task, err := u.repo.Task().GetActive(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get active task")
	}
	if task == nil {
		return nil, ErrNoActiveTask
	}
	return task, nil
}

// Get retrieves a task by ID.
func (u *TaskUseCase) Get(ctx context.Context, taskID types.TaskID) (*model.Task, error) {
	task, err := u.repo.Task().Get(ctx, taskID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get task", goerr.V(TaskIDKey, taskID))
	}
	return task, nil
}

// List retrieves tasks ordered newest first.
func (u *TaskUseCase) List(ctx context.Context, limit int) ([]*model.Task, error) {
	if limit <= 0 {
		limit = defaultTaskListLimit
	}
	tasks, err := u.repo.Task().List(ctx, limit)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list tasks")
	}
	return tasks, nil
}

// Messages returns the full ordered message log of a task.
func (u *TaskUseCase) Messages(ctx context.Context, taskID types.TaskID) (model.History, error) {
	if _, err := u.repo.Task().Get(ctx, taskID); err != nil {
		return nil, goerr.Wrap(err, "failed to get task", goerr.V(TaskIDKey, taskID))
	}
	history, err := u.repo.Message().List(ctx, taskID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list task messages", goerr.V(TaskIDKey, taskID))
	}
	return history, nil
}

// AcquireDispatch claims the follow-up dispatch slot for a task. At most
// one dispatch runs per task at a time; a second caller gets
// ErrDispatchInFlight. The returned release function must be called when
// the dispatch ends and is safe to call more than once.
func (u *TaskUseCase) AcquireDispatch(taskID types.TaskID) (func(), error) {
	u.dispatchMu.Lock()
	defer u.dispatchMu.Unlock()

	if _, held := u.inFlight[taskID]; held {
		return nil, goerr.Wrap(ErrDispatchInFlight, "dispatch slot is held", goerr.V(TaskIDKey, taskID))
	}
	u.inFlight[taskID] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			u.dispatchMu.Lock()
			defer u.dispatchMu.Unlock()
			delete(u.inFlight, taskID)
		})
	}, nil
}

// finish transitions a task to a terminal status and archives its
// transcript best-effort.
func (u *TaskUseCase) finish(ctx context.Context, task *model.Task, status types.TaskStatus) error {
	if err := u.repo.Task().UpdateStatus(ctx, task.ID, status); err != nil {
		return goerr.Wrap(err, "failed to update task status",
			goerr.V(TaskIDKey, task.ID), goerr.V("status", status))
	}
	task.Status = status
	task.UpdatedAt = time.Now().UTC()

	u.archiveTranscript(ctx, task)

	logging.From(ctx).Info("task finished", "task_id", task.ID, "status", status)
	return nil
}

// archiveTranscript persists the final transcript to the configured
// archive. Failures are logged and never block the status transition.
func (u *TaskUseCase) archiveTranscript(ctx context.Context, task *model.Task) {
	if u.archive == nil {
		return
	}
	logger := logging.From(ctx)

	history, err := u.repo.Message().List(ctx, task.ID)
	if err != nil {
		logger.Warn("failed to load transcript for archive", "error", err, "task_id", task.ID)
		return
	}

	diff := model.UnavailableDiff()
	if span, ok := history.CompletionSpan(); ok {
		resolved, err := resolveDiff(ctx, u.checkpoints, span)
		if err != nil {
			logger.Warn("failed to resolve diff for archive", "error", err, "task_id", task.ID)
		} else {
			diff = resolved
		}
	}

	if err := u.archive.Archive(ctx, task, history, diff); err != nil {
		logger.Warn("failed to archive task transcript", "error", err, "task_id", task.ID)
		return
	}
	logger.Info("task transcript archived", "task_id", task.ID, "messages", len(history))
}
