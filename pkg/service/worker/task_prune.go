package worker

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/epimetheus/pkg/domain/interfaces"
	"github.com/secmon-lab/epimetheus/pkg/utils/logging"
)

// taskScanLimit bounds how many recent tasks one prune cycle examines.
const taskScanLimit = 200

// TaskPruneWorker manages background pruning of message logs for finished tasks
//
// Architecture assumptions:
// - Single server instance (no distributed locking)
// - For future horizontal scaling, implement distributed locking or leader election
type TaskPruneWorker struct {
	repo      interfaces.Repository
	interval  time.Duration
	retention time.Duration
	stopCh    chan struct{}
	doneCh    chan struct{}
}

// NewTaskPruneWorker creates a new worker that prunes messages of finished
// tasks once they are older than the retention period
func NewTaskPruneWorker(repo interfaces.Repository, interval, retention time.Duration) *TaskPruneWorker {
	return &TaskPruneWorker{
		repo:      repo,
		interval:  interval,
		retention: retention,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Start begins the background prune loop
// - Initial cycle and periodic cycles both run in a background goroutine
// - Does not block server startup
func (w *TaskPruneWorker) Start(ctx context.Context) error {
	logging.Default().Info("Task prune worker starting",
		"interval", w.interval.String(),
		"retention", w.retention.String())

	go w.run(ctx)

	return nil
}

// Stop signals the worker to stop and waits for completion
func (w *TaskPruneWorker) Stop() {
	logging.Default().Info("Task prune worker stopping")
	close(w.stopCh)
	<-w.doneCh
	logging.Default().Info("Task prune worker stopped")
}

// run is the main worker loop (runs in goroutine)
func (w *TaskPruneWorker) run(ctx context.Context) {
	defer close(w.doneCh)

	if err := w.prune(ctx); err != nil {
		logging.Default().Error("Initial task prune failed (will retry next interval)",
			"error", err.Error())
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := w.prune(ctx); err != nil {
				// Log error but continue worker
				logging.Default().Error("Task prune failed (will retry next interval)",
					"error", err.Error())
			}

		case <-w.stopCh:
			logging.Default().Info("Task prune worker received stop signal")
			return

		case <-ctx.Done():
			logging.Default().Info("Task prune worker context cancelled")
			return
		}
	}
}

// prune performs a single prune cycle: messages of finished tasks whose
// entries predate the retention cutoff are deleted. Active tasks are never
// touched so a running agent keeps its full history.
func (w *TaskPruneWorker) prune(ctx context.Context) error {
	startTime := time.Now()
	cutoff := startTime.Add(-w.retention)

	tasks, err := w.repo.Task().List(ctx, taskScanLimit)
	if err != nil {
		return goerr.Wrap(err, "failed to list tasks for pruning")
	}

	var pruned int
	for _, task := range tasks {
		if !task.Status.IsFinished() {
			continue
		}
		if task.UpdatedAt.After(cutoff) {
			continue
		}

		n, err := w.repo.Message().Prune(ctx, task.ID, cutoff)
		if err != nil {
			return goerr.Wrap(err, "failed to prune task messages",
				goerr.V("taskID", task.ID), goerr.V("cutoff", cutoff))
		}
		pruned += n
	}

	if pruned > 0 {
		logging.Default().Info("Task prune completed",
			"pruned", pruned,
			"duration", time.Since(startTime).String())
	}

	return nil
}
