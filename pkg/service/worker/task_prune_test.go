package worker_test

import (
	"context"
	"testing"
	"time"

	"github.com/secmon-lab/epimetheus/pkg/domain/model"
	"github.com/secmon-lab/epimetheus/pkg/domain/types"
	"github.com/secmon-lab/epimetheus/pkg/repository/memory"
	"github.com/secmon-lab/epimetheus/pkg/service/worker"
)

// seedTask creates a task with backdated messages and returns it
func seedTask(t *testing.T, repo *memory.Repository, status types.TaskStatus, age time.Duration, messages int) *model.Task {
	t.Helper()
	ctx := context.Background()

	task := model.NewTask("prune target")
	task.Status = status
	task.CreatedAt = time.Now().Add(-age)
	task.UpdatedAt = time.Now().Add(-age)
	if err := repo.Task().Create(ctx, task); err != nil {
		t.Fatalf("failed to create task: %v", err)
	}

	for i := 0; i < messages; i++ {
		msg := model.NewTaskMessage(task.ID, types.MessageKindSay, types.MessageTagText, "old entry")
		msg.CreatedAt = time.Now().Add(-age)
		if _, err := repo.Message().Append(ctx, msg); err != nil {
			t.Fatalf("failed to append message: %v", err)
		}
	}

	return task
}

func TestTaskPruneWorker_PrunesFinishedTasks(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()

	task := seedTask(t, repo, types.TaskStatusCompleted, 48*time.Hour, 3)

	w := worker.NewTaskPruneWorker(repo, 10*time.Minute, 24*time.Hour)
	if err := w.Start(ctx); err != nil {
		t.Fatalf("failed to start worker: %v", err)
	}
	defer w.Stop()

	// Wait for background initial cycle to complete
	time.Sleep(50 * time.Millisecond)

	history, err := repo.Message().List(ctx, task.ID)
	if err != nil {
		t.Fatalf("failed to list messages: %v", err)
	}
	if len(history) != 0 {
		t.Errorf("expected messages of old completed task to be pruned, got %d", len(history))
	}
}

func TestTaskPruneWorker_SkipsActiveTasks(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()

	task := seedTask(t, repo, types.TaskStatusActive, 48*time.Hour, 3)

	w := worker.NewTaskPruneWorker(repo, 10*time.Minute, 24*time.Hour)
	if err := w.Start(ctx); err != nil {
		t.Fatalf("failed to start worker: %v", err)
	}
	defer w.Stop()

	time.Sleep(50 * time.Millisecond)

	history, err := repo.Message().List(ctx, task.ID)
	if err != nil {
		t.Fatalf("failed to list messages: %v", err)
	}
	if len(history) != 3 {
		t.Errorf("expected active task history to be preserved, got %d messages", len(history))
	}
}

func TestTaskPruneWorker_SkipsRecentlyFinishedTasks(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()

	task := seedTask(t, repo, types.TaskStatusCompleted, time.Hour, 2)

	w := worker.NewTaskPruneWorker(repo, 10*time.Minute, 24*time.Hour)
	if err := w.Start(ctx); err != nil {
		t.Fatalf("failed to start worker: %v", err)
	}
	defer w.Stop()

	time.Sleep(50 * time.Millisecond)

	history, err := repo.Message().List(ctx, task.ID)
	if err != nil {
		t.Fatalf("failed to list messages: %v", err)
	}
	if len(history) != 2 {
		t.Errorf("expected recently finished task history to be preserved, got %d messages", len(history))
	}
}

func TestTaskPruneWorker_StopsCleanly(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()

	w := worker.NewTaskPruneWorker(repo, 100*time.Millisecond, 24*time.Hour)
	if err := w.Start(ctx); err != nil {
		t.Fatalf("failed to start worker: %v", err)
	}

	time.Sleep(50 * time.Millisecond)

	// Stop should return promptly (not block)
	stopStart := time.Now()
	w.Stop()
	stopDuration := time.Since(stopStart)

	if stopDuration > time.Second {
		t.Errorf("Stop() took too long: %v", stopDuration)
	}
}
