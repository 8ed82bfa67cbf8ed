package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/epimetheus/pkg/domain/interfaces"
	"github.com/secmon-lab/epimetheus/pkg/domain/model"
	"github.com/secmon-lab/epimetheus/pkg/domain/types"
)

type taskRepository struct {
	mu    sync.RWMutex
	tasks map[types.TaskID]*model.Task
}

var _ interfaces.TaskRepository = &taskRepository{}

func newTaskRepository() *taskRepository {
	return &taskRepository{
		tasks: make(map[types.TaskID]*model.Task),
	}
}

// copyTask creates a copy to avoid external mutation
func copyTask(t *model.Task) *model.Task {
	copied := *t
	return &copied
}

func (r *taskRepository) Create(_ context.Context, task *model.Task) error {
	if task == nil {
		return goerr.New("task is nil")
	}
	if err := task.ID.Validate(); err != nil {
		return goerr.Wrap(err, "invalid task ID")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tasks[task.ID]; exists {
		return goerr.New("task already exists", goerr.V("id", task.ID))
	}

	r.tasks[task.ID] = copyTask(task)
	return nil
}

func (r *taskRepository) Get(_ context.Context, id types.TaskID) (*model.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	task, exists := r.tasks[id]
	if !exists {
		return nil, goerr.Wrap(model.ErrNotFound, "task not found", goerr.V("id", id))
	}

	return copyTask(task), nil
}

func (r *taskRepository) GetActive(_ context.Context) (*model.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var active *model.Task
	for _, task := range r.tasks {
		if task.Status.Normalize() != types.TaskStatusActive {
			continue
		}
		if active == nil || task.CreatedAt.After(active.CreatedAt) {
			active = task
		}
	}

	if active == nil {
		return nil, nil
	}
	return copyTask(active), nil
}

func (r *taskRepository) List(_ context.Context, limit int) ([]*model.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tasks := make([]*model.Task, 0, len(r.tasks))
	for _, task := range r.tasks {
		tasks = append(tasks, copyTask(task))
	}

	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].CreatedAt.After(tasks[j].CreatedAt)
	})

	if limit > 0 && len(tasks) > limit {
		tasks = tasks[:limit]
	}

	return tasks, nil
}

func (r *taskRepository) UpdateStatus(_ context.Context, id types.TaskID, status types.TaskStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, exists := r.tasks[id]
	if !exists {
		return goerr.Wrap(model.ErrNotFound, "task not found", goerr.V("id", id))
	}

	task.Status = status
	task.UpdatedAt = time.Now().UTC()
	return nil
}
