package interfaces

import (
	"context"

	"github.com/secmon-lab/epimetheus/pkg/domain/model"
	"github.com/secmon-lab/epimetheus/pkg/domain/types"
)

// TaskRepository defines the interface for Task data access
type TaskRepository interface {
	// Create stores a new task. The ID is assigned by the caller.
	Create(ctx context.Context, task *model.Task) error

	// Get retrieves a task by ID
	Get(ctx context.Context, id types.TaskID) (*model.Task, error)

	// GetActive retrieves the task currently in ACTIVE status.
	// Returns nil, nil if no task is active.
	GetActive(ctx context.Context) (*model.Task, error)

	// List retrieves tasks ordered by creation time, newest first
	List(ctx context.Context, limit int) ([]*model.Task, error)

	// UpdateStatus transitions a task to the given status and refreshes
	// its update timestamp
	UpdateStatus(ctx context.Context, id types.TaskID, status types.TaskStatus) error
}
