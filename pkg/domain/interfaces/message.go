package interfaces

import (
	"context"
	"time"

	"github.com/secmon-lab/epimetheus/pkg/domain/model"
	"github.com/secmon-lab/epimetheus/pkg/domain/types"
)

// MessageRepository defines the interface for task message log persistence.
// Entries are append-only; Seq is assigned at append time and defines the
// authoritative order.
type MessageRepository interface {
	// Append stores a new log entry, assigns its sequence number, and
	// returns the stored entry
	Append(ctx context.Context, msg *model.TaskMessage) (*model.TaskMessage, error)

	// List retrieves the full log of a task in ascending sequence order
	List(ctx context.Context, taskID types.TaskID) (model.History, error)

	// Prune deletes entries of a task older than the specified time.
	// Returns the number of entries deleted
	Prune(ctx context.Context, taskID types.TaskID, before time.Time) (int, error)
}
