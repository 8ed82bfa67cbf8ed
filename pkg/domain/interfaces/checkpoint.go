package interfaces

import (
	"context"

	"github.com/secmon-lab/epimetheus/pkg/domain/model"
	"github.com/secmon-lab/epimetheus/pkg/domain/types"
)

// CheckpointStore snapshots workspace state and computes differences
// between snapshots. Snapshot ids are content-addressed: snapshotting
// identical content yields the identical id.
type CheckpointStore interface {
	// Snapshot records the current workspace state and returns its id
	Snapshot(ctx context.Context) (types.CheckpointID, error)

	// HasChanges reports whether any difference exists between two
	// snapshots. It is a cheap existence check and must not be used to
	// obtain diff content.
	HasChanges(ctx context.Context, base, current types.CheckpointID) (bool, error)

	// Diff returns the unified diff text between two snapshots. An empty
	// string means the snapshots are textually identical.
	Diff(ctx context.Context, base, current types.CheckpointID) (string, error)

	// ChangedFiles returns a per-file change summary between two snapshots
	ChangedFiles(ctx context.Context, base, current types.CheckpointID) ([]model.FileChange, error)
}
