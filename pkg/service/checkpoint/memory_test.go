package checkpoint_test

import (
	"context"
	"strings"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/epimetheus/pkg/domain/types"
	"github.com/secmon-lab/epimetheus/pkg/service/checkpoint"
)

func TestMemoryStore_SnapshotIsContentAddressed(t *testing.T) {
	store := checkpoint.NewMemoryStore()
	ctx := context.Background()

	store.WriteFile("main.go", "package main\n")

	first, err := store.Snapshot(ctx)
	gt.NoError(t, err).Required()

	second, err := store.Snapshot(ctx)
	gt.NoError(t, err).Required()
	gt.Value(t, second).Equal(first)

	store.WriteFile("main.go", "package main\n\nfunc main() {}\n")
	third, err := store.Snapshot(ctx)
	gt.NoError(t, err).Required()
	gt.Value(t, third).NotEqual(first)
}

func TestMemoryStore_HasChanges(t *testing.T) {
	store := checkpoint.NewMemoryStore()
	ctx := context.Background()

	store.WriteFile("a.txt", "one\n")
	base, err := store.Snapshot(ctx)
	gt.NoError(t, err).Required()

	changed, err := store.HasChanges(ctx, base, base)
	gt.NoError(t, err).Required()
	gt.B(t, changed).False()

	store.WriteFile("a.txt", "two\n")
	current, err := store.Snapshot(ctx)
	gt.NoError(t, err).Required()

	changed, err = store.HasChanges(ctx, base, current)
	gt.NoError(t, err).Required()
	gt.B(t, changed).True()
}

func TestMemoryStore_DiffAndChangedFiles(t *testing.T) {
	store := checkpoint.NewMemoryStore()
	ctx := context.Background()

	store.WriteFile("modified.txt", "old content\n")
	store.WriteFile("deleted.txt", "bye\n")
	base, err := store.Snapshot(ctx)
	gt.NoError(t, err).Required()

	store.WriteFile("modified.txt", "new content\n")
	store.WriteFile("created.txt", "hello\n")
	store.RemoveFile("deleted.txt")
	current, err := store.Snapshot(ctx)
	gt.NoError(t, err).Required()

	diff, err := store.Diff(ctx, base, current)
	gt.NoError(t, err).Required()
	gt.B(t, strings.Contains(diff, "-old content")).True()
	gt.B(t, strings.Contains(diff, "+new content")).True()
	gt.B(t, strings.Contains(diff, "--- /dev/null")).True()
	gt.B(t, strings.Contains(diff, "+++ /dev/null")).True()

	changes, err := store.ChangedFiles(ctx, base, current)
	gt.NoError(t, err).Required()
	gt.Array(t, changes).Length(3).Required()

	kinds := make(map[string]types.ChangeKind)
	for _, c := range changes {
		kinds[c.Path] = c.Kind
	}
	gt.Value(t, kinds["modified.txt"]).Equal(types.ChangeKindModified)
	gt.Value(t, kinds["created.txt"]).Equal(types.ChangeKindCreated)
	gt.Value(t, kinds["deleted.txt"]).Equal(types.ChangeKindDeleted)
}

func TestMemoryStore_DeletedEmptyFileIsReported(t *testing.T) {
	store := checkpoint.NewMemoryStore()
	ctx := context.Background()

	store.WriteFile("keep.txt", "stay\n")
	store.WriteFile("empty.txt", "")
	base, err := store.Snapshot(ctx)
	gt.NoError(t, err).Required()

	store.RemoveFile("empty.txt")
	current, err := store.Snapshot(ctx)
	gt.NoError(t, err).Required()

	changes, err := store.ChangedFiles(ctx, base, current)
	gt.NoError(t, err).Required()
	gt.Array(t, changes).Length(1).Required()
	gt.Value(t, changes[0].Path).Equal("empty.txt")
	gt.Value(t, changes[0].Kind).Equal(types.ChangeKindDeleted)
}

func TestMemoryStore_EmptyDiffForIdenticalSnapshots(t *testing.T) {
	store := checkpoint.NewMemoryStore()
	ctx := context.Background()

	store.WriteFile("same.txt", "unchanged\n")
	base, err := store.Snapshot(ctx)
	gt.NoError(t, err).Required()
	current, err := store.Snapshot(ctx)
	gt.NoError(t, err).Required()

	diff, err := store.Diff(ctx, base, current)
	gt.NoError(t, err).Required()
	gt.S(t, diff).Equal("")
}

func TestMemoryStore_UnknownCheckpoint(t *testing.T) {
	store := checkpoint.NewMemoryStore()
	ctx := context.Background()

	id, err := store.Snapshot(ctx)
	gt.NoError(t, err).Required()

	_, err = store.Diff(ctx, id, types.CheckpointID("deadbeef"))
	gt.Error(t, err)

	_, err = store.HasChanges(ctx, types.CheckpointID("deadbeef"), id)
	gt.Error(t, err)
}
