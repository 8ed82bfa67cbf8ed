package checkpoint

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/epimetheus/pkg/domain/interfaces"
	"github.com/secmon-lab/epimetheus/pkg/domain/model"
	"github.com/secmon-lab/epimetheus/pkg/domain/types"
)

// MemoryStore keeps workspace snapshots as in-process content maps. It
// backs development mode and tests; ids are content digests so identical
// workspace state maps to the identical checkpoint id, matching the git
// backend's behavior.
type MemoryStore struct {
	mu        sync.RWMutex
	files     map[string]string
	snapshots map[types.CheckpointID]map[string]string
}

var _ interfaces.CheckpointStore = &MemoryStore{}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		files:     make(map[string]string),
		snapshots: make(map[types.CheckpointID]map[string]string),
	}
}

// WriteFile sets the current content of a workspace path.
func (s *MemoryStore) WriteFile(path, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[path] = content
}

// RemoveFile deletes a workspace path.
func (s *MemoryStore) RemoveFile(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.files, path)
}

func (s *MemoryStore) Snapshot(_ context.Context) (types.CheckpointID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := digest(s.files)

	copied := make(map[string]string, len(s.files))
	for path, content := range s.files {
		copied[path] = content
	}
	s.snapshots[id] = copied

	return id, nil
}

func (s *MemoryStore) HasChanges(_ context.Context, base, current types.CheckpointID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	baseFiles, currentFiles, err := s.lookup(base, current)
	if err != nil {
		return false, err
	}

	if len(baseFiles) != len(currentFiles) {
		return true, nil
	}
	for path, content := range baseFiles {
		if currentFiles[path] != content {
			return true, nil
		}
	}
	for path := range currentFiles {
		if _, exists := baseFiles[path]; !exists {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) Diff(_ context.Context, base, current types.CheckpointID) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	baseFiles, currentFiles, err := s.lookup(base, current)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, path := range changedPaths(baseFiles, currentFiles) {
		old, hadOld := baseFiles[path]
		cur, hasCur := currentFiles[path]

		switch {
		case !hadOld:
			fmt.Fprintf(&sb, "--- /dev/null\n+++ b/%s\n", path)
			writeHunk(&sb, "", cur)
		case !hasCur:
			fmt.Fprintf(&sb, "--- a/%s\n+++ /dev/null\n", path)
			writeHunk(&sb, old, "")
		default:
			fmt.Fprintf(&sb, "--- a/%s\n+++ b/%s\n", path, path)
			writeHunk(&sb, old, cur)
		}
	}

	return sb.String(), nil
}

func (s *MemoryStore) ChangedFiles(_ context.Context, base, current types.CheckpointID) ([]model.FileChange, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	baseFiles, currentFiles, err := s.lookup(base, current)
	if err != nil {
		return nil, err
	}

	var changes []model.FileChange
	for _, path := range changedPaths(baseFiles, currentFiles) {
		_, hadOld := baseFiles[path]
		_, hasCur := currentFiles[path]

		kind := types.ChangeKindModified
		if !hadOld {
			kind = types.ChangeKindCreated
		} else if !hasCur {
			kind = types.ChangeKindDeleted
		}
		changes = append(changes, model.FileChange{Path: path, Kind: kind})
	}

	return changes, nil
}

// lookup resolves both snapshots under the read lock held by the caller.
func (s *MemoryStore) lookup(base, current types.CheckpointID) (map[string]string, map[string]string, error) {
	if err := validateSpan(base, current); err != nil {
		return nil, nil, err
	}

	baseFiles, exists := s.snapshots[base]
	if !exists {
		return nil, nil, goerr.New("unknown checkpoint", goerr.V("id", base))
	}
	currentFiles, exists := s.snapshots[current]
	if !exists {
		return nil, nil, goerr.New("unknown checkpoint", goerr.V("id", current))
	}
	return baseFiles, currentFiles, nil
}

// digest derives a content-addressed id over sorted path/content pairs.
func digest(files map[string]string) types.CheckpointID {
	paths := make([]string, 0, len(files))
	for path := range files {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	h := sha256.New()
	for _, path := range paths {
		fmt.Fprintf(h, "%s\x00%s\x00", path, files[path])
	}
	return types.CheckpointID(hex.EncodeToString(h.Sum(nil)))
}

func changedPaths(baseFiles, currentFiles map[string]string) []string {
	seen := make(map[string]bool)
	var paths []string
	for path := range baseFiles {
		if cur, exists := currentFiles[path]; !exists || cur != baseFiles[path] {
			seen[path] = true
		}
	}
	for path := range currentFiles {
		if old, exists := baseFiles[path]; !exists || old != currentFiles[path] {
			seen[path] = true
		}
	}
	for path := range seen {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

// writeHunk emits a single whole-file hunk in unified style.
func writeHunk(sb *strings.Builder, old, cur string) {
	oldLines := splitLines(old)
	curLines := splitLines(cur)

	fmt.Fprintf(sb, "@@ -1,%d +1,%d @@\n", len(oldLines), len(curLines))
	for _, line := range oldLines {
		sb.WriteString("-" + line + "\n")
	}
	for _, line := range curLines {
		sb.WriteString("+" + line + "\n")
	}
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(s, "\n"), "\n")
}
