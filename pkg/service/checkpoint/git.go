package checkpoint

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/epimetheus/pkg/domain/interfaces"
	"github.com/secmon-lab/epimetheus/pkg/domain/model"
	"github.com/secmon-lab/epimetheus/pkg/domain/types"
	"github.com/secmon-lab/epimetheus/pkg/utils/logging"
)

// GitStore snapshots a workspace through a shadow git repository: a
// repository whose metadata lives outside the workspace and whose
// core.worktree points at it. Snapshot ids are tree hashes, so they are
// content-addressed and independent of time or author identity. The
// workspace's own .git directory is never touched.
type GitStore struct {
	workspaceDir string
	shadowDir    string
	ignore       []string

	// git index is shared state across snapshots
	mu sync.Mutex
}

var _ interfaces.CheckpointStore = &GitStore{}

type GitOption func(*GitStore)

// WithIgnorePatterns excludes paths from snapshots, in gitignore syntax.
func WithIgnorePatterns(patterns []string) GitOption {
	return func(s *GitStore) {
		s.ignore = append(s.ignore, patterns...)
	}
}

// NewGitStore prepares a shadow repository at shadowDir tracking
// workspaceDir. Both paths are created as needed; an existing shadow
// repository is reused.
func NewGitStore(ctx context.Context, workspaceDir, shadowDir string, opts ...GitOption) (*GitStore, error) {
	if _, err := exec.LookPath("git"); err != nil {
		return nil, goerr.Wrap(err, "git binary not found in PATH")
	}

	absWorkspace, err := filepath.Abs(workspaceDir)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to resolve workspace dir", goerr.V("dir", workspaceDir))
	}
	absShadow, err := filepath.Abs(shadowDir)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to resolve shadow dir", goerr.V("dir", shadowDir))
	}
	if absWorkspace == absShadow {
		return nil, goerr.New("shadow dir must differ from workspace dir", goerr.V("dir", absWorkspace))
	}

	s := &GitStore{
		workspaceDir: absWorkspace,
		shadowDir:    absShadow,
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.init(ctx); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *GitStore) init(ctx context.Context) error {
	if err := os.MkdirAll(s.shadowDir, 0o755); err != nil {
		return goerr.Wrap(err, "failed to create shadow dir", goerr.V("dir", s.shadowDir))
	}

	gitDir := filepath.Join(s.shadowDir, ".git")
	if _, err := os.Stat(gitDir); os.IsNotExist(err) {
		if _, err := s.git(ctx, "init"); err != nil {
			return goerr.Wrap(err, "failed to init shadow repository")
		}
		logging.From(ctx).Info("initialized shadow repository",
			"shadow_dir", s.shadowDir,
			"workspace_dir", s.workspaceDir,
		)
	}

	if _, err := s.git(ctx, "config", "core.worktree", s.workspaceDir); err != nil {
		return goerr.Wrap(err, "failed to set core.worktree")
	}
	// Tree objects are unreferenced; gc would prune them
	if _, err := s.git(ctx, "config", "gc.auto", "0"); err != nil {
		return goerr.Wrap(err, "failed to disable gc")
	}

	return s.writeExcludes()
}

// writeExcludes keeps the workspace's own repository and the shadow dir
// itself out of snapshots, plus any configured patterns.
func (s *GitStore) writeExcludes() error {
	patterns := []string{".git/"}
	if rel, err := filepath.Rel(s.workspaceDir, s.shadowDir); err == nil && !strings.HasPrefix(rel, "..") {
		patterns = append(patterns, rel+"/")
	}
	patterns = append(patterns, s.ignore...)

	excludePath := filepath.Join(s.shadowDir, ".git", "info", "exclude")
	if err := os.MkdirAll(filepath.Dir(excludePath), 0o755); err != nil {
		return goerr.Wrap(err, "failed to create exclude dir")
	}
	content := strings.Join(patterns, "\n") + "\n"
	if err := os.WriteFile(excludePath, []byte(content), 0o644); err != nil {
		return goerr.Wrap(err, "failed to write exclude file", goerr.V("path", excludePath))
	}
	return nil
}

func (s *GitStore) Snapshot(ctx context.Context) (types.CheckpointID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.git(ctx, "add", "-A"); err != nil {
		return "", goerr.Wrap(err, "failed to stage workspace")
	}

	out, err := s.git(ctx, "write-tree")
	if err != nil {
		return "", goerr.Wrap(err, "failed to write snapshot tree")
	}

	id := types.CheckpointID(strings.TrimSpace(out))
	if err := id.Validate(); err != nil {
		return "", goerr.Wrap(err, "snapshot produced no id")
	}

	logging.From(ctx).Debug("workspace snapshot taken", "checkpoint", id.Short())
	return id, nil
}

func (s *GitStore) HasChanges(ctx context.Context, base, current types.CheckpointID) (bool, error) {
	if err := validateSpan(base, current); err != nil {
		return false, err
	}

	// diff --quiet exits 1 when the trees differ
	cmd := exec.CommandContext(ctx, "git", "diff", "--quiet", base.String(), current.String())
	cmd.Dir = s.shadowDir
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
			return true, nil
		}
		return false, goerr.Wrap(err, "failed to compare snapshots",
			goerr.V("base", base),
			goerr.V("current", current))
	}
	return false, nil
}

func (s *GitStore) Diff(ctx context.Context, base, current types.CheckpointID) (string, error) {
	if err := validateSpan(base, current); err != nil {
		return "", err
	}

	out, err := s.git(ctx, "diff", "--no-renames", base.String(), current.String())
	if err != nil {
		return "", goerr.Wrap(err, "failed to diff snapshots",
			goerr.V("base", base),
			goerr.V("current", current))
	}
	return out, nil
}

func (s *GitStore) ChangedFiles(ctx context.Context, base, current types.CheckpointID) ([]model.FileChange, error) {
	if err := validateSpan(base, current); err != nil {
		return nil, err
	}

	out, err := s.git(ctx, "diff", "--no-renames", "--name-status", base.String(), current.String())
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list changed files",
			goerr.V("base", base),
			goerr.V("current", current))
	}

	var changes []model.FileChange
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, "\t", 2)
		if len(parts) != 2 {
			continue
		}

		var kind types.ChangeKind
		switch parts[0] {
		case "A":
			kind = types.ChangeKindCreated
		case "D":
			kind = types.ChangeKindDeleted
		default:
			kind = types.ChangeKindModified
		}
		changes = append(changes, model.FileChange{Path: parts[1], Kind: kind})
	}

	return changes, nil
}

func validateSpan(base, current types.CheckpointID) error {
	if err := base.Validate(); err != nil {
		return goerr.Wrap(err, "invalid base checkpoint")
	}
	if err := current.Validate(); err != nil {
		return goerr.Wrap(err, "invalid current checkpoint")
	}
	return nil
}

// git runs a git command against the shadow repository and returns stdout.
func (s *GitStore) git(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = s.shadowDir
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", goerr.Wrap(err, "git command failed",
				goerr.V("args", args),
				goerr.V("stderr", string(exitErr.Stderr)))
		}
		return "", goerr.Wrap(err, "git command failed", goerr.V("args", args))
	}
	return string(out), nil
}
