package config

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/epimetheus/pkg/domain/interfaces"
	"github.com/secmon-lab/epimetheus/pkg/service/checkpoint"
	"github.com/secmon-lab/epimetheus/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// Checkpoint holds CLI flags for the workspace checkpoint store
type Checkpoint struct {
	backend   string
	workspace string
	shadowDir string
}

// Flags returns CLI flags for checkpoint configuration
func (c *Checkpoint) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "checkpoint-backend",
			Usage:       "Checkpoint backend type (git, memory, or none)",
			Category:    "Checkpoint",
			Value:       "git",
			Sources:     cli.EnvVars("EPIMETHEUS_CHECKPOINT_BACKEND"),
			Destination: &c.backend,
		},
		&cli.StringFlag{
			Name:        "workspace",
			Usage:       "Workspace directory snapshotted by checkpoints and exposed to the agent",
			Category:    "Checkpoint",
			Value:       ".",
			Sources:     cli.EnvVars("EPIMETHEUS_WORKSPACE"),
			Destination: &c.workspace,
		},
		&cli.StringFlag{
			Name:        "checkpoint-dir",
			Usage:       "Directory for the shadow git repository (defaults to <workspace>/.epimetheus/checkpoints)",
			Category:    "Checkpoint",
			Sources:     cli.EnvVars("EPIMETHEUS_CHECKPOINT_DIR"),
			Destination: &c.shadowDir,
		},
	}
}

// LogValue returns log attributes for the checkpoint configuration
func (c Checkpoint) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("backend", c.backend),
		slog.String("workspace", c.workspace),
		slog.String("shadow_dir", c.shadowDir),
	)
}

// WorkspaceDir returns the absolute workspace directory
func (c *Checkpoint) WorkspaceDir() (string, error) {
	dir, err := filepath.Abs(c.workspace)
	if err != nil {
		return "", goerr.Wrap(err, "failed to resolve workspace directory", goerr.V("workspace", c.workspace))
	}
	return dir, nil
}

// Configure initializes the checkpoint store for the configured backend.
// Returns nil for the "none" backend; snapshotting is optional.
func (c *Checkpoint) Configure(ctx context.Context, ignorePatterns []string) (interfaces.CheckpointStore, error) {
	switch c.backend {
	case "git":
		workspace, err := c.WorkspaceDir()
		if err != nil {
			return nil, err
		}
		shadow := c.shadowDir
		if shadow == "" {
			shadow = filepath.Join(workspace, ".epimetheus", "checkpoints")
		}
		store, err := checkpoint.NewGitStore(ctx, workspace, shadow,
			checkpoint.WithIgnorePatterns(ignorePatterns))
		if err != nil {
			return nil, goerr.Wrap(err, "failed to initialize git checkpoint store")
		}
		logging.Default().Info("Using git checkpoint store",
			"workspace", workspace,
			"shadow_dir", shadow,
		)
		return store, nil

	case "memory":
		logging.Default().Info("Using in-memory checkpoint store (development mode)")
		return checkpoint.NewMemoryStore(), nil

	case "none":
		logging.Default().Info("Checkpoint store disabled")
		return nil, nil

	default:
		return nil, goerr.New("invalid checkpoint backend", goerr.V(BackendKey, c.backend))
	}
}
