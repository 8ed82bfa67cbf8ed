package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/secmon-lab/epimetheus/pkg/cli/config"
	httpctrl "github.com/secmon-lab/epimetheus/pkg/controller/http"
	"github.com/secmon-lab/epimetheus/pkg/service/worker"
	"github.com/secmon-lab/epimetheus/pkg/usecase"
	"github.com/secmon-lab/epimetheus/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdServe() *cli.Command {
	var addr string
	var pruneInterval time.Duration
	var pruneRetention time.Duration
	var appCfg config.AppConfig
	var repoCfg config.Repository
	var checkpointCfg config.Checkpoint
	var slackCfg config.Slack
	var geminiCfg config.Gemini
	var archiveCfg config.Archive

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "HTTP server address",
			Value:       ":8080",
			Sources:     cli.EnvVars("EPIMETHEUS_ADDR"),
			Destination: &addr,
		},
		&cli.DurationFlag{
			Name:        "prune-interval",
			Usage:       "How often finished task logs are checked for pruning",
			Value:       time.Hour,
			Sources:     cli.EnvVars("EPIMETHEUS_PRUNE_INTERVAL"),
			Destination: &pruneInterval,
		},
		&cli.DurationFlag{
			Name:        "prune-retention",
			Usage:       "How long finished task logs are kept (0 disables pruning)",
			Value:       30 * 24 * time.Hour,
			Sources:     cli.EnvVars("EPIMETHEUS_PRUNE_RETENTION"),
			Destination: &pruneRetention,
		},
	}

	// Add shared config flags
	flags = append(flags, appCfg.Flags()...)
	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, checkpointCfg.Flags()...)
	flags = append(flags, slackCfg.Flags()...)
	flags = append(flags, geminiCfg.Flags()...)
	flags = append(flags, archiveCfg.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start HTTP server hosting the task runtime",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ucOpts, cleanup, err := buildUseCaseOptions(ctx, &appCfg, &checkpointCfg, &slackCfg, &archiveCfg)
			if err != nil {
				return err
			}
			defer cleanup()

			// Initialize repository based on backend type
			repo, err := repoCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize repository")
			}
			defer func() {
				if err := repo.Close(); err != nil {
					logging.Default().Error("failed to close repository", "error", err.Error())
				}
			}()

			// Initialize Gemini LLM client; without it tasks wait for an
			// external agent to drive them over the API
			llmClient, err := geminiCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize Gemini client")
			}
			if llmClient != nil {
				workspaceDir, err := checkpointCfg.WorkspaceDir()
				if err != nil {
					return err
				}
				ucOpts = append(ucOpts, usecase.WithLLMClient(llmClient, workspaceDir))
				logging.Default().Info("AI agent enabled", "workspace", workspaceDir)
			} else {
				logging.Default().Info("Gemini not configured, tasks must be driven via the API")
			}

			uc := usecase.New(repo, ucOpts...)

			// Start background prune worker for finished task logs
			var pruneWorker *worker.TaskPruneWorker
			if pruneRetention > 0 {
				pruneWorker = worker.NewTaskPruneWorker(repo, pruneInterval, pruneRetention)
				if err := pruneWorker.Start(ctx); err != nil {
					return goerr.Wrap(err, "failed to start task prune worker")
				}
			}

			server := &http.Server{
				Addr:              addr,
				Handler:           httpctrl.New(uc),
				ReadHeaderTimeout: 30 * time.Second,
			}

			// Setup signal handling for graceful shutdown
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

			// Start server in goroutine
			errCh := make(chan error, 1)
			go func() {
				logging.Default().Info("Starting HTTP server", "addr", addr)
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- goerr.Wrap(err, "failed to start server")
				}
			}()

			// Wait for shutdown signal or server error
			select {
			case err := <-errCh:
				return err
			case sig := <-sigCh:
				logging.Default().Info("Received shutdown signal", "signal", sig)

				// Stop prune worker first
				if pruneWorker != nil {
					pruneWorker.Stop()
				}

				// Create shutdown context with timeout
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()

				// Attempt graceful shutdown
				if err := server.Shutdown(shutdownCtx); err != nil {
					return goerr.Wrap(err, "failed to shutdown server gracefully")
				}

				logging.Default().Info("Server shutdown completed")
				return nil
			}
		},
	}
}

// buildUseCaseOptions wires the optional collaborators shared by the serve
// and dispatch commands: checkpoint store, Slack presenter, transcript
// archive, and the follow-up prompt settings from the app config. The
// returned cleanup closes the archive client.
func buildUseCaseOptions(ctx context.Context, appCfg *config.AppConfig, checkpointCfg *config.Checkpoint, slackCfg *config.Slack, archiveCfg *config.Archive) ([]usecase.Option, func(), error) {
	cleanup := func() {}

	if err := appCfg.Configure(); err != nil {
		return nil, cleanup, goerr.Wrap(err, "failed to load app config")
	}

	opts := []usecase.Option{
		usecase.WithFollowUpConfig(appCfg.FollowUpConfig()),
	}

	store, err := checkpointCfg.Configure(ctx, appCfg.IgnorePatterns())
	if err != nil {
		return nil, cleanup, goerr.Wrap(err, "failed to initialize checkpoint store")
	}
	if store != nil {
		opts = append(opts, usecase.WithCheckpointStore(store))
	}

	presenter, err := slackCfg.Configure()
	if err != nil {
		return nil, cleanup, goerr.Wrap(err, "failed to configure slack presenter")
	}
	if presenter != nil {
		opts = append(opts, usecase.WithPresenter(presenter))
		logging.Default().Info("Slack diff presentation enabled", "slack", *slackCfg)
	}

	arch, err := archiveCfg.Configure(ctx)
	if err != nil {
		return nil, cleanup, goerr.Wrap(err, "failed to configure transcript archive")
	}
	if arch != nil {
		opts = append(opts, usecase.WithArchive(arch))
		logging.Default().Info("Transcript archive enabled", "archive", *archiveCfg)
		cleanup = func() {
			if err := arch.Close(); err != nil {
				logging.Default().Error("failed to close transcript archive", "error", err.Error())
			}
		}
	}

	return opts, cleanup, nil
}
