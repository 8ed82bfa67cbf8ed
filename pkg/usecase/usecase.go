package usecase

import (
	"github.com/m-mizutani/gollem"
	"github.com/secmon-lab/epimetheus/pkg/domain/interfaces"
	"github.com/secmon-lab/epimetheus/pkg/domain/model/config"
)

type UseCases struct {
	repo         interfaces.Repository
	checkpoints  interfaces.CheckpointStore
	presenter    interfaces.DiffPresenter
	archive      interfaces.TranscriptArchive
	llmClient    gollem.LLMClient
	workspaceDir string
	followUpCfg  config.FollowUpConfig

	Task     *TaskUseCase
	FollowUp *FollowUpUseCase
}

type Option func(*UseCases)

// WithCheckpointStore enables workspace snapshots at task boundaries and
// diff resolution for follow-up dispatch.
func WithCheckpointStore(store interfaces.CheckpointStore) Option {
	return func(uc *UseCases) {
		uc.checkpoints = store
	}
}

// WithPresenter enables the best-effort changed-file presentation side
// effect during follow-up dispatch.
func WithPresenter(p interfaces.DiffPresenter) Option {
	return func(uc *UseCases) {
		uc.presenter = p
	}
}

// WithArchive enables best-effort transcript archiving of finished tasks.
func WithArchive(a interfaces.TranscriptArchive) Option {
	return func(uc *UseCases) {
		uc.archive = a
	}
}

// WithLLMClient enables the agent loop: tasks started with an LLM client
// configured are executed asynchronously by a gollem agent.
func WithLLMClient(client gollem.LLMClient, workspaceDir string) Option {
	return func(uc *UseCases) {
		uc.llmClient = client
		uc.workspaceDir = workspaceDir
	}
}

// WithFollowUpConfig applies prompt tuning to Review and Document
// follow-up directives.
func WithFollowUpConfig(cfg config.FollowUpConfig) Option {
	return func(uc *UseCases) {
		uc.followUpCfg = cfg
	}
}

func New(repo interfaces.Repository, opts ...Option) *UseCases {
	uc := &UseCases{
		repo: repo,
	}

	for _, opt := range opts {
		opt(uc)
	}

	uc.Task = NewTaskUseCase(repo, uc.checkpoints, uc.archive)
	if uc.llmClient != nil {
		uc.Task.agent = newAgentRunner(uc.Task, uc.llmClient, uc.workspaceDir, uc.followUpCfg.Language)
	}
	uc.FollowUp = NewFollowUpUseCase(repo, uc.Task, uc.checkpoints, uc.presenter, NewPromptComposer(uc.followUpCfg))

	return uc
}
