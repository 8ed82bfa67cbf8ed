package interfaces

import (
	"context"

	"github.com/secmon-lab/epimetheus/pkg/domain/model"
)

// DiffPresenter surfaces a changed-file summary to a user-facing channel.
// Presentation is best-effort: callers log failures and continue.
type DiffPresenter interface {
	Present(ctx context.Context, task *model.Task, span model.DiffSpan, files []model.FileChange) error
}
