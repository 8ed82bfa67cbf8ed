package interfaces

import (
	"context"

	"github.com/secmon-lab/epimetheus/pkg/domain/model"
)

// TranscriptArchive stores finished task transcripts in durable object
// storage. Archiving is best-effort and never blocks task completion.
type TranscriptArchive interface {
	Archive(ctx context.Context, task *model.Task, history model.History, diff model.DiffResult) error
}
