package model

import (
	"time"

	"github.com/secmon-lab/epimetheus/pkg/domain/types"
)

// TaskMessage is one immutable entry in a task's message log. Seq is
// assigned by the repository at append time and is the authoritative
// ordering; timestamps are informational.
type TaskMessage struct {
	Seq        int64
	TaskID     types.TaskID
	Kind       types.MessageKind
	Tag        types.MessageTag
	Text       string
	Checkpoint types.CheckpointID
	CreatedAt  time.Time
}

// NewTaskMessage creates an unsequenced message entry. The repository
// fills Seq when the entry is appended.
func NewTaskMessage(taskID types.TaskID, kind types.MessageKind, tag types.MessageTag, text string) *TaskMessage {
	return &TaskMessage{
		TaskID:    taskID,
		Kind:      kind,
		Tag:       tag.Normalize(),
		Text:      text,
		CreatedAt: time.Now().UTC(),
	}
}

// WithCheckpoint attaches a snapshot id to the entry.
func (m *TaskMessage) WithCheckpoint(id types.CheckpointID) *TaskMessage {
	m.Checkpoint = id
	return m
}

// IsCompletion reports whether the entry is a completion result. Both
// say and ask kinds qualify; only the tag matters.
func (m *TaskMessage) IsCompletion() bool {
	return m.Tag == types.MessageTagCompletionResult
}

// HasCheckpoint reports whether the entry carries a usable snapshot id.
func (m *TaskMessage) HasCheckpoint() bool {
	return m.Checkpoint.Validate() == nil
}
